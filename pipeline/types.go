// Package pipeline defines the core data model for the apartment
// visualization workflow: an eight-step generation pipeline where every step
// produces images that must pass automated QA and/or human review before the
// pipeline advances.
//
// The types here are pure data. They are read from snapshots supplied by the
// caller's data layer and mutated only by external actions (human
// approve/reject, QA callbacks, step resets); nothing in this package
// performs I/O.
package pipeline

import (
	"fmt"
	"time"

	"github.com/c360studio/vistaflow/pipeline/phases"
)

// Phase identifies the pipeline's current activity. The phase is
// authoritative over the coarse step pointer: the step number is derived
// from the phase via Step.
type Phase string

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid returns true if the phase is part of the pipeline vocabulary.
func (p Phase) IsValid() bool {
	return phases.IsValid(string(p))
}

// Step returns the workflow step number (0-7) derived from the phase.
// Unknown phases report step 0.
func (p Phase) Step() int {
	step, ok := phases.StepFor(string(p))
	if !ok {
		return 0
	}
	return step
}

// InProgress returns true for dispatch/running phases, where generation work
// is in flight and the UI shows an activity overlay.
func (p Phase) InProgress() bool {
	return phases.InProgress(string(p))
}

// AtOrAfter returns true if the phase appears at or after target in
// workflow order.
func (p Phase) AtOrAfter(target Phase) bool {
	return phases.AtOrAfter(string(p), string(target))
}

// Status represents the run status of a pipeline.
type Status string

const (
	// StatusActive indicates the pipeline is progressing through its steps.
	StatusActive Status = "active"
	// StatusPaused indicates the pipeline is suspended pending human input.
	StatusPaused Status = "paused"
	// StatusCompleted indicates the pipeline finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the pipeline aborted with an error.
	StatusFailed Status = "failed"
	// StatusCancelled indicates the pipeline was cancelled by a human.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid pipeline status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for statuses that end the pipeline run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// StepKey identifies a workflow step in maps keyed by step ("step0".."step7").
type StepKey string

// Step keys for the eight workflow steps.
const (
	StepKeySpaceAnalysis  StepKey = "step0"
	StepKeyAnalysisReview StepKey = "step1"
	StepKeyStyle          StepKey = "step2"
	StepKeySpaceDetection StepKey = "step3"
	StepKeyRenders        StepKey = "step4"
	StepKeyPanoramas      StepKey = "step5"
	StepKeyMerge          StepKey = "step6"
	StepKeyDelivery       StepKey = "step7"
)

// StepCount is the number of workflow steps.
const StepCount = 8

// KeyForStep returns the StepKey for a step number.
func KeyForStep(step int) (StepKey, error) {
	if step < 0 || step >= StepCount {
		return "", fmt.Errorf("step %d out of range [0,%d)", step, StepCount)
	}
	return StepKey(fmt.Sprintf("step%d", step)), nil
}

// StepForKey returns the step number for a StepKey.
func (k StepKey) Step() (int, error) {
	var step int
	if _, err := fmt.Sscanf(string(k), "step%d", &step); err != nil {
		return 0, fmt.Errorf("invalid step key %q", k)
	}
	if step < 0 || step >= StepCount {
		return 0, fmt.Errorf("step key %q out of range", k)
	}
	return step, nil
}

// RetryStatus is the automated retry status for one workflow step.
type RetryStatus string

const (
	// RetryNone indicates no retry activity for the step.
	RetryNone RetryStatus = "none"
	// RetryPending indicates a retry has been scheduled but not dispatched.
	RetryPending RetryStatus = "pending"
	// RetryRunning indicates a retry attempt is in flight.
	RetryRunning RetryStatus = "running"
	// RetryBlockedForHuman indicates the retry budget is exhausted and the
	// step waits for an explicit human decision. No further automated
	// retries occur from this state.
	RetryBlockedForHuman RetryStatus = "blocked_for_human"
)

// IsValid returns true if the retry status is part of the vocabulary.
func (s RetryStatus) IsValid() bool {
	switch s {
	case RetryNone, RetryPending, RetryRunning, RetryBlockedForHuman:
		return true
	default:
		return false
	}
}

// RetryState tracks automated retry activity for one workflow step.
type RetryState struct {
	Status RetryStatus `json:"status"`
}

// StepOutput describes the artifact produced by a completed step.
type StepOutput struct {
	// UploadID references the stored output artifact. Empty means the step
	// has not produced an artifact.
	UploadID string `json:"upload_id"`

	// Model is the generation model that produced the artifact.
	Model string `json:"model,omitempty"`

	// CompletedAt is when the step output was recorded.
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Pipeline is a snapshot of one generation job. Snapshots are refreshed by
// the caller's data layer; this core has no opinion on refresh cadence.
type Pipeline struct {
	// ID is the opaque pipeline identifier.
	ID string `json:"id"`

	// Phase is the authoritative activity signal.
	Phase Phase `json:"phase"`

	// CurrentStep is the coarse step pointer written alongside the phase by
	// older clients. It must agree with Phase.Step(); the validator reports
	// divergence as an illegal state.
	CurrentStep int `json:"current_step"`

	// Status is the pipeline run status.
	Status Status `json:"status"`

	// Step1Approved records human sign-off on the space analysis output.
	Step1Approved bool `json:"step1_approved"`

	// Step2Approved records human sign-off on the style output.
	Step2Approved bool `json:"step2_approved"`

	// StepOutputs maps step keys to their output descriptors.
	StepOutputs map[StepKey]StepOutput `json:"step_outputs,omitempty"`

	// StepRetry maps step keys to their retry state.
	StepRetry map[StepKey]RetryState `json:"step_retry_state,omitempty"`

	// SpaceCount is the number of spaces found by space detection.
	SpaceCount int `json:"space_count"`

	// CreatedAt is when the pipeline was created.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// UpdatedAt is when the pipeline was last modified.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// OutputFor returns the output descriptor for a step key. Missing entries
// return a zero StepOutput.
func (p *Pipeline) OutputFor(key StepKey) StepOutput {
	if p.StepOutputs == nil {
		return StepOutput{}
	}
	return p.StepOutputs[key]
}

// HasOutput returns true if the step has a recorded artifact reference.
func (p *Pipeline) HasOutput(key StepKey) bool {
	return p.OutputFor(key).UploadID != ""
}

// RetryFor returns the retry state for a step key. Missing or malformed
// entries normalize to RetryNone rather than erroring: absent upstream data
// is the default case, not a fault.
func (p *Pipeline) RetryFor(key StepKey) RetryState {
	if p.StepRetry == nil {
		return RetryState{Status: RetryNone}
	}
	state, ok := p.StepRetry[key]
	if !ok || !state.Status.IsValid() {
		return RetryState{Status: RetryNone}
	}
	return state
}
