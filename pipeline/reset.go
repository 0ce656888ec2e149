package pipeline

import (
	"fmt"

	"github.com/c360studio/vistaflow/pipeline/phases"
)

// StepReset describes the corrections to apply to one step during a
// cascading reset.
type StepReset struct {
	// Key is the step being reset.
	Key StepKey `json:"key"`

	// ClearOutput indicates the step's output descriptor must be removed.
	ClearOutput bool `json:"clear_output"`

	// ClearApproval indicates the step's human sign-off flag must be
	// cleared (only steps 1 and 2 carry approval flags).
	ClearApproval bool `json:"clear_approval"`

	// RetryStatus is the retry state the step is reset to. Always RetryNone.
	RetryStatus RetryStatus `json:"retry_status"`

	// AssetKind is the asset kind produced by this step, if any. All assets
	// of this kind are invalidated by the reset.
	AssetKind AssetKind `json:"asset_kind,omitempty"`
}

// ResetPlan is the set of corrections a "stop & reset" action must apply,
// in step-number order. Stopping a step invalidates every artifact that
// depended on it, so the plan covers the target step and every step after
// it. The plan is data only: the caller applies it atomically through the
// persistence layer.
type ResetPlan struct {
	// PipelineID is the pipeline being reset.
	PipelineID string `json:"pipeline_id"`

	// FromStep is the first step being reset.
	FromStep int `json:"from_step"`

	// Steps lists the per-step corrections in ascending step order.
	Steps []StepReset `json:"steps"`

	// Phase is the phase the pipeline returns to after the reset.
	Phase Phase `json:"phase"`
}

// resetPhases maps a reset target step to the checkpoint phase the pipeline
// re-enters: the last phase whose artifacts survive the reset, from which
// the orchestrator re-dispatches the target step's work.
var resetPhases = map[int]Phase{
	0: Phase(phases.Created),
	1: Phase(phases.Created),
	2: Phase(phases.Step1Review),
	3: Phase(phases.Step2Review),
	4: Phase(phases.SpacesDetected),
	5: Phase(phases.RendersReview),
	6: Phase(phases.PanoramasReview),
	7: Phase(phases.FinalReview),
}

// PlanReset computes the cascading reset plan for a pipeline and target
// step. It does not mutate the pipeline.
func PlanReset(p *Pipeline, step int) (*ResetPlan, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is nil")
	}
	if step < 0 || step >= StepCount {
		return nil, fmt.Errorf("step %d out of range [0,%d)", step, StepCount)
	}

	plan := &ResetPlan{
		PipelineID: p.ID,
		FromStep:   step,
		Phase:      resetPhases[step],
	}

	for s := step; s < StepCount; s++ {
		key, err := KeyForStep(s)
		if err != nil {
			return nil, err
		}

		reset := StepReset{
			Key:         key,
			ClearOutput: p.HasOutput(key),
			RetryStatus: RetryNone,
		}

		switch s {
		case 1:
			reset.ClearApproval = p.Step1Approved
		case 2:
			reset.ClearApproval = p.Step2Approved
		}

		for _, kind := range []AssetKind{AssetKindRender, AssetKindPanorama, AssetKindFinal360} {
			if kind.StepKey() == key {
				reset.AssetKind = kind
			}
		}

		plan.Steps = append(plan.Steps, reset)
	}

	return plan, nil
}

// Apply mutates the pipeline snapshot according to the plan. The caller is
// responsible for persisting the result and deleting the invalidated assets
// in the same transaction.
func (rp *ResetPlan) Apply(p *Pipeline) {
	for _, reset := range rp.Steps {
		if reset.ClearOutput && p.StepOutputs != nil {
			delete(p.StepOutputs, reset.Key)
		}
		if reset.ClearApproval {
			switch reset.Key {
			case StepKeyAnalysisReview:
				p.Step1Approved = false
			case StepKeyStyle:
				p.Step2Approved = false
			}
		}
		if p.StepRetry != nil {
			delete(p.StepRetry, reset.Key)
		}
	}
	if rp.FromStep <= 3 {
		// Space detection is invalidated; its count goes with it.
		p.SpaceCount = 0
	}
	p.Phase = rp.Phase
	p.CurrentStep = rp.Phase.Step()
	if p.Status.IsTerminal() {
		p.Status = StatusActive
	}
}
