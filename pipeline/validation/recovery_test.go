package validation

import (
	"testing"

	"github.com/c360studio/vistaflow/pipeline"
	"github.com/c360studio/vistaflow/pipeline/phases"
)

func TestPlanRecoveryClearsPhantomApproval(t *testing.T) {
	p := &pipeline.Pipeline{
		ID:            "pipe-1",
		Phase:         pipeline.Phase(phases.Step1Review),
		CurrentStep:   1,
		Status:        pipeline.StatusActive,
		Step1Approved: true,
	}

	report := ValidatePipeline(p)
	corrections := PlanRecovery(report, p)
	if len(corrections) != 1 {
		t.Fatalf("expected one correction, got %d", len(corrections))
	}

	c := corrections[0]
	if c.FindingID != RuleStep1ApprovalWithoutOutput {
		t.Errorf("finding ID = %s", c.FindingID)
	}
	if c.Reason == "" {
		t.Error("correction must carry an audit reason")
	}

	c.Apply(p)
	if p.Step1Approved {
		t.Error("approval should be cleared")
	}
	if followUp := ValidatePipeline(p); !followUp.Valid {
		t.Errorf("pipeline still invalid after recovery: %+v", followUp.Findings)
	}
}

func TestPlanRecoveryRealignsStep(t *testing.T) {
	p := &pipeline.Pipeline{
		ID:          "pipe-1",
		Phase:       pipeline.Phase(phases.SpaceAnalysisRunning),
		CurrentStep: 4,
		Status:      pipeline.StatusActive,
	}

	report := ValidatePipeline(p)
	corrections := PlanRecovery(report, p)

	var applied bool
	for _, c := range corrections {
		if c.FindingID == RuleStepPhaseMismatch {
			c.Apply(p)
			applied = true
		}
	}
	if !applied {
		t.Fatal("expected a step-phase mismatch correction")
	}
	if p.CurrentStep != 0 {
		t.Errorf("current step = %d, want 0 derived from phase", p.CurrentStep)
	}
}

func TestPlanRecoverySkipsUnknownPhase(t *testing.T) {
	// A mismatch caused by an unrecognized phase has no trustworthy step to
	// realign to; recovery must not guess.
	p := &pipeline.Pipeline{
		ID:          "pipe-1",
		Phase:       pipeline.Phase("quantum_flux"),
		CurrentStep: 4,
		Status:      pipeline.StatusActive,
	}

	report := ValidatePipeline(p)
	for _, c := range PlanRecovery(report, p) {
		if c.FindingID == RuleStepPhaseMismatch || c.FindingID == RulePhaseUnknown {
			t.Fatal("unknown phase must not produce a realignment correction")
		}
	}
}

func TestPlanRecoveryDanglingRetry(t *testing.T) {
	p := &pipeline.Pipeline{
		ID:          "pipe-1",
		Phase:       pipeline.Phase(phases.Completed),
		CurrentStep: 7,
		Status:      pipeline.StatusCompleted,
		StepRetry: map[pipeline.StepKey]pipeline.RetryState{
			pipeline.StepKeyRenders:   {Status: pipeline.RetryRunning},
			pipeline.StepKeyPanoramas: {Status: pipeline.RetryBlockedForHuman},
		},
	}

	report := ValidatePipeline(p)
	for _, c := range PlanRecovery(report, p) {
		if c.FindingID == RuleRetryStateDangling {
			c.Apply(p)
		}
	}

	if got := p.RetryFor(pipeline.StepKeyRenders).Status; got != pipeline.RetryNone {
		t.Errorf("renders retry = %s, want none", got)
	}
	// Non-running states are left alone.
	if got := p.RetryFor(pipeline.StepKeyPanoramas).Status; got != pipeline.RetryBlockedForHuman {
		t.Errorf("panoramas retry = %s, want blocked_for_human untouched", got)
	}
}

func TestPlanRecoveryOrderingViolation(t *testing.T) {
	p := &pipeline.Pipeline{
		ID:          "pipe-1",
		Phase:       pipeline.Phase(phases.DetectingSpaces),
		CurrentStep: 3,
		Status:      pipeline.StatusActive,
	}

	report := ValidatePipeline(p)
	for _, c := range PlanRecovery(report, p) {
		if c.FindingID == RuleOrderingViolation {
			c.Apply(p)
		}
	}

	if p.Phase != pipeline.Phase(phases.Step1Review) {
		t.Errorf("phase = %s, want step1_review", p.Phase)
	}
	if p.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", p.CurrentStep)
	}
}

func TestNewAuditRecord(t *testing.T) {
	rec := NewAuditRecord("pipe-1", RuleStep1ApprovalWithoutOutput, "cleared approval")
	if rec.ID == "" {
		t.Error("audit record needs an ID")
	}
	if rec.PipelineID != "pipe-1" || rec.FindingID != RuleStep1ApprovalWithoutOutput {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.CorrectedAt.IsZero() {
		t.Error("audit record needs a timestamp")
	}
}

func TestPlanRecoveryNilInputs(t *testing.T) {
	if got := PlanRecovery(nil, &pipeline.Pipeline{}); got != nil {
		t.Errorf("nil report should yield nil corrections, got %v", got)
	}
	if got := PlanRecovery(&Report{}, nil); got != nil {
		t.Errorf("nil pipeline should yield nil corrections, got %v", got)
	}
}
