package pipeline

import (
	"testing"

	"github.com/c360studio/vistaflow/pipeline/phases"
)

func TestPhaseStepDerivation(t *testing.T) {
	tests := []struct {
		phase      string
		step       int
		inProgress bool
	}{
		{phases.Created, 0, false},
		{phases.SpaceAnalysisRunning, 0, true},
		{phases.Step1Review, 1, false},
		{phases.StyleRunning, 2, true},
		{phases.Step2Review, 2, false},
		{phases.DetectingSpaces, 3, true},
		{phases.SpacesDetected, 3, false},
		{phases.RendersInProgress, 4, true},
		{phases.RendersReview, 4, false},
		{phases.PanoramasInProgress, 5, true},
		{phases.PanoramasReview, 5, false},
		{phases.MergingInProgress, 6, true},
		{phases.FinalReview, 6, false},
		{phases.Completed, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			p := Phase(tt.phase)
			if !p.IsValid() {
				t.Fatalf("expected %q to be a valid phase", tt.phase)
			}
			if got := p.Step(); got != tt.step {
				t.Errorf("Step() = %d, want %d", got, tt.step)
			}
			if got := p.InProgress(); got != tt.inProgress {
				t.Errorf("InProgress() = %v, want %v", got, tt.inProgress)
			}
		})
	}
}

func TestPhaseUnknown(t *testing.T) {
	p := Phase("warp_drive_engaged")
	if p.IsValid() {
		t.Error("expected unknown phase to be invalid")
	}
	if p.Step() != 0 {
		t.Errorf("unknown phase Step() = %d, want 0", p.Step())
	}
}

func TestPhaseAtOrAfter(t *testing.T) {
	if !Phase(phases.RendersReview).AtOrAfter(Phase(phases.SpacesDetected)) {
		t.Error("renders_review should be at or after spaces_detected")
	}
	if Phase(phases.Step1Review).AtOrAfter(Phase(phases.SpacesDetected)) {
		t.Error("step1_review should not be at or after spaces_detected")
	}
	if Phase(phases.Failed).AtOrAfter(Phase(phases.Created)) {
		t.Error("failed should not compare against workflow order")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusActive, StatusPaused} {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestStepKeyRoundTrip(t *testing.T) {
	for step := 0; step < StepCount; step++ {
		key, err := KeyForStep(step)
		if err != nil {
			t.Fatalf("KeyForStep(%d): %v", step, err)
		}
		got, err := key.Step()
		if err != nil {
			t.Fatalf("Step() for %s: %v", key, err)
		}
		if got != step {
			t.Errorf("round trip for step %d gave %d", step, got)
		}
	}

	if _, err := KeyForStep(8); err == nil {
		t.Error("expected error for step 8")
	}
	if _, err := StepKey("stepX").Step(); err == nil {
		t.Error("expected error for malformed step key")
	}
}

func TestRetryForNormalizesMissing(t *testing.T) {
	p := &Pipeline{}
	if got := p.RetryFor(StepKeyRenders).Status; got != RetryNone {
		t.Errorf("nil map RetryFor = %s, want none", got)
	}

	p.StepRetry = map[StepKey]RetryState{
		StepKeyRenders: {Status: RetryStatus("exploded")},
	}
	if got := p.RetryFor(StepKeyRenders).Status; got != RetryNone {
		t.Errorf("malformed RetryFor = %s, want none", got)
	}

	p.StepRetry[StepKeyRenders] = RetryState{Status: RetryBlockedForHuman}
	if got := p.RetryFor(StepKeyRenders).Status; got != RetryBlockedForHuman {
		t.Errorf("RetryFor = %s, want blocked_for_human", got)
	}
}

func TestHasOutput(t *testing.T) {
	p := &Pipeline{}
	if p.HasOutput(StepKeyAnalysisReview) {
		t.Error("empty pipeline should have no outputs")
	}

	p.StepOutputs = map[StepKey]StepOutput{
		StepKeyAnalysisReview: {},
	}
	if p.HasOutput(StepKeyAnalysisReview) {
		t.Error("output without upload reference should not count")
	}

	p.StepOutputs[StepKeyAnalysisReview] = StepOutput{UploadID: "upload-1"}
	if !p.HasOutput(StepKeyAnalysisReview) {
		t.Error("expected output to be present")
	}
}
