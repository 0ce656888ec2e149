package attempts

import (
	"errors"
	"testing"

	"github.com/c360studio/vistaflow/pipeline"
)

func approveDecision() Decision {
	return Decision{
		Verdict:  VerdictApprove,
		Score:    92,
		Tags:     []string{"style_match"},
		Reviewer: "reviewer-1",
	}
}

func rejectDecision() Decision {
	return Decision{
		Verdict:  VerdictReject,
		Score:    35,
		Tags:     []string{"distorted_geometry"},
		Note:     "left wall bends outward",
		Reviewer: "reviewer-1",
	}
}

func TestBeginIncrementsAttempts(t *testing.T) {
	tracker := NewTracker()

	for want := 1; want <= 3; want++ {
		got, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1")
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if got != want {
			t.Errorf("attempt = %d, want %d", got, want)
		}
		if _, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", false); err != nil {
			t.Fatalf("RecordQA: %v", err)
		}
		if _, err := tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", rejectDecision()); err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
	}
}

func TestQARejectLandsInNeedsReview(t *testing.T) {
	tracker := NewTracker()

	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	state, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", false)
	if err != nil {
		t.Fatalf("RecordQA: %v", err)
	}
	if state != StateNeedsReview {
		t.Errorf("state = %s, want needs_review", state)
	}
}

func TestBudgetExhaustionBlocksForHuman(t *testing.T) {
	tracker := NewTracker(WithMaxAttempts(2))

	// Two failing cycles exhaust the budget.
	for i := 0; i < 2; i++ {
		if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		state, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", false)
		if err != nil {
			t.Fatalf("RecordQA: %v", err)
		}
		if i == 0 {
			if state != StateNeedsReview {
				t.Fatalf("first failure state = %s, want needs_review", state)
			}
			if _, err := tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", rejectDecision()); err != nil {
				t.Fatalf("RecordDecision: %v", err)
			}
		} else if state != StateBlockedForHuman {
			t.Fatalf("exhausted state = %s, want blocked_for_human", state)
		}
	}

	// Automation may not restart a blocked asset.
	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err == nil {
		t.Error("Begin should fail for a blocked asset")
	}
	if err := tracker.Schedule(pipeline.StepKeyRenders, "asset-1"); err == nil {
		t.Error("Schedule should fail for a blocked asset")
	}

	// An explicit human reject is the one path back to running.
	rec, err := tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", rejectDecision())
	if err != nil {
		t.Fatalf("RecordDecision from blocked: %v", err)
	}
	if rec.State != StateRunning {
		t.Errorf("state after human reject = %s, want running", rec.State)
	}
	if rec.AttemptCount != 3 {
		t.Errorf("attempt count = %d, want 3", rec.AttemptCount)
	}
}

func TestNeedsReviewRequiresHumanDecision(t *testing.T) {
	tracker := NewTracker()

	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	state, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", false)
	if err != nil {
		t.Fatalf("RecordQA: %v", err)
	}
	if state != StateNeedsReview {
		t.Fatalf("state = %s, want needs_review", state)
	}

	// Automation may not reschedule or restart past a pending human review.
	if err := tracker.Schedule(pipeline.StepKeyRenders, "asset-1"); err == nil {
		t.Error("Schedule should fail while a human decision is pending")
	}
	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err == nil {
		t.Error("Begin should fail while a human decision is pending")
	}

	rec := tracker.State(pipeline.StepKeyRenders, "asset-1")
	if rec.State != StateNeedsReview {
		t.Errorf("state = %s, want needs_review untouched", rec.State)
	}
	if rec.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", rec.AttemptCount)
	}

	// The human reject is the one way to start another cycle.
	rec, err = tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", rejectDecision())
	if err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if rec.State != StateRunning {
		t.Errorf("state after reject = %s, want running", rec.State)
	}
	if rec.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", rec.AttemptCount)
	}
}

func TestHumanApprovalLocksAtAnyAttempt(t *testing.T) {
	tracker := NewTracker(WithMaxAttempts(2))

	// Drive to blocked_for_human, then approve from there.
	for i := 0; i < 2; i++ {
		if _, err := tracker.Begin(pipeline.StepKeyPanoramas, "asset-2"); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if _, err := tracker.RecordQA(pipeline.StepKeyPanoramas, "asset-2", false); err != nil {
			t.Fatalf("RecordQA: %v", err)
		}
		if i == 0 {
			if _, err := tracker.RecordDecision(pipeline.StepKeyPanoramas, "asset-2", rejectDecision()); err != nil {
				t.Fatalf("RecordDecision: %v", err)
			}
		}
	}

	rec, err := tracker.RecordDecision(pipeline.StepKeyPanoramas, "asset-2", approveDecision())
	if err != nil {
		t.Fatalf("approve from blocked: %v", err)
	}
	if rec.State != StateApproved || !rec.LockedApproved {
		t.Errorf("record = %+v, want approved and locked", rec)
	}
}

func TestLockedAssetRejectsAllChanges(t *testing.T) {
	tracker := NewTracker()

	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", true); err != nil {
		t.Fatalf("RecordQA: %v", err)
	}
	if _, err := tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", approveDecision()); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); !errors.Is(err, ErrLocked) {
		t.Errorf("Begin on locked asset: %v, want ErrLocked", err)
	}
	if _, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", false); !errors.Is(err, ErrLocked) {
		t.Errorf("RecordQA on locked asset: %v, want ErrLocked", err)
	}
	if _, err := tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", rejectDecision()); !errors.Is(err, ErrLocked) {
		t.Errorf("RecordDecision on locked asset: %v, want ErrLocked", err)
	}

	// A step reset is the one way the record goes away.
	if cleared := tracker.Reset(pipeline.StepKeyRenders); cleared != 1 {
		t.Errorf("Reset cleared %d records, want 1", cleared)
	}
	if tracker.State(pipeline.StepKeyRenders, "asset-1") != nil {
		t.Error("record should be gone after reset")
	}
}

func TestAutoQAAppliesVerdictDirectly(t *testing.T) {
	tracker := NewTracker(WithManualQA(false), WithMaxAttempts(3))

	// A passing verdict approves and locks without a human decision.
	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	state, err := tracker.RecordQA(pipeline.StepKeyRenders, "asset-1", true)
	if err != nil {
		t.Fatalf("RecordQA: %v", err)
	}
	if state != StateApproved {
		t.Errorf("state = %s, want approved", state)
	}
	if rec := tracker.State(pipeline.StepKeyRenders, "asset-1"); !rec.LockedApproved {
		t.Error("auto-approved asset should be locked")
	}

	// Failing verdicts retry until the budget runs out, then block.
	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-2"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i := 0; i < 2; i++ {
		state, err = tracker.RecordQA(pipeline.StepKeyRenders, "asset-2", false)
		if err != nil {
			t.Fatalf("RecordQA: %v", err)
		}
		if state != StateRunning {
			t.Fatalf("state = %s, want running while budget remains", state)
		}
	}
	state, err = tracker.RecordQA(pipeline.StepKeyRenders, "asset-2", false)
	if err != nil {
		t.Fatalf("RecordQA: %v", err)
	}
	if state != StateBlockedForHuman {
		t.Errorf("state = %s, want blocked_for_human after budget", state)
	}
}

func TestDecisionRequiredBeforeReview(t *testing.T) {
	tracker := NewTracker()

	if _, err := tracker.Begin(pipeline.StepKeyRenders, "asset-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tracker.RecordDecision(pipeline.StepKeyRenders, "asset-1", approveDecision()); err == nil {
		t.Error("decision on a running asset should fail")
	}
}

func TestBlockedListing(t *testing.T) {
	tracker := NewTracker(WithMaxAttempts(1))

	if _, err := tracker.Begin(pipeline.StepKeyMerge, "asset-9"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tracker.RecordQA(pipeline.StepKeyMerge, "asset-9", false); err != nil {
		t.Fatalf("RecordQA: %v", err)
	}

	blocked := tracker.Blocked()
	if len(blocked) != 1 || blocked[0].AssetID != "asset-9" {
		t.Errorf("Blocked() = %+v, want asset-9", blocked)
	}
}
