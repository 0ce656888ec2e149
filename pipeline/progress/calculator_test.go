package progress

import (
	"testing"

	"github.com/c360studio/vistaflow/pipeline"
	"github.com/c360studio/vistaflow/pipeline/phases"
)

func snapshotAt(phase string, step1, step2 bool) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		ID:            "pipe-1",
		Phase:         pipeline.Phase(phase),
		CurrentStep:   pipeline.Phase(phase).Step(),
		Status:        pipeline.StatusActive,
		Step1Approved: step1,
		Step2Approved: step2,
	}
}

func TestComputeMilestoneLadder(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name   string
		p      *pipeline.Pipeline
		counts SpaceCounts
		want   int
	}{
		{
			name: "initial",
			p:    snapshotAt(phases.Created, false, false),
			want: 0,
		},
		{
			name: "step1 approved",
			p:    snapshotAt(phases.Step1Review, true, false),
			want: 20,
		},
		{
			name: "step2 approved",
			p:    snapshotAt(phases.Step2Review, true, true),
			want: 40,
		},
		{
			name:   "spaces detected",
			p:      snapshotAt(phases.SpacesDetected, true, true),
			counts: SpaceCounts{Spaces: 3},
			want:   50,
		},
		{
			name:   "detection complete but zero spaces",
			p:      snapshotAt(phases.SpacesDetected, true, true),
			counts: SpaceCounts{Spaces: 0},
			want:   40,
		},
		{
			name:   "half the renders approved",
			p:      snapshotAt(phases.RendersReview, true, true),
			counts: SpaceCounts{Spaces: 3, RendersApproved: 3},
			want:   55,
		},
		{
			name:   "all renders approved",
			p:      snapshotAt(phases.RendersReview, true, true),
			counts: SpaceCounts{Spaces: 3, RendersApproved: 6},
			want:   60,
		},
		{
			name:   "panoramas do not count before renders finish",
			p:      snapshotAt(phases.PanoramasReview, true, true),
			counts: SpaceCounts{Spaces: 3, RendersApproved: 3, PanoramasApproved: 2},
			want:   55,
		},
		{
			name:   "half the panoramas approved",
			p:      snapshotAt(phases.PanoramasReview, true, true),
			counts: SpaceCounts{Spaces: 3, RendersApproved: 6, PanoramasApproved: 3},
			want:   70,
		},
		{
			name:   "all panoramas approved",
			p:      snapshotAt(phases.PanoramasReview, true, true),
			counts: SpaceCounts{Spaces: 3, RendersApproved: 6, PanoramasApproved: 6},
			want:   80,
		},
		{
			name:   "one of two final views approved",
			p:      snapshotAt(phases.FinalReview, true, true),
			counts: SpaceCounts{Spaces: 2, RendersApproved: 4, PanoramasApproved: 4, Final360sApproved: 1},
			want:   90,
		},
		{
			name:   "all final views approved",
			p:      snapshotAt(phases.FinalReview, true, true),
			counts: SpaceCounts{Spaces: 2, RendersApproved: 4, PanoramasApproved: 4, Final360sApproved: 2},
			want:   100,
		},
		{
			name: "completed status forces 100",
			p: &pipeline.Pipeline{
				Phase:         pipeline.Phase(phases.Completed),
				CurrentStep:   7,
				Status:        pipeline.StatusCompleted,
				Step1Approved: true,
				Step2Approved: true,
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := calc.Compute(tt.p, tt.counts)
			if snap.Base != tt.want {
				t.Errorf("Base = %d, want %d (milestone %q)", snap.Base, tt.want, snap.Milestone)
			}
			if snap.Base < 0 || snap.Base > 100 {
				t.Errorf("Base %d out of range", snap.Base)
			}
		})
	}
}

func TestComputeFloorSurvivesFailure(t *testing.T) {
	calc := NewCalculator()

	// A pipeline that fails mid-render keeps every milestone it reached;
	// the bar must not fall back below the detection floor.
	before := calc.Compute(
		snapshotAt(phases.RendersInProgress, true, true),
		SpaceCounts{Spaces: 2, RendersApproved: 2},
	)

	failed := &pipeline.Pipeline{
		ID:            "pipe-1",
		Phase:         pipeline.Phase(phases.Failed),
		CurrentStep:   pipeline.Phase(phases.Failed).Step(),
		Status:        pipeline.StatusFailed,
		Step1Approved: true,
		Step2Approved: true,
	}
	after := calc.Compute(failed, SpaceCounts{Spaces: 2, RendersApproved: 2})

	if after.Base < before.Base {
		t.Errorf("failure regressed progress: %d -> %d", before.Base, after.Base)
	}
	if after.Base != 55 {
		t.Errorf("Base = %d, want 55 (detection floor plus approved renders)", after.Base)
	}
	if after.Animating {
		t.Error("failed pipeline should not animate")
	}
}

func TestComputeMonotonicUnderApprovalSequence(t *testing.T) {
	calc := NewCalculator()

	// Approval events applied in step order must never decrease progress.
	sequence := []struct {
		p      *pipeline.Pipeline
		counts SpaceCounts
	}{
		{snapshotAt(phases.Created, false, false), SpaceCounts{}},
		{snapshotAt(phases.Step1Review, true, false), SpaceCounts{}},
		{snapshotAt(phases.Step2Review, true, true), SpaceCounts{}},
		{snapshotAt(phases.SpacesDetected, true, true), SpaceCounts{Spaces: 2}},
		{snapshotAt(phases.RendersReview, true, true), SpaceCounts{Spaces: 2, RendersApproved: 1}},
		{snapshotAt(phases.RendersReview, true, true), SpaceCounts{Spaces: 2, RendersApproved: 4}},
		{snapshotAt(phases.PanoramasReview, true, true), SpaceCounts{Spaces: 2, RendersApproved: 4, PanoramasApproved: 2}},
		{snapshotAt(phases.PanoramasReview, true, true), SpaceCounts{Spaces: 2, RendersApproved: 4, PanoramasApproved: 4}},
		{snapshotAt(phases.FinalReview, true, true), SpaceCounts{Spaces: 2, RendersApproved: 4, PanoramasApproved: 4, Final360sApproved: 2}},
	}

	last := -1
	for i, step := range sequence {
		snap := calc.Compute(step.p, step.counts)
		if snap.Base < last {
			t.Fatalf("step %d regressed: %d -> %d", i, last, snap.Base)
		}
		last = snap.Base
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestComputeAnimatedOverlay(t *testing.T) {
	calc := NewCalculator()

	p := snapshotAt(phases.RendersInProgress, true, true)
	counts := SpaceCounts{Spaces: 3}
	snap := calc.Compute(p, counts)

	if !snap.Animating {
		t.Fatal("in-progress phase should animate")
	}
	if snap.Animated < snap.Base {
		t.Errorf("animated %d below base %d", snap.Animated, snap.Base)
	}
	if snap.Animated >= MilestoneRendersDone {
		t.Errorf("animated %d reached the next milestone %d", snap.Animated, MilestoneRendersDone)
	}
	// Midpoint between 50 and 60.
	if snap.Animated != 55 {
		t.Errorf("animated = %d, want 55", snap.Animated)
	}
}

func TestComputeNoAnimationWhenIdle(t *testing.T) {
	calc := NewCalculator()

	snap := calc.Compute(snapshotAt(phases.Step1Review, true, false), SpaceCounts{})
	if snap.Animating {
		t.Error("review phase should not animate")
	}
	if snap.Animated != snap.Base {
		t.Errorf("animated %d should equal base %d", snap.Animated, snap.Base)
	}
}

func TestComputeNilPipeline(t *testing.T) {
	snap := NewCalculator().Compute(nil, SpaceCounts{})
	if snap.Base != 0 || snap.Animating {
		t.Errorf("nil pipeline snapshot = %+v", snap)
	}
}
