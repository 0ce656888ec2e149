// Package progress derives a monotonic 0-100 progress value from a pipeline
// snapshot.
//
// Progress advances only on discrete approval milestones, never on
// in-flight activity alone, so the bar cannot regress and cannot promise
// completion before a human has signed off. Every ladder rule is applied as
// base = max(base, candidate): a later, lower-priority computation can never
// pull progress backward. In-flight phases add an animated overlay between
// the current base and the next milestone without ever reaching it.
package progress

import (
	"github.com/c360studio/vistaflow/pipeline"
)

// Milestone thresholds of the progress ladder.
const (
	MilestoneStart          = 0
	MilestoneStep1Approved  = 20
	MilestoneStep2Approved  = 40
	MilestoneSpacesDetected = 50
	MilestoneRendersDone    = 60
	MilestonePanoramasDone  = 80
	MilestoneComplete       = 100
)

// SpaceCounts carries the per-space approval tallies the calculator scales
// the render, panorama, and final-360 segments with. Renders and panoramas
// are generated two per space; final 360s one per space.
type SpaceCounts struct {
	Spaces            int `json:"spaces"`
	RendersApproved   int `json:"renders_approved"`
	PanoramasApproved int `json:"panoramas_approved"`
	Final360sApproved int `json:"final360s_approved"`
}

// RenderSlots returns the total render slot count (two per space).
func (c SpaceCounts) RenderSlots() int { return c.Spaces * 2 }

// PanoramaSlots returns the total panorama slot count (two per space).
func (c SpaceCounts) PanoramaSlots() int { return c.Spaces * 2 }

// Snapshot is the derived progress view for one pipeline snapshot.
type Snapshot struct {
	// Base is the milestone-backed progress value, 0-100.
	Base int `json:"base_progress"`

	// Animated is the overlay value shown while work is in flight. Equal to
	// Base when nothing is running.
	Animated int `json:"animated_progress"`

	// Milestone is the human-readable label of the highest reached stage.
	Milestone string `json:"milestone"`

	// Animating is true when the overlay differs from the base.
	Animating bool `json:"is_animating"`
}

// Calculator computes progress snapshots.
type Calculator struct{}

// NewCalculator creates a progress calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute maps a pipeline snapshot and space counts to a progress snapshot.
// Nil pipelines report zero progress.
func (c *Calculator) Compute(p *pipeline.Pipeline, counts SpaceCounts) Snapshot {
	if p == nil {
		return Snapshot{Milestone: "Waiting to start"}
	}

	base := MilestoneStart
	milestone := "Waiting to start"

	raise := func(candidate int, label string) {
		if candidate > base {
			base = candidate
			milestone = label
		}
	}

	if p.Step1Approved {
		raise(MilestoneStep1Approved, "Space analysis approved")
	}
	if p.Step2Approved {
		raise(MilestoneStep2Approved, "Style approved")
	}

	// The space count is only ever written when detection completes, so the
	// count alone witnesses the milestone. Gating on phase order instead
	// would drop the floor when a later phase moves to failed.
	detected := counts.Spaces >= 1
	if detected {
		raise(MilestoneSpacesDetected, "Spaces detected")
	}

	if detected && counts.RendersApproved > 0 {
		slots := counts.RenderSlots()
		approved := clamp(counts.RendersApproved, 0, slots)
		raise(MilestoneSpacesDetected+(MilestoneRendersDone-MilestoneSpacesDetected)*approved/slots,
			"Rendering spaces")
	}

	rendersDone := detected && counts.RendersApproved >= counts.RenderSlots()
	if rendersDone {
		raise(MilestoneRendersDone, "All renders approved")
	}

	// Panorama approvals only count once every render is approved; a stray
	// early panorama approval must not skip the render segment.
	if rendersDone && counts.PanoramasApproved > 0 {
		slots := counts.PanoramaSlots()
		approved := clamp(counts.PanoramasApproved, 0, slots)
		raise(MilestoneRendersDone+(MilestonePanoramasDone-MilestoneRendersDone)*approved/slots,
			"Generating panoramas")
	}

	panoramasDone := rendersDone && counts.PanoramasApproved >= counts.PanoramaSlots()
	if panoramasDone {
		raise(MilestonePanoramasDone, "All panoramas approved")
	}

	if panoramasDone && counts.Final360sApproved > 0 {
		approved := clamp(counts.Final360sApproved, 0, counts.Spaces)
		raise(MilestonePanoramasDone+(MilestoneComplete-MilestonePanoramasDone)*approved/counts.Spaces,
			"Merging final views")
	}

	allFinalsDone := panoramasDone && counts.Final360sApproved >= counts.Spaces
	if p.Status == pipeline.StatusCompleted || allFinalsDone {
		raise(MilestoneComplete, "Completed")
	}

	snap := Snapshot{
		Base:      base,
		Animated:  base,
		Milestone: milestone,
	}

	next := nextMilestone(base)
	if p.Phase.InProgress() && base < next {
		// Midpoint between base and the next milestone: signals activity
		// without ever implying the milestone is reached.
		animated := base + (next-base)/2
		if animated >= next {
			animated = next - 1
		}
		if animated > base {
			snap.Animated = animated
			snap.Animating = true
		}
	}

	return snap
}

// nextMilestone returns the smallest ladder threshold strictly above base.
func nextMilestone(base int) int {
	for _, m := range []int{
		MilestoneStep1Approved,
		MilestoneStep2Approved,
		MilestoneSpacesDetected,
		MilestoneRendersDone,
		MilestonePanoramasDone,
		MilestoneComplete,
	} {
		if m > base {
			return m
		}
	}
	return MilestoneComplete
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
