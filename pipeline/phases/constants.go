// Package phases provides the phase vocabulary for the visualization pipeline.
//
// A phase is the authoritative "what is happening now" signal for a pipeline.
// Each phase belongs to exactly one of the eight workflow steps (0-7); the
// step number is derived from the phase rather than stored alongside it, so
// the two can never disagree at the type level. Snapshots written by older
// clients still carry a separate current_step field, which the validator
// checks against this table.
//
// Phase flow:
//
//	created -> space_analysis_running -> step1_review ->
//	style_running -> step2_review ->
//	detecting_spaces -> spaces_detected ->
//	renders_in_progress -> renders_review ->
//	panoramas_in_progress -> panoramas_review ->
//	merging_in_progress -> final_review -> completed
//
// failed may be entered from any running phase.
package phases

// Phase string constants.
const (
	// Created is the initial phase before any generation has started.
	Created = "created"

	// SpaceAnalysisRunning indicates floor-plan space analysis is in flight.
	SpaceAnalysisRunning = "space_analysis_running"

	// Step1Review indicates the space analysis output awaits human sign-off.
	Step1Review = "step1_review"

	// StyleRunning indicates style generation is in flight.
	StyleRunning = "style_running"

	// Step2Review indicates the style output awaits human sign-off.
	Step2Review = "step2_review"

	// DetectingSpaces indicates automated space detection is in flight.
	DetectingSpaces = "detecting_spaces"

	// SpacesDetected indicates space detection completed.
	SpacesDetected = "spaces_detected"

	// RendersInProgress indicates per-space render generation is in flight.
	RendersInProgress = "renders_in_progress"

	// RendersReview indicates renders await review.
	RendersReview = "renders_review"

	// PanoramasInProgress indicates panorama generation is in flight.
	PanoramasInProgress = "panoramas_in_progress"

	// PanoramasReview indicates panoramas await review.
	PanoramasReview = "panoramas_review"

	// MergingInProgress indicates final-360 merging is in flight.
	MergingInProgress = "merging_in_progress"

	// FinalReview indicates the merged 360s await review.
	FinalReview = "final_review"

	// Completed indicates the pipeline finished all eight steps.
	Completed = "completed"

	// Failed indicates the pipeline aborted with an unrecoverable error.
	Failed = "failed"
)

// ordered lists every phase in workflow order. Used to compare phase
// positions when deciding whether a milestone has been passed.
var ordered = []string{
	Created,
	SpaceAnalysisRunning,
	Step1Review,
	StyleRunning,
	Step2Review,
	DetectingSpaces,
	SpacesDetected,
	RendersInProgress,
	RendersReview,
	PanoramasInProgress,
	PanoramasReview,
	MergingInProgress,
	FinalReview,
	Completed,
}

// stepFor maps each phase to its workflow step number.
var stepFor = map[string]int{
	Created:              0,
	SpaceAnalysisRunning: 0,
	Step1Review:          1,
	StyleRunning:         2,
	Step2Review:          2,
	DetectingSpaces:      3,
	SpacesDetected:       3,
	RendersInProgress:    4,
	RendersReview:        4,
	PanoramasInProgress:  5,
	PanoramasReview:      5,
	MergingInProgress:    6,
	FinalReview:          6,
	Completed:            7,
	Failed:               7,
}

// inProgress marks the dispatch/running phases that drive the animated
// progress overlay.
var inProgress = map[string]bool{
	SpaceAnalysisRunning: true,
	StyleRunning:         true,
	DetectingSpaces:      true,
	RendersInProgress:    true,
	PanoramasInProgress:  true,
	MergingInProgress:    true,
}

// IsValid returns true if the phase is part of the pipeline vocabulary.
func IsValid(phase string) bool {
	_, ok := stepFor[phase]
	return ok
}

// StepFor returns the workflow step number for a phase. The second return
// value is false for phases outside the vocabulary.
func StepFor(phase string) (int, bool) {
	step, ok := stepFor[phase]
	return step, ok
}

// InProgress returns true for dispatch/running phases.
func InProgress(phase string) bool {
	return inProgress[phase]
}

// AtOrAfter returns true if phase appears at or after target in workflow
// order. Unknown phases and the failed phase always compare false.
func AtOrAfter(phase, target string) bool {
	pi := ordinal(phase)
	ti := ordinal(target)
	if pi < 0 || ti < 0 {
		return false
	}
	return pi >= ti
}

func ordinal(phase string) int {
	for i, p := range ordered {
		if p == phase {
			return i
		}
	}
	return -1
}
