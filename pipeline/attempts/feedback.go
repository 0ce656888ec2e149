package attempts

import "fmt"

// Verdict is a human review decision.
type Verdict string

const (
	// VerdictApprove signs off on the asset.
	VerdictApprove Verdict = "approve"
	// VerdictReject sends the asset back for another attempt.
	VerdictReject Verdict = "reject"
)

// IsValid returns true for a recognised verdict.
func (v Verdict) IsValid() bool {
	return v == VerdictApprove || v == VerdictReject
}

// ApproveTags is the tag vocabulary for approvals. What makes an image good
// is not the mirror of what makes one wrong, so approvals and rejections
// carry distinct tag sets.
var ApproveTags = []string{
	"accurate_layout",
	"style_match",
	"good_lighting",
	"clean_geometry",
	"photorealistic",
	"furniture_complete",
}

// RejectTags is the tag vocabulary for rejections.
var RejectTags = []string{
	"distorted_geometry",
	"wrong_style",
	"bad_lighting",
	"rendering_artifact",
	"missing_furniture",
	"wrong_space",
	"scale_error",
}

// TagsFor returns the tag vocabulary for a verdict.
func TagsFor(v Verdict) []string {
	switch v {
	case VerdictApprove:
		return ApproveTags
	case VerdictReject:
		return RejectTags
	default:
		return nil
	}
}

// Decision is the structured feedback attached to every human review
// decision. The feedback is persisted for calibration of the automated QA
// model; it does not influence the state transition beyond the verdict.
type Decision struct {
	// Verdict is approve or reject.
	Verdict Verdict `json:"verdict"`

	// Score rates the asset 0-100. Required.
	Score int `json:"score"`

	// Tags categorize the decision. At least one tag from the verdict's
	// vocabulary is required.
	Tags []string `json:"tags"`

	// Note is optional free text.
	Note string `json:"note,omitempty"`

	// Reviewer identifies who decided. Empty for auto-applied verdicts.
	Reviewer string `json:"reviewer,omitempty"`
}

// Validate checks the decision against the feedback contract.
func (d Decision) Validate() error {
	if !d.Verdict.IsValid() {
		return fmt.Errorf("unknown verdict %q", d.Verdict)
	}
	if d.Score < 0 || d.Score > 100 {
		return fmt.Errorf("score %d out of range [0,100]", d.Score)
	}
	if len(d.Tags) == 0 {
		return fmt.Errorf("at least one tag is required")
	}
	vocabulary := TagsFor(d.Verdict)
	for _, tag := range d.Tags {
		if !containsTag(vocabulary, tag) {
			return fmt.Errorf("tag %q is not in the %s vocabulary", tag, d.Verdict)
		}
	}
	return nil
}

func containsTag(vocabulary []string, tag string) bool {
	for _, t := range vocabulary {
		if t == tag {
			return true
		}
	}
	return false
}
