package pipeline

import "time"

// AssetKind identifies which step family produced an asset.
type AssetKind string

const (
	// AssetKindRender is a per-space render image (step 4).
	AssetKindRender AssetKind = "render"
	// AssetKindPanorama is a per-space panorama image (step 5).
	AssetKindPanorama AssetKind = "panorama"
	// AssetKindFinal360 is a merged 360 view for a space (step 6).
	AssetKindFinal360 AssetKind = "final360"
)

// IsValid returns true if the kind is part of the asset vocabulary.
func (k AssetKind) IsValid() bool {
	switch k {
	case AssetKindRender, AssetKindPanorama, AssetKindFinal360:
		return true
	default:
		return false
	}
}

// StepKey returns the workflow step that produces assets of this kind.
func (k AssetKind) StepKey() StepKey {
	switch k {
	case AssetKindRender:
		return StepKeyRenders
	case AssetKindPanorama:
		return StepKeyPanoramas
	case AssetKindFinal360:
		return StepKeyMerge
	default:
		return ""
	}
}

// KindsForStep returns the asset kinds produced at or after the given step.
// Used by cascading resets: stopping a step invalidates every artifact that
// depended on it.
func KindsForStep(step int) []AssetKind {
	var kinds []AssetKind
	for _, k := range []AssetKind{AssetKindRender, AssetKindPanorama, AssetKindFinal360} {
		ks, err := k.StepKey().Step()
		if err != nil {
			continue
		}
		if ks >= step {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// AssetStatus represents the review status of one asset.
type AssetStatus string

const (
	// AssetPending indicates the asset has been created but not dispatched.
	AssetPending AssetStatus = "pending"
	// AssetRunning indicates a generation job is queued for the asset.
	AssetRunning AssetStatus = "running"
	// AssetGenerating indicates the generation model is producing the image.
	AssetGenerating AssetStatus = "generating"
	// AssetEditing indicates a human is editing the generated image.
	AssetEditing AssetStatus = "editing"
	// AssetNeedsReview indicates the asset awaits a human approve/reject
	// decision.
	AssetNeedsReview AssetStatus = "needs_review"
	// AssetApproved indicates a human signed off on the asset. Terminal.
	AssetApproved AssetStatus = "approved"
	// AssetRejected indicates a human rejected the asset.
	AssetRejected AssetStatus = "rejected"
	// AssetFailed indicates generation failed with an error.
	AssetFailed AssetStatus = "failed"
	// AssetQAFailed indicates automated QA rejected the asset.
	AssetQAFailed AssetStatus = "qa_failed"
)

// IsValid returns true if the status is a valid asset status.
func (s AssetStatus) IsValid() bool {
	switch s {
	case AssetPending, AssetRunning, AssetGenerating, AssetEditing,
		AssetNeedsReview, AssetApproved, AssetRejected, AssetFailed, AssetQAFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status can transition to the target.
// Approved is terminal: once a human signs off, the asset is immutable and
// only an explicit step reset recreates it.
func (s AssetStatus) CanTransitionTo(target AssetStatus) bool {
	switch s {
	case AssetPending:
		return target == AssetRunning
	case AssetRunning:
		return target == AssetGenerating || target == AssetFailed
	case AssetGenerating:
		return target == AssetNeedsReview || target == AssetQAFailed || target == AssetFailed
	case AssetEditing:
		return target == AssetNeedsReview
	case AssetNeedsReview:
		return target == AssetApproved || target == AssetRejected || target == AssetEditing
	case AssetQAFailed:
		// QA rejection feeds back into a new generation attempt or a human
		// decision, depending on the remaining retry budget.
		return target == AssetRunning || target == AssetNeedsReview
	case AssetRejected, AssetFailed:
		return target == AssetRunning
	case AssetApproved:
		return false
	default:
		return false
	}
}

// Asset is one visual artifact produced for one space at one pipeline step.
type Asset struct {
	// ID is the opaque asset identifier.
	ID string `json:"id"`

	// SpaceID identifies the apartment space the asset belongs to.
	SpaceID string `json:"space_id"`

	// Kind identifies the producing step family.
	Kind AssetKind `json:"kind"`

	// OutputUploadID references the stored image. Empty until generation
	// succeeds.
	OutputUploadID string `json:"output_upload_id,omitempty"`

	// Model is the generation model identifier.
	Model string `json:"model,omitempty"`

	// AttemptCount is the number of generation-and-review cycles. It never
	// decreases.
	AttemptCount int `json:"attempt_count"`

	// Status is the human-facing review status.
	Status AssetStatus `json:"status"`

	// QAStatus is the automated verdict, independent of Status.
	QAStatus string `json:"qa_status,omitempty"`

	// LockedApproved latches once a human approves. A locked asset is
	// immutable; conflicting automated writes must be rejected by the
	// persistence layer.
	LockedApproved bool `json:"locked_approved"`

	// UpdatedAt is when the asset was last modified.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Reviewable is the capability surface shared by all reviewable asset kinds.
// Render, panorama, and final-360 records differ in provenance but are
// reviewed identically, so the attempt tracker operates on this interface
// rather than on concrete kinds.
type Reviewable interface {
	// ReviewStatus returns the current review status.
	ReviewStatus() AssetStatus
	// Attempts returns the attempt count.
	Attempts() int
	// Locked returns true once a human approval has latched the asset.
	Locked() bool
}

// ReviewStatus implements Reviewable.
func (a *Asset) ReviewStatus() AssetStatus { return a.Status }

// Attempts implements Reviewable.
func (a *Asset) Attempts() int { return a.AttemptCount }

// Locked implements Reviewable.
func (a *Asset) Locked() bool { return a.LockedApproved }
