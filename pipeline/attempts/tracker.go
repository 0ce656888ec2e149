// Package attempts tracks generation-and-review cycles for reviewable
// assets.
//
// Each (step, asset) pair moves through a small state machine:
//
//	none -> pending -> running -> {approved | needs_review | blocked_for_human}
//
// Automated QA rejection with budget remaining lands in needs_review, where
// a human approves (locking the asset) or rejects (starting another
// attempt). Once the attempt budget is exhausted the asset blocks for a
// human: no automated transition leaves blocked_for_human. A human approval
// at any attempt count is authoritative over any automated verdict.
package attempts

import (
	"fmt"
	"sync"
	"time"

	"github.com/c360studio/vistaflow/pipeline"
)

// DefaultMaxAttempts is the automated retry budget per asset.
const DefaultMaxAttempts = 5

// State is the review state of one tracked asset.
type State string

const (
	// StateNone means no attempt has been recorded.
	StateNone State = "none"
	// StatePending means an attempt is scheduled but not dispatched.
	StatePending State = "pending"
	// StateRunning means a generation attempt is in flight.
	StateRunning State = "running"
	// StateNeedsReview means automated QA finished and a human decision is
	// required.
	StateNeedsReview State = "needs_review"
	// StateApproved means a human signed off. Terminal.
	StateApproved State = "approved"
	// StateBlockedForHuman means the retry budget is exhausted. Terminal
	// for automation: only an explicit human decision leaves it.
	StateBlockedForHuman State = "blocked_for_human"
)

// Record is the tracked state for one (step, asset) pair.
type Record struct {
	StepKey        pipeline.StepKey `json:"step_key"`
	AssetID        string           `json:"asset_id"`
	State          State            `json:"state"`
	AttemptCount   int              `json:"attempt_count"`
	LockedApproved bool             `json:"locked_approved"`
	QAPassed       bool             `json:"qa_passed"`
	LastDecision   *Decision        `json:"last_decision,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Copy returns a copy of the record safe to hand to callers.
func (r *Record) Copy() *Record {
	if r == nil {
		return nil
	}
	recordCopy := *r
	if r.LastDecision != nil {
		decisionCopy := *r.LastDecision
		decisionCopy.Tags = append([]string(nil), r.LastDecision.Tags...)
		recordCopy.LastDecision = &decisionCopy
	}
	return &recordCopy
}

// ErrLocked is returned for any state change against a locked asset. Only
// an explicit step reset recreates a locked asset.
var ErrLocked = fmt.Errorf("asset is locked by human approval")

// Tracker manages attempt state for all assets of a pipeline run. It is
// safe for concurrent use.
type Tracker struct {
	maxAttempts int
	manualQA    bool
	records     map[string]*Record
	mu          sync.RWMutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithManualQA controls whether a human decision is required after
// automated QA. When disabled, the automated verdict is applied at the
// point a human decision would otherwise be required.
func WithManualQA(enabled bool) Option {
	return func(t *Tracker) { t.manualQA = enabled }
}

// NewTracker creates a tracker with the default budget and manual QA on.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		maxAttempts: DefaultMaxAttempts,
		manualQA:    true,
		records:     make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxAttempts returns the configured retry budget.
func (t *Tracker) MaxAttempts() int {
	return t.maxAttempts
}

func recordKey(step pipeline.StepKey, assetID string) string {
	return fmt.Sprintf("%s:%s", step, assetID)
}

func (t *Tracker) record(step pipeline.StepKey, assetID string) *Record {
	key := recordKey(step, assetID)
	rec, ok := t.records[key]
	if !ok {
		now := time.Now()
		rec = &Record{
			StepKey:   step,
			AssetID:   assetID,
			State:     StateNone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		t.records[key] = rec
	}
	return rec
}

// Schedule marks an asset as pending dispatch. No-op for locked assets.
// An asset awaiting a human decision cannot be rescheduled by automation;
// the reject path through RecordDecision is the only way to start another
// cycle.
func (t *Tracker) Schedule(step pipeline.StepKey, assetID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(step, assetID)
	if rec.LockedApproved {
		return ErrLocked
	}
	if rec.State == StateBlockedForHuman || rec.State == StateNeedsReview {
		return fmt.Errorf("asset %s is %s, waiting on a human decision", assetID, rec.State)
	}
	rec.State = StatePending
	rec.UpdatedAt = time.Now()
	return nil
}

// Begin starts a generation-and-review cycle. The attempt count increments
// exactly once per cycle and never decreases: a rejection already re-enters
// running with a fresh count, so Begin on an already-running asset reports
// the current cycle instead of starting another.
func (t *Tracker) Begin(step pipeline.StepKey, assetID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(step, assetID)
	if rec.LockedApproved {
		return rec.AttemptCount, ErrLocked
	}
	if rec.State == StateBlockedForHuman || rec.State == StateNeedsReview {
		return rec.AttemptCount, fmt.Errorf("asset %s is %s, waiting on a human decision", assetID, rec.State)
	}
	if rec.State != StateRunning {
		rec.AttemptCount++
	}
	rec.State = StateRunning
	rec.UpdatedAt = time.Now()
	return rec.AttemptCount, nil
}

// RecordQA records the automated QA verdict for the current attempt.
//
// With manual QA enabled, every verdict lands in needs_review (or
// blocked_for_human when a failing verdict finds the budget exhausted) and
// waits for a human. With manual QA disabled the automated verdict is
// applied directly: a pass approves and locks, a fail retries until the
// budget runs out.
func (t *Tracker) RecordQA(step pipeline.StepKey, assetID string, passed bool) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(step, assetID)
	if rec.LockedApproved {
		return rec.State, ErrLocked
	}
	if rec.State != StateRunning {
		return rec.State, fmt.Errorf("asset %s is %s, expected %s", assetID, rec.State, StateRunning)
	}

	rec.QAPassed = passed
	rec.UpdatedAt = time.Now()

	if !t.manualQA {
		t.applyVerdict(rec, passed)
		return rec.State, nil
	}

	if !passed && rec.AttemptCount >= t.maxAttempts {
		rec.State = StateBlockedForHuman
		return rec.State, nil
	}
	rec.State = StateNeedsReview
	return rec.State, nil
}

// applyVerdict applies an automated verdict as if a human had decided.
func (t *Tracker) applyVerdict(rec *Record, approved bool) {
	if approved {
		rec.State = StateApproved
		rec.LockedApproved = true
		return
	}
	if rec.AttemptCount >= t.maxAttempts {
		rec.State = StateBlockedForHuman
		return
	}
	rec.State = StateRunning
	rec.AttemptCount++
}

// RecordDecision applies a human approve/reject decision.
//
// Approval at any attempt count locks the asset, overriding any pending
// automated verdict. Rejection with budget remaining starts another
// attempt; rejection from blocked_for_human also starts another attempt —
// that is the one path out of the blocked state besides approval.
func (t *Tracker) RecordDecision(step pipeline.StepKey, assetID string, d Decision) (*Record, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decision: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(step, assetID)
	if rec.LockedApproved {
		return rec.Copy(), ErrLocked
	}
	if rec.State != StateNeedsReview && rec.State != StateBlockedForHuman {
		return rec.Copy(), fmt.Errorf("asset %s is %s, no decision pending", assetID, rec.State)
	}

	decision := d
	rec.LastDecision = &decision
	rec.UpdatedAt = time.Now()

	switch d.Verdict {
	case VerdictApprove:
		rec.State = StateApproved
		rec.LockedApproved = true
	case VerdictReject:
		if rec.State == StateBlockedForHuman || rec.AttemptCount < t.maxAttempts {
			rec.State = StateRunning
			rec.AttemptCount++
		} else {
			rec.State = StateBlockedForHuman
		}
	}

	return rec.Copy(), nil
}

// State returns a copy of the record for an asset, or nil if untracked.
func (t *Tracker) State(step pipeline.StepKey, assetID string) *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if rec, ok := t.records[recordKey(step, assetID)]; ok {
		return rec.Copy()
	}
	return nil
}

// Blocked returns every record waiting on a human decision.
func (t *Tracker) Blocked() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var blocked []*Record
	for _, rec := range t.records {
		if rec.State == StateBlockedForHuman {
			blocked = append(blocked, rec.Copy())
		}
	}
	return blocked
}

// Reset clears every record for the given step. Used by cascading step
// resets; this is the only way a locked asset's record is discarded.
func (t *Tracker) Reset(step pipeline.StepKey) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := string(step) + ":"
	cleared := 0
	for key := range t.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(t.records, key)
			cleared++
		}
	}
	return cleared
}

// Count returns the number of tracked records.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
