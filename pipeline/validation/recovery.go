package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/vistaflow/pipeline"
	"github.com/c360studio/vistaflow/pipeline/phases"
)

// Correction is the automated fix for one recoverable finding. The core
// computes corrections; the caller applies them through the persistence
// layer and records the accompanying audit entry. Guessing a repair for a
// non-recoverable finding could mask data loss, so only recoverable findings
// get corrections — everything else needs a human-initiated step reset.
type Correction struct {
	// FindingID is the rule ID of the finding being corrected.
	FindingID string `json:"finding_id"`

	// Reason is the human-readable explanation recorded in the audit trail.
	Reason string `json:"reason"`

	// Apply mutates the snapshot to the corrected state.
	Apply func(p *pipeline.Pipeline) `json:"-"`
}

// AuditRecord documents one applied correction. Every correction must be
// persisted with its audit record so the correction itself is traceable.
type AuditRecord struct {
	ID          string    `json:"id"`
	PipelineID  string    `json:"pipeline_id"`
	FindingID   string    `json:"finding_id"`
	Reason      string    `json:"reason"`
	CorrectedAt time.Time `json:"corrected_at"`
}

// NewAuditRecord builds the audit entry for an applied correction.
func NewAuditRecord(pipelineID, findingID, reason string) AuditRecord {
	return AuditRecord{
		ID:          uuid.New().String(),
		PipelineID:  pipelineID,
		FindingID:   findingID,
		Reason:      reason,
		CorrectedAt: time.Now().UTC(),
	}
}

// PlanRecovery computes corrections for every recoverable finding in the
// report. Non-recoverable findings are skipped: they require an explicit
// step reset.
func PlanRecovery(report *Report, p *pipeline.Pipeline) []Correction {
	if report == nil || p == nil {
		return nil
	}

	var corrections []Correction
	for _, f := range report.Findings {
		if !f.Recoverable {
			continue
		}
		if c := correctionFor(f, p); c != nil {
			corrections = append(corrections, *c)
		}
	}
	return corrections
}

// correctionFor maps a finding to its corrective mutation. The corrections
// are deliberately conservative: they retract the inconsistent claim rather
// than fabricate the missing data.
func correctionFor(f Finding, p *pipeline.Pipeline) *Correction {
	switch f.RuleID {
	case RuleStep1ApprovalWithoutOutput:
		return &Correction{
			FindingID: f.RuleID,
			Reason:    "cleared step 1 approval: no output artifact exists to approve",
			Apply: func(p *pipeline.Pipeline) {
				p.Step1Approved = false
			},
		}

	case RuleStep2ApprovalWithoutOutput:
		return &Correction{
			FindingID: f.RuleID,
			Reason:    "cleared step 2 approval: no output artifact exists to approve",
			Apply: func(p *pipeline.Pipeline) {
				p.Step2Approved = false
			},
		}

	case RuleStepPhaseMismatch:
		if !p.Phase.IsValid() {
			// No trustworthy phase to derive the step from.
			return nil
		}
		want := p.Phase.Step()
		return &Correction{
			FindingID: f.RuleID,
			Reason:    fmt.Sprintf("realigned current_step to %d derived from phase %q", want, p.Phase),
			Apply: func(p *pipeline.Pipeline) {
				p.CurrentStep = p.Phase.Step()
			},
		}

	case RuleRetryStateDangling:
		return &Correction{
			FindingID: f.RuleID,
			Reason:    "cleared running retry states left behind by terminal pipeline status",
			Apply: func(p *pipeline.Pipeline) {
				for key, state := range p.StepRetry {
					if state.Status == pipeline.RetryRunning {
						p.StepRetry[key] = pipeline.RetryState{Status: pipeline.RetryNone}
					}
				}
			},
		}

	case RuleOrderingViolation:
		return &Correction{
			FindingID: f.RuleID,
			Reason:    "moved pipeline back to step 1 review: step 1 was never approved",
			Apply: func(p *pipeline.Pipeline) {
				p.Phase = pipeline.Phase(phases.Step1Review)
				p.CurrentStep = p.Phase.Step()
			},
		}

	default:
		return nil
	}
}
