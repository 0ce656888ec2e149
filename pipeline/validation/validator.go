// Package validation detects illegal pipeline state combinations.
//
// Phase, step pointer, and approval flags are three separately-mutated
// fields that can desynchronize under partial network failures or concurrent
// writers. The validator makes that desynchronization observable and
// recoverable instead of silently trusted: every check in the rule table is
// evaluated independently (never short-circuited), so a single report lists
// every finding. Validation is a pure function of the snapshot and never
// fails; malformed input surfaces as findings, not errors.
package validation

import (
	"fmt"

	"github.com/c360studio/vistaflow/pipeline"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	// SeverityWarning marks an inconsistency that does not block the
	// pipeline but should be cleaned up.
	SeverityWarning Severity = "warning"
	// SeverityCritical marks a state the pipeline must not proceed in.
	SeverityCritical Severity = "critical"
)

// Finding is one detected illegal state.
type Finding struct {
	// RuleID identifies the rule that produced the finding. Recovery
	// requests reference findings by this ID.
	RuleID string `json:"rule_id"`

	// Message describes the illegal state.
	Message string `json:"message"`

	// Severity is warning or critical.
	Severity Severity `json:"severity"`

	// Recoverable is true when an automated correction exists. Findings
	// with Recoverable false require a human-initiated step reset.
	Recoverable bool `json:"recovery"`
}

// Rule is one row of the validation table: a predicate over a pipeline
// snapshot that yields a message when the state is illegal. Extending the
// validator means adding a row, not editing control flow.
type Rule struct {
	// ID is the stable rule identifier.
	ID string

	// Severity of findings produced by this rule.
	Severity Severity

	// Recoverable marks whether findings can be auto-corrected.
	Recoverable bool

	// Check returns a finding message when the state is illegal, or ""
	// when the rule is satisfied.
	Check func(p *pipeline.Pipeline) string
}

// Rule identifiers for the default table.
const (
	RuleStep1ApprovalWithoutOutput = "step1-approval-without-output"
	RuleStep2ApprovalWithoutOutput = "step2-approval-without-output"
	RulePhaseUnknown               = "phase-unknown"
	RuleStepPhaseMismatch          = "step-phase-mismatch"
	RuleRetryStateDangling         = "retry-state-dangling"
	RuleOrderingViolation          = "step-ordering-violation"
)

// DefaultRules returns the standard validation table.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          RuleStep1ApprovalWithoutOutput,
			Severity:    SeverityCritical,
			Recoverable: true,
			Check: func(p *pipeline.Pipeline) string {
				if p.Step1Approved && !p.HasOutput(pipeline.StepKeyAnalysisReview) {
					return "step 1 is approved but has no output artifact"
				}
				return ""
			},
		},
		{
			ID:          RuleStep2ApprovalWithoutOutput,
			Severity:    SeverityCritical,
			Recoverable: true,
			Check: func(p *pipeline.Pipeline) string {
				if p.Step2Approved && !p.HasOutput(pipeline.StepKeyStyle) {
					return "step 2 is approved but has no output artifact"
				}
				return ""
			},
		},
		{
			// An unrecognized phase leaves no trustworthy step to realign
			// to, so there is no automated correction for it.
			ID:          RulePhaseUnknown,
			Severity:    SeverityCritical,
			Recoverable: false,
			Check: func(p *pipeline.Pipeline) string {
				if !p.Phase.IsValid() {
					return fmt.Sprintf("unknown phase %q", p.Phase)
				}
				return ""
			},
		},
		{
			ID:          RuleStepPhaseMismatch,
			Severity:    SeverityCritical,
			Recoverable: true,
			Check: func(p *pipeline.Pipeline) string {
				if !p.Phase.IsValid() {
					return ""
				}
				if want := p.Phase.Step(); p.CurrentStep != want {
					return fmt.Sprintf("current_step %d does not match phase %q (step %d)",
						p.CurrentStep, p.Phase, want)
				}
				return ""
			},
		},
		{
			ID:          RuleRetryStateDangling,
			Severity:    SeverityWarning,
			Recoverable: true,
			Check: func(p *pipeline.Pipeline) string {
				if !p.Status.IsTerminal() {
					return ""
				}
				for step := 0; step < pipeline.StepCount; step++ {
					key, err := pipeline.KeyForStep(step)
					if err != nil {
						continue
					}
					if p.RetryFor(key).Status == pipeline.RetryRunning {
						return fmt.Sprintf("retry state for %s is running while pipeline status is %s",
							key, p.Status)
					}
				}
				return ""
			},
		},
		{
			ID:          RuleOrderingViolation,
			Severity:    SeverityCritical,
			Recoverable: true,
			Check: func(p *pipeline.Pipeline) string {
				if p.CurrentStep >= 2 && !p.Step1Approved {
					return fmt.Sprintf("current_step is %d but step 1 is not approved", p.CurrentStep)
				}
				return ""
			},
		},
	}
}

// Report is the full validation result for one snapshot.
type Report struct {
	// Valid is true when no findings were produced.
	Valid bool `json:"is_valid"`

	// Findings lists every illegal state detected, in rule-table order.
	Findings []Finding `json:"illegal_states,omitempty"`
}

// HasCritical returns true if any finding is critical.
func (r *Report) HasCritical() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Finding returns the finding for a rule ID, or nil.
func (r *Report) Finding(ruleID string) *Finding {
	for i := range r.Findings {
		if r.Findings[i].RuleID == ruleID {
			return &r.Findings[i]
		}
	}
	return nil
}

// Validator validates pipeline snapshots against a rule table.
type Validator struct {
	rules []Rule
}

// NewValidator creates a validator with the default rule table.
func NewValidator() *Validator {
	return &Validator{rules: DefaultRules()}
}

// NewValidatorWithRules creates a validator with a custom rule table.
func NewValidatorWithRules(rules []Rule) *Validator {
	return &Validator{rules: rules}
}

// Validate evaluates every rule against the snapshot and returns the
// complete report. A nil pipeline yields a single critical, non-recoverable
// finding.
func (v *Validator) Validate(p *pipeline.Pipeline) *Report {
	if p == nil {
		return &Report{
			Valid: false,
			Findings: []Finding{{
				RuleID:      "missing-pipeline",
				Message:     "pipeline snapshot is nil",
				Severity:    SeverityCritical,
				Recoverable: false,
			}},
		}
	}

	report := &Report{Valid: true}
	for _, rule := range v.rules {
		msg := rule.Check(p)
		if msg == "" {
			continue
		}
		report.Valid = false
		report.Findings = append(report.Findings, Finding{
			RuleID:      rule.ID,
			Message:     msg,
			Severity:    rule.Severity,
			Recoverable: rule.Recoverable,
		})
	}
	return report
}

// ValidatePipeline is a convenience function using the default rule table.
func ValidatePipeline(p *pipeline.Pipeline) *Report {
	return NewValidator().Validate(p)
}
