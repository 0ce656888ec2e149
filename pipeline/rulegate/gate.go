// Package rulegate evaluates advisory rules against a proposed risky action.
//
// Upstream analysis surfaces rules when a proposed action risks repeating a
// past rejection. The four strength stages encode escalating confidence that
// the rejection will repeat: nudges are low-confidence reminders, checks are
// medium-confidence confirmations, guards are high-confidence soft-blocks
// requiring a written justification, and laws are non-negotiable and never
// overridable from this layer. All four tiers are shown to the user
// together; the gate only decides whether the action may proceed and what
// input is still missing.
package rulegate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Stage is the strength tier of a triggered rule.
type Stage string

const (
	// StageNudge is informational and never blocks.
	StageNudge Stage = "nudge"
	// StageCheck requires an explicit per-rule confirmation.
	StageCheck Stage = "check"
	// StageGuard requires a written per-rule override justification.
	StageGuard Stage = "guard"
	// StageLaw blocks unconditionally; no override path exists.
	StageLaw Stage = "law"
)

// IsValid returns true for a recognised stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageNudge, StageCheck, StageGuard, StageLaw:
		return true
	default:
		return false
	}
}

// Rank returns the ascending severity rank of the stage. Unknown stages
// rank below nudge.
func (s Stage) Rank() int {
	switch s {
	case StageNudge:
		return 1
	case StageCheck:
		return 2
	case StageGuard:
		return 3
	case StageLaw:
		return 4
	default:
		return 0
	}
}

// MinJustificationLen is the minimum length, in characters, of a guard-tier
// override justification.
const MinJustificationLen = 10

// TriggeredRule is one advisory item surfaced for a proposed action.
// Instances are ephemeral: computed fresh per action and discarded after
// the gating decision.
type TriggeredRule struct {
	// ID identifies the rule within this evaluation.
	ID string `json:"id"`

	// Text is the advisory shown to the user.
	Text string `json:"rule_text"`

	// Category groups related rules.
	Category string `json:"category,omitempty"`

	// Stage is the strength tier.
	Stage Stage `json:"strength_stage"`

	// Confidence is the upstream confidence score in [0,1].
	Confidence float64 `json:"confidence_score"`

	// Health is a decaying reliability score computed upstream. Consumed
	// for display only.
	Health float64 `json:"health,omitempty"`
}

// Classified partitions triggered rules by stage, highest tier first.
type Classified struct {
	Laws   []TriggeredRule `json:"law"`
	Guards []TriggeredRule `json:"guard"`
	Checks []TriggeredRule `json:"check"`
	Nudges []TriggeredRule `json:"nudge"`
}

// Classify partitions rules by strength stage. Rules with an unknown stage
// are treated as nudges: an unrecognised tier must not invent a block.
func Classify(rules []TriggeredRule) Classified {
	var c Classified
	for _, r := range rules {
		switch r.Stage {
		case StageLaw:
			c.Laws = append(c.Laws, r)
		case StageGuard:
			c.Guards = append(c.Guards, r)
		case StageCheck:
			c.Checks = append(c.Checks, r)
		default:
			c.Nudges = append(c.Nudges, r)
		}
	}
	return c
}

// Inputs is what the user has supplied toward overriding the triggered
// rules.
type Inputs struct {
	// Confirmations maps check-tier rule IDs to explicit acknowledgements.
	Confirmations map[string]bool `json:"confirmations,omitempty"`

	// Justifications maps guard-tier rule IDs to written override reasons.
	Justifications map[string]string `json:"justifications,omitempty"`
}

// RequirementStatus describes what one rule still needs before the action
// may proceed.
type RequirementStatus struct {
	RuleID    string `json:"rule_id"`
	Stage     Stage  `json:"stage"`
	Satisfied bool   `json:"satisfied"`
	Reason    string `json:"reason,omitempty"`
}

// Outcome is the full gate evaluation for one proposed action.
type Outcome struct {
	// Allowed is true when the action may proceed.
	Allowed bool `json:"allowed"`

	// Requirements lists the per-rule requirement status for every
	// blocking-capable rule (laws, guards, checks).
	Requirements []RequirementStatus `json:"requirements,omitempty"`

	// Classified is the tier partition shown alongside the decision.
	Classified Classified `json:"classified"`
}

// Evaluate computes the gate outcome for a set of triggered rules and the
// user's inputs so far.
func Evaluate(rules []TriggeredRule, inputs Inputs) Outcome {
	classified := Classify(rules)
	outcome := Outcome{Allowed: true, Classified: classified}

	for _, r := range classified.Laws {
		outcome.Allowed = false
		outcome.Requirements = append(outcome.Requirements, RequirementStatus{
			RuleID:    r.ID,
			Stage:     StageLaw,
			Satisfied: false,
			Reason:    "law-tier rules cannot be overridden; fix the underlying issue and re-evaluate",
		})
	}

	for _, r := range classified.Guards {
		status := RequirementStatus{RuleID: r.ID, Stage: StageGuard}
		justification := strings.TrimSpace(inputs.Justifications[r.ID])
		if utf8.RuneCountInString(justification) >= MinJustificationLen {
			status.Satisfied = true
		} else {
			status.Reason = fmt.Sprintf("override justification of at least %d characters is required", MinJustificationLen)
			outcome.Allowed = false
		}
		outcome.Requirements = append(outcome.Requirements, status)
	}

	for _, r := range classified.Checks {
		status := RequirementStatus{RuleID: r.ID, Stage: StageCheck}
		if inputs.Confirmations[r.ID] {
			status.Satisfied = true
		} else {
			status.Reason = "explicit confirmation is required"
			outcome.Allowed = false
		}
		outcome.Requirements = append(outcome.Requirements, status)
	}

	return outcome
}

// CanProceed reports whether the proposed action may proceed: no law rules
// present, every guard justified, every check confirmed. Nudges never
// block.
func CanProceed(rules []TriggeredRule, inputs Inputs) bool {
	return Evaluate(rules, inputs).Allowed
}
