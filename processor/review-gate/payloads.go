package reviewgate

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"

	"github.com/c360studio/vistaflow/pipeline/rulegate"
)

// GateRequest is the request payload for a rule gate evaluation.
type GateRequest struct {
	// PipelineID identifies the pipeline the action targets.
	PipelineID string `json:"pipeline_id,omitempty"`

	// Action names the proposed risky action (for logging and metrics).
	Action string `json:"action,omitempty"`

	// Rules are the triggered rules surfaced by upstream analysis.
	Rules []rulegate.TriggeredRule `json:"rules"`

	// Confirmations maps check-tier rule IDs to explicit acknowledgements.
	Confirmations map[string]bool `json:"confirmations,omitempty"`

	// Justifications maps guard-tier rule IDs to written override reasons.
	Justifications map[string]string `json:"justifications,omitempty"`
}

// Inputs returns the user-supplied override inputs.
func (p *GateRequest) Inputs() rulegate.Inputs {
	return rulegate.Inputs{
		Confirmations:  p.Confirmations,
		Justifications: p.Justifications,
	}
}

// GateResponse is the response payload for a rule gate evaluation.
type GateResponse struct {
	// Allowed is true when the action may proceed.
	Allowed bool `json:"allowed"`

	// Requirements lists the per-rule requirement status.
	Requirements []rulegate.RequirementStatus `json:"requirements,omitempty"`

	// Classified is the stage partition of the triggered rules.
	Classified rulegate.Classified `json:"classified"`

	// Error is set if the evaluation could not be performed.
	Error string `json:"error,omitempty"`
}

// FromOutcome converts a gate outcome to a GateResponse.
func FromOutcome(outcome rulegate.Outcome) *GateResponse {
	return &GateResponse{
		Allowed:      outcome.Allowed,
		Requirements: outcome.Requirements,
		Classified:   outcome.Classified,
	}
}

// Schema returns the message type for GateRequest.
func (p *GateRequest) Schema() message.Type {
	return GateRequestType
}

// Validate validates the GateRequest.
func (p *GateRequest) Validate() error {
	for _, r := range p.Rules {
		if r.ID == "" {
			return fmt.Errorf("every rule requires an id")
		}
	}
	return nil
}

// MarshalJSON marshals the GateRequest to JSON.
func (p *GateRequest) MarshalJSON() ([]byte, error) {
	type Alias GateRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the GateRequest from JSON.
func (p *GateRequest) UnmarshalJSON(data []byte) error {
	type Alias GateRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// Schema returns the message type for GateResponse.
func (p *GateResponse) Schema() message.Type {
	return GateResponseType
}

// Validate validates the GateResponse.
func (p *GateResponse) Validate() error {
	return nil
}

// MarshalJSON marshals the GateResponse to JSON.
func (p *GateResponse) MarshalJSON() ([]byte, error) {
	type Alias GateResponse
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the GateResponse from JSON.
func (p *GateResponse) UnmarshalJSON(data []byte) error {
	type Alias GateResponse
	return json.Unmarshal(data, (*Alias)(p))
}

// GateRequestType is the message type for gate requests.
var GateRequestType = message.Type{
	Domain:   "pipeline",
	Category: "gate.request",
	Version:  "v1",
}

// GateResponseType is the message type for gate responses.
var GateResponseType = message.Type{
	Domain:   "pipeline",
	Category: "gate.response",
	Version:  "v1",
}

// RegisterPayloads registers the review-gate payload types with the
// supplied registry.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	// Register the gate request payload type
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "pipeline",
		Category:    "gate.request",
		Version:     "v1",
		Description: "Rule gate evaluation request",
		Factory:     func() any { return &GateRequest{} },
	}); err != nil {
		return fmt.Errorf("register GateRequest: %w", err)
	}

	// Register the gate response payload type
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "pipeline",
		Category:    "gate.response",
		Version:     "v1",
		Description: "Rule gate evaluation response",
		Factory:     func() any { return &GateResponse{} },
	}); err != nil {
		return fmt.Errorf("register GateResponse: %w", err)
	}

	return registerReviewPayloads(reg)
}
