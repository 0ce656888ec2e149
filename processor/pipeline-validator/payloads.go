package pipelinevalidator

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"

	"github.com/c360studio/vistaflow/pipeline"
	"github.com/c360studio/vistaflow/pipeline/validation"
)

// ValidateRequest is the request payload for pipeline state validation.
type ValidateRequest struct {
	// PipelineID identifies the pipeline to load from storage.
	// Either PipelineID or Snapshot must be provided.
	PipelineID string `json:"pipeline_id,omitempty"`

	// Snapshot is an inline pipeline snapshot to validate without touching
	// storage. Either PipelineID or Snapshot must be provided.
	Snapshot *pipeline.Pipeline `json:"snapshot,omitempty"`

	// Recover applies automated corrections for recoverable findings and
	// persists the corrected snapshot. Requires PipelineID.
	Recover bool `json:"recover,omitempty"`
}

// ValidateResponse is the response payload for pipeline state validation.
type ValidateResponse struct {
	// Valid indicates the snapshot has no illegal states.
	Valid bool `json:"is_valid"`

	// Findings lists the detected illegal states.
	Findings []validation.Finding `json:"illegal_states,omitempty"`

	// Corrections lists audit records for corrections applied in this call.
	Corrections []validation.AuditRecord `json:"corrections,omitempty"`

	// Error is set if validation could not be performed.
	Error string `json:"error,omitempty"`
}

// FromReport converts a validation report to a ValidateResponse.
func FromReport(report *validation.Report) *ValidateResponse {
	return &ValidateResponse{
		Valid:    report.Valid,
		Findings: report.Findings,
	}
}

// Schema returns the message type for ValidateRequest.
func (p *ValidateRequest) Schema() message.Type {
	return ValidateRequestType
}

// Validate validates the ValidateRequest.
func (p *ValidateRequest) Validate() error {
	if p.PipelineID == "" && p.Snapshot == nil {
		return fmt.Errorf("either pipeline_id or snapshot is required")
	}
	if p.Recover && p.PipelineID == "" {
		return fmt.Errorf("recover requires pipeline_id")
	}
	return nil
}

// MarshalJSON marshals the ValidateRequest to JSON.
func (p *ValidateRequest) MarshalJSON() ([]byte, error) {
	type Alias ValidateRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the ValidateRequest from JSON.
func (p *ValidateRequest) UnmarshalJSON(data []byte) error {
	type Alias ValidateRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// Schema returns the message type for ValidateResponse.
func (p *ValidateResponse) Schema() message.Type {
	return ValidateResponseType
}

// Validate validates the ValidateResponse.
func (p *ValidateResponse) Validate() error {
	return nil
}

// MarshalJSON marshals the ValidateResponse to JSON.
func (p *ValidateResponse) MarshalJSON() ([]byte, error) {
	type Alias ValidateResponse
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the ValidateResponse from JSON.
func (p *ValidateResponse) UnmarshalJSON(data []byte) error {
	type Alias ValidateResponse
	return json.Unmarshal(data, (*Alias)(p))
}

// ValidateRequestType is the message type for validation requests.
var ValidateRequestType = message.Type{
	Domain:   "pipeline",
	Category: "validate.request",
	Version:  "v1",
}

// ValidateResponseType is the message type for validation responses.
var ValidateResponseType = message.Type{
	Domain:   "pipeline",
	Category: "validate.response",
	Version:  "v1",
}

// RegisterPayloads registers the pipeline-validator payload types with
// the supplied registry.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	// Register the validation request payload type
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "pipeline",
		Category:    "validate.request",
		Version:     "v1",
		Description: "Pipeline state validation request",
		Factory:     func() any { return &ValidateRequest{} },
	}); err != nil {
		return fmt.Errorf("register ValidateRequest: %w", err)
	}

	// Register the validation response payload type
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "pipeline",
		Category:    "validate.response",
		Version:     "v1",
		Description: "Pipeline state validation response",
		Factory:     func() any { return &ValidateResponse{} },
	}); err != nil {
		return fmt.Errorf("register ValidateResponse: %w", err)
	}
	return nil
}
