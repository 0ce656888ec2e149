package progressapi

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"

	"github.com/c360studio/vistaflow/pipeline"
	"github.com/c360studio/vistaflow/pipeline/progress"
)

// ProgressRequest is the request payload for a progress snapshot.
type ProgressRequest struct {
	// PipelineID identifies the pipeline to load from storage.
	// Either PipelineID or Snapshot must be provided.
	PipelineID string `json:"pipeline_id,omitempty"`

	// Snapshot is an inline pipeline snapshot. When set, Counts must carry
	// the approval tallies since storage is not consulted.
	Snapshot *pipeline.Pipeline `json:"snapshot,omitempty"`

	// Counts overrides the approval tallies derived from stored assets.
	Counts *progress.SpaceCounts `json:"counts,omitempty"`
}

// ProgressResponse is the response payload for a progress snapshot.
type ProgressResponse struct {
	// PipelineID identifies the pipeline the snapshot belongs to.
	PipelineID string `json:"pipeline_id,omitempty"`

	// Progress is the derived progress view.
	Progress progress.Snapshot `json:"progress"`

	// Counts echoes the approval tallies the snapshot was computed from.
	Counts progress.SpaceCounts `json:"counts"`

	// Error is set if the snapshot could not be computed.
	Error string `json:"error,omitempty"`
}

// Schema returns the message type for ProgressRequest.
func (p *ProgressRequest) Schema() message.Type {
	return ProgressRequestType
}

// Validate validates the ProgressRequest.
func (p *ProgressRequest) Validate() error {
	if p.PipelineID == "" && p.Snapshot == nil {
		return fmt.Errorf("either pipeline_id or snapshot is required")
	}
	return nil
}

// MarshalJSON marshals the ProgressRequest to JSON.
func (p *ProgressRequest) MarshalJSON() ([]byte, error) {
	type Alias ProgressRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the ProgressRequest from JSON.
func (p *ProgressRequest) UnmarshalJSON(data []byte) error {
	type Alias ProgressRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// Schema returns the message type for ProgressResponse.
func (p *ProgressResponse) Schema() message.Type {
	return ProgressResponseType
}

// Validate validates the ProgressResponse.
func (p *ProgressResponse) Validate() error {
	return nil
}

// MarshalJSON marshals the ProgressResponse to JSON.
func (p *ProgressResponse) MarshalJSON() ([]byte, error) {
	type Alias ProgressResponse
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the ProgressResponse from JSON.
func (p *ProgressResponse) UnmarshalJSON(data []byte) error {
	type Alias ProgressResponse
	return json.Unmarshal(data, (*Alias)(p))
}

// ProgressRequestType is the message type for progress requests.
var ProgressRequestType = message.Type{
	Domain:   "pipeline",
	Category: "progress.request",
	Version:  "v1",
}

// ProgressResponseType is the message type for progress responses.
var ProgressResponseType = message.Type{
	Domain:   "pipeline",
	Category: "progress.response",
	Version:  "v1",
}

// RegisterPayloads registers the progress-api payload types with the
// supplied registry.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	// Register the progress request payload type
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "pipeline",
		Category:    "progress.request",
		Version:     "v1",
		Description: "Pipeline progress snapshot request",
		Factory:     func() any { return &ProgressRequest{} },
	}); err != nil {
		return fmt.Errorf("register ProgressRequest: %w", err)
	}

	// Register the progress response payload type
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "pipeline",
		Category:    "progress.response",
		Version:     "v1",
		Description: "Pipeline progress snapshot response",
		Factory:     func() any { return &ProgressResponse{} },
	}); err != nil {
		return fmt.Errorf("register ProgressResponse: %w", err)
	}
	return nil
}
