package pipelinevalidator

import (
	"testing"

	"github.com/c360studio/vistaflow/pipeline"
)

func TestValidateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ValidateRequest
		wantErr bool
	}{
		{
			name: "pipeline ID only",
			req:  ValidateRequest{PipelineID: "pipe-1"},
		},
		{
			name: "inline snapshot only",
			req:  ValidateRequest{Snapshot: &pipeline.Pipeline{ID: "pipe-1"}},
		},
		{
			name:    "neither",
			req:     ValidateRequest{},
			wantErr: true,
		},
		{
			name:    "recover without pipeline ID",
			req:     ValidateRequest{Snapshot: &pipeline.Pipeline{ID: "pipe-1"}, Recover: true},
			wantErr: true,
		},
		{
			name: "recover with pipeline ID",
			req:  ValidateRequest{PipelineID: "pipe-1", Recover: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigSubject(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Ports == nil || len(cfg.Ports.Inputs) == 0 {
		t.Fatal("default config has no input ports")
	}
	if got := cfg.Ports.Inputs[0].Subject; got != "pipeline.validate.*" {
		t.Errorf("request subject = %s, want pipeline.validate.*", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
