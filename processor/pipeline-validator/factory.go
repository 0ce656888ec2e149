package pipelinevalidator

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the pipeline-validator processor with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "pipeline-validator",
		Factory:     NewComponent,
		Schema:      pipelineValidatorSchema,
		Type:        "processor",
		Protocol:    "pipeline",
		Domain:      "validation",
		Description: "Request/reply service for detecting and recovering illegal pipeline states",
		Version:     "1.0.0",
	})
}
