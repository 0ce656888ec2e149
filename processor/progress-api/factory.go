package progressapi

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the progress-api processor with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "progress-api",
		Factory:     NewComponent,
		Schema:      progressAPISchema,
		Type:        "processor",
		Protocol:    "pipeline",
		Domain:      "progress",
		Description: "Request/reply service for monotonic pipeline progress snapshots",
		Version:     "1.0.0",
	})
}
