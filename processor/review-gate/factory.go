package reviewgate

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the review-gate processor with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "review-gate",
		Factory:     NewComponent,
		Schema:      reviewGateSchema,
		Type:        "processor",
		Protocol:    "pipeline",
		Domain:      "gate",
		Description: "Request/reply service for tiered rule gating of risky pipeline actions",
		Version:     "1.0.0",
	})
}
