package pipelinevalidator

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// pipelineValidatorSchema defines the configuration schema.
var pipelineValidatorSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the pipeline-validator processor.
type Config struct {
	Ports       *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	TimeoutSecs int                   `json:"timeout_secs" schema:"type:integer,description:Request timeout in seconds,category:basic,default:30"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("timeout_secs must be non-negative")
	}
	return nil
}

// DefaultConfig returns the default configuration for pipeline-validator.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "validate_requests",
					Type:        "nats",
					Subject:     "pipeline.validate.*",
					Required:    true,
					Description: "Validation request/reply subject (wildcard for pipeline ID)",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "validation_events",
					Type:        "nats",
					Subject:     "pipeline.validation.events",
					Required:    false,
					Description: "Validation event notifications",
				},
			},
		},
		TimeoutSecs: 30,
	}
}
