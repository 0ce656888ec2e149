package progressapi

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// progressAPISchema defines the configuration schema.
var progressAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the progress-api processor.
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

// DefaultConfig returns the default configuration for progress-api.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "progress_requests",
					Type:        "nats",
					Subject:     "pipeline.progress.*",
					Required:    true,
					Description: "Progress request/reply subject (wildcard for pipeline ID)",
				},
			},
		},
		TimeoutSecs: 30,
	}
}
