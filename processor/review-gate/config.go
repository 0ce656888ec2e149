package reviewgate

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// reviewGateSchema defines the configuration schema.
var reviewGateSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the review-gate processor.
type Config struct {
	Ports       *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	TimeoutSecs int                   `json:"timeout_secs" schema:"type:integer,description:Request timeout in seconds,category:basic,default:30"`
	MaxAttempts int                   `json:"max_attempts" schema:"type:integer,description:Automated retry budget per asset,category:basic,default:5"`
	AutoQA      bool                  `json:"auto_qa" schema:"type:boolean,description:Apply automated QA verdicts directly instead of waiting for a human decision,category:basic,default:false"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("timeout_secs must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be non-negative")
	}
	return nil
}

// DefaultConfig returns the default configuration for review-gate.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "gate_requests",
					Type:        "nats",
					Subject:     "pipeline.gate.*",
					Required:    true,
					Description: "Rule gate request/reply subject (wildcard for action)",
				},
				{
					Name:        "review_requests",
					Type:        "nats",
					Subject:     "pipeline.review.*",
					Required:    true,
					Description: "Attempt tracking request/reply subject (wildcard for operation)",
				},
			},
		},
		TimeoutSecs: 30,
		MaxAttempts: 5,
		AutoQA:      false,
	}
}
