// Package pipelinevalidator provides a request/reply service for detecting
// illegal pipeline states and applying automated recovery.
package pipelinevalidator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/vistaflow/pipeline/validation"
	"github.com/c360studio/vistaflow/storage"
)

// Component implements the pipeline-validator processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	validator *validation.Validator
	store     *storage.Store

	// Request subject
	requestSubject string

	// Lifecycle
	running      bool
	startTime    time.Time
	mu           sync.RWMutex
	cancel       context.CancelFunc
	subscription *natsclient.Subscription

	// Metrics
	requestsProcessed atomic.Int64
	validationsPassed atomic.Int64
	validationsFailed atomic.Int64
	recoveriesApplied atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new pipeline-validator processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults if not specified
	defaults := DefaultConfig()
	if config.Ports == nil {
		config.Ports = defaults.Ports
	}
	if config.TimeoutSecs == 0 {
		config.TimeoutSecs = defaults.TimeoutSecs
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Resolve request subject from port definitions
	requestSubject := "pipeline.validate.*"
	if config.Ports != nil && len(config.Ports.Inputs) > 0 {
		requestSubject = config.Ports.Inputs[0].Subject
	}

	return &Component{
		name:           "pipeline-validator",
		config:         config,
		natsClient:     deps.NATSClient,
		logger:         deps.GetLogger(),
		validator:      validation.NewValidator(),
		requestSubject: requestSubject,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized pipeline-validator",
		"request_subject", c.requestSubject)
	return nil
}

// Start begins handling validation requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	// Set running state while holding lock to prevent race condition
	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	js, err := c.natsClient.JetStream()
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get jetstream: %w", err)
	}
	store, err := storage.NewStore(ctx, js)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create store: %w", err)
	}

	c.mu.Lock()
	c.store = store
	c.mu.Unlock()

	// Subscribe to validation requests using SubscribeForRequests
	sub, err := c.natsClient.SubscribeForRequests(subCtx, c.requestSubject, c.handleRequest)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("subscribe to %s: %w", c.requestSubject, err)
	}

	c.mu.Lock()
	c.subscription = sub
	c.mu.Unlock()

	c.logger.Info("pipeline-validator started",
		"subject", c.requestSubject)

	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// handleRequest processes a validation request and returns response data.
// Accepts both raw ValidateRequest JSON and BaseMessage-wrapped requests.
func (c *Component) handleRequest(ctx context.Context, data []byte) ([]byte, error) {
	// Check for cancellation before processing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.requestsProcessed.Add(1)
	c.updateLastActivity()

	// Try to parse as raw ValidateRequest first
	var req ValidateRequest
	if err := json.Unmarshal(data, &req); err == nil && (req.PipelineID != "" || req.Snapshot != nil) {
		c.logger.Debug("Parsed as raw ValidateRequest", "pipeline_id", req.PipelineID)
	} else {
		// Try to parse as BaseMessage-wrapped request
		var baseMsg message.BaseMessage
		if err := json.Unmarshal(data, &baseMsg); err != nil {
			return c.errorResponse("failed to parse request: " + err.Error())
		}

		// Extract request payload
		payloadBytes, err := json.Marshal(baseMsg.Payload())
		if err != nil {
			return c.errorResponse("failed to marshal payload: " + err.Error())
		}
		if err := json.Unmarshal(payloadBytes, &req); err != nil {
			return c.errorResponse("failed to unmarshal request: " + err.Error())
		}
	}

	// Validate request
	if err := req.Validate(); err != nil {
		return c.errorResponse(err.Error())
	}

	// Resolve the snapshot
	snapshot := req.Snapshot
	if snapshot == nil {
		loaded, err := c.store.GetPipeline(ctx, req.PipelineID)
		if err != nil {
			return c.errorResponse("load pipeline: " + err.Error())
		}
		snapshot = loaded
	}

	report := c.validator.Validate(snapshot)

	// Track metrics
	if report.Valid {
		c.validationsPassed.Add(1)
	} else {
		c.validationsFailed.Add(1)
	}

	response := FromReport(report)

	if req.Recover && !report.Valid {
		corrections := validation.PlanRecovery(report, snapshot)
		if len(corrections) > 0 {
			audit, err := c.store.ApplyRecovery(ctx, snapshot, corrections)
			if err != nil {
				return c.errorResponse("apply recovery: " + err.Error())
			}
			c.recoveriesApplied.Add(int64(len(audit)))
			response.Corrections = audit

			// Report the post-correction verdict
			after := c.validator.Validate(snapshot)
			response.Valid = after.Valid
			response.Findings = after.Findings
		}
	}

	c.logger.Debug("Validated pipeline",
		"pipeline_id", snapshot.ID,
		"valid", response.Valid,
		"findings", len(response.Findings),
		"corrections", len(response.Corrections))

	return c.marshalResponse(response)
}

// marshalResponse marshals a validation response.
// For request/reply services, we return the raw payload without BaseMessage
// wrapper so callers can access fields directly.
func (c *Component) marshalResponse(response *ValidateResponse) ([]byte, error) {
	return json.Marshal(response)
}

// errorResponse builds an error response.
func (c *Component) errorResponse(errMsg string) ([]byte, error) {
	response := &ValidateResponse{
		Valid: false,
		Error: errMsg,
	}
	return c.marshalResponse(response)
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.running = false
	c.logger.Info("pipeline-validator stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"validations_passed", c.validationsPassed.Load(),
		"validations_failed", c.validationsFailed.Load(),
		"recoveries_applied", c.recoveriesApplied.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "pipeline-validator",
		Type:        "processor",
		Description: "Request/reply service for detecting and recovering illegal pipeline states",
		Version:     "1.0.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return pipelineValidatorSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: 0,
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
