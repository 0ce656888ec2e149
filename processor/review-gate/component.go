// Package reviewgate provides a request/reply service that gates risky
// pipeline actions behind tiered advisory rules.
package reviewgate

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

	"github.com/c360studio/vistaflow/pipeline/attempts"
	"github.com/c360studio/vistaflow/pipeline/rulegate"
	"github.com/c360studio/vistaflow/storage"
)

// Component implements the review-gate processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	tracker *attempts.Tracker
	store   *storage.Store

	// Request subjects
	requestSubject string
	reviewSubject  string

	// Lifecycle
	running      bool
	startTime    time.Time
	mu           sync.RWMutex
	cancel       context.CancelFunc
	subscription *natsclient.Subscription
	reviewSub    *natsclient.Subscription

	// Metrics
	requestsProcessed atomic.Int64
	actionsAllowed    atomic.Int64
	actionsBlocked    atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new review-gate processor.
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
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Resolve request subjects from port definitions
	requestSubject := "pipeline.gate.*"
	reviewSubject := "pipeline.review.*"
	if config.Ports != nil {
		for _, port := range config.Ports.Inputs {
			switch port.Name {
			case "gate_requests":
				requestSubject = port.Subject
			case "review_requests":
				reviewSubject = port.Subject
			}
		}
	}

	tracker := attempts.NewTracker(
		attempts.WithMaxAttempts(config.MaxAttempts),
		attempts.WithManualQA(!config.AutoQA),
	)

	return &Component{
		name:           "review-gate",
		config:         config,
		natsClient:     deps.NATSClient,
		logger:         deps.GetLogger(),
		tracker:        tracker,
		requestSubject: requestSubject,
		reviewSubject:  reviewSubject,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized review-gate",
		"request_subject", c.requestSubject)
	return nil
}

// Start begins handling gate requests.
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

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	// Storage backs the approval lock latch; attempt tracking works without
	// it, so a storage failure degrades rather than aborts.
	if js, err := c.natsClient.JetStream(); err != nil {
		c.logger.Warn("JetStream unavailable, approval locks will not persist", "error", err)
	} else if store, err := storage.NewStore(ctx, js); err != nil {
		c.logger.Warn("Storage unavailable, approval locks will not persist", "error", err)
	} else {
		c.mu.Lock()
		c.store = store
		c.mu.Unlock()
	}

	sub, err := c.natsClient.SubscribeForRequests(subCtx, c.requestSubject, c.handleRequest)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("subscribe to %s: %w", c.requestSubject, err)
	}

	reviewSub, err := c.natsClient.SubscribeForRequests(subCtx, c.reviewSubject, c.handleReviewRequest)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("subscribe to %s: %w", c.reviewSubject, err)
	}

	c.mu.Lock()
	c.subscription = sub
	c.reviewSub = reviewSub
	c.mu.Unlock()

	c.logger.Info("review-gate started",
		"gate_subject", c.requestSubject,
		"review_subject", c.reviewSubject,
		"max_attempts", c.config.MaxAttempts,
		"auto_qa", c.config.AutoQA)

	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// handleRequest processes a gate request and returns response data.
// Accepts both raw GateRequest JSON and BaseMessage-wrapped requests.
func (c *Component) handleRequest(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.requestsProcessed.Add(1)
	c.updateLastActivity()

	var req GateRequest
	if err := json.Unmarshal(data, &req); err == nil && req.Rules != nil {
		c.logger.Debug("Parsed as raw GateRequest", "action", req.Action, "rules", len(req.Rules))
	} else {
		var baseMsg message.BaseMessage
		if err := json.Unmarshal(data, &baseMsg); err != nil {
			return c.errorResponse("failed to parse request: " + err.Error())
		}

		payloadBytes, err := json.Marshal(baseMsg.Payload())
		if err != nil {
			return c.errorResponse("failed to marshal payload: " + err.Error())
		}
		if err := json.Unmarshal(payloadBytes, &req); err != nil {
			return c.errorResponse("failed to unmarshal request: " + err.Error())
		}
	}

	if err := req.Validate(); err != nil {
		return c.errorResponse(err.Error())
	}

	started := time.Now()
	outcome := rulegate.Evaluate(req.Rules, req.Inputs())
	evaluationDuration.Observe(time.Since(started).Seconds())

	for _, r := range req.Rules {
		stage := r.Stage
		if !stage.IsValid() {
			stage = rulegate.StageNudge
		}
		triggeredRules.WithLabelValues(string(stage)).Inc()
	}

	if outcome.Allowed {
		c.actionsAllowed.Add(1)
		gateEvaluations.WithLabelValues("allowed").Inc()
	} else {
		c.actionsBlocked.Add(1)
		gateEvaluations.WithLabelValues("blocked").Inc()
	}

	c.logger.Debug("Evaluated gate",
		"pipeline_id", req.PipelineID,
		"action", req.Action,
		"rules", len(req.Rules),
		"allowed", outcome.Allowed)

	return c.marshalResponse(FromOutcome(outcome))
}

// marshalResponse marshals a gate response.
// For request/reply services, we return the raw payload without BaseMessage
// wrapper so callers can access fields directly.
func (c *Component) marshalResponse(response *GateResponse) ([]byte, error) {
	return json.Marshal(response)
}

// errorResponse builds an error response. A request the gate cannot parse
// never proceeds.
func (c *Component) errorResponse(errMsg string) ([]byte, error) {
	return c.marshalResponse(&GateResponse{
		Allowed: false,
		Error:   errMsg,
	})
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
	c.logger.Info("review-gate stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"actions_allowed", c.actionsAllowed.Load(),
		"actions_blocked", c.actionsBlocked.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "review-gate",
		Type:        "processor",
		Description: "Request/reply service for tiered rule gating of risky pipeline actions",
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
	return reviewGateSchema
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
