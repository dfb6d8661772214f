// Package gateway fronts the remote agent runtime. It turns every
// invocation into a text answer, substituting a deterministic
// acknowledgment when the runtime cannot produce one, and serves the
// result over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/agentcore"
	"github.com/market-agent-gateway/internal/events"
	"github.com/market-agent-gateway/internal/memory"
)

const (
	// EmptyResponseText replaces a completion that succeeded with no text.
	EmptyResponseText = "Response received"

	fallbackPrefix = "Thank you for your message. I'm processing your request about: "
	publishTimeout = 5 * time.Second
)

// FallbackText is the acknowledgment returned when the runtime fails.
func FallbackText(prompt string) string {
	return fallbackPrefix + prompt
}

// InvocationRequest is one user prompt addressed to the agent.
type InvocationRequest struct {
	Prompt    string `json:"prompt"`
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
}

// ErrMissingPrompt is returned by Validate when the prompt is absent.
var ErrMissingPrompt = errors.New("missing prompt in payload")

// Validate checks field presence only. The prompt is required; actor and
// session may be empty and are forwarded as given.
func (r InvocationRequest) Validate() error {
	if r.Prompt == "" {
		return ErrMissingPrompt
	}
	return nil
}

// InvocationResult is the settled answer to an InvocationRequest.
type InvocationResult struct {
	Text      string
	ActorID   string
	SessionID string
	// Fallback is set when Text is the deterministic acknowledgment.
	Fallback bool
}

// TranscriptEntry is one message of a session transcript.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Gateway invokes the agent runtime on behalf of HTTP callers.
type Gateway struct {
	config     Config
	runtime    agentcore.Runtime
	normalizer *memory.Normalizer
	publisher  events.Publisher
	now        func() time.Time
	logger     *zap.Logger
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithPublisher publishes a TurnEvent after every invocation.
func WithPublisher(p events.Publisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates a Gateway over the given runtime.
func New(cfg Config, runtime agentcore.Runtime, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		config:    cfg.withDefaults(),
		runtime:   runtime,
		publisher: events.NopPublisher{},
		now:       time.Now,
		logger:    logger.Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.normalizer = memory.NewNormalizer(g.now)
	return g
}

// Config returns the gateway configuration.
func (g *Gateway) Config() Config {
	return g.config
}

// Invoke sends the prompt to the runtime and returns its answer. It never
// fails: any runtime error, malformed output or timeout yields
// FallbackText(prompt).
func (g *Gateway) Invoke(ctx context.Context, req InvocationRequest) InvocationResult {
	requestID := uuid.New().String()
	start := g.now()

	g.logger.Info("Invoking agent",
		zap.String("request_id", requestID),
		zap.String("actor_id", req.ActorID),
		zap.String("session_id", req.SessionID),
		zap.String("prompt", req.Prompt))

	result := InvocationResult{ActorID: req.ActorID, SessionID: req.SessionID}

	text, err := g.complete(ctx, req)
	switch {
	case err != nil:
		g.logger.Warn("Agent invocation failed, using fallback",
			zap.String("request_id", requestID),
			zap.Error(err))
		result.Text = FallbackText(req.Prompt)
		result.Fallback = true
	case text == "":
		result.Text = EmptyResponseText
	default:
		result.Text = text
	}

	g.logger.Info("Agent response",
		zap.String("request_id", requestID),
		zap.Bool("fallback", result.Fallback),
		zap.Int("length", len(result.Text)),
		zap.Duration("duration", g.now().Sub(start)))

	g.publish(requestID, req, result)
	return result
}

// complete runs the remote call and stream consumption under one deadline.
func (g *Gateway) complete(ctx context.Context, req InvocationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.InvokeTimeout)
	defer cancel()

	out, err := g.runtime.InvokeAgent(ctx, &agentcore.InvokeAgentInput{
		RuntimeID: g.config.RuntimeID,
		SessionID: req.SessionID,
		ActorID:   req.ActorID,
		InputText: req.Prompt,
	})
	if err != nil {
		return "", fmt.Errorf("invoke runtime: %w", err)
	}
	if out == nil {
		return "", agentcore.ErrNoOutput
	}

	if out.Completion != nil {
		return Assemble(ctx, out.Completion)
	}
	if out.Text != nil {
		return *out.Text, nil
	}
	return "", agentcore.ErrNoOutput
}

func (g *Gateway) publish(id string, req InvocationRequest, result InvocationResult) {
	if _, nop := g.publisher.(events.NopPublisher); nop {
		return
	}

	event := events.TurnEvent{
		ID:        id,
		ActorID:   req.ActorID,
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Response:  result.Text,
		Fallback:  result.Fallback,
		Timestamp: g.now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := g.publisher.Publish(ctx, event); err != nil {
			g.logger.Warn("Failed to publish turn event",
				zap.String("request_id", id),
				zap.Error(err))
		}
	}()
}

// GetMemory returns the actor's normalized memory records, at most
// MaxMemoryResults of them. Failures yield an empty snapshot.
func (g *Gateway) GetMemory(ctx context.Context, actorID string) memory.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, g.config.InvokeTimeout)
	defer cancel()

	out, err := g.runtime.RetrieveMemory(ctx, &agentcore.RetrieveMemoryInput{
		MemoryID:   g.config.MemoryID,
		ActorID:    actorID,
		MaxResults: g.config.MaxMemoryResults,
	})
	if err != nil {
		g.logger.Warn("Memory retrieval failed",
			zap.String("actor_id", actorID),
			zap.Error(err))
		return memory.EmptySnapshot(actorID, g.now())
	}

	var raw []memory.RawRecord
	if out != nil {
		raw = out.Memories
	}
	if len(raw) > g.config.MaxMemoryResults {
		raw = raw[:g.config.MaxMemoryResults]
	}
	return memory.NewSnapshot(actorID, g.normalizer.Normalize(raw), g.now())
}

// GetSessionHistory always returns an empty transcript: the runtime
// offers no session history query.
func (g *Gateway) GetSessionHistory(_ context.Context, sessionID string) []TranscriptEntry {
	g.logger.Debug("Session history requested", zap.String("session_id", sessionID))
	return []TranscriptEntry{}
}
