package agentcore

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "claude-3-7-sonnet-latest"
	// DefaultMaxTokens caps the length of one completion.
	DefaultMaxTokens = 2048
	// DefaultTemperature matches the market analyst deployment.
	DefaultTemperature = 0.7
)

// MarketAnalystPrompt is the system prompt of the hosted market agent.
const MarketAnalystPrompt = `You are an expert market intelligence analyst specializing in financial markets and investment analysis.

When a broker introduces themselves:
1. Welcome them professionally and acknowledge their expertise
2. Remember their name, firm, and investment focus
3. Ask relevant follow-up questions about their investment approach

Always provide:
- Professional, welcoming responses
- Actionable market insights
- Data-driven analysis
- Clear explanations of your reasoning

Remember information shared in the conversation and reference it naturally. Be helpful and professional at all times.`

// ModelConfig configures a ModelInvoker.
type ModelConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int64
	// Temperature defaults to DefaultTemperature when nil.
	Temperature  *float64
	SystemPrompt string
	// Options are appended after the ones derived from the fields above.
	Options      []option.RequestOption
}

// ModelInvoker serves invocations straight from the Anthropic Messages API,
// streaming each text delta as one completion chunk.
type ModelInvoker struct {
	client       *anthropic.Client
	model        string
	maxTokens    int64
	temperature  float64
	systemPrompt string
	logger       *zap.Logger
}

// NewModelInvoker creates a ModelInvoker.
func NewModelInvoker(cfg ModelConfig, logger *zap.Logger) *ModelInvoker {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = MarketAnalystPrompt
	}

	// One attempt per invocation; failures go straight to the caller.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.Options...)

	client := anthropic.NewClient(opts...)
	return &ModelInvoker{
		client:       &client,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  temperature,
		systemPrompt: cfg.SystemPrompt,
		logger:       logger,
	}
}

// InvokeAgent opens a streaming completion for the prompt. Transport errors
// surface through the returned stream's Err.
func (m *ModelInvoker) InvokeAgent(ctx context.Context, in *InvokeAgentInput) (*InvokeAgentOutput, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.model),
		MaxTokens:   m.maxTokens,
		Temperature: anthropic.Float(m.temperature),
		System: []anthropic.TextBlockParam{
			{Text: m.systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(in.InputText)),
		},
	}
	if in.ActorID != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(in.ActorID)}
	}

	m.logger.Debug("Opening model stream",
		zap.String("model", m.model),
		zap.String("session_id", in.SessionID))

	stream := m.client.Messages.NewStreaming(ctx, params)
	return &InvokeAgentOutput{Completion: &messageStream{events: stream}}, nil
}

type messageEvents interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}

// messageStream adapts the SDK event stream, yielding text deltas only.
type messageStream struct {
	events messageEvents
	cur    CompletionEvent
}

func (s *messageStream) Next() bool {
	for s.events.Next() {
		evt, ok := s.events.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := evt.Delta.AsAny().(anthropic.TextDelta); ok {
			s.cur = CompletionEvent{Chunk: &PayloadPart{Bytes: []byte(delta.Text)}}
			return true
		}
	}
	return false
}

func (s *messageStream) Current() CompletionEvent { return s.cur }

func (s *messageStream) Err() error { return s.events.Err() }

func (s *messageStream) Close() error { return s.events.Close() }
