// Package marketagent provides the Go SDK for the market agent gateway.
//
// Every call settles with usable content: when the gateway cannot be
// reached the client answers from a deterministic built-in mock so a demo
// conversation keeps going.
package marketagent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/gateway"
	"github.com/market-agent-gateway/internal/jsonx"
	"github.com/market-agent-gateway/internal/memory"
)

const (
	// DefaultTimeout bounds every remote call.
	DefaultTimeout = 30 * time.Second
	// DefaultMemoryID is the memory store read by direct retrieval.
	DefaultMemoryID = gateway.DefaultMemoryID
	// MaxMemoryResults caps a direct memory retrieval.
	MaxMemoryResults = gateway.DefaultMaxMemoryResults
)

// Client is the market agent gateway client
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	memory     MemoryRetriever
	memoryID   string
	normalizer *memory.Normalizer
	now        func() time.Time
	logger     *zap.Logger
}

// ClientConfig configures the client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// Memory, when set, is asked for memory before the gateway.
	Memory   MemoryRetriever
	MemoryID string
	Logger   *zap.Logger
	// Now replaces time.Now for fallback timestamps.
	Now func() time.Time
	// HTTPClient replaces the default client; Timeout is not applied to it.
	HTTPClient *http.Client
}

// NewClient creates a new gateway client
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MemoryID == "" {
		config.MemoryID = DefaultMemoryID
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		httpClient: config.HTTPClient,
		baseURL:    config.BaseURL,
		timeout:    config.Timeout,
		memory:     config.Memory,
		memoryID:   config.MemoryID,
		normalizer: memory.NewNormalizer(config.Now),
		now:        config.Now,
		logger:     config.Logger.Named("marketagent"),
	}
}

// InvokeAgent returns the agent's answer to prompt. It never fails; see Invoke.
func (c *Client) InvokeAgent(ctx context.Context, prompt, actorID, sessionID string) string {
	return c.Invoke(ctx, prompt, actorID, sessionID).Text
}

// Invoke sends the prompt to the gateway. Network and HTTP failures are
// answered with MockAgentResponse and reported through FallbackUsed.
// There are no retries.
func (c *Client) Invoke(ctx context.Context, prompt, actorID, sessionID string) InvokeOutcome {
	c.logger.Debug("Invoking agent",
		zap.String("actor_id", actorID),
		zap.String("session_id", sessionID))

	body, err := c.post(ctx, "/invoke", InvokeRequest{
		Prompt:    prompt,
		ActorID:   actorID,
		SessionID: sessionID,
	})
	if err != nil {
		c.logger.Warn("Invoke failed, using mock response", zap.Error(err))
		return InvokeOutcome{Text: MockAgentResponse(prompt, actorID), FallbackUsed: true}
	}

	reply := ParseReply(body)
	c.logger.Debug("Agent response", zap.Stringer("kind", reply.Kind))
	return InvokeOutcome{Text: reply.Text()}
}

// GetMemory returns the actor's memory snapshot. It asks the direct
// retriever first when one is configured, then the gateway, and finally
// answers with MockMemorySnapshot.
func (c *Client) GetMemory(ctx context.Context, actorID string) MemorySnapshot {
	if c.memory != nil {
		snap, err := c.directMemory(ctx, actorID)
		if err == nil {
			return snap
		}
		c.logger.Warn("Direct memory retrieval failed", zap.Error(err))
	}

	var snap MemorySnapshot
	if err := c.get(ctx, "/memory/"+url.PathEscape(actorID), &snap); err != nil {
		c.logger.Warn("Memory fetch failed, using mock memory", zap.Error(err))
		return MockMemorySnapshot(actorID, c.now())
	}
	if snap.Records == nil {
		snap.Records = []MemoryRecord{}
	}
	return snap
}

func (c *Client) directMemory(ctx context.Context, actorID string) (MemorySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.memory.RetrieveMemory(ctx, &RetrieveMemoryInput{
		MemoryID:   c.memoryID,
		ActorID:    actorID,
		MaxResults: MaxMemoryResults,
	})
	if err != nil {
		return MemorySnapshot{}, err
	}

	var raw []memory.RawRecord
	if out != nil {
		raw = out.Memories
	}
	if len(raw) > MaxMemoryResults {
		raw = raw[:MaxMemoryResults]
	}
	return memory.NewSnapshot(actorID, c.normalizer.Normalize(raw), c.now()), nil
}

// GetSessionHistory returns the transcript of a session, or
// MockSessionHistory when the gateway cannot be reached.
func (c *Client) GetSessionHistory(ctx context.Context, sessionID string) []TranscriptEntry {
	var resp SessionResponse
	if err := c.get(ctx, "/session/"+url.PathEscape(sessionID), &resp); err != nil {
		c.logger.Warn("Session fetch failed, using mock history", zap.Error(err))
		return MockSessionHistory(c.now())
	}
	if resp.Messages == nil {
		return []TranscriptEntry{}
	}
	return resp.Messages
}

// post makes a POST request and returns the raw response body
func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := jsonx.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// get makes a GET request
func (c *Client) get(ctx context.Context, path string, resp interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}
	return jsonx.Unmarshal(data, resp)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(data))
	}
	return data, nil
}
