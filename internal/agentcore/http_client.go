package agentcore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/jsonx"
	"github.com/market-agent-gateway/internal/memory"
)

const (
	// DefaultHTTPTimeout bounds one round trip including the streamed body.
	DefaultHTTPTimeout = 30 * time.Second

	ndjsonContentType = "application/x-ndjson"
	maxChunkLineBytes = 1 << 20
)

// HTTPConfig holds configuration for the HTTP runtime client
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient talks to an agent runtime exposed over HTTP.
//
// Invocations answer either with application/json ({"response": ...}) or
// with an application/x-ndjson stream of {"chunk":{"bytes":"<base64>"}} lines
// that is consumed lazily.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a new HTTP runtime client
func NewHTTPClient(config HTTPConfig, logger *zap.Logger) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = DefaultHTTPTimeout
	}

	return &HTTPClient{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

type invokeRequest struct {
	Prompt    string `json:"prompt"`
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
}

type invokeResponse struct {
	Response jsonx.RawMessage `json:"response"`
}

type wireChunk struct {
	Chunk *struct {
		Bytes jsonx.RawMessage `json:"bytes"`
	} `json:"chunk"`
}

type retrieveRequest struct {
	ActorID    string `json:"actorId"`
	MaxResults int    `json:"maxResults"`
}

type retrieveResponse struct {
	Memories []memory.RawRecord `json:"memories"`
}

// InvokeAgent sends the prompt to the runtime. On a streamed answer the
// response body stays open until the returned stream is closed.
func (c *HTTPClient) InvokeAgent(ctx context.Context, in *InvokeAgentInput) (*InvokeAgentOutput, error) {
	body, err := jsonx.Marshal(invokeRequest{
		Prompt:    in.InputText,
		ActorID:   in.ActorID,
		SessionID: in.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/runtimes/" + url.PathEscape(in.RuntimeID) + "/invocations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", ndjsonContentType+", application/json")
	req.Header.Set("X-Session-Id", in.SessionID)

	c.logger.Debug("Sending runtime invocation",
		zap.String("runtime_id", in.RuntimeID),
		zap.String("session_id", in.SessionID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == ndjsonContentType {
		return &InvokeAgentOutput{Completion: newNDJSONStream(resp.Body, c.logger)}, nil
	}

	defer resp.Body.Close()
	var out invokeResponse
	if err := jsonx.Decode(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	text, ok := scalarText(out.Response)
	if !ok {
		return nil, ErrNoOutput
	}
	return &InvokeAgentOutput{Text: &text}, nil
}

// RetrieveMemory fetches up to MaxResults records for the actor.
func (c *HTTPClient) RetrieveMemory(ctx context.Context, in *RetrieveMemoryInput) (*RetrieveMemoryOutput, error) {
	body, err := jsonx.Marshal(retrieveRequest{ActorID: in.ActorID, MaxResults: in.MaxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/memories/" + url.PathEscape(in.MemoryID) + "/retrieve"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}

	var out retrieveResponse
	if err := jsonx.Decode(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("Runtime memory retrieved",
		zap.String("actor_id", in.ActorID),
		zap.Int("records", len(out.Memories)))

	return &RetrieveMemoryOutput{Memories: out.Memories}, nil
}

// scalarText accepts "text" or ["text", ...].
func scalarText(raw jsonx.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := jsonx.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var list []string
	if err := jsonx.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], true
	}
	return "", false
}

// ndjsonStream reads one completion event per line. A line that is not
// JSON ends the stream with an error; a chunk whose payload does not
// decode yields an event without payload.
type ndjsonStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cur     CompletionEvent
	err     error
	logger  *zap.Logger
}

func newNDJSONStream(body io.ReadCloser, logger *zap.Logger) *ndjsonStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkLineBytes)
	return &ndjsonStream{body: body, scanner: scanner, logger: logger}
}

func (s *ndjsonStream) Next() bool {
	if s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var wc wireChunk
		if err := jsonx.Unmarshal(line, &wc); err != nil {
			s.err = fmt.Errorf("failed to decode chunk: %w", err)
			return false
		}
		s.cur = CompletionEvent{}
		if wc.Chunk != nil {
			var payload []byte
			if err := jsonx.Unmarshal(wc.Chunk.Bytes, &payload); err != nil {
				s.logger.Debug("Skipping chunk with undecodable payload", zap.Error(err))
				return true
			}
			s.cur.Chunk = &PayloadPart{Bytes: payload}
		}
		return true
	}
	s.err = s.scanner.Err()
	return false
}

func (s *ndjsonStream) Current() CompletionEvent { return s.cur }

func (s *ndjsonStream) Err() error { return s.err }

func (s *ndjsonStream) Close() error { return s.body.Close() }
