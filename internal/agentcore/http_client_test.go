package agentcore

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/market-agent-gateway/internal/jsonx"
)

func chunkLine(s string) string {
	return fmt.Sprintf(`{"chunk":{"bytes":%q}}`+"\n", base64.StdEncoding.EncodeToString([]byte(s)))
}

func drain(t *testing.T, s CompletionStream) []string {
	t.Helper()
	var out []string
	for s.Next() {
		ev := s.Current()
		if ev.Chunk == nil {
			out = append(out, "<nil>")
			continue
		}
		out = append(out, string(ev.Chunk.Bytes))
	}
	return out
}

func TestHTTPClientInvokeStreamsChunks(t *testing.T) {
	var gotPath, gotSession string
	var gotBody invokeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSession = r.Header.Get("X-Session-Id")
		require.NoError(t, jsonx.Decode(r.Body, &gotBody))

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, chunkLine("NVDA is "))
		io.WriteString(w, "\n")
		io.WriteString(w, `{"metadata":{}}`+"\n")
		io.WriteString(w, chunkLine("up today"))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	out, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{
		RuntimeID: "runtime-1",
		SessionID: "session-sarah-1",
		ActorID:   "Sarah",
		InputText: "What's the current price for NVDA?",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Completion)
	defer out.Completion.Close()

	assert.Equal(t, []string{"NVDA is ", "<nil>", "up today"}, drain(t, out.Completion))
	assert.NoError(t, out.Completion.Err())

	assert.Equal(t, "/runtimes/runtime-1/invocations", gotPath)
	assert.Equal(t, "session-sarah-1", gotSession)
	assert.Equal(t, "What's the current price for NVDA?", gotBody.Prompt)
	assert.Equal(t, "Sarah", gotBody.ActorID)
}

func TestHTTPClientInvokeMalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
		io.WriteString(w, chunkLine("partial"))
		io.WriteString(w, "{not json\n")
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	out, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{RuntimeID: "r"})
	require.NoError(t, err)
	defer out.Completion.Close()

	assert.Equal(t, []string{"partial"}, drain(t, out.Completion))
	assert.Error(t, out.Completion.Err())
}

func TestHTTPClientInvokeSkipsUndecodablePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, chunkLine("hello"))
		io.WriteString(w, `{"chunk":{"bytes":"%%not-base64%%"}}`+"\n")
		io.WriteString(w, `{"chunk":{"bytes":42}}`+"\n")
		io.WriteString(w, chunkLine(" world"))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	out, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{RuntimeID: "r"})
	require.NoError(t, err)
	defer out.Completion.Close()

	assert.Equal(t, []string{"hello", "<nil>", "<nil>", " world"}, drain(t, out.Completion))
	assert.NoError(t, out.Completion.Err())
}

func TestHTTPClientInvokeScalar(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string", body: `{"response":"R"}`, want: "R"},
		{name: "list", body: `{"response":["R","ignored"]}`, want: "R"},
		{name: "empty string", body: `{"response":""}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
			out, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{RuntimeID: "r"})
			require.NoError(t, err)
			require.NotNil(t, out.Text)
			assert.Nil(t, out.Completion)
			assert.Equal(t, tt.want, *out.Text)
		})
	}
}

func TestHTTPClientInvokeNoOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":"Missing prompt in payload"}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{RuntimeID: "r"})
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestHTTPClientInvokeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{RuntimeID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestHTTPClientInvokeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	_, err := c.InvokeAgent(context.Background(), &InvokeAgentInput{RuntimeID: "r"})
	assert.Error(t, err)
}

func TestHTTPClientRetrieveMemory(t *testing.T) {
	var got retrieveRequest
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, jsonx.Decode(r.Body, &got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"memories":[{"createdAt":"2025-07-01T10:00:00Z","content":{"text":"Broker Profile: Sarah"}},{}]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	out, err := c.RetrieveMemory(context.Background(), &RetrieveMemoryInput{
		MemoryID:   "mem-1",
		ActorID:    "Sarah",
		MaxResults: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "/memories/mem-1/retrieve", gotPath)
	assert.Equal(t, retrieveRequest{ActorID: "Sarah", MaxResults: 10}, got)
	require.Len(t, out.Memories, 2)
	assert.Equal(t, "Broker Profile: Sarah", *out.Memories[0].Content.Text)
	assert.Nil(t, out.Memories[1].Content)
}

func TestHTTPClientRetrieveMemoryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := c.RetrieveMemory(context.Background(), &RetrieveMemoryInput{MemoryID: "m", ActorID: "a", MaxResults: 10})
	assert.Error(t, err)
}

func TestComposeWithoutMemory(t *testing.T) {
	rt := Compose(nil, nil)
	_, err := rt.RetrieveMemory(context.Background(), &RetrieveMemoryInput{})
	assert.ErrorIs(t, err, ErrMemoryUnsupported)
}

func TestSliceStream(t *testing.T) {
	s := NewSliceStream([]byte("a"), nil, []byte("b"))
	assert.Equal(t, []string{"a", "<nil>", "b"}, drain(t, s))
	assert.False(t, s.Next(), "stream is not restartable")
	assert.NoError(t, s.Err())

	failing := NewEventStream(io.ErrUnexpectedEOF,
		CompletionEvent{Chunk: &PayloadPart{Bytes: []byte("x")}},
		CompletionEvent{Chunk: &PayloadPart{Bytes: []byte("y")}})
	assert.True(t, failing.Next())
	assert.NoError(t, failing.Err())
	assert.True(t, failing.Next())
	assert.False(t, failing.Next())
	assert.ErrorIs(t, failing.Err(), io.ErrUnexpectedEOF)
}
