package gateway

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/market-agent-gateway/internal/agentcore"
	"github.com/market-agent-gateway/internal/jsonx"
	"github.com/market-agent-gateway/internal/memory"
)

func newTestServer(t *testing.T, rt agentcore.Runtime) *httptest.Server {
	gw := newTestGateway(t, rt)
	srv := httptest.NewServer(NewServer(gw, zaptest.NewLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func assertCORS(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestServerInvoke(t *testing.T) {
	rt := &fakeRuntime{invokeOut: &agentcore.InvokeAgentOutput{Text: text("R")}}
	srv := newTestServer(t, rt)

	resp, err := http.Post(srv.URL+"/invoke", "application/json",
		strings.NewReader(`{"prompt":"What's the current price for NVDA?","actor_id":"Sarah","session_id":"session-sarah-1"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assertCORS(t, resp)

	var body InvokeResponse
	require.NoError(t, jsonx.Unmarshal([]byte(readBody(t, resp)), &body))
	assert.Equal(t, InvokeResponse{Response: []string{"R"}, ActorID: "Sarah", SessionID: "session-sarah-1"}, body)
}

func TestServerInvokeFallbackIsStill200(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{invokeErr: errors.New("unreachable")})

	resp, err := http.Post(srv.URL+"/invoke", "application/json",
		strings.NewReader(`{"prompt":"hello","actor_id":"Mike","session_id":"session-mike-1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body InvokeResponse
	require.NoError(t, jsonx.Unmarshal([]byte(readBody(t, resp)), &body))
	assert.Equal(t, []string{"Thank you for your message. I'm processing your request about: hello"}, body.Response)
}

func TestServerInvokeBadBodies(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{})

	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(`{"actor_id":"Sarah"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Missing prompt in payload"}`, readBody(t, resp))

	resp, err = http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(`{"prompt":`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assertCORS(t, resp)

	var body ErrorResponse
	require.NoError(t, jsonx.Unmarshal([]byte(readBody(t, resp)), &body))
	assert.NotEmpty(t, body.Error)
}

func TestServerMemory(t *testing.T) {
	rt := &fakeRuntime{memOut: &agentcore.RetrieveMemoryOutput{Memories: []memory.RawRecord{
		{CreatedAt: memory.String("2025-07-30T14:00:00.000Z"), Content: &memory.RawContent{Text: memory.String("Broker Profile: Sarah Chen")}},
	}}}
	srv := newTestServer(t, rt)

	resp, err := http.Get(srv.URL + "/memory/Sarah")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assertCORS(t, resp)

	assert.JSONEq(t, `{
		"actor_id": "Sarah",
		"memories": [{"timestamp":"2025-07-30T14:00:00.000Z","type":"profile","content":"Broker Profile: Sarah Chen"}],
		"memory_count": 1,
		"last_updated": "2025-08-01T09:30:00.000Z"
	}`, readBody(t, resp))
}

func TestServerMemoryFailure(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{memErr: errors.New("down")})

	resp, err := http.Get(srv.URL + "/memory/Lisa")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t,
		`{"actor_id":"Lisa","memories":[],"memory_count":0,"last_updated":"2025-08-01T09:30:00.000Z"}`,
		readBody(t, resp))
}

func TestServerSession(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{})

	resp, err := http.Get(srv.URL + "/session/session-sarah-2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"session_id":"session-sarah-2","messages":[]}`, readBody(t, resp))
}

func TestServerTakesLastPathSegment(t *testing.T) {
	rt := &fakeRuntime{memOut: &agentcore.RetrieveMemoryOutput{}}
	srv := newTestServer(t, rt)

	tests := []struct {
		path string
		want string
	}{
		{"/memory/desk/Mike", `{"actor_id":"Mike","memories":[],"memory_count":0,"last_updated":"2025-08-01T09:30:00.000Z"}`},
		{"/memory/", `{"actor_id":"","memories":[],"memory_count":0,"last_updated":"2025-08-01T09:30:00.000Z"}`},
		{"/session/archive/session-lisa-1", `{"session_id":"session-lisa-1","messages":[]}`},
		{"/session/", `{"session_id":"","messages":[]}`},
	}

	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, tt.path)
		assert.JSONEq(t, tt.want, readBody(t, resp), tt.path)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	assert.Equal(t, "", rt.lastRetrieve.ActorID)
}

func TestServerPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{})

	for _, path := range []string{"/invoke", "/memory/Sarah", "/anything/else"} {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+path, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assertCORS(t, resp)
		assert.Empty(t, readBody(t, resp), path)
	}
}

func TestServerNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/unknown/path"},
		{http.MethodGet, "/invoke"},
		{http.MethodPost, "/memory/Sarah"},
		{http.MethodDelete, "/session/s1"},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tt.path)
		assertCORS(t, resp)
		assert.JSONEq(t, `{"error":"Not found"}`, readBody(t, resp))
	}
}

func TestServerHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy"}`, readBody(t, resp))
}

func TestServerRecoversPanics(t *testing.T) {
	s := NewServer(newTestGateway(t, &fakeRuntime{}), zaptest.NewLogger(t))

	r := mux.NewRouter()
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	h := withCORS(s.recoverPanics(r))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"error":"kaboom"}`, rec.Body.String())
}

func TestServerPanicAfterWriteKeepsResponse(t *testing.T) {
	s := NewServer(newTestGateway(t, &fakeRuntime{}), zaptest.NewLogger(t))

	r := mux.NewRouter()
	r.HandleFunc("/half", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, "partial")
		panic("kaboom")
	})
	h := s.recoverPanics(r)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/half", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}
