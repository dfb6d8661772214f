package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/jsonx"
)

const maxLoggedBody = 64 * 1024

// InvokeResponse is the body of a successful POST /invoke.
type InvokeResponse struct {
	Response  []string `json:"response"`
	ActorID   string   `json:"actor_id"`
	SessionID string   `json:"session_id"`
}

// SessionResponse is the body of GET /session/{sessionId}.
type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []TranscriptEntry `json:"messages"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server exposes a Gateway over HTTP.
type Server struct {
	gateway *Gateway
	logger  *zap.Logger
}

// NewServer creates a new HTTP server for the gateway
func NewServer(gateway *Gateway, logger *zap.Logger) *Server {
	return &Server{
		gateway: gateway,
		logger:  logger.Named("http"),
	}
}

// SetupRoutes configures the HTTP routes
func (s *Server) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/invoke", s.handleInvoke).Methods(http.MethodPost)
	r.HandleFunc("/memory/{actorId:.*}", s.handleMemory).Methods(http.MethodGet)
	r.HandleFunc("/session/{sessionId:.*}", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleNotFound)
}

// Handler returns the complete HTTP handler: routes wrapped with CORS,
// panic recovery, request logging and the access log.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.SetupRoutes(r)

	var h http.Handler = r
	h = s.logRequests(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.accessLog)
	h = s.recoverPanics(h)
	return withCORS(h)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvocationRequest
	if err := jsonx.Decode(r.Body, &req); err != nil {
		s.logger.Warn("Invalid invoke body", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Missing prompt in payload")
		return
	}

	result := s.gateway.Invoke(r.Context(), req)
	writeJSON(w, http.StatusOK, InvokeResponse{
		Response:  []string{result.Text},
		ActorID:   result.ActorID,
		SessionID: result.SessionID,
	})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	actorID := lastSegment(mux.Vars(r)["actorId"])
	writeJSON(w, http.StatusOK, s.gateway.GetMemory(r.Context(), actorID))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := lastSegment(mux.Vars(r)["sessionId"])
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: sessionID,
		Messages:  s.gateway.GetSessionHistory(r.Context(), sessionID),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// lastSegment returns the part of p after its final slash, so
// /memory/a/b addresses actor "b".
func lastSegment(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonx.Write(w, v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// withCORS sets the CORS headers on every response and answers preflight
// requests for any path itself.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// headerTracker records whether the response status was sent.
type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(status int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

func (t *headerTracker) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		t.wroteHeader = true
		f.Flush()
	}
}

// recoverPanics answers a panicking handler with 500 unless the handler
// already started its response, which is then left as written.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &headerTracker{ResponseWriter: w}
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("Handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				if tw.wroteHeader {
					return
				}
				writeError(w, http.StatusInternalServerError, fmt.Sprint(rec))
			}
		}()
		next.ServeHTTP(tw, r)
	})
}

// logRequests logs the method, path and body of every request. The body
// is buffered and handed on unchanged.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := []zap.Field{
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
		}
		if r.Body != nil && r.Body != http.NoBody {
			body, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody]
			}
			fields = append(fields, zap.ByteString("body", body))
		}
		s.logger.Info("Request", fields...)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Debug("HTTP",
		zap.String("method", p.Request.Method),
		zap.String("uri", p.URL.RequestURI()),
		zap.Int("status", p.StatusCode),
		zap.Int("size", p.Size),
		zap.Duration("duration", time.Since(p.TimeStamp)),
		zap.String("remote", p.Request.RemoteAddr))
}
