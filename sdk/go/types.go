package marketagent

import (
	"github.com/market-agent-gateway/internal/agentcore"
	"github.com/market-agent-gateway/internal/memory"
)

// Memory types shared with the gateway.
type (
	MemorySnapshot = memory.Snapshot
	MemoryRecord   = memory.Record
	MemoryKind     = memory.Kind
	Profile        = memory.Profile
)

// Direct memory access, for callers that hold runtime credentials.
type (
	MemoryRetriever      = agentcore.MemoryRetriever
	RetrieveMemoryInput  = agentcore.RetrieveMemoryInput
	RetrieveMemoryOutput = agentcore.RetrieveMemoryOutput
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TranscriptEntry is one message of a session transcript.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Prompt    string `json:"prompt"`
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
}

// InvokeOutcome is the settled result of one invocation.
type InvokeOutcome struct {
	Text         string
	FallbackUsed bool
}

// SessionResponse is the body of GET /session/{sessionId}.
type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []TranscriptEntry `json:"messages"`
}
