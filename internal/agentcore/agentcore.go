// Package agentcore defines the collaborator contract of the remote agent
// runtime and the backends that implement it.
//
// The runtime is opaque: it is invoked with a runtime identifier, a session
// and the user's text, and answers either with a scalar text or with a
// finite stream of completion chunks. Memory retrieval is a separate
// capability so the two can be served by different backends.
package agentcore

import (
	"context"
	"errors"

	"github.com/market-agent-gateway/internal/memory"
)

var (
	// ErrNoOutput is returned when a runtime answered with neither text nor a stream.
	ErrNoOutput = errors.New("agent runtime returned no output")
	// ErrMemoryUnsupported is returned by runtimes without a memory store.
	ErrMemoryUnsupported = errors.New("memory retrieval not supported by this runtime")
)

// InvokeAgentInput identifies one invocation of the remote agent.
type InvokeAgentInput struct {
	RuntimeID string
	SessionID string
	ActorID   string
	InputText string
}

// InvokeAgentOutput carries either a scalar Text or a Completion stream.
type InvokeAgentOutput struct {
	Text       *string
	Completion CompletionStream
}

// CompletionStream is a finite, non-restartable sequence of completion
// events. Next blocks until the next event arrives or the stream ends.
type CompletionStream interface {
	Next() bool
	Current() CompletionEvent
	Err() error
	Close() error
}

// CompletionEvent is one element of a completion stream. Chunk is nil for
// events that carry no payload.
type CompletionEvent struct {
	Chunk *PayloadPart
}

// PayloadPart holds the raw bytes of one completion chunk.
type PayloadPart struct {
	Bytes []byte
}

// RetrieveMemoryInput selects the memory records of one actor.
type RetrieveMemoryInput struct {
	MemoryID   string
	ActorID    string
	MaxResults int
}

// RetrieveMemoryOutput holds the raw records in store order.
type RetrieveMemoryOutput struct {
	Memories []memory.RawRecord
}

// Invoker invokes the remote agent.
type Invoker interface {
	InvokeAgent(ctx context.Context, in *InvokeAgentInput) (*InvokeAgentOutput, error)
}

// MemoryRetriever reads persisted memory records.
type MemoryRetriever interface {
	RetrieveMemory(ctx context.Context, in *RetrieveMemoryInput) (*RetrieveMemoryOutput, error)
}

// Runtime is the full remote agent runtime.
type Runtime interface {
	Invoker
	MemoryRetriever
}

type composite struct {
	Invoker
	MemoryRetriever
}

// Compose joins an Invoker and a MemoryRetriever into a Runtime.
// A nil retriever answers every retrieval with ErrMemoryUnsupported.
func Compose(inv Invoker, mem MemoryRetriever) Runtime {
	if mem == nil {
		mem = unsupportedMemory{}
	}
	return composite{Invoker: inv, MemoryRetriever: mem}
}

type unsupportedMemory struct{}

func (unsupportedMemory) RetrieveMemory(context.Context, *RetrieveMemoryInput) (*RetrieveMemoryOutput, error) {
	return nil, ErrMemoryUnsupported
}
