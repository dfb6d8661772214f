package marketagent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/market-agent-gateway/internal/memory"
)

// State is the lifecycle position of a Conversation.
type State int

const (
	Idle State = iota
	Sending
	Succeeded
	FallbackUsed
)

func (s State) String() string {
	switch s {
	case Sending:
		return "sending"
	case Succeeded:
		return "succeeded"
	case FallbackUsed:
		return "fallback"
	default:
		return "idle"
	}
}

// Invoker answers prompts. *Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, prompt, actorID, sessionID string) InvokeOutcome
}

// Conversation sends prompts for one actor and records each settled
// exchange in the current session transcript. Only one prompt is in
// flight at a time.
type Conversation struct {
	mu       sync.Mutex
	invoker  Invoker
	sessions *Sessions
	actorID  string
	state    State
	now      func() time.Time

	// OnStateChange, if set, is called on every transition.
	OnStateChange func(State)
}

// NewConversation creates an idle conversation for actorID.
func NewConversation(invoker Invoker, sessions *Sessions, actorID string) *Conversation {
	return &Conversation{
		invoker:  invoker,
		sessions: sessions,
		actorID:  actorID,
		now:      time.Now,
	}
}

// State returns the current state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActorID returns the actor prompts are sent for.
func (c *Conversation) ActorID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actorID
}

// SetActor changes the actor for subsequent prompts.
func (c *Conversation) SetActor(actorID string) {
	c.mu.Lock()
	c.actorID = actorID
	c.mu.Unlock()
}

// Send invokes the agent with prompt and appends the user and assistant
// entries to the transcript that was current when the prompt was sent.
// Blank prompts, prompts sent while another is in flight, and prompts
// without a selected session are ignored and report false.
func (c *Conversation) Send(ctx context.Context, prompt string) (InvokeOutcome, bool) {
	if strings.TrimSpace(prompt) == "" {
		return InvokeOutcome{}, false
	}

	c.mu.Lock()
	transcript := c.sessions.Current()
	if c.state != Idle || transcript == nil {
		c.mu.Unlock()
		return InvokeOutcome{}, false
	}
	actorID := c.actorID
	c.state = Sending
	hook := c.OnStateChange
	c.mu.Unlock()

	if hook != nil {
		hook(Sending)
	}
	sentAt := c.now()

	outcome := c.invoker.Invoke(ctx, prompt, actorID, transcript.SessionID())

	if outcome.FallbackUsed {
		c.transition(FallbackUsed)
	} else {
		c.transition(Succeeded)
	}

	transcript.Append(
		TranscriptEntry{Role: RoleUser, Content: prompt, Timestamp: memory.FormatTimestamp(sentAt)},
		TranscriptEntry{Role: RoleAssistant, Content: outcome.Text, Timestamp: memory.FormatTimestamp(c.now())},
	)

	c.transition(Idle)
	return outcome, true
}

func (c *Conversation) transition(s State) {
	c.mu.Lock()
	c.state = s
	hook := c.OnStateChange
	c.mu.Unlock()

	if hook != nil {
		hook(s)
	}
}
