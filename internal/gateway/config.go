package gateway

import "time"

const (
	// DefaultMemoryID is the memory resource of the hosted market agent.
	DefaultMemoryID = "runtime_us_market_agent_8e082e5c_mem-B1ZetpF2X2"
	// DefaultRuntimeID is the hosted market agent runtime.
	DefaultRuntimeID = "runtime_us_market_agent_8e082e5c-HYMo6FF9Qn"
	// DefaultMaxMemoryResults caps a single memory retrieval.
	DefaultMaxMemoryResults = 10
	// DefaultInvokeTimeout bounds one remote invocation, stream included.
	DefaultInvokeTimeout = 30 * time.Second
)

// Config holds the runtime identifiers the gateway talks to.
// It is read-only after New.
type Config struct {
	MemoryID         string
	RuntimeID        string
	MaxMemoryResults int
	InvokeTimeout    time.Duration
}

// DefaultConfig returns the configuration of the hosted market agent.
func DefaultConfig() Config {
	return Config{
		MemoryID:         DefaultMemoryID,
		RuntimeID:        DefaultRuntimeID,
		MaxMemoryResults: DefaultMaxMemoryResults,
		InvokeTimeout:    DefaultInvokeTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.MemoryID == "" {
		c.MemoryID = DefaultMemoryID
	}
	if c.RuntimeID == "" {
		c.RuntimeID = DefaultRuntimeID
	}
	if c.MaxMemoryResults <= 0 {
		c.MaxMemoryResults = DefaultMaxMemoryResults
	}
	if c.InvokeTimeout <= 0 {
		c.InvokeTimeout = DefaultInvokeTimeout
	}
	return c
}
