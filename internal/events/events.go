// Package events publishes completed conversation turns for downstream
// consumers such as transcript archivers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/jsonx"
)

// SubjectPrefix is the subject namespace for turn events.
const SubjectPrefix = "transcripts"

// TurnEvent describes one settled invocation.
type TurnEvent struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Fallback  bool      `json:"fallback"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers turn events.
type Publisher interface {
	Publish(ctx context.Context, event TurnEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TurnEvent) error { return nil }

// Conn is the part of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

// NATSPublisher publishes turn events as JSON on transcripts.<actor>.
type NATSPublisher struct {
	conn   Conn
	logger *zap.Logger
}

// NewNATSPublisher creates a publisher over an open connection.
func NewNATSPublisher(conn Conn, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger.Named("events")}
}

// Subject returns the subject an actor's turns are published on.
func Subject(actorID string) string {
	if actorID == "" {
		actorID = "anonymous"
	}
	return SubjectPrefix + "." + actorID
}

// Publish sends the event. The context is checked before sending only;
// core NATS publishes do not block on the server.
func (p *NATSPublisher) Publish(ctx context.Context, event TurnEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := jsonx.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	subject := Subject(event.ActorID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("Turn event published",
		zap.String("subject", subject),
		zap.String("event_id", event.ID))
	return nil
}

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("market-agent-gateway"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
