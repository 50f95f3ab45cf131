// Package events publishes a record of every completed turn to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject carries turn events.
const DefaultSubject = "jarvis.turns"

// TurnEvent describes a completed turn.
type TurnEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Source     string    `json:"source"`
	Utterance  string    `json:"utterance,omitempty"`
	Answer     string    `json:"answer"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Spoken     bool      `json:"spoken"`
	Farewell   bool      `json:"farewell,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, TurnEvent) error { return nil }
func (Nop) Close() error                             { return nil }

// NATSPublisher publishes events as JSON on a subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, log *zap.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("jarvis"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn, subject: subject, log: log}, nil
}

// Publish marshals ev and publishes it. Delivery is fire-and-forget.
func (p *NATSPublisher) Publish(ctx context.Context, ev TurnEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
