// Package notify announces applied configuration updates to other services.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/goliatone/go-configadmin/pkg/functional"
)

// UpdateEvent is published after the API accepted a new configuration.
type UpdateEvent struct {
	SubmissionID string              `json:"submissionId"`
	Profile      string              `json:"profile"`
	Actor        string              `json:"actor,omitempty"`
	Message      string              `json:"message"`
	Changes      []functional.Change `json:"changes"`
	At           time.Time           `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event UpdateEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, UpdateEvent) error { return nil }

func (Nop) Close() error { return nil }

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes JSON events on one subject.
type NATSPublisher struct {
	conn    Conn
	subject string
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("configadmin"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("notify: connect %s: %w", url, err)
	}
	return NewNATSPublisher(nc, subject), nil
}

func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// Publish sends the event and waits for the server to acknowledge the flush
// or ctx to end.
func (p *NATSPublisher) Publish(ctx context.Context, event UpdateEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("notify: publish %s: %w", p.subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("notify: flush %s: %w", p.subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*NATSPublisher)(nil)
	_ Conn      = (*nats.Conn)(nil)
)
