// Package bus provides concrete ports.SignalBus implementations.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// NATS publishes side-effect signals to a subject on a NATS connection.
// Publish is fire-and-forget at the transport level too: it does not wait
// for an ack.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// Connect dials url with a reconnect policy in the same spirit as the
// rest of the retrieval pack's NATS clients (auto-reconnect, bounded
// ping interval) and returns a NATS bus publishing to subject.
func Connect(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.PingInterval(3*time.Second),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("sentrywin: nats connect: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

func (n *NATS) Publish(ctx context.Context, signal domain.HealthSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("%w: marshal signal: %v", ports.ErrBusPublishFailed, err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrBusPublishFailed, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}

var _ ports.SignalBus = (*NATS)(nil)
