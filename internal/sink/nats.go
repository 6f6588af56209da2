package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr/recorder"
)

// NATSNotifier publishes a SavedEvent for every saved replay.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to the NATS server at url and publishes on subject.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("mc-replay-go"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSNotifier{conn: nc, subject: subject}, nil
}

// Deliver publishes the event and waits for the server to acknowledge the flush.
func (n *NATSNotifier) Deliver(ctx context.Context, saved recorder.Saved) error {
	data, err := json.Marshal(newSavedEvent(saved))
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.subject, err)
	}
	return n.conn.FlushWithContext(ctx)
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}
