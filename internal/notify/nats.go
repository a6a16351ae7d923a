package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prudhvinik1/pairup/internal/models"
)

const subjectPrefix = "pairup.presence."

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type NATSNotifier struct {
	pub Publisher
}

func NewNATSNotifier(pub Publisher) *NATSNotifier {
	return &NATSNotifier{pub: pub}
}

// Connect dials NATS with unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("pairup"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to nats: %w", err)
	}
	return nc, nil
}

// Notify publishes the event on pairup.presence.<userId>. Ids that are not a
// single subject token are refused with nats.ErrBadSubject.
func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	if err := models.ValidateUserID(event.UserID); err != nil {
		return fmt.Errorf("%w: %q", nats.ErrBadSubject, event.UserID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := n.pub.Publish(Subject(event.UserID), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func Subject(userID string) string {
	return subjectPrefix + userID
}
