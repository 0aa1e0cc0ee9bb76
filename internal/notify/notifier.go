package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

// Event types emitted by the settlement engine.
const (
	EventPaymentCaptured = "payment.captured"
	EventFundsReleased   = "funds.released"
	EventReleaseRefused  = "funds.release_refused"
	EventRefundIssued    = "payment.refunded"
	EventBookingDisputed = "booking.disputed"
)

// Event is the payload pushed to the notification topic. Downstream
// consumers (email, push, in-app feeds) fan out from there.
type Event struct {
	Type       string    `json:"type"`
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes settlement events. Implementations must not block the
// financial path: a failed publish is logged, never returned.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubNotifier publishes events to the notification topic.
type PubSubNotifier struct {
	publisher publisher
	logg      *logger.Logger
}

// NewPubSubNotifier builds a notifier on top of a Pub/Sub publisher handle.
func NewPubSubNotifier(pub publisher, logg *logger.Logger) (*PubSubNotifier, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PubSubNotifier{publisher: pub, logg: logg}, nil
}

func (n *PubSubNotifier) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logg.Error(ctx, "encoding notification", err)
		return
	}
	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":       event.Type,
			"booking_id": event.BookingID.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		n.logg.Error(ctx, fmt.Sprintf("publishing %s notification", event.Type), err)
	}
}

// Noop discards events. Used in tests and when notifications are disabled.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
