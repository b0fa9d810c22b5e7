package notifications

import (
	"context"
	"encoding/json"
	"time"

	"mythmanga/internal/logger"
	"mythmanga/internal/models"

	"go.uber.org/zap"
)

// OrderReceivedRoutingKey is the routing key of the event published for every saved order.
const OrderReceivedRoutingKey = "order.received"

// OrderReceivedEvent is the body of an order.received message.
type OrderReceivedEvent struct {
	Order      models.Order `json:"order"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Publisher sends a message body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Notifier publishes order events. With no publisher it only logs.
type Notifier struct {
	publisher Publisher
	now       func() time.Time
}

func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{publisher: publisher, now: time.Now}
}

// OrderReceived publishes order.received. Failures are logged and never returned:
// a saved order must not be undone by a broker outage.
func (n *Notifier) OrderReceived(ctx context.Context, order models.Order) {
	log := logger.Get().With(zap.String("order_id", order.ID))
	if n.publisher == nil {
		log.Debug("Order events disabled, skipping notification")
		return
	}

	body, err := json.Marshal(OrderReceivedEvent{Order: order, OccurredAt: n.now().UTC()})
	if err != nil {
		log.Error("Failed to encode order event", zap.Error(err))
		return
	}
	if err := n.publisher.Publish(ctx, OrderReceivedRoutingKey, body); err != nil {
		log.Error("Failed to publish order event", zap.Error(err))
	}
}
