package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mythmanga/internal/logger"
	"mythmanga/pkg/rabbitmq"

	"go.uber.org/zap"
)

// OrderEventHandler consumes order.received events and sends the confirmation email.
type OrderEventHandler struct {
	email *EmailClient
}

func NewOrderEventHandler(email *EmailClient) *OrderEventHandler {
	return &OrderEventHandler{email: email}
}

// Handle is a rabbitmq.Handler. Malformed events and rejected emails are not retried.
func (h *OrderEventHandler) Handle(ctx context.Context, body []byte) error {
	var event OrderReceivedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return rabbitmq.Permanent(fmt.Errorf("unmarshal order event: %w", err))
	}

	log := logger.Get().With(zap.String("order_id", event.Order.ID))
	if !h.email.Configured() {
		log.Info("Email function not configured, dropping order notification")
		return nil
	}
	if event.Order.CustomerEmail == "" {
		log.Warn("Order has no customer email, skipping notification")
		return nil
	}

	if err := h.email.SendOrderReceived(ctx, event.Order); err != nil {
		if errors.Is(err, ErrEmailRejected) {
			return rabbitmq.Permanent(err)
		}
		return err
	}

	log.Info("Order confirmation email sent", zap.String("to", event.Order.CustomerEmail))
	return nil
}
