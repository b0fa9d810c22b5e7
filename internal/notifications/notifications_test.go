package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mythmanga/internal/config"
	"mythmanga/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	routingKey string
	body       []byte
	err        error
}

func (p *capturePublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.routingKey = routingKey
	p.body = body
	return p.err
}

func sampleOrder() models.Order {
	return models.Order{
		ID:            "ORD-01J0000000000000000000000",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9876543210",
		Items: []models.OrderItem{
			{ProductID: "fig-1", Name: "Zoro Figure", Price: decimal.RequireFromString("899.50"), Quantity: 1},
		},
		TotalAmount: decimal.RequireFromString("948.50"),
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifier_PublishesOrderReceived(t *testing.T) {
	pub := &capturePublisher{}
	n := NewNotifier(pub)
	n.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 5, 0, time.UTC) }

	n.OrderReceived(context.Background(), sampleOrder())

	assert.Equal(t, OrderReceivedRoutingKey, pub.routingKey)
	var event OrderReceivedEvent
	require.NoError(t, json.Unmarshal(pub.body, &event))
	assert.Equal(t, "ORD-01J0000000000000000000000", event.Order.ID)
	assert.True(t, event.Order.TotalAmount.Equal(decimal.RequireFromString("948.50")))
	assert.Equal(t, n.now().UTC(), event.OccurredAt)
}

func TestNotifier_SwallowsFailures(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNotifier(&capturePublisher{err: errors.New("channel closed")}).OrderReceived(context.Background(), sampleOrder())
		NewNotifier(nil).OrderReceived(context.Background(), sampleOrder())
	})
}

func TestEmailClient_SendOrderReceived(t *testing.T) {
	var got emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewEmailClient(config.EmailConfig{FunctionURL: server.URL, FunctionKey: "anon-key"}, server.Client())
	require.True(t, client.Configured())
	require.NoError(t, client.SendOrderReceived(context.Background(), sampleOrder()))

	assert.Equal(t, "asha@example.com", got.To)
	assert.Equal(t, EmailTypeOrderReceived, got.Type)
	assert.Equal(t, "Order Received - ORD-01J0000000000000000000000", got.Subject)
	require.Len(t, got.OrderData.Items, 1)
	assert.Equal(t, "Zoro Figure", got.OrderData.Items[0].Name)
}

func TestEmailClient_StatusHandling(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()
	client := NewEmailClient(config.EmailConfig{FunctionURL: server.URL}, server.Client())

	err := client.SendOrderReceived(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, ErrEmailRejected)

	status.Store(http.StatusServiceUnavailable)
	err = client.SendOrderReceived(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailRejected)
}

func TestOrderEventHandler(t *testing.T) {
	var calls, status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	body, err := json.Marshal(OrderReceivedEvent{Order: sampleOrder()})
	require.NoError(t, err)
	handler := NewOrderEventHandler(NewEmailClient(config.EmailConfig{FunctionURL: server.URL}, server.Client()))

	t.Run("SendsEmail", func(t *testing.T) {
		require.NoError(t, handler.Handle(context.Background(), body))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("MalformedIsPermanent", func(t *testing.T) {
		err := handler.Handle(context.Background(), []byte("{not json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal order event")
	})

	t.Run("RejectedEmailIsPermanent", func(t *testing.T) {
		status.Store(http.StatusUnprocessableEntity)
		err := handler.Handle(context.Background(), body)
		assert.ErrorIs(t, err, ErrEmailRejected)
	})

	t.Run("UnconfiguredAcks", func(t *testing.T) {
		before := calls.Load()
		unconfigured := NewOrderEventHandler(NewEmailClient(config.EmailConfig{}, http.DefaultClient))
		assert.NoError(t, unconfigured.Handle(context.Background(), body))
		assert.Equal(t, before, calls.Load())
	})
}
