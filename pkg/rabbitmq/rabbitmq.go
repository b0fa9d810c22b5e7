package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mythmanga/internal/logger"

	amqp "github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Topology used for order events.
const (
	OrdersExchange     = "orders"
	NotificationsQueue = "order_notifications"
	OrderEventsBinding = "order.*"
)

// ErrClosed is returned when the channel has been shut down.
var ErrClosed = errors.New("rabbitmq: channel is not available")

var tracer = otel.Tracer("mythmanga/rabbitmq")

// Handler processes one message body. A returned error requeues the message
// unless it is wrapped with Permanent.
type Handler func(ctx context.Context, body []byte) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as not worth retrying; the message is dropped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// mu serialises publishes; an amqp.Channel is not safe for concurrent use.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects, then declares the orders exchange and the notifications queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Get().Info("RabbitMQ client connected",
		zap.String("exchange", OrdersExchange),
		zap.String("queue", NotificationsQueue),
	)
	return &Client{conn: conn, channel: ch}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		OrdersExchange, // name
		"topic",        // kind
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", OrdersExchange, err)
	}

	if _, err := ch.QueueDeclare(
		NotificationsQueue, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", NotificationsQueue, err)
	}

	if err := ch.QueueBind(NotificationsQueue, OrderEventsBinding, OrdersExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s queue: %w", NotificationsQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to the orders exchange, carrying
// the current trace context in its headers.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte) error {
	if c == nil || c.channel == nil {
		return ErrClosed
	}

	ctx, span := tracer.Start(ctx, "send "+OrdersExchange,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(OrdersExchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
		),
	)
	defer span.End()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{},
	}
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(msg.Headers))

	c.mu.Lock()
	err := c.channel.Publish(OrdersExchange, routingKey, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	logger.Get().Debug("Published order event", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

// Consume delivers messages from the notifications queue to handler until ctx
// is cancelled or the channel closes.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	if c == nil || c.channel == nil {
		return ErrClosed
	}

	msgs, err := c.channel.Consume(
		NotificationsQueue, // queue
		"",                 // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Get().Info("Waiting for order events", zap.String("queue", NotificationsQueue))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ErrClosed
			}
			processDelivery(ctx, msg, handler)
		}
	}
}

// processDelivery runs handler inside a consumer span and acks, drops or requeues.
func processDelivery(ctx context.Context, msg amqp.Delivery, handler Handler) {
	parent := otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(msg.Headers))
	spanCtx, span := tracer.Start(parent, "process "+NotificationsQueue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(NotificationsQueue),
			semconv.MessagingRabbitmqDestinationRoutingKey(msg.RoutingKey),
			attribute.Bool("messaging.redelivered", msg.Redelivered),
		),
	)
	defer span.End()

	log := logger.Get().With(zap.Uint64("delivery_tag", msg.DeliveryTag), zap.String("routing_key", msg.RoutingKey))

	err := handler(spanCtx, msg.Body)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Error("Failed to ack message", zap.Error(ackErr))
		}
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var perm *permanentError
	// A message that already came back once is not requeued again.
	requeue := !errors.As(err, &perm) && !msg.Redelivered
	log.Warn("Failed to process message", zap.Error(err), zap.Bool("requeue", requeue))
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		log.Error("Failed to nack message", zap.Error(nackErr))
	}
}
