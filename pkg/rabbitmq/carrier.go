package rabbitmq

import (
	amqp "github.com/streadway/amqp"
)

// HeaderCarrier adapts AMQP message headers for trace context propagation.
type HeaderCarrier struct {
	headers amqp.Table
}

func NewHeaderCarrier(headers amqp.Table) *HeaderCarrier {
	return &HeaderCarrier{headers: headers}
}

func (c *HeaderCarrier) Get(key string) string {
	switch v := c.headers[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func (c *HeaderCarrier) Set(key, value string) {
	if c.headers == nil {
		return
	}
	c.headers[key] = value
}

func (c *HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}
