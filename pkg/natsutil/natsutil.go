// Package natsutil provides typed NATS publish/subscribe helpers with
// OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers. Payloads
// larger than the server's limit are rejected before sending.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsutil: marshal %s: %w", subject, err)
	}
	if limit := nc.MaxPayload(); limit > 0 && int64(len(data)) > limit {
		return fmt.Errorf("natsutil: %s: %w (%d > %d bytes)", subject, nats.ErrMaxPayload, len(data), limit)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return nc.PublishMsg(msg)
}

// ErrorHandler is told about messages that could not be decoded.
type ErrorHandler func(msg *nats.Msg, err error)

// Subscribe registers a handler that deserializes JSON messages of type T.
// Trace context is extracted from NATS message headers and passed to the handler.
// Malformed messages are dropped after being reported to onError, which may
// be nil.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T), onError ErrorHandler) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			if onError != nil {
				onError(msg, fmt.Errorf("natsutil: decode %s: %w", msg.Subject, err))
			}
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, v)
	})
}
