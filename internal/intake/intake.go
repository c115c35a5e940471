// Package intake receives work over NATS: bucket notifications on one
// subject and compressed stream payloads on another.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
)

// ObjectHandler processes one announced object reference.
type ObjectHandler func(ctx context.Context, ref ObjectRef) error

// StreamHandler processes one raw stream payload.
type StreamHandler func(ctx context.Context, payload []byte) error

// Client is a NATS consumer for the loader's intake subjects.
type Client struct {
	conn *nats.Conn
	cfg  config.IntakeConfig
	log  *logging.Logger

	subs []*nats.Subscription
}

// Connect establishes the NATS connection with reconnect handling.
func Connect(cfg config.IntakeConfig, log *logging.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("telhawk-loader"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logging.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn, cfg: cfg, log: log}, nil
}

// SubscribeObjects consumes bucket notifications on the object subject.
// Subscribers share the configured queue group so each notification is
// handled once across the fleet.
func (c *Client) SubscribeObjects(ctx context.Context, handler ObjectHandler) error {
	sub, err := c.conn.QueueSubscribe(c.cfg.ObjectSubject, c.cfg.QueueGroup, func(msg *nats.Msg) {
		refs, err := ParseObjectNotification(msg.Data)
		if err != nil {
			c.log.Error("dropping malformed bucket notification",
				logging.Channel("s3"), logging.Err(err))
			return
		}
		for _, ref := range refs {
			if err := handler(ctx, ref); err != nil {
				c.log.Error("object handling failed",
					"bucket", ref.Bucket, "key", ref.Key, logging.Err(err))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", c.cfg.ObjectSubject, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

// SubscribeStreams consumes compressed stream payloads.
func (c *Client) SubscribeStreams(ctx context.Context, handler StreamHandler) error {
	sub, err := c.conn.QueueSubscribe(c.cfg.StreamSubject, c.cfg.QueueGroup, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			c.log.Error("stream handling failed",
				logging.Channel("stream"), logging.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", c.cfg.StreamSubject, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

// Publish sends a payload to a subject. Used by the replay command to
// feed stored objects back through the pipeline.
func (c *Client) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Drain unsubscribes and lets in-flight messages finish.
func (c *Client) Drain() error {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			return err
		}
	}
	return c.conn.Drain()
}

// Close tears the connection down immediately.
func (c *Client) Close() {
	c.conn.Close()
}
