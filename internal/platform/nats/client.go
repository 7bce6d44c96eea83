// Package nats wraps a NATS connection for the holder notification channel.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"vcanchor/internal/platform/config"
)

// Client holds a live NATS connection.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials NATS. It returns nil, nil when no URL is configured.
func Connect(cfg config.NATS, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("vcanchor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Info("connected to NATS", "url", conn.ConnectedUrl())
	return &Client{conn: conn, logger: logger}, nil
}

// Conn exposes the underlying connection for publishers and subscribers.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

func (c *Client) Name() string {
	return "nats"
}

// Check implements health.Checker.
func (c *Client) Check(ctx context.Context) error {
	if c.conn.Status() != nats.CONNECTED {
		return fmt.Errorf("nats status %s", c.conn.Status())
	}
	deadline, ok := ctx.Deadline()
	timeout := 2 * time.Second
	if ok {
		timeout = time.Until(deadline)
	}
	if err := c.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// Drain unsubscribes, flushes pending publishes and closes the connection.
func (c *Client) Drain() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		c.logger.Warn("nats drain failed", "error", err)
		c.conn.Close()
		return err
	}
	c.logger.Info("NATS connection drained")
	return nil
}
