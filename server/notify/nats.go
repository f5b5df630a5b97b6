package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds NATS publisher configuration
type Config struct {
	URL            string        `yaml:"url" mapstructure:"url"`
	Subject        string        `yaml:"subject" mapstructure:"subject"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait" mapstructure:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects" mapstructure:"max_reconnects"`
}

// DefaultConfig returns a default NATS configuration
func DefaultConfig() *Config {
	return &Config{
		URL:            nats.DefaultURL,
		Subject:        "calshare.changes",
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  10,
	}
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	IsClosed() bool
	Close()
}

// Publisher sends changes to a NATS subject as JSON.
type Publisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to NATS with the given configuration
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	options := []nats.Option{
		nats.Name("calshare"),
		nats.Timeout(config.ConnectTimeout),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	logger.Info("NATS publisher initialized",
		"url", config.URL,
		"subject", config.Subject,
		"connected_url", nc.ConnectedUrl())

	return newPublisher(nc, config.Subject, logger), nil
}

func newPublisher(c conn, subject string, logger *slog.Logger) *Publisher {
	return &Publisher{conn: c, subject: subject, logger: logger}
}

// Notify implements Notifier
func (p *Publisher) Notify(ctx context.Context, change Change) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is not available")
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}

	p.logger.Debug("published change",
		"subject", p.subject,
		"kind", change.Kind,
		"calendar_id", change.CalendarID)
	return nil
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		p.logger.Warn("failed to flush messages on close", "error", err)
	}
	p.conn.Close()
	p.logger.Info("NATS publisher closed")
	return nil
}
