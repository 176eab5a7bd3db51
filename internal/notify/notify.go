// Package notify delivers kitchen alerts to staff roles.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Notifier sends a message to every member of the given roles.
type Notifier interface {
	NotifyRoles(ctx context.Context, message string, roles []string) error
}

// Message is the payload published for each role.
type Message struct {
	Role    string    `json:"role"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// LogNotifier writes notifications to a logger instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs at WARN. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// NotifyRoles logs the message once with the target roles.
func (n *LogNotifier) NotifyRoles(ctx context.Context, message string, roles []string) error {
	n.logger.WarnContext(ctx, "kitchen notification", "roles", strings.Join(roles, ","), "message", message)
	return nil
}

// publisher is the subset of *nats.Conn used for delivery.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// NATSNotifier publishes one JSON message per role on "<prefix>.<role>".
type NATSNotifier struct {
	conn    publisher
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// Connect dials the NATS server at url.
func Connect(url, prefix string, timeout time.Duration) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("kitchen-notify"),
		nats.Timeout(timeout),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	n := newNATSNotifier(nc, prefix, timeout)
	n.nc = nc
	return n, nil
}

func newNATSNotifier(conn publisher, prefix string, timeout time.Duration) *NATSNotifier {
	return &NATSNotifier{
		conn:    conn,
		prefix:  strings.TrimSuffix(prefix, "."),
		timeout: timeout,
		now:     time.Now,
	}
}

// Subject returns the subject a role's messages are published on.
func (n *NATSNotifier) Subject(role string) string {
	return n.prefix + "." + role
}

// NotifyRoles publishes to every role then flushes once. Per-role failures are joined.
func (n *NATSNotifier) NotifyRoles(ctx context.Context, message string, roles []string) error {
	if len(roles) == 0 {
		return nil
	}

	var errs []error
	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(Message{Role: role, Message: message, SentAt: n.now().UTC()})
		if err != nil {
			return fmt.Errorf("encoding notification: %w", err)
		}
		if err := n.conn.Publish(n.Subject(role), data); err != nil {
			errs = append(errs, fmt.Errorf("publishing to %s: %w", role, err))
		}
	}

	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout || timeout <= 0 {
			timeout = until
		}
	}
	if err := n.conn.FlushTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("flushing notifications: %w", err))
	}
	return errors.Join(errs...)
}

// Close drains the underlying connection when Connect created it.
func (n *NATSNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
