// Package notify delivers outbox notifications to external channels.
//
// State transitions write notifications to the outbox inside their own
// transaction; a Worker later claims them and hands each to a Dispatcher.
// Delivery is best effort: failures are retried with backoff and finally
// recorded on the outbox row, never reported back to the state machine.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/kindroute/internal/domain"
)

// Dispatcher delivers one notification.
type Dispatcher interface {
	Send(ctx context.Context, n *domain.Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n *domain.Notification) error

// Send calls f.
func (f DispatcherFunc) Send(ctx context.Context, n *domain.Notification) error {
	return f(ctx, n)
}

// LogDispatcher writes notifications to a structured logger.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a LogDispatcher. A nil logger uses slog.Default().
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Send logs the notification.
func (d *LogDispatcher) Send(ctx context.Context, n *domain.Notification) error {
	d.logger.InfoContext(ctx, "notification",
		"notification_id", n.ID,
		"recipient", n.Recipient.String(),
		"channel", n.Channel,
		"type", n.Type,
		"title", n.Title,
		"reference_id", n.ReferenceID,
	)
	return nil
}

// MultiDispatcher routes notifications by channel.
type MultiDispatcher struct {
	routes   map[domain.NotificationChannel]Dispatcher
	fallback Dispatcher
}

// NewMultiDispatcher creates a router. Channels without a route go to
// fallback; a nil fallback makes them an error.
func NewMultiDispatcher(routes map[domain.NotificationChannel]Dispatcher, fallback Dispatcher) *MultiDispatcher {
	return &MultiDispatcher{routes: routes, fallback: fallback}
}

// Send delivers n through the dispatcher registered for its channel.
func (d *MultiDispatcher) Send(ctx context.Context, n *domain.Notification) error {
	if target, ok := d.routes[n.Channel]; ok {
		return target.Send(ctx, n)
	}
	if d.fallback != nil {
		return d.fallback.Send(ctx, n)
	}
	return fmt.Errorf("no dispatcher for channel %q", n.Channel)
}
