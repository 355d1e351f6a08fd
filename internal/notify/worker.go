package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/metrics"
)

// Outbox is the durable notification queue the worker drains.
// Implemented by repository.OutboxRepository and memstore.Store.
type Outbox interface {
	ClaimNotifications(ctx context.Context, limit int, lease time.Duration) ([]*domain.Notification, error)
	MarkDelivered(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string, retryAt *time.Time) error
}

// WorkerConfig tunes the outbox worker. Zero values select the defaults in
// the config package.
type WorkerConfig struct {
	Interval    time.Duration
	Batch       int
	MaxAttempts int
	Lease       time.Duration
	Backoff     time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Interval <= 0 {
		c.Interval = config.DefaultDispatchInterval
	}
	if c.Batch <= 0 {
		c.Batch = config.DefaultDispatchBatch
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = config.DefaultDispatchMaxAttempts
	}
	if c.Lease <= 0 {
		c.Lease = config.DefaultDispatchLease
	}
	if c.Backoff <= 0 {
		c.Backoff = config.DefaultDispatchBackoff
	}
	return c
}

// DrainStats summarizes one drain cycle.
type DrainStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
}

// Worker periodically claims outbox records and dispatches them.
type Worker struct {
	outbox     Outbox
	dispatcher Dispatcher
	cfg        WorkerConfig
	metrics    metrics.Collector
	now        func() time.Time
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) WorkerOption {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithClock overrides the time source used for retry scheduling.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

// NewWorker creates a new outbox worker.
func NewWorker(outbox Outbox, dispatcher Dispatcher, cfg WorkerConfig, opts ...WorkerOption) *Worker {
	w := &Worker{
		outbox:     outbox,
		dispatcher: dispatcher,
		cfg:        cfg.withDefaults(),
		metrics:    metrics.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the outbox every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("notification worker started",
		"interval", w.cfg.Interval,
		"batch", w.cfg.Batch,
		"max_attempts", w.cfg.MaxAttempts,
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.drainAll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification worker stopped")
			return
		case <-ticker.C:
			w.drainAll(ctx)
		}
	}
}

// drainAll repeats full batches so a backlog does not wait for the next tick.
func (w *Worker) drainAll(ctx context.Context) {
	for ctx.Err() == nil {
		stats, err := w.DrainOnce(ctx)
		if err != nil {
			slog.Error("failed to claim notifications", "error", err)
			return
		}
		if stats.Claimed < w.cfg.Batch {
			return
		}
	}
}

// DrainOnce claims one batch and dispatches every record in it.
func (w *Worker) DrainOnce(ctx context.Context) (DrainStats, error) {
	var stats DrainStats

	batch, err := w.outbox.ClaimNotifications(ctx, w.cfg.Batch, w.cfg.Lease)
	if err != nil {
		return stats, err
	}
	stats.Claimed = len(batch)
	if len(batch) == 0 {
		return stats, nil
	}

	slog.Debug("dispatching notifications", "count", len(batch))

	for _, n := range batch {
		switch w.deliver(ctx, n) {
		case resultDelivered:
			stats.Delivered++
		case resultRetry:
			stats.Retried++
		case resultFailed:
			stats.Failed++
		}
	}

	return stats, nil
}

type result string

const (
	resultDelivered result = "delivered"
	resultRetry     result = "retry"
	resultFailed    result = "failed"
)

func (w *Worker) deliver(ctx context.Context, n *domain.Notification) result {
	sendErr := w.dispatcher.Send(ctx, n)
	if sendErr == nil {
		if err := w.outbox.MarkDelivered(ctx, n.ID); err != nil {
			slog.Error("failed to mark notification delivered", "notification_id", n.ID, "error", err)
		}
		w.metrics.RecordDispatch(string(n.Channel), string(resultDelivered))
		return resultDelivered
	}

	res := resultRetry
	var retryAt *time.Time
	if n.Attempts >= w.cfg.MaxAttempts {
		res = resultFailed
	} else {
		at := w.now().Add(w.cfg.Backoff * time.Duration(n.Attempts))
		retryAt = &at
	}

	slog.Warn("notification delivery failed",
		"notification_id", n.ID,
		"recipient", n.Recipient.String(),
		"channel", n.Channel,
		"attempt", n.Attempts,
		"final", res == resultFailed,
		"error", sendErr,
	)

	if err := w.outbox.MarkFailed(ctx, n.ID, sendErr.Error(), retryAt); err != nil {
		slog.Error("failed to record notification failure", "notification_id", n.ID, "error", err)
	}
	w.metrics.RecordDispatch(string(n.Channel), string(res))
	return res
}
