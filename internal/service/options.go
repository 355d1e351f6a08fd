package service

import (
	"time"

	"github.com/mtlprog/kindroute/internal/metrics"
)

type options struct {
	now     func() time.Time
	metrics metrics.Collector
}

func defaultOptions() options {
	return options{
		now:     func() time.Time { return time.Now().UTC() },
		metrics: metrics.NewNop(),
	}
}

// Option configures a service.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
