package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"casework/internal/cases/metrics"
	"casework/internal/cases/models"
	"casework/pkg/platform/sentinel"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	shutdownFlushTimeout = 5 * time.Second
)

// Router splits events by category in front of a sink. Compliance events go to the sink
// synchronously and a failure is returned to the caller. Operational events are queued and
// drained by Run.
type Router struct {
	sink      Publisher
	buffer    *ringBuffer
	breaker   *breaker
	batchSize int
	interval  time.Duration
	wake      chan struct{}
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Router.
type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithBufferSize bounds the number of queued operational events.
func WithBufferSize(n int) Option {
	return func(r *Router) { r.buffer = newRingBuffer(n) }
}

func WithBatchSize(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBreaker opens background publishing after threshold consecutive failures for cooldown.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(r *Router) { r.breaker = newBreaker(threshold, cooldown) }
}

func NewRouter(sink Publisher, opts ...Option) *Router {
	r := &Router{
		sink:      sink,
		buffer:    newRingBuffer(0),
		breaker:   newBreaker(0, 0),
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
		wake:      make(chan struct{}, 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish delivers compliance events and queues operational ones. Operational events from the
// same call are queued even when the compliance delivery fails.
func (r *Router) Publish(ctx context.Context, events ...Event) error {
	compliance, operations := Split(events)

	var complianceErr error
	if len(compliance) > 0 {
		if err := r.sink.Publish(ctx, compliance...); err != nil {
			r.metrics.AddExported(string(models.CategoryCompliance), "error", len(compliance))
			r.logger.ErrorContext(ctx, "CRITICAL: compliance audit export failed",
				"case_id", compliance[0].CaseID,
				"actions", len(compliance),
				"error", err,
			)
			complianceErr = fmt.Errorf("compliance audit export failed: %w", err)
		} else {
			r.metrics.AddExported(string(models.CategoryCompliance), "ok", len(compliance))
		}
	}

	if len(operations) > 0 {
		r.enqueue(operations)
	}
	return complianceErr
}

func (r *Router) enqueue(operations []Event) {
	for _, e := range operations {
		if r.buffer.enqueue(e) {
			r.metrics.IncrementExportDropped()
		}
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending is the number of queued operational events.
func (r *Router) Pending() int {
	return r.buffer.len()
}

// Run drains queued operational events until ctx is done, then makes one bounded final flush.
func (r *Router) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			_, _ = r.Flush(flushCtx)
			cancel()
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
		_, _ = r.Flush(ctx)
	}
}

// Flush publishes queued operational events in batches until the queue is empty or a publish
// fails. A failed batch goes back to the front of the queue.
func (r *Router) Flush(ctx context.Context) (int, error) {
	published := 0
	for {
		if !r.breaker.allow() {
			return published, fmt.Errorf("operations export paused: %w", sentinel.ErrUnavailable)
		}
		batch := r.buffer.dequeueBatch(r.batchSize)
		if len(batch) == 0 {
			return published, nil
		}
		if err := r.sink.Publish(ctx, batch...); err != nil {
			opened := r.breaker.failure()
			dropped := r.buffer.requeueFront(batch)
			for range dropped {
				r.metrics.IncrementExportDropped()
			}
			r.metrics.AddExported(string(models.CategoryOperations), "error", len(batch))
			r.logger.WarnContext(ctx, "operations audit export failed",
				"batch", len(batch),
				"dropped", dropped,
				"breaker_open", opened,
				"error", err,
			)
			return published, err
		}
		r.breaker.success()
		r.metrics.AddExported(string(models.CategoryOperations), "ok", len(batch))
		published += len(batch)
	}
}

func (r *Router) Close() error {
	return r.sink.Close()
}
