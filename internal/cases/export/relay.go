package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"casework/internal/cases/metrics"
)

// Outbox is a durable queue of events written in the same transaction as the case they
// describe.
type Outbox interface {
	// Pending returns up to limit unpublished events, oldest first.
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Relay moves events from an Outbox to a sink. Delivery is at-least-once: a crash between
// publish and MarkPublished republishes the batch, and consumers deduplicate on Event.ID.
type Relay struct {
	outbox    Outbox
	sink      Publisher
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithRelayInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRelayBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(outbox Outbox, sink Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		sink:      sink,
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every tick until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes pending events batch by batch until the outbox is drained or a step fails.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	relayed := 0
	for {
		events, err := r.outbox.Pending(ctx, r.batchSize)
		if err != nil {
			return relayed, err
		}
		if len(events) == 0 {
			return relayed, nil
		}
		if err := r.sink.Publish(ctx, events...); err != nil {
			for _, e := range events {
				r.metrics.AddExported(string(e.Category), "error", 1)
			}
			return relayed, err
		}
		ids := make([]uuid.UUID, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
			r.metrics.AddExported(string(e.Category), "ok", 1)
		}
		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return relayed, err
		}
		relayed += len(events)
		if len(events) < r.batchSize {
			return relayed, nil
		}
	}
}
