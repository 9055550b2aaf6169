package export

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Publisher delivers events to a sink. Publish returns only after the sink acknowledged every
// event or one of them failed.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// MemoryPublisher records published events in process. Tests and the memory deployment use it.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, events ...Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, events...)
	return nil
}

// FailWith makes subsequent Publish calls return err. A nil err restores delivery.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

func (p *MemoryPublisher) Close() error { return nil }

// LogPublisher writes every event as a structured log line. The server uses it when no Kafka
// brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "case audit event",
			"event_id", e.ID.String(),
			"case_id", e.CaseID.String(),
			"case_number", e.CaseNumber,
			"seq", e.Seq,
			"category", string(e.Category),
			"action", string(e.Action),
			"actor_id", e.ActorID,
			"details", e.Details,
			"timestamp", e.Timestamp,
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
