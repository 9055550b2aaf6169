package export_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"casework/internal/cases/export"
	"casework/internal/cases/metrics"
	"casework/internal/cases/models"
	"casework/pkg/domain"
	"casework/pkg/requestcontext"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func event(seq int, action models.AuditAction) export.Event {
	return export.Event{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(seq), byte(len(action))}),
		CaseNumber: "CR-20250601-4821",
		Seq:        seq,
		Category:   action.Category(),
		Action:     action,
		Timestamp:  baseTime.Add(time.Duration(seq) * time.Minute),
	}
}

func TestFromCase(t *testing.T) {
	ids := domain.NewSeededIDs(9)
	cmd := models.Command{Actor: models.Actor{ID: "sup-1", Name: "Dana Supervisor"}, At: baseTime, IDs: ids}
	c, err := models.NewCase(models.NewCaseParams{
		CaseNumber:   "CR-20250601-4821",
		Type:         models.CaseTypeInterpersonal,
		IncidentDate: baseTime,
		Location:     "Warehouse B",
		Department:   "Logistics",
	}, cmd)
	require.NoError(t, err)
	cmd.At = baseTime.Add(time.Minute)
	require.NoError(t, c.UpdateNotes("noted", cmd))

	ctx := requestcontext.WithRequestID(context.Background(), "req-7")
	events := export.FromCase(ctx, c, 1)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditNotesUpdated, events[0].Action)
	assert.Equal(t, models.CategoryOperations, events[0].Category)
	assert.Equal(t, 1, events[0].Seq)
	assert.Equal(t, c.ID(), events[0].CaseID)
	assert.Equal(t, "req-7", events[0].RequestID)

	all := export.FromCase(context.Background(), c, 0)
	require.Len(t, all, 2)
	assert.Equal(t, models.CategoryCompliance, all[0].Category)
	assert.Empty(t, export.FromCase(context.Background(), c, 2))
}

func TestSplitKeepsOrder(t *testing.T) {
	compliance, operations := export.Split([]export.Event{
		event(0, models.AuditCaseCreated),
		event(1, models.AuditNotesUpdated),
		event(2, models.AuditCaseOpened),
		event(3, models.AuditPolicyMatchAdded),
	})
	require.Len(t, compliance, 2)
	require.Len(t, operations, 2)
	assert.Equal(t, 0, compliance[0].Seq)
	assert.Equal(t, 2, compliance[1].Seq)
	assert.Equal(t, 3, operations[1].Seq)
}

// flakySink fails the next n publishes.
type flakySink struct {
	*export.MemoryPublisher
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakySink) Publish(ctx context.Context, events ...export.Event) error {
	f.mu.Lock()
	f.calls++
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("broker down")
	}
	f.mu.Unlock()
	return f.MemoryPublisher.Publish(ctx, events...)
}

type RouterSuite struct {
	suite.Suite
	sink    *flakySink
	metrics *metrics.Metrics
	ctx     context.Context
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.sink = &flakySink{MemoryPublisher: export.NewMemoryPublisher()}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.ctx = context.Background()
}

func (s *RouterSuite) TestComplianceIsSynchronous() {
	r := export.NewRouter(s.sink, export.WithMetrics(s.metrics))

	s.Require().NoError(r.Publish(s.ctx, event(0, models.AuditCaseCreated), event(1, models.AuditNotesUpdated)))

	published := s.sink.Events()
	s.Require().Len(published, 1, "only the compliance event is delivered inline")
	s.Equal(models.AuditCaseCreated, published[0].Action)
	s.Equal(1, r.Pending())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ExportedEvents.WithLabelValues("compliance", "ok")))
}

func (s *RouterSuite) TestComplianceFailureFailsTheCaller() {
	s.sink.fails = 1
	r := export.NewRouter(s.sink, export.WithMetrics(s.metrics))

	err := r.Publish(s.ctx, event(0, models.AuditCaseClosed))
	s.Require().Error(err)
	s.Contains(err.Error(), "compliance audit export failed")
	s.Empty(s.sink.Events())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ExportedEvents.WithLabelValues("compliance", "error")))
}

func (s *RouterSuite) TestComplianceFailureStillQueuesOperations() {
	s.sink.fails = 1
	r := export.NewRouter(s.sink, export.WithMetrics(s.metrics))

	err := r.Publish(s.ctx, event(0, models.AuditCaseClosed), event(1, models.AuditNotesUpdated))
	s.Require().Error(err)
	s.Equal(1, r.Pending(), "the operational event waits for the next flush")

	n, err := r.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	published := s.sink.Events()
	s.Require().Len(published, 1)
	s.Equal(models.AuditNotesUpdated, published[0].Action)
}

func (s *RouterSuite) TestFlushDrainsOperationsInBatches() {
	r := export.NewRouter(s.sink, export.WithBatchSize(2))
	for i := range 5 {
		s.Require().NoError(r.Publish(s.ctx, event(i, models.AuditNotesUpdated)))
	}

	n, err := r.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, n)
	s.Equal(3, s.sink.calls)
	s.Zero(r.Pending())

	var seqs []int
	for _, e := range s.sink.Events() {
		seqs = append(seqs, e.Seq)
	}
	s.Equal([]int{0, 1, 2, 3, 4}, seqs)
}

func (s *RouterSuite) TestFailedBatchIsRetriedInOrder() {
	s.sink.fails = 1
	r := export.NewRouter(s.sink, export.WithBatchSize(2))
	for i := range 3 {
		s.Require().NoError(r.Publish(s.ctx, event(i, models.AuditRecommendationAdded)))
	}

	_, err := r.Flush(s.ctx)
	s.Require().Error(err)
	s.Equal(3, r.Pending())

	n, err := r.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Equal(0, s.sink.Events()[0].Seq)
}

func (s *RouterSuite) TestBreakerPausesBackgroundPublishing() {
	s.sink.fails = 10
	r := export.NewRouter(s.sink, export.WithBreaker(2, time.Hour))
	s.Require().NoError(r.Publish(s.ctx, event(0, models.AuditNotesUpdated)))

	_, err := r.Flush(s.ctx)
	s.Require().Error(err)
	_, err = r.Flush(s.ctx)
	s.Require().Error(err)
	calls := s.sink.calls

	_, err = r.Flush(s.ctx)
	s.Require().Error(err)
	s.Contains(err.Error(), "paused")
	s.Equal(calls, s.sink.calls, "an open breaker makes no attempt")
	s.Equal(1, r.Pending())
}

func (s *RouterSuite) TestFullBufferDropsOldest() {
	r := export.NewRouter(s.sink, export.WithBufferSize(2), export.WithMetrics(s.metrics))
	for i := range 3 {
		s.Require().NoError(r.Publish(s.ctx, event(i, models.AuditNotesUpdated)))
	}
	s.Equal(2, r.Pending())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ExportDropped))

	_, err := r.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.sink.Events()[0].Seq)
}

func (s *RouterSuite) TestRunFlushesOnShutdown() {
	r := export.NewRouter(s.sink, export.WithFlushInterval(time.Hour))
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	s.Require().NoError(r.Publish(s.ctx, event(0, models.AuditPolicyMatchAdded)))
	s.Eventually(func() bool { return len(s.sink.Events()) == 1 }, time.Second, 10*time.Millisecond)

	s.Require().NoError(r.Publish(s.ctx, event(1, models.AuditPolicyMatchAdded)))
	cancel()
	s.Require().NoError(<-done)
	s.Len(s.sink.Events(), 2)
}

// memoryOutbox is an Outbox over a slice.
type memoryOutbox struct {
	events    []export.Event
	published map[uuid.UUID]bool
	markErr   error
}

func (o *memoryOutbox) Pending(_ context.Context, limit int) ([]export.Event, error) {
	var out []export.Event
	for _, e := range o.events {
		if !o.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *memoryOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	if o.markErr != nil {
		return o.markErr
	}
	for _, id := range ids {
		o.published[id] = true
	}
	return nil
}

func TestRelay(t *testing.T) {
	outbox := &memoryOutbox{published: map[uuid.UUID]bool{}}
	for i := range 5 {
		outbox.events = append(outbox.events, event(i, models.AuditDocumentAttached))
	}
	sink := export.NewMemoryPublisher()
	relay := export.NewRelay(outbox, sink, export.WithRelayBatchSize(2))

	t.Run("drains in batches", func(t *testing.T) {
		n, err := relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Len(t, sink.Events(), 5)
	})

	t.Run("sink failure leaves events pending", func(t *testing.T) {
		outbox.events = append(outbox.events, event(5, models.AuditDocumentReviewed))
		sink.FailWith(errors.New("broker down"))
		_, err := relay.RelayOnce(context.Background())
		require.Error(t, err)

		pending, _ := outbox.Pending(context.Background(), 10)
		assert.Len(t, pending, 1)

		sink.FailWith(nil)
		n, err := relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("mark failure is reported and the batch is published again later", func(t *testing.T) {
		outbox.events = append(outbox.events, event(6, models.AuditDocumentSigned))
		outbox.markErr = errors.New("db down")
		_, err := relay.RelayOnce(context.Background())
		require.Error(t, err)

		outbox.markErr = nil
		_, err = relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Len(t, sink.Events(), 8, "at-least-once: the unmarked event is delivered twice")
	})
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := export.NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), event(0, models.AuditCaseCreated), event(1, models.AuditNotesUpdated)))
	require.NoError(t, p.Close())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"action":"case_created"`)
	assert.Contains(t, string(lines[1]), `"case_number":"CR-20250601-4821"`)
}
