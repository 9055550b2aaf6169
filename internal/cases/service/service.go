// Package service runs case commands against a repository.
//
// Every mutating call follows the same unit of work: load the case, apply one command, save it
// with optimistic concurrency, then hand the audit entries the command appended to the exporter.
// Commands for the same case are serialized within the process; across processes the repository
// rejects the loser with models.ErrStaleWrite, which is returned to the caller unretried.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"casework/internal/cases/export"
	"casework/internal/cases/metrics"
	"casework/internal/cases/models"
	"casework/internal/policy"
	"casework/pkg/attrs"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
	"casework/pkg/requestcontext"
)

// Repository persists cases. See package store for the contract.
type Repository interface {
	Create(ctx context.Context, c *models.ConflictCase) error
	Load(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error)
	FindByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error)
	Save(ctx context.Context, c *models.ConflictCase) error
}

// Publisher receives the audit entries appended by each successful command.
type Publisher interface {
	Publish(ctx context.Context, events ...export.Event) error
}

// PolicyIndex resolves policy sections for matches and searches.
type PolicyIndex interface {
	Section(policyID domain.PolicyID, sectionID domain.SectionID) (policy.Section, error)
	Search(policyID domain.PolicyID, query string, types ...policy.SectionType) ([]policy.Section, error)
}

// Op is one command applied to a loaded case.
type Op func(c *models.ConflictCase, cmd models.Command) error

const defaultNumberAttempts = 5

var tracer = otel.Tracer("casework/internal/cases/service")

// Service orchestrates case commands.
type Service struct {
	repo      Repository
	publisher Publisher
	policies  PolicyIndex
	ids       domain.IDGenerator
	numbers   models.NumberSource
	attempts  int
	locks     *caseLocks
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher exports audit entries after each save. Without one the repository is expected to
// queue them itself (transactional outbox).
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithPolicyIndex(ix PolicyIndex) Option {
	return func(s *Service) { s.policies = ix }
}

// WithIDs replaces the random identifier source.
func WithIDs(ids domain.IDGenerator) Option {
	return func(s *Service) { s.ids = ids }
}

// WithNumberSource replaces the random case-number suffix source.
func WithNumberSource(src models.NumberSource) Option {
	return func(s *Service) { s.numbers = src }
}

// WithNumberAttempts bounds case-number regeneration after collisions.
func WithNumberAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func New(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ids:      domain.RandomIDs{},
		numbers:  models.RandomNumbers{},
		attempts: defaultNumberAttempts,
		locks:    newCaseLocks(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// command builds the command envelope from the request context.
func (s *Service) command(ctx context.Context) (models.Command, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		return models.Command{}, dErrors.New(dErrors.CodeUnauthorized, "an authenticated actor is required")
	}
	return models.Command{
		Actor: models.Actor{ID: actorID, Name: requestcontext.ActorName(ctx)},
		At:    requestcontext.Now(ctx).UTC(),
		IDs:   s.ids,
	}, nil
}

// CreateCaseParams describes a new case. The case number is generated.
type CreateCaseParams struct {
	Type           models.CaseType
	IncidentDate   time.Time
	Location       string
	Department     string
	Shift          string
	ActivePolicyID *domain.PolicyID
}

// CreateCase creates a draft case under a fresh case number, drawing a new number when the
// repository reports a collision.
func (s *Service) CreateCase(ctx context.Context, p CreateCaseParams) (*models.ConflictCase, error) {
	ctx, span := tracer.Start(ctx, "cases.CreateCase")
	defer span.End()

	cmd, err := s.command(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, "create_case", err)
	}

	var c *models.ConflictCase
	for attempt := 1; ; attempt++ {
		c, err = models.NewCase(models.NewCaseParams{
			CaseNumber:     models.NextCaseNumber(cmd.At, s.numbers),
			Type:           p.Type,
			IncidentDate:   p.IncidentDate,
			Location:       p.Location,
			Department:     p.Department,
			Shift:          p.Shift,
			ActivePolicyID: p.ActivePolicyID,
		}, cmd)
		if err != nil {
			return nil, s.fail(ctx, span, "create_case", err)
		}
		err = s.repo.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrCaseNumberTaken) {
			return nil, s.fail(ctx, span, "create_case", err)
		}
		s.metrics.IncrementNumberCollisions()
		s.logger.WarnContext(ctx, "case number collision",
			"case_number", c.CaseNumber(),
			"attempt", attempt,
		)
		if attempt >= s.attempts {
			return nil, s.fail(ctx, span, "create_case",
				dErrors.Wrap(err, dErrors.CodeConflict, "no free case number after repeated attempts"))
		}
	}

	span.SetAttributes(attribute.String("case.id", c.ID().String()), attribute.String("case.number", c.CaseNumber()))
	s.export(ctx, c, 0)
	s.metrics.IncrementCommand("create_case", "ok")
	s.logAudit(ctx, string(models.AuditCaseCreated),
		"case_id", c.ID().String(),
		"case_number", c.CaseNumber(),
		"case_type", string(c.Type()),
	)
	return c, nil
}

// Get loads a case.
func (s *Service) Get(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error) {
	c, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, translate(err, "load case")
	}
	return c, nil
}

// GetByNumber loads a case by its human-readable number.
func (s *Service) GetByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error) {
	if !models.ValidCaseNumber(caseNumber) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid case number: "+caseNumber)
	}
	c, err := s.repo.FindByNumber(ctx, caseNumber)
	if err != nil {
		return nil, translate(err, "load case")
	}
	return c, nil
}

// Execute applies op to the stored case and persists the result. A command that changed nothing
// (an idempotent repeat) is not saved. The returned case reflects the stored state.
func (s *Service) Execute(ctx context.Context, id domain.CaseID, name string, op Op) (*models.ConflictCase, error) {
	ctx, span := tracer.Start(ctx, "cases."+name, trace.WithAttributes(attribute.String("case.id", id.String())))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveCommandLatency(time.Since(start)) }()

	cmd, err := s.command(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, name, err)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, name, translate(err, "load case"))
	}
	span.SetAttributes(attribute.String("case.number", c.CaseNumber()))

	before := c.AuditLen()
	if err := op(c, cmd); err != nil {
		return nil, s.fail(ctx, span, name, err, "case_id", id.String(), "case_number", c.CaseNumber())
	}
	if c.AuditLen() == before {
		s.metrics.IncrementCommand(name, "noop")
		return c, nil
	}

	if err := s.repo.Save(ctx, c); err != nil {
		if errors.Is(err, models.ErrStaleWrite) {
			s.metrics.IncrementStaleWrites()
		}
		return nil, s.fail(ctx, span, name, translate(err, "save case"), "case_id", id.String(), "case_number", c.CaseNumber())
	}

	s.export(ctx, c, before)
	s.metrics.IncrementCommand(name, "ok")
	for _, e := range c.AuditSince(before) {
		s.logAudit(ctx, string(e.Action),
			"case_id", id.String(),
			"case_number", c.CaseNumber(),
			"details", e.Details,
		)
	}
	return c, nil
}

// export hands the entries appended after the first from to the publisher. The case is already
// saved, so a failure is logged rather than returned: repeating the command would record it twice.
func (s *Service) export(ctx context.Context, c *models.ConflictCase, from int) {
	if s.publisher == nil {
		return
	}
	events := export.FromCase(ctx, c, from)
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.ErrorContext(ctx, "audit export failed after save",
			"case_id", c.ID().String(),
			"case_number", c.CaseNumber(),
			"events", len(events),
			"error", err,
		)
	}
}

// fail records a command failure on the span, metrics and log, and returns err.
func (s *Service) fail(ctx context.Context, span trace.Span, name string, err error, attributes ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.IncrementCommand(name, string(dErrors.CodeOf(err)))

	level := slog.LevelInfo
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	args := append(attributes, "command", name, "error", err)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.Log(ctx, level, "case command rejected", args...)
	return err
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit", "actor_id", requestcontext.ActorID(ctx))
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	trace.SpanFromContext(ctx).AddEvent(event, trace.WithAttributes(
		attrs.SpanAttributes(attributes, "case_id", "case_number", "request_id")...,
	))
}

// translate maps infrastructure errors that escaped the repository without a domain code.
func translate(err error, action string) error {
	switch {
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "case was modified concurrently")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, action+" timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
}
