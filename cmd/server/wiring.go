package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casework/internal/cases/export"
	casehandler "casework/internal/cases/handler"
	casemetrics "casework/internal/cases/metrics"
	"casework/internal/cases/service"
	"casework/internal/cases/store"
	"casework/internal/platform/actor"
	"casework/internal/platform/config"
	httpmetrics "casework/internal/platform/metrics"
	"casework/internal/platform/postgres"
	"casework/internal/platform/redis"
	"casework/internal/policy"
	policyhandler "casework/internal/policy/handler"
	"casework/pkg/platform/httputil"
	"casework/pkg/platform/middleware/admin"
	"casework/pkg/platform/middleware/auth"
	"casework/pkg/platform/middleware/device"
	"casework/pkg/platform/middleware/metadata"
	"casework/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout      = 30 * time.Second
	auditBufferSize     = 10_000
	breakerThreshold    = 5
	breakerCooldown     = 30 * time.Second
	topicPartitions     = 3
	topicReplication    = 1
	healthCheckTimeout  = 2 * time.Second
	startupCheckTimeout = 10 * time.Second
)

type healthCheck func(ctx context.Context) error

// app is the wired server: the router, background workers and everything to close on exit.
type app struct {
	router  http.Handler
	workers []func(ctx context.Context) error
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{}
	caseMetrics := casemetrics.New()
	checks := map[string]healthCheck{}

	registry := policy.NewRegistry(nil)
	if cfg.PolicyFile != "" {
		policies, err := policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		for _, p := range policies {
			if err := registry.Register(p); err != nil {
				return nil, fmt.Errorf("register policy %s: %w", p.ID, err)
			}
		}
		log.Info("policies loaded", "file", cfg.PolicyFile, "count", len(policies))
	}

	sink, err := auditSink(ctx, cfg, log, checks)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sink.Close)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(caseMetrics),
		service.WithPolicyIndex(registry.Index()),
		service.WithNumberAttempts(cfg.CaseNumberAttempts),
	}

	var repo service.Repository
	switch cfg.Store {
	case config.StorePostgres:
		db, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		pg := store.NewPostgres(db)
		checks["postgres"] = pg.Health
		repo = pg

		// The store queues audit entries in its outbox inside the save transaction; the relay
		// is the only publisher.
		relay := export.NewRelay(pg, sink, export.WithRelayLogger(log), export.WithRelayMetrics(caseMetrics))
		a.workers = append(a.workers, relay.Run)

	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		checks["redis"] = client.Health
		repo = store.NewRedis(client.Client, cfg.Redis.KeyPrefix)
		opts = append(opts, service.WithPublisher(a.exportRouter(sink, log, caseMetrics)))

	default:
		repo = store.NewMemory()
		opts = append(opts, service.WithPublisher(a.exportRouter(sink, log, caseMetrics)))
	}

	svc := service.New(repo, opts...)
	tokens := actor.NewTokenService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	a.router = routes(svc, registry, tokens, cfg, log, checks)
	return a, nil
}

// exportRouter puts an export.Router in front of sink and schedules its drain loop.
func (a *app) exportRouter(sink export.Publisher, log *slog.Logger, m *casemetrics.Metrics) *export.Router {
	r := export.NewRouter(sink,
		export.WithLogger(log),
		export.WithMetrics(m),
		export.WithBufferSize(auditBufferSize),
		export.WithBreaker(breakerThreshold, breakerCooldown),
	)
	a.workers = append(a.workers, r.Run)
	return r
}

func auditSink(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]healthCheck) (export.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("no kafka brokers configured, audit events are written to the log")
		return export.NewLogPublisher(log), nil
	}
	kafka, err := export.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, err
	}
	startCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()
	if err := kafka.EnsureTopic(startCtx, topicPartitions, topicReplication); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	checks["kafka"] = kafka.Ping
	return kafka, nil
}

func openPostgres(ctx context.Context, cfg config.Server, log *slog.Logger) (*sql.DB, error) {
	startCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()
	db, err := postgres.Open(startCtx, cfg.DatabaseURL, postgres.PoolConfig{})
	if err != nil {
		return nil, err
	}
	applied, err := store.Migrate(startCtx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", "versions", applied)
	}
	return db, nil
}

func routes(svc *service.Service, registry *policy.Registry, tokens auth.TokenValidator, cfg config.Server, log *slog.Logger, checks map[string]healthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpmetrics.New().Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(checks, log))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))
		r.Use(auth.RequireActor(tokens, log))
		r.Use(device.Middleware)
		casehandler.New(svc, log).Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, log))
		policyhandler.New(registry, log).Register(r)
	})
	return r
}

func readiness(checks map[string]healthCheck, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		status := map[string]string{}
		var failed []error
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				failed = append(failed, fmt.Errorf("%s: %w", name, err))
				continue
			}
			status[name] = "ok"
		}
		if len(failed) > 0 {
			log.WarnContext(ctx, "readiness check failed", "error", errors.Join(failed...))
			httputil.WriteJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}
