package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"casework/internal/cases/export"
	"casework/internal/cases/models"
	"casework/internal/platform/postgres"
	"casework/pkg/domain"
	txcontext "casework/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	uniqueViolation      = "23505"
	caseNumberConstraint = "cases_case_number_key"
	casePrimaryKey       = "cases_pkey"
)

// Migrate applies the case schema.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	return postgres.Migrate(ctx, db, migrations, "migrations")
}

// Postgres stores each case as a JSONB document. In the same transaction as every write it
// mirrors the new audit entries into the append-only case_audit_log table and queues them in
// case_outbox for export.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// version is the updatedAt value as Postgres stores it.
func version(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (s *Postgres) Create(ctx context.Context, c *models.ConflictCase) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	err = txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO cases (id, case_number, status, case_type, document, created_at, updated_at, audit_len)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.UUID(c.ID()), c.CaseNumber(), string(c.Status()), string(c.Type()), string(data), c.CreatedAt(), version(c.UpdatedAt()), c.AuditLen())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				switch pgErr.ConstraintName {
				case caseNumberConstraint:
					return numberTaken(c.CaseNumber())
				case casePrimaryKey:
					return caseExists(c.ID())
				}
			}
			return fmt.Errorf("insert case: %w", err)
		}
		return s.appendTrail(ctx, c, 0)
	})
	if err != nil {
		return err
	}
	c.MarkPersisted()
	return nil
}

func (s *Postgres) Load(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error) {
	return s.loadWhere(ctx, `SELECT document FROM cases WHERE id = $1`, uuid.UUID(id), id.String())
}

func (s *Postgres) FindByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error) {
	return s.loadWhere(ctx, `SELECT document FROM cases WHERE case_number = $1`, caseNumber, caseNumber)
}

func (s *Postgres) loadWhere(ctx context.Context, query string, key any, label string) (*models.ConflictCase, error) {
	var doc []byte
	err := s.execer(ctx).QueryRowContext(ctx, query, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, caseNotFound(label)
	}
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", label, err)
	}
	return Unmarshal(doc)
}

func (s *Postgres) Save(ctx context.Context, c *models.ConflictCase) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	err = txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.execer(ctx).ExecContext(ctx, `
			UPDATE cases
			SET status = $2, case_type = $3, document = $4, updated_at = $5, audit_len = $6
			WHERE id = $1 AND updated_at = $7 AND audit_len = $8
		`, uuid.UUID(c.ID()), string(c.Status()), string(c.Type()), string(data), version(c.UpdatedAt()), c.AuditLen(),
			version(c.PersistedUpdatedAt()), c.PersistedAuditLen())
		if err != nil {
			return fmt.Errorf("update case: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update case: %w", err)
		}
		if n == 0 {
			return s.missOrStale(ctx, c)
		}

		var mirrored int
		if err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq) + 1, 0) FROM case_audit_log WHERE case_id = $1`, uuid.UUID(c.ID()),
		).Scan(&mirrored); err != nil {
			return fmt.Errorf("count audit mirror: %w", err)
		}
		return s.appendTrail(ctx, c, mirrored)
	})
	if err != nil {
		return err
	}
	c.MarkPersisted()
	return nil
}

func (s *Postgres) missOrStale(ctx context.Context, c *models.ConflictCase) error {
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)`, uuid.UUID(c.ID()),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if !exists {
		return caseNotFound(c.ID().String())
	}
	return staleWrite(c)
}

// appendTrail mirrors the audit entries from position from onward and queues them for export.
func (s *Postgres) appendTrail(ctx context.Context, c *models.ConflictCase, from int) error {
	events := export.FromCase(ctx, c, from)
	if len(events) == 0 {
		return nil
	}

	var (
		ids        = make([]string, len(events))
		seqs       = make([]int64, len(events))
		actions    = make([]string, len(events))
		categories = make([]string, len(events))
		details    = make([]string, len(events))
		actorIDs   = make([]string, len(events))
		actorNames = make([]string, len(events))
		occurred   = make([]string, len(events))
		payloads   = make([]string, len(events))
	)
	for i, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit event: %w", err)
		}
		ids[i] = e.ID.String()
		seqs[i] = int64(e.Seq)
		actions[i] = string(e.Action)
		categories[i] = string(e.Category)
		details[i] = e.Details
		actorIDs[i] = e.ActorID
		actorNames[i] = e.ActorName
		occurred[i] = e.Timestamp.UTC().Format(time.RFC3339Nano)
		payloads[i] = string(payload)
	}

	caseID := uuid.UUID(c.ID())
	if _, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO case_audit_log (id, case_id, seq, action, category, details, actor_id, actor_name, occurred_at)
		SELECT u.id::uuid, $1, u.seq, u.action, u.category, u.details, u.actor_id, u.actor_name, u.occurred_at::timestamptz
		FROM unnest($2::text[], $3::bigint[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[], $9::text[])
			AS u(id, seq, action, category, details, actor_id, actor_name, occurred_at)
	`, caseID, pq.Array(ids), pq.Array(seqs), pq.Array(actions), pq.Array(categories),
		pq.Array(details), pq.Array(actorIDs), pq.Array(actorNames), pq.Array(occurred)); err != nil {
		return fmt.Errorf("mirror audit entries: %w", err)
	}

	if _, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO case_outbox (id, case_id, event_type, payload)
		SELECT u.id::uuid, $1, u.event_type, u.payload::jsonb
		FROM unnest($2::text[], $3::text[], $4::text[]) AS u(id, event_type, payload)
	`, caseID, pq.Array(ids), pq.Array(actions), pq.Array(payloads)); err != nil {
		return fmt.Errorf("queue audit events: %w", err)
	}
	return nil
}

// Trail returns the mirrored audit entries of a case ordered by timestamp, then sequence.
func (s *Postgres) Trail(ctx context.Context, id domain.CaseID) ([]models.CaseAuditEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, action, details, actor_id, actor_name, occurred_at
		FROM case_audit_log
		WHERE case_id = $1
		ORDER BY occurred_at, seq
	`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("query audit mirror: %w", err)
	}
	defer rows.Close()

	var out []models.CaseAuditEntry
	for rows.Next() {
		var (
			e      models.CaseAuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.Details, &e.ActorID, &e.ActorName, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = models.AuditAction(action)
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Pending implements export.Outbox.
func (s *Postgres) Pending(ctx context.Context, limit int) ([]export.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT payload
		FROM case_outbox
		WHERE published_at IS NULL
		ORDER BY created_at, case_id, (payload->>'seq')::int
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []export.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		var e export.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode outbox entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkPublished implements export.Outbox.
func (s *Postgres) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	if _, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE case_outbox SET published_at = NOW() WHERE id = ANY($1::uuid[]) AND published_at IS NULL`,
		pq.Array(raw),
	); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// Health pings the database.
func (s *Postgres) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
