package core

// audit.go records reconciliation runs in PostgreSQL.
//
// Only run metadata is stored: file names, outcome, error code, summary
// counts and who asked. Salary data never leaves the staging directory.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// RunStatus is the outcome of a reconciliation run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one audited reconciliation.
type RunRecord struct {
	ID        string        `json:"id"`
	OldFile   string        `json:"oldFile"`
	NewFile   string        `json:"newFile"`
	Status    RunStatus     `json:"status"`
	ErrorCode string        `json:"errorCode,omitempty"`
	Summary   *Summary      `json:"summary,omitempty"`
	ClientIP  string        `json:"clientIp,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	Duration  time.Duration `json:"durationMs"`
	CreatedAt time.Time     `json:"createdAt"`
}

// MarshalJSON reports Duration in milliseconds.
func (r RunRecord) MarshalJSON() ([]byte, error) {
	type alias RunRecord
	return json.Marshal(struct {
		alias
		Duration int64 `json:"durationMs"`
	}{alias(r), r.Duration.Milliseconds()})
}

// AuditStore persists run records.
type AuditStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	PurgeRuns(ctx context.Context, before time.Time) (int64, error)
}

// NopAudit discards records. It is used when no database is configured.
type NopAudit struct{}

func (NopAudit) RecordRun(context.Context, RunRecord) error { return nil }

func (NopAudit) RecentRuns(context.Context, int) ([]RunRecord, error) { return nil, nil }

func (NopAudit) PurgeRuns(context.Context, time.Time) (int64, error) { return 0, nil }

// DBTX is the subset of *pgxpool.Pool the audit store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DefaultRunsLimit caps RecentRuns when no limit is given.
const DefaultRunsLimit = 50

const (
	createRunsTable = `CREATE TABLE IF NOT EXISTS reconcile_runs (
	id          UUID PRIMARY KEY,
	old_file    TEXT NOT NULL,
	new_file    TEXT NOT NULL,
	status      TEXT NOT NULL,
	error_code  TEXT,
	summary     JSONB,
	client_ip   TEXT,
	user_agent  TEXT,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	createRunsIndex = `CREATE INDEX IF NOT EXISTS reconcile_runs_created_at_idx
	ON reconcile_runs (created_at DESC)`

	insertRun = `INSERT INTO reconcile_runs
	(id, old_file, new_file, status, error_code, summary, client_ip, user_agent, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	selectRecentRuns = `SELECT id, old_file, new_file, status, error_code, summary,
	client_ip, user_agent, duration_ms, created_at
	FROM reconcile_runs ORDER BY created_at DESC LIMIT $1`

	deleteRunsBefore = `DELETE FROM reconcile_runs WHERE created_at < $1`
)

// PgAuditStore stores run records in the reconcile_runs table.
type PgAuditStore struct {
	db DBTX
}

// NewPgAuditStore returns a store using db.
func NewPgAuditStore(db DBTX) *PgAuditStore {
	return &PgAuditStore{db: db}
}

// EnsureSchema creates the reconcile_runs table if it does not exist.
func (s *PgAuditStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createRunsTable, createRunsIndex} {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

// RecordRun inserts run.
func (s *PgAuditStore) RecordRun(ctx context.Context, run RunRecord) error {
	var summary []byte
	if run.Summary != nil {
		var err error
		summary, err = json.Marshal(run.Summary)
		if err != nil {
			return fmt.Errorf("encode run summary: %w", err)
		}
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(ctx, insertRun,
		toPgUUID(run.ID),
		run.OldFile,
		run.NewFile,
		string(run.Status),
		toPgText(run.ErrorCode),
		summary,
		toPgText(run.ClientIP),
		toPgText(run.UserAgent),
		run.Duration.Milliseconds(),
		pgtype.Timestamptz{Time: createdAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *PgAuditStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRunsLimit
	}

	rows, err := s.db.Query(ctx, selectRecentRuns, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			id         pgtype.UUID
			run        RunRecord
			status     string
			errorCode  pgtype.Text
			summary    []byte
			clientIP   pgtype.Text
			userAgent  pgtype.Text
			durationMs int64
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &run.OldFile, &run.NewFile, &status, &errorCode,
			&summary, &clientIP, &userAgent, &durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		run.ID = uuidToString(id)
		run.Status = RunStatus(status)
		run.ErrorCode = errorCode.String
		run.ClientIP = clientIP.String
		run.UserAgent = userAgent.String
		run.Duration = time.Duration(durationMs) * time.Millisecond
		run.CreatedAt = createdAt.Time
		if len(summary) > 0 {
			var sum Summary
			if err := json.Unmarshal(summary, &sum); err == nil {
				run.Summary = &sum
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}

	return runs, nil
}

// PurgeRuns deletes runs created before the cutoff.
func (s *PgAuditStore) PurgeRuns(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, deleteRunsBefore, pgtype.Timestamptz{Time: before, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
