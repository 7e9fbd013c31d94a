// Package postgres provides Postgres-backed persistence for discovery jobs
// and leads.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the pool surface the stores need; pgxpool.Pool and pgxmock both
// satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool builds a pgx connection pool from config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// JobStore implements discovery.JobStore against the discovery_jobs table:
//
//	CREATE TABLE discovery_jobs (
//		id UUID PRIMARY KEY,
//		owner_id TEXT NOT NULL,
//		keyword TEXT NOT NULL,
//		status TEXT NOT NULL,
//		attempts INT NOT NULL,
//		max_attempts INT NOT NULL,
//		last_error TEXT,
//		created_at TIMESTAMPTZ NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL
//	);
type JobStore struct {
	pool DB
}

// NewJobStore constructs a JobStore over an existing pool.
func NewJobStore(pool DB) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new pending job row.
func (s *JobStore) CreateJob(ctx context.Context, job discovery.Job) error {
	query := `
INSERT INTO discovery_jobs (
	id, owner_id, keyword, status, attempts, max_attempts, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.Keyword,
		string(job.Status),
		job.Attempts,
		job.MaxAttempts,
		job.Created,
		job.Updated,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob loads a single job or returns discovery.ErrJobNotFound.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (discovery.Job, error) {
	query := `
SELECT id, owner_id, keyword, status, attempts, max_attempts, last_error, created_at, updated_at
FROM discovery_jobs
WHERE id = $1`
	var (
		job     discovery.Job
		status  string
		lastErr *string
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID,
		&job.OwnerID,
		&job.Keyword,
		&status,
		&job.Attempts,
		&job.MaxAttempts,
		&lastErr,
		&job.Created,
		&job.Updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return discovery.Job{}, discovery.ErrJobNotFound
		}
		return discovery.Job{}, fmt.Errorf("get job: %w", err)
	}
	job.Status = discovery.JobStatus(status)
	if lastErr != nil {
		job.LastError = *lastErr
	}
	return job, nil
}

// UpdateJobRun applies one run transition. The WHERE clause is the
// compare-and-swap guard: the row must still be runnable and must hold the
// attempts value this run started from, so two runners that read the same
// snapshot cannot both apply and collapse their runs into one recorded
// attempt.
func (s *JobStore) UpdateJobRun(ctx context.Context, jobID string, next discovery.State) (bool, error) {
	query := `
UPDATE discovery_jobs
SET status = $2, attempts = $3, last_error = $4, updated_at = now()
WHERE id = $1 AND status = 'pending' AND attempts = $5 AND attempts < max_attempts`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		string(next.Status),
		next.Attempts,
		nullableText(next.LastError),
		next.Attempts-1,
	)
	if err != nil {
		return false, fmt.Errorf("update job run: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListJobs returns an owner's jobs, optionally filtered by status, newest
// first.
func (s *JobStore) ListJobs(ctx context.Context, ownerID string, status *discovery.JobStatus) ([]discovery.Job, error) {
	query := `
SELECT id, owner_id, keyword, status, attempts, max_attempts, last_error, created_at, updated_at
FROM discovery_jobs
WHERE owner_id = $1 AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, ownerID, statusText(status))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []discovery.Job
	for rows.Next() {
		var (
			job     discovery.Job
			status  string
			lastErr *string
		)
		err := rows.Scan(
			&job.ID,
			&job.OwnerID,
			&job.Keyword,
			&status,
			&job.Attempts,
			&job.MaxAttempts,
			&lastErr,
			&job.Created,
			&job.Updated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		job.Status = discovery.JobStatus(status)
		if lastErr != nil {
			job.LastError = *lastErr
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func statusText(status *discovery.JobStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}
