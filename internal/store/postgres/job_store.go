// Package postgres provides the Postgres-backed crawl job store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

const uniqueViolation = "23505"

// JobStoreConfig controls the Postgres connection pool used for job rows.
type JobStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore persists crawl jobs and workflow-object links in Postgres.
// It expects the schema:
//
//	CREATE TABLE crawler_job (
//		id BIGSERIAL PRIMARY KEY,
//		job_id UUID NOT NULL UNIQUE,
//		spider VARCHAR(255) NOT NULL,
//		workflow VARCHAR(255) NOT NULL,
//		status VARCHAR(10) NOT NULL,
//		logs TEXT,
//		results TEXT,
//		scheduled TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX ON crawler_job (spider);
//	CREATE INDEX ON crawler_job (workflow);
//	CREATE INDEX ON crawler_job (scheduled);
//
//	CREATE TABLE crawler_workflows_object (
//		job_id UUID NOT NULL,
//		object_id BIGINT NOT NULL
//			REFERENCES workflows_object (id) ON DELETE CASCADE ON UPDATE CASCADE,
//		PRIMARY KEY (job_id, object_id)
//	);
type JobStore struct {
	pool dbPool
}

// NewJobStore connects a pool and returns a Postgres JobStore.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
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
	return &JobStore{pool: pool}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for
// testing with pgxmock).
func NewJobStoreWithPool(pool dbPool) (*JobStore, error) {
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

// Create inserts a new pending job for an external job id.
func (s *JobStore) Create(ctx context.Context, jobID, spider, workflow string) (crawler.Job, error) {
	query := `
INSERT INTO crawler_job (job_id, spider, workflow, status)
VALUES ($1, $2, $3, $4)
RETURNING id, scheduled`

	job := crawler.Job{
		JobID:    jobID,
		Spider:   spider,
		Workflow: workflow,
		Status:   crawler.JobStatusPending,
	}
	err := s.pool.QueryRow(ctx, query, jobID, spider, workflow, string(crawler.JobStatusPending)).
		Scan(&job.ID, &job.Scheduled)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return crawler.Job{}, &crawler.DuplicateJobError{JobID: jobID}
		}
		return crawler.Job{}, fmt.Errorf("insert crawler job: %w", err)
	}
	return job, nil
}

const jobColumns = `id, job_id, spider, workflow, status, COALESCE(logs, ''), COALESCE(results, ''), scheduled`

func scanJob(row pgx.Row) (crawler.Job, error) {
	var job crawler.Job
	var status string
	err := row.Scan(
		&job.ID,
		&job.JobID,
		&job.Spider,
		&job.Workflow,
		&status,
		&job.Logs,
		&job.Results,
		&job.Scheduled,
	)
	if err != nil {
		return crawler.Job{}, err
	}
	job.Status = crawler.JobStatus(status)
	return job, nil
}

// GetByJobID fetches a job by its external job id.
func (s *JobStore) GetByJobID(ctx context.Context, jobID string) (crawler.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM crawler_job WHERE job_id = $1`
	job, err := scanJob(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.Job{}, &crawler.JobNotFoundError{JobID: jobID}
		}
		return crawler.Job{}, fmt.Errorf("select crawler job: %w", err)
	}
	return job, nil
}

// Save persists the mutable fields of a job. The external job id and the
// spider/workflow pairing are immutable after Create.
func (s *JobStore) Save(ctx context.Context, job crawler.Job) error {
	query := `
UPDATE crawler_job
SET status = $2, logs = NULLIF($3, ''), results = NULLIF($4, '')
WHERE job_id = $1`

	tag, err := s.pool.Exec(ctx, query, job.JobID, string(job.Status), job.Logs, job.Results)
	if err != nil {
		return fmt.Errorf("update crawler job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &crawler.JobNotFoundError{JobID: job.JobID}
	}
	return nil
}

// List returns jobs in reverse creation order, newest first. A tail of zero
// returns everything.
func (s *JobStore) List(ctx context.Context, tail int) ([]crawler.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM crawler_job ORDER BY id DESC`
	args := []any{}
	if tail > 0 {
		query += ` LIMIT $1`
		args = append(args, tail)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list crawler jobs: %w", err)
	}
	defer rows.Close()

	var jobs []crawler.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan crawler job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawler jobs: %w", err)
	}
	return jobs, nil
}

// CreateLink records the association between a job and a spawned workflow
// object.
func (s *JobStore) CreateLink(ctx context.Context, link crawler.WorkflowObjectLink) error {
	query := `INSERT INTO crawler_workflows_object (job_id, object_id) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, query, link.JobID, link.ObjectID); err != nil {
		return fmt.Errorf("insert workflow object link: %w", err)
	}
	return nil
}

// ListLinks returns workflow-object links newest first. A tail of zero
// returns everything.
func (s *JobStore) ListLinks(ctx context.Context, tail int) ([]crawler.WorkflowObjectLink, error) {
	query := `SELECT job_id, object_id FROM crawler_workflows_object ORDER BY object_id DESC`
	args := []any{}
	if tail > 0 {
		query += ` LIMIT $1`
		args = append(args, tail)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflow object links: %w", err)
	}
	defer rows.Close()

	var links []crawler.WorkflowObjectLink
	for rows.Next() {
		var link crawler.WorkflowObjectLink
		if err := rows.Scan(&link.JobID, &link.ObjectID); err != nil {
			return nil, fmt.Errorf("scan workflow object link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow object links: %w", err)
	}
	return links, nil
}

// GetJobByObjectID resolves the crawl job that spawned a workflow object.
func (s *JobStore) GetJobByObjectID(ctx context.Context, objectID int64) (crawler.Job, error) {
	query := `
SELECT ` + jobColumnsPrefixed + `
FROM crawler_job j
JOIN crawler_workflows_object o ON j.job_id = o.job_id
WHERE o.object_id = $1`

	job, err := scanJob(s.pool.QueryRow(ctx, query, objectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.Job{}, &crawler.WorkflowObjectNotFoundError{ObjectID: objectID}
		}
		return crawler.Job{}, fmt.Errorf("select job by workflow object: %w", err)
	}
	return job, nil
}

const jobColumnsPrefixed = `j.id, j.job_id, j.spider, j.workflow, j.status, COALESCE(j.logs, ''), COALESCE(j.results, ''), j.scheduled`
