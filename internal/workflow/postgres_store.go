package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStoreConfig controls the pool used for workflow object rows.
type PostgresStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore persists workflow objects in the workflows_object table:
//
//	CREATE TABLE workflows_object (
//		id BIGSERIAL PRIMARY KEY,
//		status VARCHAR(32) NOT NULL,
//		data_type VARCHAR(255) NOT NULL,
//		data JSONB NOT NULL,
//		extra_data JSONB NOT NULL,
//		created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//		modified TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	pool dbPool
}

// NewPostgresStore connects a pool and returns a PostgresStore.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
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
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing with pgxmock).
func NewPostgresStoreWithPool(pool dbPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save inserts an unsaved object, assigning its id, or updates a saved one.
func (s *PostgresStore) Save(ctx context.Context, obj *Object) error {
	dataJSON, err := json.Marshal(obj.Data)
	if err != nil {
		return fmt.Errorf("marshal object data: %w", err)
	}
	extraJSON, err := json.Marshal(obj.ExtraData)
	if err != nil {
		return fmt.Errorf("marshal object extra data: %w", err)
	}

	if obj.ID == 0 {
		query := `
INSERT INTO workflows_object (status, data_type, data, extra_data)
VALUES ($1, $2, $3, $4)
RETURNING id`
		if err := s.pool.QueryRow(ctx, query, string(obj.Status), obj.DataType, dataJSON, extraJSON).
			Scan(&obj.ID); err != nil {
			return fmt.Errorf("insert workflow object: %w", err)
		}
		return nil
	}

	query := `
UPDATE workflows_object
SET status = $2, data_type = $3, data = $4, extra_data = $5, modified = NOW()
WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, obj.ID, string(obj.Status), obj.DataType, dataJSON, extraJSON); err != nil {
		return fmt.Errorf("update workflow object: %w", err)
	}
	return nil
}
