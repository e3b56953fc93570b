// Package postgres appends finished pipeline runs to a Postgres audit table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable holds one row per finished run.
const DefaultTable = "venue_runs"

// Config controls the Postgres connection pool used for run rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RunRecorder writes run rows into Postgres.
type RunRecorder struct {
	pool  execCloser
	table string
}

// NewRunRecorder connects to Postgres using cfg.
func NewRunRecorder(ctx context.Context, cfg Config) (*RunRecorder, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
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
	rec, err := NewRunRecorderWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return rec, nil
}

// NewRunRecorderWithPool builds a recorder from an existing pool.
func NewRunRecorderWithPool(pool execCloser, table string) (*RunRecorder, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RunRecorder{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (r *RunRecorder) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// RecordRun inserts one row describing a finished run.
func (r *RunRecorder) RecordRun(ctx context.Context, run venue.Run) error {
	if r == nil || r.pool == nil {
		return errors.New("run recorder is not configured")
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}
	sources, err := json.Marshal(nonNil(run.Sources))
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	record_id,
	venue_url,
	state,
	status_kind,
	status_line,
	chars,
	pages,
	listings,
	sources,
	language,
	truncated,
	submitted_at,
	finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)`, r.table)

	args := []any{
		run.ID,
		run.Request.RecordID,
		run.Request.VenueURL,
		string(run.State),
		run.Kind,
		run.StatusLine,
		run.Chars,
		run.Pages,
		run.Listings,
		sources,
		run.Language,
		run.Truncated,
		run.Submitted,
		run.Finished,
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
