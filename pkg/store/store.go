// Package store persists finished traces in a SQL database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
)

var (
	// ErrUnsupportedDriver is returned by Open for drivers the store does not know
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	// ErrRunNotFound is returned when a run ID is not in the database
	ErrRunNotFound = errors.New("run not found")
)

// Config selects the database backend
type Config struct {
	Driver string // sqlite, pgx, genji or duckdb (duckdb needs the duckdb build tag)
	DSN    string // File path for sqlite/genji/duckdb, connection URL for pgx
}

// DefaultConfig returns a SQLite database in the working directory
func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "traces.sqlite",
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	switch c.Driver {
	case "sqlite", "pgx", "genji", "duckdb":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("database DSN cannot be empty for driver %s", c.Driver)
	}
	return nil
}

// RunInfo summarizes a stored run
type RunInfo struct {
	ID        string
	Scene     string
	CreatedAt time.Time
	RayCount  int
	MaxDepth  int
	Truncated bool
}

// Store keeps traced runs in a SQL database
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and checks that it is reachable.
// SQLite-like engines are limited to one connection.
func Open(config Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening the database: %w", err)
	}

	switch config.Driver {
	case "sqlite", "genji", "duckdb":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case "pgx":
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if config.Driver == "sqlite" {
		if err := tuneSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, driver: config.Driver}, nil
}

// tuneSQLite applies the pragmas that keep bulk ray inserts fast
func tuneSQLite(ctx context.Context, db *sql.DB) error {
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL;").Scan(&mode); err != nil {
		return fmt.Errorf("apply journal_mode: %w", err)
	}
	for _, pragma := range []string{"PRAGMA synchronous=NORMAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders as $1, $2, ... for drivers that need them
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" && s.driver != "duckdb" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	statements := []struct{ name, sql string }{
		{"runs", `CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scene TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			ray_count INTEGER NOT NULL,
			max_depth INTEGER NOT NULL,
			truncated BOOLEAN NOT NULL
		)`},
		{"rays", `CREATE TABLE IF NOT EXISTS rays (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			start_x DOUBLE PRECISION NOT NULL,
			start_y DOUBLE PRECISION NOT NULL,
			dir_x DOUBLE PRECISION NOT NULL,
			dir_y DOUBLE PRECISION NOT NULL,
			brightness DOUBLE PRECISION NOT NULL,
			end_x DOUBLE PRECISION NOT NULL,
			end_y DOUBLE PRECISION NOT NULL,
			terminated BOOLEAN NOT NULL
		)`},
		{"idx_rays_run_seq", `CREATE INDEX IF NOT EXISTS idx_rays_run_seq ON rays (run_id, seq)`},
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", stmt.name, err)
		}
	}
	return nil
}

// SaveRun stores a finished trace under the scene ID it was traced from and
// returns its new run ID
func (s *Store) SaveRun(ctx context.Context, sceneName string, result *renderer.TraceResult) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO runs (id, scene, created_at, ray_count, max_depth, truncated) VALUES (?, ?, ?, ?, ?, ?)`),
		runID, sceneName, time.Now().UnixNano(), len(result.Rays), result.Stats.MaxDepth, result.Truncated)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO rays
		(run_id, seq, depth, start_x, start_y, dir_x, dir_y, brightness, end_x, end_y, terminated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("prepare ray insert: %w", err)
	}
	defer insert.Close()

	for i, ray := range result.Rays {
		_, err := insert.ExecContext(ctx, runID, i, ray.Depth,
			ray.Start.X, ray.Start.Y, ray.Direction.X, ray.Direction.Y,
			ray.Brightness, ray.End.X, ray.End.Y, ray.Terminated)
		if err != nil {
			return "", fmt.Errorf("insert ray %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// LoadRays returns the rays of a run in their original order
func (s *Store) LoadRays(ctx context.Context, runID string) ([]core.RayRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT depth, start_x, start_y, dir_x, dir_y, brightness, end_x, end_y, terminated
		FROM rays WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("error querying rays: %w", err)
	}
	defer rows.Close()

	rays := []core.RayRecord{}
	for rows.Next() {
		var ray core.RayRecord
		err := rows.Scan(&ray.Depth, &ray.Start.X, &ray.Start.Y, &ray.Direction.X, &ray.Direction.Y,
			&ray.Brightness, &ray.End.X, &ray.End.Y, &ray.Terminated)
		if err != nil {
			return nil, fmt.Errorf("error scanning ray: %w", err)
		}
		rays = append(rays, ray)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rays: %w", err)
	}
	return rays, nil
}

// GetRun returns the summary of one run
func (s *Store) GetRun(ctx context.Context, runID string) (RunInfo, error) {
	run := RunInfo{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, scene, created_at, ray_count, max_depth, truncated FROM runs WHERE id = ?`), runID).
		Scan(&run.ID, &run.Scene, &createdAt, &run.RayCount, &run.MaxDepth, &run.Truncated)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("error querying run: %w", err)
	}
	run.CreatedAt = time.Unix(0, createdAt)
	return run, nil
}

// ListRuns returns all stored runs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scene, created_at, ray_count, max_depth, truncated FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		var run RunInfo
		var createdAt int64
		if err := rows.Scan(&run.ID, &run.Scene, &createdAt, &run.RayCount, &run.MaxDepth, &run.Truncated); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		run.CreatedAt = time.Unix(0, createdAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over runs: %w", err)
	}
	return runs, nil
}
