// Package sqlite provides SQLite-backed persistence for simulation runs.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/internal/platform/storage/sqlitemigrate"
	"github.com/steppesim/steppe/internal/storage"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store provides SQLite-backed persistence for runs and collected series.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a run registry SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open migrations fs: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutRun inserts or replaces a run record.
func (s *Store) PutRun(ctx context.Context, run storage.Run) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Status == "" {
		run.Status = storage.RunStatusRunning
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO runs (id, scenario, model, params_json, seed, max_steps, steps, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   scenario = excluded.scenario,
		   model = excluded.model,
		   params_json = excluded.params_json,
		   seed = excluded.seed,
		   max_steps = excluded.max_steps,
		   steps = excluded.steps,
		   status = excluded.status,
		   error = excluded.error,
		   started_at = excluded.started_at,
		   finished_at = excluded.finished_at`,
		run.ID,
		run.Scenario,
		run.Model,
		paramsOrEmpty(run.ParamsJSON),
		run.Seed,
		run.MaxSteps,
		run.Steps,
		string(run.Status),
		run.Error,
		toMillis(run.StartedAt),
		toMillis(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("put run: %w", err)
	}
	return nil
}

// GetRun loads a run record by ID.
func (s *Store) GetRun(ctx context.Context, id string) (storage.Run, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Run{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, scenario, model, params_json, seed, max_steps, steps, status, error, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return storage.Run{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recently started runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, scenario, model, params_json, seed, max_steps, steps, status, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []storage.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// AppendModelSamples stores collected model-reporter values.
func (s *Store) AppendModelSamples(ctx context.Context, samples []storage.ModelSample) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO model_samples (run_id, step, reporter, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare model samples: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		if _, err := stmt.ExecContext(ctx, sample.RunID, sample.Step, sample.Reporter, sample.Value); err != nil {
			return fmt.Errorf("append model sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit model samples: %w", err)
	}
	return nil
}

// AppendAgentSamples stores collected agent-reporter values.
func (s *Store) AppendAgentSamples(ctx context.Context, samples []storage.AgentSample) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO agent_samples (run_id, step, agent_id, reporter, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare agent samples: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		if _, err := stmt.ExecContext(ctx, sample.RunID, sample.Step, sample.AgentID, sample.Reporter, sample.Value); err != nil {
			return fmt.Errorf("append agent sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit agent samples: %w", err)
	}
	return nil
}

// ModelSamples loads collected model values for a run in step order.
func (s *Store) ModelSamples(ctx context.Context, runID string) ([]storage.ModelSample, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT run_id, step, reporter, value FROM model_samples WHERE run_id = ? ORDER BY step, reporter",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query model samples: %w", err)
	}
	defer rows.Close()

	var samples []storage.ModelSample
	for rows.Next() {
		var sample storage.ModelSample
		if err := rows.Scan(&sample.RunID, &sample.Step, &sample.Reporter, &sample.Value); err != nil {
			return nil, fmt.Errorf("scan model sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model samples: %w", err)
	}
	return samples, nil
}

// AgentSamples loads collected agent values for a run in step order.
func (s *Store) AgentSamples(ctx context.Context, runID string) ([]storage.AgentSample, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT run_id, step, agent_id, reporter, value FROM agent_samples WHERE run_id = ? ORDER BY step, agent_id, reporter",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent samples: %w", err)
	}
	defer rows.Close()

	var samples []storage.AgentSample
	for rows.Next() {
		var sample storage.AgentSample
		if err := rows.Scan(&sample.RunID, &sample.Step, &sample.AgentID, &sample.Reporter, &sample.Value); err != nil {
			return nil, fmt.Errorf("scan agent sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent samples: %w", err)
	}
	return samples, nil
}

// AppendCollector flattens a collector's model and agent series into samples
// for the given run.
func (s *Store) AppendCollector(ctx context.Context, runID string, c *collect.Collector) error {
	if c == nil {
		return nil
	}

	steps := c.Steps()
	var modelSamples []storage.ModelSample
	for _, reporter := range c.ModelReporterNames() {
		series := c.ModelSeries(reporter)
		for i, value := range series {
			if i >= len(steps) {
				break
			}
			modelSamples = append(modelSamples, storage.ModelSample{
				RunID:    runID,
				Step:     steps[i],
				Reporter: reporter,
				Value:    fmt.Sprint(value),
			})
		}
	}
	if err := s.AppendModelSamples(ctx, modelSamples); err != nil {
		return err
	}

	var agentSamples []storage.AgentSample
	for _, row := range c.AgentRows() {
		for _, reporter := range c.AgentReporterNames() {
			agentSamples = append(agentSamples, storage.AgentSample{
				RunID:    runID,
				Step:     row.Step,
				AgentID:  row.AgentID,
				Reporter: reporter,
				Value:    fmt.Sprint(row.Values[reporter]),
			})
		}
	}
	return s.AppendAgentSamples(ctx, agentSamples)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (storage.Run, error) {
	var run storage.Run
	var status string
	var startedAt, finishedAt int64
	if err := row.Scan(
		&run.ID,
		&run.Scenario,
		&run.Model,
		&run.ParamsJSON,
		&run.Seed,
		&run.MaxSteps,
		&run.Steps,
		&status,
		&run.Error,
		&startedAt,
		&finishedAt,
	); err != nil {
		return storage.Run{}, err
	}
	run.Status = storage.RunStatus(status)
	run.StartedAt = fromMillis(startedAt)
	run.FinishedAt = fromMillis(finishedAt)
	return run, nil
}

func paramsOrEmpty(paramsJSON string) string {
	if strings.TrimSpace(paramsJSON) == "" {
		return "{}"
	}
	return paramsJSON
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
