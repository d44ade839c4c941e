package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/pluginctl/internal/events"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one pipeline execution.
type Run struct {
	ID         string
	Operation  string
	Plugin     string
	PluginID   string
	Version    string
	Kind       string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store reads and writes runs.
type Store struct {
	db *DB
}

// NewStore creates a run store on db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Subscribe records every pipeline event published on bus.
func (s *Store) Subscribe(bus *events.Bus) {
	bus.OnAll("history", func(_ context.Context, p events.Payload) error {
		return s.Record(p)
	})
}

// Record applies one event. A started event inserts a running row; a
// terminal event closes it, inserting the row if the start was never seen.
func (s *Store) Record(p events.Payload) error {
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}
	at := p.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if !p.Terminal() {
		_, err := s.db.sql.Exec(
			`INSERT INTO runs (id, operation, plugin, plugin_id, version, kind, status, started_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			p.RunID, p.Operation, p.Plugin, p.PluginID, p.Version, p.Kind, StatusRunning, formatTime(at),
		)
		if err != nil {
			return fmt.Errorf("recording run start: %w", err)
		}
		return nil
	}

	status := StatusFailed
	if p.Succeeded() {
		status = StatusSucceeded
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO runs (id, operation, plugin, plugin_id, version, kind, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			finished_at = excluded.finished_at,
			kind = CASE WHEN excluded.kind != '' THEN excluded.kind ELSE runs.kind END`,
		p.RunID, p.Operation, p.Plugin, p.PluginID, p.Version, p.Kind, status, p.Error,
		formatTime(at), formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("recording run result: %w", err)
	}
	return nil
}

// Get returns the run with id.
func (s *Store) Get(id string) (Run, error) {
	row := s.db.sql.QueryRow(selectRuns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return r, err
}

// Recent returns up to limit runs, newest first. An empty plugin matches all.
func (s *Store) Recent(plugin string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if plugin == "" {
		rows, err = s.db.sql.Query(selectRuns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.sql.Query(selectRuns+` WHERE plugin = ? ORDER BY started_at DESC, rowid DESC LIMIT ?`, plugin, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes finished runs that started before cutoff.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.sql.Exec(
		`DELETE FROM runs WHERE finished_at IS NOT NULL AND started_at < ?`, formatTime(cutoff.UTC()),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return res.RowsAffected()
}

const selectRuns = `SELECT id, operation, plugin, plugin_id, version, kind, status, error, started_at, finished_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Operation, &r.Plugin, &r.PluginID, &r.Version, &r.Kind,
		&r.Status, &r.Error, &started, &finished); err != nil {
		return Run{}, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		t, _ := time.Parse(time.RFC3339Nano, finished.String)
		r.FinishedAt = &t
	}
	return r, nil
}

// formatTime uses a fixed-width layout so text ordering matches time order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
