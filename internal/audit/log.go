package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS model_metrics (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	model_id          TEXT NOT NULL,
	prompt_tokens     INTEGER,
	completion_tokens INTEGER,
	latency_seconds   REAL,
	success           INTEGER NOT NULL,
	use_case          TEXT,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calibration_tests (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	test_id           TEXT NOT NULL UNIQUE,
	model_id          TEXT NOT NULL,
	prompt_category   TEXT,
	prompt            TEXT,
	local_response    TEXT,
	quality_score     REAL,
	evaluation_notes  TEXT,
	tokens_per_second REAL,
	passed            INTEGER NOT NULL,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS handoff_triggers (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	model_id            TEXT,
	pattern_type        TEXT NOT NULL,
	pattern_description TEXT,
	confidence          REAL,
	is_active           INTEGER NOT NULL DEFAULT 1,
	created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_model_time ON model_metrics(model_id, created_at);
`

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region log-struct
// Log is the append/read audit store. It is never consulted for handoff
// decisions.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion log-struct

// #region constructor
// Open opens (or creates) the audit database at path and runs migrations.
func Open(path string) (*Log, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Log{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// #endregion constructor

// #region counts
// Counts returns the number of rows in each audit table.
func (l *Log) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for table, dst := range map[string]*int{
		"model_metrics":     &c.ModelMetrics,
		"calibration_tests": &c.Calibrations,
		"handoff_triggers":  &c.HandoffTriggers,
	} {
		if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return c, nil
}

// #endregion counts

// #region helpers
func (l *Log) stamp(t time.Time) string {
	if t.IsZero() {
		t = l.now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
