package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS evaluation_history (
	seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
	result_id            TEXT NOT NULL UNIQUE,
	behavior             TEXT NOT NULL,
	model                TEXT NOT NULL,
	evaluator_id         TEXT,
	task_category        TEXT,
	quality_score        REAL NOT NULL,
	score_source         TEXT NOT NULL,
	passed               INTEGER NOT NULL,
	stage                TEXT,
	details_json         TEXT,
	recommendations_json TEXT,
	created_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_model ON evaluation_history(model, seq);
`

// #endregion schema

// #region store-struct

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection keeps :memory: databases coherent and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region append

// Append inserts r after every existing record.
func (s *SQLiteStore) Append(ctx context.Context, r Result) error {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_history
		 (result_id, behavior, model, evaluator_id, task_category, quality_score,
		  score_source, passed, stage, details_json, recommendations_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Behavior, r.Model, r.EvaluatorID, r.TaskCategory, r.QualityScore,
		string(r.ScoreSource), boolToInt(r.Passed), r.Stage, string(details), string(recs),
		r.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// #endregion append

// #region list

// List returns the most recent f.Limit matches, oldest first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Result, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_id, behavior, model, evaluator_id, task_category, quality_score,
		        score_source, passed, stage, details_json, recommendations_json, created_at
		 FROM evaluation_history
		 WHERE (? = '' OR model = ?) AND (? = '' OR behavior = ?)
		 ORDER BY seq DESC
		 LIMIT ?`,
		f.Model, f.Model, f.Behavior, f.Behavior, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// #endregion list

// #region helpers

func scanResult(rows *sql.Rows) (Result, error) {
	var (
		r                            Result
		evaluatorID, category, stage sql.NullString
		detailsJSON, recsJSON        sql.NullString
		source, createdAt            string
		passed                       int
	)
	err := rows.Scan(&r.ID, &r.Behavior, &r.Model, &evaluatorID, &category, &r.QualityScore,
		&source, &passed, &stage, &detailsJSON, &recsJSON, &createdAt)
	if err != nil {
		return Result{}, fmt.Errorf("scan result: %w", err)
	}
	r.EvaluatorID = evaluatorID.String
	r.TaskCategory = category.String
	r.Stage = stage.String
	r.ScoreSource = ScoreSource(source)
	r.Passed = passed != 0

	r.Details = map[string]any{}
	if detailsJSON.Valid && detailsJSON.String != "" && detailsJSON.String != "null" {
		if err := json.Unmarshal([]byte(detailsJSON.String), &r.Details); err != nil {
			return Result{}, fmt.Errorf("unmarshal details: %w", err)
		}
	}
	r.Recommendations = []string{}
	if recsJSON.Valid && recsJSON.String != "" && recsJSON.String != "null" {
		if err := json.Unmarshal([]byte(recsJSON.String), &r.Recommendations); err != nil {
			return Result{}, fmt.Errorf("unmarshal recommendations: %w", err)
		}
	}
	if r.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Result{}, fmt.Errorf("parse created_at: %w", err)
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
