package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region model-metrics
// RecordModelMetric appends one performance sample.
func (l *Log) RecordModelMetric(ctx context.Context, m ModelMetric) error {
	if m.UseCase == "" {
		m.UseCase = "general"
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO model_metrics (model_id, prompt_tokens, completion_tokens, latency_seconds, success, use_case, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Model, m.PromptTokens, m.CompletionTokens, m.LatencySeconds, boolToInt(m.Success), m.UseCase, l.stamp(m.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("record model metric: %w", err)
	}
	return nil
}

// MetricsSummary aggregates samples from the last days days, one row per
// model. An empty model summarizes every model.
func (l *Log) MetricsSummary(ctx context.Context, model string, days int) ([]ModelSummary, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := l.now().Add(-time.Duration(days) * 24 * time.Hour).UTC().Format(timeLayout)

	rows, err := l.db.QueryContext(ctx,
		`SELECT model_id,
		        COUNT(*),
		        AVG(latency_seconds),
		        AVG(prompt_tokens),
		        AVG(completion_tokens),
		        SUM(success) * 1.0 / COUNT(*)
		 FROM model_metrics
		 WHERE created_at > ? AND (? = '' OR model_id = ?)
		 GROUP BY model_id
		 ORDER BY model_id`,
		cutoff, model, model,
	)
	if err != nil {
		return nil, fmt.Errorf("query metrics summary: %w", err)
	}
	defer rows.Close()

	out := []ModelSummary{}
	for rows.Next() {
		var (
			s                           ModelSummary
			latency, prompt, completion sql.NullFloat64
		)
		if err := rows.Scan(&s.Model, &s.RequestCount, &latency, &prompt, &completion, &s.SuccessRate); err != nil {
			return nil, fmt.Errorf("scan metrics summary: %w", err)
		}
		s.AvgLatencySeconds = latency.Float64
		s.AvgPromptTokens = prompt.Float64
		s.AvgCompletionTokens = completion.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion model-metrics

// #region calibrations
// SaveCalibration stores c, replacing any earlier row with the same TestID.
func (l *Log) SaveCalibration(ctx context.Context, c Calibration) error {
	if c.TestID == "" {
		return fmt.Errorf("save calibration: test id is required")
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO calibration_tests
		 (test_id, model_id, prompt_category, prompt, local_response, quality_score,
		  evaluation_notes, tokens_per_second, passed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TestID, c.Model, nullIfEmpty(c.Category), c.Prompt, c.Response, c.QualityScore,
		nullIfEmpty(c.Notes), c.TokensPerSecond, boolToInt(c.Passed), l.stamp(c.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	return nil
}

// Calibrations returns the newest stored outcomes first. An empty model
// returns every model; limit <= 0 means 50.
func (l *Log) Calibrations(ctx context.Context, model string, limit int) ([]Calibration, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT test_id, model_id, prompt_category, prompt, local_response, quality_score,
		        evaluation_notes, tokens_per_second, passed, created_at
		 FROM calibration_tests
		 WHERE (? = '' OR model_id = ?)
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		model, model, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query calibrations: %w", err)
	}
	defer rows.Close()

	out := []Calibration{}
	for rows.Next() {
		var (
			c                Calibration
			category, notes  sql.NullString
			prompt, response sql.NullString
			score, tps       sql.NullFloat64
			passed           int
			created          string
		)
		if err := rows.Scan(&c.TestID, &c.Model, &category, &prompt, &response, &score,
			&notes, &tps, &passed, &created); err != nil {
			return nil, fmt.Errorf("scan calibration: %w", err)
		}
		c.Category = category.String
		c.Prompt = prompt.String
		c.Response = response.String
		c.QualityScore = score.Float64
		c.Notes = notes.String
		c.TokensPerSecond = tps.Float64
		c.Passed = passed != 0
		if c.Timestamp, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion calibrations

// #region handoff-triggers
// RecordHandoffTrigger appends an active trigger pattern and returns its row id.
func (l *Log) RecordHandoffTrigger(ctx context.Context, t HandoffTrigger) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO handoff_triggers (model_id, pattern_type, pattern_description, confidence, is_active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		nullIfEmpty(t.Model), t.PatternType, nullIfEmpty(t.Description), t.Confidence, l.stamp(t.Timestamp),
	)
	if err != nil {
		return 0, fmt.Errorf("record handoff trigger: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("trigger id: %w", err)
	}
	return id, nil
}

// DeactivateTrigger marks a trigger as no longer active.
func (l *Log) DeactivateTrigger(ctx context.Context, id int64) error {
	res, err := l.db.ExecContext(ctx, `UPDATE handoff_triggers SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate trigger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deactivate trigger: no trigger with id %d", id)
	}
	return nil
}

// HandoffTriggers lists recorded triggers, highest confidence first.
func (l *Log) HandoffTriggers(ctx context.Context, activeOnly bool) ([]HandoffTrigger, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, model_id, pattern_type, pattern_description, confidence, is_active, created_at
		 FROM handoff_triggers
		 WHERE (? = 0 OR is_active = 1)
		 ORDER BY confidence DESC, id ASC`,
		boolToInt(activeOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("query handoff triggers: %w", err)
	}
	defer rows.Close()

	out := []HandoffTrigger{}
	for rows.Next() {
		var (
			t                  HandoffTrigger
			model, description sql.NullString
			confidence         sql.NullFloat64
			active             int
			created            string
		)
		if err := rows.Scan(&t.ID, &model, &t.PatternType, &description, &confidence, &active, &created); err != nil {
			return nil, fmt.Errorf("scan handoff trigger: %w", err)
		}
		t.Model = model.String
		t.Description = description.String
		t.Confidence = confidence.Float64
		t.Active = active != 0
		if t.Timestamp, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// #endregion handoff-triggers
