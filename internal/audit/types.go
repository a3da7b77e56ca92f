package audit

import "time"

// #region model-metric
// ModelMetric is one raw per-call performance sample.
type ModelMetric struct {
	Model            string    `json:"model_id"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	LatencySeconds   float64   `json:"latency_seconds"`
	Success          bool      `json:"success"`
	UseCase          string    `json:"use_case"`
	Timestamp        time.Time `json:"timestamp"`
}

// ModelSummary aggregates a model's metrics over a time window.
type ModelSummary struct {
	Model               string  `json:"model_id"`
	RequestCount        int     `json:"request_count"`
	AvgLatencySeconds   float64 `json:"avg_latency"`
	AvgPromptTokens     float64 `json:"avg_prompt_tokens"`
	AvgCompletionTokens float64 `json:"avg_completion_tokens"`
	SuccessRate         float64 `json:"success_rate"`
}

// #endregion model-metric

// #region calibration
// Calibration is one stored calibration test outcome. TestID is unique;
// saving the same TestID again replaces the earlier row.
type Calibration struct {
	TestID          string    `json:"test_id"`
	Model           string    `json:"model_id"`
	Category        string    `json:"prompt_category"`
	Prompt          string    `json:"prompt"`
	Response        string    `json:"local_response"`
	QualityScore    float64   `json:"quality_score"`
	Notes           string    `json:"evaluation_notes"`
	TokensPerSecond float64   `json:"tokens_per_second"`
	Passed          bool      `json:"passed"`
	Timestamp       time.Time `json:"timestamp"`
}

// #endregion calibration

// #region handoff-trigger
// HandoffTrigger is a recorded escalation pattern.
type HandoffTrigger struct {
	ID          int64     `json:"id"`
	Model       string    `json:"model_id"`
	PatternType string    `json:"pattern_type"`
	Description string    `json:"pattern_description"`
	Confidence  float64   `json:"confidence"`
	Active      bool      `json:"is_active"`
	Timestamp   time.Time `json:"timestamp"`
}

// #endregion handoff-trigger

// Counts is the row count of every audit table.
type Counts struct {
	ModelMetrics    int `json:"model_metrics"`
	Calibrations    int `json:"calibration_tests"`
	HandoffTriggers int `json:"handoff_triggers"`
}
