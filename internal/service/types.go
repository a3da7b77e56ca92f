package service

import (
	"github.com/danielpatrickdp/handoff/internal/adapter"
	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/heuristic"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #region requests

// QueryRequest selects evaluation history. Empty fields match everything.
type QueryRequest struct {
	Model    string `json:"model,omitempty"`
	Behavior string `json:"behavior,omitempty"`
	Limit    int    `json:"limit,omitempty"` // 0: DefaultQueryLimit, negative: all
}

// ScoreRequest is one prompt/response pair to score without a judge.
type ScoreRequest struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Category string `json:"category,omitempty"`
}

// #endregion requests

// #region views

// Thresholds is the threshold entry for a category plus the trigger catalog.
// For a category the policy does not know, Entry is the default band and
// Known is false.
type Thresholds struct {
	TaskCategory    string                                        `json:"task_category"`
	Known           bool                                          `json:"known"`
	Entry           policy.ThresholdEntry                         `json:"thresholds"`
	HandoffTriggers map[policy.TriggerLevel]policy.HandoffTrigger `json:"handoff_triggers"`
}

// ModelsView describes local models and the judge registry built from them.
type ModelsView struct {
	Models          []adapter.ModelDescriptor         `json:"models"`
	EvaluatorModels map[string]adapter.EvaluatorModel `json:"evaluator_models"`
}

// ScoreView is the tool-surface rendering of a heuristic score.
type ScoreView struct {
	PromptPreview string                          `json:"prompt_preview"`
	QualityScore  float64                         `json:"quality_score"`
	Passed        bool                            `json:"passed"`
	Criteria      map[heuristic.Criterion]float64 `json:"criteria"`
	Notes         string                          `json:"notes"`
}

// CalibrationHistory lists stored calibration outcomes.
type CalibrationHistory struct {
	Model   string              `json:"model_id,omitempty"`
	Limit   int                 `json:"limit"`
	History []audit.Calibration `json:"history"`
}

// TriggerList lists recorded handoff triggers.
type TriggerList struct {
	Triggers []audit.HandoffTrigger `json:"triggers"`
}

// #endregion views
