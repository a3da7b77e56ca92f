package evaluator

import (
	"context"
	"time"

	"github.com/danielpatrickdp/handoff/internal/audit"
)

// #region stage
// Stage is a state of one evaluation call.
type Stage string

const (
	StageValidating     Stage = "validating"
	StageConfigBuilding Stage = "config_building"
	StageRunning        Stage = "running"
	StageParsing        Stage = "parsing"
	StageDone           Stage = "done"

	// early exits, all terminal
	StageFailedNoEvaluator Stage = "failed_no_evaluator"
	StageFailedCredential  Stage = "failed_credential"
	StageFailedValidation  Stage = "failed_validation"
)

// Terminal reports whether no further transition follows s.
func (s Stage) Terminal() bool {
	switch s {
	case StageDone, StageFailedNoEvaluator, StageFailedCredential, StageFailedValidation:
		return true
	}
	return false
}

// #endregion stage

// #region request
// Request is one evaluate call. Zero counts take the judge defaults.
type Request struct {
	Model          string         `json:"model"`
	Behavior       string         `json:"behavior"`
	TaskCategory   string         `json:"task_category,omitempty"`
	TotalScenarios int            `json:"total_scenarios,omitempty"`
	MaxTurns       int            `json:"max_turns,omitempty"`
	CustomSeed     map[string]any `json:"custom_seed,omitempty"`
}

// #endregion request

// MetricLog receives one performance row per evaluation.
type MetricLog interface {
	RecordModelMetric(ctx context.Context, m audit.ModelMetric) error
}

// NeutralScore is applied when the judge reports no usable overall_score.
const NeutralScore = 0.5

// LowCapabilityScore is the bar below which a larger model is suggested.
const LowCapabilityScore = 0.4

// RecordTimeout bounds the history and audit writes that follow a judge run.
const RecordTimeout = 10 * time.Second
