// Package service exposes the handoff operations as one call surface for the
// CLI and any dispatch layer in front of it.
package service

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/handoff/internal/adapter"
	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/calibration"
	"github.com/danielpatrickdp/handoff/internal/evaluator"
	"github.com/danielpatrickdp/handoff/internal/heuristic"
	"github.com/danielpatrickdp/handoff/internal/history"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/metrics"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #endregion

// ErrNoAuditLog is returned by operations that read the audit log when none
// is configured.
var ErrNoAuditLog = errors.New("audit log disabled")

// DefaultCalibrationLimit applies when CalibrationHistory is called with limit <= 0.
const DefaultCalibrationLimit = 50

// #region deps

// Deps are the collaborators a Tools instance is built from. Runner and
// Store are required; everything else is optional.
type Deps struct {
	Runner      judge.Runner
	Store       history.Store
	Policy      *policy.Policy // default: policy.Default()
	Audit       *audit.Log
	Metrics     metrics.Recorder
	Logger      zerolog.Logger
	JudgeModel  string
	Temperature *float64 // nil: judge.DefaultTemperature
}

// Tools implements every operation of the tool-call surface.
type Tools struct {
	evaluator *evaluator.Evaluator
	ledger    *history.Ledger
	policy    *policy.Policy
	audit     *audit.Log
	harness   *calibration.Harness
	metrics   metrics.Recorder
}

// New wires Tools from deps.
func New(d Deps) (*Tools, error) {
	if d.Runner == nil {
		return nil, errors.New("service: judge runner is required")
	}
	if d.Store == nil {
		return nil, errors.New("service: history store is required")
	}
	if d.Policy == nil {
		d.Policy = policy.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NoOp{}
	}

	ledgerOpts := []history.LedgerOption{
		history.WithMetrics(d.Metrics),
		history.WithLogger(d.Logger),
	}
	evalOpts := []evaluator.Option{
		evaluator.WithMetrics(d.Metrics),
		evaluator.WithLogger(d.Logger),
	}
	var calStore calibration.Store
	if d.Audit != nil {
		ledgerOpts = append(ledgerOpts, history.WithTriggerLog(d.Audit))
		evalOpts = append(evalOpts, evaluator.WithMetricLog(d.Audit))
		calStore = d.Audit
	}
	if d.JudgeModel != "" {
		evalOpts = append(evalOpts, evaluator.WithJudgeModel(d.JudgeModel))
	}
	if d.Temperature != nil {
		evalOpts = append(evalOpts, evaluator.WithTemperature(*d.Temperature))
	}

	ledger := history.NewLedger(d.Store, d.Policy, ledgerOpts...)
	return &Tools{
		evaluator: evaluator.New(d.Runner, ledger, evalOpts...),
		ledger:    ledger,
		policy:    d.Policy,
		audit:     d.Audit,
		harness:   calibration.NewHarness(calStore, d.Metrics, d.Logger),
		metrics:   d.Metrics,
	}, nil
}

// #endregion deps

// #region evaluation

// Evaluate runs one behavioral evaluation of a local model.
func (t *Tools) Evaluate(ctx context.Context, req evaluator.Request) history.Result {
	return t.evaluator.Evaluate(ctx, req)
}

// Decide recommends whether category work should leave model.
func (t *Tools) Decide(ctx context.Context, model, category string) history.Decision {
	return t.ledger.Decide(ctx, model, category)
}

// Query returns matching history, oldest first.
func (t *Tools) Query(ctx context.Context, req QueryRequest) ([]history.Result, error) {
	limit := req.Limit
	if limit == 0 {
		limit = history.DefaultQueryLimit
	}
	return t.ledger.Query(ctx, req.Model, req.Behavior, limit)
}

// #endregion evaluation

// #region catalog

// ListBehaviors returns the behavior catalog for filter (custom,
// judge_default or all).
func (t *Tools) ListBehaviors(filter string) (map[string]map[string]string, error) {
	return policy.ListBehaviors(policy.BehaviorFilter(filter))
}

// GetThresholds returns the threshold entry for category and the trigger
// catalog. Unknown categories get the fallback band Decide would use.
func (t *Tools) GetThresholds(category string) Thresholds {
	c := policy.ResolveCategory(category)
	return Thresholds{
		TaskCategory:    string(c),
		Known:           t.policy.Known(c),
		Entry:           t.policy.Lookup(c),
		HandoffTriggers: policy.HandoffTriggers(),
	}
}

// Validate checks model before any evaluation is attempted.
func (t *Tools) Validate(model string) adapter.ValidationResult {
	return adapter.Validate(model)
}

// Recommend returns tier defaults for model.
func (t *Tools) Recommend(model string) adapter.RunConfig {
	return adapter.Recommend(model)
}

// Describe renders local model listings in evaluator terms.
func (t *Tools) Describe(models []adapter.ModelInfo) ModelsView {
	out := ModelsView{
		Models:          make([]adapter.ModelDescriptor, 0, len(models)),
		EvaluatorModels: adapter.EvaluatorModels(models),
	}
	for _, m := range models {
		if m.Name == "" {
			continue
		}
		out.Models = append(out.Models, adapter.Describe(m))
	}
	return out
}

// #endregion catalog

// #region heuristic

// ScoreResponse grades a response with the judge-free scorer.
func (t *Tools) ScoreResponse(req ScoreRequest) ScoreView {
	category := req.Category
	if category == "" {
		category = "general"
	}
	s := heuristic.Score(req.Prompt, req.Response, category)
	t.metrics.ObserveHeuristicScore(s.Overall)
	return ScoreView{
		PromptPreview: calibration.Preview(req.Prompt),
		QualityScore:  math.Round(s.Overall*100) / 100,
		Passed:        s.Passed,
		Criteria:      s.Criteria,
		Notes:         s.Notes,
	}
}

// Calibrate scores recorded samples for model and stores every outcome.
func (t *Tools) Calibrate(ctx context.Context, model string, samples []calibration.Sample) (calibration.Summary, error) {
	if model == "" {
		return calibration.Summary{}, errors.New("calibrate: model is required")
	}
	return t.harness.Run(ctx, model, samples)
}

// #endregion heuristic

// #region audit

// CalibrationHistory returns stored calibration outcomes, newest first.
func (t *Tools) CalibrationHistory(ctx context.Context, model string, limit int) (CalibrationHistory, error) {
	if t.audit == nil {
		return CalibrationHistory{}, ErrNoAuditLog
	}
	if limit <= 0 {
		limit = DefaultCalibrationLimit
	}
	cs, err := t.audit.Calibrations(ctx, model, limit)
	if err != nil {
		return CalibrationHistory{}, fmt.Errorf("calibration history: %w", err)
	}
	return CalibrationHistory{Model: model, Limit: limit, History: cs}, nil
}

// HandoffTriggers lists recorded handoff triggers, highest confidence first.
func (t *Tools) HandoffTriggers(ctx context.Context, activeOnly bool) (TriggerList, error) {
	if t.audit == nil {
		return TriggerList{}, ErrNoAuditLog
	}
	ts, err := t.audit.HandoffTriggers(ctx, activeOnly)
	if err != nil {
		return TriggerList{}, fmt.Errorf("handoff triggers: %w", err)
	}
	return TriggerList{Triggers: ts}, nil
}

// MetricsSummary aggregates audit model metrics over the last days.
func (t *Tools) MetricsSummary(ctx context.Context, model string, days int) ([]audit.ModelSummary, error) {
	if t.audit == nil {
		return nil, ErrNoAuditLog
	}
	return t.audit.MetricsSummary(ctx, model, days)
}

// #endregion audit

// #region calibration-catalog

// CalibrationPrompts returns the built-in calibration prompts for category
// ("" or "all" for every category).
func (t *Tools) CalibrationPrompts(category string) (map[string][]string, error) {
	return calibration.Prompts(category)
}

// DeactivateTrigger retires a recorded handoff trigger.
func (t *Tools) DeactivateTrigger(ctx context.Context, id int64) error {
	if t.audit == nil {
		return ErrNoAuditLog
	}
	return t.audit.DeactivateTrigger(ctx, id)
}

// #endregion calibration-catalog
