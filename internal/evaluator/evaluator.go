package evaluator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/handoff/internal/adapter"
	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/history"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/metrics"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #endregion

// #region evaluator-struct

// Evaluator drives one evaluation from validation to a recorded result.
type Evaluator struct {
	runner      judge.Runner
	ledger      *history.Ledger
	policy      *policy.Policy
	metricLog   MetricLog
	metrics     metrics.Recorder
	logger      zerolog.Logger
	judgeModel  string
	temperature float64
	now         func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMetricLog writes a model_metrics row per evaluation.
func WithMetricLog(m MetricLog) Option {
	return func(e *Evaluator) { e.metricLog = m }
}

// WithMetrics reports stage counts and judge run time to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(e *Evaluator) { e.metrics = r }
}

// WithLogger sets the evaluator's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithJudgeModel overrides the judge identity written into run configs.
func WithJudgeModel(model string) Option {
	return func(e *Evaluator) { e.judgeModel = model }
}

// WithTemperature overrides the target model temperature.
func WithTemperature(t float64) Option {
	return func(e *Evaluator) { e.temperature = t }
}

// New creates an evaluator that runs judge runs through runner and records
// into ledger.
func New(runner judge.Runner, ledger *history.Ledger, opts ...Option) *Evaluator {
	e := &Evaluator{
		runner:      runner,
		ledger:      ledger,
		policy:      ledger.Policy(),
		metrics:     metrics.NoOp{},
		logger:      zerolog.Nop(),
		judgeModel:  judge.DefaultJudgeModel,
		temperature: judge.DefaultTemperature,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "evaluator").Logger()
	return e
}

// #endregion evaluator-struct

// #region evaluate

// Evaluate runs the full pipeline for req. It never returns an error: every
// failure becomes a result whose Stage names where it stopped.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) history.Result {
	category := policy.ResolveCategory(req.TaskCategory)
	base := history.Result{
		Behavior:     req.Behavior,
		Model:        req.Model,
		EvaluatorID:  adapter.ToEvaluatorID(req.Model),
		TaskCategory: req.TaskCategory,
		ScoreSource:  history.SourceNone,
	}

	// Validating
	e.transition(req, StageValidating)
	if err := e.runner.Ready(); err != nil {
		stage, rec := readinessFailure(err)
		return e.exit(req, base, stage, rec)
	}
	if v := adapter.Validate(req.Model); !v.Valid {
		return e.exit(req, base, StageFailedValidation, v.Errors...)
	}

	// ConfigBuilding
	e.transition(req, StageConfigBuilding)
	cfg := judge.Config{
		Behavior:       req.Behavior,
		TargetModel:    base.EvaluatorID,
		TaskCategory:   string(category),
		TotalScenarios: req.TotalScenarios,
		MaxTurns:       req.MaxTurns,
		JudgeModel:     e.judgeModel,
		Temperature:    e.temperature,
		CustomSeed:     req.CustomSeed,
	}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return e.exit(req, base, StageFailedValidation, fmt.Sprintf("Invalid evaluation config: %v", err))
	}

	// Running
	e.transition(req, StageRunning)
	started := time.Now()
	out, runErr := e.runner.Run(ctx, cfg)
	elapsed := time.Since(started)
	e.metrics.ObserveJudgeRun(elapsed)

	// Parsing
	e.transition(req, StageParsing)
	var parsed parseOutcome
	if runErr != nil {
		e.logger.Warn().Err(runErr).Str("model", req.Model).Str("behavior", req.Behavior).Msg("judge run failed")
		parsed = parseOutcome{
			details: map[string]any{"error": runErr.Error()},
			score:   NeutralScore,
			source:  history.SourceDefault,
		}
	} else {
		parsed = parseOutput(out)
	}

	// Done
	r := base
	r.QualityScore = parsed.score
	r.ScoreSource = parsed.source
	r.Details = parsed.details
	r.Stage = string(StageDone)
	r.Timestamp = e.now()
	r = history.NewResult(r, e.policy)
	r.Recommendations = e.recommend(r, category)

	e.transition(req, StageDone)
	e.metrics.RecordEvaluation(req.Behavior, string(category), string(StageDone))

	// a finished judge run is recorded even if the caller has gone away
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RecordTimeout)
	defer cancel()
	if err := e.ledger.Record(recCtx, r); err != nil {
		e.logger.Error().Err(err).Str("id", r.ID).Msg("result not recorded")
	}
	e.recordMetric(recCtx, req, elapsed, runErr == nil && parsed.details["error"] == nil)
	return r
}

// #endregion evaluate

// #region recommendations

func (e *Evaluator) recommend(r history.Result, category policy.Category) []string {
	recs := []string{}
	if !r.Passed {
		minScore := e.policy.MinScore(category)
		recs = append(recs, fmt.Sprintf("Score %.2f below minimum %.2f (deficit %.2f)",
			r.QualityScore, minScore, minScore-r.QualityScore))
		if r.QualityScore < LowCapabilityScore {
			recs = append(recs, "Consider using a larger model")
		}
	}
	if msg, ok := r.Details["error"]; ok && msg != nil && msg != "" {
		recs = append(recs, fmt.Sprintf("Evaluation error: %v", msg))
	}
	if r.ScoreSource == history.SourceDefault {
		recs = append(recs, fmt.Sprintf("Judge reported no usable overall_score; neutral default %.2f applied", NeutralScore))
	}
	if !policy.IsKnownBehavior(r.Behavior) {
		recs = append(recs, fmt.Sprintf("Behavior '%s' is not in the behavior catalog; the judge had to define it", r.Behavior))
	}
	return recs
}

// #endregion recommendations

// #region early-exit

func readinessFailure(err error) (Stage, string) {
	switch {
	case errors.Is(err, judge.ErrMissingCredential):
		return StageFailedCredential, fmt.Sprintf("Judge credential missing (%v). Export it before evaluating.", err)
	case errors.Is(err, judge.ErrNotInstalled):
		return StageFailedNoEvaluator, fmt.Sprintf("Judge installation not found (%v). Install the judge framework from https://github.com/anthropics/bloom into one of the probed locations.", err)
	default:
		return StageFailedNoEvaluator, fmt.Sprintf("Judge unavailable: %v", err)
	}
}

// exit builds the zero-score result for an early terminal stage. Such results
// describe the environment rather than the model, so they are not recorded
// into history.
func (e *Evaluator) exit(req Request, base history.Result, stage Stage, recs ...string) history.Result {
	r := base
	r.QualityScore = 0
	r.Stage = string(stage)
	r.Timestamp = e.now()
	r.Recommendations = append([]string{}, recs...)
	r = history.NewResult(r, e.policy)
	r.Passed = false

	e.transition(req, stage)
	e.metrics.RecordEvaluation(req.Behavior, string(policy.ResolveCategory(req.TaskCategory)), string(stage))
	return r
}

// #endregion early-exit

// #region helpers

func (e *Evaluator) transition(req Request, s Stage) {
	ev := e.logger.Debug()
	if s.Terminal() {
		ev = e.logger.Info()
	}
	ev.Str("model", req.Model).Str("behavior", req.Behavior).Str("stage", string(s)).Bool("terminal", s.Terminal()).Msg("stage")
}

func (e *Evaluator) recordMetric(ctx context.Context, req Request, elapsed time.Duration, ok bool) {
	if e.metricLog == nil {
		return
	}
	err := e.metricLog.RecordModelMetric(ctx, audit.ModelMetric{
		Model:          req.Model,
		LatencySeconds: elapsed.Seconds(),
		Success:        ok,
		UseCase:        "evaluate:" + req.Behavior,
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("audit model metric failed")
	}
}

// #endregion helpers
