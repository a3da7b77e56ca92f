package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// #region recorder

// Recorder is the interface the core components report through.
// This allows for no-op implementations when metrics are disabled.
type Recorder interface {
	RecordEvaluation(behavior, category, stage string)
	ObserveJudgeRun(d time.Duration)
	RecordDecision(trigger string)
	ObserveHeuristicScore(score float64)
}

// Ensure implementations satisfy the interface.
var (
	_ Recorder = (*Collectors)(nil)
	_ Recorder = NoOp{}
)

// NoOp discards everything.
type NoOp struct{}

func (NoOp) RecordEvaluation(_, _, _ string) {}
func (NoOp) ObserveJudgeRun(_ time.Duration) {}
func (NoOp) RecordDecision(_ string)         {}
func (NoOp) ObserveHeuristicScore(_ float64) {}

// #endregion recorder

// #region collectors

// JudgeRunBuckets span a quick failure up to the five minute judge deadline.
var JudgeRunBuckets = []float64{0.5, 1, 5, 15, 30, 60, 120, 240, 300}

// Collectors holds the handoff evaluator's Prometheus metrics on a private
// registry, so several instances never collide on the default registerer.
type Collectors struct {
	registry *prometheus.Registry

	// Evaluations counts evaluation calls by behavior, category and terminal stage.
	Evaluations *prometheus.CounterVec
	// JudgeRun tracks wall time of judge invocations.
	JudgeRun prometheus.Histogram
	// Decisions counts handoff decisions by trigger level.
	Decisions *prometheus.CounterVec
	// HeuristicScore tracks overall heuristic scores.
	HeuristicScore prometheus.Histogram
}

// New creates collectors on a fresh registry.
func New() *Collectors {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates collectors registered against reg.
func NewWithRegistry(reg *prometheus.Registry) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		registry: reg,
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "handoff_evaluations_total",
			Help: "Evaluation calls by behavior, task category and terminal stage",
		}, []string{"behavior", "category", "stage"}),

		JudgeRun: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "handoff_judge_run_seconds",
			Help:    "Judge invocation duration in seconds",
			Buckets: JudgeRunBuckets,
		}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "handoff_decisions_total",
			Help: "Handoff decisions by trigger level",
		}, []string{"trigger"}),

		HeuristicScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "handoff_heuristic_score",
			Help:    "Overall heuristic quality score",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
}

// Registry exposes the private registry for gathering.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// #endregion collectors

// #region record

func (c *Collectors) RecordEvaluation(behavior, category, stage string) {
	c.Evaluations.WithLabelValues(behavior, category, stage).Inc()
}

func (c *Collectors) ObserveJudgeRun(d time.Duration) {
	c.JudgeRun.Observe(d.Seconds())
}

func (c *Collectors) RecordDecision(trigger string) {
	c.Decisions.WithLabelValues(trigger).Inc()
}

func (c *Collectors) ObserveHeuristicScore(score float64) {
	c.HeuristicScore.Observe(score)
}

// #endregion record

// #region push

// Push sends every collected metric to a Prometheus pushgateway under job.
// The CLI is a short-lived batch job, so nothing is scraped.
func (c *Collectors) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = "handoff"
	}
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// #endregion push
