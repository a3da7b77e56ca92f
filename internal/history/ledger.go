package history

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/metrics"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #region constants

// DecisionWindow is how many of a model's most recent results Decide reads.
const DecisionWindow = 10

// RecentScoreCount is the length of Decision.RecentScores.
const RecentScoreCount = 3

// NoHistoryConfidence is the confidence reported when a model has no results.
const NoHistoryConfidence = 0.3

// DefaultQueryLimit applies when Query is called with limit <= 0 by the tool surface.
const DefaultQueryLimit = 10

// #endregion constants

// #region ledger

// TriggerLog receives handoff decisions for the audit trail.
type TriggerLog interface {
	RecordHandoffTrigger(ctx context.Context, t audit.HandoffTrigger) (int64, error)
}

// Ledger owns the evaluation history and derives handoff decisions from it.
type Ledger struct {
	store    Store
	policy   *policy.Policy
	triggers TriggerLog
	metrics  metrics.Recorder
	logger   zerolog.Logger
}

// LedgerOption configures optional Ledger collaborators.
type LedgerOption func(*Ledger)

// WithTriggerLog records every handoff decision into t.
func WithTriggerLog(t TriggerLog) LedgerOption {
	return func(l *Ledger) { l.triggers = t }
}

// WithMetrics reports decisions to r.
func WithMetrics(r metrics.Recorder) LedgerOption {
	return func(l *Ledger) { l.metrics = r }
}

// WithLogger sets the ledger's logger.
func WithLogger(logger zerolog.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger creates a ledger over store, judged against pol.
func NewLedger(store Store, pol *policy.Policy, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:   store,
		policy:  pol,
		metrics: metrics.NoOp{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("component", "ledger").Logger()
	return l
}

// Policy returns the threshold policy the ledger judges against.
func (l *Ledger) Policy() *policy.Policy {
	return l.policy
}

// #endregion ledger

// #region record-query

// Record appends r to the history.
func (l *Ledger) Record(ctx context.Context, r Result) error {
	if err := l.store.Append(ctx, r); err != nil {
		l.logger.Error().Err(err).Str("model", r.Model).Msg("append to history failed")
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Query returns the most recent limit results matching model and behavior
// (either may be empty), oldest first.
func (l *Ledger) Query(ctx context.Context, model, behavior string, limit int) ([]Result, error) {
	rs, err := l.store.List(ctx, Filter{Model: model, Behavior: behavior, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	if rs == nil {
		rs = []Result{}
	}
	return rs, nil
}

// #endregion record-query

// #region decide

// Decide recommends whether work in category should leave model for a
// stronger remote model. It always returns a usable decision.
func (l *Ledger) Decide(ctx context.Context, model, category string) Decision {
	minScore := l.policy.MinScore(policy.ResolveCategory(category))
	d := Decision{
		Model:        model,
		TaskCategory: category,
		RecentScores: []float64{},
		MinScore:     minScore,
	}

	recent, err := l.store.List(ctx, Filter{Model: model, Limit: DecisionWindow})
	if err != nil {
		l.logger.Error().Err(err).Str("model", model).Msg("history unavailable for decision")
		d.Confidence = NoHistoryConfidence
		d.Reason = fmt.Sprintf("Evaluation history unavailable: %v", err)
		d.Trigger = policy.TriggerReviewRequired
		l.metrics.RecordDecision(string(d.Trigger))
		return d
	}
	if len(recent) == 0 {
		d.Confidence = NoHistoryConfidence
		d.Reason = "No evaluation history. Run an evaluation first."
		d.Trigger = policy.TriggerReviewRequired
		l.metrics.RecordDecision(string(d.Trigger))
		return d
	}

	scores := selectScores(recent, category)
	mean := 0.5
	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		mean = sum / float64(len(scores))
	}
	d.Mean = mean
	d.SampleSize = len(scores)
	d.RecentScores = lastScores(scores, RecentScoreCount)

	if mean < minScore {
		d.ShouldHandoff = true
		d.Confidence = math.Min(1.0, 1.0-mean/minScore)
		d.Reason = fmt.Sprintf("Average score %.2f below minimum %.2f (deficit %.2f)", mean, minScore, minScore-mean)
		d.Trigger = policy.TriggerImmediate
	} else {
		d.Confidence = math.Min(mean, 1.0)
		d.Reason = fmt.Sprintf("Score %.2f meets minimum requirements (margin %.2f)", mean, mean-minScore)
		d.Trigger = policy.TriggerMonitor
		if mean < minScore*(1+policy.BoundaryMargin) {
			d.Trigger = policy.TriggerReviewRequired
		}
	}

	l.logger.Debug().
		Str("model", model).
		Str("category", category).
		Float64("mean", mean).
		Float64("min", minScore).
		Str("trigger", string(d.Trigger)).
		Msg("decision")
	l.metrics.RecordDecision(string(d.Trigger))

	if d.ShouldHandoff && l.triggers != nil {
		_, err := l.triggers.RecordHandoffTrigger(context.WithoutCancel(ctx), audit.HandoffTrigger{
			Model:       model,
			PatternType: string(d.Trigger),
			Description: d.Reason,
			Confidence:  d.Confidence,
		})
		if err != nil {
			l.logger.Error().Err(err).Str("model", model).Msg("audit handoff trigger failed")
		}
	}
	return d
}

// selectScores prefers results in category and falls back to all of them.
func selectScores(rs []Result, category string) []float64 {
	var matched, all []float64
	for _, r := range rs {
		all = append(all, r.QualityScore)
		if r.TaskCategory == category {
			matched = append(matched, r.QualityScore)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return all
}

func lastScores(scores []float64, n int) []float64 {
	if len(scores) > n {
		scores = scores[len(scores)-n:]
	}
	return append([]float64{}, scores...)
}

// #endregion decide
