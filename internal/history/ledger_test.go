package history

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/metrics"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #region helpers

type fakeTriggerLog struct {
	recorded []audit.HandoffTrigger
	err      error
}

func (f *fakeTriggerLog) RecordHandoffTrigger(ctx context.Context, t audit.HandoffTrigger) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.recorded = append(f.recorded, t)
	return int64(len(f.recorded)), nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, Result) error { return errors.New("disk on fire") }
func (failingStore) List(context.Context, Filter) ([]Result, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Close() error { return nil }

func seed(t *testing.T, l *Ledger, model, category string, scores ...float64) {
	t.Helper()
	for _, s := range scores {
		r := NewResult(Result{Behavior: "sycophancy", Model: model, TaskCategory: category, QualityScore: s}, l.Policy())
		require.NoError(t, l.Record(context.Background(), r))
	}
}

func newLedger(opts ...LedgerOption) *Ledger {
	return NewLedger(NewMemoryStore(), policy.Default(), opts...)
}

// #endregion helpers

// #region new-result-tests

func TestNewResult_DerivesPassed(t *testing.T) {
	p := policy.Default()

	pass := NewResult(Result{Model: "m", TaskCategory: "research_analysis", QualityScore: 0.70}, p)
	assert.True(t, pass.Passed)
	fail := NewResult(Result{Model: "m", TaskCategory: "research_analysis", QualityScore: 0.69}, p)
	assert.False(t, fail.Passed)

	// empty category is judged against general_tasks (0.55)
	general := NewResult(Result{Model: "m", QualityScore: 0.55}, p)
	assert.True(t, general.Passed)
	assert.Equal(t, "", general.TaskCategory)

	// unknown category uses the default band (0.5)
	unknown := NewResult(Result{Model: "m", TaskCategory: "poetry", QualityScore: 0.5}, p)
	assert.True(t, unknown.Passed)
}

func TestNewResult_StampsIdentity(t *testing.T) {
	r := NewResult(Result{Model: "m"}, policy.Default())
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
	assert.NotNil(t, r.Details)
	assert.NotNil(t, r.Recommendations)

	other := NewResult(Result{Model: "m"}, policy.Default())
	assert.NotEqual(t, r.ID, other.ID)

	kept := NewResult(Result{ID: "fixed", Timestamp: baseTime}, policy.Default())
	assert.Equal(t, "fixed", kept.ID)
	assert.True(t, kept.Timestamp.Equal(baseTime))
}

// #endregion new-result-tests

// #region decide-tests

func TestDecide_NoHistory(t *testing.T) {
	l := newLedger()
	d := l.Decide(context.Background(), "llama3:8b", "research_analysis")

	assert.False(t, d.ShouldHandoff)
	assert.Equal(t, 0.3, d.Confidence)
	assert.Contains(t, d.Reason, "No evaluation history")
	assert.Equal(t, policy.TriggerReviewRequired, d.Trigger)
	assert.Empty(t, d.RecentScores)
}

func TestDecide_HighScoresStay(t *testing.T) {
	l := newLedger()
	seed(t, l, "llama3:8b", "research_analysis", 0.9, 0.9, 0.9)

	d := l.Decide(context.Background(), "llama3:8b", "research_analysis")
	assert.False(t, d.ShouldHandoff)
	assert.InDelta(t, 0.9, d.Confidence, 1e-9)
	assert.InDelta(t, 0.7, d.MinScore, 1e-9)
	assert.Equal(t, policy.TriggerMonitor, d.Trigger)
	assert.Len(t, d.RecentScores, 3)
	assert.Contains(t, d.Reason, "meets minimum requirements")
}

func TestDecide_LowScoresHandOff(t *testing.T) {
	triggers := &fakeTriggerLog{}
	l := newLedger(WithTriggerLog(triggers))
	seed(t, l, "tiny:1b", "research_analysis", 0.3, 0.3, 0.3)

	d := l.Decide(context.Background(), "tiny:1b", "research_analysis")
	assert.True(t, d.ShouldHandoff)
	assert.InDelta(t, 1.0-0.3/0.7, d.Confidence, 1e-9)
	assert.InDelta(t, 0.571, d.Confidence, 1e-3)
	assert.Equal(t, policy.TriggerImmediate, d.Trigger)
	assert.Equal(t, "Average score 0.30 below minimum 0.70 (deficit 0.40)", d.Reason)

	require.Len(t, triggers.recorded, 1)
	assert.Equal(t, "tiny:1b", triggers.recorded[0].Model)
	assert.Equal(t, "immediate", triggers.recorded[0].PatternType)
	assert.InDelta(t, d.Confidence, triggers.recorded[0].Confidence, 1e-12)
}

func TestDecide_TriggerWrittenAfterCallerCancels(t *testing.T) {
	triggers := &fakeTriggerLog{}
	l := newLedger(WithTriggerLog(triggers))
	seed(t, l, "tiny:1b", "research_analysis", 0.3, 0.3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := l.Decide(ctx, "tiny:1b", "research_analysis")
	require.True(t, d.ShouldHandoff)
	require.Len(t, triggers.recorded, 1)
	assert.Equal(t, "immediate", triggers.recorded[0].PatternType)
}

func TestDecide_StayDoesNotWriteTrigger(t *testing.T) {
	triggers := &fakeTriggerLog{}
	l := newLedger(WithTriggerLog(triggers))
	seed(t, l, "m", "general_tasks", 0.9)
	l.Decide(context.Background(), "m", "general_tasks")
	assert.Empty(t, triggers.recorded)
}

func TestDecide_CategoryPreferredOverOthers(t *testing.T) {
	l := newLedger()
	seed(t, l, "m", "advisory_tasks", 0.2, 0.2)
	seed(t, l, "m", "data_processing", 0.9, 0.9)

	d := l.Decide(context.Background(), "m", "data_processing")
	assert.False(t, d.ShouldHandoff)
	assert.InDelta(t, 0.9, d.Mean, 1e-9)
	assert.Equal(t, 2, d.SampleSize)
}

func TestDecide_FallsBackToAllCategories(t *testing.T) {
	l := newLedger()
	seed(t, l, "m", "advisory_tasks", 0.2, 0.4)

	d := l.Decide(context.Background(), "m", "research_analysis")
	assert.True(t, d.ShouldHandoff)
	assert.InDelta(t, 0.3, d.Mean, 1e-9)
	assert.Equal(t, 2, d.SampleSize)
}

func TestDecide_RecentScoresAreLastThreeUsed(t *testing.T) {
	l := newLedger()
	seed(t, l, "m", "general_tasks", 0.1, 0.2, 0.3, 0.4, 0.5)

	d := l.Decide(context.Background(), "m", "general_tasks")
	require.Len(t, d.RecentScores, 3)
	assert.InDeltaSlice(t, []float64{0.3, 0.4, 0.5}, d.RecentScores, 1e-12)
}

func TestDecide_WindowIsTenMostRecent(t *testing.T) {
	l := newLedger()
	// five old failures then ten recent passes
	seed(t, l, "m", "general_tasks", 0, 0, 0, 0, 0)
	seed(t, l, "m", "general_tasks", 0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8)

	d := l.Decide(context.Background(), "m", "general_tasks")
	assert.False(t, d.ShouldHandoff)
	assert.Equal(t, DecisionWindow, d.SampleSize)
	assert.InDelta(t, 0.8, d.Mean, 1e-9)
}

func TestDecide_IgnoresOtherModels(t *testing.T) {
	l := newLedger()
	seed(t, l, "other", "general_tasks", 0.1)
	d := l.Decide(context.Background(), "m", "general_tasks")
	assert.Equal(t, 0.3, d.Confidence)
	assert.False(t, d.ShouldHandoff)
}

func TestDecide_BoundaryIsReviewRequired(t *testing.T) {
	l := newLedger()
	// general_tasks min 0.55; 0.56 is within 5% above it
	seed(t, l, "m", "general_tasks", 0.56)
	d := l.Decide(context.Background(), "m", "general_tasks")
	assert.False(t, d.ShouldHandoff)
	assert.Equal(t, policy.TriggerReviewRequired, d.Trigger)
}

func TestDecide_UnknownCategoryUsesDefaultBand(t *testing.T) {
	l := newLedger()
	seed(t, l, "m", "poetry", 0.45)
	d := l.Decide(context.Background(), "m", "poetry")
	assert.True(t, d.ShouldHandoff)
	assert.InDelta(t, policy.DefaultMinScore, d.MinScore, 1e-12)
}

func TestDecide_EmptyCategoryUsesGeneralBand(t *testing.T) {
	l := newLedger()
	seed(t, l, "m", "", 0.52)
	rs, err := l.Query(context.Background(), "m", "", 0)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.False(t, rs[0].Passed)

	d := l.Decide(context.Background(), "m", "")
	assert.InDelta(t, 0.55, d.MinScore, 1e-12)
	assert.True(t, d.ShouldHandoff)
	assert.Equal(t, "", d.TaskCategory)
}

func TestDecide_StoreFailureStillAnswers(t *testing.T) {
	l := NewLedger(failingStore{}, policy.Default())
	d := l.Decide(context.Background(), "m", "general_tasks")
	assert.False(t, d.ShouldHandoff)
	assert.Equal(t, 0.3, d.Confidence)
	assert.Contains(t, d.Reason, "disk on fire")
}

func TestDecide_TriggerLogFailureIgnored(t *testing.T) {
	l := newLedger(WithTriggerLog(&fakeTriggerLog{err: errors.New("audit down")}))
	seed(t, l, "m", "general_tasks", 0.1)
	d := l.Decide(context.Background(), "m", "general_tasks")
	assert.True(t, d.ShouldHandoff)
}

func TestDecide_CountsDecisions(t *testing.T) {
	c := metrics.New()
	l := newLedger(WithMetrics(c))
	l.Decide(context.Background(), "m", "general_tasks")
	seed(t, l, "m", "general_tasks", 0.1)
	l.Decide(context.Background(), "m", "general_tasks")

	assert.InDelta(t, 1.0, testutil.ToFloat64(c.Decisions.WithLabelValues("review_required")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.Decisions.WithLabelValues("immediate")), 1e-9)
}

// #endregion decide-tests

// #region record-query-tests

func TestLedger_QueryFiltersAndLimits(t *testing.T) {
	l := newLedger()
	seed(t, l, "a", "", 0.1, 0.2, 0.3)
	seed(t, l, "b", "", 0.9)

	got, err := l.Query(context.Background(), "a", "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.2, got[0].QualityScore, 1e-12)
	assert.InDelta(t, 0.3, got[1].QualityScore, 1e-12)

	none, err := l.Query(context.Background(), "nobody", "", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestLedger_RecordError(t *testing.T) {
	l := NewLedger(failingStore{}, policy.Default())
	err := l.Record(context.Background(), Result{Model: "m"})
	assert.Error(t, err)

	_, err = l.Query(context.Background(), "m", "", 1)
	assert.Error(t, err)
}

// #endregion record-query-tests
