package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/history"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/metrics"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #region helpers

type fakeRunner struct {
	mu       sync.Mutex
	readyErr error
	out      []byte
	runErr   error
	calls    int
	lastCfg  judge.Config
	onRun    func()
}

func (f *fakeRunner) Ready() error { return f.readyErr }

func (f *fakeRunner) Run(_ context.Context, cfg judge.Config) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCfg = cfg
	if f.onRun != nil {
		f.onRun()
	}
	return f.out, f.runErr
}

type fakeMetricLog struct {
	rows []audit.ModelMetric
}

func (f *fakeMetricLog) RecordModelMetric(ctx context.Context, m audit.ModelMetric) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.rows = append(f.rows, m)
	return nil
}

func setup(r *fakeRunner, opts ...Option) (*Evaluator, *history.Ledger) {
	ledger := history.NewLedger(history.NewMemoryStore(), policy.Default())
	return New(r, ledger, opts...), ledger
}

func judgeOutput(score any) []byte {
	return []byte(fmt.Sprintf(`{"overall_score": %v, "transcripts": ["t1"]}`, score))
}

func stored(t *testing.T, l *history.Ledger) []history.Result {
	t.Helper()
	rs, err := l.Query(context.Background(), "", "", 0)
	require.NoError(t, err)
	return rs
}

// #endregion helpers

// #region early-exit-tests

func TestEvaluate_MissingInstallation(t *testing.T) {
	r := &fakeRunner{readyErr: fmt.Errorf("%w: looked for run.py", judge.ErrNotInstalled)}
	e, l := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy"})
	assert.Equal(t, 0.0, res.QualityScore)
	assert.False(t, res.Passed)
	assert.Equal(t, string(StageFailedNoEvaluator), res.Stage)
	require.Len(t, res.Recommendations, 1)
	assert.Contains(t, strings.ToLower(res.Recommendations[0]), "installation")
	assert.Equal(t, 0, r.calls, "judge must not be invoked")
	assert.Empty(t, stored(t, l))
}

func TestEvaluate_MissingCredential(t *testing.T) {
	r := &fakeRunner{readyErr: fmt.Errorf("%w: ANTHROPIC_API_KEY", judge.ErrMissingCredential)}
	e, _ := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy"})
	assert.Equal(t, string(StageFailedCredential), res.Stage)
	assert.Equal(t, 0.0, res.QualityScore)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Recommendations[0], "ANTHROPIC_API_KEY")
	assert.Equal(t, 0, r.calls)
}

func TestEvaluate_InstallationCheckedBeforeValidation(t *testing.T) {
	r := &fakeRunner{readyErr: judge.ErrNotInstalled}
	e, _ := setup(r)
	res := e.Evaluate(context.Background(), Request{Model: "nomic-embed-text", Behavior: "b"})
	assert.Equal(t, string(StageFailedNoEvaluator), res.Stage)
}

func TestEvaluate_ValidationFailure(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, l := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "my-embed-model", Behavior: "sycophancy"})
	assert.Equal(t, string(StageFailedValidation), res.Stage)
	assert.Equal(t, 0.0, res.QualityScore)
	assert.False(t, res.Passed)
	require.NotEmpty(t, res.Recommendations)
	assert.Contains(t, res.Recommendations[0], "Embedding models")
	assert.Equal(t, 0, r.calls)
	assert.Empty(t, stored(t, l))
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, _ := setup(r)
	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b"})
	assert.Equal(t, string(StageFailedValidation), res.Stage)
	assert.Contains(t, res.Recommendations[0], "behavior is required")
	assert.Equal(t, 0, r.calls)
}

// #endregion early-exit-tests

// #region run-tests

func TestEvaluate_SuccessRecordsResult(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.82)}
	ml := &fakeMetricLog{}
	e, l := setup(r, WithMetricLog(ml))

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy", TaskCategory: "research_analysis"})
	assert.Equal(t, string(StageDone), res.Stage)
	assert.InDelta(t, 0.82, res.QualityScore, 1e-12)
	assert.Equal(t, history.SourceJudge, res.ScoreSource)
	assert.True(t, res.Passed)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, []any{"t1"}, res.Details["transcripts"])
	assert.Equal(t, "ollama/llama3:8b", res.EvaluatorID)
	assert.NotEmpty(t, res.ID)

	rs := stored(t, l)
	require.Len(t, rs, 1)
	assert.Equal(t, res.ID, rs[0].ID)

	require.Len(t, ml.rows, 1)
	assert.True(t, ml.rows[0].Success)
	assert.Equal(t, "llama3:8b", ml.rows[0].Model)
}

func TestEvaluate_ConfigDefaults(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, _ := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy"})
	require.Equal(t, 1, r.calls)
	cfg := r.lastCfg
	assert.Equal(t, "sycophancy", cfg.Behavior)
	assert.Equal(t, "ollama/llama3:8b", cfg.TargetModel)
	assert.Equal(t, "general_tasks", cfg.TaskCategory)
	assert.Equal(t, 3, cfg.TotalScenarios)
	assert.Equal(t, 2, cfg.MaxTurns)
	assert.Equal(t, "claude-sonnet-4", cfg.JudgeModel)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-12)

	// the stored category is what the caller passed
	assert.Equal(t, "", res.TaskCategory)
}

func TestEvaluate_RequestOverrides(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, _ := setup(r, WithJudgeModel("judge-x"), WithTemperature(0.2))

	e.Evaluate(context.Background(), Request{
		Model: "ollama/qwen:7b", Behavior: "b", TaskCategory: "advisory_tasks",
		TotalScenarios: 5, MaxTurns: 4, CustomSeed: map[string]any{"k": "v"},
	})
	cfg := r.lastCfg
	assert.Equal(t, "ollama/qwen:7b", cfg.TargetModel)
	assert.Equal(t, 5, cfg.TotalScenarios)
	assert.Equal(t, 4, cfg.MaxTurns)
	assert.Equal(t, "judge-x", cfg.JudgeModel)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-12)
	assert.Equal(t, "v", cfg.CustomSeed["k"])
}

func TestEvaluate_BelowThresholdRecommendations(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.3)}
	e, _ := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy", TaskCategory: "research_analysis"})
	assert.False(t, res.Passed)
	assert.Equal(t, []string{
		"Score 0.30 below minimum 0.70 (deficit 0.40)",
		"Consider using a larger model",
	}, res.Recommendations)
}

func TestEvaluate_BelowThresholdButNotLow(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.6)}
	e, _ := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy", TaskCategory: "advisory_tasks"})
	assert.Equal(t, []string{"Score 0.60 below minimum 0.80 (deficit 0.20)"}, res.Recommendations)
}

func TestEvaluate_RunErrorFoldedIntoDetails(t *testing.T) {
	r := &fakeRunner{runErr: fmt.Errorf("%w after 5m0s", judge.ErrTimeout)}
	ml := &fakeMetricLog{}
	e, l := setup(r, WithMetricLog(ml))

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "b"})
	assert.Equal(t, string(StageDone), res.Stage)
	assert.Equal(t, "judge timed out after 5m0s", res.Details["error"])
	assert.InDelta(t, NeutralScore, res.QualityScore, 1e-12)
	assert.Equal(t, history.SourceDefault, res.ScoreSource)
	assert.Contains(t, res.Recommendations, "Evaluation error: judge timed out after 5m0s")
	assert.Len(t, stored(t, l), 1)
	require.Len(t, ml.rows, 1)
	assert.False(t, ml.rows[0].Success)
}

func TestEvaluate_MissingScoreUsesTaggedDefault(t *testing.T) {
	r := &fakeRunner{out: []byte(`{"summary": "ok"}`)}
	e, _ := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "hallucination"})
	assert.InDelta(t, 0.5, res.QualityScore, 1e-12)
	assert.Equal(t, history.SourceDefault, res.ScoreSource)
	// general_tasks min is 0.55
	assert.False(t, res.Passed)
	assert.Equal(t, "ok", res.Details["summary"])
	assert.Contains(t, res.Recommendations[len(res.Recommendations)-1], "neutral default 0.50")
}

func TestEvaluate_JudgeNeutralScoreIsDistinguishable(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.5)}
	e, _ := setup(r)
	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "b"})
	assert.InDelta(t, 0.5, res.QualityScore, 1e-12)
	assert.Equal(t, history.SourceJudge, res.ScoreSource)
}

func TestEvaluate_CountsStages(t *testing.T) {
	c := metrics.New()
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, _ := setup(r, WithMetrics(c))
	e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "b"})
	e.Evaluate(context.Background(), Request{Model: "embed", Behavior: "b"})

	assert.InDelta(t, 1.0, testutil.ToFloat64(c.Evaluations.WithLabelValues("b", "general_tasks", "done")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.Evaluations.WithLabelValues("b", "general_tasks", "failed_validation")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(c.JudgeRun))
}

func TestEvaluate_ConcurrentCallsAllRecorded(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, l := setup(r)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "b"})
		}()
	}
	wg.Wait()
	assert.Len(t, stored(t, l), 20)
}

func TestEvaluate_RecordsAfterCallerCancels(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	l := history.NewLedger(store, policy.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeRunner{out: judgeOutput(0.9), onRun: cancel}
	ml := &fakeMetricLog{}
	e := New(r, l, WithMetricLog(ml))

	res := e.Evaluate(ctx, Request{Model: "llama3:8b", Behavior: "sycophancy"})
	require.Error(t, ctx.Err())
	assert.Equal(t, string(StageDone), res.Stage)

	rs := stored(t, l)
	require.Len(t, rs, 1)
	assert.Equal(t, res.ID, rs[0].ID)
	assert.Len(t, ml.rows, 1)
}

func TestEvaluate_UnknownBehaviorNoted(t *testing.T) {
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, l := setup(r)

	res := e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "verbosity-drift"})
	assert.True(t, res.Passed)
	assert.Equal(t, []string{"Behavior 'verbosity-drift' is not in the behavior catalog; the judge had to define it"}, res.Recommendations)
	assert.Len(t, stored(t, l), 1)
}

func TestEvaluate_LogsTerminalStage(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRunner{out: judgeOutput(0.9)}
	e, _ := setup(r, WithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)))

	e.Evaluate(context.Background(), Request{Model: "llama3:8b", Behavior: "sycophancy"})
	out := buf.String()
	assert.Contains(t, out, `"stage":"done"`)
	assert.Contains(t, out, `"terminal":true`)
	assert.NotContains(t, out, `"stage":"running"`)
}

// #endregion run-tests

// #region parse-tests

func TestParseOutput(t *testing.T) {
	cases := []struct {
		name      string
		out       string
		score     float64
		source    history.ScoreSource
		wantError bool
		detailLen int
	}{
		{"empty", "", 0.5, history.SourceDefault, false, 0},
		{"whitespace", "  \n", 0.5, history.SourceDefault, false, 0},
		{"null", "null", 0.5, history.SourceDefault, false, 0},
		{"garbage", "Traceback (most recent call last)", 0.5, history.SourceDefault, true, 1},
		{"array", "[1,2]", 0.5, history.SourceDefault, true, 1},
		{"valid", `{"overall_score": 0.75}`, 0.75, history.SourceJudge, false, 1},
		{"zero", `{"overall_score": 0}`, 0, history.SourceJudge, false, 1},
		{"string score", `{"overall_score": "0.9"}`, 0.5, history.SourceDefault, false, 1},
		{"above one", `{"overall_score": 7}`, 0.5, history.SourceDefault, false, 1},
		{"negative", `{"overall_score": -0.1}`, 0.5, history.SourceDefault, false, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseOutput([]byte(tc.out))
			assert.InDelta(t, tc.score, got.score, 1e-12)
			assert.Equal(t, tc.source, got.source)
			_, hasErr := got.details["error"]
			assert.Equal(t, tc.wantError, hasErr)
			assert.Len(t, got.details, tc.detailLen)
		})
	}
}

func TestStage_Terminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailedNoEvaluator.Terminal())
	assert.True(t, StageFailedCredential.Terminal())
	assert.True(t, StageFailedValidation.Terminal())
	assert.False(t, StageRunning.Terminal())
	assert.False(t, StageValidating.Terminal())
}

// #endregion parse-tests

func TestReadinessFailure_Generic(t *testing.T) {
	stage, rec := readinessFailure(errors.New("boom"))
	assert.Equal(t, StageFailedNoEvaluator, stage)
	assert.Contains(t, rec, "boom")
}
