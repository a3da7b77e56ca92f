package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/handoff/internal/adapter"
	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/calibration"
	"github.com/danielpatrickdp/handoff/internal/evaluator"
	"github.com/danielpatrickdp/handoff/internal/history"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #region helpers

type stubRunner struct {
	mu  sync.Mutex
	out string
	cfg judge.Config
}

func (s *stubRunner) Ready() error { return nil }

func (s *stubRunner) Run(_ context.Context, cfg judge.Config) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return []byte(s.out), nil
}

func newTools(t *testing.T, withAudit bool) (*Tools, *stubRunner, *audit.Log) {
	t.Helper()
	r := &stubRunner{out: `{"overall_score": 0.3}`}
	d := Deps{Runner: r, Store: history.NewMemoryStore(), Logger: zerolog.Nop()}
	var log *audit.Log
	if withAudit {
		var err error
		log, err = audit.Open(filepath.Join(t.TempDir(), "metrics.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = log.Close() })
		d.Audit = log
	}
	tools, err := New(d)
	require.NoError(t, err)
	return tools, r, log
}

// #endregion helpers

func TestNew_RequiresRunnerAndStore(t *testing.T) {
	_, err := New(Deps{Store: history.NewMemoryStore()})
	assert.Error(t, err)
	_, err = New(Deps{Runner: &stubRunner{}})
	assert.Error(t, err)
}

// #region evaluation-tests

func TestTools_EvaluateThenDecide(t *testing.T) {
	tools, _, log := newTools(t, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := tools.Evaluate(ctx, evaluator.Request{Model: "llama3:8b", Behavior: "sycophancy", TaskCategory: "research_analysis"})
		assert.Equal(t, 0.3, res.QualityScore)
		assert.False(t, res.Passed)
	}

	d := tools.Decide(ctx, "llama3:8b", "research_analysis")
	assert.True(t, d.ShouldHandoff)
	assert.Equal(t, policy.TriggerImmediate, d.Trigger)
	assert.InDelta(t, 1-0.3/0.7, d.Confidence, 1e-9)

	triggers, err := tools.HandoffTriggers(ctx, true)
	require.NoError(t, err)
	require.Len(t, triggers.Triggers, 1)
	assert.Equal(t, "llama3:8b", triggers.Triggers[0].Model)

	summary, err := tools.MetricsSummary(ctx, "llama3:8b", 7)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 3, summary[0].RequestCount)

	counts, err := log.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.ModelMetrics)

	require.NoError(t, tools.DeactivateTrigger(ctx, triggers.Triggers[0].ID))
	active, err := tools.HandoffTriggers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active.Triggers)
}

func TestTools_EvaluateUsesConfiguredJudge(t *testing.T) {
	r := &stubRunner{out: `{"overall_score": 0.9}`}
	temperature := 0.2
	tools, err := New(Deps{Runner: r, Store: history.NewMemoryStore(), JudgeModel: "judge-x", Temperature: &temperature})
	require.NoError(t, err)

	tools.Evaluate(context.Background(), evaluator.Request{Model: "qwen2:7b", Behavior: "hallucination"})
	assert.Equal(t, "judge-x", r.cfg.JudgeModel)
	assert.InDelta(t, 0.2, r.cfg.Temperature, 1e-12)
	assert.Equal(t, "ollama/qwen2:7b", r.cfg.TargetModel)
}

func TestTools_ZeroTemperatureReachesJudge(t *testing.T) {
	r := &stubRunner{out: `{"overall_score": 0.9}`}
	zero := 0.0
	tools, err := New(Deps{Runner: r, Store: history.NewMemoryStore(), Temperature: &zero})
	require.NoError(t, err)

	tools.Evaluate(context.Background(), evaluator.Request{Model: "qwen2:7b", Behavior: "hallucination"})
	assert.Equal(t, 0.0, r.cfg.Temperature)

	def, dr, _ := newTools(t, false)
	def.Evaluate(context.Background(), evaluator.Request{Model: "qwen2:7b", Behavior: "hallucination"})
	assert.InDelta(t, judge.DefaultTemperature, dr.cfg.Temperature, 1e-12)
}

func TestTools_QueryDefaultLimit(t *testing.T) {
	tools, _, _ := newTools(t, false)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		tools.Evaluate(ctx, evaluator.Request{Model: "llama3:8b", Behavior: "sycophancy"})
	}

	rs, err := tools.Query(ctx, QueryRequest{Model: "llama3:8b"})
	require.NoError(t, err)
	assert.Len(t, rs, history.DefaultQueryLimit)

	all, err := tools.Query(ctx, QueryRequest{Limit: -1})
	require.NoError(t, err)
	assert.Len(t, all, 12)

	none, err := tools.Query(ctx, QueryRequest{Behavior: "scope-creep"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

// #endregion evaluation-tests

// #region catalog-tests

func TestTools_GetThresholds(t *testing.T) {
	tools, _, _ := newTools(t, false)

	th := tools.GetThresholds("advisory_tasks")
	assert.True(t, th.Known)
	assert.Equal(t, 0.80, th.Entry.MinScore)
	assert.Len(t, th.HandoffTriggers, 3)

	unknown := tools.GetThresholds("poetry")
	assert.False(t, unknown.Known)
	assert.Equal(t, "poetry", unknown.TaskCategory)
	assert.Equal(t, 0.5, unknown.Entry.MinScore)
	assert.Equal(t, 1.0, unknown.Entry.MaxScore)
	assert.Len(t, unknown.HandoffTriggers, 3)

	general := tools.GetThresholds("")
	assert.True(t, general.Known)
	assert.Equal(t, "general_tasks", general.TaskCategory)
	assert.Equal(t, 0.55, general.Entry.MinScore)
}

func TestTools_GetThresholdsMatchesDecide(t *testing.T) {
	tools, _, _ := newTools(t, false)
	ctx := context.Background()
	tools.Evaluate(ctx, evaluator.Request{Model: "llama3:8b", Behavior: "sycophancy", TaskCategory: "poetry"})

	d := tools.Decide(ctx, "llama3:8b", "poetry")
	th := tools.GetThresholds("poetry")
	assert.Equal(t, th.Entry.MinScore, d.MinScore)
}

func TestTools_Describe(t *testing.T) {
	tools, _, _ := newTools(t, false)

	v := tools.Describe([]adapter.ModelInfo{
		{Name: "llama3.1:70b", Details: adapter.ModelDetails{ContextLength: 131072}},
		{Name: ""},
		{Name: "phi3:mini"},
	})
	require.Len(t, v.Models, 2)
	assert.Equal(t, "ollama/llama3.1:70b", v.Models[0].EvaluatorID)
	assert.Equal(t, 131072, v.Models[0].ContextLength)
	assert.Equal(t, "phi3:mini", v.Models[1].Name)

	require.Len(t, v.EvaluatorModels, 2)
	assert.Equal(t, "ollama/phi3:mini", v.EvaluatorModels["phi3-mini"].ID)
}

func TestTools_Catalogs(t *testing.T) {
	tools, _, _ := newTools(t, false)

	b, err := tools.ListBehaviors("custom")
	require.NoError(t, err)
	assert.Contains(t, b, policy.SectionCustom)
	assert.NotContains(t, b, policy.SectionJudgeDefault)

	_, err = tools.ListBehaviors("nonsense")
	assert.Error(t, err)

	v := tools.Validate("nomic-embed-text")
	assert.False(t, v.Valid)

	rc := tools.Recommend("llama3:70b")
	assert.Equal(t, 4, rc.MaxTurns)

	prompts, err := tools.CalibrationPrompts("coding")
	require.NoError(t, err)
	assert.Len(t, prompts, 1)
}

// #endregion catalog-tests

// #region heuristic-tests

func TestTools_ScoreResponse(t *testing.T) {
	tools, _, _ := newTools(t, false)
	prompt := "Explain in detail why the quarterly revenue figures dropped compared with the previous fiscal period and what the board should do next about it"
	view := tools.ScoreResponse(ScoreRequest{
		Prompt:   prompt,
		Response: "Revenue dropped because churn rose.\nThe board should review pricing. Therefore costs fall.",
	})

	assert.Len(t, []rune(view.PromptPreview), calibration.PreviewLength)
	assert.Equal(t, view.QualityScore, float64(int(view.QualityScore*100+0.5))/100)
	assert.Len(t, view.Criteria, 5)
	assert.NotEmpty(t, view.Notes)
}

func TestTools_CalibrateAndHistory(t *testing.T) {
	tools, _, _ := newTools(t, true)
	ctx := context.Background()

	sum, err := tools.Calibrate(ctx, "llama3:8b", []calibration.Sample{
		{TestID: "a", Prompt: "Write a haiku", Response: "Leaves fall.\nWind sighs.", Category: "creative"},
		{TestID: "b", Prompt: "Sum 2 and 2", Response: "4", Category: "reasoning"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)

	h, err := tools.CalibrationHistory(ctx, "llama3:8b", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCalibrationLimit, h.Limit)
	assert.Len(t, h.History, 2)

	_, err = tools.Calibrate(ctx, "", nil)
	assert.Error(t, err)
}

func TestTools_AuditDisabled(t *testing.T) {
	tools, _, _ := newTools(t, false)
	ctx := context.Background()

	_, err := tools.CalibrationHistory(ctx, "", 5)
	assert.ErrorIs(t, err, ErrNoAuditLog)
	_, err = tools.HandoffTriggers(ctx, false)
	assert.ErrorIs(t, err, ErrNoAuditLog)
	_, err = tools.MetricsSummary(ctx, "", 7)
	assert.ErrorIs(t, err, ErrNoAuditLog)
	assert.ErrorIs(t, tools.DeactivateTrigger(ctx, 1), ErrNoAuditLog)

	// calibration still scores without persistence
	sum, err := tools.Calibrate(ctx, "m", []calibration.Sample{{Prompt: "p", Response: "r"}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
}

// #endregion heuristic-tests
