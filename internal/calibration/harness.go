package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/heuristic"
	"github.com/danielpatrickdp/handoff/internal/metrics"
)

// #region types

// Store persists calibration outcomes.
type Store interface {
	SaveCalibration(ctx context.Context, c audit.Calibration) error
}

// SampleResult is the scored outcome of one sample.
type SampleResult struct {
	TestID          string                          `json:"test_id"`
	Category        string                          `json:"category"`
	PromptPreview   string                          `json:"prompt_preview"`
	Score           float64                         `json:"quality_score"`
	Passed          bool                            `json:"passed"`
	Criteria        map[heuristic.Criterion]float64 `json:"criteria"`
	TokensPerSecond float64                         `json:"tokens_per_second"`
}

// CategorySummary aggregates one category's samples.
type CategorySummary struct {
	Count     int     `json:"count"`
	Passed    int     `json:"passed"`
	MeanScore float64 `json:"mean_score"`
}

// Summary provides aggregate stats from a calibration run.
type Summary struct {
	Model      string                     `json:"model"`
	Total      int                        `json:"total"`
	Passed     int                        `json:"passed"`
	PassRate   float64                    `json:"pass_rate"`
	MeanScore  float64                    `json:"mean_score"`
	ByCategory map[string]CategorySummary `json:"by_category"`
	Results    []SampleResult             `json:"results"`
}

// #endregion types

// #region harness

// Harness scores recorded samples with the heuristic scorer and stores each
// outcome.
type Harness struct {
	store   Store
	metrics metrics.Recorder
	logger  zerolog.Logger
	now     func() time.Time
}

// NewHarness creates a harness. store may be nil to skip persistence.
func NewHarness(store Store, rec metrics.Recorder, logger zerolog.Logger) *Harness {
	if rec == nil {
		rec = metrics.NoOp{}
	}
	return &Harness{
		store:   store,
		metrics: rec,
		logger:  logger.With().Str("component", "calibration").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run scores every sample for model. A storage failure aborts the run.
func (h *Harness) Run(ctx context.Context, model string, samples []Sample) (Summary, error) {
	sum := Summary{
		Model:      model,
		ByCategory: map[string]CategorySummary{},
		Results:    make([]SampleResult, 0, len(samples)),
	}
	total := 0.0

	for _, s := range samples {
		score := heuristic.Score(s.Prompt, s.Response, s.Category)
		h.metrics.ObserveHeuristicScore(score.Overall)

		id := s.TestID
		if id == "" {
			id = uuid.New().String()
		}
		if h.store != nil {
			err := h.store.SaveCalibration(ctx, audit.Calibration{
				TestID:          id,
				Model:           model,
				Category:        s.Category,
				Prompt:          s.Prompt,
				Response:        s.Response,
				QualityScore:    score.Overall,
				Notes:           score.Notes,
				TokensPerSecond: s.TokensPerSecond,
				Passed:          score.Passed,
				Timestamp:       h.now(),
			})
			if err != nil {
				return Summary{}, fmt.Errorf("save calibration %s: %w", id, err)
			}
		}

		sum.Results = append(sum.Results, SampleResult{
			TestID:          id,
			Category:        s.Category,
			PromptPreview:   Preview(s.Prompt),
			Score:           score.Overall,
			Passed:          score.Passed,
			Criteria:        score.Criteria,
			TokensPerSecond: s.TokensPerSecond,
		})

		cs := sum.ByCategory[s.Category]
		cs.MeanScore = (cs.MeanScore*float64(cs.Count) + score.Overall) / float64(cs.Count+1)
		cs.Count++
		if score.Passed {
			cs.Passed++
			sum.Passed++
		}
		sum.ByCategory[s.Category] = cs
		total += score.Overall
		sum.Total++
	}

	if sum.Total > 0 {
		sum.MeanScore = total / float64(sum.Total)
		sum.PassRate = float64(sum.Passed) / float64(sum.Total)
	}
	h.logger.Info().
		Str("model", model).
		Int("samples", sum.Total).
		Int("passed", sum.Passed).
		Float64("mean", sum.MeanScore).
		Msg("calibration complete")
	return sum, nil
}

// #endregion harness

// PreviewLength is the number of runes kept by Preview.
const PreviewLength = 100

// Preview truncates s to PreviewLength runes.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLength {
		return s
	}
	return string(r[:PreviewLength])
}
