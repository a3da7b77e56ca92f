package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/handoff/internal/policy"
)

// #region score-source

// ScoreSource records where a result's quality score came from.
type ScoreSource string

const (
	// SourceJudge means the judge reported a valid overall_score.
	SourceJudge ScoreSource = "judge"
	// SourceDefault means no usable score was reported and the neutral default was applied.
	SourceDefault ScoreSource = "default"
	// SourceNone means the evaluation stopped before the judge ran.
	SourceNone ScoreSource = "none"
)

// #endregion score-source

// #region result

// Result is one completed evaluation. Immutable once appended.
type Result struct {
	ID              string         `json:"id"`
	Behavior        string         `json:"behavior"`
	Model           string         `json:"model"`
	EvaluatorID     string         `json:"evaluator_id,omitempty"`
	TaskCategory    string         `json:"task_category"`
	QualityScore    float64        `json:"quality_score"`
	ScoreSource     ScoreSource    `json:"score_source"`
	Passed          bool           `json:"passed"`
	Stage           string         `json:"stage"`
	Timestamp       time.Time      `json:"timestamp"`
	Details         map[string]any `json:"evaluation_details"`
	Recommendations []string       `json:"recommendations"`
}

// NewResult stamps identity and time onto r and derives Passed from the
// policy's minimum for r's category.
func NewResult(r Result, p *policy.Policy) Result {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Details == nil {
		r.Details = map[string]any{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	r.Passed = r.QualityScore >= p.MinScore(policy.ResolveCategory(r.TaskCategory))
	return r
}

// #endregion result

// #region decision

// Decision is the derived escalation recommendation for one model.
type Decision struct {
	Model         string              `json:"model"`
	TaskCategory  string              `json:"task_category"`
	ShouldHandoff bool                `json:"should_handoff"`
	Confidence    float64             `json:"confidence"`
	Reason        string              `json:"reason"`
	RecentScores  []float64           `json:"recent_scores"`
	Trigger       policy.TriggerLevel `json:"trigger"`
	MinScore      float64             `json:"min_score"`
	Mean          float64             `json:"mean_score"`
	SampleSize    int                 `json:"sample_size"`
}

// #endregion decision

// #region store

// Filter selects history records. Empty fields match everything.
type Filter struct {
	Model    string
	Behavior string
	Limit    int // most recent N matches; <= 0 returns all
}

// Store is an append-only, ordered collection of results.
// Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, r Result) error
	// List returns matches oldest-first, keeping the most recent Limit.
	List(ctx context.Context, f Filter) ([]Result, error)
	Close() error
}

func (f Filter) match(r Result) bool {
	if f.Model != "" && r.Model != f.Model {
		return false
	}
	if f.Behavior != "" && r.Behavior != f.Behavior {
		return false
	}
	return true
}

func tail(rs []Result, limit int) []Result {
	if limit > 0 && len(rs) > limit {
		return rs[len(rs)-limit:]
	}
	return rs
}

// #endregion store
