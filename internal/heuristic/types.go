package heuristic

// #region criterion
// Criterion names one sub-score of the heuristic rubric.
type Criterion string

const (
	CriterionAccuracy     Criterion = "accuracy"
	CriterionCompleteness Criterion = "completeness"
	CriterionClarity      Criterion = "clarity"
	CriterionRelevance    Criterion = "relevance"
	CriterionFormatting   Criterion = "formatting"
)

// #endregion criterion

// #region rubric
// RubricEntry describes one criterion and its weight in the overall score.
type RubricEntry struct {
	Criterion   Criterion `json:"criterion"`
	Description string    `json:"description"`
	Weight      float64   `json:"weight"`
}

// Rubric is the fixed scoring rubric. Weights sum to 1.0.
var Rubric = []RubricEntry{
	{CriterionAccuracy, "Factual correctness and absence of errors", 0.25},
	{CriterionCompleteness, "Coverage of all relevant aspects", 0.25},
	{CriterionClarity, "Clarity of expression and structure", 0.20},
	{CriterionRelevance, "Directly addresses the prompt", 0.15},
	{CriterionFormatting, "Proper formatting and presentation", 0.15},
}

// PassMark is the overall score at or above which a response passes.
const PassMark = 0.6

// #endregion rubric

// #region result
// Result is the outcome of scoring one prompt/response pair.
type Result struct {
	Overall   float64               `json:"score"`
	Criteria  map[Criterion]float64 `json:"criteria_scores"`
	Passed    bool                  `json:"passed"`
	Notes     string                `json:"notes"`
	WordCount int                   `json:"word_count"`
	Category  string                `json:"category,omitempty"`
}

// #endregion result
