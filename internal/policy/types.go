package policy

import "errors"

// #region category
// Category names a class of real-world task with its own quality bar.
type Category string

const (
	CategoryResearch       Category = "research_analysis"
	CategoryDataProcessing Category = "data_processing"
	CategoryAdvisory       Category = "advisory_tasks"
	CategoryGeneral        Category = "general_tasks"
)

// #endregion category

// #region threshold-entry
// ThresholdEntry is the quality band and required behaviors for one category.
type ThresholdEntry struct {
	TaskCategory      Category `json:"task_category"`
	MaxScore          float64  `json:"max_score"`
	MinScore          float64  `json:"min_score"`
	RequiredBehaviors []string `json:"required_behaviors"`
	Description       string   `json:"description"`
}

// #endregion threshold-entry

// #region trigger
// TriggerLevel is the escalation recommendation attached to a handoff decision.
type TriggerLevel string

const (
	TriggerImmediate      TriggerLevel = "immediate"
	TriggerReviewRequired TriggerLevel = "review_required"
	TriggerMonitor        TriggerLevel = "monitor"
)

// HandoffTrigger documents when a trigger level applies.
type HandoffTrigger struct {
	Description string   `json:"description"`
	Conditions  []string `json:"conditions"`
}

// #endregion trigger

// #region errors

// ErrInvalidBand is returned when a threshold entry has min > max or leaves [0,1].
var ErrInvalidBand = errors.New("invalid threshold band")

// #endregion errors
