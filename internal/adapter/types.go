package adapter

// #region model-info
// ModelInfo is the subset of a local model listing the adapter reads.
type ModelInfo struct {
	Name    string       `json:"name"`
	Details ModelDetails `json:"details"`
}

// ModelDetails carries optional capability metadata reported by the model host.
type ModelDetails struct {
	ContextLength int    `json:"context_length,omitempty"`
	ParameterSize string `json:"parameter_size,omitempty"`
}

// #endregion model-info

// #region model-descriptor
// ModelDescriptor describes a local model in evaluator terms. Immutable once built.
type ModelDescriptor struct {
	Name              string `json:"name"`
	EvaluatorID       string `json:"evaluator_id"`
	DisplayName       string `json:"display_name"`
	ContextLength     int    `json:"context_length"`
	SupportsToolCalls bool   `json:"supports_tool_calls"`
}

// #endregion model-descriptor

// #region validation-result
// ValidationResult is the outcome of checking a model before evaluation.
// Valid is false iff Errors is non-empty; warnings never block.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	EvaluatorID string   `json:"model_id"`
}

// #endregion validation-result

// #region tier
// Tier is a coarse capability class derived from the model name.
type Tier string

const (
	TierLarge  Tier = "large"
	TierMedium Tier = "medium"
	TierSmall  Tier = "small"
)

// #endregion tier

// #region run-config
// RunConfig holds tier-specific defaults for an evaluation run.
type RunConfig struct {
	Tier                  Tier     `json:"tier"`
	MaxTokens             int      `json:"max_tokens"`
	MaxTurns              int      `json:"max_turns"`
	Temperature           float64  `json:"temperature"`
	TargetReasoningEffort string   `json:"target_reasoning_effort"`
	RecommendedFor        []string `json:"recommended_for"`
	Warning               string   `json:"warning,omitempty"`
}

// #endregion run-config

// #region evaluator-model
// EvaluatorModel is one entry in the judge's model registry.
type EvaluatorModel struct {
	ID   string `json:"id" yaml:"id"`
	Org  string `json:"org" yaml:"org"`
	Name string `json:"name" yaml:"name"`
}

// #endregion evaluator-model
