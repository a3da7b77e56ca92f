package adapter

// #region imports
import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// #endregion

// #region constants

// EvaluatorPrefix namespaces local models for the judge's model router.
const EvaluatorPrefix = "ollama/"

const (
	evaluatorOrg         = "ollama"
	defaultContextLength = 4096
)

// #endregion

// #region validation-rules

type severity int

const (
	severityWarning severity = iota
	severityError
)

// validationRule is one independent check; every matching rule contributes a finding.
type validationRule struct {
	name     string
	severity severity
	match    func(name, lower string) bool
	message  func(name string) string
}

var validationRules = []validationRule{
	{
		name:     "missing-tag",
		severity: severityWarning,
		match: func(name, _ string) bool {
			return !strings.Contains(name, ":") && !strings.Contains(name, "/")
		},
		message: func(name string) string {
			return fmt.Sprintf("Model '%s' may need a tag (e.g., ':latest')", name)
		},
	},
	{
		name:     "embedding",
		severity: severityError,
		match: func(_, lower string) bool {
			return strings.Contains(lower, "embed")
		},
		message: func(string) string {
			return "Embedding models cannot be evaluated"
		},
	},
	{
		name:     "vision-only",
		severity: severityWarning,
		match: func(_, lower string) bool {
			return strings.Contains(lower, "vision") && !strings.Contains(lower, "language")
		},
		message: func(string) string {
			return "Vision-only models may have limited text capabilities"
		},
	},
	{
		name:     "very-small",
		severity: severityWarning,
		match: func(_, lower string) bool {
			return containsAny(lower, verySmallMarkers)
		},
		message: func(string) string {
			return "Very small models may not produce meaningful evaluation results"
		},
	},
}

var verySmallMarkers = []string{"1b", "0.5b", "500m"}

// #endregion

// #region tier-rules

// tierRules is evaluated in order; the first tier with a matching marker wins.
var tierRules = []struct {
	tier    Tier
	markers []string
}{
	{TierLarge, []string{"70b", "72b", "405b"}},
	{TierMedium, []string{"8b", "7b", "13b"}},
}

var tierConfigs = map[Tier]RunConfig{
	TierLarge: {
		Tier:                  TierLarge,
		MaxTokens:             4000,
		MaxTurns:              4,
		Temperature:           0.7,
		TargetReasoningEffort: "medium",
		RecommendedFor:        []string{"investment_analysis", "advisory_tasks"},
	},
	TierMedium: {
		Tier:                  TierMedium,
		MaxTokens:             2000,
		MaxTurns:              3,
		Temperature:           0.7,
		TargetReasoningEffort: "low",
		RecommendedFor:        []string{"general_business", "financial_calculations"},
	},
	TierSmall: {
		Tier:                  TierSmall,
		MaxTokens:             1000,
		MaxTurns:              2,
		Temperature:           0.8,
		TargetReasoningEffort: "none",
		RecommendedFor:        []string{"simple_tasks"},
		Warning:               "Small models may have limited capability for complex business tasks",
	},
}

var toolCallMarkers = []string{"70b", "405b"}

// #endregion

// #region to-evaluator-id

// ToEvaluatorID prefixes a local model name with the evaluator namespace.
// Names already carrying the prefix are returned unchanged.
func ToEvaluatorID(modelName string) string {
	if strings.HasPrefix(modelName, EvaluatorPrefix) {
		return modelName
	}
	return EvaluatorPrefix + modelName
}

// #endregion

// #region validate

// Validate checks whether a model is suitable for behavioral evaluation.
// All rules run; findings accumulate in rule order.
func Validate(modelName string) ValidationResult {
	lower := strings.ToLower(modelName)
	errs := []string{}
	warnings := []string{}

	for _, rule := range validationRules {
		if !rule.match(modelName, lower) {
			continue
		}
		switch rule.severity {
		case severityError:
			errs = append(errs, rule.message(modelName))
		default:
			warnings = append(warnings, rule.message(modelName))
		}
	}

	return ValidationResult{
		Valid:       len(errs) == 0,
		Errors:      errs,
		Warnings:    warnings,
		EvaluatorID: ToEvaluatorID(modelName),
	}
}

// #endregion

// #region recommend

// ClassifyTier maps a model name onto a capability tier. Defaults to small.
func ClassifyTier(modelName string) Tier {
	lower := strings.ToLower(modelName)
	for _, rule := range tierRules {
		if containsAny(lower, rule.markers) {
			return rule.tier
		}
	}
	return TierSmall
}

// Recommend returns tier-specific run defaults for the model.
func Recommend(modelName string) RunConfig {
	cfg := tierConfigs[ClassifyTier(modelName)]
	cfg.RecommendedFor = append([]string(nil), cfg.RecommendedFor...)
	return cfg
}

// #endregion

// #region describe

// Describe builds a ModelDescriptor from a model listing entry.
func Describe(info ModelInfo) ModelDescriptor {
	ctxLen := info.Details.ContextLength
	if ctxLen <= 0 {
		ctxLen = defaultContextLength
	}
	return ModelDescriptor{
		Name:              info.Name,
		EvaluatorID:       ToEvaluatorID(info.Name),
		DisplayName:       displayName(info.Name),
		ContextLength:     ctxLen,
		SupportsToolCalls: containsAny(strings.ToLower(info.Name), toolCallMarkers),
	}
}

// EvaluatorModels builds the judge's model registry keyed by a normalized name.
// Entries without a name are skipped.
func EvaluatorModels(models []ModelInfo) map[string]EvaluatorModel {
	out := make(map[string]EvaluatorModel, len(models))
	for _, m := range models {
		if m.Name == "" {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(m.Name, ":", "-"))
		out[key] = EvaluatorModel{
			ID:   EvaluatorPrefix + m.Name,
			Org:  evaluatorOrg,
			Name: displayName(m.Name),
		}
	}
	return out
}

// #endregion

// #region helpers

func displayName(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, ":", " "))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// #endregion
