package judge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region with-defaults
// WithDefaults fills unset fields and clamps counts to at least one.
func (c Config) WithDefaults() Config {
	if c.TaskCategory == "" {
		c.TaskCategory = DefaultCategory
	}
	if c.TotalScenarios < 1 {
		c.TotalScenarios = DefaultScenarios
	}
	if c.MaxTurns < 1 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.JudgeModel == "" {
		c.JudgeModel = DefaultJudgeModel
	}
	return c
}

// Validate checks the invariants a run config must satisfy.
func (c Config) Validate() error {
	switch {
	case c.Behavior == "":
		return fmt.Errorf("behavior is required")
	case c.TargetModel == "":
		return fmt.Errorf("target model is required")
	case c.TotalScenarios < 1:
		return fmt.Errorf("total scenarios must be >= 1, got %d", c.TotalScenarios)
	case c.MaxTurns < 1:
		return fmt.Errorf("max turns must be >= 1, got %d", c.MaxTurns)
	case c.Temperature < 0 || c.Temperature > 1:
		return fmt.Errorf("temperature must be in [0,1], got %.2f", c.Temperature)
	}
	return nil
}

// #endregion with-defaults

// #region seed-document
// SeedDocument renders the config in the judge's seed layout.
// Only structpb-compatible value types are used.
func (c Config) SeedDocument() map[string]any {
	doc := map[string]any{
		"behaviors": []any{c.Behavior},
		"target_model": map[string]any{
			"model":       c.TargetModel,
			"temperature": c.Temperature,
		},
		"judge_model":              c.JudgeModel,
		"num_evaluations":          c.TotalScenarios,
		"max_turns_per_evaluation": c.MaxTurns,
		"task_category":            c.TaskCategory,
	}
	if len(c.CustomSeed) > 0 {
		doc["custom_seed"] = c.CustomSeed
	}
	return doc
}

// #endregion seed-document

// #region write-config
// WriteConfig writes the seed document to a temporary YAML file.
// The caller removes the file.
func WriteConfig(c Config) (string, error) {
	data, err := yaml.Marshal(c.SeedDocument())
	if err != nil {
		return "", fmt.Errorf("marshal seed: %w", err)
	}

	f, err := os.CreateTemp("", "judge-seed-*.yaml")
	if err != nil {
		return "", fmt.Errorf("create seed file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write seed file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close seed file: %w", err)
	}
	return f.Name(), nil
}

// #endregion write-config
