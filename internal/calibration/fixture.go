package calibration

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture-types

// Fixture is a recorded set of local-model responses to calibrate against.
type Fixture struct {
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Samples     []Sample `json:"samples"`
}

// Sample is one recorded prompt/response pair.
type Sample struct {
	TestID          string  `json:"test_id,omitempty"`
	Prompt          string  `json:"prompt"`
	Response        string  `json:"response"`
	Category        string  `json:"category"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, s := range f.Samples {
		if s.Prompt == "" {
			return nil, fmt.Errorf("fixture %s: sample %d has no prompt", path, i)
		}
	}
	return &f, nil
}

// #endregion fixture-loader
