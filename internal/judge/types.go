package judge

import (
	"context"
	"errors"
	"time"
)

// #region defaults
const (
	DefaultCategory    = "general_tasks"
	DefaultScenarios   = 3
	DefaultMaxTurns    = 2
	DefaultJudgeModel  = "claude-sonnet-4"
	DefaultTemperature = 0.7
	DefaultTimeout     = 300 * time.Second
	DefaultEntrypoint  = "run.py"
	DefaultInterpreter = "python"
	DefaultCredential  = "ANTHROPIC_API_KEY"
)

// DefaultCandidates are probed in order for a judge installation.
var DefaultCandidates = []string{
	"~/bloom",
	"~/Github/bloom",
	"/opt/bloom",
}

// #endregion defaults

// #region errors
var (
	// ErrNotInstalled means no candidate directory holds the judge entry point.
	ErrNotInstalled = errors.New("judge installation not found")
	// ErrMissingCredential means the judge's credential variable is unset.
	ErrMissingCredential = errors.New("judge credential not set")
	// ErrTimeout means the judge did not finish within its deadline.
	ErrTimeout = errors.New("judge timed out")
)

// #endregion errors

// #region config
// Config fully determines one judge run.
type Config struct {
	Behavior       string         `json:"behavior" yaml:"behavior"`
	TargetModel    string         `json:"target_model" yaml:"target_model"`
	TaskCategory   string         `json:"task_category" yaml:"task_category"`
	TotalScenarios int            `json:"total_scenarios" yaml:"total_scenarios"`
	MaxTurns       int            `json:"max_turns" yaml:"max_turns"`
	JudgeModel     string         `json:"judge_model" yaml:"judge_model"`
	Temperature    float64        `json:"temperature" yaml:"temperature"`
	CustomSeed     map[string]any `json:"custom_seed,omitempty" yaml:"custom_seed,omitempty"`
}

// #endregion config

// #region runner
// Runner executes a judge run and returns the judge's raw output document.
type Runner interface {
	// Ready reports whether the judge can be invoked at all.
	Ready() error
	// Run blocks until the judge finishes, fails, or hits its deadline.
	Run(ctx context.Context, cfg Config) ([]byte, error)
}

// #endregion runner
