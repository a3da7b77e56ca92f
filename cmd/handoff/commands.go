package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/handoff/internal/adapter"
	"github.com/danielpatrickdp/handoff/internal/evaluator"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/service"
)

// #region evaluate

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		req      evaluator.Request
		seedPath string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a behavioral evaluation of a local model through the judge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seedPath != "" {
				seed, err := loadSeed(seedPath)
				if err != nil {
					return err
				}
				req.CustomSeed = seed
			}
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				return t.Evaluate(ctx, req), nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Model, "model", "", "local model name, e.g. llama3:8b")
	cmd.Flags().StringVar(&req.Behavior, "behavior", "", "behavior to evaluate, e.g. sycophancy")
	cmd.Flags().StringVar(&req.TaskCategory, "category", "", "task category (default general_tasks)")
	cmd.Flags().IntVar(&req.TotalScenarios, "scenarios", judge.DefaultScenarios, "number of judge scenarios")
	cmd.Flags().IntVar(&req.MaxTurns, "max-turns", judge.DefaultMaxTurns, "maximum turns per scenario")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML or JSON file merged into the judge seed as custom_seed")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("behavior")
	return cmd
}

func loadSeed(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed map[string]any
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}

// #endregion evaluate

// #region decide-history

func newDecideCmd(a *app) *cobra.Command {
	var model, category string
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Decide whether work in a category should leave a local model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				return t.Decide(ctx, model, category), nil
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "local model name")
	cmd.Flags().StringVar(&category, "category", "", "task category")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var q service.QueryRequest
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				return t.Query(ctx, q)
			})
		},
	}
	cmd.Flags().StringVar(&q.Model, "model", "", "filter by model")
	cmd.Flags().StringVar(&q.Behavior, "behavior", "", "filter by behavior")
	cmd.Flags().IntVar(&q.Limit, "limit", 10, "most recent N matches, negative for all")
	return cmd
}

// #endregion decide-history

// #region catalog

func newBehaviorsCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "behaviors",
		Short: "List evaluable behaviors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.ListBehaviors(filter)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "custom, judge_default or all")
	return cmd
}

func newThresholdsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thresholds <category>",
		Short: "Show the quality band for a task category and the handoff triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.GetThresholds(args[0]), nil
			})
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model>",
		Short: "Check whether a local model can be evaluated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.Validate(args[0]), nil
			})
		},
	}
}

func newRecommendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <model>",
		Short: "Show tier-specific run defaults for a local model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.Recommend(args[0]), nil
			})
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	var (
		contextLength int
		parameterSize string
	)
	cmd := &cobra.Command{
		Use:   "describe <model>...",
		Short: "Describe local models in evaluator terms and build the judge registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := make([]adapter.ModelInfo, 0, len(args))
			for _, name := range args {
				models = append(models, adapter.ModelInfo{
					Name:    name,
					Details: adapter.ModelDetails{ContextLength: contextLength, ParameterSize: parameterSize},
				})
			}
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.Describe(models), nil
			})
		},
	}
	cmd.Flags().IntVar(&contextLength, "context-length", 0, "context window reported by the model host (default 4096)")
	cmd.Flags().StringVar(&parameterSize, "parameter-size", "", "parameter size reported by the model host")
	return cmd
}

// #endregion catalog

// #region score

func newScoreCmd(a *app) *cobra.Command {
	var (
		req          service.ScoreRequest
		responseFile string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a response with the judge-free heuristic scorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if responseFile != "" {
				data, err := os.ReadFile(responseFile)
				if err != nil {
					return fmt.Errorf("read response: %w", err)
				}
				req.Response = string(data)
			}
			if req.Prompt == "" {
				return errors.New("--prompt is required")
			}
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.ScoreResponse(req), nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Prompt, "prompt", "", "prompt the response answers")
	cmd.Flags().StringVar(&req.Response, "response", "", "response text")
	cmd.Flags().StringVar(&responseFile, "response-file", "", "read the response from a file")
	cmd.Flags().StringVar(&req.Category, "category", "general", "prompt category")
	return cmd
}

// #endregion score
