package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/handoff/internal/calibration"
	"github.com/danielpatrickdp/handoff/internal/service"
)

// #region calibrate

func newCalibrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Score recorded local-model responses and keep the outcomes",
	}
	cmd.AddCommand(newCalibrateRunCmd(a), newCalibratePromptsCmd(a), newCalibrateHistoryCmd(a))
	return cmd
}

func newCalibrateRunCmd(a *app) *cobra.Command {
	var model, fixturePath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score every sample in a fixture file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := calibration.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			if model == "" {
				model = f.Model
			}
			if model == "" {
				return errors.New("no model: pass --model or set it in the fixture")
			}
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				return t.Calibrate(ctx, model, f.Samples)
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model the samples came from (default: fixture model)")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "JSON fixture of recorded samples")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

func newCalibratePromptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts [category]",
		Short: "Show the built-in calibration prompts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := ""
			if len(args) == 1 {
				category = args[0]
			}
			return a.run(cmd, func(_ context.Context, t *service.Tools) (any, error) {
				return t.CalibrationPrompts(category)
			})
		},
	}
}

func newCalibrateHistoryCmd(a *app) *cobra.Command {
	var (
		model string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored calibration outcomes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				return t.CalibrationHistory(ctx, model, limit)
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "filter by model")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultCalibrationLimit, "maximum rows")
	return cmd
}

// #endregion calibrate

// #region triggers

func newTriggersCmd(a *app) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "List recorded handoff triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				return t.HandoffTriggers(ctx, activeOnly)
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active triggers")

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <id>",
		Short: "Retire a recorded handoff trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, t *service.Tools) (any, error) {
				if err := t.DeactivateTrigger(ctx, id); err != nil {
					return nil, err
				}
				return map[string]any{"id": id, "is_active": false}, nil
			})
		},
	})
	return cmd
}

// #endregion triggers
