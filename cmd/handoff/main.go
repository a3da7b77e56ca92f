// Command handoff evaluates local models and decides when work should be
// handed off to a stronger remote model. Every command prints JSON to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/handoff/internal/config"
	"github.com/danielpatrickdp/handoff/internal/logging"
	"github.com/danielpatrickdp/handoff/internal/service"
)

// #region main

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region root

type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "handoff",
		Short:         "Evaluate local models and decide when to hand off to a remote model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./handoff.yaml, then ~/.config/handoff/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newEvaluateCmd(a),
		newDecideCmd(a),
		newHistoryCmd(a),
		newBehaviorsCmd(a),
		newThresholdsCmd(a),
		newValidateCmd(a),
		newRecommendCmd(a),
		newDescribeCmd(a),
		newScoreCmd(a),
		newCalibrateCmd(a),
		newTriggersCmd(a),
		newInspectCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: logging.Format(cfg.Logging.Format),
		Out:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// run opens a runtime for the duration of fn and flushes metrics afterwards.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, tools *service.Tools) (any, error)) error {
	rt, err := service.Open(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("close runtime")
		}
	}()

	ctx := cmd.Context()
	out, err := fn(ctx, rt.Tools)
	if err != nil {
		return err
	}
	// a failed push never fails the command
	_ = rt.Flush(ctx)
	return printJSON(cmd.OutOrStdout(), out)
}

// #endregion root
