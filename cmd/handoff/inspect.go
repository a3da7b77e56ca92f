package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/handoff/internal/audit"
)

// #region inspect

type inspectOutput struct {
	Path         string                 `json:"path"`
	Counts       audit.Counts           `json:"counts"`
	Summaries    []audit.ModelSummary   `json:"model_summaries"`
	Calibrations []audit.Calibration    `json:"recent_calibrations"`
	Triggers     []audit.HandoffTrigger `json:"handoff_triggers"`
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		dbPath string
		model  string
		days   int
		last   int
		table  bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = a.cfg.Audit.Path
			}
			if dbPath == "" {
				return errors.New("no audit database: pass --db or set audit.path")
			}
			log, err := audit.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer log.Close()

			ctx := cmd.Context()
			out := inspectOutput{Path: dbPath}
			if out.Counts, err = log.Counts(ctx); err != nil {
				return err
			}
			if out.Summaries, err = log.MetricsSummary(ctx, model, days); err != nil {
				return err
			}
			if out.Calibrations, err = log.Calibrations(ctx, model, last); err != nil {
				return err
			}
			if out.Triggers, err = log.HandoffTriggers(ctx, false); err != nil {
				return err
			}

			if table {
				printInspectTable(cmd.OutOrStdout(), out)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "audit database (default audit.path)")
	cmd.Flags().StringVar(&model, "model", "", "filter by model")
	cmd.Flags().IntVar(&days, "days", 7, "metrics summary window in days")
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent calibrations")
	cmd.Flags().BoolVar(&table, "table", false, "output as tables instead of JSON")
	return cmd
}

// #endregion inspect

// #region table

func printInspectTable(w io.Writer, out inspectOutput) {
	fmt.Fprintf(w, "Audit DB: %s\n", out.Path)
	fmt.Fprintf(w, "  model_metrics:     %d\n", out.Counts.ModelMetrics)
	fmt.Fprintf(w, "  calibration_tests: %d\n", out.Counts.Calibrations)
	fmt.Fprintf(w, "  handoff_triggers:  %d\n", out.Counts.HandoffTriggers)

	fmt.Fprintf(w, "\nModel metrics:\n")
	fmt.Fprintf(w, "%-24s  %8s  %10s  %8s\n", "Model", "Requests", "Latency(s)", "Success")
	fmt.Fprintf(w, "%-24s+-%8s+-%10s+-%8s\n", "------------------------", "--------", "----------", "--------")
	for _, s := range out.Summaries {
		fmt.Fprintf(w, "%-24s  %8d  %10.2f  %7.0f%%\n", clip(s.Model, 24), s.RequestCount, s.AvgLatencySeconds, s.SuccessRate*100)
	}

	fmt.Fprintf(w, "\nCalibrations:\n")
	fmt.Fprintf(w, "%-12s  %-24s  %-10s  %6s  %-6s  %s\n", "Test", "Model", "Category", "Score", "Passed", "Time")
	fmt.Fprintf(w, "%-12s+-%-24s+-%-10s+-%6s+-%-6s+-%s\n", "------------", "------------------------", "----------", "------", "------", "--------------------")
	for _, c := range out.Calibrations {
		fmt.Fprintf(w, "%-12s  %-24s  %-10s  %6.2f  %-6v  %s\n",
			shortID(c.TestID), clip(c.Model, 24), clip(c.Category, 10), c.QualityScore, c.Passed, c.Timestamp.Format(time.RFC3339))
	}

	fmt.Fprintf(w, "\nHandoff triggers:\n")
	fmt.Fprintf(w, "%6s  %-24s  %-16s  %10s  %-6s  %s\n", "ID", "Model", "Pattern", "Confidence", "Active", "Time")
	fmt.Fprintf(w, "%6s+-%-24s+-%-16s+-%10s+-%-6s+-%s\n", "------", "------------------------", "----------------", "----------", "------", "--------------------")
	for _, t := range out.Triggers {
		fmt.Fprintf(w, "%6d  %-24s  %-16s  %10.2f  %-6v  %s\n",
			t.ID, clip(t.Model, 24), clip(t.PatternType, 16), t.Confidence, t.Active, t.Timestamp.Format(time.RFC3339))
	}
}

// #endregion table

// #region output

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

// #endregion output
