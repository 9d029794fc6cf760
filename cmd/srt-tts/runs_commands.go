package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"srt-tts/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(ctx, cmd)
		},
	}

	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsFailuresCommand(ctx))
	return runsCmd
}

func withStore(ctx *commandContext, fn func(*ledger.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func listRuns(ctx *commandContext, cmd *cobra.Command) error {
	return withStore(ctx, func(store *ledger.Store) error {
		runs, err := store.ListRuns(cmd.Context(), 20)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, []string{
				run.ID,
				run.Source,
				run.Status,
				run.StartedAt.Local().Format(time.DateTime),
				strconv.Itoa(run.EntryCount),
				strconv.Itoa(run.FailedCount),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Run", "Source", "Status", "Started", "Entries", "Failed"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		))
		return nil
	})
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-entry outcomes for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *ledger.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries, err := store.Entries(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Status)
				fmt.Fprintf(out, "Source: %s\n", run.Source)
				if run.OutputPath != "" {
					fmt.Fprintf(out, "Output: %s\n", run.OutputPath)
				}
				fmt.Fprintln(out, renderEntryTable(entries))
				return nil
			})
		},
	}
}

func newRunsFailuresCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failures <run-id>",
		Short: "Show failed and skipped entries for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *ledger.Store) error {
				failures, err := store.FailedEntries(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(failures) == 0 {
					fmt.Fprintln(out, "No failed entries")
					return nil
				}

				rows := make([][]string, 0, len(failures))
				for _, entry := range failures {
					rows = append(rows, []string{
						strconv.Itoa(entry.Index),
						formatWindow(entry.StartMS, entry.EndMS),
						entry.Status,
						entry.Error,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Entry", "Window", "Status", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func renderEntryTable(entries []ledger.EntryRecord) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.Strategy
		if entry.Error != "" {
			detail = entry.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Index),
			formatWindow(entry.StartMS, entry.EndMS),
			entry.Status,
			formatMS(entry.FinalMS),
			formatSpeed(entry.SpeedFactor),
			detail,
		})
	}
	return renderTable(
		[]string{"Entry", "Window", "Status", "Final", "Speed", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func formatWindow(startMS, endMS int64) string {
	return fmt.Sprintf("%s - %s", formatTimestamp(startMS), formatTimestamp(endMS))
}

func formatTimestamp(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60, ms%1000)
}

func formatMS(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

func formatSpeed(factor float64) string {
	if factor <= 1 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", factor)
}
