package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/confrel/confrel/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded check runs",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", "history.db", "SQLite database path")

	cmd.AddCommand(newHistoryListCommand(&storePath))
	cmd.AddCommand(newHistoryShowCommand(&storePath))
	return cmd
}

func newHistoryListCommand(storePath *string) *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *storePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tDURATION\tCHECKED\tBLOCKING")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%d\t%d\n",
					run.ID,
					run.Status,
					run.StartedAt.Format(time.RFC3339),
					run.Duration,
					run.Total,
					run.Blocking,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	return cmd
}

func newHistoryShowCommand(storePath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its stored findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *storePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			findings, err := store.ListFindingsByRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(struct {
					Run      *stores.Run             `json:"run"`
					Findings []*stores.FindingRecord `json:"findings"`
				}{run, findings})
			}

			fmt.Printf("run %s (%s)\n", run.ID, run.Status)
			fmt.Printf("  rules:     %s\n", run.RulesPath)
			fmt.Printf("  documents: %s\n", run.Documents)
			fmt.Printf("  started:   %s (%dms)\n", run.StartedAt.Format(time.RFC3339), run.Duration)
			fmt.Printf("  summary:   %d checked, %d passed, %d blocking, %d warnings\n",
				run.Total, run.Passed, run.Blocking, run.Warnings)

			if len(findings) > 0 {
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "RULE\tSEVERITY\tOUTCOME\tMESSAGE")
				for _, f := range findings {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.RuleID, f.Severity, f.Outcome, f.Message)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
