// file: cmd/runs.go
// version: 2.0.0
// guid: c06f82ce-479a-4791-b056-cf52ab51fb59

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

var (
	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "Inspect persisted batch runs",
	}

	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := openStore(config.AppConfig.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		},
	}

	runsShowCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the records of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			store, err := openStore(config.AppConfig.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			stored, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			recs := make([]models.OutputRecord, 0, len(stored))
			for _, s := range stored {
				recs = append(recs, s.Record)
			}
			return writeRecords(cmd.OutOrStdout(), format, recs)
		},
	}
)

func init() {
	runsListCmd.Flags().Int("limit", 20, "number of runs to display")
	runsShowCmd.Flags().StringP("output", "o", FormatTable, "output format: table, json, yaml or csv")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func writeRuns(w io.Writer, runs []database.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTOTAL\tBY TYPE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Total, formatByType(r.ByType))
	}
	return tw.Flush()
}

func formatByType(m map[models.MatchType]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[models.MatchType(k)]))
	}
	return strings.Join(parts, " ")
}
