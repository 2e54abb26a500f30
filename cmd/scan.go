// file: cmd/scan.go
// version: 2.0.0
// guid: d12fbff2-39ae-4604-b9c3-f121510c1daf

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/database"
)

// scanCmd resolves the applications recorded by one endpoint scan
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Resolve the applications reported by an endpoint scan",
	Long: `Resolve every application recorded for a computer's scan. Without
--computer the known computers are listed; without --scan the most
recent scan of the computer is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		computer, _ := cmd.Flags().GetString("computer")
		scanID, _ := cmd.Flags().GetString("scan")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("output")
		quiet, _ := cmd.Flags().GetBool("quiet")
		ctx := cmd.Context()

		a, err := newApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer a.close()

		if computer == "" {
			computers, err := a.store.ListComputers(ctx)
			if err != nil {
				return err
			}
			for _, c := range computers {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		}

		aliases, scanID, err := scanAliases(ctx, a.store, computer, scanID, limit)
		if err != nil {
			return err
		}
		if !quiet {
			cyan.Fprintf(cmd.ErrOrStderr(), "Resolving %d applications from %s scan %s\n", len(aliases), computer, scanID)
		}
		recs := runBatch(ctx, a, aliases, quiet)
		return report(cmd, format, quiet, recs)
	},
}

func init() {
	scanCmd.Flags().String("computer", "", "computer whose scan to resolve")
	scanCmd.Flags().String("scan", "", "scan id (default: most recent)")
	scanCmd.Flags().Int("limit", 0, "resolve at most this many applications (0 = all)")
	scanCmd.Flags().StringP("output", "o", FormatTable, "output format: table, json, yaml or csv")
	scanCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
}

// scanAliases loads the application names of one scan, picking the latest
// scan when scanID is empty. It returns the scan id actually used.
func scanAliases(ctx context.Context, inv database.InventoryStore, computer, scanID string, limit int) ([]string, string, error) {
	if scanID == "" {
		scans, err := inv.ListScanIDs(ctx, computer)
		if err != nil {
			return nil, "", err
		}
		if len(scans) == 0 {
			return nil, "", fmt.Errorf("no scans recorded for computer %q", computer)
		}
		scanID = scans[0]
	}
	apps, err := inv.ListInstalledApps(ctx, computer, scanID, limit)
	if err != nil {
		return nil, "", err
	}
	if len(apps) == 0 {
		return nil, "", fmt.Errorf("scan %q of computer %q has no applications", scanID, computer)
	}
	aliases := make([]string, 0, len(apps))
	for _, app := range apps {
		aliases = append(aliases, app.ApplicationName)
	}
	return aliases, scanID, nil
}
