// file: cmd/catalog.go
// version: 1.0.0
// guid: 8b490304-666d-490e-a85a-5bb478f31995

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/database"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the canonical identifier catalog",
}

// catalogImportCmd loads CPE 2.3 strings into the catalog table
var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import newline-delimited CPE 2.3 identifiers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetInt("batch")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open catalog file: %w", err)
		}
		defer f.Close()

		store, err := openStore(config.AppConfig.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := database.ImportCPEs(cmd.Context(), store, f, batch, nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		green.Fprintf(out, "Imported %d identifiers from %s\n", res.Inserted, args[0])
		fmt.Fprintf(out, "- lines read: %d\n- already present: %d\n", res.Lines, res.Skipped)
		if res.Invalid > 0 {
			yellow.Fprintf(out, "- invalid: %d\n", res.Invalid)
			for _, s := range res.Samples {
				fmt.Fprintf(out, "    %s\n", s)
			}
		}
		return nil
	},
}

// catalogStatsCmd reports the catalog size
var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog size",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(config.AppConfig.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.CountCatalog(cmd.Context())
		if err != nil {
			return err
		}
		vendors, err := store.DistinctVendors(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nVendors: %d\n", n, len(vendors))
		return nil
	},
}

func init() {
	catalogImportCmd.Flags().Int("batch", database.DefaultImportBatch, "rows inserted per transaction")
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogStatsCmd)
}
