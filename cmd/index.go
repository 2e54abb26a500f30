// file: cmd/index.go
// version: 1.0.0
// guid: 785a3740-c7f2-492f-9aab-669b303c0874

package cmd

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/index"
	"github.com/jdfalk/cpe-resolver/internal/metrics"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vendor/product vector index",
}

// indexBuildCmd embeds every distinct catalog (vendor, product) pair
var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the vector index from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetInt("batch")
		ctx := cmd.Context()
		cfg := config.AppConfig

		store, err := openStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		emb, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		ix, err := index.Open(index.Options{
			Path:           cfg.Index.Path,
			Collection:     cfg.Index.Collection,
			Embed:          emb.Func(),
			DocumentPrefix: index.DefaultDocumentPrefix,
			QueryPrefix:    index.DefaultQueryPrefix,
		})
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		n, err := index.Build(ctx, ix, store, batch, func(total int) { _ = bar.Set(total) })
		_ = bar.Finish()
		if err != nil {
			return err
		}
		metrics.SetIndexDocuments(ix.Count())
		if cfg.Index.Path == "" {
			yellow.Fprintln(cmd.ErrOrStderr(), "index.path is empty; the index was built in memory and not persisted")
		}
		green.Fprintf(cmd.OutOrStdout(), "Indexed %d products (%d documents in %q)\n", n, ix.Count(), cfg.Index.Collection)
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().Int("batch", 500, "pairs embedded per batch")
	indexCmd.AddCommand(indexBuildCmd)
}
