// file: cmd/resolve.go
// version: 1.0.0
// guid: b760e704-7861-4426-8b30-0f2245d0d8ef

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/logging"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// resolveCmd resolves aliases given as arguments, in a file or on stdin
var resolveCmd = &cobra.Command{
	Use:   "resolve [alias...]",
	Short: "Resolve application names to catalog identifiers",
	Long: `Resolve one or more application names. Aliases are taken from the
arguments, from --file (one per line) or, when neither is given, from stdin.`,
	Example: `  cpe-resolver resolve "WinRAR 6.02 (64-bit)"
  cpe-resolver resolve --file apps.txt --output csv > results.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("output")
		quiet, _ := cmd.Flags().GetBool("quiet")

		aliases, err := collectAliases(args, file, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			return fmt.Errorf("no aliases to resolve")
		}

		a, err := newApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer a.close()

		recs := runBatch(cmd.Context(), a, aliases, quiet)
		return report(cmd, format, quiet, recs)
	},
}

func init() {
	resolveCmd.Flags().StringP("file", "f", "", "read aliases from a file, one per line")
	resolveCmd.Flags().StringP("output", "o", FormatTable, "output format: table, json, yaml or csv")
	resolveCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
}

// collectAliases gathers aliases from args, then file, then stdin.
// Blank lines are dropped; surrounding whitespace is kept out of the alias.
func collectAliases(args []string, file string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var r io.Reader = stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open alias file: %w", err)
		}
		defer f.Close()
		r = f
	}
	if r == nil {
		return nil, nil
	}
	return readAliases(r)
}

func readAliases(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aliases: %w", err)
	}
	return out, nil
}

// runBatch resolves aliases through the app's orchestrator, drawing a
// progress bar on stderr for batches larger than one.
func runBatch(ctx context.Context, a *app, aliases []string, quiet bool) []models.OutputRecord {
	if ctx == nil {
		ctx = context.Background()
	}
	var progress func(done, total int)
	if !quiet && len(aliases) > 1 {
		bar := progressbar.NewOptions(len(aliases),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("resolving"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		progress = func(done, total int) { _ = bar.Set(done) }
		defer bar.Finish()
	}
	_, recs := a.orchestrator.ResolveBatch(ctx, aliases, progress)
	logging.LogMetric("generation_calls", float64(a.llm.Calls()), "calls")
	logging.LogMetric("generation_failures", float64(a.llm.Failures()), "calls")
	logging.LogMetric("generation_peak_in_flight", float64(a.llm.Peak()), "calls")
	return recs
}

func report(cmd *cobra.Command, format string, quiet bool, recs []models.OutputRecord) error {
	if err := writeRecords(cmd.OutOrStdout(), format, recs); err != nil {
		return err
	}
	if !quiet {
		printSummary(cmd.ErrOrStderr(), recs)
	}
	return nil
}
