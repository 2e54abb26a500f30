// file: cmd/output.go
// version: 1.0.0
// guid: ce92d3c2-5008-4dfd-b483-14f04530aee6

package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Output formats accepted by --output
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

var csvHeader = []string{
	"alias", "match_type", "confidence", "matched_identifier",
	"attempts", "duration", "reasoning", "diagnostic_info", "error",
}

// writeRecords renders recs to w in the requested format
func writeRecords(w io.Writer, format string, recs []models.OutputRecord) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, recs)
	case FormatTable, "":
		return writeTable(w, recs)
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml, csv)", format)
	}
}

func writeCSV(w io.Writer, recs []models.OutputRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Alias,
			string(r.MatchType),
			intOrEmpty(r.Confidence),
			deref(r.MatchedIdentifier),
			strconv.Itoa(r.Attempts),
			r.Duration,
			r.Reasoning,
			deref(r.DiagnosticInfo),
			deref(r.Error),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, recs []models.OutputRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALIAS\tMATCH\tCONF\tIDENTIFIER\tATTEMPTS")
	for _, r := range recs {
		ident := deref(r.MatchedIdentifier)
		if ident == "" {
			ident = "-"
		}
		conf := intOrEmpty(r.Confidence)
		if conf == "" {
			conf = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			r.Alias, matchColor(r.MatchType).Sprint(r.MatchType), conf, ident, r.Attempts)
	}
	return tw.Flush()
}

func matchColor(mt models.MatchType) *color.Color {
	switch mt {
	case models.MatchExact, models.MatchGeneral:
		return green
	case models.MatchError:
		return red
	case models.MatchNone:
		return yellow
	default:
		return cyan
	}
}

// printSummary writes a one-line tally of match types
func printSummary(w io.Writer, recs []models.OutputRecord) {
	counts := map[models.MatchType]int{}
	for _, r := range recs {
		counts[r.MatchType]++
	}
	parts := make([]string, 0, len(counts))
	for _, mt := range models.MatchTypes {
		if n := counts[mt]; n > 0 {
			parts = append(parts, matchColor(mt).Sprintf("%s=%d", mt, n))
		}
	}
	fmt.Fprintf(w, "Resolved %d aliases: %s\n", len(recs), strings.Join(parts, " "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
