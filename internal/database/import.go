// file: internal/database/import.go
// version: 1.0.0
// guid: 7a87d016-584a-49da-88ee-f094f9a421e9

package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jdfalk/cpe-resolver/internal/matcher"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// DefaultImportBatch is the number of rows inserted per transaction
const DefaultImportBatch = 1000

// maxInvalidSamples bounds how many rejected lines an import reports back
const maxInvalidSamples = 20

// ImportResult summarizes one catalog import
type ImportResult struct {
	Lines    int      `json:"lines"`
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Invalid  int      `json:"invalid"`
	Samples  []string `json:"invalid_samples,omitempty"`
}

// ImportCPEs reads newline-delimited 2.3 identifiers from r and inserts them
// into store. Blank lines and lines starting with "#" are ignored; malformed
// identifiers are counted and sampled but do not abort the import. progress,
// when set, receives the running line count after each batch.
func ImportCPEs(ctx context.Context, store CatalogStore, r io.Reader, batchSize int, progress func(lines int)) (ImportResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatch
	}
	var res ImportResult
	batch := make([]models.Candidate, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.InsertCandidates(ctx, batch)
		if err != nil {
			return fmt.Errorf("importing batch ending at line %d: %w", res.Lines, err)
		}
		res.Inserted += n
		res.Skipped += len(batch) - n
		batch = batch[:0]
		if progress != nil {
			progress(res.Lines)
		}
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := strings.TrimSpace(sc.Text())
		res.Lines++
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := matcher.ParseCPE(line)
		if err != nil {
			res.Invalid++
			if len(res.Samples) < maxInvalidSamples {
				res.Samples = append(res.Samples, fmt.Sprintf("line %d: %v", res.Lines, err))
			}
			continue
		}
		batch = append(batch, c)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("reading catalog input: %w", err)
	}
	if err := flush(); err != nil {
		return res, err
	}
	log.Printf("[INFO] Catalog import: %d lines, %d inserted, %d duplicates, %d invalid",
		res.Lines, res.Inserted, res.Skipped, res.Invalid)
	return res, nil
}
