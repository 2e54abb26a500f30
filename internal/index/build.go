// file: internal/index/build.go
// version: 1.0.0
// guid: 651660ca-5d70-4c19-8150-9e603f57429c

package index

import (
	"context"
	"fmt"
	"log"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// PairSource pages through the distinct catalog (vendor, product) pairs
type PairSource interface {
	DistinctVendorProducts(ctx context.Context, offset, limit int) ([]models.VendorProduct, error)
}

// Build loads every pair from src into ix in batches. progress, when set,
// receives the running total after each batch.
func Build(ctx context.Context, ix *Index, src PairSource, batchSize int, progress func(int)) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	total := 0
	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		pairs, err := src.DistinctVendorProducts(ctx, offset, batchSize)
		if err != nil {
			return total, fmt.Errorf("reading catalog pairs at offset %d: %w", offset, err)
		}
		if len(pairs) == 0 {
			break
		}
		if err := ix.Add(ctx, pairs); err != nil {
			return total, fmt.Errorf("indexing batch at offset %d: %w", offset, err)
		}
		total += len(pairs)
		if progress != nil {
			progress(total)
		}
		if len(pairs) < batchSize {
			break
		}
	}
	log.Printf("[INFO] index build: %d vendor/product documents indexed (collection size %d)", total, ix.Count())
	return total, nil
}
