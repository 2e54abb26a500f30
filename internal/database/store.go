// file: internal/database/store.go
// version: 3.0.0
// guid: 33ddf092-aae3-4b43-a5b0-e3bb92f22d5d

package database

import (
	"context"
	"errors"
	"time"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// CatalogFilter selects catalog rows. Substring filters are case-insensitive
// and combined with AND; Pairs match exact (vendor, product) combinations.
type CatalogFilter struct {
	VendorContains  string
	ProductContains string
	Pairs           []models.VendorProduct
	Limit           int
}

// Empty reports whether the filter would match the whole catalog
func (f CatalogFilter) Empty() bool {
	return f.VendorContains == "" && f.ProductContains == "" && len(f.Pairs) == 0
}

// CatalogStore is the read side of the canonical catalog plus bulk import
type CatalogStore interface {
	QueryCatalog(ctx context.Context, filter CatalogFilter) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	InsertCandidates(ctx context.Context, cands []models.Candidate) (int, error)
	DistinctVendorProducts(ctx context.Context, offset, limit int) ([]models.VendorProduct, error)
	DistinctVendors(ctx context.Context) ([]string, error)
	CountCatalog(ctx context.Context) (int, error)
}

// InventoryStore holds applications reported by endpoint scans
type InventoryStore interface {
	ListComputers(ctx context.Context) ([]string, error)
	ListScanIDs(ctx context.Context, computer string) ([]string, error)
	ListInstalledApps(ctx context.Context, computer, scanID string, limit int) ([]models.InstalledApp, error)
	AddInstalledApps(ctx context.Context, apps []models.InstalledApp) error
}

// RunSummary describes one persisted batch run
type RunSummary struct {
	RunID     string                   `json:"run_id"`
	Total     int                      `json:"total"`
	ByType    map[models.MatchType]int `json:"by_type"`
	StartedAt time.Time                `json:"started_at"`
}

// ResultStore persists output records under a batch run id
type ResultStore interface {
	SaveResolution(ctx context.Context, runID string, rec models.OutputRecord) error
	GetRun(ctx context.Context, runID string) ([]models.StoredResolution, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Store combines every persistence concern of the resolver
type Store interface {
	CatalogStore
	InventoryStore
	ResultStore
	Close() error
}
