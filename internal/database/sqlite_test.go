// file: internal/database/sqlite_test.go
// version: 2.0.0
// guid: 7dc02d23-a79d-4cda-bb86-6652fb6ba4e5

package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	ulid "github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// setupTestDB creates a temporary SQLite database for testing
// Returns the store and a cleanup function
func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	// Create temporary database file with unique name
	tmpfile := os.TempDir() + "/test_cpe_" + ulid.Make().String() + ".db"

	store, err := NewSQLiteStore(tmpfile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpfile)
		os.Remove(tmpfile + "-wal")
		os.Remove(tmpfile + "-shm")
	}

	return store, cleanup
}

func cand(cfg, vendor, product, version string) models.Candidate {
	return models.Candidate{
		ConfigurationString: cfg,
		Part:                "a",
		Vendor:              vendor,
		Product:             product,
		Version:             version,
	}
}

func seedCatalog(t *testing.T, s *SQLiteStore) {
	t.Helper()
	n, err := s.InsertCandidates(context.Background(), []models.Candidate{
		cand(`cpe:2.3:a:microsoft:visual_c\+\+:2008:*:*:*:*:*:*:*`, "microsoft", "visual_c++", "2008"),
		cand(`cpe:2.3:a:microsoft:visual_c\+\+:2010:*:*:*:*:*:*:*`, "microsoft", "visual_c++", "2010"),
		cand(`cpe:2.3:a:microsoft:visualcxx:2008:*:*:*:*:*:*:*`, "microsoft", "visualcxx", "2008"),
		cand(`cpe:2.3:a:microsoft:edge:100:*:*:*:*:*:*:*`, "microsoft", "edge", "100"),
		cand(`cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*`, "rarlab", "winrar", "6.02"),
	})
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestNewSQLiteStore(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	n, err := store.CountCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertCandidatesIgnoresDuplicates(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, store)

	n, err := store.InsertCandidates(context.Background(), []models.Candidate{
		cand(`cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*`, "rarlab", "winrar", "6.02"),
		cand(`cpe:2.3:a:rarlab:winrar:7.0:*:*:*:*:*:*:*`, "rarlab", "winrar", "7.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := store.CountCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func TestQueryCatalog(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter CatalogFilter
		want   int
	}{
		{"vendor and product", CatalogFilter{VendorContains: "Microsoft", ProductContains: "visual_c"}, 2},
		{"underscore is literal", CatalogFilter{ProductContains: "visual_c"}, 2},
		{"product only", CatalogFilter{ProductContains: "WINRAR"}, 1},
		{"vendor only", CatalogFilter{VendorContains: "micro"}, 4},
		{"pairs", CatalogFilter{Pairs: []models.VendorProduct{{Vendor: "microsoft", Product: "edge"}, {Vendor: "rarlab", Product: "winrar"}}}, 2},
		{"limit", CatalogFilter{VendorContains: "microsoft", Limit: 1}, 1},
		{"no match", CatalogFilter{ProductContains: "photoshop"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.QueryCatalog(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for _, c := range got {
				assert.NotEmpty(t, c.CatalogID)
				assert.NotEmpty(t, c.ConfigurationString)
			}
		})
	}

	_, err := store.QueryCatalog(ctx, CatalogFilter{})
	assert.Error(t, err)
}

func TestGetCandidate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, store)
	ctx := context.Background()

	rows, err := store.QueryCatalog(ctx, CatalogFilter{ProductContains: "winrar"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got, err := store.GetCandidate(ctx, rows[0].CatalogID)
	require.NoError(t, err)
	assert.Equal(t, rows[0], *got)
	assert.Equal(t, "*", got.Update)

	_, err = store.GetCandidate(ctx, "99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDistinctVendorProducts(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, store)
	ctx := context.Background()

	page1, err := store.DistinctVendorProducts(ctx, 0, 2)
	require.NoError(t, err)
	page2, err := store.DistinctVendorProducts(ctx, 2, 10)
	require.NoError(t, err)

	all := append(page1, page2...)
	assert.Len(t, all, 4)
	assert.Equal(t, models.VendorProduct{Vendor: "microsoft", Product: "edge"}, all[0])

	vendors, err := store.DistinctVendors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"microsoft", "rarlab"}, vendors)
}

func TestInventory(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.AddInstalledApps(ctx, []models.InstalledApp{
		{ComputerName: "ws-01", ScanID: "scan-1", ApplicationName: "WinRAR 6.02 (64-bit)"},
		{ComputerName: "ws-01", ScanID: "scan-1", ApplicationName: "Microsoft Edge"},
		{ComputerName: "ws-01", ScanID: "scan-1", ApplicationName: "WinRAR 6.02 (64-bit)"},
		{ComputerName: "ws-01", ScanID: "scan-2", ApplicationName: "Microsoft Edge"},
		{ComputerName: "ws-02", ScanID: "scan-9", ApplicationName: "7-Zip 19.00"},
	}))

	computers, err := store.ListComputers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ws-01", "ws-02"}, computers)

	scans, err := store.ListScanIDs(ctx, "ws-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"scan-2", "scan-1"}, scans)

	apps, err := store.ListInstalledApps(ctx, "ws-01", "scan-1", 0)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "WinRAR 6.02 (64-bit)", apps[0].ApplicationName)

	limited, err := store.ListInstalledApps(ctx, "ws-01", "scan-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	err = store.AddInstalledApps(ctx, []models.InstalledApp{{ComputerName: "ws-03"}})
	assert.Error(t, err)
}

func TestResults(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	conf := 100
	id := `cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*`
	runA := ulid.Make().String()
	require.NoError(t, store.SaveResolution(ctx, runA, models.OutputRecord{
		Alias: "WinRAR 6.02", MatchType: models.MatchExact, Confidence: &conf, MatchedIdentifier: &id, Reasoning: "exact",
	}))
	msg := "boom"
	require.NoError(t, store.SaveResolution(ctx, runA, models.OutputRecord{
		Alias: "???", MatchType: models.MatchError, Error: &msg,
	}))
	runB := ulid.Make().String()
	require.NoError(t, store.SaveResolution(ctx, runB, models.OutputRecord{Alias: "x", MatchType: models.MatchNone}))

	recs, err := store.GetRun(ctx, runA)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "WinRAR 6.02", recs[0].Record.Alias)
	require.NotNil(t, recs[0].Record.Confidence)
	assert.Equal(t, 100, *recs[0].Record.Confidence)
	assert.Equal(t, models.MatchError, recs[1].Record.MatchType)
	assert.False(t, recs[0].CreatedAt.IsZero())

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, runB, runs[0].RunID)
	assert.Equal(t, 2, runs[1].Total)
	assert.Equal(t, 1, runs[1].ByType[models.MatchExact])
	assert.Equal(t, 1, runs[1].ByType[models.MatchError])
}

func TestConcurrentQueries(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, store)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := store.QueryCatalog(context.Background(), CatalogFilter{VendorContains: "microsoft"})
			if err == nil && len(got) != 4 {
				err = fmt.Errorf("worker %d: expected 4 rows, got %d", i, len(got))
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
