// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 92eaae6a-8d14-48b6-a819-97c0e60ca937

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const candidateSelectColumns = `
	id, configuration_string, part, vendor, product, version, update_,
	edition, language, sw_edition, target_sw, target_hw, other
`

func scanCandidate(scanner rowScanner, c *models.Candidate) error {
	var id int64
	if err := scanner.Scan(
		&id, &c.ConfigurationString, &c.Part, &c.Vendor, &c.Product,
		&c.Version, &c.Update, &c.Edition, &c.Language, &c.SWEdition,
		&c.TargetSW, &c.TargetHW, &c.Other,
	); err != nil {
		return err
	}
	c.CatalogID = strconv.FormatInt(id, 10)
	return nil
}

// SQLiteStore implements the Store interface using SQLite3.
// database/sql pools connections, so concurrent resolutions never share one handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithPool(path, 8)
}

// NewSQLiteStoreWithPool creates a store allowing up to maxOpen pooled connections
func NewSQLiteStoreWithPool(path string, maxOpen int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if maxOpen < 1 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	// Create tables
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		configuration_string TEXT NOT NULL UNIQUE,
		part TEXT NOT NULL DEFAULT 'a',
		vendor TEXT NOT NULL,
		product TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '*',
		update_ TEXT NOT NULL DEFAULT '*',
		edition TEXT NOT NULL DEFAULT '*',
		language TEXT NOT NULL DEFAULT '*',
		sw_edition TEXT NOT NULL DEFAULT '*',
		target_sw TEXT NOT NULL DEFAULT '*',
		target_hw TEXT NOT NULL DEFAULT '*',
		other TEXT NOT NULL DEFAULT '*'
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_vendor ON catalog(vendor);
	CREATE INDEX IF NOT EXISTS idx_catalog_product ON catalog(product);
	CREATE INDEX IF NOT EXISTS idx_catalog_vendor_product ON catalog(vendor, product);

	CREATE TABLE IF NOT EXISTS installed_apps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		computer_name TEXT NOT NULL,
		scan_id TEXT NOT NULL,
		application_name TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_installed_apps_scan ON installed_apps(computer_name, scan_id);

	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		alias TEXT NOT NULL,
		match_type TEXT NOT NULL,
		confidence INTEGER,
		matched_identifier TEXT,
		record_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resolutions_run ON resolutions(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// likePattern escapes LIKE wildcards so "_" in product names matches literally
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// QueryCatalog returns catalog rows matching filter. An empty filter is rejected
// rather than returning the whole catalog.
func (s *SQLiteStore) QueryCatalog(ctx context.Context, filter CatalogFilter) ([]models.Candidate, error) {
	if filter.Empty() {
		return nil, fmt.Errorf("catalog query requires at least one filter")
	}

	var where []string
	var args []interface{}
	if filter.VendorContains != "" {
		where = append(where, `lower(vendor) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.VendorContains))
	}
	if filter.ProductContains != "" {
		where = append(where, `lower(product) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.ProductContains))
	}
	if len(filter.Pairs) > 0 {
		pairClauses := make([]string, 0, len(filter.Pairs))
		for _, p := range filter.Pairs {
			pairClauses = append(pairClauses, "(vendor = ? AND product = ?)")
			args = append(args, p.Vendor, p.Product)
		}
		where = append(where, "("+strings.Join(pairClauses, " OR ")+")")
	}

	query := "SELECT " + candidateSelectColumns + " FROM catalog WHERE " + strings.Join(where, " AND ") +
		" ORDER BY vendor, product, version, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := scanCandidate(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCandidate looks up one catalog row by id
func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	row := s.db.QueryRowContext(ctx, "SELECT "+candidateSelectColumns+" FROM catalog WHERE id = ?", id)
	if err := scanCandidate(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// InsertCandidates adds catalog rows in one transaction, skipping identifiers
// already present. Returns the number of rows inserted.
func (s *SQLiteStore) InsertCandidates(ctx context.Context, cands []models.Candidate) (int, error) {
	if len(cands) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO catalog (
			configuration_string, part, vendor, product, version, update_,
			edition, language, sw_edition, target_sw, target_hw, other
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range cands {
		res, err := stmt.ExecContext(ctx,
			c.ConfigurationString, orWildcard(c.Part), c.Vendor, c.Product,
			orWildcard(c.Version), orWildcard(c.Update), orWildcard(c.Edition),
			orWildcard(c.Language), orWildcard(c.SWEdition), orWildcard(c.TargetSW),
			orWildcard(c.TargetHW), orWildcard(c.Other),
		)
		if err != nil {
			return inserted, fmt.Errorf("inserting %q: %w", c.ConfigurationString, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func orWildcard(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// DistinctVendorProducts pages through the distinct (vendor, product) pairs
func (s *SQLiteStore) DistinctVendorProducts(ctx context.Context, offset, limit int) ([]models.VendorProduct, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT vendor, product FROM catalog ORDER BY vendor, product LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VendorProduct
	for rows.Next() {
		var vp models.VendorProduct
		if err := rows.Scan(&vp.Vendor, &vp.Product); err != nil {
			return nil, err
		}
		out = append(out, vp)
	}
	return out, rows.Err()
}

// DistinctVendors returns every vendor name in the catalog
func (s *SQLiteStore) DistinctVendors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT vendor FROM catalog ORDER BY vendor")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountCatalog returns the number of catalog rows
func (s *SQLiteStore) CountCatalog(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog").Scan(&n)
	return n, err
}
