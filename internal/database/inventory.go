// file: internal/database/inventory.go
// version: 1.0.0
// guid: d0264288-7a21-4301-a6a3-4cfbdd056947

package database

import (
	"context"
	"fmt"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// ListComputers returns every computer that reported a scan
func (s *SQLiteStore) ListComputers(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "SELECT DISTINCT computer_name FROM installed_apps ORDER BY computer_name")
}

// ListScanIDs returns the scan ids of one computer, most recent first
func (s *SQLiteStore) ListScanIDs(ctx context.Context, computer string) ([]string, error) {
	return s.queryStrings(ctx, `
		SELECT scan_id FROM installed_apps
		WHERE computer_name = ?
		GROUP BY scan_id
		ORDER BY MAX(id) DESC`, computer)
}

// ListInstalledApps returns the distinct applications of one scan.
// A non-positive limit returns all of them.
func (s *SQLiteStore) ListInstalledApps(ctx context.Context, computer, scanID string, limit int) ([]models.InstalledApp, error) {
	query := `
		SELECT computer_name, scan_id, application_name FROM installed_apps
		WHERE computer_name = ? AND scan_id = ?
		GROUP BY application_name
		ORDER BY MIN(id)`
	args := []interface{}{computer, scanID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing installed apps: %w", err)
	}
	defer rows.Close()

	var apps []models.InstalledApp
	for rows.Next() {
		var a models.InstalledApp
		if err := rows.Scan(&a.ComputerName, &a.ScanID, &a.ApplicationName); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// AddInstalledApps records scan results in one transaction
func (s *SQLiteStore) AddInstalledApps(ctx context.Context, apps []models.InstalledApp) error {
	if len(apps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO installed_apps (computer_name, scan_id, application_name) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range apps {
		if a.ComputerName == "" || a.ScanID == "" || a.ApplicationName == "" {
			return fmt.Errorf("installed app requires computer, scan id and name: %+v", a)
		}
		if _, err := stmt.ExecContext(ctx, a.ComputerName, a.ScanID, a.ApplicationName); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
