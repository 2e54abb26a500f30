// file: internal/database/results.go
// version: 1.0.0
// guid: a6c7c64e-06c0-4447-b505-3070ed33d314

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// SaveResolution stores one output record under runID
func (s *SQLiteStore) SaveResolution(ctx context.Context, runID string, rec models.OutputRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record for %q: %w", rec.Alias, err)
	}
	var confidence sql.NullInt64
	if rec.Confidence != nil {
		confidence = sql.NullInt64{Int64: int64(*rec.Confidence), Valid: true}
	}
	var identifier sql.NullString
	if rec.MatchedIdentifier != nil {
		identifier = sql.NullString{String: *rec.MatchedIdentifier, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolutions (run_id, alias, match_type, confidence, matched_identifier, record_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Alias, string(rec.MatchType), confidence, identifier, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving resolution for %q: %w", rec.Alias, err)
	}
	return nil
}

// GetRun returns the records of one run in insertion order
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) ([]models.StoredResolution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record_json, created_at FROM resolutions WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredResolution
	for rows.Next() {
		var raw string
		var created time.Time
		if err := rows.Scan(&raw, &created); err != nil {
			return nil, err
		}
		sr := models.StoredResolution{RunID: runID, CreatedAt: created}
		if err := json.Unmarshal([]byte(raw), &sr.Record); err != nil {
			return nil, fmt.Errorf("decoding stored record: %w", err)
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// ListRuns summarizes the most recent runs
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.match_type, COUNT(*), f.started
		FROM resolutions r
		JOIN (
			SELECT run_id, MIN(id) AS first_id, MIN(created_at) AS started
			FROM resolutions GROUP BY run_id
			ORDER BY first_id DESC LIMIT ?
		) f ON f.run_id = r.run_id
		GROUP BY r.run_id, r.match_type
		ORDER BY f.first_id DESC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	index := map[string]int{}
	for rows.Next() {
		var runID, matchType, started string
		var count int
		if err := rows.Scan(&runID, &matchType, &count, &started); err != nil {
			return nil, err
		}
		i, ok := index[runID]
		if !ok {
			i = len(out)
			index[runID] = i
			out = append(out, RunSummary{RunID: runID, ByType: map[models.MatchType]int{}, StartedAt: parseTimestamp(started)})
		}
		out[i].ByType[models.MatchType(matchType)] += count
		out[i].Total += count
	}
	return out, rows.Err()
}

// parseTimestamp reads the text form go-sqlite3 produces for aggregated DATETIME values
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
