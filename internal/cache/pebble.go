// file: internal/cache/pebble.go
// version: 1.0.0
// guid: 2d7984f6-a155-457f-ae21-3284c687d7c6

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// PebbleCache stores results in a local LSM key-value store
//
// Key Schema:
// - cpe-resolver:<mode>:<alias hash> -> envelope JSON
type PebbleCache struct {
	db  *pebble.DB
	ttl time.Duration
}

// OpenPebble opens or creates the cache at path
func OpenPebble(path string, ttl time.Duration) (*PebbleCache, error) {
	if path == "" {
		return nil, errors.New("pebble cache requires a path")
	}
	return openPebble(path, &pebble.Options{}, ttl)
}

// OpenPebbleInMemory creates a cache backed by an in-memory filesystem
func OpenPebbleInMemory(ttl time.Duration) (*PebbleCache, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()}, ttl)
}

func openPebble(path string, opts *pebble.Options, ttl time.Duration) (*PebbleCache, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble cache: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PebbleCache{db: db, ttl: ttl}, nil
}

// Get returns the cached record for key. Expired entries are deleted lazily.
func (p *PebbleCache) Get(_ context.Context, key string) (*models.OutputRecord, bool, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var env envelope
	err = json.Unmarshal(value, &env)
	closer.Close()
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached record: %w", err)
	}
	if time.Now().After(env.ExpiresAt) {
		if err := p.db.Delete([]byte(key), pebble.NoSync); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return &env.Record, true, nil
}

// Put stores rec under key
func (p *PebbleCache) Put(_ context.Context, key string, rec models.OutputRecord) error {
	data, err := json.Marshal(envelope{Record: rec, ExpiresAt: time.Now().Add(p.ttl)})
	if err != nil {
		return err
	}
	return p.db.Set([]byte(key), data, pebble.Sync)
}

// Close closes the database
func (p *PebbleCache) Close() error {
	return p.db.Close()
}
