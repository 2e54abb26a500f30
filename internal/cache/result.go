// file: internal/cache/result.go
// version: 1.0.0
// guid: f1fb862e-e6c5-429c-91c9-c37511d5e5a3

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// ResultCache short-circuits aliases that were already resolved
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.OutputRecord, bool, error)
	Put(ctx context.Context, key string, rec models.OutputRecord) error
	Close() error
}

// Key derives the cache key for an alias resolved in the given retrieval mode
func Key(mode, alias string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(alias))))
	return "cpe-resolver:" + mode + ":" + hex.EncodeToString(sum[:16])
}

// Cacheable reports whether a record may be stored. Errors are never cached.
func Cacheable(rec models.OutputRecord) bool {
	return rec.MatchType != models.MatchError && rec.MatchType.Valid()
}

// Options configures the result cache backend
type Options struct {
	Type      string
	Path      string
	RedisAddr string
	TTL       time.Duration
}

// Open creates the backend named by opts.Type. "none" or "" yields a nil cache.
func Open(opts Options) (ResultCache, error) {
	switch opts.Type {
	case "", "none":
		return nil, nil
	case "pebble":
		c, err := OpenPebble(opts.Path, opts.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		c, err := OpenRedis(opts.RedisAddr, opts.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %q", opts.Type)
	}
}

type envelope struct {
	Record    models.OutputRecord `json:"record"`
	ExpiresAt time.Time           `json:"expires_at"`
}
