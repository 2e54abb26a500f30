// file: internal/resolver/orchestrator.go
// version: 1.0.0
// guid: 6e1d327f-ab2c-48cb-8431-39dc0e7b550b

package resolver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jdfalk/cpe-resolver/internal/cache"
	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/logging"
	"github.com/jdfalk/cpe-resolver/internal/metrics"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// DefaultMaxConcurrent is the worker ceiling for batch resolution
const DefaultMaxConcurrent = 3

// Orchestrator resolves aliases through the state machine, one isolated
// state per alias, with a bounded number running at once.
type Orchestrator struct {
	machine       *Machine
	mode          string
	maxConcurrent int
	cache         cache.ResultCache
	results       database.ResultStore
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithResultCache short-circuits repeated aliases through c
func WithResultCache(c cache.ResultCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithResultStore persists every batch record under its run id
func WithResultStore(s database.ResultStore) Option {
	return func(o *Orchestrator) { o.results = s }
}

// NewOrchestrator creates an orchestrator. mode names the retrieval mode
// and scopes the result cache.
func NewOrchestrator(m *Machine, mode string, maxConcurrent int, opts ...Option) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	o := &Orchestrator{machine: m, mode: mode, maxConcurrent: maxConcurrent}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxConcurrent returns the worker ceiling
func (o *Orchestrator) MaxConcurrent() int {
	return o.maxConcurrent
}

// Resolve runs one alias to a terminal record. It never panics and never
// returns without a record.
func (o *Orchestrator) Resolve(ctx context.Context, alias string) (rec models.OutputRecord) {
	requestID := ulid.Make().String()
	log := logging.NewServiceLogger("resolver", requestID)

	defer func() {
		if r := recover(); r != nil {
			log.LogError("resolve", fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
			rec = ErrorRecord(alias, fmt.Errorf("internal error: %v", r))
			metrics.IncResolutionCompleted(string(rec.MatchType), 0)
		}
	}()

	if strings.TrimSpace(alias) == "" {
		return ErrorRecord(alias, errors.New("empty alias"))
	}

	key := cache.Key(o.mode, alias)
	if cached, ok := o.lookup(ctx, key, log); ok {
		cached.Alias = alias
		return *cached
	}

	metrics.IncResolutionStarted()
	start := time.Now()
	state := o.machine.Run(ctx, alias, log)
	rec = Record(state, time.Since(start))
	metrics.IncResolutionCompleted(string(rec.MatchType), rec.Attempts)

	if o.cache != nil && cache.Cacheable(rec) {
		if err := o.cache.Put(ctx, key, rec); err != nil {
			log.LogWarning("cache", err.Error())
		}
	}
	return rec
}

func (o *Orchestrator) lookup(ctx context.Context, key string, log *logging.ServiceLogger) (*models.OutputRecord, bool) {
	if o.cache == nil {
		return nil, false
	}
	cached, ok, err := o.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.IncCacheLookup("error")
		log.LogWarning("cache", err.Error())
		return nil, false
	case !ok:
		metrics.IncCacheLookup("miss")
		logging.LogCacheMiss("resolver", key)
		return nil, false
	}
	metrics.IncCacheLookup("hit")
	logging.LogCacheHit("resolver", key)
	return cached, true
}

// ResolveMany resolves every alias and returns one record per alias, in input order
func (o *Orchestrator) ResolveMany(ctx context.Context, aliases []string) []models.OutputRecord {
	_, recs := o.ResolveBatch(ctx, aliases, nil)
	return recs
}

// ResolveBatch resolves aliases under the worker ceiling, persisting each
// record under a fresh run id. progress, when set, is called after each
// alias completes; calls are serialized.
func (o *Orchestrator) ResolveBatch(ctx context.Context, aliases []string, progress func(done, total int)) (string, []models.OutputRecord) {
	runID := ulid.Make().String()
	out := make([]models.OutputRecord, len(aliases))

	var (
		done atomic.Int64
		mu   sync.Mutex
		g    errgroup.Group
	)
	g.SetLimit(o.maxConcurrent)

	for i, alias := range aliases {
		g.Go(func() error {
			rec := o.Resolve(ctx, alias)
			out[i] = rec
			o.persist(ctx, runID, rec)
			if progress != nil {
				n := int(done.Add(1))
				mu.Lock()
				progress(n, len(aliases))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	logging.NewServiceLogger("resolver", runID).LogOperation("batch", summarize(out))
	return runID, out
}

func (o *Orchestrator) persist(ctx context.Context, runID string, rec models.OutputRecord) {
	if o.results == nil {
		return
	}
	if err := o.results.SaveResolution(context.WithoutCancel(ctx), runID, rec); err != nil {
		logging.NewServiceLogger("resolver", runID).LogWarning("persist", err.Error())
	}
}

func summarize(recs []models.OutputRecord) map[string]any {
	out := map[string]any{"total": len(recs)}
	for _, r := range recs {
		k := string(r.MatchType)
		n, _ := out[k].(int)
		out[k] = n + 1
	}
	return out
}
