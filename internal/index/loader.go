// file: internal/index/loader.go
// version: 1.1.0
// guid: 9e13ea26-cba2-4932-b1ce-0dbd6aeb21a4

package index

import (
	"context"
	"log"
	"sync"

	"github.com/jdfalk/cpe-resolver/internal/metrics"
)

// Loader opens the index on first use. Concurrent first callers share one
// initialization; the loaded index is read-only afterwards. A failed load is
// not remembered, so the next caller tries again.
type Loader struct {
	opts   Options
	source PairSource

	mu sync.Mutex
	ix *Index
}

// NewLoader creates a lazy loader. When source is set and the opened
// collection is empty, the index is built from it.
func NewLoader(opts Options, source PairSource) *Loader {
	return &Loader{opts: opts, source: source}
}

// Get returns the shared index, loading it when none is held. The load runs
// detached from ctx cancellation so one canceled request cannot abort it.
func (l *Loader) Get(ctx context.Context) (*Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ix != nil {
		return l.ix, nil
	}
	ix, err := l.load(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	l.ix = ix
	return ix, nil
}

// Invalidate drops the held index. The next Get reopens the collection and
// rebuilds it from the source when it is empty.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.ix = nil
	l.mu.Unlock()
}

func (l *Loader) load(ctx context.Context) (*Index, error) {
	ix, err := Open(l.opts)
	if err != nil {
		return nil, err
	}
	if ix.Count() == 0 && l.source != nil {
		log.Printf("[INFO] index: collection %q is empty, building from catalog", l.opts.Collection)
		if _, err := Build(ctx, ix, l.source, 0, nil); err != nil {
			return nil, err
		}
	}
	log.Printf("[INFO] index: loaded %d documents", ix.Count())
	metrics.SetIndexDocuments(ix.Count())
	return ix, nil
}

// Search implements Searcher over the lazily loaded index
func (l *Loader) Search(ctx context.Context, query string, k int, pred Predicate) ([]Hit, error) {
	ix, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, query, k, pred)
}
