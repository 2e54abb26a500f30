// file: internal/index/index.go
// version: 1.0.0
// guid: fedcba52-b8a4-46e3-9f72-d79a6cbfacba

package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Default nomic-embed-text task prefixes
const (
	DefaultDocumentPrefix = "search_document: "
	DefaultQueryPrefix    = "search_query: "
)

// oversample widens the raw nearest-neighbor query so the post-filter still
// has k survivors in the common case.
const oversample = 5

// Entry is one indexed (vendor, product) document
type Entry struct {
	ID      string
	Vendor  string
	Product string
	Text    string
}

// Hit is a search result. Distance is 1 - cosine similarity; lower is closer.
type Hit struct {
	Entry    Entry
	Distance float64
}

// Predicate filters hits on their metadata. A nil predicate keeps everything.
type Predicate func(Entry) bool

// Searcher is the nearest-neighbor capability consumed by the retriever
type Searcher interface {
	Search(ctx context.Context, query string, k int, pred Predicate) ([]Hit, error)
}

// Options configures an index
type Options struct {
	// Path of the persistent store; empty keeps the index in memory
	Path           string
	Collection     string
	Embed          chromem.EmbeddingFunc
	DocumentPrefix string
	QueryPrefix    string
}

// Index is a chromem-go collection of product documents
type Index struct {
	db          *chromem.DB
	coll        *chromem.Collection
	docPrefix   string
	queryPrefix string
}

// Open opens or creates the collection described by opts
func Open(opts Options) (*Index, error) {
	if opts.Embed == nil {
		return nil, errors.New("index requires an embedding function")
	}
	if opts.Collection == "" {
		opts.Collection = "products"
	}

	var db *chromem.DB
	if opts.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("opening index at %s: %w", opts.Path, err)
		}
	}

	coll, err := db.GetOrCreateCollection(opts.Collection, map[string]string{"kind": "vendor_product"}, opts.Embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", opts.Collection, err)
	}
	return &Index{
		db:          db,
		coll:        coll,
		docPrefix:   opts.DocumentPrefix,
		queryPrefix: opts.QueryPrefix,
	}, nil
}

// Count returns the number of indexed documents
func (ix *Index) Count() int {
	return ix.coll.Count()
}

// Add embeds and stores vendor/product pairs. Existing ids are overwritten.
func (ix *Index) Add(ctx context.Context, pairs []models.VendorProduct) error {
	if len(pairs) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(pairs))
	for _, vp := range pairs {
		docs = append(docs, chromem.Document{
			ID:       vp.ID(),
			Content:  ix.docPrefix + productText(vp.Product),
			Metadata: map[string]string{"vendor": vp.Vendor, "product": vp.Product},
		})
	}
	return ix.coll.AddDocuments(ctx, docs, runtime.NumCPU())
}

// Search returns up to k hits closest to query that satisfy pred, ordered by distance
func (ix *Index) Search(ctx context.Context, query string, k int, pred Predicate) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return nil, nil
	}
	total := ix.coll.Count()
	if total == 0 {
		return nil, nil
	}
	n := min(total, k*oversample)

	results, err := ix.coll.Query(ctx, ix.queryPrefix+productText(query), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("index query %q: %w", query, err)
	}

	hits := make([]Hit, 0, k)
	for _, r := range results {
		e := Entry{
			ID:      r.ID,
			Vendor:  r.Metadata["vendor"],
			Product: r.Metadata["product"],
			Text:    strings.TrimPrefix(r.Content, ix.docPrefix),
		}
		if pred != nil && !pred(e) {
			continue
		}
		hits = append(hits, Hit{Entry: e, Distance: 1 - float64(r.Similarity)})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

func productText(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
}
