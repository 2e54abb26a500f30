// file: internal/resolver/retriever.go
// version: 1.0.0
// guid: 12c30bab-e1cb-44e3-86f6-72cbf9ceabe5

package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/index"
	"github.com/jdfalk/cpe-resolver/internal/matcher"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Retrieval modes
const (
	ModeIndexed = "indexed"
	ModeDirect  = "direct"
	ModeNVD     = "nvd"
)

// Retrieval is the candidate set produced for one identity
type Retrieval struct {
	Candidates []models.Candidate
	// FromCatalog marks raw catalog rows, which go through version narrowing
	FromCatalog bool
	Diagnostics []string
}

// Retriever produces the candidate set for a parsed alias. An empty result
// is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, alias string, id models.ParsedIdentity) (Retrieval, error)
}

// CatalogQuerier is the catalog read used by retrieval
type CatalogQuerier interface {
	QueryCatalog(ctx context.Context, filter database.CatalogFilter) ([]models.Candidate, error)
}

// RemoteCatalog is a keyword search against an external catalog API
type RemoteCatalog interface {
	SearchCandidates(ctx context.Context, keyword string) ([]models.Candidate, error)
}

// vendorGate is the minimum vendor ratio for an index hit to survive the post-filter
const vendorGate = 60

// IndexedRetriever queries the vector index, validates hits with the
// text-generation backend and expands the survivors into catalog rows.
type IndexedRetriever struct {
	Index   index.Searcher
	Catalog CatalogQuerier
	LLM     ai.Completer
	K       int
}

type validateResponse struct {
	SelectedIndices []ai.FlexString `json:"selected_indices"`
	MatchedProducts []ai.FlexString `json:"matched_products"`
	Reasoning       ai.FlexString   `json:"reasoning"`
}

func (r validateResponse) indices() []ai.FlexString {
	if len(r.SelectedIndices) > 0 {
		return r.SelectedIndices
	}
	return r.MatchedProducts
}

// Retrieve implements Retriever
func (r *IndexedRetriever) Retrieve(ctx context.Context, alias string, id models.ParsedIdentity) (Retrieval, error) {
	k := r.K
	if k <= 0 {
		k = 10
	}
	pred := vendorPredicate(id)

	hits, err := r.Index.Search(ctx, productQuery(id.Product), k, pred)
	if err != nil {
		return Retrieval{}, stageError(RetrievalFailure, PhaseRetrieving, err)
	}
	var diags []string
	if len(hits) == 0 {
		diags = append(diags, fmt.Sprintf("no index hits for product %q, searched with the raw alias", id.Product))
		hits, err = r.Index.Search(ctx, alias, k, pred)
		if err != nil {
			return Retrieval{}, stageError(RetrievalFailure, PhaseRetrieving, err)
		}
	}
	if len(hits) == 0 {
		return Retrieval{Diagnostics: diags}, nil
	}
	sortHits(hits, id)

	selected, err := r.validate(ctx, alias, id, hits)
	if err != nil {
		return Retrieval{}, err
	}
	if len(selected) == 0 {
		return Retrieval{Diagnostics: append(diags, "validator rejected every index hit")}, nil
	}

	pairs := make([]models.VendorProduct, 0, len(selected))
	for _, h := range selected {
		pairs = append(pairs, models.VendorProduct{Vendor: h.Entry.Vendor, Product: h.Entry.Product})
	}
	if r.Catalog == nil {
		return Retrieval{Candidates: pairCandidates(pairs), Diagnostics: diags}, nil
	}

	// every version of the validated products must reach the narrower
	cands, err := r.Catalog.QueryCatalog(ctx, database.CatalogFilter{Pairs: pairs})
	if err != nil {
		return Retrieval{}, stageError(RetrievalFailure, PhaseRetrieving, err)
	}
	return Retrieval{Candidates: cands, FromCatalog: true, Diagnostics: diags}, nil
}

// validate asks the backend which hits are plausible. Indices are 1-based;
// anything outside the list is a validation failure.
func (r *IndexedRetriever) validate(ctx context.Context, alias string, id models.ParsedIdentity, hits []index.Hit) ([]index.Hit, error) {
	var resp validateResponse
	err := ai.CompleteJSON(ctx, r.LLM, ai.Request{
		System:     validateSystemPrompt,
		User:       validateUserPrompt(alias, id, hits),
		Schema:     validateSchema,
		SchemaName: "validated_results",
	}, &resp)
	if err != nil {
		return nil, stageError(RetrievalFailure, PhaseRetrieving, fmt.Errorf("validating index hits: %w", err))
	}

	seen := make(map[int]bool)
	var out []index.Hit
	for _, raw := range resp.indices() {
		n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil || n < 1 || n > len(hits) {
			return nil, stageError(ValidationIndexOutOfRange, PhaseRetrieving,
				fmt.Errorf("validator selected %q but only %d results exist", string(raw), len(hits)))
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, hits[n-1])
	}
	return out, nil
}

// vendorPredicate keeps hits whose vendor plausibly agrees with the parsed
// vendor. Vendor is advisory: an unknown parsed vendor or an empty vendor
// field always passes.
func vendorPredicate(id models.ParsedIdentity) index.Predicate {
	if !id.VendorKnown() {
		return nil
	}
	return func(e index.Entry) bool {
		return e.Vendor == "" || matcher.Ratio(e.Vendor, id.Vendor) > vendorGate
	}
}

// sortHits orders by vendor ratio descending, then by distance ascending
func sortHits(hits []index.Hit, id models.ParsedIdentity) {
	score := func(h index.Hit) int {
		if !id.VendorKnown() {
			return 0
		}
		return matcher.Ratio(h.Entry.Vendor, id.Vendor)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		si, sj := score(hits[i]), score(hits[j])
		if si != sj {
			return si > sj
		}
		return hits[i].Distance < hits[j].Distance
	})
}

func productQuery(product string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(product, "_", " ")), " ")
}

// pairCandidates turns bare vendor/product pairs into any-version candidates
func pairCandidates(pairs []models.VendorProduct) []models.Candidate {
	out := make([]models.Candidate, 0, len(pairs))
	for _, p := range pairs {
		c := models.Candidate{
			CatalogID: p.ID(),
			Part:      "a",
			Vendor:    p.Vendor,
			Product:   p.Product,
			Version:   "*",
		}
		c.ConfigurationString = matcher.FormatCPE(c)
		out = append(out, c)
	}
	return out
}

// DirectRetriever queries the catalog store by substring and ranks the rows
// by embedding similarity to the alias. Rows are not capped here; the
// version narrower and the scorer's top-N bound what reaches the backend.
type DirectRetriever struct {
	Catalog  CatalogQuerier
	Embedder ai.Embedder
}

// Retrieve implements Retriever. It tries vendor AND product, then product,
// then vendor, stopping at the first non-empty result.
func (r *DirectRetriever) Retrieve(ctx context.Context, alias string, id models.ParsedIdentity) (Retrieval, error) {
	product := id.Product
	if product == models.Unknown {
		product = ""
	}
	vendor := ""
	if id.VendorKnown() {
		vendor = id.Vendor
	}

	var attempts []database.CatalogFilter
	if vendor != "" && product != "" {
		attempts = append(attempts, database.CatalogFilter{VendorContains: vendor, ProductContains: product})
	}
	if product != "" {
		attempts = append(attempts, database.CatalogFilter{ProductContains: product})
	}
	if vendor != "" {
		attempts = append(attempts, database.CatalogFilter{VendorContains: vendor})
	}

	var diags []string
	for i, f := range attempts {
		cands, err := r.Catalog.QueryCatalog(ctx, f)
		if err != nil {
			return Retrieval{}, stageError(RetrievalFailure, PhaseRetrieving, err)
		}
		if len(cands) == 0 {
			continue
		}
		if i > 0 {
			diags = append(diags, fmt.Sprintf("catalog matched on fallback filter %s", describeFilter(f)))
		}
		ranked, err := rankByEmbedding(ctx, r.Embedder, alias, cands)
		if err != nil {
			diags = append(diags, "embedding rank skipped: "+err.Error())
		}
		return Retrieval{Candidates: ranked, FromCatalog: true, Diagnostics: diags}, nil
	}
	return Retrieval{}, nil
}

func describeFilter(f database.CatalogFilter) string {
	var parts []string
	if f.VendorContains != "" {
		parts = append(parts, "vendor~"+f.VendorContains)
	}
	if f.ProductContains != "" {
		parts = append(parts, "product~"+f.ProductContains)
	}
	return strings.Join(parts, " AND ")
}

// NVDRetriever searches the public CPE dictionary API by keyword
type NVDRetriever struct {
	Client   RemoteCatalog
	Embedder ai.Embedder
}

// Retrieve implements Retriever
func (r *NVDRetriever) Retrieve(ctx context.Context, alias string, id models.ParsedIdentity) (Retrieval, error) {
	keyword := productQuery(id.Product)
	if id.VendorKnown() && !strings.Contains(keyword, productQuery(id.Vendor)) {
		keyword = productQuery(id.Vendor) + " " + keyword
	}
	cands, err := r.Client.SearchCandidates(ctx, keyword)
	if err != nil {
		return Retrieval{}, stageError(RetrievalFailure, PhaseRetrieving, err)
	}
	if len(cands) == 0 {
		return Retrieval{}, nil
	}
	ranked, err := rankByEmbedding(ctx, r.Embedder, alias, cands)
	var diags []string
	if err != nil {
		diags = append(diags, "embedding rank skipped: "+err.Error())
	}
	return Retrieval{Candidates: ranked, FromCatalog: true, Diagnostics: diags}, nil
}

// rankByEmbedding orders candidates by cosine similarity between the alias
// and each candidate's vendor/product text. Rows of one product share a
// score and keep their catalog order. On error the input order is returned.
func rankByEmbedding(ctx context.Context, emb ai.Embedder, alias string, cands []models.Candidate) ([]models.Candidate, error) {
	if emb == nil || len(cands) < 2 {
		return cands, nil
	}
	query, err := emb.Embed(ctx, alias)
	if err != nil {
		return cands, err
	}

	scores := make(map[string]float64)
	var errs []error
	for _, c := range cands {
		key := models.VendorProduct{Vendor: c.Vendor, Product: c.Product}.ID()
		if _, ok := scores[key]; ok {
			continue
		}
		v, err := emb.Embed(ctx, productQuery(c.Vendor)+" "+productQuery(c.Product))
		if err != nil {
			errs = append(errs, err)
			scores[key] = 0
			continue
		}
		scores[key] = ai.Cosine(query, v)
	}

	out := make([]models.Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool {
		si := scores[models.VendorProduct{Vendor: out[i].Vendor, Product: out[i].Product}.ID()]
		sj := scores[models.VendorProduct{Vendor: out[j].Vendor, Product: out[j].Product}.ID()]
		return si > sj
	})
	return out, errors.Join(errs...)
}
