// file: internal/resolver/fakes_test.go
// version: 1.0.0
// guid: 79adcd18-028d-4159-a02c-c2c77ff5eef9

package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/index"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// scriptedLLM answers each prompt family with a canned response
type scriptedLLM struct {
	mu       sync.Mutex
	parse    []string
	validate string
	score    string
	audit    string
	err      error
	requests []ai.Request
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Complete(_ context.Context, req ai.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	switch req.System {
	case parseSystemPrompt:
		if len(s.parse) == 0 {
			return "", errors.New("no parse response scripted")
		}
		out := s.parse[0]
		if len(s.parse) > 1 {
			s.parse = s.parse[1:]
		}
		return out, nil
	case validateSystemPrompt:
		return s.validate, nil
	case scoreSystemPrompt:
		return s.score, nil
	case auditSystemPrompt:
		return s.audit, nil
	}
	return "", errors.New("unexpected prompt")
}

func (s *scriptedLLM) count(system string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.System == system {
			n++
		}
	}
	return n
}

type stubParser struct {
	ids   []models.ParsedIdentity
	err   error
	calls atomic.Int32
	seen  [][]models.ParsedIdentity
	mu    sync.Mutex
}

func (p *stubParser) Parse(_ context.Context, _ string, history []models.ParsedIdentity) (models.ParsedIdentity, error) {
	n := int(p.calls.Add(1))
	p.mu.Lock()
	p.seen = append(p.seen, history)
	p.mu.Unlock()
	if p.err != nil {
		return models.ParsedIdentity{}, p.err
	}
	if n > len(p.ids) {
		return p.ids[len(p.ids)-1], nil
	}
	return p.ids[n-1], nil
}

type stubRetriever struct {
	result Retrieval
	err    error
	calls  atomic.Int32
}

func (r *stubRetriever) Retrieve(context.Context, string, models.ParsedIdentity) (Retrieval, error) {
	r.calls.Add(1)
	return r.result, r.err
}

type stubScorer struct {
	decision *models.MatchDecision
	err      error
	calls    atomic.Int32
}

func (s *stubScorer) Score(_ context.Context, _ string, _ models.ParsedIdentity, cands []models.Candidate) (*models.MatchDecision, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.decision != nil {
		return s.decision, nil
	}
	return &models.MatchDecision{MatchType: models.MatchNone, Reasoning: "stub"}, nil
}

type stubAuditor struct {
	restart bool
	err     error
	calls   atomic.Int32
}

func (a *stubAuditor) Audit(context.Context, string, *models.MatchDecision, int) (models.AuditOutcome, error) {
	a.calls.Add(1)
	return models.AuditOutcome{Restart: a.restart, Reasoning: "stub audit"}, a.err
}

type fakeSearcher struct {
	byQuery map[string][]index.Hit
	queries []string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int, pred index.Predicate) ([]index.Hit, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	var out []index.Hit
	for _, h := range f.byQuery[query] {
		if pred != nil && !pred(h.Entry) {
			continue
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

type fakeCatalog struct {
	rows    []models.Candidate
	filters []database.CatalogFilter
	err     error
}

func (f *fakeCatalog) QueryCatalog(_ context.Context, filter database.CatalogFilter) ([]models.Candidate, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Candidate
	for _, c := range f.rows {
		if filter.VendorContains != "" && !containsFold(c.Vendor, filter.VendorContains) {
			continue
		}
		if filter.ProductContains != "" && !containsFold(c.Product, filter.ProductContains) {
			continue
		}
		if len(filter.Pairs) > 0 && !hasPair(filter.Pairs, c) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasPair(pairs []models.VendorProduct, c models.Candidate) bool {
	for _, p := range pairs {
		if p.Vendor == c.Vendor && p.Product == c.Product {
			return true
		}
	}
	return false
}

type fakeEmbedder struct{}

// Embed scores texts by shared leading letters, enough to order a handful of products
func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 27)
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		} else if r >= 'A' && r <= 'Z' {
			v[r-'A']++
		}
	}
	v[26] = 0.1
	return v, nil
}

func candidate(id, vendor, product, version string) models.Candidate {
	c := models.Candidate{
		CatalogID: id,
		Part:      "a",
		Vendor:    vendor,
		Product:   product,
		Version:   version,
		Update:    "*", Edition: "*", Language: "*", SWEdition: "*",
		TargetSW: "*", TargetHW: "*", Other: "*",
	}
	c.ConfigurationString = "cpe:2.3:a:" + vendor + ":" + product + ":" + version + ":*:*:*:*:*:*:*"
	return c
}
