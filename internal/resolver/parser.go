// file: internal/resolver/parser.go
// version: 1.0.0
// guid: d8fa703b-f76e-4ccb-b163-ce14dbf13a7b

package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/matcher"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Parser turns one alias into a structured identity guess
type Parser interface {
	Parse(ctx context.Context, alias string, history []models.ParsedIdentity) (models.ParsedIdentity, error)
}

// VendorSource lists the vendors known to the catalog
type VendorSource interface {
	DistinctVendors(ctx context.Context) ([]string, error)
}

// vendorSnapThreshold is the minimum ratio for snapping a parsed vendor to a catalog vendor
const vendorSnapThreshold = 85

// LLMParser asks the text-generation backend for an identity and normalizes
// the answer against the catalog's vendor list when one is available.
type LLMParser struct {
	llm     ai.Completer
	vendors VendorSource

	once        sync.Once
	vendorNames []string
}

// NewLLMParser creates a parser. vendors may be nil.
func NewLLMParser(llm ai.Completer, vendors VendorSource) *LLMParser {
	return &LLMParser{llm: llm, vendors: vendors}
}

type parseResponse struct {
	Vendor             ai.FlexString `json:"vendor"`
	Product            ai.FlexString `json:"product"`
	Version            ai.FlexString `json:"version"`
	InferenceReasoning ai.FlexString `json:"inference_reasoning"`
}

// Parse implements Parser. A parse repeating a vendor/product pair from
// history is retried once with the repetition called out.
func (p *LLMParser) Parse(ctx context.Context, alias string, history []models.ParsedIdentity) (models.ParsedIdentity, error) {
	id, err := p.ask(ctx, alias, history, nil)
	if err != nil {
		return models.ParsedIdentity{}, err
	}
	if repeatsHistory(id, history) {
		again, err := p.ask(ctx, alias, history, &id)
		if err == nil {
			id = again
		}
	}
	return p.snapVendor(ctx, id), nil
}

func (p *LLMParser) ask(ctx context.Context, alias string, history []models.ParsedIdentity, repeated *models.ParsedIdentity) (models.ParsedIdentity, error) {
	var resp parseResponse
	err := ai.CompleteJSON(ctx, p.llm, ai.Request{
		System:     parseSystemPrompt,
		User:       parseUserPrompt(alias, history, repeated),
		Schema:     parseSchema,
		SchemaName: "parsed_identity",
		Retry:      len(history) > 0,
	}, &resp)
	if err != nil {
		return models.ParsedIdentity{}, err
	}
	return normalizeIdentity(resp)
}

func normalizeIdentity(r parseResponse) (models.ParsedIdentity, error) {
	id := models.ParsedIdentity{
		Vendor:             normalizeField(string(r.Vendor)),
		Product:            normalizeField(string(r.Product)),
		Version:            strings.TrimSpace(string(r.Version)),
		InferenceReasoning: strings.TrimSpace(string(r.InferenceReasoning)),
	}
	if id.Product == "" || id.Product == models.Unknown {
		return models.ParsedIdentity{}, errors.New("parser returned no product")
	}
	if id.Vendor == "" {
		id.Vendor = models.Unknown
	}
	if isPlaceholder(id.Version) {
		id.Version = models.Unknown
	}
	return id, nil
}

// normalizeField lowercases and joins words with underscores. Placeholders
// such as "N/A" become "unknown".
func normalizeField(s string) string {
	s = strings.TrimSpace(s)
	if isPlaceholder(s) {
		return models.Unknown
	}
	s = strings.ReplaceAll(s, `\`, "")
	return matcher.NormalizeName(s)
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "na", "none", "null", "unknown", "-":
		return true
	}
	return false
}

func repeatsHistory(id models.ParsedIdentity, history []models.ParsedIdentity) bool {
	for _, h := range history {
		if h.SameTarget(id) {
			return true
		}
	}
	return false
}

// snapVendor replaces a near-miss vendor with the closest catalog vendor
func (p *LLMParser) snapVendor(ctx context.Context, id models.ParsedIdentity) models.ParsedIdentity {
	if p.vendors == nil || !id.VendorKnown() {
		return id
	}
	p.once.Do(func() {
		names, err := p.vendors.DistinctVendors(ctx)
		if err == nil {
			p.vendorNames = names
		}
	})
	if len(p.vendorNames) == 0 {
		return id
	}
	best, score := matcher.BestMatch(id.Vendor, p.vendorNames, vendorSnapThreshold)
	if best != "" && best != id.Vendor {
		id.InferenceReasoning = strings.TrimSpace(fmt.Sprintf("%s (vendor %q normalized to catalog vendor %q, ratio %d)",
			id.InferenceReasoning, id.Vendor, best, score))
		id.Vendor = best
	}
	return id
}
