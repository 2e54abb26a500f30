// file: internal/resolver/prompts.go
// version: 1.0.0
// guid: 0934c921-956f-4f60-b4b6-3725ff60901b

package resolver

import (
	"fmt"
	"strings"

	"github.com/jdfalk/cpe-resolver/internal/index"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

const parseSystemPrompt = `You extract structured identity from software inventory names so they can be
matched against a catalog of platform enumeration (CPE 2.3) records.

For the given software alias return:
- vendor: the company or project that publishes the software. Infer it when it is
  not written but is well known (WinRAR is published by rarlab). Use "unknown" when
  it cannot be determined.
- product: the software name. A product is always present; never answer "unknown"
  unless the alias contains no product at all. Expand well-known abbreviations
  (VS Code is visual_studio_code).
- version: the release as written in the alias, without build suffixes that are not
  part of the product's public version. Use "unknown" when absent.
- inference_reasoning: one sentence explaining any inference, otherwise "none".

Write vendor and product in lower case with words joined by underscores
(Adobe Acrobat Reader becomes adobe_acrobat_reader). Keep characters such as + and #.

Respond with a single JSON object:
{"vendor": "...", "product": "...", "version": "...", "inference_reasoning": "..."}`

const validateSystemPrompt = `You review nearest-neighbor search results for a software alias. Each numbered
result is a vendor/product pair from a CPE catalog. Select every result that could
plausibly be the same software as the alias. Naming differences and special
characters are fine; a different product is not. The parsed identity may be
imperfect, so weigh the raw alias most heavily.

Respond with a single JSON object listing the selected result numbers:
{"selected_indices": [1, 3], "reasoning": "..."}
Return an empty list when nothing fits.`

const scoreSystemPrompt = `You decide which CPE catalog candidate, if any, identifies a software alias.

Rules:
- Vendor and product must both plausibly agree with the alias before the version matters.
  A matching version alone never justifies a match.
- If a candidate carries the alias's version verbatim, prefer it.
- Otherwise prefer a candidate whose version is a generalized or wildcard form covering
  the alias's version (7.0 covers 7.0.2) over a specific patch level (7.0.104). Among
  generalized forms prefer the most general. Pick a specific patch level only when no
  generalized form exists.

match_type and confidence:
- "Exact": vendor, product and version all agree. Confidence 95-100.
- "General": agreement through a wildcard or edition-level candidate. Confidence 85-95.
- "Possible": same vendor and product, different version. Confidence 50-85.
- "NoMatch": vendor or product disagree. Confidence below 50.

Respond with a single JSON object:
{"match_type": "...", "confidence_score": 0, "matched_candidate_id": "...",
 "reasoning": "...", "possible_matches": [{"candidate_id": "...", "reasoning": "..."}]}
Use the candidate ids exactly as given.`

const auditSystemPrompt = `You audit the result of a workflow that maps software aliases to CPE 2.3 records
(cpe:2.3:part:vendor:product:version:update:edition:language:sw_edition:target_sw:target_hw:other,
where * means any value). Answer one question: does the selected record plausibly
identify the alias?

Set "restart" to true only when the record is clearly wrong, for example a different
vendor or product. Set it to false when the record is a reasonable identification,
including wildcard versions that cover the alias's version.

Respond with a single JSON object:
{"restart": false, "reasoning": "..."}`

var parseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"vendor":              map[string]any{"type": "string"},
		"product":             map[string]any{"type": "string"},
		"version":             map[string]any{"type": "string"},
		"inference_reasoning": map[string]any{"type": "string"},
	},
	"required": []string{"vendor", "product", "version", "inference_reasoning"},
}

var validateSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"selected_indices": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		"reasoning":        map[string]any{"type": "string"},
	},
	"required": []string{"selected_indices"},
}

var scoreSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"match_type":           map[string]any{"type": "string", "enum": []string{"Exact", "General", "Possible", "NoMatch"}},
		"confidence_score":     map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"matched_candidate_id": map[string]any{"type": "string"},
		"reasoning":            map[string]any{"type": "string"},
		"possible_matches": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"candidate_id": map[string]any{"type": "string"},
					"reasoning":    map[string]any{"type": "string"},
				},
			},
		},
	},
	"required": []string{"match_type", "confidence_score", "reasoning"},
}

var auditSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"restart":   map[string]any{"type": "boolean"},
		"reasoning": map[string]any{"type": "string"},
	},
	"required": []string{"restart", "reasoning"},
}

func formatIdentity(id models.ParsedIdentity) string {
	return fmt.Sprintf("vendor: %s\nproduct: %s\nversion: %s", id.Vendor, id.Product, id.Version)
}

func parseUserPrompt(alias string, history []models.ParsedIdentity, repeated *models.ParsedIdentity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Software alias: %q\n", alias)
	if len(history) > 0 {
		b.WriteString("\nEarlier parses of this alias did not lead to an accepted catalog match:\n")
		for i, h := range history {
			fmt.Fprintf(&b, "%d. vendor=%s product=%s version=%s\n", i+1, h.Vendor, h.Product, h.Version)
		}
		b.WriteString("Propose a different interpretation. Do not repeat a vendor/product pair listed above.\n")
	}
	if repeated != nil {
		fmt.Fprintf(&b, "\nYour previous answer vendor=%s product=%s was already tried. Give another vendor or product.\n",
			repeated.Vendor, repeated.Product)
	}
	return b.String()
}

func validateUserPrompt(alias string, id models.ParsedIdentity, hits []index.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Software alias: %q\n\nParsed identity:\n%s\n\nSearch results:\n", alias, formatIdentity(id))
	for i, h := range hits {
		fmt.Fprintf(&b, "%d. vendor: %s, product: %s\n", i+1, h.Entry.Vendor, h.Entry.Product)
	}
	return b.String()
}

func scoreUserPrompt(alias string, id models.ParsedIdentity, cands []models.Candidate, ids []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Software alias: %q\n\nParsed identity:\n%s\n\nCandidates:\n", alias, formatIdentity(id))
	for i, c := range cands {
		fmt.Fprintf(&b, "- id: %s\n  cpe: %s\n  vendor: %s, product: %s, version: %s, update: %s, edition: %s, sw_edition: %s, target_sw: %s, target_hw: %s\n",
			ids[i], c.ConfigurationString, c.Vendor, c.Product, c.Version, c.Update, c.Edition, c.SWEdition, c.TargetSW, c.TargetHW)
	}
	return b.String()
}

func auditUserPrompt(alias string, d *models.MatchDecision) string {
	return fmt.Sprintf("Software alias: %q\n\nSelected record: %s\n\nReasoning given for the selection: %s\n",
		alias, d.Candidate.ConfigurationString, d.Reasoning)
}
