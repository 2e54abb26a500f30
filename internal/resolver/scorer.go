// file: internal/resolver/scorer.go
// version: 1.0.0
// guid: 975e7a60-d697-4297-b345-7f331eaa38d9

package resolver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/matcher"
	"github.com/jdfalk/cpe-resolver/internal/models"
)

// DefaultTopN is the number of candidates presented to the scorer
const DefaultTopN = 3

// Scorer selects a best match and alternates from a candidate list
type Scorer interface {
	Score(ctx context.Context, alias string, id models.ParsedIdentity, cands []models.Candidate) (*models.MatchDecision, error)
}

// LLMScorer asks the text-generation backend for a verdict, then applies the
// local matching policy to it.
type LLMScorer struct {
	LLM  ai.Completer
	TopN int
}

type scoreResponse struct {
	MatchType          ai.FlexString `json:"match_type"`
	ConfidenceScore    ai.FlexInt    `json:"confidence_score"`
	Confidence         ai.FlexInt    `json:"confidence"`
	MatchedCandidateID ai.FlexString `json:"matched_candidate_id"`
	MatchedCPE         ai.FlexString `json:"matched_cpe"`
	Reasoning          ai.FlexString `json:"reasoning"`
	PossibleMatches    []struct {
		CandidateID ai.FlexString `json:"candidate_id"`
		CPE         ai.FlexString `json:"cpe"`
		Reasoning   ai.FlexString `json:"reasoning"`
	} `json:"possible_matches"`
}

// Score implements Scorer. An empty candidate list is a NoMatch and makes no
// backend call.
func (s *LLMScorer) Score(ctx context.Context, alias string, id models.ParsedIdentity, cands []models.Candidate) (*models.MatchDecision, error) {
	if len(cands) == 0 {
		return &models.MatchDecision{
			MatchType: models.MatchNone,
			Reasoning: "no catalog candidates to score",
		}, nil
	}
	n := s.TopN
	if n <= 0 {
		n = DefaultTopN
	}
	top := orderForScoring(cands, id.Version)
	if len(top) > n {
		top = top[:n]
	}
	ids := presentedIDs(top)

	var resp scoreResponse
	err := ai.CompleteJSON(ctx, s.LLM, ai.Request{
		System:     scoreSystemPrompt,
		User:       scoreUserPrompt(alias, id, top, ids),
		Schema:     scoreSchema,
		SchemaName: "match_decision",
	}, &resp)
	if err != nil {
		return nil, stageError(ScoringFailure, PhaseScoring, err)
	}

	d := decisionFromResponse(resp, newCandidateLookup(top, ids))
	d = applyVersionPolicy(d, top, id.Version)
	d = requireAgreement(d, id, alias)
	d.Confidence = models.ClampConfidence(d.MatchType, d.Confidence)
	return d, nil
}

// candidateLookup resolves identifiers returned by the backend to the
// candidates that were presented
type candidateLookup struct {
	byID  map[string]*models.Candidate
	byCPE map[string]*models.Candidate
}

func newCandidateLookup(cands []models.Candidate, ids []string) candidateLookup {
	l := candidateLookup{
		byID:  make(map[string]*models.Candidate, len(cands)),
		byCPE: make(map[string]*models.Candidate, len(cands)),
	}
	for i := range cands {
		c := &cands[i]
		l.byID[ids[i]] = c
		l.byCPE[c.ConfigurationString] = c
	}
	return l
}

func (l candidateLookup) find(id, cpe string) (string, *models.Candidate, bool) {
	if c, ok := l.byID[id]; ok {
		return id, c, true
	}
	if c, ok := l.byCPE[cpe]; ok {
		return c.CatalogID, c, true
	}
	if c, ok := l.byCPE[id]; ok {
		return c.CatalogID, c, true
	}
	if id == "" {
		id = cpe
	}
	return id, nil, false
}

func decisionFromResponse(resp scoreResponse, lookup candidateLookup) *models.MatchDecision {
	d := &models.MatchDecision{
		MatchType: models.ParseMatchType(string(resp.MatchType)),
		Reasoning: string(resp.Reasoning),
	}
	switch {
	case resp.ConfidenceScore.Set:
		d.Confidence = resp.ConfidenceScore.Value
	case resp.Confidence.Set:
		d.Confidence = resp.Confidence.Value
	default:
		d.Confidence = models.ConfidenceBands[d.MatchType].Min
	}

	if d.MatchType.Positive() {
		id, c, ok := lookup.find(string(resp.MatchedCandidateID), string(resp.MatchedCPE))
		d.MatchedCandidateID = id
		d.Candidate = c
		d.LookupFailed = !ok
	}
	for _, pm := range resp.PossibleMatches {
		id, c, ok := lookup.find(string(pm.CandidateID), string(pm.CPE))
		if id == "" {
			continue
		}
		d.PossibleMatches = append(d.PossibleMatches, models.PossibleMatch{
			CandidateID:  id,
			Reasoning:    string(pm.Reasoning),
			Candidate:    c,
			LookupFailed: !ok,
		})
	}
	return d
}

// presentedIDs returns the identifier shown for each candidate. Catalog ids
// are used when present and unique; otherwise a positional id is assigned.
func presentedIDs(cands []models.Candidate) []string {
	ids := make([]string, len(cands))
	seen := make(map[string]bool, len(cands))
	for i, c := range cands {
		id := c.CatalogID
		if id == "" || seen[id] {
			id = "candidate-" + strconv.Itoa(i+1)
		}
		seen[id] = true
		ids[i] = id
	}
	return ids
}

// orderForScoring puts verbatim version matches first, then covering
// generalized versions from most to least general, then everything else in
// retrieval order.
func orderForScoring(cands []models.Candidate, version string) []models.Candidate {
	out := make([]models.Candidate, len(cands))
	copy(out, cands)
	if !versionKnown(version) {
		return out
	}
	rank := func(c models.Candidate) (int, int) {
		switch {
		case c.Version == version:
			return 0, 0
		case matcher.Covers(c.Version, version):
			return 1, matcher.Specificity(c.Version)
		default:
			return 2, 0
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, si := rank(out[i])
		cj, sj := rank(out[j])
		if ci != cj {
			return ci < cj
		}
		return si < sj
	})
	return out
}

func versionKnown(v string) bool {
	return v != "" && v != models.Unknown
}

// applyVersionPolicy enforces the version preference among candidates of the
// chosen vendor and product: a verbatim version wins, then the most general
// covering version, and a specific patch level only when neither exists.
func applyVersionPolicy(d *models.MatchDecision, cands []models.Candidate, version string) *models.MatchDecision {
	if !d.MatchType.Positive() || d.Candidate == nil || !versionKnown(version) {
		return d
	}
	chosen := d.Candidate

	var verbatim, covering *models.Candidate
	for i := range cands {
		c := &cands[i]
		if !samePackage(c, chosen) {
			continue
		}
		if c.Version == version {
			if verbatim == nil {
				verbatim = c
			}
			continue
		}
		if matcher.Covers(c.Version, version) {
			if covering == nil || matcher.Specificity(c.Version) < matcher.Specificity(covering.Version) {
				covering = c
			}
		}
	}

	switch {
	case verbatim != nil:
		if chosen.Version == version {
			return d
		}
		return switchTo(d, verbatim, models.MatchExact,
			fmt.Sprintf("preferred %s which carries version %s verbatim", verbatim.ConfigurationString, version))
	case covering != nil:
		if chosen == covering {
			if d.MatchType == models.MatchExact {
				d.MatchType = models.MatchGeneral
			}
			return d
		}
		if matcher.Covers(chosen.Version, version) && matcher.Specificity(chosen.Version) <= matcher.Specificity(covering.Version) {
			return d
		}
		return switchTo(d, covering, models.MatchGeneral,
			fmt.Sprintf("preferred generalized version %s covering %s", covering.Version, version))
	}
	return d
}

func switchTo(d *models.MatchDecision, c *models.Candidate, mt models.MatchType, note string) *models.MatchDecision {
	out := *d
	prev := d.Candidate
	out.Candidate = c
	out.MatchedCandidateID = c.CatalogID
	out.MatchType = mt
	out.Reasoning = strings.TrimSpace(d.Reasoning + " (" + note + ")")
	if prev != nil && prev != c {
		out.PossibleMatches = append([]models.PossibleMatch{{
			CandidateID: prev.CatalogID,
			Reasoning:   "originally selected",
			Candidate:   prev,
		}}, d.PossibleMatches...)
	}
	return &out
}

func samePackage(a, b *models.Candidate) bool {
	return strings.EqualFold(a.Vendor, b.Vendor) && strings.EqualFold(a.Product, b.Product)
}

// requireAgreement downgrades a positive decision whose vendor or product
// disagrees with both the parsed identity and the raw alias. A version match
// alone never justifies a match.
func requireAgreement(d *models.MatchDecision, id models.ParsedIdentity, alias string) *models.MatchDecision {
	if !d.MatchType.Positive() || d.Candidate == nil {
		return d
	}
	c := d.Candidate
	productOK := matcher.Ratio(c.Product, id.Product) >= 50 || mentions(alias, c.Product)
	vendorOK := !id.VendorKnown() || c.Vendor == "" ||
		matcher.Ratio(c.Vendor, id.Vendor) >= vendorGate || mentions(alias, c.Vendor)
	if productOK && vendorOK {
		return d
	}
	out := *d
	out.MatchType = models.MatchNone
	out.Reasoning = strings.TrimSpace(fmt.Sprintf("%s (rejected: %s/%s does not agree with %s/%s)",
		d.Reasoning, c.Vendor, c.Product, id.Vendor, id.Product))
	return &out
}

func mentions(alias, name string) bool {
	n := strings.ToLower(productQuery(name))
	return n != "" && strings.Contains(strings.ToLower(alias), n)
}
