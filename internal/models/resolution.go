// file: internal/models/resolution.go
// version: 1.0.0
// guid: c3f1c88c-8509-4bb0-8c35-a75fe3d8e1e8

package models

import (
	"strings"
	"time"
)

// MatchType is the qualitative category of a resolution result
type MatchType string

const (
	MatchExact    MatchType = "Exact"
	MatchGeneral  MatchType = "General"
	MatchPossible MatchType = "Possible"
	MatchNone     MatchType = "NoMatch"
	MatchError    MatchType = "Error"
)

// MatchTypes lists every value an output record may carry
var MatchTypes = []MatchType{MatchExact, MatchGeneral, MatchPossible, MatchNone, MatchError}

// Valid reports whether m is one of the enumerated match types
func (m MatchType) Valid() bool {
	for _, known := range MatchTypes {
		if m == known {
			return true
		}
	}
	return false
}

// Positive reports whether the match type names an accepted catalog entry
func (m MatchType) Positive() bool {
	return m == MatchExact || m == MatchGeneral || m == MatchPossible
}

// ParseMatchType maps free-form labels produced by a language model onto MatchType.
// Anything unrecognised is treated as NoMatch.
func ParseMatchType(label string) MatchType {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.NewReplacer("_", " ", "-", " ").Replace(l)
	l = strings.TrimSuffix(l, " match")
	switch l {
	case "exact":
		return MatchExact
	case "general", "generalized", "wildcard", "edition":
		return MatchGeneral
	case "possible", "close", "partial", "unsure", "approximate":
		return MatchPossible
	case "no", "none", "nomatch", "no match":
		return MatchNone
	}
	return MatchNone
}

// Band is an inclusive confidence range
type Band struct {
	Min int
	Max int
}

// ConfidenceBands maps each decision category to its confidence range
var ConfidenceBands = map[MatchType]Band{
	MatchExact:    {Min: 95, Max: 100},
	MatchGeneral:  {Min: 85, Max: 95},
	MatchPossible: {Min: 50, Max: 85},
	MatchNone:     {Min: 0, Max: 49},
}

// ClampConfidence forces confidence into the band of the given match type
func ClampConfidence(m MatchType, confidence int) int {
	band, ok := ConfidenceBands[m]
	if !ok {
		band = Band{Min: 0, Max: 100}
	}
	return max(band.Min, min(band.Max, confidence))
}

// ParsedIdentity is one structured guess at what an alias refers to
type ParsedIdentity struct {
	Vendor             string `json:"vendor" yaml:"vendor"`
	Product            string `json:"product" yaml:"product"`
	Version            string `json:"version" yaml:"version"`
	InferenceReasoning string `json:"inference_reasoning" yaml:"inference_reasoning"`
}

// SameTarget reports whether two identities name the same vendor and product
func (p ParsedIdentity) SameTarget(other ParsedIdentity) bool {
	return strings.EqualFold(p.Vendor, other.Vendor) && strings.EqualFold(p.Product, other.Product)
}

// VendorKnown reports whether the vendor was determined
func (p ParsedIdentity) VendorKnown() bool {
	return p.Vendor != "" && p.Vendor != Unknown
}

// VersionKnown reports whether the version was determined
func (p ParsedIdentity) VersionKnown() bool {
	return p.Version != "" && p.Version != Unknown
}

// PossibleMatch is an alternate candidate surfaced by the scorer
type PossibleMatch struct {
	CandidateID  string     `json:"candidate_id"`
	Reasoning    string     `json:"reasoning"`
	Candidate    *Candidate `json:"candidate,omitempty"`
	LookupFailed bool       `json:"lookup_failed,omitempty"`
}

// MatchDecision is the scorer's verdict for one alias
type MatchDecision struct {
	MatchType          MatchType       `json:"match_type"`
	Confidence         int             `json:"confidence"`
	MatchedCandidateID string          `json:"matched_candidate_id,omitempty"`
	Candidate          *Candidate      `json:"candidate,omitempty"`
	Reasoning          string          `json:"reasoning"`
	PossibleMatches    []PossibleMatch `json:"possible_matches,omitempty"`
	LookupFailed       bool            `json:"lookup_failed,omitempty"`
}

// Usable reports whether the decision names a resolved catalog entry
func (d *MatchDecision) Usable() bool {
	return d != nil && d.MatchType.Positive() && d.Candidate != nil && !d.LookupFailed
}

// AuditOutcome is the verdict of the secondary plausibility check
type AuditOutcome struct {
	Restart   bool   `json:"restart"`
	Reasoning string `json:"reasoning"`
}

// OutputRecord is the per-alias result handed back to batch callers
type OutputRecord struct {
	Alias             string    `json:"alias" yaml:"alias"`
	MatchType         MatchType `json:"match_type" yaml:"match_type"`
	Confidence        *int      `json:"confidence" yaml:"confidence"`
	MatchedIdentifier *string   `json:"matched_identifier" yaml:"matched_identifier"`
	Reasoning         string    `json:"reasoning" yaml:"reasoning"`
	DiagnosticInfo    *string   `json:"diagnostic_info" yaml:"diagnostic_info"`
	Error             *string   `json:"error" yaml:"error"`
	Attempts          int       `json:"attempts" yaml:"attempts"`
	Duration          string    `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// StoredResolution is an output record persisted under a batch run
type StoredResolution struct {
	RunID     string       `json:"run_id"`
	Record    OutputRecord `json:"record"`
	CreatedAt time.Time    `json:"created_at"`
}
