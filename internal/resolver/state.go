// file: internal/resolver/state.go
// version: 1.0.0
// guid: d9f1cada-f48d-4559-bd42-7e0d5463a975

package resolver

import (
	"slices"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Phase is a node of the resolution state machine
type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhaseRetrieving Phase = "retrieving"
	PhaseNarrowing  Phase = "narrowing"
	PhaseScoring    Phase = "scoring"
	PhaseAuditing   Phase = "auditing"
	PhaseDone       Phase = "done"
)

// Terminal is the final outcome of one resolution
type Terminal string

const (
	TerminalNone     Terminal = ""
	TerminalResolved Terminal = "Resolved"
	TerminalNoMatch  Terminal = "NoMatch"
	TerminalError    Terminal = "Error"
)

// State is the immutable aggregate threaded through the pipeline. Every
// With* method returns a modified copy and leaves the receiver untouched.
type State struct {
	Alias string
	Phase Phase

	// ParseHistory is append-only and holds each distinct identity once
	ParseHistory []models.ParsedIdentity
	// Identity is the most recent parse, even when it repeats an earlier one
	Identity *models.ParsedIdentity

	// Candidates always come from the latest retrieval
	Candidates []models.Candidate
	// NeedsNarrowing is set when the candidates are raw catalog rows
	NeedsNarrowing bool
	FastPath       *models.Candidate

	Decision *models.MatchDecision
	Audit    *models.AuditOutcome
	Attempts int

	Terminal    Terminal
	Err         error
	Diagnostics []string
}

// NewState starts a resolution for alias
func NewState(alias string) State {
	return State{Alias: alias, Phase: PhaseParsing}
}

// Done reports whether a terminal outcome has been recorded
func (s State) Done() bool {
	return s.Terminal != TerminalNone
}

func (s State) clone() State {
	s.ParseHistory = slices.Clone(s.ParseHistory)
	s.Candidates = slices.Clone(s.Candidates)
	s.Diagnostics = slices.Clone(s.Diagnostics)
	return s
}

// WithPhase moves the state to p
func (s State) WithPhase(p Phase) State {
	n := s.clone()
	n.Phase = p
	return n
}

// WithIdentity records a fresh parse and discards everything derived from the previous one
func (s State) WithIdentity(id models.ParsedIdentity) State {
	n := s.clone()
	if !slices.Contains(n.ParseHistory, id) {
		n.ParseHistory = append(n.ParseHistory, id)
	}
	n.Identity = &id
	n.Candidates = nil
	n.NeedsNarrowing = false
	n.FastPath = nil
	n.Decision = nil
	n.Audit = nil
	return n
}

// WithCandidates replaces the candidate set wholesale
func (s State) WithCandidates(cands []models.Candidate, needsNarrowing bool) State {
	n := s.clone()
	n.Candidates = slices.Clone(cands)
	n.NeedsNarrowing = needsNarrowing
	n.FastPath = nil
	n.Decision = nil
	return n
}

// WithFastPath records the single verbatim version match and its synthetic Exact decision
func (s State) WithFastPath(c models.Candidate) State {
	n := s.clone()
	n.Candidates = []models.Candidate{c}
	n.FastPath = &c
	n.Decision = &models.MatchDecision{
		MatchType:          models.MatchExact,
		Confidence:         100,
		MatchedCandidateID: c.CatalogID,
		Candidate:          &c,
		Reasoning:          "exactly one catalog entry carries the parsed version " + c.Version + " verbatim",
	}
	return n
}

// WithDecision records the scorer's verdict
func (s State) WithDecision(d *models.MatchDecision) State {
	n := s.clone()
	n.Decision = d
	return n
}

// WithAudit records an audit verdict. Every audit counts as one attempt.
func (s State) WithAudit(a models.AuditOutcome) State {
	n := s.clone()
	n.Audit = &a
	n.Attempts++
	return n
}

// WithDiagnostic appends a non-fatal note surfaced in the output record
func (s State) WithDiagnostic(msg string) State {
	if msg == "" {
		return s
	}
	n := s.clone()
	n.Diagnostics = append(n.Diagnostics, msg)
	return n
}

// Fail records an Error terminal. An existing terminal is never overwritten.
func (s State) Fail(err error) State {
	if s.Done() {
		return s
	}
	n := s.clone()
	n.Terminal = TerminalError
	n.Err = err
	n.Phase = PhaseDone
	return n
}

// Finish records a terminal outcome. An existing terminal is never overwritten.
func (s State) Finish(t Terminal) State {
	if s.Done() {
		return s
	}
	n := s.clone()
	n.Terminal = t
	n.Phase = PhaseDone
	return n
}
