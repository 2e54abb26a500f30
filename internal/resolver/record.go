// file: internal/resolver/record.go
// version: 1.0.0
// guid: ee46fc80-4e1b-4b80-b534-b54473284497

package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// Record converts a terminal state into the per-alias output record
func Record(s State, elapsed time.Duration) models.OutputRecord {
	rec := models.OutputRecord{
		Alias:    s.Alias,
		Attempts: s.Attempts,
		Duration: elapsed.Round(time.Millisecond).String(),
	}

	switch s.Terminal {
	case TerminalError:
		rec.MatchType = models.MatchError
		msg := "unknown error"
		if s.Err != nil {
			msg = s.Err.Error()
		}
		rec.Error = &msg
		rec.Reasoning = "resolution failed"
		if kind, ok := KindOf(s.Err); ok {
			rec.Reasoning = "resolution failed: " + string(kind)
		}
	case TerminalResolved:
		d := s.Decision
		conf := d.Confidence
		id := d.Candidate.ConfigurationString
		rec.MatchType = d.MatchType
		rec.Confidence = &conf
		rec.MatchedIdentifier = &id
		rec.Reasoning = d.Reasoning
	default:
		rec.MatchType = models.MatchNone
		rec.Reasoning = "no catalog entry matched"
		if d := s.Decision; d != nil {
			conf := models.ClampConfidence(models.MatchNone, d.Confidence)
			rec.Confidence = &conf
			if d.Reasoning != "" {
				rec.Reasoning = d.Reasoning
			}
		}
		if s.Audit != nil && s.Audit.Restart && s.Audit.Reasoning != "" {
			rec.Reasoning = strings.TrimSpace(rec.Reasoning + " (audit: " + s.Audit.Reasoning + ")")
		}
	}

	if diag := diagnostics(s); diag != "" {
		rec.DiagnosticInfo = &diag
	}
	return rec
}

// ErrorRecord builds an Error output record for failures outside the state machine
func ErrorRecord(alias string, err error) models.OutputRecord {
	msg := err.Error()
	return models.OutputRecord{
		Alias:     alias,
		MatchType: models.MatchError,
		Reasoning: "resolution failed",
		Error:     &msg,
	}
}

func diagnostics(s State) string {
	parts := append([]string(nil), s.Diagnostics...)
	if len(s.ParseHistory) > 1 {
		tried := make([]string, 0, len(s.ParseHistory))
		for _, h := range s.ParseHistory {
			tried = append(tried, h.Vendor+"/"+h.Product+"@"+h.Version)
		}
		parts = append(parts, "parses tried: "+strings.Join(tried, ", "))
	}
	if s.Decision != nil && len(s.Decision.PossibleMatches) > 0 {
		alts := make([]string, 0, len(s.Decision.PossibleMatches))
		for _, pm := range s.Decision.PossibleMatches {
			if pm.Candidate != nil {
				alts = append(alts, pm.Candidate.ConfigurationString)
			} else {
				alts = append(alts, fmt.Sprintf("%s (unknown)", pm.CandidateID))
			}
		}
		parts = append(parts, "possible matches: "+strings.Join(alts, ", "))
	}
	if s.FastPath != nil {
		parts = append(parts, "version fast path")
	}
	return strings.Join(parts, "; ")
}
