// file: internal/matcher/version.go
// version: 1.0.0
// guid: d2948f26-56fb-49d2-bb0e-0281a4119681

package matcher

import (
	"regexp"
	"strings"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// DefaultMinorThreshold is the candidate count above which the minor filter applies
const DefaultMinorThreshold = 50

var majorMinorPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?`)

// NarrowStage names the last filter that shaped a narrowing result
type NarrowStage string

const (
	StageNone  NarrowStage = "none"
	StageExact NarrowStage = "exact"
	StageMajor NarrowStage = "major"
	StageMinor NarrowStage = "minor"
)

// NarrowResult is the output of NarrowVersions
type NarrowResult struct {
	Candidates []models.Candidate
	// FastPath is set when exactly one candidate carries the version verbatim
	FastPath *models.Candidate
	Stage    NarrowStage
}

// ParseMajorMinor extracts the leading integer and optional dot-integer from a version.
// "7.0.2" yields ("7", "0"); "2008" yields ("2008", "").
func ParseMajorMinor(version string) (major, minor string, ok bool) {
	m := majorMinorPattern.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// NarrowVersions shrinks a candidate list using version-prefix heuristics.
// The result is never empty when the input is non-empty: each stage falls back
// to the previous set rather than filtering down to nothing.
func NarrowVersions(candidates []models.Candidate, version string, minorThreshold int) NarrowResult {
	res := NarrowResult{Candidates: candidates, Stage: StageNone}
	version = strings.TrimSpace(version)
	if len(candidates) == 0 || version == "" || strings.EqualFold(version, models.Unknown) {
		return res
	}
	if minorThreshold <= 0 {
		minorThreshold = DefaultMinorThreshold
	}

	exact := filterCandidates(candidates, func(c models.Candidate) bool {
		return c.Version == version
	})
	if len(exact) == 1 {
		fast := exact[0]
		return NarrowResult{Candidates: exact, FastPath: &fast, Stage: StageExact}
	}

	major, minor, ok := ParseMajorMinor(version)
	if !ok {
		return res
	}

	byMajor := filterCandidates(candidates, func(c models.Candidate) bool {
		return strings.HasPrefix(c.Version, major)
	})
	if len(byMajor) == 0 {
		return res
	}
	res = NarrowResult{Candidates: byMajor, Stage: StageMajor}

	if len(byMajor) > minorThreshold && minor != "" {
		minorPattern := regexp.MustCompile(`^` + regexp.QuoteMeta(major) + `\.` + regexp.QuoteMeta(minor[:1]))
		byMinor := filterCandidates(byMajor, func(c models.Candidate) bool {
			return minorPattern.MatchString(c.Version)
		})
		if len(byMinor) > 0 {
			res = NarrowResult{Candidates: byMinor, Stage: StageMinor}
		}
	}
	return res
}

func filterCandidates(in []models.Candidate, keep func(models.Candidate) bool) []models.Candidate {
	var out []models.Candidate
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
