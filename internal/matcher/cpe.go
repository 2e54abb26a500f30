// file: internal/matcher/cpe.go
// version: 1.0.0
// guid: bb077859-4cd1-4be1-9fea-7cc1391c52a1

package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

const cpePrefix = "cpe:2.3:"

// cpeFieldCount is the number of attribute fields after the "cpe:2.3:" prefix
const cpeFieldCount = 11

// ErrMalformedCPE is returned when a string does not follow the 2.3 formatted binding
var ErrMalformedCPE = errors.New("malformed cpe 2.3 string")

// ParseCPE decodes a formatted 2.3 identifier into a catalog candidate.
// Escaped characters such as "\:" or "\+" are unescaped in the returned fields;
// the original string is kept as ConfigurationString.
func ParseCPE(s string) (models.Candidate, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), cpePrefix) {
		return models.Candidate{}, fmt.Errorf("%w: missing %q prefix", ErrMalformedCPE, cpePrefix)
	}
	fields := splitEscaped(s[len(cpePrefix):])
	if len(fields) != cpeFieldCount {
		return models.Candidate{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedCPE, cpeFieldCount, len(fields))
	}
	for i := range fields {
		fields[i] = unescape(fields[i])
	}
	if fields[1] == "" || fields[2] == "" {
		return models.Candidate{}, fmt.Errorf("%w: empty vendor or product", ErrMalformedCPE)
	}
	return models.Candidate{
		ConfigurationString: s,
		Part:                fields[0],
		Vendor:              fields[1],
		Product:             fields[2],
		Version:             fields[3],
		Update:              fields[4],
		Edition:             fields[5],
		Language:            fields[6],
		SWEdition:           fields[7],
		TargetSW:            fields[8],
		TargetHW:            fields[9],
		Other:               fields[10],
	}, nil
}

// FormatCPE encodes the attribute fields of c as a formatted 2.3 identifier.
// Empty fields are written as the "*" wildcard.
func FormatCPE(c models.Candidate) string {
	part := c.Part
	if part == "" {
		part = "a"
	}
	fields := []string{part, c.Vendor, c.Product, c.Version, c.Update, c.Edition,
		c.Language, c.SWEdition, c.TargetSW, c.TargetHW, c.Other}
	for i, f := range fields {
		fields[i] = escape(f)
	}
	return cpePrefix + strings.Join(fields, ":")
}

// IsWildcard reports whether a field value is the ANY ("*") or NA ("-") token, or empty.
func IsWildcard(field string) bool {
	return field == "" || field == "*" || field == "-"
}

// Covers reports whether the general version string matches the specific one.
// "*" covers everything, "7.0" covers "7.0" and "7.0.2", and "7.0*" or "7.0.*"
// cover any version starting with "7.0".
func Covers(general, specific string) bool {
	if general == "" || general == "*" {
		return true
	}
	if general == "-" || specific == "" {
		return false
	}
	if general == specific {
		return true
	}
	if prefix, ok := strings.CutSuffix(general, "*"); ok {
		return strings.HasPrefix(specific, strings.TrimSuffix(prefix, "."))
	}
	return strings.HasPrefix(specific, general+".")
}

// Specificity ranks how narrow a version string is. "*" is 0, "7" is 1,
// "7.0" is 2, "7.0.104" is 3. Lower is more general.
func Specificity(version string) int {
	if version == "" || version == "*" {
		return 0
	}
	v := strings.TrimSuffix(strings.TrimSuffix(version, "*"), ".")
	if v == "" {
		return 0
	}
	return strings.Count(v, ".") + 1
}

func splitEscaped(s string) []string {
	var fields []string
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune('\\')
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	return append(fields, b.String())
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
		escaped = false
	}
	return b.String()
}

func escape(s string) string {
	if IsWildcard(s) {
		if s == "" {
			return "*"
		}
		return s
	}
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		case (r == '*' || r == '?') && (i == 0 || i == len(runes)-1):
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		case r > 127:
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
