// file: internal/ai/jsonrepair.go
// version: 1.0.0
// guid: 0781a0d4-b79a-44ea-8078-87efae147fa2

package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedJSON is returned when neither strict decoding nor recovery yields an object
var ErrMalformedJSON = errors.New("malformed JSON response")

// DecodeLenient decodes raw into out. It tries a strict decode first, then
// decodes the first balanced {...} span found in raw, and only then fails.
func DecodeLenient(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	strictErr := json.Unmarshal([]byte(trimmed), out)
	if strictErr == nil {
		return nil
	}

	span, ok := FirstObject(trimmed)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, strictErr)
	}
	if err := json.Unmarshal([]byte(span), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// FirstObject returns the first balanced {...} span in s. Braces inside JSON
// string literals are ignored.
func FirstObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
