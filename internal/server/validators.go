// file: internal/server/validators.go
// version: 2.0.0
// guid: fdfdfe1e-e77e-4319-a661-f586edd42d45

package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	ulid "github.com/oklog/ulid/v2"
)

// MaxAliasLength bounds a single alias in an API request
const MaxAliasLength = 512

// ValidationError represents a validation error with code
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateAliases checks a resolve batch: 1..maxBatch entries, each non-blank
// valid UTF-8 of at most MaxAliasLength bytes.
func ValidateAliases(aliases []string, maxBatch int) error {
	if len(aliases) == 0 {
		return ValidationError{
			Field:   "aliases",
			Message: "at least one alias is required",
			Code:    "ALIASES_REQUIRED",
		}
	}
	if maxBatch > 0 && len(aliases) > maxBatch {
		return ValidationError{
			Field:   "aliases",
			Message: fmt.Sprintf("at most %d aliases per request", maxBatch),
			Code:    "BATCH_TOO_LARGE",
		}
	}
	for i, a := range aliases {
		if strings.TrimSpace(a) == "" {
			return ValidationError{
				Field:   fmt.Sprintf("aliases[%d]", i),
				Message: "alias is blank",
				Code:    "ALIAS_REQUIRED",
			}
		}
		if !utf8.ValidString(a) {
			return ValidationError{
				Field:   fmt.Sprintf("aliases[%d]", i),
				Message: "alias is not valid UTF-8",
				Code:    "ALIAS_ENCODING",
			}
		}
		if len(a) > MaxAliasLength {
			return ValidationError{
				Field:   fmt.Sprintf("aliases[%d]", i),
				Message: fmt.Sprintf("alias must not exceed %d bytes", MaxAliasLength),
				Code:    "ALIAS_TOO_LONG",
			}
		}
	}
	return nil
}

// ValidateRunID checks that id is a run identifier as issued by batch resolution
func ValidateRunID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ValidationError{
			Field:   "id",
			Message: "id is required",
			Code:    "ID_REQUIRED",
		}
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return ValidationError{
			Field:   "id",
			Message: "id is not a valid run id",
			Code:    "ID_INVALID",
		}
	}
	return nil
}
