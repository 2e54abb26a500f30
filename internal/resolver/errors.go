// file: internal/resolver/errors.go
// version: 1.0.0
// guid: 1f6b789e-d2d3-4273-bfd6-ae881c016046

package resolver

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a stage failure. Kinds are string-based so they read
// naturally in logs and output records.
type ErrorKind string

const (
	// ParseFailure indicates the parser could not produce an identity.
	ParseFailure ErrorKind = "PARSE_FAILURE"

	// RetrievalFailure indicates the index, catalog or remote catalog API failed.
	RetrievalFailure ErrorKind = "RETRIEVAL_FAILURE"

	// ValidationIndexOutOfRange indicates the validator selected a result that does not exist.
	ValidationIndexOutOfRange ErrorKind = "VALIDATION_INDEX_OUT_OF_RANGE"

	// ScoringFailure indicates a generation error or an unrecoverable scorer response.
	ScoringFailure ErrorKind = "SCORING_FAILURE"

	// AuditFailure indicates the audit call failed. It never ends a resolution.
	AuditFailure ErrorKind = "AUDIT_FAILURE"
)

// ErrNoCandidates marks an empty retrieval. It is a legitimate NoMatch, never an Error terminal.
var ErrNoCandidates = errors.New("no candidates found")

// StageError is a failure raised by one pipeline stage
type StageError struct {
	Kind  ErrorKind
	Stage Phase
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(kind ErrorKind, stage Phase, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the kind of the first StageError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
