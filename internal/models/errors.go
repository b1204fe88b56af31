package models

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed header or body in a raw source file.
// It is fatal for the block (or stream file) it names, never for the
// whole file: sibling blocks keep parsing.
type ParseError struct {
	Source  string // file or folder the malformed data came from
	Line    int    // 1-based line number, 0 when not line-oriented
	Message string
	Err     error // underlying error (optional)
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("parse ")
	sb.WriteString(e.Source)
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(" line %d", e.Line))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError reports that no session block matched a fully specified
// identity.
type NotFoundError struct {
	Source string
	Spec   string // the identity spec that failed to match
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no session matching %s in %s", e.Spec, e.Source)
}

// UnknownProgramError reports a program name (MSN) that has no entry in
// the event dictionary table. Always fatal: a silently defaulted mapping
// would produce wrong science.
type UnknownProgramError struct {
	MSN string
}

func (e *UnknownProgramError) Error() string {
	return fmt.Sprintf("unknown program name %q: no event dictionary entry", e.MSN)
}

// UnknownGroupError reports an experimental-group tag that has no
// stimulation metadata entry.
type UnknownGroupError struct {
	Group string
}

func (e *UnknownGroupError) Error() string {
	return fmt.Sprintf("unknown experimental group %q: no stimulation metadata entry", e.Group)
}

// MalformedSessionError reports an internal inconsistency within one
// session's data, e.g. paired arrays of different lengths. It indicates
// a corrupted recording, not an alignment task.
type MalformedSessionError struct {
	Identity SessionIdentity
	Message  string
}

func (e *MalformedSessionError) Error() string {
	return fmt.Sprintf("malformed session %s: %s", e.Identity, e.Message)
}

// AmbiguousMatchError reports an unresolvable multiplicity after all
// documented deduplication rules have been applied.
type AmbiguousMatchError struct {
	SubjectID  string
	Date       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for subject %s on %s: %d candidates remain (%s)",
		e.SubjectID, e.Date, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// DataInconsistencyError reports a contradiction between two data
// sources that requires human review; it is never resolved by
// fabricating data.
type DataInconsistencyError struct {
	Identity SessionIdentity
	Message  string
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("data inconsistency in session %s: %s", e.Identity, e.Message)
}
