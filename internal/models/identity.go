// Package models defines the core entities of the conversion pipeline:
// session identities, raw variable tables, named event streams,
// photometry and optogenetic records, the aligned per-session record,
// and the error taxonomy shared by all components.
//
// All entities are constructed once per conversion run from immutable
// source files and are never mutated after construction.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Header date/time layouts as written by the acquisition software.
const (
	DateLayout = "01/02/06" // MM/DD/YY
	TimeLayout = "15:04:05" // HH:MM:SS
)

// SessionIdentity identifies one behavioral recording by its header
// fields. It is not guaranteed unique in raw data: duplicate runs and
// mis-saved subject fields occur and are resolved by caller policy.
type SessionIdentity struct {
	SubjectID string // lab-assigned, may have inconsistent zero-padding
	Date      string // MM/DD/YY as recorded in the log header
	StartTime string // HH:MM:SS as recorded in the log header
	MSN       string // control program name, selects the event dictionary
	Box       string // operant box number, empty when not recorded
}

// String renders the identity for error messages and session keys.
func (id SessionIdentity) String() string {
	return fmt.Sprintf("subject=%s date=%s time=%s msn=%q", id.SubjectID, id.Date, id.StartTime, id.MSN)
}

// StartDateTime parses the recorded date and time into one wall-clock
// start time, used as the common time origin of the aligned record.
func (id SessionIdentity) StartDateTime() (time.Time, error) {
	t, err := time.Parse(DateLayout+" "+TimeLayout, id.Date+" "+id.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse session start: %w", err)
	}
	return t, nil
}

// NormalizeSubjectID strips leading zeros from each dot-separated piece
// of a subject id so that archival variants like "028.392" and "28.392"
// compare equal. Blank pieces are preserved.
func NormalizeSubjectID(subjectID string) string {
	pieces := strings.Split(strings.TrimSpace(subjectID), ".")
	for i, piece := range pieces {
		trimmed := strings.TrimLeft(piece, "0")
		if trimmed == "" && piece != "" {
			trimmed = "0"
		}
		pieces[i] = trimmed
	}
	return strings.Join(pieces, ".")
}

// SameSubject reports whether two subject ids refer to the same animal
// after zero-padding normalization.
func SameSubject(a, b string) bool {
	return NormalizeSubjectID(a) == NormalizeSubjectID(b)
}

// RawVariableTable maps single uppercase letter variable codes (A-Z) to
// the ordered numeric sequence recorded for that code, verbatim from one
// raw log block. Arrays for paired variables may differ in length; no
// positional alignment is assumed here.
type RawVariableTable map[string][]float64
