// Package medpc parses the raw line-oriented operant-box log format into
// typed session blocks.
//
// A log file holds one or more session blocks separated by blank lines.
// Each block starts with single-line header fields ("Start Date: 04/17/19",
// "Subject: 95.259", "MSN: RR20_Left", ...) followed by lettered variable
// sections: a line "G:" opens a multiline numeric array whose rows are
// written as "     0:      175.300      270.500 ...", while a line like
// "F:       90.000" records an inline array on one line. The acquisition
// software injects stray tabs and whitespace runs, and occasionally
// trailing non-numeric garbage on a data row; both are tolerated.
package medpc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lernerlab/medconv/internal/models"
)

// Header field names as written by the acquisition software.
const (
	FieldStartDate  = "Start Date"
	FieldEndDate    = "End Date"
	FieldSubject    = "Subject"
	FieldExperiment = "Experiment"
	FieldGroup      = "Group"
	FieldBox        = "Box"
	FieldStartTime  = "Start Time"
	FieldEndTime    = "End Time"
	FieldMSN        = "MSN"
)

// Block is one session block as found verbatim in a raw log file.
type Block struct {
	Source    string            // file the block came from
	StartLine int               // 1-based line number of the first header line
	Fields    map[string]string // header fields, whitespace-trimmed
	Variables models.RawVariableTable
}

// Identity assembles the block's recorded header fields into a
// SessionIdentity. Fields absent from the header are left empty.
func (b *Block) Identity() models.SessionIdentity {
	return models.SessionIdentity{
		SubjectID: b.Fields[FieldSubject],
		Date:      b.Fields[FieldStartDate],
		StartTime: b.Fields[FieldStartTime],
		MSN:       b.Fields[FieldMSN],
		Box:       b.Fields[FieldBox],
	}
}

// ValidateHeader checks that the block's recorded date and time parse.
// A failure is a ParseError fatal for this block only.
func (b *Block) ValidateHeader() error {
	if _, err := time.Parse(models.DateLayout, b.Fields[FieldStartDate]); err != nil {
		return &models.ParseError{
			Source:  b.Source,
			Line:    b.StartLine,
			Message: fmt.Sprintf("unparseable start date %q", b.Fields[FieldStartDate]),
			Err:     err,
		}
	}
	if _, err := time.Parse(models.TimeLayout, b.Fields[FieldStartTime]); err != nil {
		return &models.ParseError{
			Source:  b.Source,
			Line:    b.StartLine,
			Message: fmt.Sprintf("unparseable start time %q", b.Fields[FieldStartTime]),
			Err:     err,
		}
	}
	return nil
}

// MatchSpec selects session blocks by header identity. Any field left
// empty is unconstrained (relaxed matching). Subject ids compare after
// zero-padding normalization; all fields compare after whitespace
// trimming.
type MatchSpec struct {
	SubjectID string
	Date      string // MM/DD/YY
	StartTime string // HH:MM:SS
	MSN       string
	Box       string
}

// FullySpecified reports whether every identity field that uniquely
// determines a session (subject, date, start time, program name) is
// constrained. Only a fully specified spec can produce a NotFoundError.
func (m MatchSpec) FullySpecified() bool {
	return m.SubjectID != "" && m.Date != "" && m.StartTime != "" && m.MSN != ""
}

// String renders the constrained fields for error messages.
func (m MatchSpec) String() string {
	var parts []string
	if m.SubjectID != "" {
		parts = append(parts, "subject="+m.SubjectID)
	}
	if m.Date != "" {
		parts = append(parts, "date="+m.Date)
	}
	if m.StartTime != "" {
		parts = append(parts, "time="+m.StartTime)
	}
	if m.MSN != "" {
		parts = append(parts, "msn="+m.MSN)
	}
	if m.Box != "" {
		parts = append(parts, "box="+m.Box)
	}
	if len(parts) == 0 {
		return "(unconstrained)"
	}
	return strings.Join(parts, " ")
}

// Matches reports whether the block's recorded header satisfies every
// constrained field. A block whose subject field was recorded blank is
// matched only when the caller did not constrain the subject.
func (m MatchSpec) Matches(b *Block) bool {
	if m.SubjectID != "" && !models.SameSubject(b.Fields[FieldSubject], m.SubjectID) {
		return false
	}
	if m.Date != "" && b.Fields[FieldStartDate] != strings.TrimSpace(m.Date) {
		return false
	}
	if m.StartTime != "" && b.Fields[FieldStartTime] != strings.TrimSpace(m.StartTime) {
		return false
	}
	if m.MSN != "" && b.Fields[FieldMSN] != strings.TrimSpace(m.MSN) {
		return false
	}
	if m.Box != "" && b.Fields[FieldBox] != strings.TrimSpace(m.Box) {
		return false
	}
	return true
}

// Parse reads every session block from r. Blocks are returned in file
// order with their raw header fields and variable arrays; header
// validation is deferred to match time so that one malformed block never
// aborts its siblings.
func Parse(r io.Reader, source string) ([]*Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var blocks []*Block
	var current *Block
	var currentArray string // letter code of the open multiline array
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			// Blank line closes the current block.
			current = nil
			currentArray = ""
			continue
		}

		key, rest, found := strings.Cut(line, ":")
		if !found {
			// Stray non-field line (operator notes); ignored.
			continue
		}
		trimmedKey := strings.TrimSpace(key)
		rest = strings.TrimSpace(rest)

		if isIndexRow(trimmedKey) {
			// Continuation row of the open multiline array.
			if current == nil || currentArray == "" {
				continue
			}
			current.Variables[currentArray] = append(current.Variables[currentArray], parseRow(rest)...)
			continue
		}

		if current == nil {
			current = &Block{
				Source:    source,
				StartLine: lineNo,
				Fields:    make(map[string]string),
				Variables: make(models.RawVariableTable),
			}
			blocks = append(blocks, current)
		}

		if isVariableCode(trimmedKey) {
			currentArray = trimmedKey
			if _, ok := current.Variables[trimmedKey]; !ok {
				current.Variables[trimmedKey] = []float64{}
			}
			if rest != "" {
				// Inline values on the declaration line.
				current.Variables[trimmedKey] = append(current.Variables[trimmedKey], parseRow(rest)...)
			}
			continue
		}

		currentArray = ""
		current.Fields[trimmedKey] = rest
	}
	if err := scanner.Err(); err != nil {
		return nil, &models.ParseError{Source: source, Line: lineNo, Message: "read failed", Err: err}
	}
	return blocks, nil
}

// isVariableCode reports whether key is a single uppercase letter A-Z.
func isVariableCode(key string) bool {
	return len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z'
}

// isIndexRow reports whether key is the numeric row index of a multiline
// array section (the software writes "     0:", "     5:", ...).
func isIndexRow(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

// parseRow tokenizes one whitespace-delimited data row, truncating at
// the first non-numeric token (trailing garbage from the equipment).
func parseRow(row string) []float64 {
	var values []float64
	for _, token := range strings.Fields(row) {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			break
		}
		values = append(values, v)
	}
	return values
}

// ParseFile opens path and parses every session block in it.
func ParseFile(path string) ([]*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Query returns the RawVariableTable-bearing blocks in path whose
// headers match spec, in file order.
//
// Matched blocks with malformed headers are dropped from the returned
// slice and reported in blockErrs as ParseErrors; they never abort
// sibling blocks. When spec is fully specified and nothing matched, err
// is a NotFoundError. Multiple matches for a fully specified identity
// (duplicate runs on the same day) are all returned: deduplication
// policy differs per data source and is a caller concern.
func Query(path string, spec MatchSpec) (matches []*Block, blockErrs []error, err error) {
	blocks, err := ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range blocks {
		if !spec.Matches(b) {
			continue
		}
		if verr := b.ValidateHeader(); verr != nil {
			blockErrs = append(blockErrs, verr)
			continue
		}
		matches = append(matches, b)
	}
	if len(matches) == 0 && len(blockErrs) == 0 && spec.FullySpecified() {
		return nil, nil, &models.NotFoundError{Source: path, Spec: spec.String()}
	}
	return matches, blockErrs, nil
}

// ListSessions returns the identity of every block in path, in file
// order, without validating headers. Used for session discovery and the
// inspect command.
func ListSessions(path string) ([]models.SessionIdentity, error) {
	blocks, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	identities := make([]models.SessionIdentity, 0, len(blocks))
	for _, b := range blocks {
		identities = append(identities, b.Identity())
	}
	return identities, nil
}
