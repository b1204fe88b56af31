package medpc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lernerlab/medconv/internal/models"
)

const sampleLog = `Start Date: 04/18/19
End Date: 04/18/19
Subject: 95.259
Experiment:
Group:
Box: 1
Start Time: 10:41:42
End Time: 11:41:02
MSN: RR20_Left
F:       90.000
A:
     0:      175.150      270.750      762.050      762.900     1042.600
     5:     1567.800     1774.950
B:
     0:      175.150      270.750
G:
     0:       28.350       94.400      272.350
E:
     0:        1.450        0.900        3.350

Start Date: 04/19/19
End Date: 04/19/19
Subject: 95.259
Box: 1
Start Time: 09:33:12
End Time: 10:33:44
MSN: RR20_Left
A:
     0:       12.300       45.000 abort
     2:       90.100
`

func TestParseBlocks(t *testing.T) {
	blocks, err := Parse(strings.NewReader(sampleLog), "sample")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	first := blocks[0]
	if got := first.Fields[FieldSubject]; got != "95.259" {
		t.Errorf("subject = %q, want 95.259", got)
	}
	if got := first.Fields[FieldMSN]; got != "RR20_Left" {
		t.Errorf("msn = %q, want RR20_Left", got)
	}
	if first.StartLine != 1 {
		t.Errorf("start line = %d, want 1", first.StartLine)
	}

	tests := []struct {
		code string
		want []float64
	}{
		{"F", []float64{90.0}},
		{"A", []float64{175.15, 270.75, 762.05, 762.9, 1042.6, 1567.8, 1774.95}},
		{"B", []float64{175.15, 270.75}},
		{"G", []float64{28.35, 94.4, 272.35}},
		{"E", []float64{1.45, 0.9, 3.35}},
	}
	for _, tt := range tests {
		t.Run("variable_"+tt.code, func(t *testing.T) {
			got := first.Variables[tt.code]
			if len(got) != len(tt.want) {
				t.Fatalf("len(%s) = %d, want %d", tt.code, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("%s[%d] = %v, want %v", tt.code, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseTruncatesTrailingGarbage(t *testing.T) {
	blocks, err := Parse(strings.NewReader(sampleLog), "sample")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	second := blocks[1]
	got := second.Variables["A"]
	want := []float64{12.3, 45.0, 90.1}
	if len(got) != len(want) {
		t.Fatalf("len(A) = %d, want %d (row should truncate at non-numeric token)", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("A[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseEmptyHeaderFields(t *testing.T) {
	blocks, err := Parse(strings.NewReader(sampleLog), "sample")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got, ok := blocks[0].Fields[FieldExperiment]; !ok || got != "" {
		t.Errorf("experiment field = %q (present=%v), want empty string present", got, ok)
	}
}

func TestParseStrayWhitespace(t *testing.T) {
	log := "Start Date: 01/02/21\t\nSubject:\t  266.477  \nStart Time: 13:00:00\nMSN: FR1_LEFT_STIM\nA:      5.000\t   6.000\n"
	blocks, err := Parse(strings.NewReader(log), "stray")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if got := blocks[0].Fields[FieldSubject]; got != "266.477" {
		t.Errorf("subject = %q, want 266.477 (whitespace should be trimmed)", got)
	}
	if got := blocks[0].Variables["A"]; len(got) != 2 || got[0] != 5.0 || got[1] != 6.0 {
		t.Errorf("A = %v, want [5 6]", got)
	}
}

func TestMatchSpec(t *testing.T) {
	blocks, err := Parse(strings.NewReader(sampleLog), "sample")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	tests := []struct {
		name  string
		spec  MatchSpec
		block int
		want  bool
	}{
		{"full match", MatchSpec{SubjectID: "95.259", Date: "04/18/19", StartTime: "10:41:42", MSN: "RR20_Left"}, 0, true},
		{"relaxed date only", MatchSpec{Date: "04/19/19"}, 1, true},
		{"wrong time", MatchSpec{Date: "04/18/19", StartTime: "09:33:12"}, 0, false},
		{"zero-padded subject", MatchSpec{SubjectID: "095.259"}, 0, true},
		{"box constraint", MatchSpec{Box: "1"}, 0, true},
		{"wrong box", MatchSpec{Box: "2"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Matches(blocks[tt.block]); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeTempLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "95.259")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestQueryNotFound(t *testing.T) {
	path := writeTempLog(t, sampleLog)
	spec := MatchSpec{SubjectID: "95.259", Date: "12/31/19", StartTime: "10:41:42", MSN: "RR20_Left"}
	_, _, err := Query(path, spec)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestQueryRelaxedNoMatchIsNotError(t *testing.T) {
	path := writeTempLog(t, sampleLog)
	matches, blockErrs, err := Query(path, MatchSpec{Date: "12/31/19"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(matches) != 0 || len(blockErrs) != 0 {
		t.Errorf("expected no matches and no block errors, got %d / %d", len(matches), len(blockErrs))
	}
}

func TestQueryMalformedHeader(t *testing.T) {
	bad := "Start Date: 4/18/2019\nSubject: 95.259\nStart Time: 10:41:42\nMSN: RR20_Left\nA:      1.000\n"
	path := writeTempLog(t, bad)
	matches, blockErrs, err := Query(path, MatchSpec{SubjectID: "95.259"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected malformed block to be dropped, got %d matches", len(matches))
	}
	if len(blockErrs) != 1 {
		t.Fatalf("expected 1 block error, got %d", len(blockErrs))
	}
	var pe *models.ParseError
	if !errors.As(blockErrs[0], &pe) {
		t.Errorf("block error = %T, want *models.ParseError", blockErrs[0])
	}
}

func TestQueryDuplicatesAllReturned(t *testing.T) {
	dup := sampleLog + "\n" + strings.Replace(sampleLog[:strings.Index(sampleLog, "\n\n")], "Box: 1", "Box: 2", 1) + "\n"
	path := writeTempLog(t, dup)
	matches, _, err := Query(path, MatchSpec{SubjectID: "95.259", Date: "04/18/19", StartTime: "10:41:42", MSN: "RR20_Left"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected both duplicate blocks returned, got %d", len(matches))
	}
}

func TestListSessions(t *testing.T) {
	path := writeTempLog(t, sampleLog)
	identities, err := ListSessions(path)
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(identities) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(identities))
	}
	if identities[1].StartTime != "09:33:12" {
		t.Errorf("second session start time = %q, want 09:33:12", identities[1].StartTime)
	}
}
