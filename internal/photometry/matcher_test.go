package photometry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lernerlab/medconv/internal/models"
)

func TestMatchSingleFolder(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "Punishment Sensitive", "Early RI60")
	makeFolder(t, sub, "Photo_95_259-190417-160333", []float32{1, 2})
	makeFolder(t, sub, "Photo_95_259-190418-104142", []float32{3, 4})

	record, err := NewMatcher(root).Match("95.259", "04/18/19", MatchOptions{})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if record == nil {
		t.Fatal("expected a match")
	}
	if record.StartTime != "10:41:42" {
		t.Errorf("matched folder time = %s, want 10:41:42", record.StartTime)
	}
}

func TestMatchNoRecordingIsNotError(t *testing.T) {
	root := t.TempDir()
	makeFolder(t, root, "Photo_95_259-190417-160333", []float32{1})

	record, err := NewMatcher(root).Match("95.259", "12/31/19", MatchOptions{})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if record != nil {
		t.Error("expected nil record for a behavior-only session")
	}
}

func TestMatchZeroPaddedSubject(t *testing.T) {
	root := t.TempDir()
	makeFolder(t, root, "Photo_028_392-200724-130323", []float32{1})

	record, err := NewMatcher(root).Match("28.392", "07/24/20", MatchOptions{})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if record == nil {
		t.Fatal("expected zero-padded folder to match canonical subject id")
	}
}

func TestMatchAmbiguous(t *testing.T) {
	root := t.TempDir()
	makeFolder(t, root, "Photo_95_259-190417-100000", []float32{1})
	makeFolder(t, root, "Photo_95_259-190417-160333", []float32{2})

	_, err := NewMatcher(root).Match("95.259", "04/17/19", MatchOptions{})
	var ae *models.AmbiguousMatchError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousMatchError, got %v", err)
	}
	if len(ae.Candidates) != 2 {
		t.Errorf("candidates = %v, want both folder names", ae.Candidates)
	}
}

// A recording filed under both the early and late subgroups counts once:
// only the canonical copy survives.
func TestMatchArchivalDuplicate(t *testing.T) {
	root := t.TempDir()
	early := filepath.Join(root, "Early")
	late := filepath.Join(root, "Late")
	makeFolder(t, early, "Photo_64_205-181017-094913", []float32{1, 2})
	makeFolder(t, late, "Photo_64_205-181017-094913", []float32{1, 2})

	record, err := NewMatcher(root).Match("64.205", "10/17/18", MatchOptions{})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if record == nil {
		t.Fatal("expected the canonical duplicate to match")
	}
	if filepath.Dir(record.FolderPaths[0]) != early {
		t.Errorf("kept copy = %s, want the one under Early/", record.FolderPaths[0])
	}
}

func TestMatchStitchedPair(t *testing.T) {
	root := t.TempDir()
	first := makeFolder(t, root, "Photo_92_246-190227-143210", []float32{1, 2, 3, 4})
	second := makeFolder(t, root, "Photo_92_246-190227-150307", []float32{5, 6})
	writeText(t, filepath.Join(first, "PrtN.ttl"), "0.1\n")
	writeText(t, filepath.Join(second, "PrtN.ttl"), "0.05\n")

	record, err := NewMatcher(root).Match("92.246", "02/27/19", MatchOptions{
		SecondFolder: "Photo_92_246-190227-150307",
	})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if len(record.FolderPaths) != 2 {
		t.Fatalf("folder paths = %v, want the stitched pair", record.FolderPaths)
	}
	if got := record.TTLs["PrtN"]; len(got) != 2 {
		t.Errorf("stitched TTLs = %v, want 2 triggers", got)
	}
}

func TestMatchStitchedPairMissingResume(t *testing.T) {
	root := t.TempDir()
	makeFolder(t, root, "Photo_92_246-190227-143210", []float32{1})

	_, err := NewMatcher(root).Match("92.246", "02/27/19", MatchOptions{
		SecondFolder: "Photo_92_246-190227-150307",
	})
	var ae *models.AmbiguousMatchError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousMatchError when the resume folder is absent, got %v", err)
	}
}

// Folders on the modulated-only list drop their demodulated stream even
// when the file is present.
func TestMatchModulatedOnlyFolder(t *testing.T) {
	root := t.TempDir()
	folder := makeFolder(t, root, "Photo_96_259-190417-160333", []float32{1, 2})
	writeF32(t, filepath.Join(folder, models.StreamDemod+".f32"), []float32{1, 2, 3, 4, 5, 6, 7, 8}, 0)
	writeF32(t, filepath.Join(folder, models.StreamMod+".f32"), []float32{1, 2, 3, 4}, 0)

	record, err := NewMatcher(root).Match("96.259", "04/17/19", MatchOptions{})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if record.Demodulated != nil {
		t.Error("demodulated stream should be dropped for a modulated-only recording")
	}
	if len(record.Modulated) != 4 {
		t.Errorf("modulated samples = %d, want 4", len(record.Modulated))
	}
}

// Pins hand-diagnosed modulated-only entries against the archival
// record, including the two later Photo_81/Photo_87 re-recordings.
func TestModulatedOnlyKnownRecordings(t *testing.T) {
	for _, name := range []string{
		"Photo_81_236-190117-102128",
		"Photo_81_236-190207-101451",
		"Photo_87_239-190228-111317",
		"Photo_87_239-190321-110120",
		"Photo_96_259-190417-160333",
	} {
		if !ModulatedOnly(name) {
			t.Errorf("ModulatedOnly(%q) = false, want true", name)
		}
	}
	if ModulatedOnly("Photo_95_259-190417-160333") {
		t.Error("folder off the list reported modulated-only")
	}
}

func TestMatchIgnoresForeignFolders(t *testing.T) {
	root := t.TempDir()
	foreign := filepath.Join(root, "Photo_notes-backup")
	if err := os.MkdirAll(foreign, 0o755); err != nil {
		t.Fatal(err)
	}
	makeFolder(t, root, "Photo_95_259-190417-160333", []float32{1})

	record, err := NewMatcher(root).Match("95.259", "04/17/19", MatchOptions{})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if record == nil {
		t.Fatal("expected a match despite the foreign folder")
	}
}
