package photometry

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lernerlab/medconv/internal/models"
)

// duplicateFolderCanonicalSubgroup lists the recordings known to be
// archived under two locations (the same physical recording filed under
// both the early- and late-training subgroups). Only the copy whose
// parent directory matches the canonical subgroup is retained; the other
// is discarded silently. Identified by folder-name equivalence, not by
// content hashing.
var duplicateFolderCanonicalSubgroup = map[string]string{
	"Photo_64_205-181017-094913": "Early",
	"Photo_81_236-190117-102128": "Early",
	"Photo_87_239-190228-111317": "Early",
	"Photo_88_239-190219-140027": "Early",
	"Photo_75_214-181029-124815": "Early RI60",
	"Photo_78_214-181031-131820": "Early RI60",
	"Photo_80_236-190121-093425": "Early RI60",
	"Photo_93_246-190222-130128": "Early RI60",
}

// modulatedOnlyFolders lists recordings captured without usable
// demodulated outputs; only the modulated Fi1r stream is ingested for
// them. Hand-diagnosed against the archival data.
var modulatedOnlyFolders = map[string]bool{
	"Photo_333_393-200713-121027": true,
	"Photo_346_394-200707-141513": true,
	"Photo_64_205-181017-094913":  true,
	"Photo_81_236-190117-102128":  true,
	"Photo_87_239-190228-111317":  true,
	"Photo_81_236-190207-101451":  true,
	"Photo_87_239-190321-110120":  true,
	"Photo_88_239-190311-112034":  true,
	"Photo_333_393-200729-115506": true,
	"Photo_346_394-200722-132345": true,
	"Photo_349_393-200717-123319": true,
	"Photo_111_285-190605-142759": true,
	"Photo_141_308-190809-143410": true,
	"Photo_80_236-190121-093425":  true,
	"Photo_61_207-181017-105639":  true,
	"Photo_63_207-181015-093910":  true,
	"Photo_63_207-181030-103332":  true,
	"Photo_89_247-190328-125515":  true,
	"Photo_028_392-200724-130323": true,
	"Photo_048_392-200728-121222": true,
	"Photo_112_283-190620-093542": true,
	"Photo_113_283-190605-115438": true,
	"Photo_114_273-190607-140822": true,
	"Photo_115_273-190611-115654": true,
	"Photo_139_298-190809-132427": true,
	"Photo_75_214-181029-124815":  true,
	"Photo_92_246-190227-143210":  true,
	"Photo_92_246-190227-150307":  true,
	"Photo_93_246-190222-130128":  true,
	"Photo_78_214-181031-131820":  true,
	"Photo_90_247-190328-103249":  true,
	"Photo_92_246-190228-132737":  true,
	"Photo_92_246-190319-114357":  true,
	"Photo_94_246-190328-113641":  true,
	"Photo_140_306-190903-102551": true,
	"Photo_271_396-200722-121638": true,
	"Photo_347_393-200723-113530": true,
	"Photo_348_393-200730-113125": true,
	"Photo_139_298-190912-095034": true,
	"Photo_88_239-190219-140027":  true,
	"Photo_89_247-190308-095258":  true,
	"Photo_140_306-190809-121107": true,
	"Photo_271_396-200707-125117": true,
	"Photo_96_259-190417-160333":  true,
	"Photo_97_257-190417-134643":  true,
	"Photo_97_257-190506-120133":  true,
	"Photo_98_257-190424-114024":  true,
	"Photo_98_257-190510-095056":  true,
	"Photo_99_257-190506-130951":  true,
	"Photo_100_258-190423-122632": true,
	"Photo_100_258-190509-133212": true,
	"Photo_101_260-190425-120029": true,
}

// ModulatedOnly reports whether the named folder is on the documented
// modulated-only list.
func ModulatedOnly(folderName string) bool {
	return modulatedOnlyFolders[folderName]
}

// MatchOptions carry the caller-supplied, session-specific overrides for
// one match. Every field comes from the documented exception table;
// none is ever guessed from the data.
type MatchOptions struct {
	// TruncateAt bounds ingestion of the first (or only) folder at an
	// upper time bound in seconds, the recovery path for folders with
	// malformed trailing data.
	TruncateAt float64

	// SecondFolder names the resume folder of a known
	// restart-and-resume pair; its waveforms are stitched onto the end
	// of the first folder's.
	SecondFolder string
}

// Matcher locates photometry recordings for behavioral sessions under a
// root directory.
type Matcher struct {
	Root string
}

// NewMatcher returns a Matcher over the given photometry root.
func NewMatcher(root string) *Matcher {
	return &Matcher{Root: root}
}

// Match returns the photometry record for a subject and session date, or
// nil when the subject has no recording that day (behavior-only
// sessions are normal).
//
// Resolution policy, in order: enumerate folders matching subject (after
// zero-padding normalization) and date; drop known archival duplicates,
// keeping the canonical copy; stitch a known restart-and-resume pair
// when opts.SecondFolder names the resume folder; otherwise exactly one
// folder must remain or the match is an AmbiguousMatchError.
func (m *Matcher) Match(subjectID, date string, opts MatchOptions) (*models.PhotometrySessionRecord, error) {
	candidates, err := m.enumerate(subjectID, date)
	if err != nil {
		return nil, err
	}
	candidates = dropDuplicates(candidates)

	if opts.SecondFolder != "" {
		return m.matchStitched(subjectID, date, candidates, opts)
	}

	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return ReadFolder(candidates[0], readOptions(candidates[0], opts.TruncateAt))
	default:
		return nil, &models.AmbiguousMatchError{
			SubjectID:  subjectID,
			Date:       date,
			Candidates: baseNames(candidates),
		}
	}
}

// matchStitched resolves a documented restart-and-resume pair: the
// candidates must be exactly the interrupted folder plus the named
// resume folder.
func (m *Matcher) matchStitched(subjectID, date string, candidates []string, opts MatchOptions) (*models.PhotometrySessionRecord, error) {
	var firstPath, secondPath string
	var rest []string
	for _, c := range candidates {
		if filepath.Base(c) == opts.SecondFolder {
			secondPath = c
			continue
		}
		rest = append(rest, c)
	}
	if secondPath == "" || len(rest) != 1 {
		return nil, &models.AmbiguousMatchError{
			SubjectID:  subjectID,
			Date:       date,
			Candidates: baseNames(candidates),
		}
	}
	firstPath = rest[0]

	first, err := ReadFolder(firstPath, readOptions(firstPath, opts.TruncateAt))
	if err != nil {
		return nil, err
	}
	second, err := ReadFolder(secondPath, readOptions(secondPath, 0))
	if err != nil {
		return nil, err
	}
	return Stitch(first, second)
}

func readOptions(path string, truncateAt float64) ReadOptions {
	return ReadOptions{
		TruncateAt:      truncateAt,
		DropDemodulated: ModulatedOnly(filepath.Base(path)),
	}
}

// enumerate walks the root and collects every Photo_* folder whose
// embedded subject and date match. A missing root yields no candidates:
// behavior-only dataset drops carry no photometry tree at all. Results
// are sorted for deterministic resolution.
func (m *Matcher) enumerate(subjectID, date string) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(m.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == m.Root {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() || !strings.HasPrefix(d.Name(), FolderPrefix) {
			return nil
		}
		name, perr := ParseFolderName(d.Name())
		if perr != nil {
			// Folders with unparseable names are foreign to this
			// pipeline; leave them alone.
			return filepath.SkipDir
		}
		if models.SameSubject(name.SubjectID, subjectID) && name.Date == date {
			candidates = append(candidates, path)
		}
		return filepath.SkipDir // recordings never nest
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(candidates)
	return candidates, nil
}

// dropDuplicates applies the known-duplicate table: when a folder name
// on the list appears more than once, only the copy under its canonical
// subgroup survives.
func dropDuplicates(candidates []string) []string {
	byName := make(map[string][]string)
	for _, c := range candidates {
		byName[filepath.Base(c)] = append(byName[filepath.Base(c)], c)
	}
	var kept []string
	for _, c := range candidates {
		name := filepath.Base(c)
		subgroup, known := duplicateFolderCanonicalSubgroup[name]
		if !known || len(byName[name]) < 2 {
			kept = append(kept, c)
			continue
		}
		if strings.Contains(filepath.Dir(c), subgroup) {
			kept = append(kept, c)
		}
	}
	return kept
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
