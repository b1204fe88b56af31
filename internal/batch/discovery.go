// Package batch discovers convertible sessions in a raw dataset drop and
// fans them out across a bounded worker pool. Workers share no state:
// each session conversion is a pure function of its input files.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lernerlab/medconv/internal/medpc"
	"github.com/lernerlab/medconv/internal/models"
	"github.com/lernerlab/medconv/internal/session"
)

// Target is one discovered session conversion.
type Target struct {
	Request        session.Request
	ExperimentType string // "FP" or "Opto"
	Cohort         string // experimental cohort folder (DPR, PR, PS, RR20) or opto group
	SessionID      string // output file stem
}

// fpCohorts are the fiber-photometry cohort folders under
// "FP Experiments/Behavior".
var fpCohorts = []string{"DPR", "PR", "PS", "RR20"}

// FPPhotometryRoot returns the photometry root for a dataset directory.
func FPPhotometryRoot(dataDir string) string {
	return filepath.Join(dataDir, "FP Experiments", "Photometry")
}

// DiscoverFP enumerates the fiber-photometry cohort: one raw log file
// per subject, named after the subject, holding all of that subject's
// sessions.
func DiscoverFP(dataDir string) ([]Target, error) {
	behaviorRoot := filepath.Join(dataDir, "FP Experiments", "Behavior")
	var targets []Target
	for _, cohort := range fpCohorts {
		cohortDir := filepath.Join(behaviorRoot, cohort)
		subjects, err := os.ReadDir(cohortDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to list cohort %s: %w", cohort, err)
		}
		for _, subjectEntry := range subjects {
			if !subjectEntry.IsDir() || strings.HasPrefix(subjectEntry.Name(), ".") {
				continue
			}
			subjectID := session.CanonicalSubjectID(subjectEntry.Name())
			logPath := filepath.Join(cohortDir, subjectEntry.Name(), subjectEntry.Name())
			if _, err := os.Stat(logPath); err != nil {
				continue // subject folder without a per-subject log file
			}
			identities, err := medpc.ListSessions(logPath)
			if err != nil {
				return nil, err
			}
			for _, id := range identities {
				targets = append(targets, newTarget("FP", cohort, logPath, subjectID, id, "", ""))
			}
		}
	}
	return dedupe(targets), nil
}

// optoGroupDirs maps the on-disk group folder names to their
// experimental-group tags.
var optoGroupDirs = map[string]models.ExperimentalGroup{
	"DLS Excitatory": models.GroupDLSExcitatory,
	"DMS Excitatory": models.GroupDMSExcitatory,
	"DMS Inhibitory": models.GroupDMSInhibitory,
}

// treatmentForDir resolves a treatment folder name within a group.
// "Scrambled" folders hold the scrambled control of whichever opsin the
// group uses.
func treatmentForDir(dir string, group models.ExperimentalGroup) (models.OptogeneticTreatment, bool) {
	switch dir {
	case "ChR2":
		return models.TreatmentChR2, true
	case "EYFP":
		return models.TreatmentEYFP, true
	case "Halo", "NpHr":
		return models.TreatmentNpHR, true
	case "Scrambled":
		if group == models.GroupDMSInhibitory {
			return models.TreatmentNpHRScrambled, true
		}
		return models.TreatmentChR2Scrambled, true
	}
	return "", false
}

// DiscoverOpto enumerates the optogenetics cohorts: per-subject log
// files (or folders of them) filed under group and treatment folders,
// plus the raw files-by-date archive directly under the DLS Excitatory
// group.
func DiscoverOpto(dataDir string) ([]Target, error) {
	optoRoot := filepath.Join(dataDir, "Opto Experiments")
	var targets []Target

	dirNames := make([]string, 0, len(optoGroupDirs))
	for dirName := range optoGroupDirs {
		dirNames = append(dirNames, dirName)
	}
	sort.Strings(dirNames)

	for _, dirName := range dirNames {
		group := optoGroupDirs[dirName]
		groupDir := filepath.Join(optoRoot, dirName)
		err := filepath.WalkDir(groupDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipAll
				}
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") || isCSV(d.Name()) {
				return nil
			}
			treatment, ok := treatmentInPath(groupDir, path, group)
			if !ok {
				// Raw files-by-date archive: sessions identified by
				// their own recorded subject field.
				return appendByDateTargets(&targets, string(group), group, path)
			}
			subjectID, err := optoSubjectID(subjectComponent(groupDir, path))
			if err != nil {
				return err
			}
			identities, err := medpc.ListSessions(path)
			if err != nil {
				return err
			}
			for _, id := range identities {
				targets = append(targets, newTarget("Opto", string(group), path, subjectID, id, group, treatment))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dedupe(targets), nil
}

// treatmentInPath finds the treatment folder between the group dir and
// the log file, tolerating the subgroup layer ("Group 1", "Group 2")
// used by the DMS Inhibitory cohort.
func treatmentInPath(groupDir, path string, group models.ExperimentalGroup) (models.OptogeneticTreatment, bool) {
	rel, err := filepath.Rel(groupDir, path)
	if err != nil {
		return "", false
	}
	for _, component := range strings.Split(filepath.ToSlash(rel), "/") {
		if t, ok := treatmentForDir(component, group); ok {
			return t, true
		}
	}
	return "", false
}

// subjectComponent returns the path component naming the subject: the
// log file's parent directory when sessions are filed per-subject in a
// folder, otherwise the file itself. Treatment and subgroup folders are
// never subject names.
func subjectComponent(groupDir, path string) string {
	parent := filepath.Base(filepath.Dir(path))
	if _, ok := treatmentForDir(parent, models.GroupDLSExcitatory); ok {
		return filepath.Base(path)
	}
	if strings.HasPrefix(parent, "Group ") || parent == filepath.Base(groupDir) {
		return filepath.Base(path)
	}
	return parent
}

// appendByDateTargets handles log files organized by date instead of by
// subject: every session carries its own subject and box fields, which
// become part of the match conditions.
func appendByDateTargets(targets *[]Target, cohort string, group models.ExperimentalGroup, path string) error {
	identities, err := medpc.ListSessions(path)
	if err != nil {
		return err
	}
	for _, id := range identities {
		subjectID := session.CanonicalSubjectID(id.SubjectID)
		*targets = append(*targets, newTarget("Opto", cohort, path, subjectID, id, group, models.TreatmentUnknown))
	}
	return nil
}

var subjectIDPattern = regexp.MustCompile(`^\d{2,3}\.\d{3}$`)

// optoSubjectID extracts the subject id from the archival file or folder
// names used by the optogenetics cohorts, e.g. "266.477",
// "2021-10-25_10h44m_Subject 266.477.txt", "2021-10-25_266.477",
// "20211025_244.465", "2021-10-29__340.483", "262_478".
func optoSubjectID(name string) (string, error) {
	name = strings.TrimSuffix(name, ".txt")
	candidate := name
	switch {
	case subjectIDPattern.MatchString(name):
	case strings.Contains(name, "Subject "):
		candidate = strings.TrimSpace(name[strings.Index(name, "Subject ")+len("Subject "):])
	case strings.Contains(name, "__"):
		candidate = name[strings.Index(name, "__")+2:]
	case strings.Contains(name, "_"):
		parts := strings.Split(name, "_")
		last := firstField(parts[len(parts)-1])
		candidate = last
		// "262_478" and "2021-10-29_262_478 - Copy" style: the id's
		// dot was written as one more underscore.
		if len(parts) >= 2 && isDigits(parts[len(parts)-2]) && isDigits(last) {
			candidate = parts[len(parts)-2] + "." + last
		}
	}
	candidate = session.CanonicalSubjectID(firstField(candidate))
	if !subjectIDPattern.MatchString(candidate) {
		return "", fmt.Errorf("subject id not found in archival name %q", name)
	}
	return candidate, nil
}

// firstField trims annotations like " - Copy" off an extracted token.
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// newTarget assembles a Target, constraining the match spec by whatever
// identity fields the header actually recorded.
func newTarget(experimentType, cohort, logPath, subjectID string, id models.SessionIdentity, group models.ExperimentalGroup, treatment models.OptogeneticTreatment) Target {
	spec := medpc.MatchSpec{
		Date:      id.Date,
		StartTime: id.StartTime,
		MSN:       id.MSN,
	}
	if id.SubjectID != "" {
		spec.SubjectID = id.SubjectID
	}
	if id.Box != "" {
		spec.Box = id.Box
	}
	return Target{
		Request: session.Request{
			BehaviorFile: logPath,
			Spec:         spec,
			SubjectID:    subjectID,
			Group:        group,
			Treatment:    treatment,
		},
		ExperimentType: experimentType,
		Cohort:         cohort,
		SessionID:      sessionID(experimentType, cohort, subjectID, id),
	}
}

// sessionID builds the output file stem for a session.
func sessionID(experimentType, cohort, subjectID string, id models.SessionIdentity) string {
	stamp := strings.ReplaceAll(id.Date, "/", "-") + "_" + strings.ReplaceAll(id.StartTime, ":", "-")
	return fmt.Sprintf("%s_%s_%s_%s", experimentType, strings.ReplaceAll(cohort, " ", "-"), subjectID, stamp)
}

// dedupe drops targets that resolve to the same session key: the
// archival tree files some sessions under more than one location.
func dedupe(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	var unique []Target
	for _, t := range targets {
		key := t.Request.BehaviorFile + "|" + t.Request.Spec.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, t)
	}
	return unique
}

func isCSV(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
