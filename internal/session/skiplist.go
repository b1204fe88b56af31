// Package session assembles aligned per-session records from the
// behavioral, photometry, and optogenetic components, applying the
// skip-list and the hand-diagnosed correction table before emission.
package session

import (
	"fmt"

	"github.com/lernerlab/medconv/internal/models"
)

// subjectsToSkip are subjects excluded from conversion by data
// providence: their recordings are known to be unrecoverable or were
// withdrawn from the study.
var subjectsToSkip = map[string]bool{
	"289.407": true,
	"244.464": true,
	"264.477": true,
	"264.478": true,
	"102.260": true,
	"262.478": true,
	"289.408": true,
	"264.475": true,
	"129.425": true,
	"250.427": true,
	"95.259":  true,
	"309.399": true,
	"433.421": true,
	"416.405": true,
	"364.426": true,
}

// subjectDateSkips are single sessions excluded after hand review of the
// archival data.
var subjectDateSkips = map[subjectDate]string{
	{"334.394", "07/21/20"}: "photometry data is corrupted",
	{"99.257", "04/16/19"}:  "behavior data is missing",
	{"96.259", "05/06/19"}:  "session is missing the right-side TTLs",
}

type subjectDate struct {
	SubjectID string
	Date      string
}

// programsToSkip are program names irrelevant to the dataset (magazine
// training, probability pilots, and similar); their sessions are
// expected exclusions, not failures.
var programsToSkip = map[string]bool{
	"RR10_Right_AHJS":                   true,
	"RR10_Left_AHJS":                    true,
	"Magazine Training 1 hr":            true,
	"FOOD_Magazine Training 1 hr":       true,
	"RI_60_Left_Probability_AH_050619":  true,
	"RI_60_Right_Probability_AH_050619": true,
	"Extinction - 1 HR":                 true,
	"Probe Test Habit Training CC":      true,
	"FOOD_FR1 Hapit Training TTL":       true,
	"RK_C_FR1_BOTH_1hr":                 true,
}

// sessionTuplesToSkip are individual runs excluded after hand review:
// aborted starts and sessions saved under the wrong program.
var sessionTuplesToSkip = map[models.SessionIdentity]string{
	{SubjectID: "139.298", Date: "09/20/19", StartTime: "09:42:54", MSN: "RI 60 RIGHT STIM"}:              "aborted run, re-started the same morning",
	{SubjectID: "272.396", Date: "07/28/20", StartTime: "13:21:15", MSN: "Probe Test Habit Training TTL"}: "saved under the wrong program",
	{SubjectID: "346.394", Date: "07/31/20", StartTime: "12:03:31", MSN: "FOOD_RI 60 RIGHT TTL"}:          "duplicate save of the same run",
}

// ShouldSkip applies the skip-list policy. It must run before any
// parsing failure could be raised for the entry: matches are expected
// exclusions logged at informational level, never errors.
func ShouldSkip(identity models.SessionIdentity) (string, bool) {
	if identity.SubjectID == "" {
		return "session recorded without a subject id", true
	}
	if subjectsToSkip[models.NormalizeSubjectID(identity.SubjectID)] {
		return fmt.Sprintf("subject %s is on the exclusion list", identity.SubjectID), true
	}
	if reason, ok := subjectDateSkips[subjectDate{models.NormalizeSubjectID(identity.SubjectID), identity.Date}]; ok {
		return reason, true
	}
	if programsToSkip[identity.MSN] {
		return fmt.Sprintf("program %q is irrelevant to the dataset", identity.MSN), true
	}
	key := models.SessionIdentity{
		SubjectID: identity.SubjectID,
		Date:      identity.Date,
		StartTime: identity.StartTime,
		MSN:       identity.MSN,
	}
	if reason, ok := sessionTuplesToSkip[key]; ok {
		return reason, true
	}
	return "", false
}

// partialSubjectIDs maps truncated or mis-saved subject fields to the
// full lab-assigned id. Operator error left these in the raw headers.
var partialSubjectIDs = map[string]string{
	"268":         "268.476",
	"266":         "266.477",
	"244":         "244.465",
	"343":         "343.483",
	"419":         "419.404",
	"245":         "245.464",
	"342":         "342.483",
	"202":         "202.465",
	"313":         "313.403",
	"418":         "418.404",
	"340":         "340.483",
	"259":         "259.478",
	"264":         "264.478",
	"421":         "421.404",
	"417":         "417.404",
	"233":         "233.469",
	"261":         "261.478",
	"265":         "265.476",
	"311":         "311.403",
	"206":         "206.468",
	"243":         "243.468",
	"263":         "263.477",
	"338":         "338.398",
	"414":         "414.405",
	"300":         "300.405",
	"299":         "299.405",
	"276":         "276.405",
	"262.259.478": "262.478",
}

// CanonicalSubjectID resolves a recorded subject field to the full
// lab-assigned id, passing already-complete ids through unchanged.
func CanonicalSubjectID(subjectID string) string {
	if full, ok := partialSubjectIDs[subjectID]; ok {
		return full
	}
	return subjectID
}
