package session

import "github.com/lernerlab/medconv/internal/models"

// CorrectionAction is one hand-diagnosed, session-specific override.
// Each entry was diagnosed against the real archival data; none is ever
// applied generically or guessed.
type CorrectionAction struct {
	// TruncatePhotometryAt bounds photometry ingestion at an upper
	// time bound in seconds (recovery for malformed trailing data).
	TruncatePhotometryAt float64

	// StitchSecondFolder names the resume folder of a known
	// restart-and-resume recording pair.
	StitchSecondFolder string

	// FlipTTLLeftRight swaps the left/right TTL channels recorded by a
	// mis-configured rig.
	FlipTTLLeftRight bool
}

// corrections is the single auditable table of known exceptions, keyed
// by subject and session date.
var corrections = map[subjectDate]CorrectionAction{
	{"139.298", "09/12/19"}: {
		TruncatePhotometryAt: 2267.0,
		StitchSecondFolder:   "Photo_139_298-190912-103544",
	},
	{"332.393", "07/28/20"}: {
		StitchSecondFolder: "Photo_332_393-200728-123314",
	},
	{"92.246", "02/27/19"}: {
		StitchSecondFolder: "Photo_92_246-190227-150307",
	},
	{"140.306", "08/09/19"}: {
		FlipTTLLeftRight: true,
	},
}

// CorrectionFor returns the correction action for a subject/date, if
// one is documented.
func CorrectionFor(subjectID, date string) (CorrectionAction, bool) {
	action, ok := corrections[subjectDate{models.NormalizeSubjectID(subjectID), date}]
	return action, ok
}

// TTL epoch channel names recorded by the photometry rig.
const (
	TTLLeftNosePoke      = "LNPS"
	TTLRightNosePoke     = "RNPS"
	TTLLeftPokeNoReward  = "LNnR"
	TTLRightPokeNoReward = "RNnR"
	TTLPortEntry         = "PrtN"
	TTLPortExit          = "PrtX"
	TTLFootshock         = "Sock"
)

// flipTTLs swaps the left- and right-side TTL channels in place on a
// freshly built record (the source folders themselves are never
// touched).
func flipTTLs(ttls map[string][]float64) {
	ttls[TTLLeftNosePoke], ttls[TTLRightNosePoke] = ttls[TTLRightNosePoke], ttls[TTLLeftNosePoke]
	ttls[TTLLeftPokeNoReward], ttls[TTLRightPokeNoReward] = ttls[TTLRightPokeNoReward], ttls[TTLLeftPokeNoReward]
	for _, name := range []string{TTLLeftNosePoke, TTLRightNosePoke, TTLLeftPokeNoReward, TTLRightPokeNoReward} {
		if ttls[name] == nil {
			delete(ttls, name)
		}
	}
}
