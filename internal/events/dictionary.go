// Package events translates raw variable-code arrays into named,
// semantically-labeled behavioral event streams according to a
// per-program dictionary.
//
// The dictionary table is configuration data reproduced verbatim from
// the lab's documented program list; the mapper's correctness depends
// entirely on its completeness, so unknown program names are always
// fatal and never defaulted.
package events

import "github.com/lernerlab/medconv/internal/models"

// CodeMapping binds one single-letter variable code to a
// controlled-vocabulary event name. Order matters: when two codes
// declare the same event name, the first declared wins and the later
// one is a superseded legacy code, ignored by fixed policy.
type CodeMapping struct {
	Code  string
	Event string
}

// Dictionary is an ordered variable-code → event-name mapping for one
// program name.
type Dictionary []CodeMapping

// Program couples a program's dictionary with its human-readable
// session description.
type Program struct {
	Dictionary  Dictionary
	Description string
}

// merge layers override mappings over a base dictionary: an override
// whose code already exists replaces that entry in place, otherwise it
// is appended. Corrections are therefore additive and never duplicate
// the full dictionary.
func merge(base Dictionary, overrides ...CodeMapping) Dictionary {
	merged := make(Dictionary, len(base), len(base)+len(overrides))
	copy(merged, base)
	for _, o := range overrides {
		replaced := false
		for i, m := range merged {
			if m.Code == o.Code {
				merged[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, o)
		}
	}
	return merged
}

// operantBase is the shared dictionary of the two-lever operant rig:
// every program variant is a small override on top of it.
var operantBase = Dictionary{
	{Code: "A", Event: models.EventLeftNosePoke},
	{Code: "C", Event: models.EventRightNosePoke},
	{Code: "B", Event: models.EventLeftReward},
	{Code: "D", Event: models.EventRightReward},
	{Code: "G", Event: models.EventPortEntry},
	{Code: "E", Event: models.EventPortDuration},
}

// legacyDuration is the superseded duration-of-port-entry code declared
// by pre-2019 program revisions alongside 'E'. 'E' is always preferred;
// 'U' is ignored by fixed policy even when present in the raw table.
var legacyDuration = CodeMapping{Code: "U", Event: models.EventPortDuration}

var (
	footshock   = CodeMapping{Code: "H", Event: models.EventFootshock}
	stimChannel = CodeMapping{Code: "Z", Event: models.EventStimulation}
)

// programTable is the documented program-name registry. Keys are MSN
// strings exactly as recorded in log headers.
var programTable = map[string]Program{
	// Fiber photometry training programs.
	"FOOD_FR1 TTL Left": {
		Dictionary:  merge(operantBase),
		Description: "FR1 training, left lever active, with photometry TTLs",
	},
	"FOOD_FR1 TTL Right": {
		Dictionary:  merge(operantBase),
		Description: "FR1 training, right lever active, with photometry TTLs",
	},
	"FOOD_FR1 Habit Training TTL": {
		Dictionary:  merge(operantBase),
		Description: "FR1 habit training with photometry TTLs",
	},
	// Both-lever habit training rewards on both sides even though its
	// dictionary is nominally the single-side base.
	"FOOD_FR1 HT TTL (Both)": {
		Dictionary: merge(operantBase,
			CodeMapping{Code: "F", Event: models.EventRightReward},
		),
		Description: "FR1 habit training, both levers rewarded, with photometry TTLs",
	},
	"FOOD_RI 30 LEFT TTL": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 30 s, left lever, with photometry TTLs",
	},
	"FOOD_RI 30 RIGHT TTL": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 30 s, right lever, with photometry TTLs",
	},
	"FOOD_RI 60 LEFT TTL": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 60 s, left lever, with photometry TTLs",
	},
	"FOOD_RI 60 RIGHT TTL": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 60 s, right lever, with photometry TTLs",
	},
	"Probe Test Habit Training TTL": {
		Dictionary:  merge(operantBase),
		Description: "Habit training probe test with photometry TTLs",
	},
	"20sOmissions_TTL": {
		Dictionary:  merge(operantBase),
		Description: "20 s omission contingency with photometry TTLs",
	},
	"Footshock Degradation Left": {
		Dictionary:  merge(operantBase, footshock),
		Description: "Footshock contingency degradation, left lever",
	},
	"Footshock Degradation right": {
		Dictionary:  merge(operantBase, footshock),
		Description: "Footshock contingency degradation, right lever (lowercase program revision)",
	},

	// Legacy random-ratio programs declare both 'E' and the superseded
	// 'U' for duration of port entry (historical schema drift).
	"RR20_Left": {
		Dictionary:  merge(operantBase, legacyDuration),
		Description: "Random ratio 20, left lever",
	},
	"RR20_Right": {
		Dictionary:  merge(operantBase, legacyDuration),
		Description: "Random ratio 20, right lever",
	},
	"RR20Left": {
		Dictionary:  merge(operantBase, legacyDuration),
		Description: "Random ratio 20, left lever (condensed program revision)",
	},
	"RR20_Left_AHJS": {
		Dictionary:  merge(operantBase, legacyDuration),
		Description: "Random ratio 20, left lever, AHJS revision",
	},
	"RR20_Right_AHJS": {
		Dictionary:  merge(operantBase, legacyDuration),
		Description: "Random ratio 20, right lever, AHJS revision",
	},

	// Optogenetic stimulation programs: stimulation is paired with
	// rewards, no dedicated channel.
	"FR1_LEFT_STIM": {
		Dictionary:  merge(operantBase),
		Description: "FR1, left lever, stimulation paired with rewards",
	},
	"FR1_RIGHT_STIM": {
		Dictionary:  merge(operantBase),
		Description: "FR1, right lever, stimulation paired with rewards",
	},
	"FR1_BOTH_WStim": {
		Dictionary: merge(operantBase,
			CodeMapping{Code: "F", Event: models.EventRightReward},
		),
		Description: "FR1, both levers rewarded, stimulation paired with rewards",
	},
	"RI 30 LEFT STIM": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 30 s, left lever, stimulation paired with rewards",
	},
	"RI 30 RIGHT STIM": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 30 s, right lever, stimulation paired with rewards",
	},
	"RI 60 LEFT STIM": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 60 s, left lever, stimulation paired with rewards",
	},
	"RI 60 RIGHT STIM": {
		Dictionary:  merge(operantBase),
		Description: "Random interval 60 s, right lever, stimulation paired with rewards",
	},

	// Scrambled-control programs record delivered stimulation times on
	// the dedicated 'Z' channel.
	"FR1_LEFT_SCRAM": {
		Dictionary:  merge(operantBase, stimChannel),
		Description: "FR1, left lever, scrambled stimulation schedule",
	},
	"FR1_RIGHT_SCRAMBLED": {
		Dictionary:  merge(operantBase, stimChannel),
		Description: "FR1, right lever, scrambled stimulation schedule",
	},
	"FR1_BOTH_SCRAMBLED": {
		Dictionary: merge(operantBase,
			CodeMapping{Code: "F", Event: models.EventRightReward},
			stimChannel,
		),
		Description: "FR1, both levers rewarded, scrambled stimulation schedule",
	},
	"RI30 Left Scrambled": {
		Dictionary:  merge(operantBase, stimChannel),
		Description: "Random interval 30 s, left lever, scrambled stimulation schedule",
	},
	"RI30 Right Scrambled": {
		Dictionary:  merge(operantBase, stimChannel),
		Description: "Random interval 30 s, right lever, scrambled stimulation schedule",
	},
	"RI60_LEFT_SCRAM": {
		Dictionary:  merge(operantBase, stimChannel),
		Description: "Random interval 60 s, left lever, scrambled stimulation schedule",
	},
	"RI60_RIGHT_SCRAM": {
		Dictionary:  merge(operantBase, stimChannel),
		Description: "Random interval 60 s, right lever, scrambled stimulation schedule",
	},
}

// LookupProgram returns the dictionary entry for a program name.
// A missing entry is an UnknownProgramError: callers must extend the
// table, never guess a mapping.
func LookupProgram(msn string) (Program, error) {
	p, ok := programTable[msn]
	if !ok {
		return Program{}, &models.UnknownProgramError{MSN: msn}
	}
	return p, nil
}

// Describe returns the human-readable session description for a program
// name.
func Describe(msn string) (string, error) {
	p, err := LookupProgram(msn)
	if err != nil {
		return "", err
	}
	return p.Description, nil
}

// KnownProgram reports whether msn has a dictionary entry.
func KnownProgram(msn string) bool {
	_, ok := programTable[msn]
	return ok
}
