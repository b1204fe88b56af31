// Package opto derives optogenetic stimulation timestamps and tags them
// with experimental-group metadata.
package opto

import "github.com/lernerlab/medconv/internal/models"

// GroupMetadata is the per-group stimulation description. Pulse
// parameters are constant across every session of a group; they are
// never recomputed from per-session data.
type GroupMetadata struct {
	Pulse               models.PulseParameters
	InjectionLocation   string
	StimulationLocation string
	ExcitationLambda    float64 // nm
	SiteDescription     string
}

// groupTable is the fixed metadata table for the study's
// injection/stimulation-site combinations.
var groupTable = map[models.ExperimentalGroup]GroupMetadata{
	models.GroupDLSExcitatory: {
		Pulse: models.PulseParameters{
			Duration:   1.0,
			Frequency:  20.0,
			PulseWidth: 0.005,
			Power:      0.001,
		},
		InjectionLocation:   "medial SNc (AP -5.4, ML 2.0, DV -7.5)",
		StimulationLocation: "DLS (AP 0.0, ML 4.0, DV -3.5)",
		ExcitationLambda:    460.0,
		SiteDescription:     "Excitatory stimulation site in the dorsolateral striatum",
	},
	models.GroupDMSExcitatory: {
		Pulse: models.PulseParameters{
			Duration:   1.0,
			Frequency:  20.0,
			PulseWidth: 0.005,
			Power:      0.001,
		},
		InjectionLocation:   "lateral SNc (AP -5.4, ML 2.4, DV -7.5)",
		StimulationLocation: "DMS (AP 1.2, ML 1.5, DV -4.0)",
		ExcitationLambda:    460.0,
		SiteDescription:     "Excitatory stimulation site in the dorsomedial striatum",
	},
	models.GroupDMSInhibitory: {
		Pulse: models.PulseParameters{
			Duration:   1.0,
			Frequency:  1.0,
			PulseWidth: 1.0,
			Power:      0.010,
		},
		InjectionLocation:   "lateral SNc (AP -5.4, ML 2.4, DV -7.5)",
		StimulationLocation: "DMS (AP 1.2, ML 1.5, DV -4.0)",
		ExcitationLambda:    625.0,
		SiteDescription:     "Inhibitory stimulation site in the dorsomedial striatum",
	},
}

// LookupGroup returns the metadata entry for an experimental group or an
// UnknownGroupError: missing configuration is always fatal, never
// defaulted.
func LookupGroup(group models.ExperimentalGroup) (GroupMetadata, error) {
	meta, ok := groupTable[group]
	if !ok {
		return GroupMetadata{}, &models.UnknownGroupError{Group: string(group)}
	}
	return meta, nil
}

// stimulusNotes is the per-treatment description recorded with every
// stimulation series.
var stimulusNotes = map[models.OptogeneticTreatment]string{
	models.TreatmentChR2:          "Excitatory stimulation on rewarded nosepokes",
	models.TreatmentNpHR:          "Inhibitory stimulation on rewarded nosepokes",
	models.TreatmentChR2Scrambled: "Excitatory stimulation on random nosepokes",
	models.TreatmentNpHRScrambled: "Inhibitory stimulation on random nosepokes",
	models.TreatmentEYFP:          "Control",
	models.TreatmentUnknown:       "",
}

// programMode fixes, per program name, whether stimulation was paired
// with rewards or delivered on the dedicated scrambled-schedule channel.
// The choice is never inferred from data shape.
var programMode = map[string]models.StimulationSource{
	"FR1_LEFT_STIM":        models.SourcePairedWithReward,
	"FR1_RIGHT_STIM":       models.SourcePairedWithReward,
	"FR1_BOTH_WStim":       models.SourcePairedWithReward,
	"RI 30 LEFT STIM":      models.SourcePairedWithReward,
	"RI 30 RIGHT STIM":     models.SourcePairedWithReward,
	"RI 60 LEFT STIM":      models.SourcePairedWithReward,
	"RI 60 RIGHT STIM":     models.SourcePairedWithReward,
	"FR1_LEFT_SCRAM":       models.SourceDedicatedChannel,
	"FR1_RIGHT_SCRAMBLED":  models.SourceDedicatedChannel,
	"FR1_BOTH_SCRAMBLED":   models.SourceDedicatedChannel,
	"RI30 Left Scrambled":  models.SourceDedicatedChannel,
	"RI30 Right Scrambled": models.SourceDedicatedChannel,
	"RI60_LEFT_SCRAM":      models.SourceDedicatedChannel,
	"RI60_RIGHT_SCRAM":     models.SourceDedicatedChannel,
}

// StimulationProgram reports whether msn delivers optogenetic
// stimulation at all, and its source when it does.
func StimulationProgram(msn string) (models.StimulationSource, bool) {
	source, ok := programMode[msn]
	return source, ok
}
