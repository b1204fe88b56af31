package models

// ExperimentalGroup identifies one injection/stimulation-site
// combination from the fixed study design.
type ExperimentalGroup string

const (
	GroupDLSExcitatory ExperimentalGroup = "DLS-Excitatory"
	GroupDMSExcitatory ExperimentalGroup = "DMS-Excitatory"
	GroupDMSInhibitory ExperimentalGroup = "DMS-Inhibitory"
)

// OptogeneticTreatment names the virus/stimulation protocol assigned to
// a subject within its experimental group.
type OptogeneticTreatment string

const (
	TreatmentChR2          OptogeneticTreatment = "ChR2"
	TreatmentEYFP          OptogeneticTreatment = "EYFP"
	TreatmentChR2Scrambled OptogeneticTreatment = "ChR2Scrambled"
	TreatmentNpHR          OptogeneticTreatment = "NpHR"
	TreatmentNpHRScrambled OptogeneticTreatment = "NpHRScrambled"
	TreatmentUnknown       OptogeneticTreatment = "Unknown"
)

// StimulationSource records where the stimulation timestamps came from.
type StimulationSource string

const (
	// SourcePairedWithReward: one pulse train begins at each reward.
	SourcePairedWithReward StimulationSource = "paired-with-reward"
	// SourceDedicatedChannel: timestamps come from the dedicated
	// stimulation-times channel (scrambled condition).
	SourceDedicatedChannel StimulationSource = "dedicated-channel"
)

// PulseParameters describe the pulse train delivered at each
// stimulation onset. They are resolved solely from the experimental
// group metadata and are constant across all sessions of that group.
type PulseParameters struct {
	Duration   float64 `json:"duration"`    // seconds per train
	Frequency  float64 `json:"frequency"`   // Hz within a train
	PulseWidth float64 `json:"pulse_width"` // seconds per pulse
	Power      float64 `json:"power"`       // watts
}

// OptogeneticRecord holds the resolved stimulation timestamps and the
// group-level metadata they were tagged with.
type OptogeneticRecord struct {
	Group            ExperimentalGroup
	Treatment        OptogeneticTreatment
	Source           StimulationSource
	StimulationTimes []float64
	Pulse            PulseParameters
	StimulusNotes    string
}
