package opto

import (
	"errors"
	"testing"

	"github.com/lernerlab/medconv/internal/models"
)

func identity(msn string) models.SessionIdentity {
	return models.SessionIdentity{
		SubjectID: "266.477",
		Date:      "10/25/21",
		StartTime: "10:44:00",
		MSN:       msn,
	}
}

func TestResolvePairedWithReward(t *testing.T) {
	rewards := []float64{12.3, 45.0, 90.1}
	record, err := Resolve(identity("FR1_LEFT_STIM"), models.GroupDLSExcitatory, models.TreatmentChR2, rewards, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if record.Source != models.SourcePairedWithReward {
		t.Errorf("source = %s, want %s", record.Source, models.SourcePairedWithReward)
	}
	if len(record.StimulationTimes) != 3 || record.StimulationTimes[0] != 12.3 {
		t.Errorf("stimulation times = %v, want the reward times verbatim", record.StimulationTimes)
	}
	if record.Pulse.Frequency != 20.0 || record.Pulse.Duration != 1.0 {
		t.Errorf("pulse = %+v, want the DLS-Excitatory train parameters", record.Pulse)
	}

	// The returned slice must be a copy, not an alias.
	record.StimulationTimes[0] = 0
	if rewards[0] != 12.3 {
		t.Error("Resolve aliased the caller's reward slice")
	}
}

func TestResolveScrambledUsesDedicatedChannel(t *testing.T) {
	stim := []float64{5.0, 15.0}
	record, err := Resolve(identity("RI60_LEFT_SCRAM"), models.GroupDMSInhibitory, models.TreatmentNpHRScrambled, []float64{1.0}, stim)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if record.Source != models.SourceDedicatedChannel {
		t.Errorf("source = %s, want %s", record.Source, models.SourceDedicatedChannel)
	}
	if len(record.StimulationTimes) != 2 || record.StimulationTimes[1] != 15.0 {
		t.Errorf("stimulation times = %v, want the dedicated channel verbatim", record.StimulationTimes)
	}
	// Inhibitory groups stimulate with long low-frequency pulses.
	if record.Pulse.Frequency != 1.0 || record.Pulse.PulseWidth != 1.0 {
		t.Errorf("pulse = %+v, want the DMS-Inhibitory train parameters", record.Pulse)
	}
}

func TestResolveScrambledWithoutChannelIsMalformed(t *testing.T) {
	_, err := Resolve(identity("FR1_LEFT_SCRAM"), models.GroupDLSExcitatory, models.TreatmentChR2Scrambled, nil, nil)
	var me *models.MalformedSessionError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedSessionError, got %v", err)
	}
}

// A paired-condition session where no reward was earned delivered no
// stimulation: it carries no stimulus series rather than an empty one.
func TestResolvePairedWithoutRewards(t *testing.T) {
	record, err := Resolve(identity("FR1_LEFT_STIM"), models.GroupDLSExcitatory, models.TreatmentChR2, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if record != nil {
		t.Errorf("record = %+v, want nil for a rewardless paired session", record)
	}
}

func TestResolveNonStimulationProgram(t *testing.T) {
	record, err := Resolve(identity("RR20_Left"), models.GroupDLSExcitatory, models.TreatmentChR2, []float64{1.0}, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if record != nil {
		t.Error("expected nil record for a non-stimulation program")
	}
}

func TestResolveUnknownGroup(t *testing.T) {
	_, err := Resolve(identity("FR1_LEFT_STIM"), models.ExperimentalGroup("VTA-Mystery"), models.TreatmentChR2, nil, nil)
	var ue *models.UnknownGroupError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownGroupError, got %v", err)
	}
}

func TestGroupMetadataWavelengths(t *testing.T) {
	tests := []struct {
		group models.ExperimentalGroup
		want  float64
	}{
		{models.GroupDLSExcitatory, 460.0},
		{models.GroupDMSExcitatory, 460.0},
		{models.GroupDMSInhibitory, 625.0},
	}
	for _, tt := range tests {
		t.Run(string(tt.group), func(t *testing.T) {
			meta, err := LookupGroup(tt.group)
			if err != nil {
				t.Fatalf("LookupGroup returned error: %v", err)
			}
			if meta.ExcitationLambda != tt.want {
				t.Errorf("lambda = %v, want %v", meta.ExcitationLambda, tt.want)
			}
		})
	}
}
