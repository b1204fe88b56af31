package opto

import (
	"github.com/lernerlab/medconv/internal/models"
)

// Resolve derives the stimulation timestamps for one session.
//
// Paired condition: the timestamps are the reward timestamps verbatim,
// one pulse train beginning at each reward. Scrambled condition: the
// timestamps come from the dedicated stimulation channel and the reward
// stream is irrelevant. The mode is fixed by the program name; pulse
// parameters come solely from the group metadata table.
//
// Sessions whose program is not a stimulation program resolve to nil
// with no error (behavior-only optogenetic cohort days are normal), as
// do paired-condition sessions in which no reward was ever earned.
func Resolve(
	identity models.SessionIdentity,
	group models.ExperimentalGroup,
	treatment models.OptogeneticTreatment,
	rewardTimes []float64,
	stimChannel []float64,
) (*models.OptogeneticRecord, error) {
	source, ok := StimulationProgram(identity.MSN)
	if !ok {
		return nil, nil
	}
	meta, err := LookupGroup(group)
	if err != nil {
		return nil, err
	}

	var stimTimes []float64
	switch source {
	case models.SourcePairedWithReward:
		if len(rewardTimes) == 0 {
			// No rewards were earned, so no stimulation was delivered;
			// the session carries no stimulus series.
			return nil, nil
		}
		stimTimes = append([]float64{}, rewardTimes...)
	case models.SourceDedicatedChannel:
		if stimChannel == nil {
			return nil, &models.MalformedSessionError{
				Identity: identity,
				Message:  "scrambled-condition session recorded no stimulation channel",
			}
		}
		stimTimes = append([]float64{}, stimChannel...)
	}

	return &models.OptogeneticRecord{
		Group:            group,
		Treatment:        treatment,
		Source:           source,
		StimulationTimes: stimTimes,
		Pulse:            meta.Pulse,
		StimulusNotes:    stimulusNotes[treatment],
	}, nil
}
