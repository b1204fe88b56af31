package models

// Controlled vocabulary of behavioral event stream names. The mapper
// only ever emits these; variable codes outside the selected dictionary
// are unused instrument channels and are dropped.
const (
	EventLeftNosePoke  = "left_nose_poke_times"
	EventRightNosePoke = "right_nose_poke_times"
	EventLeftReward    = "left_reward_times"
	EventRightReward   = "right_reward_times"
	EventFootshock     = "footshock_times"
	EventPortEntry     = "port_entry_times"
	EventPortDuration  = "duration_of_port_entry"
	EventStimulation   = "optogenetic_stimulation_times"
)

// NamedEventStream is an ordered sequence of timestamps (seconds from
// the session start) under a controlled-vocabulary name. Timestamps are
// monotonically non-decreasing except for documented equipment
// resolution artifacts, which are tolerated and never corrected.
type NamedEventStream struct {
	Name       string
	Timestamps []float64
}

// PortEntryInterval is one stay in the reward port. Onset + Duration may
// overlap the next onset due to sub-resolution equipment timing; this is
// accepted, not an error.
type PortEntryInterval struct {
	Onset    float64 `json:"onset"`    // seconds from session start
	Duration float64 `json:"duration"` // seconds
}
