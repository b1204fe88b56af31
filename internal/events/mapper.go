package events

import (
	"fmt"

	"github.com/lernerlab/medconv/internal/models"
)

// Mapped is the mapper's output for one session: the named event
// streams plus the paired port-entry intervals.
type Mapped struct {
	// Events holds every mapped stream except the port-entry pair, in
	// dictionary declaration order (deterministic across runs).
	Events []models.NamedEventStream

	// PortEntries pairs the nth entry time with the nth duration.
	// Empty when the session has no port-entry durations.
	PortEntries []models.PortEntryInterval

	// HasPortEntryDurations is false for sessions whose duration
	// channel recorded nothing; port entry times then appear in Events
	// as a bare stream instead.
	HasPortEntryDurations bool
}

// Map translates a raw variable table into named event streams using the
// dictionary selected by identity.MSN.
//
// Variable codes absent from the dictionary are dropped as unused
// instrument channels. A code declared in the dictionary but absent from
// the raw table produces no stream: the instrument only writes sections
// its program declares. When two codes declare the same event name, only
// the first declared stream is used. Timestamps are passed through
// verbatim, including the documented non-ascending equipment artifacts.
func Map(identity models.SessionIdentity, table models.RawVariableTable) (*Mapped, error) {
	program, err := LookupProgram(identity.MSN)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var portEntryTimes, portDurations []float64
	havePortEntries := false
	mapped := &Mapped{HasPortEntryDurations: true}

	for _, m := range program.Dictionary {
		values, recorded := table[m.Code]
		if !recorded || seen[m.Event] {
			continue
		}
		seen[m.Event] = true
		switch m.Event {
		case models.EventPortEntry:
			portEntryTimes = values
			havePortEntries = true
		case models.EventPortDuration:
			portDurations = values
		default:
			mapped.Events = append(mapped.Events, models.NamedEventStream{
				Name:       m.Event,
				Timestamps: values,
			})
		}
	}

	if !havePortEntries {
		return mapped, nil
	}

	if len(portDurations) == 0 {
		// Documented case: some sessions never recorded durations.
		// Surface the entries as a bare event stream.
		mapped.HasPortEntryDurations = false
		mapped.Events = append(mapped.Events, models.NamedEventStream{
			Name:       models.EventPortEntry,
			Timestamps: portEntryTimes,
		})
		return mapped, nil
	}

	if len(portEntryTimes) != len(portDurations) {
		return nil, &models.MalformedSessionError{
			Identity: identity,
			Message: fmt.Sprintf("port entry times (%d) and durations (%d) differ in length",
				len(portEntryTimes), len(portDurations)),
		}
	}
	mapped.PortEntries = make([]models.PortEntryInterval, len(portEntryTimes))
	for i := range portEntryTimes {
		mapped.PortEntries[i] = models.PortEntryInterval{
			Onset:    portEntryTimes[i],
			Duration: portDurations[i],
		}
	}
	return mapped, nil
}
