package models

import "time"

// AlignedSessionRecord is the terminal entity of one conversion: the
// behavioral event streams plus zero-or-one photometry record and
// zero-or-one optogenetic record, all referenced to a single identity
// and a single wall-clock start time used as the common time origin.
type AlignedSessionRecord struct {
	Identity SessionIdentity
	Start    time.Time

	Events      []NamedEventStream
	PortEntries []PortEntryInterval

	// HasPortEntryDurations is false for the documented sessions whose
	// duration channel was never recorded; port entries are then
	// surfaced as a bare event stream instead of intervals.
	HasPortEntryDurations bool

	Photometry   *PhotometrySessionRecord
	Optogenetics *OptogeneticRecord
}

// Event returns the named stream and whether it is present.
func (r *AlignedSessionRecord) Event(name string) (NamedEventStream, bool) {
	for _, s := range r.Events {
		if s.Name == name {
			return s, true
		}
	}
	return NamedEventStream{}, false
}
