package models

// Raw photometry stream names as exported by the acquisition rig.
// Site A carries the 465 nm signal band and 405 nm isosbestic band for
// the first fiber, site B the same pair for the second fiber.
const (
	StreamSiteA465 = "Dv1A"
	StreamSiteA405 = "Dv2A"
	StreamSiteB465 = "Dv3B"
	StreamSiteB405 = "Dv4B"
	StreamDemod    = "Fi1d" // demodulated responses, 4 interleaved channels
	StreamMod      = "Fi1r" // modulated responses, 2 interleaved channels
)

// DemodChannels and ModChannels are the interleave factors of the
// combined streams.
const (
	DemodChannels = 4
	ModChannels   = 2
)

// PhotometrySessionRecord holds the waveforms and TTL epochs of one
// photometry recording, possibly stitched from two source folders when
// the recording was interrupted and resumed. Source folders are
// exclusively read, never mutated.
type PhotometrySessionRecord struct {
	SubjectID   string
	StartDate   string // MM/DD/YY, from the folder name
	StartTime   string // HH:MM:SS, from the folder name
	FolderPaths []string

	SampleRate float64 // Hz, shared by all waveform streams

	// Raw holds the per-band waveforms keyed by stream name
	// (Dv1A/Dv2A/Dv3B/Dv4B).
	Raw map[string][]float32

	// Demodulated holds the Fi1d stream (4 interleaved channels);
	// nil for recordings captured without demodulated outputs.
	Demodulated []float32

	// Modulated holds the Fi1r stream (2 interleaved channels); nil
	// when absent.
	Modulated []float32

	// TTLs maps epoch channel names to their trigger timestamps in
	// seconds. A side's channel being absent is normal whenever the
	// behavioral stream for that side is empty.
	TTLs map[string][]float64
}

// Stitched reports whether the record was concatenated from a
// restart-and-resume folder pair.
func (r *PhotometrySessionRecord) Stitched() bool {
	return len(r.FolderPaths) > 1
}

// HasTTL reports whether the named epoch channel was recorded.
func (r *PhotometrySessionRecord) HasTTL(name string) bool {
	_, ok := r.TTLs[name]
	return ok
}
