// Package nwb is the glue to the session-archive container format: it
// serializes one AlignedSessionRecord per session into the collaborator
// file. The exact on-disk schema beyond this container is the format
// library's responsibility, not the conversion core's.
package nwb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lernerlab/medconv/internal/events"
	"github.com/lernerlab/medconv/internal/models"
)

// File is the serialized session archive.
type File struct {
	Identifier         string    `json:"identifier"`
	SessionID          string    `json:"session_id"`
	SessionStartTime   time.Time `json:"session_start_time"`
	SessionDescription string    `json:"session_description"`
	SubjectID          string    `json:"subject_id"`
	ProgramName        string    `json:"program_name"`
	Box                string    `json:"box,omitempty"`

	Events    []EventSeries    `json:"events"`
	Intervals []IntervalSeries `json:"intervals,omitempty"`

	Acquisition []ContinuousSeries `json:"acquisition,omitempty"`
	TTLEpochs   []EventSeries      `json:"ttl_epochs,omitempty"`
	Stimulus    *StimulusSeries    `json:"stimulus,omitempty"`
}

// EventSeries is a named event-time series.
type EventSeries struct {
	Name       string    `json:"name"`
	Timestamps []float64 `json:"timestamps"`
}

// IntervalSeries is a named onset+duration series.
type IntervalSeries struct {
	Name      string                     `json:"name"`
	Intervals []models.PortEntryInterval `json:"intervals"`
}

// ContinuousSeries is a multi-channel continuous trace with its sample
// rate.
type ContinuousSeries struct {
	Name       string    `json:"name"`
	Rate       float64   `json:"rate"`
	Channels   int       `json:"channels"`
	Data       []float32 `json:"data"`
	Stitched   bool      `json:"stitched,omitempty"`
	SourcePath []string  `json:"source_folders,omitempty"`
}

// StimulusSeries is the optogenetic stimulation epoch series with its
// group metadata.
type StimulusSeries struct {
	Group            models.ExperimentalGroup    `json:"experimental_group"`
	Treatment        models.OptogeneticTreatment `json:"optogenetic_treatment"`
	Source           models.StimulationSource    `json:"source"`
	StimulationTimes []float64                   `json:"stimulation_times"`
	Pulse            models.PulseParameters      `json:"pulse_parameters"`
	Notes            string                      `json:"stimulus_notes,omitempty"`
}

// Writer emits one archive file per session under OutputDir.
type Writer struct {
	OutputDir string
	Overwrite bool
}

// NewWriter returns a Writer rooted at outputDir.
func NewWriter(outputDir string, overwrite bool) *Writer {
	return &Writer{OutputDir: outputDir, Overwrite: overwrite}
}

// Write serializes record under the given session id and returns the
// output path. The file is written whole via a temp file and rename so a
// crashed run never leaves a half-written archive.
func (w *Writer) Write(record *models.AlignedSessionRecord, sessionID string) (string, error) {
	file, err := build(record, sessionID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outPath := filepath.Join(w.OutputDir, sessionID+".nwb.json")
	if !w.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return "", fmt.Errorf("output file already exists: %s", outPath)
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize session archive: %w", err)
	}
	tmp, err := os.CreateTemp(w.OutputDir, "."+sessionID+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write session archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close session archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return "", fmt.Errorf("failed to finalize session archive: %w", err)
	}
	return outPath, nil
}

// build converts the aligned record into the archive layout.
func build(record *models.AlignedSessionRecord, sessionID string) (*File, error) {
	description, err := events.Describe(record.Identity.MSN)
	if err != nil {
		return nil, err
	}

	file := &File{
		Identifier:         uuid.NewString(),
		SessionID:          sessionID,
		SessionStartTime:   record.Start,
		SessionDescription: description,
		SubjectID:          record.Identity.SubjectID,
		ProgramName:        record.Identity.MSN,
		Box:                record.Identity.Box,
	}

	for _, stream := range record.Events {
		file.Events = append(file.Events, EventSeries{Name: stream.Name, Timestamps: stream.Timestamps})
	}
	if record.HasPortEntryDurations && len(record.PortEntries) > 0 {
		file.Intervals = append(file.Intervals, IntervalSeries{
			Name:      "reward_port_intervals",
			Intervals: record.PortEntries,
		})
	}

	if photo := record.Photometry; photo != nil {
		for _, stream := range []string{models.StreamSiteA465, models.StreamSiteA405, models.StreamSiteB465, models.StreamSiteB405} {
			samples, ok := photo.Raw[stream]
			if !ok {
				continue
			}
			file.Acquisition = append(file.Acquisition, ContinuousSeries{
				Name:       stream,
				Rate:       photo.SampleRate,
				Channels:   1,
				Data:       samples,
				Stitched:   photo.Stitched(),
				SourcePath: photo.FolderPaths,
			})
		}
		if photo.Demodulated != nil {
			file.Acquisition = append(file.Acquisition, ContinuousSeries{
				Name:     models.StreamDemod,
				Rate:     photo.SampleRate,
				Channels: models.DemodChannels,
				Data:     photo.Demodulated,
				Stitched: photo.Stitched(),
			})
		}
		if photo.Modulated != nil {
			file.Acquisition = append(file.Acquisition, ContinuousSeries{
				Name:     models.StreamMod,
				Rate:     photo.SampleRate,
				Channels: models.ModChannels,
				Data:     photo.Modulated,
				Stitched: photo.Stitched(),
			})
		}
		for name, timestamps := range photo.TTLs {
			file.TTLEpochs = append(file.TTLEpochs, EventSeries{Name: name, Timestamps: timestamps})
		}
		sortEventSeries(file.TTLEpochs)
	}

	if ogen := record.Optogenetics; ogen != nil {
		file.Stimulus = &StimulusSeries{
			Group:            ogen.Group,
			Treatment:        ogen.Treatment,
			Source:           ogen.Source,
			StimulationTimes: ogen.StimulationTimes,
			Pulse:            ogen.Pulse,
			Notes:            ogen.StimulusNotes,
		}
	}
	return file, nil
}

// sortEventSeries orders series by name so output is deterministic
// across runs.
func sortEventSeries(series []EventSeries) {
	sort.Slice(series, func(i, j int) bool { return series[i].Name < series[j].Name })
}
