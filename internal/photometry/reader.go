// Package photometry locates and reads fiber-photometry recording
// folders and matches them to behavioral sessions.
//
// A recording folder is named Photo_<subject>-<YYMMDD>-<HHMMSS> (the
// subject id's dots written as underscores) and contains the lab's
// export layout:
//
//	fs            sampling rate in Hz, plain text
//	<name>.f32    raw little-endian float32 samples per stream
//	<name>.ttl    TTL epoch timestamps in seconds, one per line
//
// Streams are Dv1A/Dv2A/Dv3B/Dv4B (465/405 bands for two sites) plus the
// optional Fi1d demodulated and Fi1r modulated combined streams.
package photometry

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lernerlab/medconv/internal/models"
)

// FolderPrefix marks a photometry recording folder.
const FolderPrefix = "Photo_"

const (
	folderDateLayout = "060102" // YYMMDD in folder names
	folderTimeLayout = "150405" // HHMMSS in folder names
)

// FolderName holds the fields embedded in a recording folder's name.
type FolderName struct {
	SubjectID string // dots restored, zero padding preserved
	Date      string // MM/DD/YY
	Time      string // HH:MM:SS
}

// ParseFolderName extracts the subject id and recording timestamp from a
// folder base name like "Photo_95_259-190417-160333".
func ParseFolderName(name string) (FolderName, error) {
	if !strings.HasPrefix(name, FolderPrefix) {
		return FolderName{}, &models.ParseError{Source: name, Message: "not a photometry folder name"}
	}
	parts := strings.Split(strings.TrimPrefix(name, FolderPrefix), "-")
	if len(parts) != 3 {
		return FolderName{}, &models.ParseError{Source: name, Message: "expected Photo_<subject>-<YYMMDD>-<HHMMSS>"}
	}
	date, err := time.Parse(folderDateLayout, parts[1])
	if err != nil {
		return FolderName{}, &models.ParseError{Source: name, Message: "unparseable recording date", Err: err}
	}
	clock, err := time.Parse(folderTimeLayout, parts[2])
	if err != nil {
		return FolderName{}, &models.ParseError{Source: name, Message: "unparseable recording time", Err: err}
	}
	return FolderName{
		SubjectID: strings.ReplaceAll(parts[0], "_", "."),
		Date:      date.Format(models.DateLayout),
		Time:      clock.Format(models.TimeLayout),
	}, nil
}

// ReadOptions adjust folder ingestion. Every option is a caller-supplied,
// session-specific override from the documented exception list; nothing
// here is ever auto-detected.
type ReadOptions struct {
	// TruncateAt caps ingestion at an upper time bound in seconds.
	// It is the documented recovery path for folders with malformed
	// trailing data. Zero means read everything.
	TruncateAt float64

	// DropDemodulated ignores the Fi1d stream even when present, for
	// the documented recordings whose demodulated outputs are unusable.
	DropDemodulated bool
}

// ReadFolder loads one recording folder into a PhotometrySessionRecord.
// The folder is exclusively read, never mutated.
func ReadFolder(path string, opts ReadOptions) (*models.PhotometrySessionRecord, error) {
	name, err := ParseFolderName(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	rate, err := readSampleRate(filepath.Join(path, "fs"))
	if err != nil {
		return nil, err
	}

	maxSamples := -1 // unbounded
	if opts.TruncateAt > 0 {
		maxSamples = int(opts.TruncateAt * rate)
	}

	record := &models.PhotometrySessionRecord{
		SubjectID:   name.SubjectID,
		StartDate:   name.Date,
		StartTime:   name.Time,
		FolderPaths: []string{path},
		SampleRate:  rate,
		Raw:         make(map[string][]float32),
		TTLs:        make(map[string][]float64),
	}

	for _, stream := range []string{models.StreamSiteA465, models.StreamSiteA405, models.StreamSiteB465, models.StreamSiteB405} {
		samples, err := readStream(filepath.Join(path, stream+".f32"), maxSamples)
		if err != nil {
			return nil, err
		}
		if samples != nil {
			record.Raw[stream] = samples
		}
	}

	if !opts.DropDemodulated {
		demodMax := maxSamples
		if demodMax >= 0 {
			demodMax *= models.DemodChannels
		}
		record.Demodulated, err = readStream(filepath.Join(path, models.StreamDemod+".f32"), demodMax)
		if err != nil {
			return nil, err
		}
	}
	modMax := maxSamples
	if modMax >= 0 {
		modMax *= models.ModChannels
	}
	record.Modulated, err = readStream(filepath.Join(path, models.StreamMod+".f32"), modMax)
	if err != nil {
		return nil, err
	}

	if len(record.Raw) == 0 && record.Demodulated == nil && record.Modulated == nil {
		return nil, &models.ParseError{Source: path, Message: "no waveform streams in folder"}
	}

	if err := readTTLs(path, opts.TruncateAt, record.TTLs); err != nil {
		return nil, err
	}
	return record, nil
}

// readSampleRate reads the plain-text sampling rate file.
func readSampleRate(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &models.ParseError{Source: path, Message: "missing sampling rate file", Err: err}
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || rate <= 0 || math.IsNaN(rate) {
		return 0, &models.ParseError{Source: path, Message: fmt.Sprintf("invalid sampling rate %q", strings.TrimSpace(string(data))), Err: err}
	}
	return rate, nil
}

// readStream reads a raw float32 stream file. A missing file returns
// (nil, nil): optional streams are simply absent. Trailing bytes that do
// not form a whole sample are malformed data, fatal unless the caller
// bounded the read (maxSamples >= 0), in which case the readable prefix
// up to the bound is returned.
func readStream(path string, maxSamples int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &models.ParseError{Source: path, Message: "failed to read stream", Err: err}
	}
	whole := len(data) / 4
	if len(data)%4 != 0 && maxSamples < 0 {
		return nil, &models.ParseError{
			Source:  path,
			Message: fmt.Sprintf("malformed trailing data: %d stray bytes (supply a truncation bound to recover)", len(data)%4),
		}
	}
	n := whole
	if maxSamples >= 0 && maxSamples < n {
		n = maxSamples
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// readTTLs loads every .ttl epoch file in the folder. A truncation bound
// drops triggers past the bound, keeping the epochs consistent with the
// truncated waveforms.
func readTTLs(folder string, truncateAt float64, into map[string][]float64) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("failed to list folder %s: %w", folder, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ttl") {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		timestamps, err := readTTLFile(path, truncateAt)
		if err != nil {
			return err
		}
		into[strings.TrimSuffix(entry.Name(), ".ttl")] = timestamps
	}
	return nil
}

func readTTLFile(path string, truncateAt float64) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.ParseError{Source: path, Message: "failed to open TTL file", Err: err}
	}
	defer f.Close()

	timestamps := []float64{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ts, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, &models.ParseError{Source: path, Line: lineNo, Message: "invalid TTL timestamp", Err: err}
		}
		if truncateAt > 0 && ts > truncateAt {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	if err := scanner.Err(); err != nil {
		return nil, &models.ParseError{Source: path, Line: lineNo, Message: "read failed", Err: err}
	}
	return timestamps, nil
}

// Stitch concatenates a restart-and-resume folder pair into one record:
// all waveforms end-to-end, the second segment's TTL timestamps shifted
// so the resumed recording continues one sample interval after the first
// segment's final timestamp.
func Stitch(first, second *models.PhotometrySessionRecord) (*models.PhotometrySessionRecord, error) {
	if first.SampleRate != second.SampleRate {
		return nil, &models.ParseError{
			Source:  second.FolderPaths[0],
			Message: fmt.Sprintf("sample rate %g does not match first segment's %g", second.SampleRate, first.SampleRate),
		}
	}

	stitched := &models.PhotometrySessionRecord{
		SubjectID:   first.SubjectID,
		StartDate:   first.StartDate,
		StartTime:   first.StartTime,
		FolderPaths: append(append([]string{}, first.FolderPaths...), second.FolderPaths...),
		SampleRate:  first.SampleRate,
		Raw:         make(map[string][]float32),
		TTLs:        make(map[string][]float64),
	}

	segmentSamples, err := segmentSampleCount(first)
	if err != nil {
		return nil, err
	}
	for stream, samples := range first.Raw {
		stitched.Raw[stream] = append(append([]float32{}, samples...), second.Raw[stream]...)
	}
	if first.Demodulated != nil {
		stitched.Demodulated = append(append([]float32{}, first.Demodulated...), second.Demodulated...)
	}
	if first.Modulated != nil {
		stitched.Modulated = append(append([]float32{}, first.Modulated...), second.Modulated...)
	}

	// The first sample of the resumed segment lands one interval after
	// the last timestamp of the first segment: offset = L1 / fs.
	offset := float64(segmentSamples) / first.SampleRate
	for name, timestamps := range first.TTLs {
		stitched.TTLs[name] = append([]float64{}, timestamps...)
	}
	for name, timestamps := range second.TTLs {
		for _, ts := range timestamps {
			stitched.TTLs[name] = append(stitched.TTLs[name], ts+offset)
		}
	}
	return stitched, nil
}

// segmentSampleCount returns the per-channel sample count shared by all
// of a segment's waveform streams. Streams that disagree in length mean
// the recording is corrupted, not something stitching may paper over.
func segmentSampleCount(r *models.PhotometrySessionRecord) (int, error) {
	lengths := make(map[string]int)
	for stream, samples := range r.Raw {
		lengths[stream] = len(samples)
	}
	if r.Demodulated != nil {
		lengths[models.StreamDemod] = len(r.Demodulated) / models.DemodChannels
	}
	if r.Modulated != nil {
		lengths[models.StreamMod] = len(r.Modulated) / models.ModChannels
	}

	names := make([]string, 0, len(lengths))
	for name := range lengths {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for i, name := range names {
		if i == 0 {
			count = lengths[name]
			continue
		}
		if lengths[name] != count {
			return 0, &models.ParseError{
				Source: r.FolderPaths[0],
				Message: fmt.Sprintf("waveform streams disagree in length (%s has %d samples, %s has %d)",
					names[0], count, name, lengths[name]),
			}
		}
	}
	return count, nil
}
