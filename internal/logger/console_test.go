package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lernerlab/medconv/internal/models"
)

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "warn")

	log.LogDebug("hidden")
	log.LogInfo("also hidden")
	log.LogWarn("visible")
	log.LogError("also visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] visible")
	assert.Contains(t, out, "[ERROR] also visible")
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "nonsense")

	log.LogDebug("hidden")
	log.LogInfo("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogResult(t *testing.T) {
	identity := models.SessionIdentity{SubjectID: "96.259", Date: "04/18/19", StartTime: "10:41:42"}
	tests := []struct {
		name   string
		result models.ConversionResult
		want   string
	}{
		{
			name: "converted",
			result: models.ConversionResult{
				Identity:   identity,
				Status:     models.StatusConverted,
				OutputPath: "out/s1.nwb.json",
				Duration:   3 * time.Second,
			},
			want: "Converted 96.259 04/18/19 10:41:42 -> out/s1.nwb.json (3s)",
		},
		{
			name: "skipped",
			result: models.ConversionResult{
				Identity:   identity,
				Status:     models.StatusSkipped,
				SkipReason: "subject 96.259 is on the exclusion list",
			},
			want: "Skipped 96.259 04/18/19 10:41:42: subject 96.259 is on the exclusion list",
		},
		{
			name: "failed",
			result: models.ConversionResult{
				Identity: identity,
				Status:   models.StatusFailed,
				Err:      errors.New("boom"),
			},
			want: "[ERROR] Failed 96.259 04/18/19 10:41:42: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsoleLogger(&buf, "info").LogResult(tt.result)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

// Skip-list matches are expected exclusions: they must never log at
// error level.
func TestSkipsAreNotErrors(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleLogger(&buf, "info").LogResult(models.ConversionResult{
		Status:     models.StatusSkipped,
		SkipReason: "excluded",
	})
	assert.NotContains(t, buf.String(), "[ERROR]")
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")
	log.LogSummary(models.BatchSummary{
		Total:     10,
		Converted: 7,
		Skipped:   2,
		Failed:    1,
		Duration:  90 * time.Second,
	})

	out := buf.String()
	assert.Contains(t, out, "Total sessions: 10")
	assert.Contains(t, out, "Converted: 7")
	assert.Contains(t, out, "Skipped: 2")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Duration: 1m30s")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{3 * time.Hour, "3h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	log := NewConsoleLogger(nil, "info")
	log.LogInfo("nowhere")
	log.LogResult(models.ConversionResult{Status: models.StatusConverted})
	log.LogSummary(models.BatchSummary{})
}
