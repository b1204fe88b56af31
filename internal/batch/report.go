package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lernerlab/medconv/internal/models"
)

// ReportFileName is the machine-readable run report written into the
// output directory after every batch run.
const ReportFileName = "conversion_report.yaml"

type report struct {
	Total     int             `yaml:"total"`
	Converted int             `yaml:"converted"`
	Skipped   int             `yaml:"skipped"`
	Failed    int             `yaml:"failed"`
	Duration  string          `yaml:"duration"`
	Sessions  []sessionReport `yaml:"sessions"`
}

type sessionReport struct {
	SessionID  string `yaml:"session_id"`
	Subject    string `yaml:"subject"`
	Date       string `yaml:"date"`
	Program    string `yaml:"program,omitempty"`
	Status     string `yaml:"status"`
	SkipReason string `yaml:"skip_reason,omitempty"`
	Output     string `yaml:"output,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// writeReport persists the per-session outcomes so a run can be audited
// after the console scrollback is gone.
func writeReport(outputDir string, targets []Target, results []models.ConversionResult, summary models.BatchSummary) error {
	rep := report{
		Total:     summary.Total,
		Converted: summary.Converted,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Duration:  summary.Duration.Round(time.Millisecond).String(),
		Sessions:  make([]sessionReport, 0, len(results)),
	}
	for i, res := range results {
		sr := sessionReport{
			SessionID:  targets[i].SessionID,
			Subject:    res.Identity.SubjectID,
			Date:       res.Identity.Date,
			Program:    res.Identity.MSN,
			Status:     string(res.Status),
			SkipReason: res.SkipReason,
			Output:     res.OutputPath,
		}
		if res.Err != nil {
			sr.Error = res.Err.Error()
		}
		rep.Sessions = append(rep.Sessions, sr)
	}

	data, err := yaml.Marshal(&rep)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	path := filepath.Join(outputDir, ReportFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}
