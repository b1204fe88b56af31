package models

import "time"

// ConversionStatus is the terminal state of one session conversion.
type ConversionStatus string

const (
	StatusConverted ConversionStatus = "converted"
	StatusSkipped   ConversionStatus = "skipped"
	StatusFailed    ConversionStatus = "failed"
)

// ConversionResult reports the outcome of converting one session.
// Failures are carried as structured results, never as panics or
// uncaught errors, so a batch driver can continue and summarize.
type ConversionResult struct {
	Identity   SessionIdentity
	Status     ConversionStatus
	SkipReason string // set when Status == StatusSkipped
	OutputPath string // set when Status == StatusConverted
	Err        error  // set when Status == StatusFailed
	Duration   time.Duration
}

// BatchSummary aggregates the results of one dataset run.
type BatchSummary struct {
	Total     int
	Converted int
	Skipped   int
	Failed    int
	Duration  time.Duration
	Results   []ConversionResult
}

// Summarize tallies a result slice into a BatchSummary.
func Summarize(results []ConversionResult, duration time.Duration) BatchSummary {
	summary := BatchSummary{Total: len(results), Duration: duration, Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusConverted:
			summary.Converted++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}
	return summary
}
