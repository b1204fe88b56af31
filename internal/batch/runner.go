package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/lernerlab/medconv/internal/logger"
	"github.com/lernerlab/medconv/internal/models"
	"github.com/lernerlab/medconv/internal/nwb"
	"github.com/lernerlab/medconv/internal/session"
)

// lockFileName is created inside the output directory for the duration
// of a run so two batch invocations cannot interleave their outputs.
const lockFileName = ".medconv.lock"

// Runner converts a set of discovered targets with bounded parallelism.
// A failed session never aborts its siblings: every target yields a
// ConversionResult, and failures additionally leave an ERROR_<id>.txt
// breadcrumb next to the outputs.
type Runner struct {
	Aggregator *session.Aggregator
	Writer     *nwb.Writer
	Logger     logger.Logger
	MaxWorkers int
}

// NewRunner wires a runner over an aggregator and writer. maxWorkers
// values below 1 are clamped to 1.
func NewRunner(agg *session.Aggregator, writer *nwb.Writer, log logger.Logger, maxWorkers int) *Runner {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Runner{
		Aggregator: agg,
		Writer:     writer,
		Logger:     log,
		MaxWorkers: maxWorkers,
	}
}

// Run converts every target and returns the batch summary. The output
// directory is locked for the duration; a second concurrent run fails
// fast instead of clobbering the first.
func (r *Runner) Run(ctx context.Context, targets []Target) (models.BatchSummary, error) {
	if err := os.MkdirAll(r.Writer.OutputDir, 0o755); err != nil {
		return models.BatchSummary{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(r.Writer.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return models.BatchSummary{}, fmt.Errorf("failed to lock output directory: %w", err)
	}
	if !locked {
		return models.BatchSummary{}, fmt.Errorf("output directory %s is locked by another run", r.Writer.OutputDir)
	}
	defer lock.Unlock()

	started := time.Now()
	r.Logger.LogInfo(fmt.Sprintf("Converting %d sessions with %d workers", len(targets), r.MaxWorkers))

	results := make([]models.ConversionResult, len(targets))
	progress := logger.NewProgressTracker(len(targets))
	sem := make(chan struct{}, r.MaxWorkers)
	var wg sync.WaitGroup
	for i, target := range targets {
		if ctx.Err() != nil {
			results[i] = canceledResult(target, ctx.Err())
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, target Target) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.convertOne(target)
			r.Logger.LogResult(results[i])
			r.Logger.LogDebug(progress.Increment())
		}(i, target)
	}
	wg.Wait()

	summary := models.Summarize(results, time.Since(started))
	r.Logger.LogSummary(summary)
	if err := writeReport(r.Writer.OutputDir, targets, results, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// convertOne runs the full pipeline for a single target. Panics are
// demoted to failed results so one corrupt input cannot take down the
// run.
func (r *Runner) convertOne(target Target) (result models.ConversionResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = r.failed(target, start, fmt.Errorf("panic during conversion: %v", rec))
		}
	}()

	record, skip, err := r.Aggregator.Aggregate(target.Request)
	identity := requestIdentity(target)
	switch {
	case err != nil:
		return r.failed(target, start, err)
	case skip != nil:
		return models.ConversionResult{
			Identity:   identity,
			Status:     models.StatusSkipped,
			SkipReason: skip.Reason,
			Duration:   time.Since(start),
		}
	}

	outputPath, err := r.Writer.Write(record, target.SessionID)
	if err != nil {
		return r.failed(target, start, err)
	}
	return models.ConversionResult{
		Identity:   record.Identity,
		Status:     models.StatusConverted,
		OutputPath: outputPath,
		Duration:   time.Since(start),
	}
}

// failed builds a failed result and drops the error breadcrumb file.
func (r *Runner) failed(target Target, start time.Time, err error) models.ConversionResult {
	r.writeErrorFile(target, err)
	return models.ConversionResult{
		Identity: requestIdentity(target),
		Status:   models.StatusFailed,
		Err:      err,
		Duration: time.Since(start),
	}
}

// writeErrorFile records a failed session's request and error next to
// the outputs so a run can be triaged without re-reading the console.
func (r *Runner) writeErrorFile(target Target, convErr error) {
	path := filepath.Join(r.Writer.OutputDir, "ERROR_"+target.SessionID+".txt")
	body := fmt.Sprintf("session:   %s\nfile:      %s\nspec:      %s\nerror:     %v\n",
		target.SessionID, target.Request.BehaviorFile, target.Request.Spec, convErr)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		r.Logger.LogWarn(fmt.Sprintf("Failed to write error file for %s: %v", target.SessionID, err))
	}
}

func canceledResult(target Target, err error) models.ConversionResult {
	return models.ConversionResult{
		Identity: requestIdentity(target),
		Status:   models.StatusFailed,
		Err:      err,
	}
}

// requestIdentity reconstructs the best-known identity for results
// whose session never produced an aligned record.
func requestIdentity(target Target) models.SessionIdentity {
	return models.SessionIdentity{
		SubjectID: target.Request.SubjectID,
		Date:      target.Request.Spec.Date,
		StartTime: target.Request.Spec.StartTime,
		MSN:       target.Request.Spec.MSN,
		Box:       target.Request.Spec.Box,
	}
}
