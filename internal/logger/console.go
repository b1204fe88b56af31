// Package logger provides logging implementations for medconv runs.
//
// The logger offers structured progress logging at the session and
// batch-summary levels. Implementations are thread-safe: batch workers
// log concurrently.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/lernerlab/medconv/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the interface the batch driver logs through.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogResult(result models.ConversionResult)
	LogSummary(summary models.BatchSummary)
}

// ConsoleLogger logs conversion progress to a writer with timestamps and
// thread safety. All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided
// io.Writer. If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor { // honors NO_COLOR
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and
// validates it, defaulting to "info".
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) { cl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) { cl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("ERROR", message) }

// logWithLevel logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		cl.writer.Write([]byte(fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)))
		return
	}
	cl.writer.Write([]byte(fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)))
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogResult logs the outcome of one session conversion. Converted and
// failed sessions log at info/error level; skip-list matches log at
// informational level only, because they are expected exclusions.
func (cl *ConsoleLogger) LogResult(result models.ConversionResult) {
	if cl.writer == nil {
		return
	}
	session := fmt.Sprintf("%s %s %s", result.Identity.SubjectID, result.Identity.Date, result.Identity.StartTime)
	switch result.Status {
	case models.StatusConverted:
		cl.logWithLevel("INFO", fmt.Sprintf("Converted %s -> %s (%s)", session, result.OutputPath, formatDuration(result.Duration)))
	case models.StatusSkipped:
		cl.logWithLevel("INFO", fmt.Sprintf("Skipped %s: %s", session, result.SkipReason))
	case models.StatusFailed:
		cl.logWithLevel("ERROR", fmt.Sprintf("Failed %s: %v", session, result.Err))
	}
}

// LogSummary logs the batch run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(summary models.BatchSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var output string
	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Conversion Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Total sessions: %d\n", ts, summary.Total)
		output += fmt.Sprintf("[%s] %s\n", ts, color.New(color.FgGreen).Sprintf("Converted: %d", summary.Converted))
		output += fmt.Sprintf("[%s] Skipped: %d\n", ts, summary.Skipped)
		if summary.Failed > 0 {
			output += fmt.Sprintf("[%s] %s\n", ts, color.New(color.FgRed).Sprintf("Failed: %d", summary.Failed))
		} else {
			output += fmt.Sprintf("[%s] Failed: %d\n", ts, summary.Failed)
		}
	} else {
		output = fmt.Sprintf("[%s] === Conversion Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Total sessions: %d\n", ts, summary.Total)
		output += fmt.Sprintf("[%s] Converted: %d\n", ts, summary.Converted)
		output += fmt.Sprintf("[%s] Skipped: %d\n", ts, summary.Skipped)
		output += fmt.Sprintf("[%s] Failed: %d\n", ts, summary.Failed)
	}
	output += fmt.Sprintf("[%s] Duration: %s\n", ts, formatDuration(summary.Duration))
	cl.writer.Write([]byte(output))
}

// timestamp returns the current time formatted as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (n *NoOpLogger) LogTrace(message string)                   {}
func (n *NoOpLogger) LogDebug(message string)                   {}
func (n *NoOpLogger) LogInfo(message string)                    {}
func (n *NoOpLogger) LogWarn(message string)                    {}
func (n *NoOpLogger) LogError(message string)                   {}
func (n *NoOpLogger) LogResult(result models.ConversionResult)  {}
func (n *NoOpLogger) LogSummary(summary models.BatchSummary)    {}
