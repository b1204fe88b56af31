package logger

import (
	"fmt"
	"strings"
	"sync"
)

const progressBarWidth = 20

// ProgressTracker renders a batch progress line as sessions complete.
// Safe for concurrent use by batch workers.
type ProgressTracker struct {
	total     int
	completed int
	mutex     sync.Mutex
}

// NewProgressTracker creates a tracker for total sessions.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total}
}

// Increment records one completed session and returns the rendered
// progress line, e.g. "[==========----------] 12/24 sessions (50%)".
func (p *ProgressTracker) Increment() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.completed < p.total {
		p.completed++
	}
	if p.total == 0 {
		return "[--------------------] 0/0 sessions (0%)"
	}
	filled := p.completed * progressBarWidth / p.total
	percent := p.completed * 100 / p.total
	bar := strings.Repeat("=", filled) + strings.Repeat("-", progressBarWidth-filled)
	return fmt.Sprintf("[%s] %d/%d sessions (%d%%)", bar, p.completed, p.total, percent)
}

// Completed returns the number of sessions recorded so far.
func (p *ProgressTracker) Completed() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.completed
}
