package worker

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress is a snapshot of a run, safe to hand to other goroutines.
type Progress struct {
	RunID     string        `json:"run_id"`
	Output    string        `json:"output"`
	Cursor    int           `json:"cursor"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Corrupted int           `json:"corrupted"`
	Skipped   int           `json:"skipped"`
	Failures  int           `json:"failures"`
	Running   bool          `json:"running"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

type progressTracker struct {
	mu       sync.RWMutex
	progress Progress
	now      func() time.Time
	out      io.Writer
}

func newProgressTracker(out io.Writer, now func() time.Time) *progressTracker {
	if now == nil {
		now = time.Now
	}
	return &progressTracker{out: out, now: now}
}

func (tracker *progressTracker) start(runID, output string, cursor, total int) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.progress = Progress{
		RunID:     runID,
		Output:    output,
		Cursor:    cursor,
		Total:     total,
		Running:   true,
		StartedAt: tracker.now(),
	}
}

func (tracker *progressTracker) update(apply func(progress *Progress)) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	apply(&tracker.progress)
}

func (tracker *progressTracker) snapshot() Progress {
	tracker.mu.RLock()
	defer tracker.mu.RUnlock()
	progress := tracker.progress
	if progress.Running {
		progress.Elapsed = tracker.now().Sub(progress.StartedAt)
	}
	return progress
}

// printStatus refreshes the status line in place.
func (tracker *progressTracker) printStatus(index int) {
	if tracker.out == nil {
		return
	}
	progress := tracker.snapshot()
	_, _ = fmt.Fprintf(tracker.out, "\rprocessing sentence %d / %d time elapsed: %.2f",
		index, progress.Total, progress.Elapsed.Seconds())
}

func (tracker *progressTracker) printFailure(err error) {
	if tracker.out == nil {
		return
	}
	_, _ = fmt.Fprintf(tracker.out, "\nUnexpected error: %v\n", err)
}

func (tracker *progressTracker) finish() {
	tracker.mu.Lock()
	tracker.progress.Elapsed = tracker.now().Sub(tracker.progress.StartedAt)
	tracker.progress.Running = false
	tracker.mu.Unlock()
	if tracker.out != nil {
		_, _ = fmt.Fprintln(tracker.out)
	}
}
