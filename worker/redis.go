package worker

import (
	"context"
	"fmt"
	"github.com/hoytnotlit/ltr-project/tasks"
	"time"
)

type statusTransactions interface {
	onRunStarted(ctx context.Context, progress Progress) error
	onProgress(ctx context.Context, progress Progress) error
	onRunFinished(ctx context.Context, progress Progress, runErr error) error
}

type noStatus struct{}

func (noStatus) onRunStarted(context.Context, Progress) error         { return nil }
func (noStatus) onProgress(context.Context, Progress) error           { return nil }
func (noStatus) onRunFinished(context.Context, Progress, error) error { return nil }

type runsWrapper struct {
	runs        tasks.Runs
	ruleSetHash uint64
}

func (wrapper *runsWrapper) onRunStarted(ctx context.Context, progress Progress) error {
	patch := progressPatch(progress)
	patch["run_id"] = progress.RunID
	patch["output"] = progress.Output
	patch["rule_set_hash"] = fmt.Sprintf("%016x", wrapper.ruleSetHash)
	patch["status"] = tasks.RunStatusStarted
	patch["started_at"] = formatTime(progress.StartedAt)
	patch["completed_at"] = nil
	return wrapper.runs.Update(ctx, progress.RunID, patch)
}

func (wrapper *runsWrapper) onProgress(ctx context.Context, progress Progress) error {
	return wrapper.runs.Update(ctx, progress.RunID, progressPatch(progress))
}

func (wrapper *runsWrapper) onRunFinished(ctx context.Context, progress Progress, runErr error) error {
	patch := progressPatch(progress)
	patch["completed_at"] = getFormattedNow()
	switch {
	case runErr == nil:
		patch["status"] = tasks.RunStatusCompletedSuccess
	case isCancellation(runErr):
		patch["status"] = tasks.RunStatusCanceled
	default:
		patch["status"] = tasks.RunStatusCompletedFailure
		patch["error_messages"] = []string{runErr.Error()}
	}
	return wrapper.runs.Update(ctx, progress.RunID, patch)
}

func progressPatch(progress Progress) map[string]interface{} {
	return map[string]interface{}{
		"cursor":     progress.Cursor,
		"total":      progress.Total,
		"processed":  progress.Processed,
		"corrupted":  progress.Corrupted,
		"skipped":    progress.Skipped,
		"failures":   progress.Failures,
		"updated_at": getFormattedNow(),
	}
}

const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

func getFormattedNow() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(RFC3339Micro)
}
