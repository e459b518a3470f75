package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/hoytnotlit/ltr-project/redis"
)

const RunsDB redis.DB = 4

type RunStatus string

const (
	RunStatusStarted          RunStatus = "started"
	RunStatusCompletedSuccess RunStatus = "completed - success"
	RunStatusCompletedFailure RunStatus = "completed - failure"
	RunStatusCanceled         RunStatus = "canceled"
)

func (s RunStatus) Complete() bool {
	return s == RunStatusCompletedSuccess || s == RunStatusCompletedFailure || s == RunStatusCanceled
}

// RunTask is the status document of a single corruption run.
type RunTask struct {
	RunID         string    `json:"run_id"`
	Output        string    `json:"output"`
	RuleSetHash   string    `json:"rule_set_hash"`
	Status        RunStatus `json:"status"`
	Cursor        int       `json:"cursor"`
	Total         int       `json:"total"`
	Processed     int       `json:"processed"`
	Corrupted     int       `json:"corrupted"`
	Skipped       int       `json:"skipped"`
	Failures      int       `json:"failures"`
	StartedAt     *string   `json:"started_at"`
	UpdatedAt     *string   `json:"updated_at"`
	CompletedAt   *string   `json:"completed_at"`
	ErrorMessages []string  `json:"error_messages"`
}

type documentStore interface {
	GetDocument(ctx context.Context, redisKey string, doc interface{}) error
	MergeDocument(ctx context.Context, redisKey string, patch []byte) error
}

type Runs struct {
	client documentStore
}

func NewRuns(client documentStore) Runs {
	return Runs{client: client}
}

func (runs Runs) Get(ctx context.Context, runID string) (*RunTask, error) {
	var task RunTask
	if err := runs.client.GetDocument(ctx, runKey(runID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update merges patch into the run document. Fields absent from patch keep
// their stored value, fields set to null are removed.
func (runs Runs) Update(ctx context.Context, runID string, patch map[string]interface{}) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return runs.client.MergeDocument(ctx, runKey(runID), b)
}

func runKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}
