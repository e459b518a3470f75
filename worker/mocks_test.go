package worker

import (
	"context"
	"errors"
	"fmt"
	"github.com/hoytnotlit/ltr-project/pipeline"
	"github.com/hoytnotlit/ltr-project/types"
	"strings"
	"time"
)

var errMocked = errors.New("mocked failure")

type failingMethod struct {
	fail bool
}

type record struct {
	index int
	text  string
}

type sinkMock struct {
	config sinkMockConfig
	calls  sinkMockCalls
}

type sinkMockConfig struct {
	next   int
	append failingMethod
}

type sinkMockCalls struct {
	append  int
	records []record
}

func (mock *sinkMock) Append(index int, text string) error {
	mock.calls.append++
	if mock.config.append.fail {
		return errMocked
	}
	mock.calls.records = append(mock.calls.records, record{index: index, text: text})
	mock.config.next = index + 1
	return nil
}

func (mock *sinkMock) Next() int {
	return mock.config.next
}

func (mock *sinkMock) Path() string {
	return "mocked.txt"
}

type statusMock struct {
	config statusMockConfig
	calls  statusMockCalls
}

type statusMockConfig struct {
	onRunStarted  failingMethod
	onProgress    failingMethod
	onRunFinished failingMethod
}

type statusMockCalls struct {
	onRunStarted  bool
	onProgress    []int
	onRunFinished bool
	finishedWith  error
}

func (mock *statusMock) onRunStarted(_ context.Context, _ Progress) error {
	mock.calls.onRunStarted = true
	if mock.config.onRunStarted.fail {
		return errMocked
	}
	return nil
}

func (mock *statusMock) onProgress(_ context.Context, progress Progress) error {
	mock.calls.onProgress = append(mock.calls.onProgress, progress.Cursor)
	if mock.config.onProgress.fail {
		return errMocked
	}
	return nil
}

func (mock *statusMock) onRunFinished(_ context.Context, _ Progress, runErr error) error {
	mock.calls.onRunFinished = true
	mock.calls.finishedWith = runErr
	if mock.config.onRunFinished.fail {
		return errMocked
	}
	return nil
}

type publisherMock struct {
	config publisherMockConfig
	calls  publisherMockCalls
}

type publisherMockConfig struct {
	publishCorruption failingMethod
}

type publisherMockCalls struct {
	published []int
	closed    bool
}

func (mock *publisherMock) publishCorruption(_ string, corruption types.Corruption) error {
	mock.calls.published = append(mock.calls.published, corruption.Index)
	if mock.config.publishCorruption.fail {
		return errMocked
	}
	return nil
}

func (mock *publisherMock) close() {
	mock.calls.closed = true
}

type pipelineMock struct {
	ppln   pipeline.Pipeline
	config pipelineMockConfig
	calls  pipelineMockCalls
}

type pipelineMockConfig struct {
	// failures is the number of transient errors returned for an index
	// before it succeeds.
	failures map[int]int
	// cancelAt cancels the run after the sentence with that index is
	// annotated.
	cancelAt int
	cancel   context.CancelFunc
}

type pipelineMockCalls struct {
	requests []int
}

// getPipelineMock corrupts every sentence whose text starts with "x" by
// upper-casing it.
func getPipelineMock(config pipelineMockConfig) *pipelineMock {
	mock := pipelineMock{config: config}
	mock.ppln = func(ctx context.Context, request pipeline.Request) (pipeline.Result, error) {
		mock.calls.requests = append(mock.calls.requests, request.Index)
		result := pipeline.Result{Index: request.Index, Tokens: types.Tokenize(request.Text)}
		if mock.config.failures[request.Index] > 0 {
			mock.config.failures[request.Index]--
			return result, fmt.Errorf("annotating sentence %d: %w", request.Index, errMocked)
		}
		if mock.config.cancel != nil && request.Index == mock.config.cancelAt {
			mock.config.cancel()
		}
		if strings.HasPrefix(request.Text, "x") {
			result.Corruption = &types.Corruption{
				Index: request.Index,
				Rule:  types.RuleRepeatedSubject,
				Text:  strings.ToUpper(request.Text),
			}
		}
		return result, nil
	}
	return &mock
}

type sleeperMock struct {
	slept []time.Duration
	// cancel is invoked instead of sleeping when set
	cancel context.CancelFunc
}

func (mock *sleeperMock) sleep(ctx context.Context, d time.Duration) error {
	mock.slept = append(mock.slept, d)
	if mock.cancel != nil {
		mock.cancel()
		return ctx.Err()
	}
	return nil
}

func fixedClock() func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newCorpus(texts ...string) []types.CleanSentence {
	return types.NewCorpus(texts)
}
