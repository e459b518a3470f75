package worker

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/hoytnotlit/ltr-project/metrics"
	"github.com/hoytnotlit/ltr-project/output"
	"github.com/hoytnotlit/ltr-project/pipeline"
	"github.com/hoytnotlit/ltr-project/rmq"
	"github.com/hoytnotlit/ltr-project/tasks"
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"io"
	"os"
	"time"
)

var ErrCorpusOrder = errors.New("corpus sentences are not numbered by position")

type Config struct {
	RetryDelaySeconds int `envconfig:"CORRUPT_RETRY_DELAY_SECONDS" default:"60"`
	RetryMaxAttempts  int `envconfig:"CORRUPT_RETRY_MAX_ATTEMPTS" default:"0"`
	StatusEvery       int `envconfig:"CORRUPT_STATUS_EVERY" default:"100"`
}

type sinkTransactions interface {
	Append(index int, text string) error
	Next() int
	Path() string
}

type Worker struct {
	config       Config
	ppln         pipeline.Pipeline
	sink         sinkTransactions
	status       statusTransactions
	publisher    publishTransactions
	retry        RetryPolicy
	progress     *progressTracker
	runID        string
	now          func() time.Time
	statusOut    io.Writer
	workerLogger *zerolog.Logger
}

type Option func(worker *Worker)

// WithRunStatus mirrors the run progress into the runs store.
func WithRunStatus(runs tasks.Runs, ruleSetHash uint64) Option {
	return func(worker *Worker) {
		worker.status = &runsWrapper{runs: runs, ruleSetHash: ruleSetHash}
	}
}

// WithPublisher publishes every persisted corruption. The client is
// recreated with rmq.NewClient when its channel breaks.
func WithPublisher(client *rmq.Client) Option {
	return func(worker *Worker) {
		worker.publisher = &rmqClientWrapper{rmqClient: client, connect: rmq.NewClient}
	}
}

func WithStatusStream(out io.Writer) Option {
	return func(worker *Worker) {
		worker.statusOut = out
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(worker *Worker) {
		worker.retry = policy
	}
}

func WithRunID(runID string) Option {
	return func(worker *Worker) {
		worker.runID = runID
	}
}

func WithClock(now func() time.Time) Option {
	return func(worker *Worker) {
		worker.now = now
	}
}

func New(ppln pipeline.Pipeline, sink *output.Sink, opts ...Option) (*Worker, error) {
	return newWorker(ppln, sink, opts...)
}

func newWorker(ppln pipeline.Pipeline, sink sinkTransactions, opts ...Option) (*Worker, error) {
	workerLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		workerLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := Worker{
		config:    config,
		ppln:      ppln,
		sink:      sink,
		status:    noStatus{},
		publisher: noPublisher{},
		retry:     FixedRetryPolicy(time.Duration(config.RetryDelaySeconds)*time.Second, config.RetryMaxAttempts),
		runID:     uuid.NewString(),
		now:       time.Now,
		statusOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(&worker)
	}
	worker.progress = newProgressTracker(worker.statusOut, worker.now)
	workerLogger = workerLogger.With().Str("run_id", worker.runID).Logger()
	worker.workerLogger = &workerLogger
	return &worker, nil
}

func (worker *Worker) RunID() string {
	return worker.runID
}

func (worker *Worker) Progress() Progress {
	return worker.progress.snapshot()
}

func (worker *Worker) Close() {
	worker.publisher.close()
}

// Run corrupts corpus from the sink's resume point to the end. A sentence
// is only left behind once its outcome is settled: annotation failures
// cool down and retry the same sentence.
func (worker *Worker) Run(ctx context.Context, corpus []types.CleanSentence) (err error) {
	if err := validateCorpus(corpus); err != nil {
		return err
	}

	cursor := worker.sink.Next()
	total := len(corpus)
	worker.progress.start(worker.runID, worker.sink.Path(), cursor, total)
	metrics.CorpusSize.Set(float64(total))
	metrics.Cursor.Set(float64(cursor))

	runLogger := worker.workerLogger.With().Str("output", worker.sink.Path()).Logger()
	if cursor > total {
		runLogger.Warn().Int("cursor", cursor).Int("total", total).Msg("Output is ahead of the corpus, nothing to do")
	}
	runLogger.Info().Int("cursor", cursor).Int("total", total).Msg("Starting run")
	if statusErr := worker.status.onRunStarted(ctx, worker.progress.snapshot()); statusErr != nil {
		runLogger.Error().Err(statusErr).Msg("Could not record run start")
	}

	defer func() {
		worker.progress.finish()
		progress := worker.progress.snapshot()
		statusCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if statusErr := worker.status.onRunFinished(statusCtx, progress, err); statusErr != nil {
			runLogger.Error().Err(statusErr).Msg("Could not record run completion")
		}
		event := runLogger.Info()
		if err != nil {
			event = runLogger.Error().Err(err)
		}
		event.
			Int("cursor", progress.Cursor).
			Int("processed", progress.Processed).
			Int("corrupted", progress.Corrupted).
			Int("skipped", progress.Skipped).
			Int("failures", progress.Failures).
			Dur("elapsed", progress.Elapsed).
			Msg("Run finished")
	}()

	attempt := 0
	for index := cursor; index < total; {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		worker.progress.printStatus(index)

		result, pplnErr := worker.ppln(ctx, pipeline.NewRequest(corpus[index]))
		if pplnErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			attempt++
			worker.progress.update(func(progress *Progress) { progress.Failures++ })
			worker.progress.printFailure(pplnErr)
			runLogger.Error().Err(pplnErr).
				Int("index", index).
				Int("attempt", attempt).
				Dur("retry_in", worker.retry.Delay).
				Msg("Annotation failed, retrying the same sentence after cool-down")
			if waitErr := worker.retry.Wait(ctx, attempt); waitErr != nil {
				return fmt.Errorf("sentence %d: %w", index, waitErr)
			}
			continue
		}
		attempt = 0

		if err := worker.record(result); err != nil {
			return err
		}
		index++
		metrics.SentencesProcessed.Inc()
		metrics.Cursor.Set(float64(index))
		worker.progress.update(func(progress *Progress) {
			progress.Cursor = index
			progress.Processed++
		})

		progress := worker.progress.snapshot()
		if worker.config.StatusEvery > 0 && progress.Processed%worker.config.StatusEvery == 0 {
			if statusErr := worker.status.onProgress(ctx, progress); statusErr != nil {
				runLogger.Warn().Err(statusErr).Msg("Could not record run progress")
			}
		}
	}
	return nil
}

// record persists the outcome of one sentence. Only the sink is allowed to
// fail the run.
func (worker *Worker) record(result pipeline.Result) error {
	if result.Corruption == nil {
		metrics.SentencesSkipped.Inc()
		worker.progress.update(func(progress *Progress) { progress.Skipped++ })
		return nil
	}

	corruption := *result.Corruption
	if err := worker.sink.Append(corruption.Index, corruption.Text); err != nil {
		return fmt.Errorf("could not persist sentence %d: %w", corruption.Index, err)
	}
	metrics.SentencesCorrupted.WithLabelValues(corruption.Rule).Inc()
	worker.progress.update(func(progress *Progress) { progress.Corrupted++ })

	if err := worker.publisher.publishCorruption(worker.runID, corruption); err != nil {
		worker.workerLogger.Warn().Err(err).Int("index", corruption.Index).Msg("Could not publish corruption")
	}
	return nil
}

func validateCorpus(corpus []types.CleanSentence) error {
	for i, sent := range corpus {
		if sent.Index != i {
			return fmt.Errorf("%w: position %d holds index %d", ErrCorpusOrder, i, sent.Index)
		}
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
