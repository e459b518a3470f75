package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/hoytnotlit/ltr-project/api"
	"github.com/hoytnotlit/ltr-project/corpus"
	"github.com/hoytnotlit/ltr-project/corruption"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/hoytnotlit/ltr-project/output"
	"github.com/hoytnotlit/ltr-project/pipeline"
	"github.com/hoytnotlit/ltr-project/rmq"
	"github.com/hoytnotlit/ltr-project/s3client"
	"github.com/hoytnotlit/ltr-project/sparv"
	"github.com/hoytnotlit/ltr-project/tasks"
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/hoytnotlit/ltr-project/worker"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

type Config struct {
	CorpusPath    string `envconfig:"CORRUPT_CORPUS_PATH" required:"true"`
	CorpusFormat  string `envconfig:"CORRUPT_CORPUS_FORMAT" default:"xml"`
	OutputPath    string `envconfig:"CORRUPT_OUTPUT_PATH" default:"corrupted.txt"`
	RulesPath     string `envconfig:"CORRUPT_RULES_PATH" default:""`
	RestAPIActive bool   `envconfig:"CORRUPT_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"CORRUPT_REST_API_PORT" default:"10000"`
	CacheActive   bool   `envconfig:"CORRUPT_CACHE_ACTIVE" default:"false"`
	StatusActive  bool   `envconfig:"CORRUPT_STATUS_ACTIVE" default:"false"`
	LockActive    bool   `envconfig:"CORRUPT_LOCK_ACTIVE" default:"false"`
	PublishActive bool   `envconfig:"CORRUPT_PUBLISH_ACTIVE" default:"false"`
	S3OutputKey   string `envconfig:"CORRUPT_S3_OUTPUT_KEY" default:""`
}

const exitInterrupted = 130

func main() {
	supervise := flag.Bool("supervise", false, "run the corruption process under a log supervisor")
	dryRun := flag.Bool("dry-run", false, "print corruptions to stdout without touching the output file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not load .env: %v\n", err)
	}
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")

	if *supervise {
		logger.WrapProcess(os.Args[0], withoutFlag(os.Args[1:], "supervise")...)
		return
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		mainLogger.Fatal().Caller().Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, config, *dryRun, mainLogger)
	switch {
	case err == nil:
		mainLogger.Info().Msg("Done")
	case errors.Is(err, context.Canceled):
		mainLogger.Warn().Str("output", config.OutputPath).Msg("Interrupted, run again to resume")
		stop()
		os.Exit(exitInterrupted)
	default:
		mainLogger.Error().Err(err).Msg("Corruption run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, config Config, dryRun bool, mainLogger zerolog.Logger) error {
	ruleSet, err := types.LoadRuleSet(config.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to load rule set: %w", err)
	}
	mainLogger.Info().
		Str("rule_set_hash", fmt.Sprintf("%016x", ruleSet.GetHashCode())).
		Strs("subject_roles", ruleSet.SubjectRoles).
		Msg("Loaded rule set")

	sparvClient, err := sparv.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create annotation client: %w", err)
	}
	var annotator sparv.Annotator = sparvClient

	var taskClient *tasks.Client
	if config.CacheActive || config.StatusActive || config.LockActive {
		taskClient, err = tasks.NewClient()
		if err != nil {
			return fmt.Errorf("failed to create task client: %w", err)
		}
		defer taskClient.Close()
	}
	if config.CacheActive {
		annotator = taskClient.CachedAnnotator(sparvClient, sparvClient.Settings().Hash())
		mainLogger.Info().Msg("Annotation cache enabled")
	}
	ppln := pipeline.New(annotator, corruption.NewEngine(ruleSet))

	var storage *s3client.Client
	var downloader corpus.Downloader
	if corpus.IsRemote(config.CorpusPath) || config.S3OutputKey != "" {
		storage, err = s3client.New()
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		downloader = storage
	}
	sentences, err := corpus.Load(config.CorpusPath, config.CorpusFormat, downloader)
	if err != nil {
		return err
	}

	if dryRun {
		return printCorruptions(ctx, ppln, sentences, os.Stdout)
	}

	if config.LockActive {
		release, err := taskClient.LockOutput(ctx, config.OutputPath)
		if err != nil {
			return fmt.Errorf("output %s is in use: %w", config.OutputPath, err)
		}
		defer func() { _ = release() }()
	}

	sink, err := output.Open(config.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			mainLogger.Err(err).Msg("Could not close output")
		}
	}()

	var opts []worker.Option
	if config.StatusActive {
		opts = append(opts, worker.WithRunStatus(taskClient.Runs, ruleSet.GetHashCode()))
	}
	if config.PublishActive {
		rmqClient, err := rmq.NewClient()
		if err != nil {
			return fmt.Errorf("failed to create RMQ client: %w", err)
		}
		opts = append(opts, worker.WithPublisher(rmqClient))
	}
	corruptWorker, err := worker.New(ppln, sink, opts...)
	if err != nil {
		return err
	}
	defer corruptWorker.Close()

	if config.RestAPIActive {
		server := startAPI(config.RestAPIPort, &api.Request{Pipeline: ppln, Progress: corruptWorker.Progress}, mainLogger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if err := corruptWorker.Run(ctx, sentences); err != nil {
		return err
	}

	if config.S3OutputKey != "" {
		if _, err := storage.UploadFile(config.OutputPath, config.S3OutputKey); err != nil {
			return fmt.Errorf("failed to upload output: %w", err)
		}
		mainLogger.Info().Str("key", config.S3OutputKey).Msg("Uploaded output")
	}
	return nil
}

func startAPI(port string, apiRequest *api.Request, mainLogger zerolog.Logger) *http.Server {
	host := fmt.Sprintf(":%s", port)
	server := &http.Server{Addr: host, Handler: api.NewMux(apiRequest)}
	go func() {
		mainLogger.Info().Msgf("REST API on %s", host)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.Err(err).Msg("REST API stopped with error")
		}
	}()
	return server
}

// printCorruptions evaluates each sentence once, without retries or output.
func printCorruptions(ctx context.Context, ppln pipeline.Pipeline, sentences []types.CleanSentence, out io.Writer) error {
	for _, sent := range sentences {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := ppln(ctx, pipeline.NewRequest(sent))
		if err != nil {
			return fmt.Errorf("sentence %d: %w", sent.Index, err)
		}
		if result.Corruption == nil {
			continue
		}
		if _, err := fmt.Fprintf(out, "%d\t%s\t%s\n", result.Corruption.Index, result.Corruption.Rule, result.Corruption.Text); err != nil {
			return err
		}
	}
	return nil
}

func withoutFlag(args []string, name string) []string {
	filtered := make([]string, 0, len(args))
	for _, arg := range args {
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == name || strings.HasPrefix(trimmed, name+"=") {
			continue
		}
		filtered = append(filtered, arg)
	}
	return filtered
}
