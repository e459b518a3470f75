package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
)

// WrapProcess runs the corruption binary as a child process and relays its
// stderr. JSON log lines are passed through untouched, a Go panic trace is
// collected and reported as one structured fatal line once the child exits.
// It never returns: the supervisor exits with the child's exit code.
func WrapProcess(executable string, arg ...string) {
	supervisorLogger := NewLogger("Supervisor")
	defer handlePanic(supervisorLogger)

	r, w, err := os.Pipe()
	if err != nil {
		supervisorLogger.Fatal().Err(err).Msg("Could not create pipe for logs")
		os.Exit(1)
	}

	cmd := exec.Command(executable, arg...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = w

	if err = cmd.Start(); err != nil {
		supervisorLogger.Fatal().Err(err).Msg("Could not launch corruption process")
		os.Exit(1)
	}
	supervisorLogger.Info().Int("pid", cmd.Process.Pid).Msg("Corruption process started")

	exitCodeCh := make(chan int)
	logsCh := make(chan []byte)

	go waitForCommandToExit(cmd, w, supervisorLogger, exitCodeCh)
	go collectLogs(r, supervisorLogger, logsCh)

	relay := newLogRelay(os.Stderr, supervisorLogger)
	for {
		select {
		case exitCode := <-exitCodeCh:
			// drain lines still buffered in the pipe before reporting
			if logsCh != nil {
				for line := range logsCh {
					relay.handleLine(line)
				}
			}
			relay.handleExit(exitCode)
			os.Exit(exitCode)
		case line, ok := <-logsCh:
			if !ok {
				logsCh = nil
				continue
			}
			relay.handleLine(line)
		}
	}
}

func waitForCommandToExit(cmd *exec.Cmd, w *os.File, supervisorLogger zerolog.Logger, exitCodeCh chan<- int) {
	defer handlePanic(supervisorLogger)
	err := cmd.Wait()
	_ = w.Close()
	if err == nil {
		exitCodeCh <- 0
		return
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		exitCodeCh <- 1
		return
	}
	exitCodeCh <- exitErr.ExitCode()
}

func collectLogs(r io.Reader, supervisorLogger zerolog.Logger, logsCh chan<- []byte) {
	defer handlePanic(supervisorLogger)
	defer close(logsCh)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		logsCh <- line
	}
	if err := scanner.Err(); err != nil {
		supervisorLogger.Error().Err(err).Msg("Error scanning piped corruption process stderr")
	}
}

type logRelay struct {
	out        io.Writer
	logger     zerolog.Logger
	panicTrace strings.Builder
	foundPanic bool
}

func newLogRelay(out io.Writer, supervisorLogger zerolog.Logger) *logRelay {
	return &logRelay{out: out, logger: supervisorLogger}
}

func (relay *logRelay) handleLine(line []byte) {
	text := string(line)
	if !relay.foundPanic && strings.HasPrefix(text, "panic") {
		relay.foundPanic = true
	}
	switch {
	case len(line) == 0:
	case relay.foundPanic:
		relay.panicTrace.WriteString(text)
		relay.panicTrace.WriteByte('\n')
	case isJSON(line):
		_, _ = fmt.Fprintln(relay.out, text)
	default:
		relay.logger.Warn().Str("line", text).Msg("Got log line that is not JSON formatted")
	}
}

func (relay *logRelay) handleExit(exitCode int) {
	if exitCode == 0 {
		relay.logger.Info().Msg("Exited with code 0")
		return
	}
	event := relay.logger.Error().Int("exit_code", exitCode)
	if relay.foundPanic {
		event = event.Err(errors.New(relay.panicTrace.String()))
	}
	event.Msg("Corruption process exited with error")
}

func handlePanic(supervisorLogger zerolog.Logger) {
	r := recover()
	if r == nil {
		return
	}
	supervisorLogger.Error().
		Caller().
		Str("error", fmt.Sprint(r)).
		Str("stack_trace", string(debug.Stack())).
		Msg("Supervisor panicked")
	os.Exit(1)
}

func isJSON(b []byte) bool {
	var js json.RawMessage
	err := json.Unmarshal(b, &js)
	return err == nil && js != nil
}
