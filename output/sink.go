// Package output persists corruption records as "{index}\t{text}" lines.
// The file is append-only and doubles as the resume checkpoint.
package output

import (
	"errors"
	"fmt"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/rs/zerolog"
	"os"
	"strconv"
	"strings"
)

const recordSeparator = "\t"

var (
	ErrNonMonotonic  = errors.New("record index does not advance")
	ErrInvalidRecord = errors.New("invalid record")
)

type Sink struct {
	file       *os.File
	path       string
	last       int
	sinkLogger zerolog.Logger
}

// Open opens path for appending, creating it when missing, and derives the
// resume position from its existing records.
func Open(path string) (*Sink, error) {
	sinkLogger := logger.NewLogger("Output sink").With().Str("path", path).Logger()
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %s: %w", path, err)
	}
	next, err := ResumeIndex(file)
	if err != nil {
		_ = file.Close()
		sinkLogger.Err(err).Msg("Could not derive resume position from existing output")
		return nil, err
	}
	sinkLogger.Info().Int("next_index", next).Msg("Opened output")
	return &Sink{
		file:       file,
		path:       path,
		last:       next - 1,
		sinkLogger: sinkLogger,
	}, nil
}

func (sink *Sink) Path() string {
	return sink.path
}

// Next is the smallest index a new record may carry.
func (sink *Sink) Next() int {
	return sink.last + 1
}

// Append writes one record and syncs it to disk before returning.
func (sink *Sink) Append(index int, text string) error {
	if index <= sink.last {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, index, sink.last)
	}
	if strings.ContainsAny(text, "\r\n") {
		return fmt.Errorf("%w: text of %d contains a line break", ErrInvalidRecord, index)
	}
	line := strconv.Itoa(index) + recordSeparator + text + "\n"
	if _, err := sink.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to append record %d: %w", index, err)
	}
	if err := sink.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync record %d: %w", index, err)
	}
	sink.last = index
	sink.sinkLogger.Debug().Int("index", index).Msg("Appended record")
	return nil
}

func (sink *Sink) Close() error {
	return sink.file.Close()
}
