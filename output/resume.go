package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// ResumeIndex returns the first sentence index that still has to be
// processed: one past the index of the final record, or 0 when there are no
// records. A final line that cannot be parsed, or that was not terminated,
// is reported as ErrCorruptCheckpoint rather than guessed around.
func ResumeIndex(r io.Reader) (int, error) {
	reader := bufio.NewReader(r)
	var last string
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			if line != "" {
				return 0, fmt.Errorf("%w: unterminated final record %q", ErrCorruptCheckpoint, line)
			}
			break
		}
		if err != nil {
			return 0, err
		}
		last = line
	}
	if last == "" {
		return 0, nil
	}
	index, err := parseIndex(last)
	if err != nil {
		return 0, err
	}
	return index + 1, nil
}

// ReadResume is ResumeIndex over the file at path. A missing file means no
// prior output.
func ReadResume(path string) (int, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return ResumeIndex(file)
}

func parseIndex(line string) (int, error) {
	line = strings.TrimSuffix(line, "\n")
	field, _, found := strings.Cut(line, recordSeparator)
	if !found {
		return 0, fmt.Errorf("%w: final record %q has no index field", ErrCorruptCheckpoint, line)
	}
	index, err := strconv.Atoi(field)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: final record %q has invalid index %q", ErrCorruptCheckpoint, line, field)
	}
	return index, nil
}
