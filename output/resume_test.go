package output

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"strings"
	"testing"
)

func TestResumeIndex(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    int
	}{
		{"Empty output", "", 0},
		{"Single record", "0\tAnna kom hem och log\n", 1},
		{"Gaps from skipped sentences", "0\ta\n3\tb\n17\tc\n", 18},
		{"Text with tabs", "5\tx\ty\n", 6},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ResumeIndex(strings.NewReader(c.content))
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}

	corrupt := []struct {
		name    string
		content string
	}{
		{"Unterminated final record", "0\ta\n1\tb"},
		{"No index field", "0\ta\nbroken\n"},
		{"Non numeric index", "0\ta\nx1\tb\n"},
		{"Negative index", "-3\tb\n"},
		{"Blank final line", "0\ta\n\n"},
	}
	for _, c := range corrupt {
		t.Run(c.name, func(t *testing.T) {
			_, err := ResumeIndex(strings.NewReader(c.content))
			require.ErrorIs(t, err, ErrCorruptCheckpoint)
		})
	}
}

func TestReadResumeMissingFile(t *testing.T) {
	got, err := ReadResume(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
