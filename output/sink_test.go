package output

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSink(t *testing.T) {
	t.Run("Creates missing file and appends records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupted.txt")
		sink, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, 0, sink.Next())

		require.NoError(t, sink.Append(0, "Anna kom hem och log"))
		require.NoError(t, sink.Append(2, "Springer snabbt"))
		assert.Equal(t, 3, sink.Next())
		require.NoError(t, sink.Close())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "0\tAnna kom hem och log\n2\tSpringer snabbt\n", string(b))
	})

	t.Run("Reopening extends existing output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupted.txt")
		require.NoError(t, os.WriteFile(path, []byte("4\tfirst\n"), 0o644))

		sink, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, 5, sink.Next())
		require.NoError(t, sink.Append(7, "second"))
		require.NoError(t, sink.Close())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "4\tfirst\n"))
		assert.Equal(t, "4\tfirst\n7\tsecond\n", string(b))
	})

	t.Run("Rejects indexes that do not advance", func(t *testing.T) {
		sink, err := Open(filepath.Join(t.TempDir(), "corrupted.txt"))
		require.NoError(t, err)
		defer sink.Close()
		require.NoError(t, sink.Append(3, "a"))
		require.ErrorIs(t, sink.Append(3, "b"), ErrNonMonotonic)
		require.ErrorIs(t, sink.Append(1, "c"), ErrNonMonotonic)
	})

	t.Run("Rejects line breaks in text", func(t *testing.T) {
		sink, err := Open(filepath.Join(t.TempDir(), "corrupted.txt"))
		require.NoError(t, err)
		defer sink.Close()
		require.ErrorIs(t, sink.Append(0, "a\nb"), ErrInvalidRecord)
		assert.Equal(t, 0, sink.Next())
	})

	t.Run("Refuses to open corrupt checkpoint", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupted.txt")
		require.NoError(t, os.WriteFile(path, []byte("0\ta\n1\tb"), 0o644))
		_, err := Open(path)
		require.ErrorIs(t, err, ErrCorruptCheckpoint)
	})
}
