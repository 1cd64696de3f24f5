package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_WriteRowJoinsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewSink(path, true)
	require.NoError(t, err)
	require.NoError(t, s.WriteRow("a", "b", "c"))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a, b, c\n", string(b))
}

func TestSink_FlushPushesRowsThroughImmediately(t *testing.T) {
	dir := t.TempDir()

	t.Run("flush_enabled", func(t *testing.T) {
		path := filepath.Join(dir, "flushed.csv")
		s, err := NewSink(path, true)
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, s.WriteRow("row"))

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "row\n", string(b))
	})

	t.Run("flush_disabled_buffers_until_close", func(t *testing.T) {
		path := filepath.Join(dir, "buffered.csv")
		s, err := NewSink(path, false)
		require.NoError(t, err)
		require.NoError(t, s.WriteRow("row"))

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, string(b))

		require.NoError(t, s.Close())
		b, err = os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "row\n", string(b))
	})
}

func TestSink_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewSink(path, false)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestSink_EmptyPathIsStdout(t *testing.T) {
	s, err := NewSink("", false)
	require.NoError(t, err)
	assert.True(t, s.stdout)
	// Close must not close the real stdout
	require.NoError(t, s.Close())
	_, err = os.Stdout.Stat()
	require.NoError(t, err)
}
