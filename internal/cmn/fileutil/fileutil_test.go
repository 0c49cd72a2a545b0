package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenOrCreateFile(t *testing.T) {
	t.Run("FileCreationAndPermissions", func(t *testing.T) {
		dir := t.TempDir()
		filePath := filepath.Join(dir, "logs.txt")

		file, err := OpenOrCreateFile(filePath)
		require.NoError(t, err)
		defer func() {
			_ = file.Close()
		}()

		info, err := file.Stat()
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("AppendsToExistingFile", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "logs.txt")
		require.NoError(t, os.WriteFile(filePath, []byte("first\n"), 0600))

		file, err := OpenOrCreateFile(filePath)
		require.NoError(t, err)
		_, err = file.WriteString("second\n")
		require.NoError(t, err)
		require.NoError(t, file.Close())

		data, err := os.ReadFile(filePath)
		require.NoError(t, err)
		assert.Equal(t, "first\nsecond\n", string(data))
	})

	t.Run("InvalidPath", func(t *testing.T) {
		_, err := OpenOrCreateFile("/nonexistent/directory/logs.txt")
		assert.Error(t, err)
	})
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	corpus := filepath.Join(base, "job", "corpus")
	crashes := filepath.Join(base, "job", "crashes")

	require.NoError(t, EnsureDirs(corpus, crashes))
	assert.True(t, IsDir(corpus))
	assert.True(t, IsDir(crashes))
	assert.False(t, IsFile(corpus))

	// Idempotent
	require.NoError(t, EnsureDirs(corpus))
}

func TestResolvePath(t *testing.T) {
	t.Setenv("BENCH_ROOT", "/tmp/bench")

	resolved, err := ResolvePath("$BENCH_ROOT/results")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bench/results", resolved)

	resolved, err = ResolvePath("  ")
	require.NoError(t, err)
	assert.Empty(t, resolved)
}
