package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDownloadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	require.NoError(t, PrepareDownloadDir(dir))

	// Seed leftovers from a previous run.
	for _, name := range []string{"old.docx", "old.doc", "partial.crdownload", "keep.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.NoError(t, PrepareDownloadDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.txt", entries[0].Name())
}

func TestWaitSettled(t *testing.T) {
	dir := t.TempDir()
	before, err := listFiles(dir)
	require.NoError(t, err)

	go func() {
		time.Sleep(200 * time.Millisecond)
		// A stub too small to count, then the real file.
		_ = os.WriteFile(filepath.Join(dir, "stub.docx"), []byte("x"), 0o644)
		time.Sleep(300 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "tariffs.docx"), make([]byte, 4096), 0o644)
	}()

	path, err := waitSettled(context.Background(), dir, before, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tariffs.docx"), path)
}

func TestWaitSettledIgnoresPreexisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "earlier.docx"), make([]byte, 4096), 0o644))

	before, err := listFiles(dir)
	require.NoError(t, err)

	_, err = waitSettled(context.Background(), dir, before, time.Second)
	assert.Error(t, err)
}

func TestWaitSettledSkipsInProgress(t *testing.T) {
	dir := t.TempDir()
	before, err := listFiles(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tariffs.docx.crdownload"), make([]byte, 4096), 0o644))

	_, err = waitSettled(context.Background(), dir, before, time.Second)
	assert.Error(t, err)
}
