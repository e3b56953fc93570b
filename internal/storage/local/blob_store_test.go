// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/storage/local"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "working")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestObjectLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("PutGetDelete", func(t *testing.T) {
		path := "raw_rec123.md"
		uri, err := store.PutObject(ctx, path, "text/markdown", strings.NewReader("# Château"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, path), uri)

		data, err := store.GetObject(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "# Château", string(data))

		require.NoError(t, store.DeleteObject(ctx, path))
		_, err = store.GetObject(ctx, path)
		require.ErrorIs(t, err, venue.ErrNotFound)

		require.NoError(t, store.DeleteObject(ctx, path), "deleting twice is fine")
	})

	t.Run("NestedPath", func(t *testing.T) {
		path := "a/b/c/object.txt"
		_, err := store.PutObject(ctx, path, "text/plain", bytes.NewReader([]byte("nested")))
		require.NoError(t, err)
		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, "nested", string(readData))
	})

	t.Run("RejectsBadPaths", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", strings.NewReader("x"))
		assert.Error(t, err)
		_, err = store.PutObject(ctx, "../escape.txt", "text/plain", strings.NewReader("x"))
		assert.Error(t, err)
		_, err = store.GetObject(ctx, "../../etc/passwd")
		assert.Error(t, err)
	})
}
