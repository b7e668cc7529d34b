// Package local_test tests the local filesystem source.
package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/safescrape/internal/source/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		src, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, src)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirDoesNotExist", func(t *testing.T) {
		_, err := local.New(local.Config{BaseDir: filepath.Join(t.TempDir(), "missing")})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slurs.txt"), []byte("alpha\nbeta\n"), 0o600))

	src, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	t.Run("ValidOpen", func(t *testing.T) {
		rc, err := src.Open(context.Background(), "slurs.txt")
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "alpha\nbeta\n", string(data))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := src.Open(context.Background(), "nope.txt")
		assert.Error(t, err)
	})

	t.Run("EmptyName", func(t *testing.T) {
		_, err := src.Open(context.Background(), "  ")
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := src.Open(context.Background(), "../../etc/passwd")
		assert.Error(t, err)
	})
}
