package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/century/internal/store"
	"github.com/lox/century/internal/store/storetest"
)

func TestFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := store.OpenFileStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestFileStoreRequiresDirectory(t *testing.T) {
	_, err := store.OpenFileStore("  ")
	assert.Error(t, err)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenFileStore(dir)
	require.NoError(t, err)

	id, err := s.Create(context.Background(), "user-1", []byte(`{"a":1}`), store.Metadata{})
	require.NoError(t, err)
	require.NoError(t, s.Update(context.Background(), id, []byte(`{"a":2}`), store.Metadata{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id+".json", entries[0].Name())

	info, err := os.Stat(filepath.Join(dir, id+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	s, err := store.OpenFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "../escape")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
