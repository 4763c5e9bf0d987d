// Package local_test tests the directory-backed record store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
	"github.com/JakeFAU/podcast-digest/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "podcasts")
		_, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("DirIsAFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := local.New(local.Config{Dir: path})
		assert.Error(t, err)
	})
}

func TestListFiltersJSONInNameOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"podcast-2.json", "podcast-1.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o750))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"podcast-1.json", "podcast-2.json"}, names)
}

func TestWriteOverwritesAndReadReturnsContent(t *testing.T) {
	store, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "podcast-1.json", []byte(`{"a":1}`)))
	require.NoError(t, store.Write(ctx, "podcast-1.json", []byte(`{"a":2}`)))

	data, err := store.Read(ctx, "podcast-1.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	_, err = store.Read(ctx, "missing.json")
	assert.ErrorIs(t, err, podcast.ErrNotFound)
}

func TestCreateIsExclusive(t *testing.T) {
	store, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "podcast-1.json", []byte(`{"first":true}`)))
	err = store.Create(ctx, "podcast-1.json", []byte(`{"second":true}`))
	require.ErrorIs(t, err, podcast.ErrExists)

	data, err := store.Read(ctx, "podcast-1.json")
	require.NoError(t, err)
	assert.Equal(t, `{"first":true}`, string(data))
}

func TestRejectsTraversal(t *testing.T) {
	store, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "..", "../escape.json", "a/b.json", `a\b.json`} {
		assert.Error(t, store.Write(ctx, name, []byte("{}")), name)
	}
}

func TestLockExcludesSecondWriter(t *testing.T) {
	store, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	unlock, err := store.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = store.Lock(ctx)
	assert.Error(t, err)

	require.NoError(t, unlock())

	unlock, err = store.RLock(context.Background())
	require.NoError(t, err)
	unlock2, err := store.RLock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
	require.NoError(t, unlock2())
}
