package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

func TestStoreWriteCopiesData(t *testing.T) {
	t.Parallel()

	store := NewStore()
	payload := []byte("content")
	require.NoError(t, store.Write(context.Background(), "podcast-1.json", payload))
	payload[0] = 'C'

	got, err := store.Read(context.Background(), "podcast-1.json")
	require.NoError(t, err)
	require.Equal(t, "content", string(got))
}

func TestStoreListSortedJSONOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Write(ctx, "b.json", nil))
	require.NoError(t, store.Write(ctx, "a.json", nil))
	require.NoError(t, store.Write(ctx, "c.txt", nil))

	names, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.json", "b.json"}, names)
}

func TestStoreCreateExclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Create(ctx, "a.json", []byte("1")))
	require.ErrorIs(t, store.Create(ctx, "a.json", []byte("2")), podcast.ErrExists)
	_, err := store.Read(ctx, "missing.json")
	require.ErrorIs(t, err, podcast.ErrNotFound)
}
