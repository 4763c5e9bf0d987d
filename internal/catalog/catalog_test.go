package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
	"github.com/JakeFAU/podcast-digest/internal/storage/local"
	"github.com/JakeFAU/podcast-digest/internal/storage/memory"
)

func record(title, episode string) []byte {
	return []byte(fmt.Sprintf(`{"podcast_details":{"podcast_title":%q,"episode_title":%q,"episode_image":"http://img"},"podcast_summary":"S","podcast_guest":"G","podcast_highlights":"h"}`, title, episode))
}

func TestLoad_OneEntryPerTitle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Write(ctx, "podcast-1.json", record("Alpha", "A1")))
	require.NoError(t, store.Write(ctx, "podcast-2.json", record("Beta", "B1")))
	require.NoError(t, store.Write(ctx, "podcast-3.json", record("Alpha", "A2")))
	require.NoError(t, store.Write(ctx, "readme.txt", []byte("ignored")))

	cat, err := NewLoader(store, nil).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())
	require.Equal(t, []string{"Alpha", "Beta"}, cat.Titles())

	alpha, ok := cat.Get("Alpha")
	require.True(t, ok)
	require.Equal(t, "A2", alpha.Details.EpisodeTitle)
	require.Equal(t, "podcast-3.json", cat.Filename("Alpha"))
	require.Equal(t, "Beta", cat.Default())
}

func TestLoad_EmptyStore(t *testing.T) {
	t.Parallel()

	cat, err := NewLoader(memory.NewStore(), nil).Load(context.Background())
	require.NoError(t, err)
	require.Zero(t, cat.Len())
	require.Equal(t, "", cat.Default())
	_, ok := cat.Get("anything")
	require.False(t, ok)
}

func TestLoad_BadFileFailsWholeLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Write(ctx, "podcast-1.json", record("Alpha", "A1")))
	require.NoError(t, store.Write(ctx, "podcast-2.json", []byte(`{"podcast_details":{}}`)))

	_, err := NewLoader(store, nil).Load(ctx)
	require.ErrorIs(t, err, podcast.ErrInvalidRecord)
	require.ErrorContains(t, err, "podcast-2.json")
}

func TestLoad_LocalDirectory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "podcast-1.json", record("Test Show", "Ep1")))

	cat, err := NewLoader(store, nil).Load(ctx)
	require.NoError(t, err)
	rec, ok := cat.Get("Test Show")
	require.True(t, ok)
	require.Equal(t, "Ep1", rec.Details.EpisodeTitle)
}
