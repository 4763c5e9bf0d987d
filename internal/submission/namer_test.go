package submission

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
	"github.com/JakeFAU/podcast-digest/internal/storage/memory"
)

func TestNextFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		names []string
		want  string
	}{
		{name: "empty", names: nil, want: "podcast-1.json"},
		{name: "gaps and strays", names: []string{"podcast-1.json", "podcast-3.json", "podcast-7.json", "notes.json"}, want: "podcast-8.json"},
		{name: "only strays", names: []string{"notes.json", "podcast-x.json", "podcast-2.json.bak"}, want: "podcast-1.json"},
		{name: "numeric not lexical", names: []string{"podcast-9.json", "podcast-10.json"}, want: "podcast-11.json"},
		{name: "uuid names ignored", names: []string{"podcast-0190d7f0-0000-7000-8000-000000000001.json", "podcast-2.json"}, want: "podcast-3.json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NextFilename(tc.names))
		})
	}
}

func TestSequentialNamerCreatesNextName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Write(ctx, "podcast-1.json", []byte(`{}`)))
	require.NoError(t, store.Write(ctx, "podcast-3.json", []byte(`{}`)))

	name, err := SequentialNamer{Store: store}.Create(ctx, []byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, "podcast-4.json", name)

	data, err := store.Read(ctx, name)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(data))
}

// sheetRows is a cached row source that only shows new rows after Invalidate.
type sheetRows struct {
	rows        []podcast.Row
	visible     int
	invalidated int
	err         error
}

func (s *sheetRows) Rows(context.Context) ([]podcast.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[:s.visible], nil
}

func (s *sheetRows) Invalidate() {
	s.invalidated++
	s.visible = len(s.rows)
}

func TestSequentialNamerSkipsUnsyncedSheetRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Write(ctx, "podcast-1.json", []byte(`{}`)))
	sheet := &sheetRows{
		rows: []podcast.Row{
			{Filename: "podcast-1.json", Value: `{}`},
			{Filename: "podcast-2.json", Value: `{"other":"replica"}`},
		},
		visible: 1,
	}

	name, err := SequentialNamer{Store: store, Rows: sheet}.Create(ctx, []byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, "podcast-3.json", name)
	require.Equal(t, 1, sheet.invalidated)

	_, err = store.Read(ctx, "podcast-2.json")
	require.ErrorIs(t, err, podcast.ErrNotFound)
}

func TestSequentialNamerSheetReadFailure(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	sheet := &sheetRows{err: errors.New("export unavailable")}
	_, err := SequentialNamer{Store: store, Rows: sheet}.Create(context.Background(), []byte(`{}`))
	require.ErrorContains(t, err, "export unavailable")

	names, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, names)
}

// racingStore lets another writer claim the computed name between List and Create.
type racingStore struct {
	*memory.Store
	stolen int
}

func (r *racingStore) Create(ctx context.Context, name string, data []byte) error {
	if r.stolen > 0 {
		r.stolen--
		if err := r.Store.Create(ctx, name, []byte(`{"other":true}`)); err != nil {
			return err
		}
	}
	return r.Store.Create(ctx, name, data)
}

func TestSequentialNamerRetriesAfterLosingRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &racingStore{Store: memory.NewStore(), stolen: 2}

	name, err := SequentialNamer{Store: store}.Create(ctx, []byte(`{"mine":true}`))
	require.NoError(t, err)
	require.Equal(t, "podcast-3.json", name)

	other, err := store.Read(ctx, "podcast-1.json")
	require.NoError(t, err)
	require.JSONEq(t, `{"other":true}`, string(other))
}

func TestSequentialNamerGivesUp(t *testing.T) {
	t.Parallel()

	store := &racingStore{Store: memory.NewStore(), stolen: 10}
	_, err := SequentialNamer{Store: store, MaxAttempts: 2}.Create(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, podcast.ErrExists)
}

func TestSequentialNamerConcurrentWritersNeverOverwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	namer := SequentialNamer{Store: store, MaxAttempts: 50}

	const writers = 8
	var wg sync.WaitGroup
	names := make(chan string, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := namer.Create(ctx, []byte{byte('0' + i)})
			if err == nil {
				names <- name
			}
		}()
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for name := range names {
		require.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	require.Len(t, seen, writers)
	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, writers)
}

type fixedNames struct {
	name string
	err  error
}

func (f fixedNames) RecordName() (string, error) { return f.name, f.err }

func TestUUIDNamer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	namer := UUIDNamer{Store: store, IDs: fixedNames{name: "podcast-abc.json"}}

	name, err := namer.Create(ctx, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, "podcast-abc.json", name)

	_, err = namer.Create(ctx, []byte(`{}`))
	require.ErrorIs(t, err, podcast.ErrExists)

	_, err = UUIDNamer{Store: store, IDs: fixedNames{err: errors.New("entropy")}}.Create(ctx, nil)
	require.EqualError(t, err, "entropy")
}
