package sheets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

const exportCSV = "json,value\n" +
	`podcast-1.json,"{""podcast_details"":{""podcast_title"":""Test Show""}}"` + "\n" +
	"\n" +
	",\n" +
	`podcast-2.json,"{""a"":""line1` + "\n" + `line2""}"` + "\n"

func TestParseRows(t *testing.T) {
	t.Parallel()

	rows, err := ParseRows(strings.NewReader(exportCSV))
	require.NoError(t, err)
	require.Equal(t, []podcast.Row{
		{Filename: "podcast-1.json", Value: `{"podcast_details":{"podcast_title":"Test Show"}}`},
		{Filename: "podcast-2.json", Value: "{\"a\":\"line1\nline2\"}"},
	}, rows)
}

func TestParseRows_ColumnsByName(t *testing.T) {
	t.Parallel()

	rows, err := ParseRows(strings.NewReader("\ufeffvalue,extra,json\n{},x,a.json\n"))
	require.NoError(t, err)
	require.Equal(t, []podcast.Row{{Filename: "a.json", Value: "{}"}}, rows)
}

func TestParseRows_Errors(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]string{
		"empty":          "",
		"missing column": "json,other\na,b\n",
		"short row":      "json,value\nonly\n",
		"bad quoting":    "json,value\na,\"unterminated\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseRows(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestCSVSource_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/spreadsheets/d/abc/export", r.URL.Path)
		require.Equal(t, "csv", r.URL.Query().Get("format"))
		require.Equal(t, "0", r.URL.Query().Get("gid"))
		_, _ = fmt.Fprint(w, "json,value\npodcast-1.json,{}\n")
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	src, err := NewCSVSource(CSVConfig{
		SheetURL: srv.URL + "/spreadsheets/d/abc/edit#gid=0",
		CacheTTL: DefaultCacheTTL,
	}, WithClock(clock), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	ctx := context.Background()
	rows, err := src.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	clock.now = clock.now.Add(599 * time.Second)
	_, err = src.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	clock.now = clock.now.Add(time.Second)
	_, err = src.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())

	src.Invalidate()
	_, err = src.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(3), hits.Load())
}

func TestCSVSource_ZeroTTLDisablesCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "json,value\npodcast-1.json,{}\n")
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	src, err := NewCSVSource(CSVConfig{SheetURL: srv.URL + "/spreadsheets/d/abc/edit#gid=0"}, WithClock(clock), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err = src.Rows(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), hits.Load())
}

func TestCSVSource_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewCSVSource(CSVConfig{SheetURL: srv.URL + "/spreadsheets/d/abc/edit#gid=0"})
	require.NoError(t, err)
	_, err = src.Rows(context.Background())
	require.ErrorContains(t, err, "http 403")
}
