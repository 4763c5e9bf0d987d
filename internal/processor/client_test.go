package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const newShow = `{"podcast_details":{"podcast_title":"New Show","episode_title":"E","episode_image":"http://img"},"podcast_summary":"S","podcast_guest":"G","podcast_highlights":"h1\nh2","extra":true}`

func TestProcessFeed_PostsArgsAndDecodesRecord(t *testing.T) {
	t.Parallel()

	var got invokeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/corise-podcast-project/process_podcast", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(newShow))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL + "/", Token: "secret"})
	require.NoError(t, err)

	rec, err := c.ProcessFeed(context.Background(), "https://feeds.example.com/rss")
	require.NoError(t, err)
	require.Equal(t, []string{"https://feeds.example.com/rss", "/"}, got.Args)
	require.Equal(t, "New Show", rec.Title())
	require.Contains(t, string(rec.Raw), `"extra":true`)
}

func TestProcessFeed_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "transcription failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, App: "app", Function: "fn"})
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/app/fn", c.Target())

	_, err = c.ProcessFeed(context.Background(), "https://feeds.example.com/rss")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Contains(t, statusErr.Error(), "transcription failed")
}

func TestProcessFeed_MalformedRecord(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"podcast_summary":"no details"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)
	_, err = c.ProcessFeed(context.Background(), "https://feeds.example.com/rss")
	require.ErrorIs(t, err, podcast.ErrInvalidRecord)
}

func TestProcessFeed_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.ProcessFeed(context.Background(), "https://feeds.example.com/rss")
	require.Error(t, err)
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	_, err = NewClient(Config{Endpoint: "not a url"})
	require.Error(t, err)
}
