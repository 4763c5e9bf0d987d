// Package feed verifies that a submitted URL serves a parseable RSS or Atom
// feed before the slow remote processing step is started.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// DefaultTimeout bounds one feed fetch.
const DefaultTimeout = 20 * time.Second

// Checker fetches and parses feeds with gofeed.
type Checker struct {
	parser *gofeed.Parser
}

var _ podcast.FeedChecker = (*Checker)(nil)

// NewChecker returns a Checker using client, or a client with DefaultTimeout when nil.
func NewChecker(client *http.Client, userAgent string) *Checker {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	p := gofeed.NewParser()
	p.Client = client
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &Checker{parser: p}
}

// Check requires the feed to parse and contain at least one episode.
func (c *Checker) Check(ctx context.Context, feedURL string) (sum podcast.FeedSummary, err error) {
	defer func() { metrics.ObserveFeedCheck(err) }()

	f, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return podcast.FeedSummary{}, fmt.Errorf("%w: %v", podcast.ErrFeedCheck, err)
	}
	if f == nil || len(f.Items) == 0 {
		return podcast.FeedSummary{}, fmt.Errorf("%w: feed contains no items", podcast.ErrFeedCheck)
	}
	return podcast.FeedSummary{Title: f.Title, Items: len(f.Items)}, nil
}
