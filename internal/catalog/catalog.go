// Package catalog builds the title-to-record mapping shown in the selector.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// Catalog maps podcast titles to records and remembers insertion order.
// A title seen twice keeps its first position and the later record.
type Catalog struct {
	titles  []string
	records map[string]podcast.Record
	files   map[string]string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		records: make(map[string]podcast.Record),
		files:   make(map[string]string),
	}
}

// Put inserts or replaces the record for rec's title.
func (c *Catalog) Put(filename string, rec podcast.Record) {
	title := rec.Title()
	if _, ok := c.records[title]; !ok {
		c.titles = append(c.titles, title)
	}
	c.records[title] = rec
	c.files[title] = filename
}

// Titles returns titles in insertion order.
func (c *Catalog) Titles() []string {
	return append([]string(nil), c.titles...)
}

// Get looks up a title.
func (c *Catalog) Get(title string) (podcast.Record, bool) {
	rec, ok := c.records[title]
	return rec, ok
}

// Filename returns the file the title's record was loaded from.
func (c *Catalog) Filename(title string) string {
	return c.files[title]
}

// Default is the last inserted title, or "" when empty.
func (c *Catalog) Default() string {
	if len(c.titles) == 0 {
		return ""
	}
	return c.titles[len(c.titles)-1]
}

// Len returns the number of distinct titles.
func (c *Catalog) Len() int {
	return len(c.titles)
}

// Loader reads every record in a store.
type Loader struct {
	store  podcast.Store
	logger *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(store podcast.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// Load decodes every .json file in listing order. Any unreadable or
// incomplete record fails the whole load.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	if locker, ok := l.store.(podcast.Locker); ok {
		unlock, err := locker.RLock(ctx)
		if err != nil {
			return nil, err
		}
		defer func() {
			if uerr := unlock(); uerr != nil {
				l.logger.Warn("release record store lock", zap.Error(uerr))
			}
		}()
	}

	names, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	cat := New()
	for _, name := range names {
		data, err := l.store.Read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		rec, err := podcast.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		if prev, dup := cat.Get(rec.Title()); dup {
			l.logger.Warn("duplicate podcast title; later file wins",
				zap.String("title", rec.Title()),
				zap.String("replaced", cat.Filename(prev.Title())),
				zap.String("file", name),
			)
		}
		cat.Put(name, rec)
	}
	metrics.SetCatalogSize(cat.Len())
	return cat, nil
}
