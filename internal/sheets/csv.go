package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/clock/system"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const (
	// DefaultCacheTTL is the configured default snapshot lifetime.
	DefaultCacheTTL = 600 * time.Second

	filenameColumn = "json"
	valueColumn    = "value"
)

// CSVConfig configures the export reader.
type CSVConfig struct {
	SheetURL string
	// CacheTTL is how long a snapshot is reused. Zero or less refetches on every call.
	CacheTTL time.Duration
}

// CSVSource reads spreadsheet rows from the CSV export endpoint.
type CSVSource struct {
	exportURL string
	ttl       time.Duration
	client    *http.Client
	clock     podcast.Clock
	logger    *zap.Logger

	mu        sync.Mutex
	cached    []podcast.Row
	fetchedAt time.Time
	valid     bool
}

var _ podcast.RowSource = (*CSVSource)(nil)

// Option customizes the CSV source.
type Option func(*CSVSource)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *CSVSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithClock overrides the clock used for cache expiry.
func WithClock(clock podcast.Clock) Option {
	return func(s *CSVSource) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *CSVSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCSVSource builds a reader for the worksheet cfg.SheetURL points at.
func NewCSVSource(cfg CSVConfig, opts ...Option) (*CSVSource, error) {
	exportURL, err := ExportURL(cfg.SheetURL)
	if err != nil {
		return nil, err
	}
	s := &CSVSource{
		exportURL: exportURL,
		ttl:       max(cfg.CacheTTL, 0),
		client:    &http.Client{Timeout: 30 * time.Second},
		clock:     system.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ExportURL returns the URL rows are fetched from.
func (s *CSVSource) ExportURL() string {
	return s.exportURL
}

// Rows returns the worksheet rows, reusing a snapshot younger than the cache TTL.
func (s *CSVSource) Rows(ctx context.Context) ([]podcast.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.ttl > 0 && s.valid && now.Sub(s.fetchedAt) < s.ttl {
		return cloneRows(s.cached), nil
	}
	rows, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cached = rows
	s.fetchedAt = now
	s.valid = true
	s.logger.Debug("spreadsheet snapshot refreshed", zap.Int("rows", len(rows)))
	return cloneRows(rows), nil
}

// Invalidate drops the cached snapshot so the next Rows call refetches.
func (s *CSVSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
	s.cached = nil
}

func (s *CSVSource) fetch(ctx context.Context) ([]podcast.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build export request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet export: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed or abandoned on error
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch spreadsheet export: http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return ParseRows(resp.Body)
}

// ParseRows reads a CSV document whose header names the json and value columns.
func ParseRows(r io.Reader) ([]podcast.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse spreadsheet csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parse spreadsheet csv header: %w", err)
	}
	fileIdx, valueIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case filenameColumn:
			fileIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if fileIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("parse spreadsheet csv: header must contain %q and %q columns", filenameColumn, valueColumn)
	}

	var rows []podcast.Row
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse spreadsheet csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		if fileIdx >= len(rec) || valueIdx >= len(rec) {
			return nil, fmt.Errorf("parse spreadsheet csv: row %d has %d fields", line, len(rec))
		}
		rows = append(rows, podcast.Row{
			Filename: strings.TrimSpace(rec[fileIdx]),
			Value:    rec[valueIdx],
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func cloneRows(rows []podcast.Row) []podcast.Row {
	if rows == nil {
		return nil
	}
	return append([]podcast.Row(nil), rows...)
}
