// Package syncer rebuilds the local record store from the spreadsheet mirror.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// Result summarizes one sync.
type Result struct {
	Rows    int
	Written []string
}

// Syncer copies every spreadsheet row into the store, one file per row.
type Syncer struct {
	rows   podcast.RowSource
	store  podcast.Store
	logger *zap.Logger
}

// New constructs a Syncer.
func New(rows podcast.RowSource, store podcast.Store, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{rows: rows, store: store, logger: logger}
}

// Sync writes each row's value to the file the row names, overwriting
// existing files. The first bad row aborts the run; rows before it stay written.
func (s *Syncer) Sync(ctx context.Context) (res Result, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveSync(len(res.Written), err, time.Since(start))
	}()

	rows, err := s.rows.Rows(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read spreadsheet rows: %w", err)
	}
	res.Rows = len(rows)

	if locker, ok := s.store.(podcast.Locker); ok {
		unlock, lockErr := locker.Lock(ctx)
		if lockErr != nil {
			return res, lockErr
		}
		defer func() {
			if uerr := unlock(); uerr != nil {
				s.logger.Warn("release record store lock", zap.Error(uerr))
			}
		}()
	}

	for i, row := range rows {
		if err := podcast.ValidateFilename(row.Filename); err != nil {
			return res, fmt.Errorf("row %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(row.Value)); err != nil {
			return res, fmt.Errorf("row %d (%s): malformed json: %w", i+1, row.Filename, err)
		}
		if err := s.store.Write(ctx, row.Filename, buf.Bytes()); err != nil {
			return res, fmt.Errorf("row %d: %w", i+1, err)
		}
		res.Written = append(res.Written, row.Filename)
	}

	s.logger.Debug("record store synced",
		zap.Int("rows", res.Rows),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}
