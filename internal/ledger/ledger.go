// Package ledger holds the no-op submission ledger used when no database is configured.
package ledger

import (
	"context"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// NoOp discards submissions and reports none.
type NoOp struct{}

var _ podcast.Ledger = NoOp{}

// Record does nothing.
func (NoOp) Record(context.Context, podcast.Submission) error { return nil }

// Recent always returns an empty list.
func (NoOp) Recent(context.Context, int) ([]podcast.Submission, error) {
	return []podcast.Submission{}, nil
}
