package podcast

import (
	"context"
	"time"
)

// Store persists record files by name.
type Store interface {
	// List returns the names of all .json records in listing order.
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	// Write creates or overwrites name.
	Write(ctx context.Context, name string, data []byte) error
	// Create writes name only if it does not exist yet, returning ErrExists otherwise.
	Create(ctx context.Context, name string, data []byte) error
}

// Locker is implemented by stores that can serialize bulk operations across processes.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
	RLock(ctx context.Context) (unlock func() error, err error)
}

// RowSource reads the spreadsheet mirror.
type RowSource interface {
	Rows(ctx context.Context) ([]Row, error)
}

// RowAppender appends rows to the spreadsheet mirror and returns the updated range.
type RowAppender interface {
	Append(ctx context.Context, row Row) (string, error)
}

// Processor turns a feed URL into a finished record.
type Processor interface {
	ProcessFeed(ctx context.Context, feedURL string) (Record, error)
}

// FeedChecker verifies a URL serves a parseable feed before it is processed.
type FeedChecker interface {
	Check(ctx context.Context, feedURL string) (FeedSummary, error)
}

// FeedSummary describes a feed that passed the check.
type FeedSummary struct {
	Title string
	Items int
}

// Ledger records processed submissions.
type Ledger interface {
	Record(ctx context.Context, sub Submission) error
	Recent(ctx context.Context, limit int) ([]Submission, error)
}

// Notifier announces newly added records.
type Notifier interface {
	Publish(ctx context.Context, event AddedEvent) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
