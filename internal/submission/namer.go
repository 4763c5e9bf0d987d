package submission

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// DefaultMaxAttempts bounds how often SequentialNamer re-scans after losing a race.
const DefaultMaxAttempts = 5

var sequentialName = regexp.MustCompile(`^podcast-(\d+)\.json$`)

// Namer picks a fresh record name and creates the file without overwriting anything.
type Namer interface {
	Create(ctx context.Context, data []byte) (string, error)
}

// NextFilename returns podcast-<max+1>.json over the names matching
// podcast-<N>.json, or podcast-1.json when none match.
func NextFilename(names []string) string {
	highest := 0
	for _, name := range names {
		m := sequentialName.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return "podcast-" + strconv.Itoa(highest+1) + ".json"
}

// SequentialNamer numbers records podcast-1.json, podcast-2.json, ...
type SequentialNamer struct {
	Store podcast.Store
	// Rows, when set, adds the spreadsheet's file names to the scan so a row
	// that has not been synced into Store yet is not renumbered.
	Rows        podcast.RowSource
	MaxAttempts int
}

// Create lists the store and the spreadsheet, creates the next sequential
// name exclusively and re-scans when another writer took that name first.
func (n SequentialNamer) Create(ctx context.Context, data []byte) (string, error) {
	attempts := n.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var lastErr error
	for range attempts {
		names, err := n.names(ctx)
		if err != nil {
			return "", err
		}
		name := NextFilename(names)
		err = n.Store.Create(ctx, name, data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, podcast.ErrExists) {
			return "", fmt.Errorf("create %s: %w", name, err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("no free record name after %d attempts: %w", attempts, lastErr)
}

func (n SequentialNamer) names(ctx context.Context) ([]string, error) {
	names, err := n.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if n.Rows == nil {
		return names, nil
	}
	if inv, ok := n.Rows.(Invalidator); ok {
		inv.Invalidate()
	}
	rows, err := n.Rows.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet rows: %w", err)
	}
	for _, row := range rows {
		names = append(names, row.Filename)
	}
	return names, nil
}

// RecordNamer produces unique record names.
type RecordNamer interface {
	RecordName() (string, error)
}

// UUIDNamer names records podcast-<uuid>.json.
type UUIDNamer struct {
	Store podcast.Store
	IDs   RecordNamer
}

// Create writes data under a freshly generated name.
func (n UUIDNamer) Create(ctx context.Context, data []byte) (string, error) {
	name, err := n.IDs.RecordName()
	if err != nil {
		return "", err
	}
	if err := n.Store.Create(ctx, name, data); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return name, nil
}
