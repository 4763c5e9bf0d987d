// Package memory contains an in-memory notifier for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []podcast.AddedEvent
	err    error
}

var _ podcast.Notifier = (*Publisher)(nil)

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes subsequent publishes return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the event and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, event podcast.AddedEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns the recorded publishes.
func (p *Publisher) Events() []podcast.AddedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]podcast.AddedEvent, len(p.events))
	copy(out, p.events)
	return out
}
