// Package system provides the wall clock used outside tests.
package system

import (
	"time"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

var _ podcast.Clock = Clock{}

// Clock implements podcast.Clock using time.Now in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
