// Package uuid generates time-ordered identifiers for submissions and
// collision-free record names.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// Generator creates UUID v7 strings.
type Generator struct{}

var _ podcast.IDGenerator = Generator{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// RecordName returns a record file name of the form podcast-<uuid7>.json.
func (g Generator) RecordName() (string, error) {
	id, err := g.NewID()
	if err != nil {
		return "", err
	}
	return "podcast-" + id + ".json", nil
}
