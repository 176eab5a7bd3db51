// Package util provides id generation, clocks, date arithmetic and retry helpers for the kitchen engine.
package util

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator provides thread-safe UUIDv7 generation.
// UUIDv7 ids are time-ordered, so consumption logs sort by creation within a millisecond.
type IDGenerator struct {
	mu sync.Mutex
}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID generates a new UUIDv7 identifier from this generator.
func (g *IDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does
		return uuid.NewString()
	}
	return id.String()
}

var generator = NewIDGenerator()

// NewID generates a new UUIDv7 identifier from the package generator.
func NewID() string {
	return generator.NewID()
}

// ParseID validates and normalizes a UUID string.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return id.String(), nil
}

// IsValidID checks if a string is a valid UUID format.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// SequenceIDs returns a generator function yielding prefix-1, prefix-2, ... for tests and seeds.
func SequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
