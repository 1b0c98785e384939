package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now for team timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the uuid-based team identity generator.
func WithIDGenerator(next func() string) Option {
	return func(s *MemoryStore) {
		if next != nil {
			s.newID = next
		}
	}
}

func newUUID() string { return uuid.NewString() }
