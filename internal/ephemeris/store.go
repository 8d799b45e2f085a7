package ephemeris

import (
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/rinex"
)

// Store provides thread-safe access to the current ephemeris catalog.
// The catalog is immutable once built; a new load replaces it wholesale,
// so a concurrent request observes either the old complete catalog or the
// new complete one, never a partial build.
type Store struct {
	catalog atomic.Pointer[rinex.Catalog]
	clock   clockwork.Clock
}

// NewStore creates an empty Store. A nil clock means real time; tests
// inject a fake for deterministic age readings.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{clock: clock}
}

// Get returns the current catalog, or nil if none has been loaded.
func (s *Store) Get() *rinex.Catalog {
	return s.catalog.Load()
}

// Set atomically replaces the current catalog.
func (s *Store) Set(c *rinex.Catalog) {
	s.catalog.Store(c)
}

// AgeSeconds returns the age of the current catalog in seconds, or -1 if
// none is loaded.
func (s *Store) AgeSeconds() float64 {
	c := s.catalog.Load()
	if c == nil {
		return -1
	}
	return s.clock.Since(c.LoadedAt).Seconds()
}

// Clock returns the store's time source.
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}
