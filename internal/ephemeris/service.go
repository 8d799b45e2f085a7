// Package ephemeris owns the in-memory ephemeris catalog and the
// operations the presentation layer consumes: loading a navigation file,
// listing satellites, and computing a position for one satellite at one
// instant.
package ephemeris

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/metrics"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/orbit"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/rinex"
)

// observationTimeLayouts are the accepted textual forms of an observation
// instant: RFC 3339 and the plain "YYYY-MM-DD HH:MM:SS" form (read as UTC).
var observationTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Service wires the catalog store to the parser and propagator.
type Service struct {
	store  *Store
	pool   *WorkerPool
	logger *slog.Logger
}

// NewService creates a Service computing snapshot batches on workers
// goroutines.
func NewService(store *Store, workers int, logger *slog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:  store,
		pool:   NewWorkerPool(workers, logger),
		logger: logger,
	}
}

// Store returns the underlying catalog store.
func (s *Service) Store() *Store {
	return s.store
}

// Load parses raw navigation file contents and atomically replaces the
// current catalog. Individual malformed blocks are skipped during parsing;
// conditions above the block level come back as named errors.
func (s *Service) Load(contents string) (*rinex.Catalog, error) {
	lines := rinex.ReadLines(contents)
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	header, body := rinex.SplitHeaderBody(lines)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: nothing after header", ErrEmptyFile)
	}
	if c := rinex.HeaderConstellation(header); c == rinex.ConstellationGLONASS {
		return nil, fmt.Errorf("%w: GLONASS navigation file", ErrUnsupportedConstellation)
	}

	leap := rinex.LeapSeconds(header)
	records, skipped := rinex.Parse(body, s.logger)
	if len(records) == 0 {
		return nil, ErrNoEphemerisRecords
	}

	catalog := &rinex.Catalog{
		LeapSeconds: leap,
		Records:     records,
		LoadedAt:    s.store.Clock().Now(),
		Skipped:     skipped,
	}
	s.store.Set(catalog)
	metrics.RecordLoad(len(records), skipped)

	s.logger.Info("ephemeris catalog loaded",
		"records", len(records),
		"skipped_blocks", skipped,
		"satellites", len(catalog.Satellites()),
		"leap_seconds", leap,
	)
	return catalog, nil
}

// Satellites lists the distinct satellite identifiers in the current
// catalog.
func (s *Service) Satellites() ([]string, error) {
	catalog := s.store.Get()
	if catalog == nil {
		return nil, ErrNoCatalog
	}
	return catalog.Satellites(), nil
}

// ComputePosition selects the best record for the satellite and propagates
// it to the observation instant. The chosen record is returned alongside
// the position for diagnostic display.
func (s *Service) ComputePosition(satelliteID string, obsUTC time.Time) (orbit.Position, rinex.Record, error) {
	catalog := s.store.Get()
	if catalog == nil {
		return orbit.Position{}, rinex.Record{}, ErrNoCatalog
	}

	rec, err := Select(catalog, satelliteID, obsUTC)
	if err != nil {
		return orbit.Position{}, rinex.Record{}, err
	}

	start := time.Now()
	pos := orbit.Propagate(rec, obsUTC, catalog.LeapSeconds)
	metrics.ObservePosition(time.Since(start), pos.Finite())

	if !pos.Finite() {
		return pos, rec, fmt.Errorf("non-finite position for %s (degenerate record, Toe=%.0f)", satelliteID, rec.Toe)
	}
	return pos, rec, nil
}

// Snapshot computes positions for every satellite in the catalog at the
// observation instant using the worker pool.
func (s *Service) Snapshot(ctx context.Context, obsUTC time.Time) ([]SatellitePosition, int, int, error) {
	catalog := s.store.Get()
	if catalog == nil {
		return nil, 0, 0, ErrNoCatalog
	}
	positions, ok, failed := s.pool.SnapshotBatch(ctx, catalog, obsUTC)
	return positions, ok, failed, nil
}

// ParseObservationTime parses the textual observation instant used by the
// API and CLI. The plain layout is read as UTC, matching the file format.
func ParseObservationTime(value string) (time.Time, error) {
	for _, layout := range observationTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (want RFC3339 or YYYY-MM-DD HH:MM:SS)", ErrMalformedObservationTime, value)
}
