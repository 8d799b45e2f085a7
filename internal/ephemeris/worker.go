package ephemeris

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/orbit"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/rinex"
)

// SatellitePosition pairs a satellite identifier with its computed
// position at a snapshot instant.
type SatellitePosition struct {
	SatelliteID string
	Position    orbit.Position
}

// snapshotJob is a unit of work for the worker pool: one satellite at the
// shared observation instant.
type snapshotJob struct {
	satelliteID string
}

type snapshotResult struct {
	position    SatellitePosition
	satelliteID string
	err         error
}

// WorkerPool computes whole-catalog snapshots on a fixed number of
// goroutines. Propagation itself is cheap; the pool bounds work when a
// file carries many satellites and keeps cancellation responsive.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{workers: workers, logger: logger}
}

// SnapshotBatch computes a position for every satellite in the catalog at
// the observation instant. Satellites whose propagation produces a
// non-finite result are logged and skipped. Returns the positions and the
// success and failure counts.
func (wp *WorkerPool) SnapshotBatch(ctx context.Context, catalog *rinex.Catalog, obsUTC time.Time) ([]SatellitePosition, int, int) {
	ids := catalog.Satellites()
	if len(ids) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan snapshotJob, wp.workers*2)
	results := make(chan snapshotResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := snapshotSingle(catalog, job.satelliteID, obsUTC)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range ids {
			select {
			case jobs <- snapshotJob{satelliteID: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]SatellitePosition, 0, len(ids))
	var successCount, errorCount int
	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("snapshot position failed",
				"satellite", result.satelliteID,
				"error", result.err,
			)
			continue
		}
		successCount++
		positions = append(positions, result.position)
	}

	return positions, successCount, errorCount
}

// snapshotSingle selects and propagates one satellite.
func snapshotSingle(catalog *rinex.Catalog, satelliteID string, obsUTC time.Time) snapshotResult {
	rec, err := Select(catalog, satelliteID, obsUTC)
	if err != nil {
		return snapshotResult{satelliteID: satelliteID, err: err}
	}

	pos := orbit.Propagate(rec, obsUTC, catalog.LeapSeconds)
	if !pos.Finite() {
		return snapshotResult{
			satelliteID: satelliteID,
			err:         fmt.Errorf("non-finite position (Toe=%.0f)", rec.Toe),
		}
	}

	return snapshotResult{
		satelliteID: satelliteID,
		position:    SatellitePosition{SatelliteID: satelliteID, Position: pos},
	}
}
