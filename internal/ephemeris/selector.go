package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/gpstime"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/rinex"
)

// Select picks the single best ephemeris record for the satellite at the
// given UTC observation instant: the record whose Toe has the smallest
// absolute week-folded offset from the observation's seconds-of-week.
// Folding matters because time-of-week resets every 604800 s and a raw
// difference would misrank records near a week boundary. Ties go to the
// earliest record in catalog order.
func Select(catalog *rinex.Catalog, satelliteID string, obsUTC time.Time) (rinex.Record, error) {
	_, sow := gpstime.ToWeekAndSow(obsUTC, catalog.LeapSeconds)

	best := -1
	bestOffset := math.Inf(1)
	for i, rec := range catalog.Records {
		if rec.SatelliteID != satelliteID {
			continue
		}
		offset := math.Abs(gpstime.FoldedOffset(sow, rec.Toe))
		if offset < bestOffset {
			best = i
			bestOffset = offset
		}
	}
	if best < 0 {
		return rinex.Record{}, fmt.Errorf("%w: %s", ErrNoEphemerisForSatellite, satelliteID)
	}
	return catalog.Records[best], nil
}
