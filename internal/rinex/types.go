package rinex

import (
	"sort"
	"time"
)

// Record is one broadcast navigation message for one GPS satellite at one
// reference epoch. Immutable once parsed.
type Record struct {
	SatelliteID string    // "G" + zero-padded PRN, e.g. "G05"
	Toc         time.Time // clock-correction reference epoch (UTC)

	// Clock polynomial terms. Exposed as data only; no clock correction
	// is applied anywhere in this package.
	Af0 float64 // clock bias, s
	Af1 float64 // clock drift, s/s
	Af2 float64 // clock drift rate, s/s²

	IODE     float64 // issue of data, ephemeris
	Crs      float64 // radius sine correction amplitude, m
	DeltaN   float64 // mean motion difference, rad/s
	M0       float64 // mean anomaly at reference epoch, rad
	Cuc      float64 // argument-of-latitude cosine correction, rad
	Ecc      float64 // eccentricity
	Cus      float64 // argument-of-latitude sine correction, rad
	SqrtA    float64 // square root of semi-major axis, m^0.5
	Toe      float64 // time of ephemeris, seconds of GPS week
	Cic      float64 // inclination cosine correction, rad
	Omega0   float64 // longitude of ascending node at epoch, rad
	Cis      float64 // inclination sine correction, rad
	I0       float64 // inclination at reference epoch, rad
	Crc      float64 // radius cosine correction amplitude, m
	Omega    float64 // argument of perigee, rad
	OmegaDot float64 // rate of right ascension, rad/s
	IDOT     float64 // inclination rate, rad/s
}

// Catalog is the complete set of records parsed from one navigation file,
// plus the leap-second count valid for the whole file. A catalog is never
// edited in place; re-parsing a file produces a fresh one.
type Catalog struct {
	LeapSeconds int
	Records     []Record
	LoadedAt    time.Time
	Skipped     int // data blocks dropped as malformed
}

// Satellites returns the sorted distinct satellite identifiers in the catalog.
func (c *Catalog) Satellites() []string {
	seen := make(map[string]bool, len(c.Records))
	var ids []string
	for _, rec := range c.Records {
		if !seen[rec.SatelliteID] {
			seen[rec.SatelliteID] = true
			ids = append(ids, rec.SatelliteID)
		}
	}
	sort.Strings(ids)
	return ids
}
