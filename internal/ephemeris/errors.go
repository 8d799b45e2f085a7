package ephemeris

import "errors"

// Load and computation failures, surfaced as distinct named conditions so
// callers can explain why nothing was produced. None of these is ever
// downgraded to a log line.
var (
	// ErrEmptyFile: no lines read, or no data section after the header.
	ErrEmptyFile = errors.New("navigation file has no data")
	// ErrUnsupportedConstellation: the file declares a non-GPS system.
	ErrUnsupportedConstellation = errors.New("unsupported constellation")
	// ErrNoEphemerisRecords: a data section was present but zero blocks
	// survived parsing.
	ErrNoEphemerisRecords = errors.New("no ephemeris records parsed")
	// ErrNoEphemerisForSatellite: catalog is non-empty but holds no record
	// for the requested satellite.
	ErrNoEphemerisForSatellite = errors.New("no ephemeris for satellite")
	// ErrMalformedObservationTime: the observation instant cannot be
	// parsed into a calendar timestamp.
	ErrMalformedObservationTime = errors.New("malformed observation time")
	// ErrNoCatalog: no navigation file has been loaded yet.
	ErrNoCatalog = errors.New("no ephemeris catalog loaded")
)
