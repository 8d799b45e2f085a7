// Package orbit implements the IS-GPS-200 broadcast-ephemeris propagation
// algorithm: one ephemeris record plus an observation time in, Earth-fixed
// coordinates out. The algorithm is a pure function of its inputs; there is
// no frame conversion step because the rotation by the corrected longitude
// of the ascending node already lands in ECEF.
package orbit

import (
	"math"
	"time"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/gpstime"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/metrics"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/rinex"
)

// Physical constants fixed by IS-GPS-200 (WGS-84 values).
const (
	Mu         = 3.986005e14 // Earth gravitational constant, m³/s²
	OmegaEarth = 7.292115e-5 // Earth rotation rate, rad/s
)

const (
	keplerMaxIterations = 10
	keplerTolerance     = 1e-12
)

// Position is the propagation result: ECEF coordinates in meters plus the
// intermediate quantities, retained for diagnostic display.
type Position struct {
	X, Y, Z float64 // ECEF, m

	A          float64 // semi-major axis, m
	N0         float64 // uncorrected mean motion, rad/s
	N          float64 // corrected mean motion, rad/s
	Tk         float64 // time from ephemeris epoch, s
	Mk         float64 // mean anomaly, rad
	Ek         float64 // eccentric anomaly, rad
	Vk         float64 // true anomaly, rad
	Phik       float64 // argument of latitude, rad
	Uk         float64 // corrected argument of latitude, rad
	Rk         float64 // corrected radius, m
	Ik         float64 // corrected inclination, rad
	OmegaK     float64 // corrected longitude of ascending node, rad
	Iterations int     // Kepler iterations performed
	Converged  bool    // Kepler iteration reached tolerance within the cap
}

// Distance returns the geocentric distance in meters.
func (p Position) Distance() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Finite reports whether all three coordinates are finite. Numerically
// degenerate records (e.g. SqrtA = 0) produce NaN/Inf instead of an error;
// callers gate on this.
func (p Position) Finite() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Propagate computes the satellite's ECEF position at the given UTC
// observation instant. Deterministic and side-effect free apart from a
// metrics counter on Kepler cap exhaustion.
func Propagate(rec rinex.Record, obs time.Time, leapSeconds int) Position {
	var p Position

	p.A = rec.SqrtA * rec.SqrtA
	p.N0 = math.Sqrt(Mu / (p.A * p.A * p.A))
	p.N = p.N0 + rec.DeltaN

	_, sow := gpstime.ToWeekAndSow(obs, leapSeconds)
	p.Tk = gpstime.FoldHalfWeek(sow - rec.Toe)

	p.Mk = rec.M0 + p.N*p.Tk
	p.Ek, p.Iterations, p.Converged = solveKepler(p.Mk, rec.Ecc)
	if !p.Converged {
		metrics.KeplerExhausted()
	}

	sinEk, cosEk := math.Sin(p.Ek), math.Cos(p.Ek)
	denom := 1 - rec.Ecc*cosEk
	sinVk := math.Sqrt(1-rec.Ecc*rec.Ecc) * sinEk / denom
	cosVk := (cosEk - rec.Ecc) / denom
	p.Vk = math.Atan2(sinVk, cosVk)

	p.Phik = p.Vk + rec.Omega

	sin2Phi, cos2Phi := math.Sin(2*p.Phik), math.Cos(2*p.Phik)
	du := rec.Cus*sin2Phi + rec.Cuc*cos2Phi
	dr := rec.Crs*sin2Phi + rec.Crc*cos2Phi
	di := rec.Cis*sin2Phi + rec.Cic*cos2Phi

	p.Uk = gpstime.WrapAngle(p.Phik + du)
	p.Rk = p.A*denom + dr
	p.Ik = rec.I0 + rec.IDOT*p.Tk + di

	xPrime := p.Rk * math.Cos(p.Uk)
	yPrime := p.Rk * math.Sin(p.Uk)

	// The -OmegaEarth*Toe term found in some derivations is omitted: Toe
	// is already folded into Tk, and the drift term uses Tk consistently.
	p.OmegaK = gpstime.WrapTwoPi(rec.Omega0 + (rec.OmegaDot-OmegaEarth)*p.Tk)

	sinOm, cosOm := math.Sin(p.OmegaK), math.Cos(p.OmegaK)
	cosIk := math.Cos(p.Ik)
	p.X = xPrime*cosOm - yPrime*cosIk*sinOm
	p.Y = xPrime*sinOm + yPrime*cosIk*cosOm
	p.Z = yPrime * math.Sin(p.Ik)

	return p
}

// solveKepler solves Ek = Mk + e·sin(Ek) by fixed-point iteration starting
// at Mk. GPS eccentricities are small (~0.01) so a handful of iterations
// reaches tolerance; if the cap is hit the last iterate is used.
func solveKepler(mk, ecc float64) (ek float64, iterations int, converged bool) {
	ek = mk
	for i := 1; i <= keplerMaxIterations; i++ {
		next := mk + ecc*math.Sin(ek)
		if math.Abs(next-ek) < keplerTolerance {
			return next, i, true
		}
		ek = next
	}
	return ek, keplerMaxIterations, false
}
