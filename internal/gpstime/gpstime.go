// Package gpstime converts between UTC instants and the GPS time scale and
// provides the wraparound helpers the orbit algorithm depends on. GPS time
// runs ahead of UTC by the accumulated leap seconds and counts in weeks of
// 604800 seconds from 1980-01-06T00:00:00Z.
package gpstime

import (
	"math"
	"time"
)

const (
	// SecondsPerWeek is the length of one GPS week.
	SecondsPerWeek = 604800.0
	// HalfWeek bounds the signed time-from-epoch interval.
	HalfWeek = 302400.0
)

var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// ToWeekAndSow converts a UTC instant to GPS week number and seconds of
// week.
func ToWeekAndSow(utc time.Time, leapSeconds int) (week int, sow float64) {
	gps := utc.UTC().Add(time.Duration(leapSeconds) * time.Second)
	total := gps.Sub(gpsEpoch).Seconds()
	week = int(math.Floor(total / SecondsPerWeek))
	sow = total - float64(week)*SecondsPerWeek
	return week, sow
}

// FoldHalfWeek wraps a time difference into [-302400, 302400] seconds by
// repeatedly adding or subtracting whole weeks. Time-of-week resets every
// week, so a raw sow-Toe difference near a boundary would be off by a
// whole week.
func FoldHalfWeek(tk float64) float64 {
	for tk > HalfWeek {
		tk -= SecondsPerWeek
	}
	for tk < -HalfWeek {
		tk += SecondsPerWeek
	}
	return tk
}

// FoldedOffset returns the signed offset of sow from toe folded into
// [-302400, 302400): ((sow - toe + 302400) mod 604800) - 302400 with a
// non-negative modulo.
func FoldedOffset(sow, toe float64) float64 {
	m := math.Mod(sow-toe+HalfWeek, SecondsPerWeek)
	if m < 0 {
		m += SecondsPerWeek
	}
	return m - HalfWeek
}

// WrapAngle wraps an angle into [-π, π]. Used purely for numerical
// conditioning of downstream trig.
func WrapAngle(x float64) float64 {
	m := math.Mod(x+math.Pi, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return m - math.Pi
}

// WrapTwoPi wraps an angle into [0, 2π).
func WrapTwoPi(x float64) float64 {
	m := math.Mod(x, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return m
}
