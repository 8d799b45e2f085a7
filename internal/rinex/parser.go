package rinex

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// blockLines is the fixed number of lines per satellite block in a RINEX 2
// navigation file.
const blockLines = 8

// minClockTokens is the required token count on the time/clock line:
// 6 epoch components, clock bias and clock drift. Clock drift rate is
// optional and defaults to 0.
const minClockTokens = 8

// Silent skip reasons. Neither marks the file as damaged: blank satellite
// numbers are end-of-data padding, and non-GPS records are simply not ours
// to parse.
var (
	errBlankSatNumber = errors.New("blank satellite number")
	errNonGPS         = errors.New("non-GPS record")
)

// Parse consumes the data section in fixed 8-line blocks and returns the
// records that survived plus the count of blocks dropped as malformed.
// A single bad block never aborts the remaining file; the returned slice
// may be empty, which callers must treat as "no usable ephemerides".
// A trailing partial block is discarded.
func Parse(body []string, logger *slog.Logger) ([]Record, int) {
	var records []Record
	var skipped int
	for i := 0; i+blockLines <= len(body); i += blockLines {
		rec, err := parseBlock(body[i : i+blockLines])
		if err != nil {
			if errors.Is(err, errBlankSatNumber) || errors.Is(err, errNonGPS) {
				continue
			}
			skipped++
			logger.Warn("skipping malformed ephemeris block", "line", i+1, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// parseBlock turns one 8-line satellite block into a Record. Lines 7-8
// carry transmission time, health and accuracy fields that this system
// does not consume.
func parseBlock(seg []string) (Record, error) {
	first := seg[0]
	if len(first) < 2 {
		first += strings.Repeat(" ", 2-len(first))
	}
	prnField := strings.TrimSpace(first[:2])
	if prnField == "" {
		return Record{}, errBlankSatNumber
	}
	if prnField[0] == 'R' || prnField[0] == 'E' {
		return Record{}, errNonGPS
	}
	prn, err := strconv.Atoi(prnField)
	if err != nil {
		return Record{}, fmt.Errorf("satellite number %q: %w", prnField, err)
	}

	rec := Record{SatelliteID: fmt.Sprintf("G%02d", prn)}

	toks := Tokens(first[2:])
	if len(toks) < minClockTokens {
		return Record{}, fmt.Errorf("time/clock line has %d numeric fields, need %d", len(toks), minClockTokens)
	}
	rec.Toc, err = parseEpoch(toks[:6])
	if err != nil {
		return Record{}, fmt.Errorf("reference epoch: %w", err)
	}
	if rec.Af0, err = ParseFloat(toks[6]); err != nil {
		return Record{}, fmt.Errorf("clock bias: %w", err)
	}
	if rec.Af1, err = ParseFloat(toks[7]); err != nil {
		return Record{}, fmt.Errorf("clock drift: %w", err)
	}
	if len(toks) > 8 {
		if rec.Af2, err = ParseFloat(toks[8]); err != nil {
			return Record{}, fmt.Errorf("clock drift rate: %w", err)
		}
	}

	// Lines 2-6 carry 4 orbit parameters each, starting after the
	// 3-column indent.
	orbit := make([][]float64, 5)
	for k := 0; k < 5; k++ {
		ln := seg[k+1]
		if len(ln) > 3 {
			ln = ln[3:]
		} else {
			ln = ""
		}
		vals, err := FieldsPadded(ln, 4)
		if err != nil {
			return Record{}, fmt.Errorf("orbit line %d: %w", k+2, err)
		}
		orbit[k] = vals
	}

	rec.IODE, rec.Crs, rec.DeltaN, rec.M0 = orbit[0][0], orbit[0][1], orbit[0][2], orbit[0][3]
	rec.Cuc, rec.Ecc, rec.Cus, rec.SqrtA = orbit[1][0], orbit[1][1], orbit[1][2], orbit[1][3]
	rec.Toe, rec.Cic, rec.Omega0, rec.Cis = orbit[2][0], orbit[2][1], orbit[2][2], orbit[2][3]
	rec.I0, rec.Crc, rec.Omega, rec.OmegaDot = orbit[3][0], orbit[3][1], orbit[3][2], orbit[3][3]
	rec.IDOT = orbit[4][0] // remaining three fields are reserved

	return rec, nil
}

// parseEpoch builds the UTC reference epoch from the six leading tokens of
// the time/clock line: 2-digit year, month, day, hour, minute, second.
// Years below 80 belong to the 2000s, the rest to the 1900s.
func parseEpoch(toks []string) (time.Time, error) {
	var v [6]float64
	for i, tok := range toks {
		f, err := ParseFloat(tok)
		if err != nil {
			return time.Time{}, fmt.Errorf("component %d %q: %w", i+1, tok, err)
		}
		v[i] = f
	}

	year := int(v[0])
	if year >= 80 {
		year += 1900
	} else {
		year += 2000
	}
	month, day := int(v[1]), int(v[2])
	hour, minute, sec := int(v[3]), int(v[4]), int(v[5])

	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || minute < 0 || minute > 59 || sec < 0 || sec > 60 {
		return time.Time{}, fmt.Errorf("calendar components out of range: %v", v)
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC), nil
}
