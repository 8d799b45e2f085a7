package rinex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches one numeric literal embedded in fixed-format text:
// optional sign, digits, optional fraction, optional exponent whose marker
// may be the legacy FORTRAN D/d as well as E/e. Extracting whole literals
// instead of slicing nominal 19-character columns keeps values readable
// when a producer lets a field overflow its column.
var numberPattern = regexp.MustCompile(`[+-]?\d+(?:\.\d*)?(?:[DEde][+-]?\d+)?`)

// Tokens returns the numeric literals found in s, in input order,
// unconverted.
func Tokens(s string) []string {
	return numberPattern.FindAllString(s, -1)
}

// ParseFloat converts a single token to float64, normalizing a D/d
// exponent marker to E first.
func ParseFloat(tok string) (float64, error) {
	if strings.ContainsAny(tok, "Dd") {
		tok = strings.Replace(tok, "D", "E", 1)
		tok = strings.Replace(tok, "d", "e", 1)
	}
	return strconv.ParseFloat(tok, 64)
}

// FieldsPadded extracts up to n numeric values from s. Missing trailing
// values default to 0.0: reserved fields at the end of a broadcast line
// are routinely left blank, so a short line is data, not an error.
func FieldsPadded(s string, n int) ([]float64, error) {
	toks := Tokens(s)
	vals := make([]float64, n)
	for i := 0; i < n && i < len(toks); i++ {
		v, err := ParseFloat(toks[i])
		if err != nil {
			return nil, fmt.Errorf("field %d %q: %w", i+1, toks[i], err)
		}
		vals[i] = v
	}
	return vals, nil
}
