package rinex

import (
	"bufio"
	"strconv"
	"strings"
)

// headerTerminator ends the header section of a RINEX navigation file.
const headerTerminator = "END OF HEADER"

// DefaultLeapSeconds is assumed when the header carries no usable
// LEAP SECONDS field. A few seconds of leap drift moves the computed
// position far less than refusing the file would cost.
const DefaultLeapSeconds = 18

// Constellation is the satellite system a navigation file declares in its
// header.
type Constellation int

const (
	ConstellationUnknown Constellation = iota
	ConstellationGPS
	ConstellationGLONASS
)

// ReadLines splits raw file contents into lines with trailing whitespace
// and CR/LF trimmed. Blank lines are kept: the data section is positional
// and dropping lines would shift every following 8-line block.
func ReadLines(contents string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(contents))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r\n "))
	}
	return lines
}

// SplitHeaderBody splits the file's lines into header and data sections.
// Everything up to and including the first line containing the END OF
// HEADER marker is header; the rest is body. An empty body signals "no
// data" to the caller.
func SplitHeaderBody(lines []string) (header, body []string) {
	for i, ln := range lines {
		if strings.Contains(ln, headerTerminator) {
			return lines[:i+1], lines[i+1:]
		}
	}
	return lines, nil
}

// LeapSeconds scans header lines for the LEAP SECONDS field and parses the
// integer in its first 6 columns. Absent or malformed yields
// DefaultLeapSeconds.
func LeapSeconds(header []string) int {
	for _, ln := range header {
		if !strings.Contains(ln, "LEAP SECONDS") {
			continue
		}
		end := 6
		if len(ln) < end {
			end = len(ln)
		}
		n, err := strconv.Atoi(strings.TrimSpace(ln[:end]))
		if err != nil {
			return DefaultLeapSeconds
		}
		return n
	}
	return DefaultLeapSeconds
}

// HeaderConstellation infers the file's satellite system from its header
// text. The first line naming a system wins; GLONASS is checked before GPS
// on each line because GLONASS headers may also contain "NAV DATA".
func HeaderConstellation(header []string) Constellation {
	for _, ln := range header {
		upper := strings.ToUpper(ln)
		if strings.Contains(upper, "GLONASS") {
			return ConstellationGLONASS
		}
		if strings.Contains(upper, "GPS") || strings.Contains(upper, "NAV DATA") {
			return ConstellationGPS
		}
	}
	return ConstellationUnknown
}
