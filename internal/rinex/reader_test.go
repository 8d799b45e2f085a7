package rinex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	lines := ReadLines("first line   \r\nsecond\n\nfourth\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "first line", lines[0])
	assert.Equal(t, "second", lines[1])
	assert.Equal(t, "", lines[2], "blank lines are positional data and must survive")
	assert.Equal(t, "fourth", lines[3])

	assert.Nil(t, ReadLines(""))
}

func TestSplitHeaderBody(t *testing.T) {
	t.Run("marker splits", func(t *testing.T) {
		lines := []string{
			"     2.10           N: GPS NAV DATA                         RINEX VERSION / TYPE",
			"                                                            END OF HEADER",
			" 5 23  9  9  0  0  0.0",
		}
		header, body := SplitHeaderBody(lines)
		require.Len(t, header, 2)
		require.Len(t, body, 1)
		assert.Contains(t, header[1], "END OF HEADER")
	})

	t.Run("no marker means all header", func(t *testing.T) {
		header, body := SplitHeaderBody([]string{"just one line"})
		assert.Len(t, header, 1)
		assert.Nil(t, body)
	})
}

func TestLeapSeconds(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{
			name:   "present",
			header: []string{"    18                                                      LEAP SECONDS"},
			want:   18,
		},
		{
			name:   "older file",
			header: []string{"    13                                                      LEAP SECONDS"},
			want:   13,
		},
		{
			name:   "absent falls back",
			header: []string{"     2.10           N: GPS NAV DATA                         RINEX VERSION / TYPE"},
			want:   DefaultLeapSeconds,
		},
		{
			name:   "malformed field falls back",
			header: []string{"    xx                                                      LEAP SECONDS"},
			want:   DefaultLeapSeconds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeapSeconds(tt.header))
		})
	}
}

func TestHeaderConstellation(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   Constellation
	}{
		{
			name:   "gps nav data",
			header: []string{"     2.10           N: GPS NAV DATA                         RINEX VERSION / TYPE"},
			want:   ConstellationGPS,
		},
		{
			name:   "glonass wins over nav data on the same line",
			header: []string{"     2.10           G: GLONASS NAV DATA                    RINEX VERSION / TYPE"},
			want:   ConstellationGLONASS,
		},
		{
			name:   "nothing recognizable",
			header: []string{"some comment                                                COMMENT"},
			want:   ConstellationUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeaderConstellation(tt.header))
		})
	}
}
