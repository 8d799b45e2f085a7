package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/auth"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/ephemeris"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/navfile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const navFixture = `     2.10           N: GPS NAV DATA                         RINEX VERSION / TYPE
CCRINEXN V1.6.0 UX  CDDIS               09-SEP-23 01:02     PGM / RUN BY / DATE
    18                                                      LEAP SECONDS
                                                            END OF HEADER
 5 23  9  9  0  0  0.0 0.123456789012D-03 0.250000000000D-10 0.000000000000D+00
    0.890000000000D+02 0.293750000000D+02 0.482270089806D-08 0.131003527610D+01
    0.150874257088D-05 0.114379595034D-01 0.810064375401D-05 0.515365552902D+04
    0.518400000000D+06 0.111758708954D-06-0.130000000000D+01 0.204890966415D-07
    0.959341212366D+00 0.206093750000D+03-0.170000000000D+01-0.800000000000D-08
    0.400000000000D-09 0.100000000000D+01 0.227800000000D+04 0.000000000000D+00
    0.240000000000D+01 0.000000000000D+00 0.465661287308D-09 0.890000000000D+02
    0.511400000000D+06 0.400000000000D+01
17 23  9  9  0  0  0.0 0.654296875000D-03 0.113686837722D-11 0.000000000000D+00
    0.120000000000D+02 0.478125000000D+02 0.412802907446D-08 0.296036146302D+01
    0.251457095146D-05 0.136585600534D-01 0.790506601334D-05 0.515377032280D+04
    0.518400000000D+06 0.745058059692D-07 0.986371060598D+00 0.139698386192D-07
    0.977103477025D+00 0.230687500000D+03 0.236980510200D+01 0.793140173534D-08
    0.442518432622D-09 0.100000000000D+01 0.227800000000D+04 0.000000000000D+00
    0.240000000000D+01 0.000000000000D+00 0.512227416039D-08 0.120000000000D+02
    0.511218000000D+06 0.400000000000D+01
`

const glonassFixture = `     2.10           G: GLONASS NAV DATA                     RINEX VERSION / TYPE
                                                            END OF HEADER
 1 23  9  9  0  0  0.0 0.1D-03 0.2D-10 0.0D+00
`

type testServerOpts struct {
	cfg      Config
	authCfg  auth.Config
	navCache *navfile.Cache
}

func newTestServer(t *testing.T, opts testServerOpts) (*httptest.Server, *ephemeris.Service) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2023, 9, 9, 0, 30, 0, 0, time.UTC))
	svc := ephemeris.NewService(ephemeris.NewStore(clock), 2, testLogger())

	srv := NewServer(opts.cfg, testLogger(), opts.authCfg, svc, opts.navCache)
	ts := httptest.NewServer(srv.HTTPServer().Handler)
	t.Cleanup(ts.Close)
	return ts, svc
}

func postNavFile(t *testing.T, ts *httptest.Server, contents string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/ephemerides", "text/plain", strings.NewReader(contents))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestLoadEndpoint(t *testing.T) {
	navDir := t.TempDir()
	ts, _ := newTestServer(t, testServerOpts{navCache: navfile.NewCache(navDir, 3)})

	resp := postNavFile(t, ts, navFixture)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Records     int `json:"records"`
		Satellites  int `json:"satellites"`
		Skipped     int `json:"skipped"`
		LeapSeconds int `json:"leap_seconds"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, 2, body.Records)
	assert.Equal(t, 2, body.Satellites)
	assert.Zero(t, body.Skipped)
	assert.Equal(t, 18, body.LeapSeconds)

	// The accepted file is retained for restart recovery.
	entries, err := os.ReadDir(navDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	retained, err := os.ReadFile(filepath.Join(navDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, navFixture, string(retained))
}

func TestLoadEndpointRejections(t *testing.T) {
	t.Run("glonass file", func(t *testing.T) {
		ts, _ := newTestServer(t, testServerOpts{})
		resp := postNavFile(t, ts, glonassFixture)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("empty file", func(t *testing.T) {
		ts, _ := newTestServer(t, testServerOpts{})
		resp := postNavFile(t, ts, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("oversized file", func(t *testing.T) {
		ts, _ := newTestServer(t, testServerOpts{cfg: Config{MaxUploadBytes: 16}})
		resp := postNavFile(t, ts, strings.Repeat("x", 64))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

func TestSatellitesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, testServerOpts{})

	t.Run("before any load", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/satellites")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	resp := postNavFile(t, ts, navFixture)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("after load", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/satellites")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Satellites []string `json:"satellites"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, []string{"G05", "G17"}, body.Satellites)
	})
}

func TestPositionEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, testServerOpts{})
	resp := postNavFile(t, ts, navFixture)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("explicit time", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/position/G05?time=2023-09-09T00:30:00Z")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Satellite string `json:"satellite"`
			ECEF      struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
				Z float64 `json:"z"`
			} `json:"ecef_m"`
			Distance      float64 `json:"geocentric_distance_m"`
			Intermediates struct {
				TimeFromEpoch   float64 `json:"time_from_epoch_s"`
				KeplerConverged bool    `json:"kepler_converged"`
			} `json:"intermediates"`
			Record struct {
				Toe float64 `json:"toe_s"`
			} `json:"record"`
		}
		decodeJSON(t, resp, &body)

		assert.Equal(t, "G05", body.Satellite)
		assert.InDelta(t, 26.56e6, body.Distance, 0.4e6)
		assert.Equal(t, 518400.0, body.Record.Toe)
		// 00:30 UTC plus 18 leap seconds past the 518400 s epoch.
		assert.InDelta(t, 1818, body.Intermediates.TimeFromEpoch, 1e-6)
		assert.True(t, body.Intermediates.KeplerConverged)
	})

	t.Run("default time uses service clock", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/position/G05")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("malformed time", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/position/G05?time=noon")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown satellite", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/position/G99?time=2023-09-09T00:30:00Z")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, testServerOpts{})

	t.Run("before any load", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/positions")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	resp := postNavFile(t, ts, navFixture)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("after load", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/positions?time=2023-09-09T00:30:00Z")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Count     int `json:"count"`
			Failed    int `json:"failed"`
			Positions []struct {
				Satellite string  `json:"satellite"`
				Distance  float64 `json:"geocentric_distance_m"`
			} `json:"positions"`
		}
		decodeJSON(t, resp, &body)

		assert.Equal(t, 2, body.Count)
		assert.Zero(t, body.Failed)
		require.Len(t, body.Positions, 2)
		for _, p := range body.Positions {
			assert.InDelta(t, 26.56e6, p.Distance, 0.5e6, "satellite %s", p.Satellite)
		}
	})
}

func TestAuthProtectsUpload(t *testing.T) {
	ts, _ := newTestServer(t, testServerOpts{
		authCfg: auth.Config{Enabled: true, Token: "hunter2"},
	})

	t.Run("upload without token", func(t *testing.T) {
		resp := postNavFile(t, ts, navFixture)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("upload with token", func(t *testing.T) {
		req, err := http.NewRequest("POST", ts.URL+"/api/v1/ephemerides", strings.NewReader(navFixture))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer hunter2")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("read endpoints stay public", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/satellites")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRateLimitComputeEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, testServerOpts{
		cfg: Config{RateLimitRPS: 0.001, RateLimitBurst: 1},
	})
	resp := postNavFile(t, ts, navFixture)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	first, err := http.Get(ts.URL + "/api/v1/positions?time=2023-09-09T00:30:00Z")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/api/v1/positions?time=2023-09-09T00:30:00Z")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	// Non-compute endpoints are not limited.
	satellites, err := http.Get(ts.URL + "/api/v1/satellites")
	require.NoError(t, err)
	satellites.Body.Close()
	assert.Equal(t, http.StatusOK, satellites.StatusCode)
}

func TestProbes(t *testing.T) {
	ts, _ := newTestServer(t, testServerOpts{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
