package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/ephemeris"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/orbit"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/rinex"
)

type ecefJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// intermediatesJSON exposes the propagation's intermediate quantities for
// diagnostic display.
type intermediatesJSON struct {
	SemiMajorAxis      float64 `json:"semi_major_axis_m"`
	MeanMotion         float64 `json:"corrected_mean_motion_rad_s"`
	TimeFromEpoch      float64 `json:"time_from_epoch_s"`
	MeanAnomaly        float64 `json:"mean_anomaly_rad"`
	EccentricAnomaly   float64 `json:"eccentric_anomaly_rad"`
	TrueAnomaly        float64 `json:"true_anomaly_rad"`
	ArgumentOfLatitude float64 `json:"corrected_argument_of_latitude_rad"`
	Radius             float64 `json:"corrected_radius_m"`
	Inclination        float64 `json:"corrected_inclination_rad"`
	LongitudeOfNode    float64 `json:"corrected_longitude_of_node_rad"`
	KeplerIterations   int     `json:"kepler_iterations"`
	KeplerConverged    bool    `json:"kepler_converged"`
}

type recordJSON struct {
	ReferenceEpoch time.Time `json:"reference_epoch"`
	ClockBias      float64   `json:"clock_bias_s"`
	ClockDrift     float64   `json:"clock_drift_s_s"`
	ClockDriftRate float64   `json:"clock_drift_rate_s_s2"`
	IODE           float64   `json:"iode"`
	Toe            float64   `json:"toe_s"`
	SqrtA          float64   `json:"sqrt_a"`
	Eccentricity   float64   `json:"eccentricity"`
}

type positionResponse struct {
	Satellite     string            `json:"satellite"`
	Time          time.Time         `json:"time"`
	ECEF          ecefJSON          `json:"ecef_m"`
	Distance      float64           `json:"geocentric_distance_m"`
	Intermediates intermediatesJSON `json:"intermediates"`
	Record        recordJSON        `json:"record"`
}

func newPositionResponse(sat string, obs time.Time, pos orbit.Position, rec rinex.Record) positionResponse {
	return positionResponse{
		Satellite: sat,
		Time:      obs,
		ECEF:      ecefJSON{X: pos.X, Y: pos.Y, Z: pos.Z},
		Distance:  pos.Distance(),
		Intermediates: intermediatesJSON{
			SemiMajorAxis:      pos.A,
			MeanMotion:         pos.N,
			TimeFromEpoch:      pos.Tk,
			MeanAnomaly:        pos.Mk,
			EccentricAnomaly:   pos.Ek,
			TrueAnomaly:        pos.Vk,
			ArgumentOfLatitude: pos.Uk,
			Radius:             pos.Rk,
			Inclination:        pos.Ik,
			LongitudeOfNode:    pos.OmegaK,
			KeplerIterations:   pos.Iterations,
			KeplerConverged:    pos.Converged,
		},
		Record: recordJSON{
			ReferenceEpoch: rec.Toc,
			ClockBias:      rec.Af0,
			ClockDrift:     rec.Af1,
			ClockDriftRate: rec.Af2,
			IODE:           rec.IODE,
			Toe:            rec.Toe,
			SqrtA:          rec.SqrtA,
			Eccentricity:   rec.Ecc,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errorStatus maps the named failure conditions to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ephemeris.ErrMalformedObservationTime):
		return http.StatusBadRequest
	case errors.Is(err, ephemeris.ErrNoEphemerisForSatellite):
		return http.StatusNotFound
	case errors.Is(err, ephemeris.ErrNoCatalog):
		return http.StatusConflict
	case errors.Is(err, ephemeris.ErrEmptyFile),
		errors.Is(err, ephemeris.ErrUnsupportedConstellation),
		errors.Is(err, ephemeris.ErrNoEphemerisRecords):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// loadHandler accepts raw navigation file text and replaces the catalog.
func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if int64(len(body)) > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("navigation file too large"))
		return
	}

	catalog, err := s.svc.Load(string(body))
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	if s.navCache != nil {
		if err := s.navCache.Write(body, s.svc.Store().Clock().Now()); err != nil {
			// Retention is best-effort; the catalog itself loaded fine.
			s.logger.Warn("failed to retain navigation file", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":      len(catalog.Records),
		"satellites":   len(catalog.Satellites()),
		"skipped":      catalog.Skipped,
		"leap_seconds": catalog.LeapSeconds,
	})
}

// satellitesHandler lists the distinct satellite IDs in the catalog.
func (s *Server) satellitesHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Satellites()
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"satellites": ids})
}

// observationTime reads the optional time query parameter, defaulting to
// the service clock's now.
func (s *Server) observationTime(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("time")
	if raw == "" {
		return s.svc.Store().Clock().Now().UTC(), nil
	}
	return ephemeris.ParseObservationTime(raw)
}

// positionHandler computes one satellite's ECEF position.
func (s *Server) positionHandler(w http.ResponseWriter, r *http.Request) {
	sat := r.PathValue("sat")

	obs, err := s.observationTime(r)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	pos, rec, err := s.svc.ComputePosition(sat, obs)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, newPositionResponse(sat, obs, pos, rec))
}

// snapshotHandler computes positions for every satellite in the catalog.
func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	obs, err := s.observationTime(r)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	positions, _, failed, err := s.svc.Snapshot(r.Context(), obs)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	out := make([]map[string]any, 0, len(positions))
	for _, sp := range positions {
		out = append(out, map[string]any{
			"satellite":             sp.SatelliteID,
			"ecef_m":                ecefJSON{X: sp.Position.X, Y: sp.Position.Y, Z: sp.Position.Z},
			"geocentric_distance_m": sp.Position.Distance(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"time":      obs,
		"count":     len(out),
		"failed":    failed,
		"positions": out,
	})
}
