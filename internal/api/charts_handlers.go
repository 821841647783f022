package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/laplens-data/laplens/internal/charts"
	"github.com/laplens-data/laplens/internal/db"
	"github.com/laplens-data/laplens/internal/gps"
	"github.com/laplens-data/laplens/internal/security"
	"github.com/laplens-data/laplens/internal/telemetry"
	"github.com/laplens-data/laplens/internal/track"
)

func trackLayoutFor(path string) track.Layout {
	return track.LayoutFor(path, db.DefaultLapLength, db.DefaultSectorCount)
}

// chartSession loads the session and summary behind a chart request.
func (s *Server) chartSession(w http.ResponseWriter, r *http.Request) (*db.Session, *telemetry.SessionSummary, bool) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return nil, nil, false
	}
	id, ok := s.sessionID(w, r)
	if !ok {
		return nil, nil, false
	}
	session, err := s.db.GetSession(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve session: %v", err))
		return nil, nil, false
	}
	summary, err := s.db.SessionSummary(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve summary: %v", err))
		return nil, nil, false
	}
	return session, summary, true
}

func (s *Server) chartLapTimes(w http.ResponseWriter, r *http.Request) {
	session, summary, ok := s.chartSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("Lap Times: %s - %s", session.Track, session.VehicleID)
	if err := charts.RenderLapTimes(w, summary, title); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

func (s *Server) chartDeltas(w http.ResponseWriter, r *http.Request) {
	session, summary, ok := s.chartSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("Delta to Best: %s - %s", session.Track, session.VehicleID)
	if err := charts.RenderDeltas(w, summary, title); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

func (s *Server) chartSectors(w http.ResponseWriter, r *http.Request) {
	session, summary, ok := s.chartSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("Sector Comparison: %s - %s", session.Track, session.VehicleID)
	if err := charts.RenderSectorComparison(w, summary, title); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

func (s *Server) chartTrackMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	session, err := s.db.GetSession(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve session: %v", err))
		return
	}
	samples, err := s.sessionSamples(session)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load telemetry: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("Track Map: %s - %s", session.Track, session.VehicleID)
	if err := charts.RenderTrackMap(w, samples, title); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

// chartTrackMapPNG renders a static PNG of the racing line, optionally
// restricted to a comma-separated ?laps= list for overlay comparison.
func (s *Server) chartTrackMapPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	session, err := s.db.GetSession(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve session: %v", err))
		return
	}
	samples, err := s.sessionSamples(session)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load telemetry: %v", err))
		return
	}

	var laps []int
	if q := r.URL.Query().Get("laps"); q != "" {
		for _, part := range strings.Split(q, ",") {
			lap, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || lap < 1 {
				s.writeJSONError(w, http.StatusBadRequest, "Invalid 'laps' parameter")
				return
			}
			laps = append(laps, lap)
		}
	}

	// Unique per request so concurrent renders of the same session do
	// not clobber each other.
	outFile := filepath.Join(os.TempDir(),
		fmt.Sprintf("trackmap-%s-%d-%s.png", security.SanitizeFilename(session.VehicleID), session.ID, uuid.NewString()))
	defer os.Remove(outFile)

	title := fmt.Sprintf("Track Map: %s - %s", session.Track, session.VehicleID)
	if len(laps) > 0 {
		err = gps.RenderLapComparison(samples, laps, title, outFile)
	} else {
		err = gps.RenderTrackMap(samples, title, outFile)
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render track map: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, outFile)
}
