package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/laplens-data/laplens/internal/db"
	"github.com/laplens-data/laplens/internal/gps"
	"github.com/laplens-data/laplens/internal/httputil"
	"github.com/laplens-data/laplens/internal/loader"
	"github.com/laplens-data/laplens/internal/story"
	"github.com/laplens-data/laplens/internal/telemetry"
	"github.com/laplens-data/laplens/internal/units"
)

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	datasets, err := s.db.Datasets()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve datasets: %v", err))
		return
	}
	if datasets == nil {
		datasets = []db.DatasetRecord{}
	}

	httputil.WriteJSON(w, http.StatusOK, datasets)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		s.deleteSession(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	datasetID := 0
	if d := r.URL.Query().Get("dataset_id"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'dataset_id' parameter")
			return
		}
		datasetID = parsed
	}

	sessions, err := s.db.Sessions(datasetID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}

	// Session timestamps are stored in UTC; ?tz= renders them in local
	// track time.
	if tz := r.URL.Query().Get("tz"); tz != "" {
		if !units.IsTimezoneValid(tz) {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'tz' parameter")
			return
		}
		for i := range sessions {
			if t, err := units.ConvertTime(sessions[i].StartTime, tz); err == nil {
				sessions[i].StartTime = t
			}
			if t, err := units.ConvertTime(sessions[i].EndTime, tz); err == nil {
				sessions[i].EndTime = t
			}
		}
	}

	httputil.WriteJSON(w, http.StatusOK, sessions)
}

// deleteSession removes a session and its derived rows. Reports are
// deleted with it; the dataset record stays so a later ingest run can
// rebuild the session.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteSession(id); err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Session not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to delete session: %v", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": id})
}

// vehicleAPI is the wire shape for one vehicle in a dataset.
type vehicleAPI struct {
	VehicleID string `json:"vehicle_id"`
	Chassis   string `json:"chassis"`
	CarNumber string `json:"car_number"`
	Display   string `json:"display"`
	SessionID int    `json:"session_id"`
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	datasetID := 0
	if d := r.URL.Query().Get("dataset_id"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'dataset_id' parameter")
			return
		}
		datasetID = parsed
	}

	sessions, err := s.db.Sessions(datasetID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}

	vehicles := make([]vehicleAPI, 0, len(sessions))
	for _, session := range sessions {
		chassis, carNumber := loader.ParseVehicleID(session.VehicleID)
		vehicles = append(vehicles, vehicleAPI{
			VehicleID: session.VehicleID,
			Chassis:   chassis,
			CarNumber: carNumber,
			Display:   loader.VehicleDisplayName(session.VehicleID),
			SessionID: session.ID,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, vehicles)
}

// sessionID parses and validates the session_id query parameter.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("session_id"))
	if err != nil || id < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'session_id' parameter")
		return 0, false
	}
	return id, true
}

// lapAPI is one lap in the /api/laps response. Metrics are filled only
// when ?detail=1 asks for the driver-input extremes.
type lapAPI struct {
	telemetry.LapSummary
	Metrics *telemetry.LapMetrics `json:"metrics,omitempty"`
}

func (s *Server) listLaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	summary, err := s.db.SessionSummary(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve laps: %v", err))
		return
	}
	if len(summary.Laps) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "No laps for session")
		return
	}

	var metrics map[int]telemetry.LapMetrics
	if detail, _ := strconv.ParseBool(r.URL.Query().Get("detail")); detail {
		metrics, err = s.lapMetrics(id)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to load lap detail: %v", err))
			return
		}
	}

	target := s.requestUnits(r)
	laps := make([]lapAPI, len(summary.Laps))
	for i, lap := range summary.Laps {
		lap.AvgSpeed = units.ConvertSpeed(lap.AvgSpeed, target)
		lap.MaxSpeed = units.ConvertSpeed(lap.MaxSpeed, target)
		lap.MinSpeed = units.ConvertSpeed(lap.MinSpeed, target)
		for j, sec := range lap.Sectors {
			lap.Sectors[j].AvgSpeed = units.ConvertSpeed(sec.AvgSpeed, target)
		}
		laps[i] = lapAPI{LapSummary: lap}
		if m, ok := metrics[lap.Lap]; ok {
			laps[i].Metrics = &m
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"best_lap":     summary.BestLap,
		"sector_count": summary.SectorCount,
		"units":        target,
		"laps":         laps,
	})
}

// lapMetrics reloads the raw telemetry behind a session and aggregates
// driver-input extremes per lap.
func (s *Server) lapMetrics(sessionID int) (map[int]telemetry.LapMetrics, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	samples, err := s.sessionSamples(session)
	if err != nil {
		return nil, err
	}

	byLap := make(map[int][]telemetry.Sample)
	for _, sample := range samples {
		byLap[sample.Lap] = append(byLap[sample.Lap], sample)
	}
	metrics := make(map[int]telemetry.LapMetrics, len(byLap))
	for lap, lapSamples := range byLap {
		metrics[lap] = telemetry.ComputeLapMetrics(lapSamples)
	}
	return metrics, nil
}

func (s *Server) listSectors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	summary, err := s.db.SessionSummary(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sectors: %v", err))
		return
	}

	lapFilter := 0
	if l := r.URL.Query().Get("lap"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'lap' parameter")
			return
		}
		lapFilter = parsed
	}

	type sectorRow struct {
		Lap int `json:"lap"`
		telemetry.SectorSummary
	}

	target := s.requestUnits(r)
	rows := []sectorRow{}
	for _, lap := range summary.Laps {
		if lapFilter != 0 && lap.Lap != lapFilter {
			continue
		}
		for _, sec := range lap.Sectors {
			sec.AvgSpeed = units.ConvertSpeed(sec.AvgSpeed, target)
			rows = append(rows, sectorRow{Lap: lap.Lap, SectorSummary: sec})
		}
	}

	httputil.WriteJSON(w, http.StatusOK, rows)
}

// trackBounds reports the GPS bounding box of a session's telemetry
// with approximate track dimensions, for framing the track-map charts.
func (s *Server) trackBounds(w http.ResponseWriter, r *http.Request) {
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
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load telemetry: %v", err))
		return
	}

	bounds, hasFix := gps.TrackBounds(samples)
	if !hasFix {
		s.writeJSONError(w, http.StatusNotFound, "No GPS data for session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, bounds)
}

// showStory generates (or retrieves) a narrative report. With ?run_id
// it returns the stored report; with ?session_id it generates a fresh
// one and stores it; with neither it lists recent reports.
func (s *Server) showStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if runID := r.URL.Query().Get("run_id"); runID != "" {
		rec, report, err := s.db.GetStoryReport(runID)
		if err != nil {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve story: %v", err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"run_id":     rec.RunID,
			"session_id": rec.SessionID,
			"created_at": rec.CreatedAt,
			"report":     report,
		})
		return
	}

	if r.URL.Query().Get("session_id") == "" {
		s.listStories(w, r)
		return
	}

	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	report, rec, err := s.generateStory(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to generate story: %v", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     rec.RunID,
		"session_id": rec.SessionID,
		"report":     report,
	})
}

// listStories returns the most recently generated reports, newest
// first, without their report bodies.
func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	reports, err := s.db.RecentStoryReports(0, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve stories: %v", err))
		return
	}
	if reports == nil {
		reports = []db.StoryReport{}
	}

	httputil.WriteJSON(w, http.StatusOK, reports)
}

// generateStory builds the narrative for a session from its stored
// summary plus the raw samples reloaded from the dataset file.
func (s *Server) generateStory(sessionID int) (*story.Report, *db.StoryReport, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.db.SessionSummary(sessionID)
	if err != nil {
		return nil, nil, err
	}

	samples, err := s.sessionSamples(session)
	if err != nil {
		// The narrative degrades gracefully without raw channels; the
		// risk index and technical insights just come out empty.
		samples = nil
	}

	generator := story.NewGenerator(session.Track)
	report, err := generator.Generate(session.VehicleID, summary, samples)
	if err != nil {
		return nil, nil, err
	}

	rec, err := s.db.SaveStoryReport(sessionID, report)
	if err != nil {
		return nil, nil, err
	}
	return report, rec, nil
}

// sessionSamples reloads the raw telemetry behind a session.
func (s *Server) sessionSamples(session *db.Session) ([]telemetry.Sample, error) {
	datasets, err := s.db.Datasets()
	if err != nil {
		return nil, err
	}
	for _, d := range datasets {
		if d.ID != session.DatasetID {
			continue
		}
		records, err := s.loader.LoadFile(d.Path)
		if err != nil {
			return nil, err
		}
		records = loader.Preprocess(records)
		records = loader.FilterVehicle(records, session.VehicleID)
		layout := trackLayoutFor(d.Path)
		return loader.ToSamples(records, layout), nil
	}
	return nil, fmt.Errorf("dataset %d not found", session.DatasetID)
}
