// Package api serves the JSON and chart HTTP endpoints.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/laplens-data/laplens/internal/db"
	"github.com/laplens-data/laplens/internal/httputil"
	"github.com/laplens-data/laplens/internal/loader"
	"github.com/laplens-data/laplens/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	loader *loader.Loader
	units  string
}

func NewServer(database *db.DB, l *loader.Loader, speedUnits string) *Server {
	if !units.IsValid(speedUnits) {
		log.Printf("invalid units %q (valid: %s), falling back to kmh",
			speedUnits, units.GetValidUnitsString())
		speedUnits = units.KMH
	}
	return &Server{
		db:     database,
		loader: l,
		units:  speedUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets", s.listDatasets)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/vehicles", s.listVehicles)
	mux.HandleFunc("/api/laps", s.listLaps)
	mux.HandleFunc("/api/sectors", s.listSectors)
	mux.HandleFunc("/api/story", s.showStory)
	mux.HandleFunc("/api/trackbounds", s.trackBounds)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/charts/laps", s.chartLapTimes)
	mux.HandleFunc("/charts/deltas", s.chartDeltas)
	mux.HandleFunc("/charts/sectors", s.chartSectors)
	mux.HandleFunc("/charts/trackmap", s.chartTrackMap)
	mux.HandleFunc("/charts/trackmap.png", s.chartTrackMapPNG)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	httputil.WriteJSONError(w, status, msg)
}

// requestUnits returns the speed unit for a request: the ?units= query
// parameter when valid, the server default otherwise.
func (s *Server) requestUnits(r *http.Request) string {
	if u := r.URL.Query().Get("units"); units.IsValid(u) {
		return u
	}
	return s.units
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"units":        s.units,
		"datasets_dir": s.loader.DatasetsDir,
	})
}
