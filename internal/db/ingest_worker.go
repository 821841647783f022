package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/laplens-data/laplens/internal/loader"
	"github.com/laplens-data/laplens/internal/monitoring"
	"github.com/laplens-data/laplens/internal/telemetry"
	"github.com/laplens-data/laplens/internal/timeutil"
	"github.com/laplens-data/laplens/internal/track"
)

// Fallback layout for tracks without configured sector boundaries.
const (
	DefaultLapLength   = 3600.0
	DefaultSectorCount = 6
)

// IngestWorker periodically scans the datasets directory and ingests
// any file not yet in the datasets table. Each vehicle in a new file
// becomes one summarized session.
type IngestWorker struct {
	DB       *DB
	Loader   *loader.Loader
	Interval time.Duration
	Clock    timeutil.Clock
	StopChan chan struct{}

	// Layout fallback and consistency window, overridable from the
	// analysis config.
	LapLength      float64
	SectorCount    int
	ConsistencyPct float64
}

// NewIngestWorker returns a worker scanning every five minutes.
func NewIngestWorker(database *DB, l *loader.Loader) *IngestWorker {
	return &IngestWorker{
		DB:          database,
		Loader:      l,
		Interval:    5 * time.Minute,
		Clock:       timeutil.RealClock{},
		StopChan:    make(chan struct{}),
		LapLength:   DefaultLapLength,
		SectorCount: DefaultSectorCount,
	}
}

// Start runs the periodic scan loop in a goroutine.
func (w *IngestWorker) Start() {
	go func() {
		ticker := w.Clock.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if _, err := w.RunOnce(context.Background()); err != nil {
					monitoring.Logf("ingest worker run error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *IngestWorker) Stop() {
	close(w.StopChan)
}

// RunOnce scans the datasets directory and ingests anything new.
// Returns the number of files ingested.
func (w *IngestWorker) RunOnce(ctx context.Context) (int, error) {
	datasets, err := w.Loader.ListDatasets()
	if err != nil {
		return 0, fmt.Errorf("failed to list datasets: %w", err)
	}

	ingested := 0
	for _, d := range datasets {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		existing, err := w.DB.DatasetByPath(d.Path)
		if err != nil {
			return ingested, err
		}
		if existing != nil {
			continue
		}
		if err := w.IngestDataset(ctx, d); err != nil {
			monitoring.Logf("failed to ingest %s: %v", d.Path, err)
			continue
		}
		ingested++
	}
	return ingested, nil
}

// IngestDataset loads one file, summarizes every vehicle in it and
// stores the results.
func (w *IngestWorker) IngestDataset(ctx context.Context, d loader.Dataset) error {
	records, err := w.Loader.LoadFile(d.Path)
	if err != nil {
		return err
	}
	records = loader.Preprocess(records)

	info := loader.Summarize(records)
	monitoring.Logf("loaded %s: %d records, %d laps, %d vehicles, span %s",
		d.Name, info.Records, info.Laps, len(info.Vehicles), info.Duration)

	trackName := track.DisplayName(d.Path)
	layout := track.LayoutFor(d.Path, w.LapLength, w.SectorCount)

	rec := &DatasetRecord{Name: d.Name, Path: d.Path, Size: d.Size, Track: trackName}
	if err := w.DB.CreateDataset(rec); err != nil {
		return err
	}

	for _, vehicle := range loader.Vehicles(records) {
		if err := ctx.Err(); err != nil {
			return err
		}
		vr := loader.FilterVehicle(records, vehicle)
		samples := loader.ToSamples(vr, layout)

		summary, err := telemetry.Summarize(samples, telemetry.Config{
			SectorCount:    layout.SectorCount(),
			ConsistencyPct: w.ConsistencyPct,
		})
		if err != nil {
			monitoring.Logf("skipping %s in %s: %v", vehicle, d.Name, err)
			continue
		}
		for _, warn := range summary.Warnings {
			monitoring.Logf("sector mismatch in %s lap %d: got %d runs, want %d",
				vehicle, warn.Lap, warn.Runs, warn.Want)
		}

		session := &Session{
			RunID:     uuid.NewString(),
			DatasetID: rec.ID,
			VehicleID: vehicle,
			Track:     trackName,
			LapCount:  len(summary.Laps),
			BestLap:   summary.BestLap,
		}
		if best := summary.Lap(summary.BestLap); best != nil {
			session.BestTime = best.LapTime
		}
		if len(samples) > 0 {
			session.StartTime = samples[0].Time
			session.EndTime = samples[len(samples)-1].Time
		}
		if err := w.DB.CreateSession(session, summary); err != nil {
			return fmt.Errorf("failed to store session for %s: %w", vehicle, err)
		}
		monitoring.Logf("ingested %s: %s, %d laps, best %d (%.3fs)",
			d.Name, vehicle, session.LapCount, session.BestLap, session.BestTime)
	}
	return nil
}
