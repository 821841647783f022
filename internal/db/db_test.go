package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/laplens-data/laplens/internal/story"
	"github.com/laplens-data/laplens/internal/telemetry"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testSummary() *telemetry.SessionSummary {
	return &telemetry.SessionSummary{
		BestLap:     2,
		SectorCount: 2,
		Laps: []telemetry.LapSummary{
			{Lap: 1, LapTime: 101.0, Samples: 50, AvgSpeed: 140, MaxSpeed: 210, MinSpeed: 60, DeltaToBest: 1.0,
				Sectors: []telemetry.SectorSummary{
					{Sector: 1, SectorTime: 50.0, AvgSpeed: 135},
					{Sector: 2, SectorTime: 51.0, AvgSpeed: 145},
				}},
			{Lap: 2, LapTime: 100.0, Samples: 50, AvgSpeed: 142, MaxSpeed: 212, MinSpeed: 62, Best: true, Consistent: true,
				Sectors: []telemetry.SectorSummary{
					{Sector: 1, SectorTime: 49.5, AvgSpeed: 138, Best: true},
					{Sector: 2, SectorTime: 50.5, AvgSpeed: 146, Best: true},
				}},
		},
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	database := testDB(t)
	if err := database.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version == 0 || dirty {
		t.Errorf("version = %d dirty = %v", version, dirty)
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	database := testDB(t)

	rec := &DatasetRecord{Name: "barber - R1-telemetry", Path: "/data/barber/R1-telemetry.csv", Size: 1024, Track: "Barber Motorsports Park"}
	if err := database.CreateDataset(rec); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected generated dataset ID")
	}

	got, err := database.DatasetByPath(rec.Path)
	if err != nil {
		t.Fatalf("DatasetByPath failed: %v", err)
	}
	if got == nil || got.ID != rec.ID || got.Track != rec.Track {
		t.Errorf("got %+v", got)
	}

	missing, err := database.DatasetByPath("/nope.csv")
	if err != nil {
		t.Fatalf("DatasetByPath failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown path, got %+v", missing)
	}

	all, err := database.Datasets()
	if err != nil {
		t.Fatalf("Datasets failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d datasets, want 1", len(all))
	}
}

func TestSessionRoundTrip(t *testing.T) {
	database := testDB(t)

	rec := &DatasetRecord{Name: "d", Path: "/d.csv", Track: "Circuit of the Americas"}
	if err := database.CreateDataset(rec); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	start := time.Date(2025, 4, 12, 14, 0, 0, 0, time.UTC)
	session := &Session{
		RunID:     uuid.NewString(),
		DatasetID: rec.ID,
		VehicleID: "GR86-004-023",
		Track:     rec.Track,
		LapCount:  2,
		BestLap:   2,
		BestTime:  100.0,
		StartTime: start,
		EndTime:   start.Add(201 * time.Second),
	}
	if err := database.CreateSession(session, testSummary()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := database.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.VehicleID != "GR86-004-023" || got.BestLap != 2 || got.BestTime != 100.0 {
		t.Errorf("session = %+v", got)
	}

	summary, err := database.SessionSummary(session.ID)
	if err != nil {
		t.Fatalf("SessionSummary failed: %v", err)
	}
	if len(summary.Laps) != 2 {
		t.Fatalf("got %d laps, want 2", len(summary.Laps))
	}
	if summary.BestLap != 2 {
		t.Errorf("best lap = %d, want 2", summary.BestLap)
	}
	if summary.SectorCount != 2 {
		t.Errorf("sector count = %d, want 2", summary.SectorCount)
	}
	lap2 := summary.Lap(2)
	if lap2 == nil || !lap2.Best || len(lap2.Sectors) != 2 {
		t.Errorf("lap 2 = %+v", lap2)
	}
	if lap2.Sectors[0].SectorTime != 49.5 || !lap2.Sectors[0].Best {
		t.Errorf("lap 2 sector 1 = %+v", lap2.Sectors[0])
	}

	sessions, err := database.Sessions(rec.ID)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("got %d sessions, want 1", len(sessions))
	}
}

func TestDeleteSession(t *testing.T) {
	database := testDB(t)

	rec := &DatasetRecord{Name: "d", Path: "/d.csv"}
	if err := database.CreateDataset(rec); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	session := &Session{RunID: uuid.NewString(), DatasetID: rec.ID, VehicleID: "GR86-001-001"}
	if err := database.CreateSession(session, testSummary()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := database.DeleteSession(session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := database.GetSession(session.ID); err == nil {
		t.Fatal("expected error for deleted session")
	}
	if err := database.DeleteSession(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("deleting twice: err = %v, want ErrSessionNotFound", err)
	}
}

func TestStoryReportRoundTrip(t *testing.T) {
	database := testDB(t)

	rec := &DatasetRecord{Name: "d", Path: "/d.csv"}
	if err := database.CreateDataset(rec); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	session := &Session{RunID: uuid.NewString(), DatasetID: rec.ID, VehicleID: "GR86-001-001"}
	if err := database.CreateSession(session, testSummary()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report := &story.Report{
		Title:            "Race Story: Barber Motorsports Park - GR86-001-001",
		ExecutiveSummary: "Two solid laps.",
		Consistency:      story.Consistency{Score: 9.1, Rating: "Excellent"},
	}
	saved, err := database.SaveStoryReport(session.ID, report)
	if err != nil {
		t.Fatalf("SaveStoryReport failed: %v", err)
	}
	if saved.RunID == "" {
		t.Fatal("expected generated run ID")
	}

	gotRec, gotReport, err := database.GetStoryReport(saved.RunID)
	if err != nil {
		t.Fatalf("GetStoryReport failed: %v", err)
	}
	if gotRec.SessionID != session.ID {
		t.Errorf("session ID = %d, want %d", gotRec.SessionID, session.ID)
	}
	if gotReport.Title != report.Title || gotReport.Consistency.Score != 9.1 {
		t.Errorf("report = %+v", gotReport)
	}

	recent, err := database.RecentStoryReports(session.ID, 10)
	if err != nil {
		t.Fatalf("RecentStoryReports failed: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("got %d reports, want 1", len(recent))
	}
}
