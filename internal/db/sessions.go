package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// DatasetRecord is one ingested telemetry file.
type DatasetRecord struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Track      string    `json:"track"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Session is one vehicle's summarized stint within a dataset.
type Session struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id"`
	DatasetID int       `json:"dataset_id"`
	VehicleID string    `json:"vehicle_id"`
	Track     string    `json:"track"`
	LapCount  int       `json:"lap_count"`
	BestLap   int       `json:"best_lap"`
	BestTime  float64   `json:"best_time"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateDataset records an ingested file. The generated ID is written
// back into the record.
func (db *DB) CreateDataset(d *DatasetRecord) error {
	result, err := db.Exec(
		`INSERT INTO datasets (name, path, size, track) VALUES (?, ?, ?, ?)`,
		d.Name, d.Path, d.Size, d.Track,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	d.ID = int(id)
	return nil
}

// DatasetByPath returns the dataset ingested from path, or nil when
// the path has not been ingested.
func (db *DB) DatasetByPath(path string) (*DatasetRecord, error) {
	var d DatasetRecord
	err := db.QueryRow(
		`SELECT id, name, path, size, track, ingested_at FROM datasets WHERE path = ?`,
		path,
	).Scan(&d.ID, &d.Name, &d.Path, &d.Size, &d.Track, &d.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return &d, nil
}

// Datasets lists every ingested dataset, newest first.
func (db *DB) Datasets() ([]DatasetRecord, error) {
	rows, err := db.Query(
		`SELECT id, name, path, size, track, ingested_at FROM datasets ORDER BY ingested_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []DatasetRecord
	for rows.Next() {
		var d DatasetRecord
		if err := rows.Scan(&d.ID, &d.Name, &d.Path, &d.Size, &d.Track, &d.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// CreateSession stores a summarized session with its lap and sector
// rows in one transaction. The generated ID is written back.
func (db *DB) CreateSession(session *Session, summary *telemetry.SessionSummary) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO sessions (
			run_id, dataset_id, vehicle_id, track, lap_count,
			best_lap, best_time, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.RunID, session.DatasetID, session.VehicleID, session.Track,
		session.LapCount, session.BestLap, session.BestTime,
		session.StartTime, session.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	session.ID = int(id)

	for _, lap := range summary.Laps {
		if _, err := tx.Exec(
			`INSERT INTO lap_summaries (
				session_id, lap, lap_time, sample_count, avg_speed, max_speed,
				min_speed, delta_to_best, best, consistent, sector_mismatch
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, lap.Lap, lap.LapTime, lap.Samples, lap.AvgSpeed,
			lap.MaxSpeed, lap.MinSpeed, lap.DeltaToBest,
			lap.Best, lap.Consistent, lap.SectorMismatch,
		); err != nil {
			return fmt.Errorf("failed to insert lap %d: %w", lap.Lap, err)
		}
		for _, sec := range lap.Sectors {
			if _, err := tx.Exec(
				`INSERT INTO sector_summaries (
					session_id, lap, sector, sector_time, avg_speed, delta_to_best, best
				) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				session.ID, lap.Lap, sec.Sector, sec.SectorTime,
				sec.AvgSpeed, sec.DeltaToBest, sec.Best,
			); err != nil {
				return fmt.Errorf("failed to insert lap %d sector %d: %w", lap.Lap, sec.Sector, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(id int) (*Session, error) {
	var s Session
	err := db.QueryRow(
		`SELECT id, run_id, dataset_id, vehicle_id, track, lap_count,
		        best_lap, best_time, start_time, end_time, created_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.RunID, &s.DatasetID, &s.VehicleID, &s.Track,
		&s.LapCount, &s.BestLap, &s.BestTime, &s.StartTime, &s.EndTime, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Sessions lists sessions for a dataset, or all sessions when
// datasetID is 0. Newest first.
func (db *DB) Sessions(datasetID int) ([]Session, error) {
	query := `SELECT id, run_id, dataset_id, vehicle_id, track, lap_count,
	                 best_lap, best_time, start_time, end_time, created_at
	          FROM sessions`
	args := []any{}
	if datasetID != 0 {
		query += ` WHERE dataset_id = ?`
		args = append(args, datasetID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.RunID, &s.DatasetID, &s.VehicleID, &s.Track,
			&s.LapCount, &s.BestLap, &s.BestTime, &s.StartTime, &s.EndTime, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SessionSummary rebuilds the lap and sector summaries stored for a
// session.
func (db *DB) SessionSummary(sessionID int) (*telemetry.SessionSummary, error) {
	rows, err := db.Query(
		`SELECT lap, lap_time, sample_count, avg_speed, max_speed, min_speed,
		        delta_to_best, best, consistent, sector_mismatch
		 FROM lap_summaries WHERE session_id = ? ORDER BY lap`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query laps: %w", err)
	}
	defer rows.Close()

	summary := &telemetry.SessionSummary{}
	byLap := make(map[int]int)
	for rows.Next() {
		var lap telemetry.LapSummary
		if err := rows.Scan(&lap.Lap, &lap.LapTime, &lap.Samples, &lap.AvgSpeed,
			&lap.MaxSpeed, &lap.MinSpeed, &lap.DeltaToBest,
			&lap.Best, &lap.Consistent, &lap.SectorMismatch); err != nil {
			return nil, fmt.Errorf("failed to scan lap: %w", err)
		}
		if lap.Best {
			summary.BestLap = lap.Lap
		}
		byLap[lap.Lap] = len(summary.Laps)
		summary.Laps = append(summary.Laps, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	secRows, err := db.Query(
		`SELECT lap, sector, sector_time, avg_speed, delta_to_best, best
		 FROM sector_summaries WHERE session_id = ? ORDER BY lap, sector`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer secRows.Close()

	for secRows.Next() {
		var lapNum int
		var sec telemetry.SectorSummary
		if err := secRows.Scan(&lapNum, &sec.Sector, &sec.SectorTime,
			&sec.AvgSpeed, &sec.DeltaToBest, &sec.Best); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		if idx, ok := byLap[lapNum]; ok {
			summary.Laps[idx].Sectors = append(summary.Laps[idx].Sectors, sec)
			if sec.Sector > summary.SectorCount {
				summary.SectorCount = sec.Sector
			}
		}
	}
	return summary, secRows.Err()
}

// DeleteSession removes a session and its lap, sector and report rows.
func (db *DB) DeleteSession(id int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM story_reports WHERE session_id = ?`,
		`DELETE FROM sector_summaries WHERE session_id = ?`,
		`DELETE FROM lap_summaries WHERE session_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete session rows: %w", err)
		}
	}

	result, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return tx.Commit()
}
