package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/laplens-data/laplens/internal/story"
)

// StoryReport is a persisted narrative report for a session.
type StoryReport struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id"`
	SessionID int       `json:"session_id"`
	Title     string    `json:"title"`
	Report    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveStoryReport serializes a generated report and stores it under a
// fresh run ID.
func (db *DB) SaveStoryReport(sessionID int, report *story.Report) (*StoryReport, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	rec := &StoryReport{
		RunID:     uuid.NewString(),
		SessionID: sessionID,
		Title:     report.Title,
		Report:    string(payload),
	}
	result, err := db.Exec(
		`INSERT INTO story_reports (run_id, session_id, title, report_json) VALUES (?, ?, ?, ?)`,
		rec.RunID, rec.SessionID, rec.Title, rec.Report,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save story report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	rec.ID = int(id)
	return rec, nil
}

// GetStoryReport retrieves a stored report by run ID and decodes it.
func (db *DB) GetStoryReport(runID string) (*StoryReport, *story.Report, error) {
	var rec StoryReport
	err := db.QueryRow(
		`SELECT id, run_id, session_id, title, report_json, created_at
		 FROM story_reports WHERE run_id = ?`, runID,
	).Scan(&rec.ID, &rec.RunID, &rec.SessionID, &rec.Title, &rec.Report, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("report not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get story report: %w", err)
	}

	var report story.Report
	if err := json.Unmarshal([]byte(rec.Report), &report); err != nil {
		return nil, nil, fmt.Errorf("failed to decode report %s: %w", runID, err)
	}
	return &rec, &report, nil
}

// RecentStoryReports lists the most recent reports for a session, or
// across all sessions when sessionID is 0.
func (db *DB) RecentStoryReports(sessionID, limit int) ([]StoryReport, error) {
	query := `SELECT id, run_id, session_id, title, created_at FROM story_reports`
	args := []any{}
	if sessionID != 0 {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query story reports: %w", err)
	}
	defer rows.Close()

	var reports []StoryReport
	for rows.Next() {
		var rec StoryReport
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.SessionID, &rec.Title, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story report: %w", err)
		}
		reports = append(reports, rec)
	}
	return reports, rows.Err()
}
