// Package config loads analysis settings from a JSON file. Fields use
// pointers so a partial config only overrides what it names; the Get*
// methods supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/laplens-data/laplens/internal/units"
)

// AnalysisConfig holds the tunable parameters of session analysis.
type AnalysisConfig struct {
	// Lap layout fallback used when a track has no configured sector
	// boundaries.
	LapLengthMeters *float64 `json:"lap_length_meters,omitempty"`
	SectorCount     *int     `json:"sector_count,omitempty"`

	// Laps within this percentage of the best lap count as consistent.
	ConsistencyPct *float64 `json:"consistency_pct,omitempty"`

	// Default speed units for API responses ("kmh" or "mph").
	Units *string `json:"units,omitempty"`

	// How often the ingest worker rescans the datasets directory,
	// as a duration string like "5m".
	IngestInterval *string `json:"ingest_interval,omitempty"`
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AnalysisConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.LapLengthMeters != nil && *c.LapLengthMeters <= 0 {
		return fmt.Errorf("lap_length_meters must be positive, got %f", *c.LapLengthMeters)
	}
	if c.SectorCount != nil && *c.SectorCount < 1 {
		return fmt.Errorf("sector_count must be at least 1, got %d", *c.SectorCount)
	}
	if c.ConsistencyPct != nil && (*c.ConsistencyPct <= 0 || *c.ConsistencyPct > 100) {
		return fmt.Errorf("consistency_pct must be between 0 and 100, got %f", *c.ConsistencyPct)
	}
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("invalid units %q", *c.Units)
	}
	if c.IngestInterval != nil && *c.IngestInterval != "" {
		if _, err := time.ParseDuration(*c.IngestInterval); err != nil {
			return fmt.Errorf("invalid ingest_interval '%s': %w", *c.IngestInterval, err)
		}
	}
	return nil
}

// GetLapLengthMeters returns the lap_length_meters value or the default.
func (c *AnalysisConfig) GetLapLengthMeters() float64 {
	if c.LapLengthMeters == nil {
		return 3600.0
	}
	return *c.LapLengthMeters
}

// GetSectorCount returns the sector_count value or the default.
func (c *AnalysisConfig) GetSectorCount() int {
	if c.SectorCount == nil {
		return 6
	}
	return *c.SectorCount
}

// GetConsistencyPct returns the consistency_pct value or the default.
func (c *AnalysisConfig) GetConsistencyPct() float64 {
	if c.ConsistencyPct == nil {
		return 2.0
	}
	return *c.ConsistencyPct
}

// GetUnits returns the units value or the default.
func (c *AnalysisConfig) GetUnits() string {
	if c.Units == nil {
		return units.KMH
	}
	return *c.Units
}

// GetIngestInterval parses and returns the IngestInterval as a time.Duration.
func (c *AnalysisConfig) GetIngestInterval() time.Duration {
	if c.IngestInterval == nil || *c.IngestInterval == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(*c.IngestInterval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
