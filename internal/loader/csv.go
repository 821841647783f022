package loader

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/laplens-data/laplens/internal/security"
)

// Telemetry channel names as exported by the data logger.
const (
	ChanSpeed       = "Speed"
	ChanThrottle    = "ath"
	ChanThrottleAlt = "aps" // fallback when ath is absent
	ChanBrakeFront  = "pbrake_f"
	ChanBrakeRear   = "pbrake_r"
	ChanSteering    = "Steering_Angle"
	ChanLongG       = "accx_can"
	ChanLatG        = "accy_can"
	ChanGear        = "gear"
	ChanRPM         = "nmot"
	ChanLapDistance = "Laptrigger_lapdist_dls"
	ChanLatitude    = "VBOX_Lat_Min"
	ChanLongitude   = "VBOX_Long_Minutes"
)

// Metadata columns that are not telemetry channels.
var metaColumns = map[string]bool{
	"timestamp":           true,
	"meta_time":           true,
	"lap":                 true,
	"vehicle_id":          true,
	"original_vehicle_id": true,
	"vehicle_number":      true,
	"outing":              true,
	"meta_session":        true,
	"meta_event":          true,
	"meta_source":         true,
	"expire_at":           true,
}

// Record is one wide telemetry row: every channel observed for one vehicle
// at one instant.
type Record struct {
	Time    time.Time
	Vehicle string
	Lap     int
	Fields  map[string]float64
}

// Field returns a channel value and whether it was present.
func (r Record) Field(name string) (float64, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// LoadFile reads a telemetry dataset from a CSV file or the first CSV
// inside a ZIP archive. The path must resolve inside the datasets
// directory; dataset paths round-trip through the database and the API,
// so they are not trusted.
func (l *Loader) LoadFile(path string) ([]Record, error) {
	if err := security.ValidatePathWithinDirectory(path, l.DatasetsDir); err != nil {
		return nil, fmt.Errorf("invalid dataset path: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open dataset: %w", err)
		}
		defer f.Close()
		return parseCSV(f)
	case ".zip":
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		defer zr.Close()
		for _, zf := range zr.File {
			if !strings.HasSuffix(strings.ToLower(zf.Name), ".csv") {
				continue
			}
			rc, err := zf.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open %s in archive: %w", zf.Name, err)
			}
			defer rc.Close()
			return parseCSV(rc)
		}
		return nil, fmt.Errorf("no CSV files found in %s", path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

// parseCSV reads rows and returns wide records. Long-format input (rows
// carrying telemetry_name/telemetry_value) is pivoted on the fly.
func parseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	nameIdx, longFormat := col["telemetry_name"]
	valueIdx := col["telemetry_value"]

	var records []Record
	// For long format, rows for the same instant and vehicle are folded
	// into one record. Records stay in input order.
	index := make(map[string]int)

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}
		line++

		ts, err := rowTime(row, col)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		vehicle := rowString(row, col, "vehicle_id")
		if vehicle == "" {
			vehicle = rowString(row, col, "original_vehicle_id")
		}
		lap := int(rowFloat(row, col, "lap"))

		if longFormat {
			key := ts.Format(time.RFC3339Nano) + "|" + vehicle
			i, ok := index[key]
			if !ok {
				records = append(records, Record{
					Time:    ts,
					Vehicle: vehicle,
					Lap:     lap,
					Fields:  make(map[string]float64),
				})
				i = len(records) - 1
				index[key] = i
			}
			name := strings.TrimSpace(row[nameIdx])
			if name == "" {
				continue
			}
			if name == "speed" {
				name = ChanSpeed
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[valueIdx]), 64); err == nil {
				// First value wins on duplicates.
				if _, exists := records[i].Fields[name]; !exists {
					records[i].Fields[name] = v
				}
			}
			continue
		}

		rec := Record{
			Time:    ts,
			Vehicle: vehicle,
			Lap:     lap,
			Fields:  make(map[string]float64),
		}
		for name, i := range col {
			if metaColumns[name] || i >= len(row) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64); err == nil {
				rec.Fields[name] = v
			}
		}
		records = append(records, rec)
	}

	// Honour the aps fallback once per record rather than in every consumer.
	for i := range records {
		if _, ok := records[i].Fields[ChanThrottle]; !ok {
			if v, ok := records[i].Fields[ChanThrottleAlt]; ok {
				records[i].Fields[ChanThrottle] = v
			}
		}
	}

	return records, nil
}

// timestampFormats are tried in order; meta_time is preferred over the ECU
// timestamp when both parse.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func rowTime(row []string, col map[string]int) (time.Time, error) {
	for _, name := range []string{"meta_time", "timestamp"} {
		i, ok := col[name]
		if !ok || i >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[i])
		if raw == "" {
			continue
		}
		for _, layout := range timestampFormats {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		// Unix seconds, possibly fractional.
		if sec, err := strconv.ParseFloat(raw, 64); err == nil {
			return time.Unix(0, int64(sec*float64(time.Second))).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no parseable timestamp")
}

func rowString(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowFloat(row []string, col map[string]int, name string) float64 {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return 0
	}
	return v
}
