// Package loader discovers and reads session telemetry datasets. It accepts
// the wide CSV export (one column per channel) and the long export
// (telemetry_name/telemetry_value pairs), plain or zipped, and hands the
// rest of the system clean per-vehicle samples.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/laplens-data/laplens/internal/track"
)

// Dataset is one discovered telemetry file.
type Dataset struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Track string `json:"track"`
}

// Loader finds and loads datasets below a base directory.
type Loader struct {
	DatasetsDir string
}

// New returns a Loader rooted at datasetsDir.
func New(datasetsDir string) *Loader {
	return &Loader{DatasetsDir: datasetsDir}
}

// ListDatasets walks the datasets directory and returns every telemetry
// file found, sorted by name. Track subdirectories are searched recursively
// for *telemetry*.csv files; loose CSVs in the root are included with an
// unknown track.
func (l *Loader) ListDatasets() ([]Dataset, error) {
	var datasets []Dataset

	entries, err := os.ReadDir(l.DatasetsDir)
	if os.IsNotExist(err) {
		return datasets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read datasets dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if strings.HasSuffix(entry.Name(), ".csv") {
				info, err := entry.Info()
				if err != nil {
					continue
				}
				datasets = append(datasets, Dataset{
					Name:  strings.TrimSuffix(entry.Name(), ".csv"),
					Path:  filepath.Join(l.DatasetsDir, entry.Name()),
					Size:  info.Size(),
					Track: "Unknown",
				})
			}
			continue
		}

		trackDir := filepath.Join(l.DatasetsDir, entry.Name())
		trackName := entry.Name()
		walkErr := filepath.WalkDir(trackDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			name := strings.ToLower(d.Name())
			if !strings.Contains(name, "telemetry") {
				return nil
			}
			if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".zip") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			base := d.Name()
			base = strings.TrimSuffix(base, filepath.Ext(base))
			datasets = append(datasets, Dataset{
				Name:  fmt.Sprintf("%s - %s", trackName, base),
				Path:  path,
				Size:  info.Size(),
				Track: trackName,
			})
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", trackDir, walkErr)
		}
	}

	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Name < datasets[j].Name })
	return datasets, nil
}

// TrackName resolves the human-readable track name for a dataset path.
func TrackName(path string) string {
	return track.DisplayName(path)
}
