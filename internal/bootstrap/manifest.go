package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes a set of plate-motion TSV files to import together,
// so a dataset spanning several files (e.g. one per plate family) can be
// bootstrapped with a single command instead of one invocation per file.
type Manifest struct {
	Name  string          `yaml:"name"`
	Files []ManifestEntry `yaml:"files"`
}

// ManifestEntry names one TSV file relative to the manifest's own
// directory, plus a human label carried through to import logs.
type ManifestEntry struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

// LoadManifest reads and validates a dataset manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("bootstrap: parsing manifest: %w", err)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("bootstrap: manifest %q names no files", path)
	}

	dir := filepath.Dir(path)
	for i, f := range m.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("bootstrap: manifest entry %d missing path", i)
		}
		if !filepath.IsAbs(f.Path) {
			m.Files[i].Path = filepath.Join(dir, f.Path)
		}
	}
	return &m, nil
}

// ImportAll reads every file named by the manifest through ReadMotionTSV,
// sharing a single plateIDs mapping across files so a plate referenced by
// the same dataset integer in two files resolves to one internal PlateID.
func (m *Manifest) ImportAll() ([]MotionRecord, error) {
	shared := make(plateIDs)
	var all []MotionRecord
	for _, f := range m.Files {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: opening %s (%s): %w", f.Path, f.Label, err)
		}
		records, err := ReadMotionTSV(file, shared)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("bootstrap: importing %s (%s): %w", f.Path, f.Label, err)
		}
		all = append(all, records...)
	}
	return all, nil
}
