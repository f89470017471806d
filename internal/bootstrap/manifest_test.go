package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.tsv", sampleTSV)

	manifestYAML := "name: test-dataset\nfiles:\n  - label: group-a\n    path: a.tsv\n"
	manifestPath := writeTestFile(t, dir, "manifest.yaml", manifestYAML)

	m, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.Name != "test-dataset" {
		t.Fatalf("name = %q, want test-dataset", m.Name)
	}
	want := filepath.Join(dir, "a.tsv")
	if m.Files[0].Path != want {
		t.Fatalf("resolved path = %q, want %q", m.Files[0].Path, want)
	}
}

func TestManifestImportAllSharesPlateIdentity(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.tsv", sampleTSV)
	writeTestFile(t, dir, "b.tsv", sampleTSV)

	manifestYAML := "name: two-file\nfiles:\n  - label: a\n    path: a.tsv\n  - label: b\n    path: b.tsv\n"
	manifestPath := writeTestFile(t, dir, "manifest.yaml", manifestYAML)

	m, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	records, err := m.ImportAll()
	if err != nil {
		t.Fatalf("import all: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}
	if records[0].PlateID != records[3].PlateID {
		t.Fatal("expected the same dataset plate integer across files to share one internal PlateID")
	}
}

func TestLoadManifestRejectsEmptyFileList(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTestFile(t, dir, "manifest.yaml", "name: empty\nfiles: []\n")
	if _, err := LoadManifest(manifestPath); err == nil {
		t.Fatal("expected error for manifest with no files")
	}
}
