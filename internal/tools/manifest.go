package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestFileName = "manifest.json"

// ManifestPath returns the install record location inside managedRoot.
func ManifestPath(managedRoot string) string {
	return filepath.Join(managedRoot, manifestFileName)
}

// LoadManifest reads the install record. A missing file yields an empty
// manifest. The record is informational; tool resolution never consults it.
func LoadManifest(managedRoot string) (Manifest, error) {
	contents, err := os.ReadFile(ManifestPath(managedRoot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{Entries: map[string]ManifestEntry{}}, nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Entries == nil {
		manifest.Entries = map[string]ManifestEntry{}
	}
	return manifest, nil
}

func saveManifest(managedRoot string, m Manifest) error {
	path := ManifestPath(managedRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare manifest directory: %w", err)
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

func recordInstall(managedRoot, name, folder, url, checksum string) error {
	manifest, err := LoadManifest(managedRoot)
	if err != nil {
		return err
	}
	manifest.Entries[folder] = ManifestEntry{
		Tool:        name,
		Folder:      folder,
		URL:         url,
		Checksum:    checksum,
		InstalledAt: time.Now().UTC().Format(time.RFC3339),
	}
	return saveManifest(managedRoot, manifest)
}
