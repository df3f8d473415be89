package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads one archive manifest (YAML).
func Load(path string) (*Archive, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Archive
	if err := yaml.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if a.ModelName == "" {
		return nil, fmt.Errorf("manifest %s: model_name is required", path)
	}
	if a.ModelVersion == "" {
		a.ModelVersion = "1.0"
	}
	a.Dir = filepath.Dir(path)
	return &a, nil
}

// LoadDir scans a model store directory for *.yaml/*.yml manifests and
// builds the archive list. Files that are not manifests are skipped.
func LoadDir(dir string) ([]*Archive, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var archives []*Archive
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		a, err := Load(filepath.Join(abs, e.Name()))
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}
	return archives, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/store
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
