package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
addr: ":9090"
model_store: /srv/models
job_queue_size: 50
number_of_gpu: 2
debug: true
response_timeout_s: 60
snapshot_path: /var/lib/batchd/snapshot.json
cors_enabled: true
cors_origins: ["https://example.com"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.ModelStore != "/srv/models" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.JobQueueSize != 50 || cfg.NumberOfGPU != 2 || !cfg.Debug || cfg.ResponseTimeoutS != 60 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cors config: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"addr": ":8082", "job_queue_size": 10}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8082" || cfg.JobQueueSize != 10 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "cfg.toml", "addr = \":8083\"\nnumber_of_gpu = 4\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8083" || cfg.NumberOfGPU != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "cfg.ini", "addr=:80\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
