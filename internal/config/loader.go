package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds process-level runtime parameters.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	ModelStore string `json:"model_store" yaml:"model_store" toml:"model_store"`
	// Default per-model data queue capacity; an archive job_queue_size
	// overrides it per model.
	JobQueueSize int `json:"job_queue_size" yaml:"job_queue_size" toml:"job_queue_size"`
	// Number of GPUs visible to this process. Device-id validation and
	// GPU placement derive from this value.
	NumberOfGPU int  `json:"number_of_gpu" yaml:"number_of_gpu" toml:"number_of_gpu"`
	Debug       bool `json:"debug" yaml:"debug" toml:"debug"`
	// Default worker response timeout in seconds for models whose archive
	// does not specify one.
	ResponseTimeoutS int `json:"response_timeout_s" yaml:"response_timeout_s" toml:"response_timeout_s"`
	// Path of the model-state snapshot file ("" disables persistence).
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path" toml:"snapshot_path"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
