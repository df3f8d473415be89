package registry

import (
	"path"
	"strings"
)

// DeviceType selects where a model's workers run.
type DeviceType string

const (
	DeviceAny DeviceType = ""
	DeviceCPU DeviceType = "cpu"
	DeviceGPU DeviceType = "gpu"
)

// ParallelType names the worker-internal parallelism strategy. The queueing
// core stores and exposes it but does not interpret it.
type ParallelType string

const (
	ParallelNone ParallelType = ""
	ParallelPP   ParallelType = "pp"
	ParallelTP   ParallelType = "tp"
	ParallelPPTP ParallelType = "pptp"
)

// ModelConfig is the optional per-archive configuration block.
type ModelConfig struct {
	MinWorkers       int          `yaml:"min_workers" json:"min_workers"`
	MaxWorkers       int          `yaml:"max_workers" json:"max_workers"`
	BatchSize        int          `yaml:"batch_size" json:"batch_size"`
	MaxBatchDelayMs  int          `yaml:"max_batch_delay_ms" json:"max_batch_delay_ms"`
	ResponseTimeout  int          `yaml:"response_timeout_s" json:"response_timeout_s"`
	ParallelLevel    int          `yaml:"parallel_level" json:"parallel_level"`
	ParallelType     ParallelType `yaml:"parallel_type" json:"parallel_type"`
	DeviceType       DeviceType   `yaml:"device_type" json:"device_type"`
	DeviceIDs        []int        `yaml:"device_ids" json:"device_ids"`
	MaxRetryTimeoutS int          `yaml:"max_retry_timeout_s" json:"max_retry_timeout_s"`
	ClientTimeoutMs  int64        `yaml:"client_timeout_ms" json:"client_timeout_ms"`
	JobQueueSize     int          `yaml:"job_queue_size" json:"job_queue_size"`
	UseJobTicket     bool         `yaml:"use_job_ticket" json:"use_job_ticket"`
}

// Archive describes one packaged model version as seen by the serving core.
type Archive struct {
	ModelName    string `yaml:"model_name"`
	ModelVersion string `yaml:"model_version"`
	URL          string `yaml:"url"`
	// Dir is the directory the manifest was loaded from.
	Dir    string       `yaml:"-"`
	Config *ModelConfig `yaml:"config"`
}

// MarName returns the archive file name derived from the model URL.
func (a *Archive) MarName() string {
	u := a.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(strings.TrimSuffix(u, "/"))
}
