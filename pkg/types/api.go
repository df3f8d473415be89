package types

// ModelSnapshot is the flat key/value record exported for a model version.
// It backs the model-status query and the saved-state file; importing it
// overwrites the corresponding mutable model settings.
type ModelSnapshot struct {
	// Whether this version is the default for its model name.
	// example: true
	DefaultVersion bool `json:"defaultVersion"`
	// Archive file name derived from the model URL.
	// example: resnet18.mar
	MarName string `json:"marName,omitempty"`
	// Desired worker pool bounds.
	// example: 1
	MinWorkers int `json:"minWorkers"`
	// example: 4
	MaxWorkers int `json:"maxWorkers"`
	// Target number of jobs per batch.
	// example: 8
	BatchSize int `json:"batchSize"`
	// Upper bound in milliseconds on waiting to fill a batch.
	// example: 100
	MaxBatchDelay int `json:"maxBatchDelay"`
	// Worker response timeout in seconds.
	// example: 120
	ResponseTimeout int `json:"responseTimeout"`
	// Worker-internal parallelism degree; present only when greater than 1.
	// example: 2
	ParallelLevel int `json:"parallelLevel,omitempty"`
}

// RegisteredModel summarizes one registered model version for listings.
type RegisteredModel struct {
	// example: resnet18
	ModelName string `json:"model_name"`
	// example: 1.0
	ModelVersion string `json:"model_version"`
	// example: https://example.com/store/resnet18.mar
	ModelURL string `json:"model_url,omitempty"`
	Snapshot ModelSnapshot `json:"snapshot"`
}

// ModelsResponse wraps the list returned by GET /models.
type ModelsResponse struct {
	Models []RegisteredModel `json:"models"`
}

// SubmitResponse acknowledges an admitted job.
type SubmitResponse struct {
	// example: 7b1c9d1e-8a4e-4a2d-9a6e-2f5b8c7d4e3a
	JobID string `json:"job_id"`
	// example: accepted
	Status string `json:"status"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: resnet18
	Error string `json:"error" example:"model not found: resnet18"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
