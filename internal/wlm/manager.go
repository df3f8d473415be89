package wlm

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"batchd/internal/registry"
	"batchd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig or archive fields are
// unset.
const (
	defaultJobQueueSize     = 100
	defaultResponseTimeoutS = 120
	defaultMinWorkers       = 1
	defaultMaxWorkers       = 1
	defaultBatchSize        = 1
	defaultMaxBatchDelay    = 100 * time.Millisecond
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Default data-queue capacity per model; archives may override it.
	JobQueueSize int
	// GPUs visible to the process, consulted for device resolution.
	GPUCount int
	Debug    bool
	// Default worker response timeout (seconds).
	ResponseTimeoutS int
	// Path of the model-state snapshot file ("" disables persistence).
	SnapshotPath string
	Logger       zerolog.Logger
}

// Manager owns the registered model-version cores, keyed by model name and
// version, and resolves default versions.
type Manager struct {
	mu       sync.RWMutex
	models   map[string]map[string]*Model
	defaults map[string]string // model name -> default version
	cfg      ManagerConfig
	log      zerolog.Logger
}

// NewManager constructs a Manager, applying package defaults for unset
// config fields.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.JobQueueSize <= 0 {
		cfg.JobQueueSize = defaultJobQueueSize
	}
	if cfg.ResponseTimeoutS <= 0 {
		cfg.ResponseTimeoutS = defaultResponseTimeoutS
	}
	return &Manager{
		models:   make(map[string]map[string]*Model),
		defaults: make(map[string]string),
		cfg:      cfg,
		log:      cfg.Logger,
	}
}

// Ready reports whether at least one model is registered and able to
// accept jobs.
func (mm *Manager) Ready() bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return len(mm.models) > 0
}

// Register creates the core for one archive and applies its settings,
// falling back to process defaults. The first registered version of a name
// becomes its default.
func (mm *Manager) Register(a *registry.Archive) (*Model, error) {
	m := NewModel(a, mm.cfg.JobQueueSize, RuntimeInfo{GPUCount: mm.cfg.GPUCount, Debug: mm.cfg.Debug}, mm.log)

	minW, maxW := defaultMinWorkers, defaultMaxWorkers
	respTimeout := mm.cfg.ResponseTimeoutS
	if cfg := a.Config; cfg != nil {
		if cfg.MinWorkers > 0 {
			minW = cfg.MinWorkers
		}
		if cfg.MaxWorkers > 0 {
			maxW = cfg.MaxWorkers
		}
		if cfg.ResponseTimeout > 0 {
			respTimeout = cfg.ResponseTimeout
		}
		if cfg.BatchSize > 0 {
			m.SetBatchSize(cfg.BatchSize)
		} else {
			m.SetBatchSize(defaultBatchSize)
		}
		if cfg.MaxBatchDelayMs > 0 {
			m.SetMaxBatchDelay(time.Duration(cfg.MaxBatchDelayMs) * time.Millisecond)
		} else {
			m.SetMaxBatchDelay(defaultMaxBatchDelay)
		}
	}
	if maxW < minW {
		maxW = minW
	}
	m.SetMinWorkers(minW)
	m.SetMaxWorkers(maxW)
	m.SetResponseTimeout(respTimeout)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	versions := mm.models[a.ModelName]
	if versions == nil {
		versions = make(map[string]*Model)
		mm.models[a.ModelName] = versions
	}
	if _, ok := versions[a.ModelVersion]; ok {
		return nil, modelExistsError{key: m.VersionedName()}
	}
	versions[a.ModelVersion] = m
	if _, ok := mm.defaults[a.ModelName]; !ok {
		mm.defaults[a.ModelName] = a.ModelVersion
	}
	mm.log.Info().Str("model", a.ModelName).Str("version", a.ModelVersion).Msg("model registered")
	return m, nil
}

// GetModel resolves a model by name and version; an empty version means the
// default version.
func (mm *Manager) GetModel(name, version string) (*Model, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.getLocked(name, version)
}

func (mm *Manager) getLocked(name, version string) (*Model, error) {
	versions := mm.models[name]
	if versions == nil {
		return nil, modelNotFoundError{key: name}
	}
	if version == "" {
		version = mm.defaults[name]
	}
	m := versions[version]
	if m == nil {
		return nil, modelNotFoundError{key: name + ":" + version}
	}
	return m, nil
}

// SetDefault marks an existing version as the default for its name.
func (mm *Manager) SetDefault(name, version string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if _, err := mm.getLocked(name, version); err != nil {
		return err
	}
	mm.defaults[name] = version
	return nil
}

// Unregister removes a model version. When the default version is removed
// and others remain, the highest remaining version becomes the default.
func (mm *Manager) Unregister(name, version string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	m, err := mm.getLocked(name, version)
	if err != nil {
		return err
	}
	delete(mm.models[name], m.Version())
	if len(mm.models[name]) == 0 {
		delete(mm.models, name)
		delete(mm.defaults, name)
		return nil
	}
	if mm.defaults[name] == m.Version() {
		var remaining []string
		for v := range mm.models[name] {
			remaining = append(remaining, v)
		}
		sort.Strings(remaining)
		mm.defaults[name] = remaining[len(remaining)-1]
	}
	return nil
}

// Models lists all registered versions with their snapshot records, sorted
// by name then version.
func (mm *Manager) Models() []types.RegisteredModel {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	var out []types.RegisteredModel
	for name, versions := range mm.models {
		for version, m := range versions {
			out = append(out, types.RegisteredModel{
				ModelName:    name,
				ModelVersion: version,
				ModelURL:     m.ModelURL(),
				Snapshot:     m.State(mm.defaults[name] == version),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModelName != out[j].ModelName {
			return out[i].ModelName < out[j].ModelName
		}
		return out[i].ModelVersion < out[j].ModelVersion
	})
	return out
}

// Describe returns the snapshot record for one model version.
func (mm *Manager) Describe(name, version string) (types.ModelSnapshot, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	m, err := mm.getLocked(name, version)
	if err != nil {
		return types.ModelSnapshot{}, err
	}
	return m.State(mm.defaults[name] == m.Version()), nil
}

// Submit admits one job into a model's data queue, mapping admission
// rejection to a backpressure error.
func (mm *Manager) Submit(name, version string, j *types.Job) error {
	m, err := mm.GetModel(name, version)
	if err != nil {
		return err
	}
	if ct := m.ClientTimeout(); ct > 0 && j.Input.ClientExpiryTS == 0 {
		j.Input.ClientExpiryTS = time.Now().Add(ct).UnixMilli()
	}
	if !m.AddJob(j) {
		return tooBusyError{model: m.VersionedName()}
	}
	return nil
}
