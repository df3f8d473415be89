package wlm

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"batchd/internal/registry"
)

// DefaultDataQueue is the reserved queue id shared inference jobs flow
// through. It exists for the lifetime of a Model and is never removable.
const DefaultDataQueue = "DATA_QUEUE"

// RuntimeInfo carries the process-level facts a Model needs at
// construction: GPU availability and the debug flag. Passing it explicitly
// keeps the core free of any global configuration lookup.
type RuntimeInfo struct {
	GPUCount int
	Debug    bool
}

// Model is the per-model-version admission and batching core. Producers
// enqueue jobs through the queue table; worker loops consume them through
// PollBatch. All exported methods are safe for concurrent use.
type Model struct {
	archive *registry.Archive
	runtime RuntimeInfo
	log     zerolog.Logger

	// mu guards the mutable scalar settings below; they may be updated at
	// runtime via setters or a state restore while serving continues.
	mu              sync.RWMutex
	minWorkers      int
	maxWorkers      int
	batchSize       int
	maxBatchDelay   time.Duration
	responseTimeout int // seconds
	parallelLevel   int
	maxRetryTimeout time.Duration
	clientTimeout   time.Duration

	// Resolved once at construction; deviceIDs contents may be rewritten
	// later via SetDeviceIDs and are guarded by mu.
	parallelType    registry.ParallelType
	deviceType      registry.DeviceType
	deviceIDs       []int
	hasCfgDeviceIDs bool
	numCores        int
	useJobTicket    bool

	gpuCounter    atomic.Int32
	numJobTickets atomic.Int32
	failedInfReqs atomic.Int32

	// Queue table: the reserved data queue plus lazily created per-worker
	// control queues.
	qmu       sync.RWMutex
	jobQueues map[string]*jobDeque

	// batchLock serializes the "wait for the first job of a new batch"
	// phase across worker loops sharing the data queue. Capacity-1 channel
	// so acquisition stays cancellable.
	batchLock chan struct{}
}

// NewModel builds the core for one model version. Settings are derived from
// the archive configuration when present, falling back to process defaults;
// queueSize bounds the shared data queue unless the archive overrides it.
func NewModel(a *registry.Archive, queueSize int, rt RuntimeInfo, log zerolog.Logger) *Model {
	m := &Model{
		archive:         a,
		runtime:         rt,
		log:             log.With().Str("model", a.ModelName).Str("version", a.ModelVersion).Logger(),
		parallelLevel:   1,
		parallelType:    registry.ParallelNone,
		maxRetryTimeout: 5 * time.Minute,
		jobQueues:       make(map[string]*jobDeque),
		batchLock:       make(chan struct{}, 1),
	}
	if rt.GPUCount > 0 {
		m.deviceType = registry.DeviceGPU
	} else {
		m.deviceType = registry.DeviceCPU
	}

	if cfg := a.Config; cfg != nil {
		if cfg.ParallelLevel > 1 && cfg.ParallelType != registry.ParallelNone {
			m.parallelLevel = cfg.ParallelLevel
			m.parallelType = cfg.ParallelType
		}
		if cfg.DeviceType != registry.DeviceAny {
			if cfg.DeviceType == registry.DeviceGPU && rt.GPUCount > 0 {
				m.deviceType = registry.DeviceGPU
			} else {
				m.deviceType = registry.DeviceCPU
			}
		}
		if len(cfg.DeviceIDs) > 0 {
			m.deviceIDs = append([]int(nil), cfg.DeviceIDs...)
			m.hasCfgDeviceIDs = true
			for _, id := range cfg.DeviceIDs {
				if id < 0 || id >= rt.GPUCount {
					m.log.Warn().Int("device_id", id).Msg("invalid device id, ignoring device id list")
					m.deviceIDs = nil
					m.hasCfgDeviceIDs = false
					break
				}
			}
		}
		if cfg.MaxRetryTimeoutS > 0 {
			m.maxRetryTimeout = time.Duration(cfg.MaxRetryTimeoutS) * time.Second
		}
		m.clientTimeout = time.Duration(cfg.ClientTimeoutMs) * time.Millisecond
		if cfg.JobQueueSize > 0 {
			// archive overrides the process-level queue size
			queueSize = cfg.JobQueueSize
		}
		m.useJobTicket = cfg.UseJobTicket
	} else {
		m.batchSize = 1
		m.maxBatchDelay = 100 * time.Millisecond
	}

	if rt.GPUCount > 0 && m.deviceType != registry.DeviceCPU {
		if m.hasCfgDeviceIDs {
			m.numCores = len(m.deviceIDs)
		} else {
			m.numCores = rt.GPUCount
		}
	}

	// The data queue always exists and keeps its bound for the model's
	// lifetime.
	m.jobQueues[DefaultDataQueue] = newJobDeque(queueSize)
	return m
}

// ModelName returns the archive model name.
func (m *Model) ModelName() string { return m.archive.ModelName }

// Version returns the archive model version.
func (m *Model) Version() string { return m.archive.ModelVersion }

// VersionedName is the instance's external key, "name:version".
func (m *Model) VersionedName() string {
	return m.archive.ModelName + ":" + m.archive.ModelVersion
}

// ModelURL returns the archive source URL.
func (m *Model) ModelURL() string { return m.archive.URL }

// Archive exposes the backing archive.
func (m *Model) Archive() *registry.Archive { return m.archive }

func (m *Model) MinWorkers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minWorkers
}

func (m *Model) SetMinWorkers(n int) {
	m.mu.Lock()
	m.minWorkers = n
	m.mu.Unlock()
}

func (m *Model) MaxWorkers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxWorkers
}

func (m *Model) SetMaxWorkers(n int) {
	m.mu.Lock()
	m.maxWorkers = n
	m.mu.Unlock()
}

func (m *Model) BatchSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchSize
}

func (m *Model) SetBatchSize(n int) {
	m.mu.Lock()
	m.batchSize = n
	m.mu.Unlock()
}

func (m *Model) MaxBatchDelay() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxBatchDelay
}

func (m *Model) SetMaxBatchDelay(d time.Duration) {
	m.mu.Lock()
	m.maxBatchDelay = d
	m.mu.Unlock()
}

// ResponseTimeout reports the worker response timeout in seconds. In debug
// mode it is effectively unbounded so breakpoints don't kill workers.
func (m *Model) ResponseTimeout() int {
	if m.runtime.Debug {
		return math.MaxInt32
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.responseTimeout
}

func (m *Model) SetResponseTimeout(sec int) {
	m.mu.Lock()
	m.responseTimeout = sec
	m.mu.Unlock()
}

func (m *Model) MaxRetryTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxRetryTimeout
}

func (m *Model) SetMaxRetryTimeout(d time.Duration) {
	m.mu.Lock()
	m.maxRetryTimeout = d
	m.mu.Unlock()
}

func (m *Model) ClientTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clientTimeout
}

func (m *Model) SetClientTimeout(d time.Duration) {
	m.mu.Lock()
	m.clientTimeout = d
	m.mu.Unlock()
}

func (m *Model) ParallelLevel() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parallelLevel
}

func (m *Model) ParallelType() registry.ParallelType { return m.parallelType }

func (m *Model) DeviceType() registry.DeviceType { return m.deviceType }

// DeviceIDs returns a copy of the validated explicit device list, or nil
// when none was configured (or the configured list was discarded).
func (m *Model) DeviceIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.deviceIDs == nil {
		return nil
	}
	return append([]int(nil), m.deviceIDs...)
}

// SetDeviceIDs replaces the list contents in place. Callers must supply a
// list of the same length; extra entries are ignored.
func (m *Model) SetDeviceIDs(ids []int) {
	m.mu.Lock()
	copy(m.deviceIDs, ids)
	m.mu.Unlock()
}

func (m *Model) HasCfgDeviceIDs() bool { return m.hasCfgDeviceIDs }

// NumCores is the number of GPU slots available for round-robin placement;
// zero on CPU-only models.
func (m *Model) NumCores() int { return m.numCores }

// GPUCounter reads the rotating placement counter.
func (m *Model) GPUCounter() int { return int(m.gpuCounter.Load()) }

// NextGPU consumes the next counter value. Callers take it modulo NumCores
// (or index into DeviceIDs) to pick a device for a newly started worker.
func (m *Model) NextGPU() int { return int(m.gpuCounter.Add(1) - 1) }

// IncrFailedInfReqs bumps the consecutive-failure counter and returns the
// new value.
func (m *Model) IncrFailedInfReqs() int { return int(m.failedInfReqs.Add(1)) }

// ResetFailedInfReqs clears the consecutive-failure counter.
func (m *Model) ResetFailedInfReqs() { m.failedInfReqs.Store(0) }

// FailedInfReqs reads the consecutive-failure counter.
func (m *Model) FailedInfReqs() int { return int(m.failedInfReqs.Load()) }
