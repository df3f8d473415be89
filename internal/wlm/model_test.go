package wlm

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"batchd/internal/registry"
)

func archiveWith(cfg *registry.ModelConfig) *registry.Archive {
	return &registry.Archive{
		ModelName:    "resnet",
		ModelVersion: "1.0",
		URL:          "https://example.com/store/resnet.mar?x=1",
		Config:       cfg,
	}
}

func TestNewModelNoConfigDefaults(t *testing.T) {
	m := NewModel(archiveWith(nil), 10, RuntimeInfo{}, zerolog.Nop())
	if m.BatchSize() != 1 {
		t.Fatalf("expected batchSize 1 got %d", m.BatchSize())
	}
	if m.MaxBatchDelay() != 100*time.Millisecond {
		t.Fatalf("expected maxBatchDelay 100ms got %v", m.MaxBatchDelay())
	}
	if m.DeviceType() != registry.DeviceCPU {
		t.Fatalf("expected cpu device without gpus, got %s", m.DeviceType())
	}
	if m.NumCores() != 0 {
		t.Fatalf("expected 0 cores got %d", m.NumCores())
	}
	if m.VersionedName() != "resnet:1.0" {
		t.Fatalf("unexpected versioned name %q", m.VersionedName())
	}
}

func TestNewModelParallelismActivation(t *testing.T) {
	// level > 1 but type none: stays inactive
	m := NewModel(archiveWith(&registry.ModelConfig{ParallelLevel: 4}), 10, RuntimeInfo{}, zerolog.Nop())
	if m.ParallelLevel() != 1 || m.ParallelType() != registry.ParallelNone {
		t.Fatalf("expected parallelism inactive, got level=%d type=%q", m.ParallelLevel(), m.ParallelType())
	}
	// both conditions met: active
	m = NewModel(archiveWith(&registry.ModelConfig{ParallelLevel: 4, ParallelType: registry.ParallelTP}), 10, RuntimeInfo{}, zerolog.Nop())
	if m.ParallelLevel() != 4 || m.ParallelType() != registry.ParallelTP {
		t.Fatalf("expected parallelism active, got level=%d type=%q", m.ParallelLevel(), m.ParallelType())
	}
}

func TestNewModelDeviceResolution(t *testing.T) {
	// GPU requested but none available: CPU
	m := NewModel(archiveWith(&registry.ModelConfig{DeviceType: registry.DeviceGPU}), 10, RuntimeInfo{GPUCount: 0}, zerolog.Nop())
	if m.DeviceType() != registry.DeviceCPU {
		t.Fatalf("expected cpu fallback, got %s", m.DeviceType())
	}
	// GPU requested and available: GPU with all cores
	m = NewModel(archiveWith(&registry.ModelConfig{DeviceType: registry.DeviceGPU}), 10, RuntimeInfo{GPUCount: 4}, zerolog.Nop())
	if m.DeviceType() != registry.DeviceGPU || m.NumCores() != 4 {
		t.Fatalf("expected gpu with 4 cores, got %s cores=%d", m.DeviceType(), m.NumCores())
	}
	// CPU requested with GPUs present: CPU, no cores
	m = NewModel(archiveWith(&registry.ModelConfig{DeviceType: registry.DeviceCPU}), 10, RuntimeInfo{GPUCount: 4}, zerolog.Nop())
	if m.DeviceType() != registry.DeviceCPU || m.NumCores() != 0 {
		t.Fatalf("expected cpu with 0 cores, got %s cores=%d", m.DeviceType(), m.NumCores())
	}
}

func TestNewModelInvalidDeviceIDsDiscarded(t *testing.T) {
	cfg := &registry.ModelConfig{DeviceType: registry.DeviceGPU, DeviceIDs: []int{0, 5}}
	m := NewModel(archiveWith(cfg), 10, RuntimeInfo{GPUCount: 2}, zerolog.Nop())
	if m.HasCfgDeviceIDs() {
		t.Fatalf("expected configured device ids to be discarded")
	}
	if m.DeviceIDs() != nil {
		t.Fatalf("expected nil device ids, got %v", m.DeviceIDs())
	}
	// falls back to all available gpus
	if m.NumCores() != 2 {
		t.Fatalf("expected 2 cores got %d", m.NumCores())
	}
}

func TestNewModelValidDeviceIDs(t *testing.T) {
	cfg := &registry.ModelConfig{DeviceType: registry.DeviceGPU, DeviceIDs: []int{1, 3}}
	m := NewModel(archiveWith(cfg), 10, RuntimeInfo{GPUCount: 4}, zerolog.Nop())
	if !m.HasCfgDeviceIDs() {
		t.Fatalf("expected configured device ids to be kept")
	}
	if m.NumCores() != 2 {
		t.Fatalf("expected numCores to follow the explicit list, got %d", m.NumCores())
	}
	m.SetDeviceIDs([]int{2, 0})
	if ids := m.DeviceIDs(); ids[0] != 2 || ids[1] != 0 {
		t.Fatalf("expected in-place replacement, got %v", ids)
	}
}

func TestDeviceIDsConcurrentAccess(t *testing.T) {
	cfg := &registry.ModelConfig{DeviceType: registry.DeviceGPU, DeviceIDs: []int{0, 1}}
	m := NewModel(archiveWith(cfg), 10, RuntimeInfo{GPUCount: 4}, zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				if n%2 == 0 {
					m.SetDeviceIDs([]int{n % 4, (n + 1) % 4})
				} else if ids := m.DeviceIDs(); len(ids) != 2 {
					t.Errorf("expected 2 device ids, got %v", ids)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestNewModelTimeoutsAndQueueOverride(t *testing.T) {
	cfg := &registry.ModelConfig{
		MaxRetryTimeoutS: 30,
		ClientTimeoutMs:  2500,
		JobQueueSize:     3,
	}
	m := NewModel(archiveWith(cfg), 100, RuntimeInfo{}, zerolog.Nop())
	if m.MaxRetryTimeout() != 30*time.Second {
		t.Fatalf("expected 30s retry timeout got %v", m.MaxRetryTimeout())
	}
	if m.ClientTimeout() != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s client timeout got %v", m.ClientTimeout())
	}
	// archive queue size overrides the process default of 100
	dq := m.dataQueue()
	for i := 0; i < 3; i++ {
		if !dq.offer(job("j")) {
			t.Fatalf("offer %d failed below the configured bound", i)
		}
	}
	if dq.offer(job("j")) {
		t.Fatalf("expected the archive job_queue_size bound to hold")
	}
}

func TestResponseTimeoutDebugOverride(t *testing.T) {
	m := NewModel(archiveWith(nil), 10, RuntimeInfo{Debug: true}, zerolog.Nop())
	m.SetResponseTimeout(120)
	if m.ResponseTimeout() != math.MaxInt32 {
		t.Fatalf("expected unbounded response timeout in debug mode, got %d", m.ResponseTimeout())
	}
	if s := m.State(false); s.ResponseTimeout != math.MaxInt32 {
		t.Fatalf("expected snapshot to report the debug override, got %d", s.ResponseTimeout)
	}
}

func TestStateExportImport(t *testing.T) {
	m := NewModel(archiveWith(&registry.ModelConfig{ParallelLevel: 2, ParallelType: registry.ParallelPP}), 10, RuntimeInfo{}, zerolog.Nop())
	m.SetMinWorkers(2)
	m.SetMaxWorkers(8)
	m.SetBatchSize(16)
	m.SetMaxBatchDelay(250 * time.Millisecond)
	m.SetResponseTimeout(60)

	s := m.State(true)
	if !s.DefaultVersion || s.MarName != "resnet.mar" {
		t.Fatalf("unexpected identity fields: %+v", s)
	}
	if s.MinWorkers != 2 || s.MaxWorkers != 8 || s.BatchSize != 16 || s.MaxBatchDelay != 250 || s.ResponseTimeout != 60 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.ParallelLevel != 2 {
		t.Fatalf("expected parallelLevel exported when > 1, got %d", s.ParallelLevel)
	}

	m2 := NewModel(archiveWith(nil), 10, RuntimeInfo{}, zerolog.Nop())
	m2.RestoreState(s)
	if m2.MinWorkers() != 2 || m2.MaxWorkers() != 8 || m2.BatchSize() != 16 {
		t.Fatalf("restore did not apply worker/batch settings")
	}
	if m2.MaxBatchDelay() != 250*time.Millisecond || m2.ResponseTimeout() != 60 {
		t.Fatalf("restore did not apply delay/timeout settings")
	}
	if m2.ParallelLevel() != 2 {
		t.Fatalf("restore did not apply parallelLevel")
	}

	// parallelLevel absent from the record leaves the current value alone
	s.ParallelLevel = 0
	m2.RestoreState(s)
	if m2.ParallelLevel() != 2 {
		t.Fatalf("expected parallelLevel preserved when absent, got %d", m2.ParallelLevel())
	}
}

func TestSnapshotOmitsParallelLevelOfOne(t *testing.T) {
	m := NewModel(archiveWith(nil), 10, RuntimeInfo{}, zerolog.Nop())
	if s := m.State(false); s.ParallelLevel != 0 {
		t.Fatalf("expected parallelLevel omitted at level 1, got %d", s.ParallelLevel)
	}
}

func TestFailedInfReqsCounter(t *testing.T) {
	m := NewModel(archiveWith(nil), 10, RuntimeInfo{}, zerolog.Nop())
	if n := m.IncrFailedInfReqs(); n != 1 {
		t.Fatalf("expected 1 got %d", n)
	}
	if n := m.IncrFailedInfReqs(); n != 2 {
		t.Fatalf("expected 2 got %d", n)
	}
	m.ResetFailedInfReqs()
	if n := m.FailedInfReqs(); n != 0 {
		t.Fatalf("expected reset to 0 got %d", n)
	}
}
