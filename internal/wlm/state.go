package wlm

import (
	"math"
	"time"

	"batchd/pkg/types"
)

// State exports the flat snapshot record served by the model-status query
// and written to the saved-state file.
func (m *Model) State(isDefaultVersion bool) types.ModelSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := types.ModelSnapshot{
		DefaultVersion:  isDefaultVersion,
		MarName:         m.archive.MarName(),
		MinWorkers:      m.minWorkers,
		MaxWorkers:      m.maxWorkers,
		BatchSize:       m.batchSize,
		MaxBatchDelay:   int(m.maxBatchDelay / time.Millisecond),
		ResponseTimeout: m.responseTimeout,
	}
	if m.parallelLevel > 1 {
		s.ParallelLevel = m.parallelLevel
	}
	// debug mode overrides the reported response timeout
	if m.runtime.Debug {
		s.ResponseTimeout = math.MaxInt32
	}
	return s
}

// RestoreState overwrites the mutable settings from a snapshot record.
// ParallelLevel is only applied when the record carries one.
func (m *Model) RestoreState(s types.ModelSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minWorkers = s.MinWorkers
	m.maxWorkers = s.MaxWorkers
	m.maxBatchDelay = time.Duration(s.MaxBatchDelay) * time.Millisecond
	m.responseTimeout = s.ResponseTimeout
	m.batchSize = s.BatchSize
	if s.ParallelLevel > 0 {
		m.parallelLevel = s.ParallelLevel
	}
}
