// Package wlm is the per-model-version job-queue and batching core. It is
// structured into small files by concern:
//
//   - model.go: the Model type, construction-time config derivation, and
//     scalar accessors/setters.
//   - deque.go: the internal blocking double-ended job queue.
//   - queues.go: the queue table (shared data queue + per-worker control
//     queues) and admission.
//   - batch.go: PollBatch, the time-budgeted batch assembly algorithm.
//   - tickets.go: the ticket throttle gating admission.
//   - state.go: snapshot export/import of mutable settings.
//   - manager.go: registration of archives into Model cores, default
//     version resolution, job submission.
//   - persist.go: snapshot file save/restore.
//   - worker.go: the consumer loop driving PollBatch and GPU slot
//     assignment.
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, ...).
//   - metrics.go: Prometheus instrumentation.
//
// Producers call Manager.Submit / Model.AddJob concurrently with worker
// loops calling Model.PollBatch; all coordination lives inside this
// package. External packages should rely on exported methods only.
package wlm
