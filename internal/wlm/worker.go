package wlm

import (
	"context"
	"time"

	"batchd/pkg/types"
)

// controlPollWait bounds the private-queue wait of each poll cycle.
const controlPollWait = time.Second

// BatchHandler executes one assembled batch. Implementations talk to the
// actual worker process/runtime, which is outside this package.
type BatchHandler interface {
	HandleBatch(ctx context.Context, m *Model, batch map[string]*types.Job) error
}

// Worker is the in-process loop driving one worker's consumption: control
// queue first, then batches off the shared data queue. Worker process
// lifecycle (spawn, restart, scale) belongs to the caller.
type Worker struct {
	id      string
	model   *Model
	handler BatchHandler
	gpuID   int
}

// NewWorker creates a worker loop for the model. GPU placement is taken
// from the model's rotating counter: the next slot modulo NumCores, mapped
// through the explicit device list when one is configured. CPU models get
// gpuID -1.
func NewWorker(id string, m *Model, h BatchHandler) *Worker {
	gpu := -1
	if m.NumCores() > 0 {
		slot := m.NextGPU() % m.NumCores()
		if ids := m.DeviceIDs(); len(ids) > 0 {
			gpu = ids[slot]
		} else {
			gpu = slot
		}
	}
	return &Worker{id: id, model: m, handler: h, gpuID: gpu}
}

// ID returns the worker-context id keying this worker's control queue.
func (w *Worker) ID() string { return w.id }

// GPUID returns the assigned device index, or -1 for CPU.
func (w *Worker) GPUID() int { return w.gpuID }

// Run polls and dispatches batches until ctx is canceled or an unload or
// scale-down control job arrives. Handler failures bump the model's
// consecutive-failure counter; successes reset it. Jobs dequeued into a
// partial batch when a poll is interrupted are put back at the head of the
// data queue, never dropped.
func (w *Worker) Run(ctx context.Context) error {
	defer w.model.RemoveJobQueue(w.id)
	for {
		batch := make(map[string]*types.Job)
		if err := w.model.PollBatch(ctx, w.id, controlPollWait, batch); err != nil {
			w.requeue(batch)
			return err
		}
		if len(batch) == 0 {
			continue
		}
		if err := w.handler.HandleBatch(ctx, w.model, batch); err != nil {
			failed := w.model.IncrFailedInfReqs()
			w.model.log.Error().Err(err).Str("worker", w.id).Int("consecutive_failures", failed).Msg("batch execution failed")
		} else {
			w.model.ResetFailedInfReqs()
		}
		for _, j := range batch {
			if j.Cmd == types.CmdUnload || j.Cmd == types.CmdScaleDown {
				return nil
			}
		}
	}
}

// requeue reinserts jobs from an interrupted poll at the head of the data
// queue so another worker serves them. The unchecked head push is used: the
// jobs occupied queue slots moments ago, and rejecting them here would lose
// work.
func (w *Worker) requeue(batch map[string]*types.Job) {
	if len(batch) == 0 {
		return
	}
	dq := w.model.dataQueue()
	for _, j := range batch {
		dq.pushFront(j)
	}
	w.model.log.Warn().Int("jobs", len(batch)).Str("worker", w.id).Msg("requeued jobs from interrupted poll")
}
