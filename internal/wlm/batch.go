package wlm

import (
	"context"
	"time"

	"batchd/pkg/types"
)

// PollBatch fills batch with 1..BatchSize jobs for the named worker.
//
// The worker's private queue is drained first: a control job is returned
// alone, within waitTime, and never mixed with data jobs. Otherwise the
// caller enters the shared-data-queue path: one worker at a time waits for
// the first job of a new batch (serialized by batchLock so concurrent
// pollers cannot fragment work below the configured batch size), then fills
// the rest under a shrinking MaxBatchDelay budget.
//
// A describe or stream-predict job caps the batch at exactly one; when one
// is encountered mid-batch it is pushed back to the head of the queue for a
// later poll. Follow-up jobs whose client deadline has passed are dropped
// with a log; the first job of a batch is exempt from that check and is
// always included.
//
// Cancellation of ctx aborts any blocking wait; jobs already placed in
// batch remain there for the caller to account for.
func (m *Model) PollBatch(ctx context.Context, workerID string, waitTime time.Duration, batch map[string]*types.Job) error {
	if batch == nil || workerID == "" {
		return invalidArgumentError{msg: "pollBatch requires a worker id and a batch map"}
	}
	if len(batch) != 0 {
		return invalidArgumentError{msg: "the batch map provided contains stale jobs, clear them"}
	}

	m.qmu.RLock()
	private := m.jobQueues[workerID]
	m.qmu.RUnlock()
	if private != nil && private.len() > 0 {
		j, err := private.poll(ctx, waitTime)
		if err != nil {
			return err
		}
		if j != nil {
			batch[j.ID] = j
			return nil
		}
	}

	if m.UseJobTicket() {
		m.IncNumJobTickets()
	}
	select {
	case m.batchLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.batchLock }()

	dq := m.dataQueue()
	j, err := dq.take(ctx)
	if err != nil {
		return err
	}
	m.log.Trace().Str("job", j.ID).Msg("got first job")
	batch[j.ID] = j
	if !j.Cmd.Batchable() {
		m.observeBatch(batch, dq)
		return nil
	}

	delay := m.MaxBatchDelay()
	begin := time.Now()
	for i := 0; i < m.BatchSize()-1; i++ {
		j, err = dq.poll(ctx, delay)
		if err != nil {
			return err
		}
		if j == nil {
			break
		}
		end := time.Now()
		if !j.Cmd.Batchable() {
			// serve it alone in a later poll
			dq.pushFront(j)
			break
		}
		delay -= end.Sub(begin)
		begin = end
		if j.Input.Expired(end) {
			m.log.Warn().Str("request", j.Input.RequestID).Msg("drop inference request due to client timeout")
			jobsExpired.WithLabelValues(m.VersionedName()).Inc()
		} else {
			batch[j.ID] = j
		}
		if delay <= 0 {
			break
		}
	}
	m.log.Trace().Int("size", len(batch)).Msg("sending jobs")
	m.observeBatch(batch, dq)
	return nil
}

func (m *Model) observeBatch(batch map[string]*types.Job, dq *jobDeque) {
	name := m.VersionedName()
	batchesTotal.WithLabelValues(name).Inc()
	batchSize.WithLabelValues(name).Observe(float64(len(batch)))
	queueDepth.WithLabelValues(name).Set(float64(dq.len()))
}
