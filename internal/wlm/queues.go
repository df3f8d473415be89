package wlm

import "batchd/pkg/types"

// AddControlJob enqueues into the named worker's private queue, creating an
// unbounded queue on first use. Creation is race-tolerant: concurrent
// callers agree on a single queue.
func (m *Model) AddControlJob(workerID string, j *types.Job) {
	m.qmu.RLock()
	q := m.jobQueues[workerID]
	m.qmu.RUnlock()
	if q == nil {
		m.qmu.Lock()
		q = m.jobQueues[workerID]
		if q == nil {
			q = newJobDeque(0)
			m.jobQueues[workerID] = q
		}
		m.qmu.Unlock()
	}
	q.offer(j)
}

// RemoveJobQueue deletes the named private queue. The reserved data queue
// is never removed.
func (m *Model) RemoveJobQueue(workerID string) {
	if workerID == DefaultDataQueue {
		return
	}
	m.qmu.Lock()
	delete(m.jobQueues, workerID)
	m.qmu.Unlock()
}

// AddJob admits a job into the shared data queue. It returns false when
// ticket throttling rejects the job or the bounded queue is full; the
// caller decides whether that is a backpressure error.
func (m *Model) AddJob(j *types.Job) bool {
	if m.UseJobTicket() && !m.GetJobTickets() {
		m.log.Info().Str("job", j.ID).Msg("no job tickets available")
		jobsRejected.WithLabelValues(m.VersionedName(), "ticket").Inc()
		return false
	}
	dq := m.dataQueue()
	if !dq.offer(j) {
		jobsRejected.WithLabelValues(m.VersionedName(), "queue_full").Inc()
		return false
	}
	jobsAccepted.WithLabelValues(m.VersionedName()).Inc()
	queueDepth.WithLabelValues(m.VersionedName()).Set(float64(dq.len()))
	return true
}

// AddFirst inserts a job at the head of the data queue so it is served
// before anything enqueued after it. Bounded like AddJob: false means the
// queue is full.
func (m *Model) AddFirst(j *types.Job) bool {
	return m.dataQueue().offerFirst(j)
}

// QueueLen reports the current data queue depth.
func (m *Model) QueueLen() int { return m.dataQueue().len() }

func (m *Model) dataQueue() *jobDeque {
	m.qmu.RLock()
	defer m.qmu.RUnlock()
	return m.jobQueues[DefaultDataQueue]
}
