package wlm

import (
	"context"
	"sync"
	"time"

	"batchd/pkg/types"
)

// jobDeque is a concurrency-safe double-ended job queue with blocking,
// cancellable consumption. A capacity <= 0 means unbounded. Waiters are
// woken by closing-and-replacing the wake channel, which broadcasts to
// every blocked poll/take without holding the mutex across the wait.
type jobDeque struct {
	mu       sync.Mutex
	items    []*types.Job
	capacity int
	wake     chan struct{}
}

func newJobDeque(capacity int) *jobDeque {
	return &jobDeque{capacity: capacity, wake: make(chan struct{})}
}

// offer appends at the tail without blocking. Returns false when the
// deque is bounded and full.
func (q *jobDeque) offer(j *types.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, j)
	q.notifyLocked()
	return true
}

// pushFront inserts at the head. Used to reinsert a job that was pulled
// speculatively; the slot it vacated guarantees room, so capacity is not
// re-checked here.
func (q *jobDeque) pushFront(j *types.Job) {
	q.mu.Lock()
	q.items = append([]*types.Job{j}, q.items...)
	q.notifyLocked()
	q.mu.Unlock()
}

// offerFirst inserts at the head without blocking. Unlike pushFront it
// enforces the bound: false means the deque is full.
func (q *jobDeque) offerFirst(j *types.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return false
	}
	q.items = append([]*types.Job{j}, q.items...)
	q.notifyLocked()
	return true
}

// poll removes the head, waiting up to wait for one to arrive. Returns
// (nil, nil) on timeout and (nil, ctx.Err()) on cancellation.
func (q *jobDeque) poll(ctx context.Context, wait time.Duration) (*types.Job, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			j := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return j, nil
		}
		wake := q.wake
		q.mu.Unlock()
		select {
		case <-wake:
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take removes the head, blocking until a job arrives or ctx is canceled.
func (q *jobDeque) take(ctx context.Context) (*types.Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			j := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return j, nil
		}
		wake := q.wake
		q.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *jobDeque) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// notifyLocked wakes all current waiters. Callers must hold q.mu.
func (q *jobDeque) notifyLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}
