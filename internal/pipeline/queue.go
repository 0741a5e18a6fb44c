package pipeline

import "sync"

// taskQueue is the shared producer/consumer queue between submitters and
// workers. Classic mutex+condvar design: submitters push, workers block in
// pop until a task arrives or the queue closes.
//
// The queue itself is unbounded; backpressure comes from the memory budget
// enforced before push, not from queue capacity.
type taskQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []*encodingTask
	closed bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a task and wakes one worker. Pushing after close reports
// false and the task is not queued.
func (q *taskQueue) push(t *encodingTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.cond.Signal()
	return true
}

// pop blocks until a task is available or the queue is closed. After close,
// remaining tasks are still drained in order; ok is false only once the
// queue is both closed and empty.
func (q *taskQueue) pop() (t *encodingTask, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 {
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}

	t = q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t, true
}

// close wakes all blocked workers. Idempotent.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// depth reports queued (not yet popped) tasks.
func (q *taskQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
