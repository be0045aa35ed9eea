// Package workerpool implements the fixed-size worker pool that runs
// pub/sub fan-out and webhook delivery off the connection goroutine,
// grounded on tinydb_thread_pool.c and tinydb_task_queue.c. A buffered
// Go channel replaces the source's hand-rolled circular buffer plus
// condition-variable pair: Task_Queue_Push's "block while full" becomes a
// blocking channel send, and Task_Queue_Pop's "block while empty" becomes
// a blocking channel receive, for free.
package workerpool

import (
	"context"

	"github.com/dreamware/tinydb/internal/tlog"
)

// Task is a unit of work queued onto the pool, the Go analogue of the
// source's function-pointer-plus-argument Task struct.
type Task func()

// Pool is a fixed number of worker goroutines draining a bounded task
// queue, mirroring Thread_Pool/Task_Queue.
type Pool struct {
	tasks chan Task
	size  int
}

// New creates a Pool with size workers and a queue depth of queueDepth,
// matching THREAD_POOL_SIZE and MAX_QUEUE_SIZE.
func New(size, queueDepth int) *Pool {
	return &Pool{tasks: make(chan Task, queueDepth), size: size}
}

// Submit enqueues fn, blocking if the queue is full, mirroring
// Thread_Pool_Add_Task/Task_Queue_Push's backpressure. Returns false
// without blocking forever if ctx is done first.
func (p *Pool) Submit(ctx context.Context, fn Task) bool {
	select {
	case p.tasks <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run starts size worker goroutines that pop and execute tasks until ctx
// is canceled, mirroring Thread_Function's loop. Run blocks until every
// worker has exited, matching Thread_Pool_Destroy's pthread_join sweep.
func (p *Pool) Run(ctx context.Context) {
	log := tlog.WithComponent("workerpool")
	done := make(chan struct{}, p.size)

	for i := 0; i < p.size; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					func() {
						defer func() {
							if r := recover(); r != nil {
								log.Error().Interface("panic", r).Int("worker", id).Msg("task panicked")
							}
						}()
						task()
					}()
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	for i := 0; i < p.size; i++ {
		<-done
	}
}
