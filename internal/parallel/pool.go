// Package parallel implements the worker pool that fans vertex batches
// out across CPU cores.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs batch chunks on a fixed set of goroutines.
//
// Each worker owns a buffered queue and primarily consumes from it.
// When its own queue runs dry it steals from the other workers, which
// keeps cores busy when chunks finish at uneven speeds.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds one work queue per worker.
	queues []chan func()

	// done signals workers to exit.
	done chan struct{}

	// wg tracks worker goroutines for Close.
	wg sync.WaitGroup

	// mu serializes submission against Close. Submitters hold the read
	// side, so done cannot close while tasks are being queued and no
	// task can land in a queue its worker has already drained.
	mu sync.RWMutex

	// running reports whether the pool still accepts work.
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// A count of zero or less means runtime.GOMAXPROCS(0).
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// A few queued chunks per worker hides submission latency without
	// holding a large closure backlog alive.
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker consumes its own queue and steals from the others when idle.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(own)
			return

		case task := <-own:
			if task != nil {
				task()
			}

		default:
			if task := p.steal(id); task != nil {
				task()
				continue
			}
			// Nothing to steal. Block until work arrives or the pool
			// shuts down.
			select {
			case <-p.done:
				p.drain(own)
				return
			case task := <-own:
				if task != nil {
					task()
				}
			}
		}
	}
}

// drain runs whatever is still queued. Called on shutdown so chunks
// accepted before Close are not dropped.
func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			if task != nil {
				task()
			}
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue, or returns nil.
func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
			// Empty, try the next one.
		}
	}
	return nil
}

// ExecuteAll spreads tasks round-robin over the workers and blocks
// until every task has run. Callers typically shape one task per
// contiguous chunk of a vertex batch, so round-robin placement puts
// neighbouring chunks on different cores.
//
// A call that observes a running pool completes every task, even if
// Close is called concurrently. A call after Close is a no-op, so
// callers should check IsRunning and process serially instead.
func (p *WorkerPool) ExecuteAll(tasks []func()) {
	if len(tasks) == 0 {
		return
	}

	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		return
	}

	var pending sync.WaitGroup
	pending.Add(len(tasks))

	for i, fn := range tasks {
		task := fn
		p.queues[i%p.workers] <- func() {
			defer pending.Done()
			task()
		}
	}
	p.mu.RUnlock()

	// Queued tasks survive a concurrent Close: workers drain their
	// queues before exiting.
	pending.Wait()
}

// Close stops the pool. Queued work is drained before the workers
// exit. Close is idempotent.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
