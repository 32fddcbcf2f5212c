package daemon

import (
	"sync"
	"sync/atomic"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
)

// Job represents a work item for the pool
type Job func()

// WorkerPool runs host polls on a fixed number of goroutines
type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	active   atomic.Int32
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2),
		stopChan: make(chan struct{}),
	}
}

// Start starts the worker goroutines
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the workers. Jobs still queued are dropped. Safe to call twice.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.wg.Wait()
	})
}

// Submit queues a job. It returns false if the pool is stopping and the
// job will never run.
func (p *WorkerPool) Submit(job Job) bool {
	select {
	case <-p.stopChan:
		return false
	default:
	}

	select {
	case p.jobQueue <- job:
		return true
	case <-p.stopChan:
		return false
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			if job != nil {
				p.active.Add(1)
				job()
				p.active.Add(-1)
			}
		case <-p.stopChan:
			logging.Debug("worker stopped", logging.Worker(id))
			return
		}
	}
}

// ActiveCount returns the number of jobs currently running
func (p *WorkerPool) ActiveCount() int {
	return int(p.active.Load())
}

// Workers returns the pool size
func (p *WorkerPool) Workers() int {
	return p.workers
}
