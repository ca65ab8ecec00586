package utils

import (
	"context"
	"errors"
	"sync"
)

// Job is a task executed by a worker. A job should return promptly once ctx is done.
type Job func(ctx context.Context) error

// WorkerPool runs jobs on a fixed number of workers and collects their errors.
type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	waitGroup sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker(ctx)
	}

	return pool
}

// worker processes jobs from the jobQueue.
func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.waitGroup.Done()
	for job := range wp.jobQueue {
		if err := job(ctx); err != nil {
			wp.mu.Lock()
			wp.errs = append(wp.errs, err)
			wp.mu.Unlock()
		}
	}
}

// Submit adds a new job to the worker pool. It blocks while all workers are busy.
func (wp *WorkerPool) Submit(job Job) {
	wp.jobQueue <- job
}

// Wait closes the pool, waits for every submitted job and returns their joined errors.
func (wp *WorkerPool) Wait() error {
	close(wp.jobQueue)
	wp.waitGroup.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	return errors.Join(wp.errs...)
}
