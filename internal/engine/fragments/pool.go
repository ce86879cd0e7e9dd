package fragments

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned for work submitted after Close
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs decoding and conversion jobs on a fixed number of goroutines so
// callers stay responsive while heavy work is in progress
type Pool struct {
	jobs   chan func()
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewPool starts a pool with the given number of workers (at least one)
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs:   make(chan func()),
		closed: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.closed:
			return
		}
	}
}

// Do runs fn on a worker and waits for it. When ctx is cancelled Do returns
// immediately; fn keeps running and its result is dropped.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("worker panic: %v", r)
			}
		}()
		done <- fn()
	}

	select {
	case p.jobs <- job:
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers after their current job
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}
