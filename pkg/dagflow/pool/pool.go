// Package pool runs tasks on a bounded set of goroutines and hands back futures.
//
// The resolver is a coordinator: it only waits on futures. All seed
// accessors and step functions run here, so the pool size caps how much user
// code executes at once.
package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Task is a unit of work submitted to a Pool.
type Task func(ctx context.Context) (any, error)

// PanicError captures a panic raised by a task.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Future is the pending result of a submitted task.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(value any, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finishes or ctx is done.
// Giving up on a future does not stop the task.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Running   int64
	Completed int64
	Failed    int64
}

// Pool executes tasks with bounded parallelism.
// A Pool is safe for concurrent use.
type Pool struct {
	sem  *semaphore.Weighted // nil means unbounded
	size int

	wg        sync.WaitGroup
	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a pool that runs at most size tasks at once.
// size <= 0 means unbounded.
func New(size int) *Pool {
	p := &Pool{size: size}
	if size > 0 {
		p.sem = semaphore.NewWeighted(int64(size))
	}
	return p
}

// Size returns the configured bound, or 0 when unbounded.
func (p *Pool) Size() int {
	if p.size < 0 {
		return 0
	}
	return p.size
}

// Submit schedules task and returns its future immediately.
//
// ctx governs both the wait for a free slot and the task itself. If ctx is
// done before a slot frees up, the future completes with ctx.Err() and the
// task never runs.
func (p *Pool) Submit(ctx context.Context, task Task) *Future {
	f := newFuture()
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		if p.sem != nil {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				p.failed.Add(1)
				f.complete(nil, err)
				return
			}
			defer p.sem.Release(1)
		}

		p.running.Add(1)
		value, err := run(ctx, task)
		p.running.Add(-1)

		if err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
		f.complete(value, err)
	}()

	return f
}

// run invokes task, converting a panic into a *PanicError.
func run(ctx context.Context, task Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return task(ctx)
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}
