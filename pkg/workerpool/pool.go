// Package workerpool provides a bounded goroutine pool with backpressure.
//
// Submit never blocks: when every worker is busy and the buffer is full it
// returns ErrPoolFull so the caller can degrade. SubmitWait blocks instead.
//
//	pool := workerpool.New("events", 8)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    task() // run inline
//	}
package workerpool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a bounded goroutine pool.
type Pool struct {
	name  string
	tasks chan func()
	wg    sync.WaitGroup

	// mu guards closed; senders hold the read lock so Shutdown never
	// closes tasks under an in-flight send.
	mu     sync.RWMutex
	closed bool
}

// New starts a pool of size workers with a buffer of 2×size tasks.
func New(name string, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{name: name, tasks: make(chan func(), size*2)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait enqueues task, blocking until there is room.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown stops accepting tasks, runs the ones already queued and waits
// for the workers to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run executes task, recovering from panics so the worker survives.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked",
				"pool", p.name,
				"error", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()))
		}
	}()
	task()
}
