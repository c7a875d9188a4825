package task

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool is a named set of execution slots. A task holds one slot of its pool
// while it runs and gives it back at every suspension point, so a pool bounds
// how many tasks execute at once rather than how many exist.
type Pool struct {
	name string
	size int
	sem  *semaphore.Weighted
}

// NewPool creates a pool with size slots. Sizes below one are raised to one.
func NewPool(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		name: name,
		size: size,
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// NewCPUPool creates a pool sized to GOMAXPROCS.
func NewCPUPool() *Pool {
	return NewPool("cpu", runtime.GOMAXPROCS(0))
}

// NewIOPool creates a pool intended for blocking work.
func NewIOPool(size int) *Pool {
	return NewPool("io", size)
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// slot tracks whether a task currently holds a slot of its pool.
// It is only touched by the goroutine running the task.
type slot struct {
	pool *Pool
	held bool
}

// acquire blocks until a slot is free or ctx is done.
func (s *slot) acquire(ctx context.Context) error {
	if s == nil || s.held {
		return nil
	}
	if err := s.pool.sem.Acquire(ctx, 1); err != nil {
		return cause(ctx, err)
	}
	s.held = true
	return nil
}

// release gives the slot back if it is held.
func (s *slot) release() {
	if s == nil || !s.held {
		return
	}
	s.held = false
	s.pool.sem.Release(1)
}

type slotKey struct{}

func withSlot(ctx context.Context, s *slot) context.Context {
	return context.WithValue(ctx, slotKey{}, s)
}

// slotFrom returns the slot of the task running ctx, or nil outside a task.
func slotFrom(ctx context.Context) *slot {
	s, _ := ctx.Value(slotKey{}).(*slot)
	return s
}

// PoolFrom returns the pool the calling task currently runs on, or nil when
// ctx does not belong to a task.
func PoolFrom(ctx context.Context) *Pool {
	if s := slotFrom(ctx); s != nil {
		return s.pool
	}
	return nil
}

// cause prefers the cancellation cause of ctx over err.
func cause(ctx context.Context, err error) error {
	if c := context.Cause(ctx); c != nil {
		return c
	}
	return err
}
