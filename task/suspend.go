package task

import (
	"context"
	"fmt"
	"time"

	"github.com/df-mc/dragonfly/server/world"
)

// Delay suspends the calling task for d without occupying a pool slot.
// It returns the cancellation cause if ctx is cancelled first.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}

	s := slotFrom(ctx)
	s.release()

	t := time.NewTimer(d)
	defer t.Stop()

	var err error
	select {
	case <-t.C:
	case <-ctx.Done():
		err = context.Cause(ctx)
	}

	if rerr := s.acquire(ctx); err == nil {
		err = rerr
	}
	return err
}

// OnWorld hands fn to the world behind d and suspends the caller until it has
// run. The caller resumes on its original pool.
//
// If ctx is cancelled before the world picks fn up, fn does not run. Calling
// OnWorld from the world goroutine of d deadlocks.
func OnWorld(ctx context.Context, d *Dispatcher, fn func(tx *world.Tx)) error {
	_, err := OnWorldValue(ctx, d, func(tx *world.Tx) (struct{}, error) {
		fn(tx)
		return struct{}{}, nil
	})
	return err
}

// OnWorldValue is OnWorld for functions producing a value.
func OnWorldValue[T any](ctx context.Context, d *Dispatcher, fn func(tx *world.Tx) (T, error)) (T, error) {
	var zero T
	if err := context.Cause(ctx); err != nil {
		return zero, err
	}

	s := slotFrom(ctx)
	s.release()

	var (
		val  T
		err  error
		done = make(chan struct{})
	)
	d.Dispatch(func(tx *world.Tx) {
		defer close(done)
		if ctx.Err() != nil {
			err = context.Cause(ctx)
			return
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("world unit panicked: %v", r)
			}
		}()
		val, err = fn(tx)
	})

	select {
	case <-done:
	case <-ctx.Done():
		_ = s.acquire(context.WithoutCancel(ctx))
		return zero, context.Cause(ctx)
	}

	if rerr := s.acquire(ctx); rerr != nil {
		return zero, rerr
	}
	return val, err
}

// OnPool runs fn on pool and resumes the caller on its original pool
// afterwards. Use it to move blocking work to the IO pool.
func OnPool(ctx context.Context, pool *Pool, fn func(ctx context.Context) error) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}

	outer := slotFrom(ctx)
	outer.release()

	inner := &slot{pool: pool}
	if err := inner.acquire(ctx); err != nil {
		_ = outer.acquire(context.WithoutCancel(ctx))
		return err
	}
	err := fn(withSlot(ctx, inner))
	inner.release()

	if rerr := outer.acquire(ctx); err == nil {
		err = rerr
	}
	return err
}

// Future is the pending result of a task started with Async.
type Future[T any] struct {
	task *Task
	val  T
}

// Async starts fn on the scope and returns a Future for its result.
func Async[T any](s *Scope, name string, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{}
	f.task = s.Go(name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			f.val = v
		}
		return err
	})
	return f
}

// Task returns the task computing the future.
func (f *Future[T]) Task() *Task {
	return f.task
}

// Await suspends the caller until the result is available.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if err := f.task.Wait(ctx); err != nil {
		return zero, err
	}
	return f.val, nil
}
