package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrScopeClosed is the default cancellation cause of a scope cancelled
// without a reason.
var ErrScopeClosed = errors.New("task: scope closed")

// Task is a unit of concurrent work started by a Scope.
type Task struct {
	name   string
	done   chan struct{}
	err    error
	cancel context.CancelCauseFunc
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Done returns a channel closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task result. It is nil until the task finished.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel requests cancellation of the task. The task observes it at its next
// suspension point.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel(context.Canceled)
	}
}

// Wait suspends the caller until the task finished and returns its result.
// If ctx is cancelled first, Wait returns the cancellation cause and the task
// keeps running.
func (t *Task) Wait(ctx context.Context) error {
	s := slotFrom(ctx)
	s.release()

	var err error
	select {
	case <-t.done:
		err = t.err
	case <-ctx.Done():
		err = context.Cause(ctx)
	}

	if rerr := s.acquire(ctx); err == nil {
		err = rerr
	}
	return err
}

// finish records the result and wakes waiters.
func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Scope groups tasks so they can be cancelled together.
//
// Failure isolation:
// A task that returns an error or panics is logged and recorded on its Task;
// it never cancels sibling tasks. Only Cancel (or the parent context) cancels
// the scope.
//
// Cancellation is cooperative. A task sees it at its next suspension point
// (Delay, Wait, OnWorld, OnPool...). A task stuck in a long synchronous call
// cannot be pre-empted.
type Scope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	pool   *Pool
	log    *slog.Logger

	wg   sync.WaitGroup
	live atomic.Int64
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithLogger sets the logger used for failed tasks.
func WithLogger(log *slog.Logger) ScopeOption {
	return func(s *Scope) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTickRate sets the tick rate observed by the tick helpers inside the
// scope's tasks.
func WithTickRate(r Rate) ScopeOption {
	return func(s *Scope) {
		s.ctx = WithRate(s.ctx, r)
	}
}

// NewScope creates a scope whose tasks default to pool.
func NewScope(parent context.Context, pool *Pool, opts ...ScopeOption) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	s := &Scope{
		ctx:    ctx,
		cancel: cancel,
		pool:   pool,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context returns the scope context. It is done once the scope is cancelled.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Pool returns the default pool of the scope.
func (s *Scope) Pool() *Pool {
	return s.pool
}

// Cancelled reports whether the scope has been cancelled.
func (s *Scope) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Err returns the cancellation cause, or nil while the scope is live.
func (s *Scope) Err() error {
	return context.Cause(s.ctx)
}

// Cancel cancels every task of the scope with reason as cause.
func (s *Scope) Cancel(reason error) {
	if reason == nil {
		reason = ErrScopeClosed
	}
	s.cancel(reason)
}

// Len returns the number of tasks that have not finished yet.
func (s *Scope) Len() int {
	return int(s.live.Load())
}

// Wait blocks until every task of the scope finished or ctx is done.
func (s *Scope) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Go starts fn as a task on the scope's default pool.
func (s *Scope) Go(name string, fn func(ctx context.Context) error) *Task {
	return s.GoOn(s.pool, name, fn)
}

// GoOn starts fn as a task on pool.
//
// A task started on a cancelled scope never runs fn; it finishes immediately
// with the scope's cancellation cause.
func (s *Scope) GoOn(pool *Pool, name string, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancelCause(s.ctx)
	t := &Task{
		name:   name,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	if s.ctx.Err() != nil {
		cancel(context.Cause(s.ctx))
		t.finish(context.Cause(s.ctx))
		return t
	}

	s.wg.Add(1)
	s.live.Add(1)
	go s.run(ctx, cancel, pool, t, fn)
	return t
}

// run executes a task body on its pool.
func (s *Scope) run(ctx context.Context, cancel context.CancelCauseFunc, pool *Pool, t *Task, fn func(ctx context.Context) error) {
	defer s.wg.Done()
	defer s.live.Add(-1)
	defer cancel(context.Canceled)

	sl := &slot{pool: pool}
	if pool == nil {
		sl = nil
	}
	if err := sl.acquire(ctx); err != nil {
		t.finish(err)
		return
	}
	if ctx.Err() != nil {
		sl.release()
		t.finish(context.Cause(ctx))
		return
	}

	err := s.call(withSlot(ctx, sl), t.name, fn)
	sl.release()

	if err != nil && !isCancellation(ctx, err) {
		s.log.Warn("flint: task failed", "task", t.name, "error", err)
	}
	t.finish(err)
}

// call runs fn, converting a panic into an error.
func (s *Scope) call(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", name, r)
			s.log.Error("flint: panic in task",
				"task", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	return fn(ctx)
}

// isCancellation reports whether err is the normal unwind of a cancelled task.
func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	c := context.Cause(ctx)
	return c != nil && errors.Is(err, c)
}

// Scopes maps plugin identities to their live scope.
type Scopes struct {
	parent context.Context
	pool   *Pool
	opts   []ScopeOption

	mu     sync.Mutex
	scopes map[uuid.UUID]*Scope
}

// NewScopes creates a registry whose scopes default to pool.
func NewScopes(parent context.Context, pool *Pool, opts ...ScopeOption) *Scopes {
	if parent == nil {
		parent = context.Background()
	}
	return &Scopes{
		parent: parent,
		pool:   pool,
		opts:   opts,
		scopes: make(map[uuid.UUID]*Scope),
	}
}

// For returns the live scope of id, creating it when there is none or when
// the previous one was cancelled. Concurrent callers observe the same scope.
func (r *Scopes) For(id uuid.UUID) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.scopes[id]; ok && !s.Cancelled() {
		return s
	}
	s := NewScope(r.parent, r.pool, r.opts...)
	r.scopes[id] = s
	return s
}

// Lookup returns the live scope of id without creating one.
func (r *Scopes) Lookup(id uuid.UUID) (*Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scopes[id]
	if !ok || s.Cancelled() {
		return nil, false
	}
	return s, true
}

// Cancel cancels the scope of id with reason and forgets it. It reports
// whether a scope existed.
func (r *Scopes) Cancel(id uuid.UUID, reason error) bool {
	r.mu.Lock()
	s, ok := r.scopes[id]
	delete(r.scopes, id)
	r.mu.Unlock()

	if ok {
		s.Cancel(reason)
	}
	return ok
}

// CancelAll cancels every scope with reason.
func (r *Scopes) CancelAll(reason error) {
	r.mu.Lock()
	scopes := r.scopes
	r.scopes = make(map[uuid.UUID]*Scope)
	r.mu.Unlock()

	for _, s := range scopes {
		s.Cancel(reason)
	}
}

// Len returns the number of live scopes.
func (r *Scopes) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.scopes {
		if !s.Cancelled() {
			n++
		}
	}
	return n
}
