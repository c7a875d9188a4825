package task

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/df-mc/dragonfly/server/world"
)

// Executor runs transactions on a world's owning goroutine. *world.World
// implements it.
type Executor interface {
	Exec(f world.ExecFunc) <-chan struct{}
}

// Compile-time check that a Dragonfly world can back a Dispatcher.
var _ Executor = (*world.World)(nil)

// Dispatcher marshals units of work onto a single world's transaction
// goroutine.
//
// Ordering:
// Units submitted through the same Dispatcher run in submission order. No
// ordering is promised relative to other Dispatchers or to transactions the
// host schedules by itself.
//
// Delivery:
// If the world closes before a unit runs, the unit may never run. The
// Dispatcher has no cancellation primitive; the task helpers wrap units so
// that they do nothing once their task is cancelled.
type Dispatcher struct {
	exec Executor
	log  *slog.Logger

	mu      sync.Mutex
	queue   []func(tx *world.Tx)
	pumping bool
}

// NewDispatcher creates a dispatcher for the executor. Most callers should use
// Dispatchers.For so that a world is served by exactly one Dispatcher.
func NewDispatcher(exec Executor, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{exec: exec, log: log}
}

// Executor returns the executor this dispatcher submits to.
func (d *Dispatcher) Executor() Executor {
	return d.exec
}

// Dispatch queues fn to run on the world goroutine. It never blocks.
func (d *Dispatcher) Dispatch(fn func(tx *world.Tx)) {
	if fn == nil {
		return
	}

	d.mu.Lock()
	d.queue = append(d.queue, fn)
	if !d.pumping {
		d.pumping = true
		go d.pump()
	}
	d.mu.Unlock()
}

// Pending returns the number of units queued but not yet handed to the world.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// pump forwards queued units to the executor, one transaction per batch.
// It exits once the queue is drained and is restarted by the next Dispatch.
func (d *Dispatcher) pump() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.pumping = false
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		<-d.exec.Exec(func(tx *world.Tx) {
			for _, fn := range batch {
				d.run(tx, fn)
			}
		})
	}
}

// run executes a single unit, keeping a panic from taking down the world goroutine.
func (d *Dispatcher) run(tx *world.Tx, fn func(tx *world.Tx)) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("flint: panic in dispatched unit",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn(tx)
}

// Dispatchers lazily creates one Dispatcher per world.
type Dispatchers struct {
	log *slog.Logger

	// dispatchers maps Executor -> *Dispatcher
	dispatchers sync.Map
}

// NewDispatchers creates an empty dispatcher registry.
func NewDispatchers(log *slog.Logger) *Dispatchers {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatchers{log: log}
}

// For returns the dispatcher bound to exec, creating it on first use.
// Dispatchers are never removed: the host owns world lifetime.
func (r *Dispatchers) For(exec Executor) *Dispatcher {
	if d, ok := r.dispatchers.Load(exec); ok {
		return d.(*Dispatcher)
	}
	d, _ := r.dispatchers.LoadOrStore(exec, NewDispatcher(exec, r.log))
	return d.(*Dispatcher)
}

// Len returns the number of dispatchers created so far.
func (r *Dispatchers) Len() int {
	n := 0
	r.dispatchers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
