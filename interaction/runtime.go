package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	bt "github.com/joeycumines/go-behaviortree"

	"github.com/oriumgames/flint/event"
	"github.com/oriumgames/flint/task"
)

// ErrBusy is returned by Start when the user is already running an
// interaction of the same type.
var ErrBusy = errors.New("interaction: already running")

// Status is the outcome of a run.
type Status uint8

const (
	// Running means the graph is still being ticked.
	Running Status = iota
	// Succeeded and Failed are final.
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "running"
}

// Run is a started graph.
type Run struct {
	graph  *Graph
	ctx    *Context
	task   *task.Task
	mu     sync.Mutex
	status Status

	// release frees the (user, type) slot; safe to call more than once
	release func()
}

// Graph returns the graph being run.
func (r *Run) Graph() *Graph { return r.graph }

// Task returns the task ticking the graph.
func (r *Run) Task() *task.Task { return r.task }

// Status returns the current status.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Cancel stops the run before its next tick.
func (r *Run) Cancel() { r.task.Cancel() }

// Wait blocks until the run finishes. The error is the cancellation cause or
// the errors returned by actions of the graph.
func (r *Run) Wait(ctx context.Context) (Status, error) {
	if err := r.task.Wait(ctx); err != nil {
		if r.finished() {
			r.release()
		}
		return Failed, err
	}
	r.release()
	return r.Status(), r.ctx.Err()
}

func (r *Run) finished() bool {
	select {
	case <-r.task.Done():
		return true
	default:
		return false
	}
}

func (r *Run) finish(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

type activeKey struct {
	user *world.EntityHandle
	typ  Type
}

type cooldownKey struct {
	user *world.EntityHandle
	key  string
}

// Runtime runs graphs. Every run ticks its behaviour tree once per world tick
// on the user's world goroutine until the tree stops running.
type Runtime struct {
	log         *slog.Logger
	reg         *Registry
	dispatchers *task.Dispatchers
	now         func() time.Time

	mu        sync.Mutex
	active    map[activeKey]*Run
	cooldowns map[cooldownKey]time.Time
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock replaces the clock used for cooldowns.
func WithClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRuntime returns a runtime looking graphs up in reg.
func NewRuntime(reg *Registry, dispatchers *task.Dispatchers, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		log:         slog.Default(),
		reg:         reg,
		dispatchers: dispatchers,
		now:         time.Now,
		active:      make(map[activeKey]*Run),
		cooldowns:   make(map[cooldownKey]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the graph registry.
func (r *Runtime) Registry() *Registry {
	return r.reg
}

// Start runs g for c inside scope. c.Type must be one of the graph's types.
// A user runs at most one graph per interaction type at a time.
func (r *Runtime) Start(scope *task.Scope, exec task.Executor, g *Graph, c *Context) (*Run, error) {
	if g == nil || c == nil {
		return nil, fmt.Errorf("%w: nil graph or context", ErrInvalidArgument)
	}
	if !g.Handles(c.Type) {
		return nil, fmt.Errorf("%w: graph %s does not run for %s", ErrInvalidArgument, g.id, c.Type)
	}
	c.Graph, c.rt = g, r

	d := r.dispatchers.For(exec)
	root := g.root.compile(c)

	run := &Run{graph: g, ctx: c}
	key := activeKey{user: c.User, typ: c.Type}
	run.release = sync.OnceFunc(func() { r.release(key, run) })
	if c.User != nil {
		r.mu.Lock()
		if _, busy := r.active[key]; busy {
			r.mu.Unlock()
			return nil, ErrBusy
		}
		r.active[key] = run
		r.mu.Unlock()
	}

	var ran atomic.Bool
	skipped := func() {
		if !ran.Load() {
			run.finish(Failed)
		}
		run.release()
	}
	run.task = scope.Go("interaction "+g.id, func(ctx context.Context) error {
		ran.Store(true)
		defer run.release()
		return r.loop(ctx, d, root, run)
	})
	if run.finished() {
		skipped()
	} else {
		// The body never runs if the task is cancelled before it gets a slot.
		go func() {
			<-run.task.Done()
			skipped()
		}()
	}
	return run, nil
}

func (r *Runtime) loop(ctx context.Context, d *task.Dispatcher, root bt.Node, run *Run) error {
	c := run.ctx
	for {
		st, err := task.OnWorldValue(ctx, d, func(tx *world.Tx) (bt.Status, error) {
			c.Tx = tx
			defer func() { c.Tx = nil }()
			return root.Tick()
		})
		if err != nil {
			run.finish(Failed)
			return err
		}
		c.ticks++
		switch st {
		case bt.Success:
			run.finish(Succeeded)
			return nil
		case bt.Failure:
			run.finish(Failed)
			return nil
		}
		if err := task.DelayTicks(ctx, 1); err != nil {
			run.finish(Failed)
			return err
		}
	}
}

func (r *Runtime) release(key activeKey, run *Run) {
	if key.user == nil {
		return
	}
	r.mu.Lock()
	if r.active[key] == run {
		delete(r.active, key)
	}
	r.mu.Unlock()
}

// Trigger starts the graph bound to stack if it runs for t. It reports
// whether a run was started.
func (r *Runtime) Trigger(scope *task.Scope, exec task.Executor, t Type, user, target *world.EntityHandle, stack item.Stack) (*Run, bool) {
	g, ok := r.reg.Bound(stack)
	if !ok || !g.Handles(t) {
		return nil, false
	}
	run, err := r.Start(scope, exec, g, &Context{Type: t, User: user, Target: target, Item: stack})
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			r.log.Warn("flint: interaction not started", "graph", g.id, "err", err)
		}
		return nil, false
	}
	return run, true
}

// startCooldown reports false if user is cooling down under key, and
// otherwise starts a cooldown of d.
func (r *Runtime) startCooldown(user *world.EntityHandle, key string, d time.Duration) bool {
	k := cooldownKey{user: user, key: key}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if until, ok := r.cooldowns[k]; ok && now.Before(until) {
		return false
	}
	if d > 0 {
		r.cooldowns[k] = now.Add(d)
	} else {
		delete(r.cooldowns, k)
	}
	return true
}

// Listen starts bound graphs in scope when players use their held item. The
// returned handles unregister the listeners.
func (r *Runtime) Listen(bus *event.Bus, scope *task.Scope) []event.Handle {
	trigger := func(p *player.Player, t Type, target world.Entity) {
		if p == nil {
			return
		}
		held, _ := p.HeldItems()
		var th *world.EntityHandle
		if target != nil {
			th = target.H()
		}
		r.Trigger(scope, p.Tx().World(), t, p.H(), th, held)
	}
	return []event.Handle{
		event.Listen(bus, func(e *event.PunchAir) { trigger(e.Player(), Primary, nil) }, event.IgnoreCancelled()),
		event.Listen(bus, func(e *event.AttackEntity) { trigger(e.Player(), Primary, e.Entity) }, event.IgnoreCancelled()),
		event.Listen(bus, func(e *event.ItemUse) { trigger(e.Player(), Secondary, nil) }, event.IgnoreCancelled()),
		event.Listen(bus, func(e *event.ItemUseOnBlock) { trigger(e.Player(), UseBlock, nil) }, event.IgnoreCancelled()),
		event.Listen(bus, func(e *event.ItemUseOnEntity) { trigger(e.Player(), UseEntity, e.Entity) }, event.IgnoreCancelled()),
		event.Listen(bus, func(e *event.ItemConsume) { trigger(e.Player(), Consume, nil) }, event.IgnoreCancelled()),
	}
}
