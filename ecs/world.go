package ecs

import (
	"cmp"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/flint/event"
	"github.com/oriumgames/flint/task"
)

// Attached is published on the World's bus after a component was added.
type Attached struct {
	Entity *Entity
	Type   reflect.Type
}

// Detached is published on the World's bus after a component was removed.
type Detached struct {
	Entity *Entity
	Type   reflect.Type
}

// World tracks host entities, their components and the systems run over
// them. Entities are grouped by the host world they are in; each tick every
// group gets one unit on its world's dispatcher that runs all due systems.
//
// Concurrency:
// Systems run inside world transactions. Within one stage, systems whose
// access sets do not conflict run in parallel goroutines inside the same
// transaction, so a system must only touch the components it declares.
type World struct {
	log         *slog.Logger
	dispatchers *task.Dispatchers
	bus         *event.Bus
	rate        task.Rate

	mu        sync.RWMutex
	entities  map[*world.EntityHandle]*Entity
	groups    map[task.Executor]map[*Entity]struct{}
	resources map[reflect.Type]unsafe.Pointer

	sysMu   sync.RWMutex
	systems [stageCount][]*System
	batches [stageCount][][]*System

	tick atomic.Uint64
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger used for panicking systems.
func WithLogger(log *slog.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// WithBus publishes Attached and Detached events on bus.
func WithBus(bus *event.Bus) Option {
	return func(w *World) {
		w.bus = bus
	}
}

// WithRate sets the tick rate used by Run.
func WithRate(r task.Rate) Option {
	return func(w *World) {
		if r > 0 {
			w.rate = r
		}
	}
}

// NewWorld creates an empty world dispatching through dispatchers.
func NewWorld(dispatchers *task.Dispatchers, opts ...Option) *World {
	w := &World{
		log:         slog.Default(),
		dispatchers: dispatchers,
		rate:        task.DefaultRate,
		entities:    make(map[*world.EntityHandle]*Entity),
		groups:      make(map[task.Executor]map[*Entity]struct{}),
		resources:   make(map[reflect.Type]unsafe.Pointer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Track starts tracking the entity behind h, which is in the host world exec.
// Tracking an entity twice returns the existing Entity, moved to exec.
func (w *World) Track(exec task.Executor, h *world.EntityHandle) *Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.entities[h]; ok {
		w.moveLocked(e, exec)
		return e
	}
	e := &Entity{handle: h, owner: w, exec: exec}
	w.entities[h] = e
	w.join(e, exec)
	return e
}

// Move records that the entity behind h changed host world. It reports false
// if the entity is not tracked.
func (w *World) Move(h *world.EntityHandle, to task.Executor) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[h]
	if ok {
		w.moveLocked(e, to)
	}
	return ok
}

// Untrack stops tracking the entity behind h and detaches its components.
func (w *World) Untrack(h *world.EntityHandle) {
	w.mu.Lock()
	e, ok := w.entities[h]
	if ok {
		delete(w.entities, h)
		w.leave(e, e.exec)
	}
	w.mu.Unlock()

	if ok && !e.closed.Swap(true) {
		e.detachAll()
	}
}

// Entity returns the tracked Entity of h.
func (w *World) Entity(h *world.EntityHandle) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[h]
	return e, ok
}

// Len returns the number of tracked entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Each calls fn for every tracked entity matching q. The entity set is
// snapshotted first, so fn may track or untrack entities.
func (w *World) Each(q Query, fn func(e *Entity)) {
	w.mu.RLock()
	ents := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		ents = append(ents, e)
	}
	w.mu.RUnlock()

	for _, e := range ents {
		if q.Match(e) {
			fn(e)
		}
	}
}

func (w *World) moveLocked(e *Entity, to task.Executor) {
	e.mu.Lock()
	from := e.exec
	e.exec = to
	e.mu.Unlock()

	if from != to {
		w.leave(e, from)
		w.join(e, to)
	}
}

func (w *World) join(e *Entity, exec task.Executor) {
	if exec == nil {
		return
	}
	g, ok := w.groups[exec]
	if !ok {
		g = make(map[*Entity]struct{})
		w.groups[exec] = g
	}
	g[e] = struct{}{}
}

func (w *World) leave(e *Entity, exec task.Executor) {
	if g, ok := w.groups[exec]; ok {
		delete(g, e)
		if len(g) == 0 {
			delete(w.groups, exec)
		}
	}
}

// SetResource stores res, a non-nil pointer, as the resource of its pointee
// type. Systems receive it through fields tagged `ecs:"res"`.
func (w *World) SetResource(res any) error {
	v := reflect.ValueOf(res)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: resource must be a non-nil pointer, got %T", ErrInvalidArgument, res)
	}
	w.mu.Lock()
	w.resources[v.Type().Elem()] = v.UnsafePointer()
	w.mu.Unlock()
	return nil
}

// Resource returns the resource of type T, or nil.
func Resource[T any](w *World) *T {
	return (*T)(w.resource(reflect.TypeFor[T]()))
}

func (w *World) resource(t reflect.Type) unsafe.Pointer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resources[t]
}

// Register adds systems to the schedule.
func (w *World) Register(systems ...*System) {
	w.sysMu.Lock()
	defer w.sysMu.Unlock()

	touched := make(map[Stage]bool)
	for _, s := range systems {
		if s == nil {
			continue
		}
		s.next.Store(w.tick.Load())
		w.systems[s.stage] = append(w.systems[s.stage], s)
		touched[s.stage] = true
	}
	for st := range touched {
		w.batches[st] = batch(w.systems[st])
	}
}

// Unregister removes systems from the schedule. Systems already handed to a
// world for the current tick still run once.
func (w *World) Unregister(systems ...*System) {
	w.sysMu.Lock()
	defer w.sysMu.Unlock()

	touched := make(map[Stage]bool)
	for _, s := range systems {
		if s == nil {
			continue
		}
		if i := slices.Index(w.systems[s.stage], s); i >= 0 {
			w.systems[s.stage] = slices.Delete(w.systems[s.stage], i, i+1)
			touched[s.stage] = true
		}
	}
	for st := range touched {
		w.batches[st] = batch(w.systems[st])
	}
}

// TickNumber returns the number of ticks run so far.
func (w *World) TickNumber() uint64 {
	return w.tick.Load()
}

// Tick runs one tick: it selects the due systems and hands each host world
// group one unit doing the work. It does not wait for the units to run.
func (w *World) Tick() {
	tick := w.tick.Add(1) - 1

	w.sysMu.RLock()
	var due [stageCount][][]*System
	found := false
	for st := Before; st < stageCount; st++ {
		for _, b := range w.batches[st] {
			var ready []*System
			for _, s := range b {
				if s.due(tick) {
					ready = append(ready, s)
				}
			}
			if len(ready) > 0 {
				due[st] = append(due[st], ready)
				found = true
			}
		}
	}
	w.sysMu.RUnlock()

	if !found {
		return
	}

	w.mu.RLock()
	groups := make(map[task.Executor][]*Entity, len(w.groups))
	for exec, g := range w.groups {
		ents := make([]*Entity, 0, len(g))
		for e := range g {
			ents = append(ents, e)
		}
		groups[exec] = ents
	}
	w.mu.RUnlock()

	for exec, ents := range groups {
		w.dispatchers.For(exec).Dispatch(func(tx *world.Tx) {
			for st := Before; st < stageCount; st++ {
				for _, b := range due[st] {
					w.runBatch(tx, b, ents)
				}
			}
		})
	}
}

func (w *World) runBatch(tx *world.Tx, b []*System, ents []*Entity) {
	if len(b) == 1 {
		b[0].runFor(w, tx, ents)
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(b))
	for _, s := range b {
		go func() {
			defer wg.Done()
			s.runFor(w, tx, ents)
		}()
	}
	wg.Wait()
}

// Run ticks the world on s at the world's tick rate until the returned handle
// is cancelled.
func (w *World) Run(s *task.Scheduler) *task.Handle {
	return s.Every(w.rate.Tick(), w.Tick)
}

func (w *World) published(e *Entity, t reflect.Type, attached bool) {
	if w == nil || w.bus == nil {
		return
	}
	if attached {
		event.Publish(w.bus, &Attached{Entity: e, Type: t})
	} else {
		event.Publish(w.bus, &Detached{Entity: e, Type: t})
	}
}

func sortByName(systems []*System) {
	slices.SortStableFunc(systems, func(a, b *System) int {
		return cmp.Compare(a.name, b.name)
	})
}
