package ecs

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/world"
)

// Runnable is a system. Its pointer fields are filled for each matching entity
// before Run is called inside the entity's world transaction:
//
//	type Regen struct {
//	    Entity *ecs.Entity
//	    Health *Health `ecs:"mut"`
//	    Config *Config `ecs:"res"`
//	    _      ecs.Without[Dead]
//	}
//
//	func (r *Regen) Run(tx *world.Tx) { r.Health.Value += r.Config.Rate }
//
// Component fields are required unless tagged `ecs:"opt"`. Fields tagged
// `ecs:"mut"` declare write access; systems of one stage whose access does
// not conflict run in parallel. Unexported fields are never injected; like
// every other field they keep the value they had when the system was passed
// to NewSystem.
type Runnable interface {
	Run(tx *world.Tx)
}

// System is a registered Runnable with its schedule.
type System struct {
	meta  *systemMeta
	name  string
	every uint64
	stage Stage

	// next is the first tick the system is due at
	next atomic.Uint64
}

// Name returns the system name.
func (s *System) Name() string {
	return s.name
}

// Stage returns the stage the system runs in.
func (s *System) Stage() Stage {
	return s.stage
}

// Every returns the interval in ticks.
func (s *System) Every() uint64 {
	return s.every
}

// due reports whether the system runs at tick and advances its schedule.
func (s *System) due(tick uint64) bool {
	next := s.next.Load()
	if tick < next {
		return false
	}
	return s.next.CompareAndSwap(next, tick+s.every)
}

// SystemBuilder configures a System.
type SystemBuilder struct {
	sys   Runnable
	name  string
	every int
	stage Stage
}

// NewSystem starts building a system from a pointer to a Runnable struct.
// The system runs every tick in the Default stage unless configured otherwise.
func NewSystem(sys Runnable) *SystemBuilder {
	return &SystemBuilder{sys: sys, every: 1, stage: Default}
}

// Every runs the system once every n ticks.
func (b *SystemBuilder) Every(ticks int) *SystemBuilder {
	b.every = ticks
	return b
}

// Stage sets the stage the system runs in.
func (b *SystemBuilder) Stage(s Stage) *SystemBuilder {
	b.stage = s
	return b
}

// Name overrides the name used in logs. It defaults to the struct type.
func (b *SystemBuilder) Name(name string) *SystemBuilder {
	b.name = name
	return b
}

// Build validates the system and analyses its fields.
func (b *SystemBuilder) Build() (*System, error) {
	if b.every < 1 {
		return nil, fmt.Errorf("%w: interval must be at least one tick, got %d", ErrInvalidArgument, b.every)
	}
	if !b.stage.valid() {
		return nil, fmt.Errorf("%w: unknown stage %d", ErrInvalidArgument, b.stage)
	}
	meta, err := analyze(b.sys)
	if err != nil {
		return nil, err
	}
	name := b.name
	if name == "" {
		name = meta.name
	}
	return &System{meta: meta, name: name, every: uint64(b.every), stage: b.stage}, nil
}

// runFor runs the system for every matching entity of ents.
func (s *System) runFor(w *World, tx *world.Tx, ents []*Entity) {
	inst := s.meta.pool.Get()
	defer s.meta.pool.Put(inst)

	base := reflect.ValueOf(inst).UnsafePointer()
	r := inst.(Runnable)
	for _, e := range ents {
		if e.closed.Load() || !e.matches(s.meta.require, s.meta.exclude) || !e.inTx(tx) {
			continue
		}
		if inject(base, e, s.meta, w) {
			s.call(w, r, tx)
		}
		reset(base, s.meta)
	}
}

func (s *System) call(w *World, r Runnable, tx *world.Tx) {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error("flint: panic in system",
				"system", s.name,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
		}
	}()
	r.Run(tx)
}

// batch groups the systems of a stage so that no two systems of a batch
// conflict. Order is by name to keep batching deterministic.
func batch(systems []*System) [][]*System {
	var (
		batches   [][]*System
		remaining = append([]*System(nil), systems...)
	)
	sortByName(remaining)
	for len(remaining) > 0 {
		var cur, rest []*System
		for _, c := range remaining {
			conflict := false
			for _, o := range cur {
				if c.meta.access.conflicts(&o.meta.access) {
					conflict = true
					break
				}
			}
			if conflict {
				rest = append(rest, c)
			} else {
				cur = append(cur, c)
			}
		}
		batches = append(batches, cur)
		remaining = rest
	}
	return batches
}
