package ecs

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/flint/task"
)

// Entity is a host entity tracked by a World together with its components.
// It is keyed by the entity handle, which stays valid across transactions and
// world changes.
type Entity struct {
	handle *world.EntityHandle
	owner  *World

	mu    sync.RWMutex
	exec  task.Executor
	mask  Bitmask
	comps [MaxComponents]unsafe.Pointer

	closed atomic.Bool
}

// Handle returns the host entity handle.
func (e *Entity) Handle() *world.EntityHandle {
	return e.handle
}

// World returns the ECS world tracking the entity.
func (e *Entity) World() *World {
	return e.owner
}

// Executor returns the host world the entity was last seen in.
func (e *Entity) Executor() task.Executor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exec
}

// Mask returns a copy of the component bitmask.
func (e *Entity) Mask() Bitmask {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mask
}

// Closed reports whether the entity was untracked.
func (e *Entity) Closed() bool {
	return e.closed.Load()
}

// Player returns the entity as a player inside tx.
func (e *Entity) Player(tx *world.Tx) (*player.Player, bool) {
	if tx == nil || e.handle == nil {
		return nil, false
	}
	ent, ok := e.handle.Entity(tx)
	if !ok {
		return nil, false
	}
	p, ok := ent.(*player.Player)
	return p, ok
}

// Exec runs fn in the transaction of the entity's current world. It returns
// false if the entity is untracked or no longer in a world.
func (e *Entity) Exec(fn func(tx *world.Tx, ent world.Entity)) bool {
	if e.closed.Load() || e.handle == nil {
		return false
	}
	return e.handle.ExecWorld(fn)
}

// inTx reports whether the entity is part of tx. A nil tx matches everything.
func (e *Entity) inTx(tx *world.Tx) bool {
	if tx == nil || e.handle == nil {
		return true
	}
	_, ok := e.handle.Entity(tx)
	return ok
}

func (e *Entity) matches(require, exclude Bitmask) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mask.ContainsAll(require) && !e.mask.ContainsAny(exclude)
}

func (e *Entity) component(id ComponentID) unsafe.Pointer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.comps[id]
}

// String lists the component types attached to the entity.
func (e *Entity) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var names []string
	for id := range ComponentID(MaxComponents) {
		if e.mask.Has(id) {
			names = append(names, ComponentName(id))
		}
	}
	return fmt.Sprintf("Entity{Handle: %p, Components: [%s]}", e.handle, strings.Join(names, ", "))
}
