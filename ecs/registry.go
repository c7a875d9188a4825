package ecs

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// ComponentID identifies a component type. IDs are assigned on first use and
// are stable for the life of the process.
type ComponentID uint8

// MaxComponents is the number of component types a process may use.
const MaxComponents = 255

// registry assigns component IDs. Lookups are lock-free once a type is known.
type registry struct {
	ids sync.Map // reflect.Type -> ComponentID

	mu    sync.RWMutex
	types [MaxComponents]reflect.Type

	next atomic.Uint32
}

var components = &registry{}

// register returns the ID of t, assigning one if t is new.
func (r *registry) register(t reflect.Type) ComponentID {
	if id, ok := r.ids.Load(t); ok {
		return id.(ComponentID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have won while we waited for the lock.
	if id, ok := r.ids.Load(t); ok {
		return id.(ComponentID)
	}
	n := r.next.Load()
	if n >= MaxComponents {
		panic(fmt.Sprintf("ecs: component limit exceeded (max %d types)", MaxComponents))
	}
	id := ComponentID(n)
	r.types[id] = t
	r.next.Store(n + 1)
	r.ids.Store(t, id)
	return id
}

func (r *registry) typeOf(id ComponentID) reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[id]
}

// idOf returns the ComponentID of T.
func idOf[T any]() ComponentID {
	return components.register(reflect.TypeFor[T]())
}

// ComponentName returns the type name of the component with id, or an empty
// string if id was never assigned.
func ComponentName(id ComponentID) string {
	if t := components.typeOf(id); t != nil {
		return t.String()
	}
	return ""
}

// ComponentCount returns the number of component types seen so far.
func ComponentCount() int {
	return int(components.next.Load())
}
