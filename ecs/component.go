package ecs

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

// ErrComponentMissing is returned by Require when the entity lacks the
// requested component.
var ErrComponentMissing = errors.New("ecs: component missing")

// Attachable is implemented by components that run logic when attached.
type Attachable interface {
	Attach(e *Entity)
}

// Detachable is implemented by components that run logic when removed or when
// their entity is untracked.
type Detachable interface {
	Detach(e *Entity)
}

// Add attaches component to e, replacing (and detaching) any component of the
// same type.
//
// Concurrency:
// Add is safe from any goroutine, but mutating component fields is only safe
// inside a unit dispatched to the entity's world.
func Add[T any](e *Entity, component *T) {
	if e == nil || component == nil || e.closed.Load() {
		return
	}
	id := idOf[T]()

	e.mu.Lock()
	old := (*T)(e.comps[id])
	e.comps[id] = unsafe.Pointer(component)
	e.mask.Set(id)
	e.mu.Unlock()

	if old != nil {
		if d, ok := any(old).(Detachable); ok {
			d.Detach(e)
		}
	}
	if a, ok := any(component).(Attachable); ok {
		a.Attach(e)
	}
	e.owner.published(e, reflect.TypeFor[T](), true)
}

// Remove detaches the component of type T from e, if any.
func Remove[T any](e *Entity) {
	if e == nil {
		return
	}
	id := idOf[T]()

	e.mu.Lock()
	old := (*T)(e.comps[id])
	e.comps[id] = nil
	e.mask.Clear(id)
	e.mu.Unlock()

	if old == nil {
		return
	}
	if d, ok := any(old).(Detachable); ok {
		d.Detach(e)
	}
	e.owner.published(e, reflect.TypeFor[T](), false)
}

// Get returns the component of type T, or nil if e lacks it. Use it for
// optional components.
func Get[T any](e *Entity) *T {
	if e == nil {
		return nil
	}
	return (*T)(e.component(idOf[T]()))
}

// Require returns the component of type T, or an error wrapping
// ErrComponentMissing that names the type.
func Require[T any](e *Entity) (*T, error) {
	if c := Get[T](e); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrComponentMissing, reflect.TypeFor[T]())
}

// Has reports whether e carries a component of type T.
func Has[T any](e *Entity) bool {
	if e == nil {
		return false
	}
	id := idOf[T]()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mask.Has(id)
}

// detachAll clears every component, calling Detach hooks outside the lock.
func (e *Entity) detachAll() {
	var hooks []Detachable

	e.mu.Lock()
	for id := range ComponentID(MaxComponents) {
		ptr := e.comps[id]
		if ptr == nil {
			continue
		}
		if t := components.typeOf(id); t != nil {
			if d, ok := reflect.NewAt(t, ptr).Interface().(Detachable); ok {
				hooks = append(hooks, d)
			}
		}
		e.comps[id] = nil
	}
	e.mask = Bitmask{}
	e.mu.Unlock()

	for _, d := range hooks {
		d.Detach(e)
	}
}
