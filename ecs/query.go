package ecs

import "reflect"

// Term is a component presence condition. With and Without are the only
// implementations.
type Term interface {
	ComponentType() reflect.Type
	IsWithout() bool
}

// With requires a component. As a system field it filters entities without
// being injected:
//
//	type Burn struct {
//	    Entity *ecs.Entity
//	    _      ecs.With[OnFire]
//	}
type With[T any] struct{}

// Without excludes entities carrying a component.
type Without[T any] struct{}

func (With[T]) ComponentType() reflect.Type    { return reflect.TypeFor[T]() }
func (With[T]) IsWithout() bool                { return false }
func (Without[T]) ComponentType() reflect.Type { return reflect.TypeFor[T]() }
func (Without[T]) IsWithout() bool             { return true }

var termType = reflect.TypeFor[Term]()

// termOf returns the Term a field type stands for, if any.
func termOf(t reflect.Type) (Term, bool) {
	if t.Kind() != reflect.Struct || !t.Implements(termType) {
		return nil, false
	}
	return reflect.New(t).Elem().Interface().(Term), true
}

// Query selects entities by component presence.
type Query struct {
	require Bitmask
	exclude Bitmask
}

// NewQuery builds a query from terms:
//
//	q := ecs.NewQuery(ecs.With[Health]{}, ecs.Without[Dead]{})
func NewQuery(terms ...Term) Query {
	var q Query
	for _, t := range terms {
		id := components.register(t.ComponentType())
		if t.IsWithout() {
			q.exclude.Set(id)
		} else {
			q.require.Set(id)
		}
	}
	return q
}

// Match reports whether e satisfies the query. Untracked entities never match.
func (q Query) Match(e *Entity) bool {
	if e == nil || e.closed.Load() {
		return false
	}
	return e.matches(q.require, q.exclude)
}
