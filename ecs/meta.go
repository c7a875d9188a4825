package ecs

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagName = "ecs"

// Tag modifiers.
const (
	modMut = "mut" // write access
	modOpt = "opt" // nil if missing instead of skipping the entity
	modRes = "res" // world resource instead of a component
)

type fieldKind int

const (
	kindEntity fieldKind = iota
	kindWorld
	kindComponent
	kindResource
	kindTerm
	kindPayload
)

type tagInfo struct {
	mutable  bool
	optional bool
	resource bool
}

func parseTag(tag string) tagInfo {
	var info tagInfo
	for part := range strings.SplitSeq(tag, ",") {
		switch strings.TrimSpace(part) {
		case modMut:
			info.mutable = true
		case modOpt:
			info.optional = true
		case modRes:
			info.resource = true
		}
	}
	return info
}

// fieldMeta describes how one system field is filled before Run.
type fieldMeta struct {
	offset   uintptr
	name     string
	kind     fieldKind
	id       ComponentID
	typ      reflect.Type
	optional bool
}

// systemMeta is computed once per registered system.
type systemMeta struct {
	typ     reflect.Type
	name    string
	require Bitmask
	exclude Bitmask
	fields  []fieldMeta
	access  access

	// proto is the value passed to NewSystem; pooled instances start as copies
	proto reflect.Value
	pool  *sync.Pool
}

// access lists the component and resource types a system reads or writes.
// Two systems conflict when one writes something the other touches.
type access struct {
	reads, writes       map[reflect.Type]struct{}
	resReads, resWrites map[reflect.Type]struct{}
}

func (a *access) add(t reflect.Type, resource, mutable bool) {
	set := func(m *map[reflect.Type]struct{}) {
		if *m == nil {
			*m = make(map[reflect.Type]struct{})
		}
		(*m)[t] = struct{}{}
	}
	switch {
	case resource && mutable:
		set(&a.resWrites)
	case resource:
		set(&a.resReads)
	case mutable:
		set(&a.writes)
	default:
		set(&a.reads)
	}
}

func (a *access) conflicts(b *access) bool {
	return overlaps(a.writes, b.writes) || overlaps(a.writes, b.reads) || overlaps(a.reads, b.writes) ||
		overlaps(a.resWrites, b.resWrites) || overlaps(a.resWrites, b.resReads) || overlaps(a.resReads, b.resWrites)
}

func overlaps(a, b map[reflect.Type]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}

func isTerm(t reflect.Type) bool {
	_, ok := termOf(t)
	return ok
}

var (
	entityPtrType = reflect.TypeFor[*Entity]()
	worldPtrType  = reflect.TypeFor[*World]()
)

// analyze inspects the struct behind the system pointer sys.
func analyze(sys any) (*systemMeta, error) {
	v := reflect.ValueOf(sys)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: system must be a non-nil struct pointer, got %T", ErrInvalidArgument, sys)
	}
	t := v.Elem().Type()

	proto := reflect.New(t).Elem()
	proto.Set(v.Elem())
	m := &systemMeta{
		typ:   t,
		name:  t.String(),
		proto: proto,
	}
	m.pool = &sync.Pool{New: func() any {
		p := reflect.New(t)
		p.Elem().Set(proto)
		return p.Interface()
	}}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := parseTag(f.Tag.Get(tagName))
		fm := fieldMeta{offset: f.Offset, name: f.Name, optional: tag.optional}

		switch {
		case f.Type == entityPtrType:
			fm.kind = kindEntity
		case f.Type == worldPtrType:
			fm.kind = kindWorld
		case !f.IsExported() && !isTerm(f.Type):
			fm.kind = kindPayload
			fm.typ = f.Type
		case tag.resource:
			if f.Type.Kind() != reflect.Pointer {
				return nil, fmt.Errorf("%w: resource field %s.%s must be a pointer", ErrInvalidArgument, m.name, f.Name)
			}
			fm.kind = kindResource
			fm.typ = f.Type.Elem()
			m.access.add(fm.typ, true, tag.mutable)
		default:
			if term, ok := termOf(f.Type); ok {
				fm.kind = kindTerm
				fm.typ = term.ComponentType()
				fm.id = components.register(fm.typ)
				if term.IsWithout() {
					m.exclude.Set(fm.id)
				} else {
					m.require.Set(fm.id)
				}
				break
			}
			if f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct {
				fm.kind = kindComponent
				fm.typ = f.Type.Elem()
				fm.id = components.register(fm.typ)
				if !tag.optional {
					m.require.Set(fm.id)
				}
				m.access.add(fm.typ, false, tag.mutable)
				break
			}
			fm.kind = kindPayload
			fm.typ = f.Type
		}
		m.fields = append(m.fields, fm)
	}

	if m.require.ContainsAny(m.exclude) {
		return nil, fmt.Errorf("%w: system %s both requires and excludes a component", ErrInvalidArgument, m.name)
	}
	return m, nil
}
