package ecs

import (
	"reflect"
	"unsafe"
)

// inject fills the fields of the system at base for entity e. It reports
// false if a required component or resource is missing.
func inject(base unsafe.Pointer, e *Entity, m *systemMeta, w *World) bool {
	for i := range m.fields {
		f := &m.fields[i]
		switch f.kind {
		case kindEntity:
			setPtr(base, f.offset, unsafe.Pointer(e))
		case kindWorld:
			setPtr(base, f.offset, unsafe.Pointer(w))
		case kindComponent:
			ptr := e.component(f.id)
			if ptr == nil && !f.optional {
				return false
			}
			setPtr(base, f.offset, ptr)
		case kindResource:
			ptr := w.resource(f.typ)
			if ptr == nil && !f.optional {
				return false
			}
			setPtr(base, f.offset, ptr)
		}
	}
	return true
}

// reset restores the system at base to its prototype, clearing injected
// pointers and undoing payload changes made by Run.
func reset(base unsafe.Pointer, m *systemMeta) {
	reflect.NewAt(m.typ, base).Elem().Set(m.proto)
}

func setPtr(base unsafe.Pointer, offset uintptr, v unsafe.Pointer) {
	*(*unsafe.Pointer)(unsafe.Add(base, offset)) = v
}
