package interaction

import (
	"errors"
	"fmt"
	"reflect"

	bt "github.com/joeycumines/go-behaviortree"
)

var (
	// ErrInvalidArgument is returned for values that cannot be stored in a
	// field and for malformed graphs.
	ErrInvalidArgument = errors.New("interaction: invalid argument")
	// ErrFieldNotFound is returned when no type of a node's embedding chain
	// declares the named field.
	ErrFieldNotFound = errors.New("interaction: field not found")
)

// Node is a configured interaction step. Nodes are built with New and
// compiled into a fresh behaviour tree for every run.
type Node interface {
	// setField stores v in the field called name, checking the node's own
	// fields before those of the types it embeds. It reports false if no type
	// of the chain declares the field.
	setField(name string, v any) (bool, error)
	// compile returns the behaviour tree node executing this step for c.
	compile(c *Context) bt.Node
	base() *Base
}

// Base is embedded by every node.
type Base struct {
	id   string
	tags []string
}

// ID returns the node id set through the "id" field.
func (b *Base) ID() string { return b.id }

// Tags returns the node tags set through the "tags" field.
func (b *Base) Tags() []string { return b.tags }

func (b *Base) base() *Base { return b }

func (b *Base) setField(name string, v any) (bool, error) {
	switch name {
	case "id":
		return true, assign(&b.id, v)
	case "tags":
		return true, assign(&b.tags, v)
	}
	return false, nil
}

// Simple is a step with follow-ups: next runs after the step succeeds and
// failed after it fails. The result of the follow-up becomes the result of
// the step.
type Simple struct {
	Base
	next   Node
	failed Node
}

func (s *Simple) setField(name string, v any) (bool, error) {
	switch name {
	case "next":
		return true, assign(&s.next, v)
	case "failed":
		return true, assign(&s.failed, v)
	}
	return s.Base.setField(name, v)
}

// wrap chains the follow-ups of s behind self.
func (s *Simple) wrap(self bt.Node, c *Context) bt.Node {
	if s.next == nil && s.failed == nil {
		return self
	}
	var next, failed, branch bt.Node
	if s.next != nil {
		next = s.next.compile(c)
	}
	if s.failed != nil {
		failed = s.failed.compile(c)
	}
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if branch == nil {
			status, err := self.Tick()
			if err != nil {
				return bt.Failure, err
			}
			switch {
			case status == bt.Running:
				return bt.Running, nil
			case status == bt.Success && next != nil:
				branch = next
			case status == bt.Failure && failed != nil:
				branch = failed
			default:
				return status, nil
			}
		}
		return branch.Tick()
	})
}

// leaf returns a childless node running tick.
func leaf(tick func() bt.Status) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return tick(), nil
	})
}

func status(ok bool) bt.Status {
	if ok {
		return bt.Success
	}
	return bt.Failure
}

// assign stores v in dst. Numbers convert between widths the way an explicit
// conversion would; nil, including a typed nil, clears nillable fields.
func assign[T any](dst *T, v any) error {
	if v != nil {
		switch rv := reflect.ValueOf(v); rv.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Interface:
			if rv.IsNil() {
				v = nil
			}
		}
	}
	if x, ok := v.(T); ok {
		*dst = x
		return nil
	}
	t := reflect.TypeFor[T]()
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func:
			var zero T
			*dst = zero
			return nil
		}
		return fmt.Errorf("%w: cannot assign nil to %s", ErrInvalidArgument, t)
	}
	rv := reflect.ValueOf(v)
	if numeric(rv.Kind()) && numeric(t.Kind()) {
		*dst = rv.Convert(t).Interface().(T)
		return nil
	}
	return fmt.Errorf("%w: cannot assign %T to %s", ErrInvalidArgument, v, t)
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
