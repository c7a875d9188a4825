package itemstack

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/df-mc/dragonfly/server/item"

	"github.com/oriumgames/flint/internal/nbtconv"
)

// ErrMetadataMissing is returned by Require when a stack has no value for a key.
var ErrMetadataMissing = errors.New("itemstack: metadata missing")

// Encoder converts a value to and from an NBT compound. *ecs.Codec satisfies
// it.
type Encoder[T any] interface {
	EncodeMap(v *T) (map[string]any, error)
	DecodeMap(m map[string]any, def T) (*T, error)
}

// Key is a typed metadata slot on item stacks. Values are stored NBT encoded
// so they survive the stack being saved and loaded.
type Key[T any] struct {
	name string
	enc  Encoder[T]
}

// NewKey returns a key storing T as a single NBT value.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// NewCodecKey returns a key storing T through enc.
func NewCodecKey[T any](name string, enc Encoder[T]) Key[T] {
	return Key[T]{name: name, enc: enc}
}

// Name returns the stack value key.
func (k Key[T]) Name() string {
	return k.name
}

// Set stores v on s. A value that encodes to nothing removes the key.
func (k Key[T]) Set(s item.Stack, v T) (item.Stack, error) {
	b, err := k.encode(v)
	if err != nil {
		return s, fmt.Errorf("metadata %s: %w", k.name, err)
	}
	if b == nil {
		return s.WithValue(k.name, nil), nil
	}
	return s.WithValue(k.name, b), nil
}

// Has reports whether s carries a value for k.
func (k Key[T]) Has(s item.Stack) bool {
	_, ok := k.raw(s)
	return ok
}

// Get returns the value stored on s. ok is false when the key is missing or
// the stored value cannot be decoded.
func (k Key[T]) Get(s item.Stack) (v T, ok bool) {
	v, err := k.Require(s)
	return v, err == nil
}

// Require returns the value stored on s or ErrMetadataMissing.
func (k Key[T]) Require(s item.Stack) (T, error) {
	var zero T
	b, ok := k.raw(s)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMetadataMissing, k.name)
	}
	v, err := k.decode(b)
	if err != nil {
		return zero, fmt.Errorf("metadata %s: %w", k.name, err)
	}
	return v, nil
}

// Delete removes k from s.
func (k Key[T]) Delete(s item.Stack) item.Stack {
	return s.WithValue(k.name, nil)
}

func (k Key[T]) raw(s item.Stack) ([]byte, bool) {
	v, ok := s.Value(k.name)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok && len(b) > 0
}

// encode returns nil for values with no content.
func (k Key[T]) encode(v T) ([]byte, error) {
	var m map[string]any
	if k.enc != nil {
		enc, err := k.enc.EncodeMap(&v)
		if err != nil {
			return nil, err
		}
		m = enc
	} else {
		n, err := nbtconv.Normalize(v)
		if err != nil {
			return nil, err
		}
		if !nbtconv.Empty(n) {
			m = map[string]any{"v": n}
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return nbtconv.Marshal(m)
}

func (k Key[T]) decode(b []byte) (T, error) {
	var zero T
	m, err := nbtconv.Unmarshal(b)
	if err != nil {
		return zero, err
	}
	if k.enc != nil {
		v, err := k.enc.DecodeMap(m, zero)
		if err != nil {
			return zero, err
		}
		return *v, nil
	}
	var v T
	if err := nbtconv.Assign(reflect.ValueOf(&v).Elem(), m["v"]); err != nil {
		return zero, err
	}
	return v, nil
}
