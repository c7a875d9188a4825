package ecs

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/oriumgames/flint/internal/nbtconv"
)

// ErrFieldMissing is returned when decoding data that lacks a required key.
var ErrFieldMissing = errors.New("ecs: required field missing")

type codecField struct {
	key      string
	index    []int
	required bool
}

// CodecBuilder maps NBT keys to fields of a component type T.
type CodecBuilder[T any] struct {
	fields []codecField
	names  []string
}

// NewCodec starts a codec for component type T, which must be a struct.
//
//	c, err := ecs.NewCodec[Mana]().
//	    RequiredField("max", "Max").
//	    Field("regen", "Regen").
//	    Build()
func NewCodec[T any]() *CodecBuilder[T] {
	return &CodecBuilder[T]{}
}

// Field maps key to the struct field named field. A missing key leaves the
// field at the value it has in the default passed to Decode.
func (b *CodecBuilder[T]) Field(key, field string) *CodecBuilder[T] {
	b.fields = append(b.fields, codecField{key: key})
	b.names = append(b.names, field)
	return b
}

// RequiredField maps key to field and makes decoding fail without it.
func (b *CodecBuilder[T]) RequiredField(key, field string) *CodecBuilder[T] {
	b.fields = append(b.fields, codecField{key: key, required: true})
	b.names = append(b.names, field)
	return b
}

// Build resolves the field names.
func (b *CodecBuilder[T]) Build() (*Codec[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: codec type %s is not a struct", ErrInvalidArgument, t)
	}
	if len(b.fields) == 0 {
		return nil, fmt.Errorf("%w: codec for %s has no fields", ErrInvalidArgument, t)
	}

	seen := make(map[string]bool, len(b.fields))
	fields := make([]codecField, len(b.fields))
	for i, f := range b.fields {
		if f.key == "" {
			return nil, fmt.Errorf("%w: empty key for field %s", ErrInvalidArgument, b.names[i])
		}
		if seen[f.key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidArgument, f.key)
		}
		seen[f.key] = true

		sf, ok := t.FieldByName(b.names[i])
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("%w: %s has no exported field %s", ErrInvalidArgument, t, b.names[i])
		}
		f.index = sf.Index
		fields[i] = f
	}
	return &Codec[T]{fields: fields}, nil
}

// Codec encodes components of type T to NBT compounds and back.
type Codec[T any] struct {
	fields []codecField
}

// EncodeMap returns the compound for v. Optional fields with an empty value
// are left out; a required field holding nil fails with ErrFieldMissing.
func (c *Codec[T]) EncodeMap(v *T) (map[string]any, error) {
	rv := reflect.ValueOf(v).Elem()
	out := make(map[string]any, len(c.fields))
	for _, f := range c.fields {
		n, err := nbtconv.Normalize(rv.FieldByIndex(f.index).Interface())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.key, err)
		}
		if n == nil && f.required {
			return nil, fmt.Errorf("%w: %q has no value", ErrFieldMissing, f.key)
		}
		if n == nil || (!f.required && nbtconv.Empty(n)) {
			continue
		}
		out[f.key] = n
	}
	return out, nil
}

// Encode returns the NBT encoding of v.
func (c *Codec[T]) Encode(v *T) ([]byte, error) {
	m, err := c.EncodeMap(v)
	if err != nil {
		return nil, err
	}
	return nbtconv.Marshal(m)
}

// DecodeMap decodes m on top of a copy of def. Keys absent from m leave the
// corresponding field as in def; a missing required key fails with
// ErrFieldMissing.
func (c *Codec[T]) DecodeMap(m map[string]any, def T) (*T, error) {
	out := def
	rv := reflect.ValueOf(&out).Elem()
	for _, f := range c.fields {
		val, ok := m[f.key]
		if !ok {
			if f.required {
				return nil, fmt.Errorf("%w: %q", ErrFieldMissing, f.key)
			}
			continue
		}
		if err := nbtconv.Assign(rv.FieldByIndex(f.index), val); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.key, err)
		}
	}
	return &out, nil
}

// Decode decodes NBT data on top of a copy of def.
func (c *Codec[T]) Decode(b []byte, def T) (*T, error) {
	m, err := nbtconv.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return c.DecodeMap(m, def)
}
