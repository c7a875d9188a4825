// Package nbtconv converts Go values to and from the dynamic shapes the NBT
// encoder of gophertunnel accepts and the decoder produces.
package nbtconv

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// ErrUnsupported is returned for values that have no NBT representation.
var ErrUnsupported = errors.New("nbtconv: unsupported type")

// Normalize returns v in a form nbt.Marshal accepts: bools become bytes,
// integers become int64 (uint8 stays a byte), slices become []any, maps and
// structs become map[string]any. Nil pointers and nil interfaces return nil.
// Nil compound values are left out; nil list elements and unsigned values
// above math.MaxInt64 fail with ErrUnsupported.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return normalize(reflect.ValueOf(v))
}

func normalize(v reflect.Value) (any, error) {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return uint8(1), nil
		}
		return uint8(0), nil
	case reflect.Uint8:
		return uint8(v.Uint()), nil
	case reflect.Int16:
		return int16(v.Int()), nil
	case reflect.Int32:
		return int32(v.Int()), nil
	case reflect.Int, reflect.Int8, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, v.Uint())
		}
		return int64(v.Uint()), nil
	case reflect.Float32:
		return float32(v.Float()), nil
	case reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return normalize(v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := normalize(v.Index(i))
			if err != nil {
				return nil, err
			}
			if e == nil {
				return nil, fmt.Errorf("%w: nil element at index %d", ErrUnsupported, i)
			}
			out = append(out, e)
		}
		return out, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s", ErrUnsupported, v.Type().Key())
		}
		if v.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, v.Len())
		it := v.MapRange()
		for it.Next() {
			e, err := normalize(it.Value())
			if err != nil {
				return nil, err
			}
			if e != nil {
				out[it.Key().String()] = e
			}
		}
		return out, nil
	case reflect.Struct:
		t := v.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			e, err := normalize(v.Field(i))
			if err != nil {
				return nil, err
			}
			if e != nil {
				out[f.Name] = e
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, v.Type())
}

// Empty reports whether a normalized value carries no data: nil, an empty
// string, an empty list or an empty compound.
func Empty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// Assign stores the decoded NBT value src into dst, converting between the
// numeric widths the decoder produces and the Go type of dst.
func Assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	sv := reflect.ValueOf(src)

	switch dst.Kind() {
	case reflect.Bool:
		if !isNumber(sv) {
			return mismatch(dst, src)
		}
		dst.SetBool(sv.Convert(reflect.TypeFor[int64]()).Int() != 0)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if !isNumber(sv) {
			return mismatch(dst, src)
		}
		dst.Set(sv.Convert(dst.Type()))
		return nil
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return mismatch(dst, src)
		}
		dst.SetString(s)
		return nil
	case reflect.Pointer:
		p := reflect.New(dst.Type().Elem())
		if err := Assign(p.Elem(), src); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Interface:
		if !sv.Type().AssignableTo(dst.Type()) {
			return mismatch(dst, src)
		}
		dst.Set(sv)
		return nil
	case reflect.Slice, reflect.Array:
		list, ok := asList(sv)
		if !ok {
			return mismatch(dst, src)
		}
		if dst.Kind() == reflect.Slice {
			dst.Set(reflect.MakeSlice(dst.Type(), len(list), len(list)))
		} else if len(list) > dst.Len() {
			return fmt.Errorf("nbtconv: %d elements do not fit %s", len(list), dst.Type())
		}
		for i, e := range list {
			if err := Assign(dst.Index(i), e); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		m, ok := src.(map[string]any)
		if !ok || dst.Type().Key().Kind() != reflect.String {
			return mismatch(dst, src)
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(m))
		for k, e := range m {
			ev := reflect.New(dst.Type().Elem()).Elem()
			if err := Assign(ev, e); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), ev)
		}
		dst.Set(out)
		return nil
	case reflect.Struct:
		m, ok := src.(map[string]any)
		if !ok {
			return mismatch(dst, src)
		}
		t := dst.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			e, ok := m[f.Name]
			if !f.IsExported() || !ok {
				continue
			}
			if err := Assign(dst.Field(i), e); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, dst.Type())
}

// Marshal encodes a compound.
func Marshal(m map[string]any) ([]byte, error) {
	return nbt.Marshal(m)
}

// Unmarshal decodes a compound.
func Unmarshal(b []byte) (map[string]any, error) {
	m := make(map[string]any)
	if err := nbt.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// asList accepts both decoded lists and the fixed-size byte/int/long arrays
// NBT uses.
func asList(v reflect.Value) ([]any, bool) {
	if l, ok := v.Interface().([]any); ok {
		return l, true
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, true
}

func mismatch(dst reflect.Value, src any) error {
	return fmt.Errorf("nbtconv: cannot assign %T to %s", src, dst.Type())
}
