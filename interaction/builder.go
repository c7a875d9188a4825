package interaction

import (
	"fmt"
	"reflect"
)

// nodePtr is satisfied by *T for every node type T.
type nodePtr[T any] interface {
	*T
	Node
}

// Builder configures a node of type T.
type Builder[T any, P nodePtr[T]] struct {
	node P
	err  error
}

// New starts a node of type T:
//
//	hit, err := interaction.New[interaction.Damage]().
//	    Set("id", "sword_hit").
//	    Set("amount", 6.0).
//	    Build()
func New[T any, P nodePtr[T]]() *Builder[T, P] {
	return &Builder[T, P]{node: P(new(T))}
}

// Set stores value in the named field of the node or of any type it embeds.
// The first failing Set is reported by Build.
func (b *Builder[T, P]) Set(field string, value any) *Builder[T, P] {
	if b.err != nil {
		return b
	}
	ok, err := b.node.setField(field, value)
	switch {
	case err != nil:
		b.err = fmt.Errorf("%s.%s: %w", typeName[T](), field, err)
	case !ok:
		b.err = fmt.Errorf("%w: %q in %s", ErrFieldNotFound, field, typeName[T]())
	}
	return b
}

// Build returns a copy of the configured node.
func (b *Builder[T, P]) Build() (P, error) {
	if b.err != nil {
		return nil, b.err
	}
	cp := new(T)
	*cp = *b.node
	return P(cp), nil
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
