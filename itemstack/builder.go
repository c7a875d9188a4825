package itemstack

import (
	"errors"
	"fmt"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
)

// ErrInvalidArgument is returned for out-of-domain counts and amounts.
var ErrInvalidArgument = errors.New("itemstack: invalid argument")

// Builder configures an item stack. Only properties that were set are applied;
// everything else keeps the host default of the item.
type Builder struct {
	it world.Item

	count       *int
	name        *string
	lore        []string
	enchants    []item.Enchantment
	durability  *int
	unbreakable bool
	values      map[string]any

	err error
}

// New starts a stack of it. Without Count the stack holds one item.
func New(it world.Item) *Builder {
	return &Builder{it: it}
}

// Count sets the number of items. It must be between 1 and the item's max
// stack size.
func (b *Builder) Count(n int) *Builder {
	b.count = &n
	return b
}

// Name sets the custom display name.
func (b *Builder) Name(name string) *Builder {
	b.name = &name
	return b
}

// Lore sets the lore lines.
func (b *Builder) Lore(lines ...string) *Builder {
	b.lore = lines
	return b
}

// Enchant adds an enchantment.
func (b *Builder) Enchant(t item.EnchantmentType, level int) *Builder {
	b.enchants = append(b.enchants, item.NewEnchantment(t, level))
	return b
}

// Durability sets the remaining durability, clamped to [0, max]. Items
// without durability ignore it.
func (b *Builder) Durability(d int) *Builder {
	b.durability = &d
	return b
}

// Unbreakable makes the stack unbreakable.
func (b *Builder) Unbreakable() *Builder {
	b.unbreakable = true
	return b
}

// Value stores a raw value under key. A nil value removes the key.
func (b *Builder) Value(key string, v any) *Builder {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	b.values[key] = v
	return b
}

// Meta stores v under k. An encoding error is reported by Build.
func Meta[T any](b *Builder, k Key[T], v T) *Builder {
	enc, err := k.encode(v)
	if err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("metadata %s: %w", k.name, err))
		return b
	}
	if enc == nil {
		return b.Value(k.name, nil)
	}
	return b.Value(k.name, enc)
}

// Build returns the stack.
func (b *Builder) Build() (item.Stack, error) {
	if b.err != nil {
		return item.Stack{}, b.err
	}
	if b.it == nil {
		return item.Stack{}, fmt.Errorf("%w: nil item", ErrInvalidArgument)
	}

	count := 1
	if b.count != nil {
		count = *b.count
	}
	if count <= 0 {
		return item.Stack{}, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidArgument, count)
	}

	s := item.NewStack(b.it, count)
	if count > s.MaxCount() {
		return item.Stack{}, fmt.Errorf("%w: count %d exceeds max stack size %d", ErrInvalidArgument, count, s.MaxCount())
	}

	if b.name != nil {
		s = s.WithCustomName(*b.name)
	}
	if b.lore != nil {
		s = s.WithLore(b.lore...)
	}
	if len(b.enchants) > 0 {
		s = s.WithEnchantments(b.enchants...)
	}
	if b.durability != nil && s.MaxDurability() > 0 {
		s = s.WithDurability(ClampDurability(*b.durability, s.MaxDurability()))
	}
	if b.unbreakable {
		s = s.AsUnbreakable()
	}
	for k, v := range b.values {
		if v != nil {
			s = s.WithValue(k, v)
		}
	}
	return s, nil
}
