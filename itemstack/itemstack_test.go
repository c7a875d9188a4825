package itemstack

import (
	"testing"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/flint/ecs"
)

func TestBuildDefaults(t *testing.T) {
	s, err := New(item.Apple{}).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
	assert.Empty(t, s.CustomName())
	assert.Empty(t, s.Lore())
	assert.False(t, s.Unbreakable())
}

func TestBuildProperties(t *testing.T) {
	s, err := New(item.Apple{}).
		Count(12).
		Name("Golden").
		Lore("shiny", "tasty").
		Value("origin", "shop").
		Build()
	require.NoError(t, err)
	assert.Equal(t, 12, s.Count())
	assert.Equal(t, "Golden", s.CustomName())
	assert.Equal(t, []string{"shiny", "tasty"}, s.Lore())

	v, ok := s.Value("origin")
	require.True(t, ok)
	assert.Equal(t, "shop", v)
}

func TestBuildCountValidation(t *testing.T) {
	_, err := New(item.Apple{}).Count(0).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(item.Apple{}).Count(-3).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(item.Sword{Tier: item.ToolTierDiamond}).Count(2).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(nil).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBuildDurability(t *testing.T) {
	sword := item.Sword{Tier: item.ToolTierDiamond}

	s, err := New(sword).Durability(100).Unbreakable().Build()
	require.NoError(t, err)
	assert.Equal(t, 100, s.Durability())
	assert.True(t, s.Unbreakable())

	s, err = New(sword).Durability(1 << 20).Build()
	require.NoError(t, err)
	assert.Equal(t, s.MaxDurability(), s.Durability())

	// Non-durable items ignore it.
	s, err = New(item.Apple{}).Durability(5).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestClampDurability(t *testing.T) {
	assert.Equal(t, 0, ClampDurability(-4, 10))
	assert.Equal(t, 10, ClampDurability(40, 10))
	assert.Equal(t, 7, ClampDurability(7, 10))
}

func TestDamageAndRepair(t *testing.T) {
	s, err := New(item.Sword{Tier: item.ToolTierDiamond}).Durability(50).Build()
	require.NoError(t, err)

	s = DamageBy(s, 20)
	assert.Equal(t, 30, s.Durability())

	s = Repair(s, 1<<20)
	assert.Equal(t, s.MaxDurability(), s.Durability())

	apple := item.NewStack(item.Apple{}, 3)
	assert.Equal(t, apple.Count(), DamageBy(apple, 5).Count())
}

func TestSplit(t *testing.T) {
	s := item.NewStack(item.Apple{}, 10)

	taken, rest, err := Split(s, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, taken.Count())
	assert.Equal(t, 6, rest.Count())

	taken, rest, err = Split(s, 15)
	require.NoError(t, err)
	assert.Equal(t, 10, taken.Count())
	assert.True(t, rest.Empty())

	_, _, err = Split(s, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	taken, rest, err = Split(item.Stack{}, 1)
	require.NoError(t, err)
	assert.True(t, taken.Empty())
	assert.True(t, rest.Empty())
}

var owner = NewKey[string]("flint:owner")

func TestMetadataKey(t *testing.T) {
	s := item.NewStack(item.Apple{}, 1)

	_, ok := owner.Get(s)
	assert.False(t, ok)
	_, err := owner.Require(s)
	assert.ErrorIs(t, err, ErrMetadataMissing)

	s, err = owner.Set(s, "alex")
	require.NoError(t, err)
	assert.True(t, owner.Has(s))
	v, ok := owner.Get(s)
	require.True(t, ok)
	assert.Equal(t, "alex", v)

	s = owner.Delete(s)
	assert.False(t, owner.Has(s))
}

func TestMetadataEmptyValueRemovesKey(t *testing.T) {
	s, err := owner.Set(item.NewStack(item.Apple{}, 1), "alex")
	require.NoError(t, err)

	s, err = owner.Set(s, "")
	require.NoError(t, err)
	assert.False(t, owner.Has(s))

	charges := NewKey[[]int32]("flint:charges")
	s, err = charges.Set(s, nil)
	require.NoError(t, err)
	assert.False(t, charges.Has(s))
}

func TestMetadataNumbers(t *testing.T) {
	uses := NewKey[int]("flint:uses")
	s, err := uses.Set(item.NewStack(item.Apple{}, 1), 0)
	require.NoError(t, err)
	// Zero is a value, not an absent one.
	v, ok := uses.Get(s)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	s, err = uses.Set(s, 42)
	require.NoError(t, err)
	v, _ = uses.Get(s)
	assert.Equal(t, 42, v)
}

type Binding struct {
	Graph string
	Level int
}

func TestCodecKey(t *testing.T) {
	c, err := ecs.NewCodec[Binding]().
		RequiredField("graph", "Graph").
		Field("level", "Level").
		Build()
	require.NoError(t, err)
	key := NewCodecKey[Binding]("flint:binding", c)

	b, err := Meta(New(item.Apple{}), key, Binding{Graph: "fireball", Level: 2}).Build()
	require.NoError(t, err)

	got, err := key.Require(b)
	require.NoError(t, err)
	assert.Equal(t, Binding{Graph: "fireball", Level: 2}, got)
}
