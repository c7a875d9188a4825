package nbtconv

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y   int
	Label  string
	hidden int
}

func TestNormalize(t *testing.T) {
	v, err := Normalize(true)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)

	v, err = Normalize(uint32(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = Normalize(point{X: 1, Y: 2, hidden: 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"X": int64(1), "Y": int64(2), "Label": ""}, v)

	v, err = Normalize((*point)(nil))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Normalize(map[int]string{1: "a"})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = Normalize(make(chan int))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Empty(nil))
	assert.True(t, Empty(""))
	assert.True(t, Empty([]any{}))
	assert.True(t, Empty(map[string]any{}))
	assert.False(t, Empty(int64(0)))
	assert.False(t, Empty("x"))
}

func TestMarshalRoundTrip(t *testing.T) {
	in, err := Normalize(map[string]any{"name": "wand", "uses": 3, "tags": []string{"a", "b"}})
	require.NoError(t, err)

	b, err := Marshal(in.(map[string]any))
	require.NoError(t, err)
	out, err := Unmarshal(b)
	require.NoError(t, err)

	var dst struct {
		Name string   `nbt:"name"`
		Uses int      `nbt:"uses"`
		Tags []string `nbt:"tags"`
	}
	rv := reflect.ValueOf(&dst).Elem()
	require.NoError(t, Assign(rv.Field(0), out["name"]))
	require.NoError(t, Assign(rv.Field(1), out["uses"]))
	require.NoError(t, Assign(rv.Field(2), out["tags"]))
	assert.Equal(t, "wand", dst.Name)
	assert.Equal(t, 3, dst.Uses)
	assert.Equal(t, []string{"a", "b"}, dst.Tags)
}

func TestAssignMismatch(t *testing.T) {
	var n int
	assert.Error(t, Assign(reflect.ValueOf(&n).Elem(), "three"))

	var s string
	assert.Error(t, Assign(reflect.ValueOf(&s).Elem(), int64(3)))

	var arr [1]int
	assert.Error(t, Assign(reflect.ValueOf(&arr).Elem(), []any{int64(1), int64(2)}))
}

func TestNormalizeRejectsLossyValues(t *testing.T) {
	_, err := Normalize([]*point{{X: 1}, nil})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Normalize(uint64(1) << 63)
	assert.ErrorIs(t, err, ErrUnsupported)

	v, err := Normalize(uint64(1)<<63 - 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<63-1), v)
}
