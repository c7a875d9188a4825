package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Profile struct {
	Name   string
	Level  int
	Speed  float32
	Flying bool
	Tags   []string
}

func profileCodec(t *testing.T) *Codec[Profile] {
	c, err := NewCodec[Profile]().
		RequiredField("name", "Name").
		Field("level", "Level").
		Field("speed", "Speed").
		Field("flying", "Flying").
		Field("tags", "Tags").
		Build()
	require.NoError(t, err)
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	c := profileCodec(t)

	in := &Profile{Name: "steve", Level: 12, Speed: 0.25, Flying: true, Tags: []string{"vip", "builder"}}
	b, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(b, Profile{})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCodecOptionalFieldsKeepDefaults(t *testing.T) {
	c := profileCodec(t)

	out, err := c.DecodeMap(map[string]any{"name": "alex"}, Profile{Level: 1, Speed: 0.1})
	require.NoError(t, err)
	assert.Equal(t, &Profile{Name: "alex", Level: 1, Speed: 0.1}, out)
}

func TestCodecRequiredFieldMissing(t *testing.T) {
	c := profileCodec(t)

	_, err := c.DecodeMap(map[string]any{"level": int32(3)}, Profile{})
	require.ErrorIs(t, err, ErrFieldMissing)
	assert.Contains(t, err.Error(), `"name"`)
}

func TestCodecConvertsDecodedWidths(t *testing.T) {
	c := profileCodec(t)

	out, err := c.DecodeMap(map[string]any{
		"name":   "x",
		"level":  int32(7),
		"flying": uint8(1),
		"tags":   []any{"a"},
	}, Profile{})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Level)
	assert.True(t, out.Flying)
	assert.Equal(t, []string{"a"}, out.Tags)

	_, err = c.DecodeMap(map[string]any{"name": int32(1)}, Profile{})
	assert.Error(t, err)
}

func TestCodecEncodeOmitsEmptyOptionalFields(t *testing.T) {
	c := profileCodec(t)

	m, err := c.EncodeMap(&Profile{Name: ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "", "level": int64(0), "speed": float32(0), "flying": uint8(0)}, m)
}

func TestCodecBuildValidation(t *testing.T) {
	_, err := NewCodec[Profile]().Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewCodec[Profile]().Field("a", "Name").Field("a", "Level").Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewCodec[Profile]().Field("a", "Missing").Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewCodec[int]().Field("a", "A").Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

type Inventory struct {
	Items []string
}

func TestCodecRequiredNilFailsEncode(t *testing.T) {
	c, err := NewCodec[Inventory]().RequiredField("items", "Items").Build()
	require.NoError(t, err)

	_, err = c.EncodeMap(&Inventory{})
	require.ErrorIs(t, err, ErrFieldMissing)
	assert.Contains(t, err.Error(), `"items"`)

	b, err := c.Encode(&Inventory{Items: []string{"sword"}})
	require.NoError(t, err)
	out, err := c.Decode(b, Inventory{})
	require.NoError(t, err)
	assert.Equal(t, []string{"sword"}, out.Items)
}
