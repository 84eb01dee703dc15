package registry

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupFallsBackToOtherContext(t *testing.T) {
	r := New()
	r.Register(&PacketStructure{ID: 64, Name: "PLO_RC_CHAT", Context: ContextRC})

	s, ok := r.Lookup(64, ContextClient)
	require.True(t, ok)
	assert.Equal(t, "PLO_RC_CHAT", s.Name)
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := New()
	r.Register(&PacketStructure{ID: 9, Name: "first"})
	r.Register(&PacketStructure{ID: 9, Name: "second"})

	s, ok := r.Lookup(9, ContextClient)
	require.True(t, ok)
	assert.Equal(t, "second", s.Name)
}

func TestExpectedSizeFixedStructure(t *testing.T) {
	s := &PacketStructure{
		Fields: []FieldSpec{
			Field("id", GInt3),
			Field("x", Coordinate),
			Field("y", Coordinate),
		},
	}
	assert.Equal(t, 5, ExpectedSize(s))
}

func TestExpectedSizeVariableStructure(t *testing.T) {
	s := &PacketStructure{VariableLength: true}
	assert.Equal(t, -1, ExpectedSize(s))
}

func TestNewBuiltinRegistersCoreIDs(t *testing.T) {
	r := NewBuiltin()
	for _, id := range []int{0, 2, 9, 68, 84, 100, 102} {
		_, ok := r.Lookup(id, ContextClient)
		assert.Truef(t, ok, "expected builtin id %d to be registered", id)
	}
}

func TestDecodeAppliesPostParse(t *testing.T) {
	r := NewBuiltin()
	s, ok := r.Lookup(6, ContextClient)
	require.True(t, ok)

	pp := Decode(s, []byte("example.gmap"), 0)
	assert.Equal(t, []string{"GMAP_MODE_ENTERED"}, pp.Events)
	assert.Equal(t, "example.gmap", pp.ParsedData["level_name"])
}

func TestDecodePlayerPropsPostParse(t *testing.T) {
	r := NewBuiltin()
	s, ok := r.Lookup(9, ContextClient)
	require.True(t, ok)

	raw := []byte{byte(3 + 32), byte(0 + 32), byte(0 + 32), byte(100 + 32)}
	pp := Decode(s, raw, 0)
	props, ok := pp.ParsedData["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 100, props["rupees"])
}

func TestDecodeLevelBoardEmptyPayloadIsZeroGrid(t *testing.T) {
	r := NewBuiltin()
	s, ok := r.Lookup(0, ContextClient)
	require.True(t, ok)

	pp := Decode(s, nil, 0)
	tiles, ok := pp.ParsedData["tiles"].([]uint16)
	require.True(t, ok)
	require.Len(t, tiles, 64*64)
	for _, tile := range tiles {
		assert.Zero(t, tile)
	}
}

func TestDecodeLevelBoardDecompressesZlibBeforeTiling(t *testing.T) {
	r := NewBuiltin()
	s, ok := r.Lookup(0, ContextClient)
	require.True(t, ok)

	raw := make([]byte, 64*64*2)
	raw[0], raw[1] = 0x2A, 0x00 // tile 0 = 42, little-endian
	raw[2], raw[3] = 0x01, 0x01 // tile 1 = 0x0101

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	pp := Decode(s, buf.Bytes(), 0)
	tiles, ok := pp.ParsedData["tiles"].([]uint16)
	require.True(t, ok)
	assert.Equal(t, uint16(42), tiles[0])
	assert.Equal(t, uint16(0x0101), tiles[1])
}

func TestFieldCursorGShortSignedOverflow(t *testing.T) {
	c := NewCursor([]byte{255, 255})
	v := c.ReadGShort()
	assert.Less(t, v, 0)
}

func TestFieldCursorGInt3(t *testing.T) {
	c := NewCursor([]byte{32, 32, 33})
	assert.Equal(t, 1, c.ReadGInt3())
}

func TestParsePlayerPropsSwordPowerUsesAdjustedValue(t *testing.T) {
	// propSword=8, sp=35 (>4, custom image path): adjusted sp = 35-30 = 5,
	// followed by a GCHAR-length-prefixed image string "sw.png".
	raw := []byte{byte(8 + 32), byte(35 + 32), byte(6 + 32)}
	raw = append(raw, []byte("sw.png")...)
	props, _ := ParsePlayerProps(raw)
	assert.Equal(t, 5, props["sword_power"])
	assert.Equal(t, "sw.png", props["sword_image"])
}

func TestParsePlayerPropsShieldPowerUsesAdjustedValue(t *testing.T) {
	// propShield=9, sp=14 (>3, custom image path): adjusted sp = 14-10 = 4.
	raw := []byte{byte(9 + 32), byte(14 + 32), byte(2 + 32)}
	raw = append(raw, []byte("sh")...)
	props, _ := ParsePlayerProps(raw)
	assert.Equal(t, 4, props["shield_power"])
	assert.Equal(t, "sh", props["shield_image"])
}

func TestParsePlayerPropsNegativeSwordLengthStops(t *testing.T) {
	raw := []byte{byte(8 + 32), byte(5 + 32)}
	props, events := ParsePlayerProps(raw)
	assert.NotContains(t, props, "sword_image")
	assert.Nil(t, events)
}

func TestParsePlayerPropsGarbledNicknameDiscarded(t *testing.T) {
	garbled := "a b c d e f g h i j k l m n o p" // 31 chars, 16 single-letter tokens
	raw := append([]byte{byte(0 + 32), byte(len(garbled) + 32)}, []byte(garbled)...)
	props, _ := ParsePlayerProps(raw)
	assert.NotContains(t, props, "nickname")
}

func TestParsePlayerPropsBackslashStrip(t *testing.T) {
	raw := []byte{0x5C, byte(3 + 32), byte(0 + 32), byte(0 + 32), byte(42 + 32)}
	props, _ := ParsePlayerProps(raw)
	assert.Equal(t, 10, props["rupees"])
}

func TestParsePlayerPropsLoopGuardStopsAt100(t *testing.T) {
	raw := make([]byte, 0, maxPropsPerPacket*2+10)
	for i := 0; i < maxPropsPerPacket+5; i++ {
		raw = append(raw, byte(90+32), byte(1+32))
	}
	props, _ := ParsePlayerProps(raw)
	assert.LessOrEqual(t, len(props), maxPropsPerPacket)
}
