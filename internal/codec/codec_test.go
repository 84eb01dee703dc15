package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reborn-client/internal/rerrors"
)

func TestGen3Unsupported(t *testing.T) {
	_, err := New(Gen3, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, rerrors.ErrUnsupportedGeneration)
}

func TestRoundTripGen1(t *testing.T) {
	c, err := New(Gen1, 7)
	require.NoError(t, err)
	roundTrip(t, c, []byte("PLO_SIGNATURE payload"))
}

func TestRoundTripGen2(t *testing.T) {
	c, err := New(Gen2, 7)
	require.NoError(t, err)
	roundTrip(t, c, []byte("some inner packets\nseparated by newline"))
}

func TestRoundTripGen4(t *testing.T) {
	c, err := New(Gen4, 42)
	require.NoError(t, err)
	cc := c.(*gen4Codec)
	cc.firstInboundPending = false // isolate the steady-state path
	roundTrip(t, c, make([]byte, 500))
}

func TestRoundTripGen5SmallUncompressed(t *testing.T) {
	c, err := New(Gen5, 42)
	require.NoError(t, err)
	cc := c.(*gen5Codec)
	cc.firstInboundPending = false
	plain := []byte("short")
	assert.LessOrEqual(t, len(plain), 55)
	roundTrip(t, c, plain)
}

func TestRoundTripGen5Zlib(t *testing.T) {
	c, err := New(Gen5, 99)
	require.NoError(t, err)
	cc := c.(*gen5Codec)
	cc.firstInboundPending = false
	plain := make([]byte, 500)
	for i := range plain {
		plain[i] = byte(i)
	}
	roundTrip(t, c, plain)
}

func TestRoundTripGen5BZ2(t *testing.T) {
	c, err := New(Gen5, 99)
	require.NoError(t, err)
	cc := c.(*gen5Codec)
	cc.firstInboundPending = false
	plain := make([]byte, 9000)
	for i := range plain {
		plain[i] = byte(i * 7)
	}
	roundTrip(t, c, plain)
}

func TestGen5FirstInboundFramePlainZlib(t *testing.T) {
	enc, err := New(Gen2, 0) // gen2 is always plain zlib, a convenient stand-in
	require.NoError(t, err)
	wire, err := enc.EncodePacket([]byte("PLO_SIGNATURE"))
	require.NoError(t, err)

	dec, err := New(Gen5, 55)
	require.NoError(t, err)
	plain, err := dec.DecodePacket(wire)
	require.NoError(t, err)
	assert.Equal(t, []byte("PLO_SIGNATURE"), plain)
	assert.False(t, dec.(*gen5Codec).firstInboundPending)
}

func TestGen5InvalidCompressionType(t *testing.T) {
	c, err := New(Gen5, 1)
	require.NoError(t, err)
	cc := c.(*gen5Codec)
	cc.firstInboundPending = false
	_, err = c.DecodePacket([]byte{0x09, 0x01, 0x02})
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, StageUnknownType, de.Stage)
}

func TestSelectCompressionThresholds(t *testing.T) {
	assert.Equal(t, CompressionUncompressed, SelectCompression(make([]byte, 55)))
	assert.Equal(t, CompressionZlib, SelectCompression(make([]byte, 56)))
	assert.Equal(t, CompressionZlib, SelectCompression(make([]byte, 0x2000)))
	assert.Equal(t, CompressionBZ2, SelectCompression(make([]byte, 0x2001)))
}

func TestCipherIteratorAdvancesByProcessedBytes(t *testing.T) {
	c := NewCipher(3)
	c.SetLimit(CompressionZlib) // limit 4, per cipherLimits
	buf := make([]byte, 10)
	c.Apply(buf)
	assert.Equal(t, uint64(4), c.Iterator())
}

func roundTrip(t *testing.T, c Codec, plain []byte) {
	t.Helper()
	wire, err := c.EncodePacket(plain)
	require.NoError(t, err)
	got, err := c.DecodePacket(wire)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}
