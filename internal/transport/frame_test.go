package transport

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reborn-client/internal/codec"
)

func frameBytes(t *testing.T, c codec.Codec, plain []byte) []byte {
	t.Helper()
	wire, err := c.EncodePacket(plain)
	require.NoError(t, err)
	var buf bytes.Buffer
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(wire)))
	buf.Write(lenBuf[:])
	buf.Write(wire)
	return buf.Bytes()
}

func TestReadFrameSplitsNewlineDelimitedInnerPackets(t *testing.T) {
	c, err := codec.New(codec.Gen1, 0)
	require.NoError(t, err)

	idByte := byte(9 + 32)
	plain := append([]byte{idByte}, []byte("hello")...)
	plain = append(plain, '\n')
	plain = append(plain, byte(6+32))
	plain = append(plain, []byte("world")...)

	stream := bytes.NewReader(frameBytes(t, c, plain))

	var got []InnerPacket
	fr := NewFrameReader(stream, c, func(ip InnerPacket) { got = append(got, ip) }, nil)
	require.NoError(t, fr.ReadFrame())

	require.Len(t, got, 2)
	assert.Equal(t, 9, got[0].ID)
	assert.Equal(t, "hello", string(got[0].Payload))
	assert.Equal(t, 6, got[1].ID)
	assert.Equal(t, "world", string(got[1].Payload))
}

func TestReadFrameDecodeErrorIsNonFatal(t *testing.T) {
	c, err := codec.New(codec.Gen5, 3)
	require.NoError(t, err)
	// gen5 expects a compression-type byte first; an empty payload after
	// length-prefixing triggers a decode error that ReadFrame should
	// swallow rather than propagate.
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00}) // length 0
	stream := bytes.NewReader(buf.Bytes())

	fr := NewFrameReader(stream, c, func(ip InnerPacket) {}, nil)
	assert.NoError(t, fr.ReadFrame())
}

func TestRawDataModeAccumulatesThenDispatchesRemainder(t *testing.T) {
	c, err := codec.New(codec.Gen1, 0)
	require.NoError(t, err)

	var rawGot []byte
	var got []InnerPacket
	fr := NewFrameReader(nil, c, func(ip InnerPacket) { got = append(got, ip) }, func(chunk []byte) { rawGot = chunk })
	fr.EnterRawDataMode(5)
	fr.process([]byte("abcde" + "rest"))

	assert.Equal(t, []byte("abcde"), rawGot)
	assert.False(t, fr.rawMode)
	require.Len(t, got, 1)
	assert.Equal(t, int('r')-32, got[0].ID)
	assert.Equal(t, "est", string(got[0].Payload))
}
