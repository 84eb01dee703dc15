// Package transport implements the frame reader and connection manager
// (spec.md §4.3, §4.6): turning a raw byte stream into a sequence of
// (packet_id, inner_bytes) pairs, and owning the socket's read/write
// lifecycle. It generalizes the teacher's accept-loop/shutdown-channel
// idiom (internal/server/server.go) from a listening server to a single
// outbound client connection, and its buffer-then-parse idiom
// (internal/protocol/handler.go's `buffer := make([]byte, 4096)`) into a
// persistent per-connection loop.
package transport

import (
	"bytes"
	"encoding/binary"
	"io"

	"reborn-client/internal/codec"
	"reborn-client/internal/rerrors"
)

// InnerPacket is what the frame reader hands to the dispatcher for each
// newline-delimited segment of a decoded outer frame.
type InnerPacket struct {
	ID            int
	Payload       []byte
	AnnouncedSize int
}

// RawDataSink receives completed raw-data blobs (spec.md §4.3 step 4,
// §4.5): the reader hands off accumulated bytes once expected_remaining
// reaches zero.
type RawDataSink func(chunk []byte)

// FrameReader implements the single-threaded, cooperative algorithm in
// spec.md §4.3. It is driven by repeated calls to ReadFrame, each of
// which performs exactly one blocking read cycle (2-byte length, then
// payload) and emits zero or more InnerPacket values via the dispatch
// callback.
type FrameReader struct {
	r        io.Reader
	c        codec.Codec
	dispatch func(InnerPacket)
	rawSink  RawDataSink

	rawMode      bool
	rawRemaining int
	rawBuffer    []byte
	leftover     []byte
}

func NewFrameReader(r io.Reader, c codec.Codec, dispatch func(InnerPacket), rawSink RawDataSink) *FrameReader {
	return &FrameReader{r: r, c: c, dispatch: dispatch, rawSink: rawSink}
}

// EnterRawDataMode transitions into raw-data mode for the announced byte
// count (spec.md §4.3 step 6). splitAndDispatch calls it itself on
// packet_id=100; callers may also call it directly.
func (fr *FrameReader) EnterRawDataMode(expected int) {
	fr.rawMode = true
	fr.rawRemaining = expected
	fr.rawBuffer = fr.rawBuffer[:0]
}

// ReadFrame performs one read cycle: 2-byte length, then that many
// payload bytes, decodes via the codec, and dispatches the resulting
// inner packets (spec.md §4.3 steps 1-6).
func (fr *FrameReader) ReadFrame() error {
	var lenBuf [2]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return rerrors.Wrap(rerrors.Transport, "transport.ReadFrame", err)
	}
	length := binary.BigEndian.Uint16(lenBuf[:])

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return rerrors.Wrap(rerrors.Transport, "transport.ReadFrame", err)
	}

	plain, err := fr.c.DecodePacket(payload)
	if err != nil {
		// Decode errors are non-fatal: skip this frame, keep reading
		// (spec.md §4.2 "Decode failure policy", §7 Decode kind).
		return nil
	}

	fr.process(plain)
	return nil
}

func (fr *FrameReader) process(plain []byte) {
	if fr.rawMode {
		take := fr.rawRemaining
		if take > len(plain) {
			take = len(plain)
		}
		fr.rawBuffer = append(fr.rawBuffer, plain[:take]...)
		fr.rawRemaining -= take
		plain = plain[take:]

		if fr.rawRemaining <= 0 {
			if fr.rawSink != nil {
				fr.rawSink(fr.rawBuffer)
			}
			fr.rawMode = false
			fr.rawBuffer = nil
		} else {
			// Still waiting on more raw bytes; nothing left in this
			// frame to split on newlines.
			return
		}
	}

	fr.splitAndDispatch(plain)
}

// splitAndDispatch implements step 5: split P on '\n', each segment's
// first byte minus 32 is packet_id, the rest is the inner payload.
func (fr *FrameReader) splitAndDispatch(p []byte) {
	for _, segment := range bytes.Split(p, []byte{'\n'}) {
		if len(segment) == 0 {
			continue
		}
		id := int(segment[0]) - 32
		inner := segment[1:]

		announced := 0
		if id == 100 && len(inner) >= 3 {
			announced = int(inner[0]-32)<<14 | int(inner[1]-32)<<7 | int(inner[2]-32)
			fr.EnterRawDataMode(announced)
		}

		if fr.dispatch != nil {
			fr.dispatch(InnerPacket{ID: id, Payload: inner, AnnouncedSize: announced})
		}
	}
}
