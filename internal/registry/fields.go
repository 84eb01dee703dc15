// Package registry implements the declarative packet registry and the
// generic field-by-field decoder described in spec.md §4.4, plus the
// PLO_PLAYERPROPS sequential sub-parser (§4.4.1). It is grounded on
// pyreborn/packets/base.py (PacketFieldType, PacketReader, parse_field)
// and pyreborn/packets/incoming/packet_index.py (the built-in id table),
// generalizing the teacher's cursor-based binary.Read/bytes.Reader idiom
// from fixed little-endian structs to the bias-encoded variable-width
// GCHAR/GSHORT/GINT3-5 scheme.
package registry

import "strings"

// FieldKind enumerates the wire encodings a field can use (spec.md §3
// FieldSpec kinds table).
type FieldKind int

const (
	Byte FieldKind = iota
	GChar
	GShort
	GInt3
	GInt4
	GInt5
	StringLen
	StringGCharLen
	FixedData
	VariableData
	AnnouncedData
	Coordinate
)

// FieldSpec describes one field within a PacketStructure.
type FieldSpec struct {
	Name string
	Kind FieldKind
	// Size is only meaningful for FixedData.
	Size int
}

func Field(name string, kind FieldKind) FieldSpec { return FieldSpec{Name: name, Kind: kind} }

func FixedField(name string, size int) FieldSpec {
	return FieldSpec{Name: name, Kind: FixedData, Size: size}
}

// fixedWidth returns the wire width of a fixed-size field kind, or -1 if
// the kind has variable width.
func fixedWidth(k FieldKind) int {
	switch k {
	case Byte, GChar, Coordinate:
		return 1
	case GShort:
		return 2
	case GInt3:
		return 3
	case GInt4:
		return 4
	case GInt5:
		return 5
	default:
		return -1
	}
}

// Cursor reads protocol-encoded fields out of an inner-packet byte slice,
// following pyreborn/packets/base.py's PacketReader exactly: every
// multi-byte integer is biased by -32 per byte and combined 7 bits at a
// time, big-endian; out-of-range reads return the zero value rather than
// erroring, matching the source's tolerant behavior (spec.md's Parse
// error policy: log once, continue with what's available).
type Cursor struct {
	data []byte
	pos  int
}

func NewCursor(data []byte) *Cursor { return &Cursor{data: data} }

func (c *Cursor) BytesLeft() int { return len(c.data) - c.pos }

func (c *Cursor) HasData() bool { return c.pos < len(c.data) }

func (c *Cursor) ReadByte() byte {
	if c.pos >= len(c.data) {
		return 0
	}
	v := c.data[c.pos]
	c.pos++
	return v
}

// ReadGChar reads one GCHAR: byte - 32, floored at 0.
func (c *Cursor) ReadGChar() int {
	v := int(c.ReadByte()) - 32
	if v < 0 {
		return 0
	}
	return v
}

// ReadGShort reads a 2-byte GSHORT: each byte -32, combined as
// (b1<<7)|b2, with signed overflow wrapping at 16384 (spec.md §3).
func (c *Cursor) ReadGShort() int {
	if c.pos+1 >= len(c.data) {
		c.pos = len(c.data)
		return 0
	}
	b1 := int(c.data[c.pos]) - 32
	b2 := int(c.data[c.pos+1]) - 32
	c.pos += 2
	v := (b1 << 7) + b2
	if v > 16383 {
		v -= 32768
	}
	return v
}

// ReadGInt reads an n-byte protocol integer: each byte -32, combined 7
// bits at a time, big-endian (used for GINT3/4/5).
func (c *Cursor) ReadGInt(n int) int {
	if c.pos+n-1 >= len(c.data) {
		c.pos = len(c.data)
		return 0
	}
	v := 0
	for i := 0; i < n; i++ {
		b := int(c.data[c.pos+i]) - 32
		v = (v << 7) | b
	}
	c.pos += n
	return v
}

func (c *Cursor) ReadGInt3() int { return c.ReadGInt(3) }
func (c *Cursor) ReadGInt4() int { return c.ReadGInt(4) }
func (c *Cursor) ReadGInt5() int { return c.ReadGInt(5) }

// ReadString reads a raw-length-prefixed string (1 byte length, UTF-8
// with replacement on invalid sequences).
func (c *Cursor) ReadString() string {
	length := int(c.ReadByte())
	return c.readStringBody(length)
}

// ReadGString reads a GCHAR-length-prefixed string.
func (c *Cursor) ReadGString() string {
	length := c.ReadGChar()
	return c.readStringBody(length)
}

func (c *Cursor) readStringBody(length int) string {
	if length <= 0 || c.pos+length > len(c.data) {
		return ""
	}
	raw := c.data[c.pos : c.pos+length]
	c.pos += length
	return strings.ToValidUTF8(string(raw), "�")
}

// ReadBytes reads count raw bytes, truncating at the buffer end rather
// than erroring.
func (c *Cursor) ReadBytes(count int) []byte {
	if c.pos+count > len(c.data) {
		count = len(c.data) - c.pos
	}
	if count < 0 {
		count = 0
	}
	out := make([]byte, count)
	copy(out, c.data[c.pos:c.pos+count])
	c.pos += count
	return out
}

// ReadRemaining consumes and returns every byte left in the cursor.
func (c *Cursor) ReadRemaining() []byte {
	out := c.ReadBytes(c.BytesLeft())
	return out
}

// ReadCoordinate reads a GCHAR and divides by 8.0, yielding a tile
// position (spec.md §3, COORDINATE kind).
func (c *Cursor) ReadCoordinate() float64 {
	return float64(c.ReadGChar()) / 8.0
}

// ParseField dispatches a single FieldSpec against the cursor.
// announcedSize supplies the byte count for AnnouncedData fields, set by
// the frame reader when it finalizes a raw-data blob (spec.md §4.4).
func ParseField(c *Cursor, spec FieldSpec, announcedSize int) any {
	switch spec.Kind {
	case Byte:
		return c.ReadByte()
	case GChar:
		return c.ReadGChar()
	case GShort:
		return c.ReadGShort()
	case GInt3:
		return c.ReadGInt3()
	case GInt4:
		return c.ReadGInt4()
	case GInt5:
		return c.ReadGInt5()
	case StringLen:
		return c.ReadString()
	case StringGCharLen:
		return c.ReadGString()
	case FixedData:
		return c.ReadBytes(spec.Size)
	case VariableData:
		return c.ReadRemaining()
	case AnnouncedData:
		return c.ReadBytes(announcedSize)
	case Coordinate:
		return c.ReadCoordinate()
	default:
		return nil
	}
}
