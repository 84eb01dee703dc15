// Package outbound builds the short byte sequences the client sends to
// the server (spec.md §4.8). Fields mirror the inbound field kinds (GCHAR
// is value + 32); the packet id itself is sent as a raw byte, not biased
// by 32 — the outbound writer convention differs from the inbound
// reader's -32 convention (DESIGN.md, Open Question 3).
package outbound

// PLIMove is packet id 35 (spec.md §6.2).
const PLIMove = 35

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func gchar(v int) byte { return byte(v + 32) }

// Move builds PLI_MOVE: x/y in half-tiles (0..127), direction (0..3),
// animation frame (clamped so that the byte after the +32 bias stays
// within 0..255, i.e. 0..223 before the bias), each clamped to its
// inbound domain (spec.md §6.2).
func Move(x, y, direction, animation int) []byte {
	x = clamp(x, 0, 127)
	y = clamp(y, 0, 127)
	direction = clamp(direction, 0, 3)
	animation = clamp(animation, 0, 255-32)

	return []byte{
		byte(PLIMove),
		gchar(x),
		gchar(y),
		gchar(direction),
		gchar(animation),
	}
}
