package registry

import "strings"

// stringBearingProps is the literal set of property ids whose value is a
// GCHAR-length-prefixed string, carried forward verbatim from
// pyreborn/packets/incoming/core/player_props.py's explicit `if prop_id
// in [...]` list (spec.md §4.4.1, Open Question 2: "treat the source's
// explicit list as canonical"). Properties 83-125 overlap a comment in
// the source claiming they "may contain nested account data";
// isStringBearingProp treats that whole range as string-bearing too.
var stringBearingProps = map[int]bool{
	0: true, 10: true, 12: true, 20: true, 21: true, 34: true, 35: true,
	37: true, 38: true, 39: true, 40: true, 41: true, 46: true, 47: true,
	48: true, 49: true, 52: true, 54: true, 55: true, 56: true, 57: true,
	58: true, 59: true, 60: true, 61: true, 62: true, 63: true, 64: true,
	65: true, 66: true, 67: true, 68: true, 69: true, 70: true, 71: true,
	72: true, 73: true, 74: true, 75: true, 82: true,
}

func isStringBearingProp(id int) bool {
	if stringBearingProps[id] {
		return true
	}
	// Properties 83-125: unknown properties that may nest account data,
	// read as GCHAR-length-prefixed strings (see the doc comment above).
	return id >= 83 && id <= 125
}

const (
	propRupees    = 3
	propSword     = 8
	propShield    = 9
	propHeadImage = 11
	propColors    = 13
	propOldX      = 15
	propOldY      = 16
	propPixelX    = 78
	propPixelY    = 79
	propPixelZ    = 80

	maxPropID         = 125
	maxPropsPerPacket = 100 // loop guard: stop after 100 properties
)

// ParsePlayerProps implements the PLO_PLAYERPROPS / PLO_OTHERPLPROPS
// sequential sub-parser (spec.md §4.4.1), grounded directly on
// pyreborn/packets/incoming/core/player_props.py's `parse` function: walk
// (prop_id_byte - 32, value) pairs until the buffer is exhausted,
// dispatching each id to its documented wire format.
func ParsePlayerProps(raw []byte) (properties map[string]any, events []string) {
	properties = make(map[string]any)

	// Server bug workaround: a leading backslash (0x5C) sometimes
	// corrupts the property stream (spec.md testable property 9).
	if len(raw) > 0 && raw[0] == 0x5C {
		raw = raw[1:]
	}

	var positionChanged, nicknameChanged, healthChanged, spriteChanged bool

	c := NewCursor(raw)
	count := 0
	for c.HasData() && count < maxPropsPerPacket {
		count++
		propID := c.ReadGChar()
		if propID < 0 || propID > maxPropID {
			break
		}

		switch {
		case isStringBearingProp(propID):
			val := c.ReadGString()
			switch propID {
			case 0:
				if isPlausibleNickname(val) {
					properties["nickname"] = val
					nicknameChanged = true
				}
			case 34:
				properties["account"] = val
			default:
				properties[propName(propID)] = val
			}

		case propID == propRupees:
			properties["rupees"] = c.ReadGInt3()

		case propID == propSword:
			sp := c.ReadGChar()
			if sp > 4 {
				sp -= 30
				if sp < 0 {
					// Negative-length compatibility quirk: stop parsing
					// entirely (spec.md §4.4.1).
					return properties, buildEvents(positionChanged, nicknameChanged, healthChanged, spriteChanged)
				}
				properties["sword_image"] = c.ReadGString()
			}
			properties["sword_power"] = sp
			spriteChanged = true

		case propID == propShield:
			sp := c.ReadGChar()
			if sp > 3 {
				sp -= 10
				if sp < 0 {
					return properties, buildEvents(positionChanged, nicknameChanged, healthChanged, spriteChanged)
				}
				properties["shield_image"] = c.ReadGString()
			}
			properties["shield_power"] = sp
			spriteChanged = true

		case propID == propHeadImage:
			n := c.ReadGChar()
			if n < 100 {
				properties["head_image"] = headImageName(n)
			} else {
				properties["head_image"] = c.readStringBody(n - 100)
			}
			spriteChanged = true

		case propID == propColors:
			colors := make([]int, 5)
			for i := range colors {
				colors[i] = c.ReadGChar()
			}
			properties["colors"] = colors

		case propID == propOldX:
			properties["old_x"] = float64(c.ReadGChar()) / 2.0
			positionChanged = true

		case propID == propOldY:
			properties["old_y"] = float64(c.ReadGChar()) / 2.0
			positionChanged = true

		case propID == propPixelX:
			properties["pixelx"] = decodePixelCoordinate(c.ReadGShort())
			positionChanged = true

		case propID == propPixelY:
			properties["pixely"] = decodePixelCoordinate(c.ReadGShort())
			positionChanged = true

		case propID == propPixelZ:
			zRaw := c.ReadGShort()
			properties["pixelz"] = float64(zRaw>>1) / 16.0
			positionChanged = true

		default:
			properties[propName(propID)] = c.ReadGChar()
		}
	}

	return properties, buildEvents(positionChanged, nicknameChanged, healthChanged, spriteChanged)
}

// decodePixelCoordinate implements the pixel-x/pixel-y encoding (spec.md
// §4.4.1): low bit is the sign, remaining value is pixels, divided by 16
// for tiles.
func decodePixelCoordinate(raw int) float64 {
	sign := raw & 1
	pixels := raw >> 1
	tiles := float64(pixels) / 16.0
	if sign != 0 {
		tiles = -tiles
	}
	return tiles
}

func headImageName(n int) string {
	return "head" + itoa(n) + ".png"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func propName(id int) string {
	return "prop_" + itoa(id)
}

// isPlausibleNickname guards against the garbled-nickname server bug:
// long strings built mostly of single-letter tokens are discarded rather
// than surfaced as the player's nickname (spec.md §4.4.1 heuristic
// guard).
func isPlausibleNickname(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 30 {
		words := strings.Fields(s)
		singleLetters := 0
		for _, w := range words {
			if len(w) == 1 {
				singleLetters++
			}
		}
		if singleLetters >= 10 {
			return false
		}
	}
	return true
}

func buildEvents(position, nickname, health, sprite bool) []string {
	var events []string
	if position {
		events = append(events, "PLAYER_MOVED")
	}
	if nickname || health || sprite {
		events = append(events, "PLAYER_UPDATE")
	}
	return events
}
