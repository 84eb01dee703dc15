// Package login builds the bit-exact login frame (spec.md §6.1): the
// first thing sent on a new connection, before any packet registry or
// dispatcher machinery is in play.
package login

import "strings"

// Params supplies the per-generation fields spec.md §6.1 names.
type Params struct {
	ClientType            int
	EncryptionSeed        byte
	ProtocolVersionString string // exactly 8 ASCII bytes
	Account               string
	Password              string
	Build                 string
	SendsBuild            bool
	VersionID             int // used to pick the gen-5 client_info variant
	Generation            int
}

func gchar(v int) byte { return byte(v + 32) }

func lengthPrefixed(buf []byte, s string) []byte {
	buf = append(buf, gchar(len(s)))
	return append(buf, s...)
}

// clientInfo returns the comma-separated cosmetic identity string
// (spec.md §6.1): "linux,,,,,PyReborn" for gen-5 with version_id >= 19,
// "PC,,,,,PyReborn" otherwise. The client identity is cosmetic for the
// server, so this engine doesn't try to report real host fingerprints.
func clientInfo(p Params) string {
	if p.Generation == 5 && p.VersionID >= 19 {
		return "linux,,,,,PyReborn"
	}
	return "PC,,,,,PyReborn"
}

// Build constructs the plaintext login frame body, ready for the caller
// to zlib-compress and length-prefix before sending (spec.md §4.6:
// "unencrypted but zlib-compressed with a 2-byte length prefix").
func Build(p Params) []byte {
	var buf []byte
	buf = append(buf, gchar(p.ClientType))
	buf = append(buf, gchar(int(p.EncryptionSeed)))

	version := p.ProtocolVersionString
	if len(version) < 8 {
		version = version + strings.Repeat("\x00", 8-len(version))
	} else if len(version) > 8 {
		version = version[:8]
	}
	buf = append(buf, version...)

	buf = lengthPrefixed(buf, p.Account)
	buf = lengthPrefixed(buf, p.Password)
	if p.SendsBuild {
		buf = lengthPrefixed(buf, p.Build)
	}
	buf = append(buf, clientInfo(p)...)

	return buf
}
