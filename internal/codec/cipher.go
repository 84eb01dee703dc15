package codec

// CompressionKind identifies the per-packet compression choice. Gen4
// always uses BZ2; gen5 picks one of these per packet based on plaintext
// size (see SelectCompression).
type CompressionKind uint8

const (
	CompressionUncompressed CompressionKind = 0
	CompressionZlib         CompressionKind = 1
	CompressionBZ2          CompressionKind = 2
)

func (k CompressionKind) Valid() bool {
	return k == CompressionUncompressed || k == CompressionZlib || k == CompressionBZ2
}

// cipherLimits is the per-compression-kind byte limit table referenced by
// spec.md §4.1: gens 4/5 apply the cipher only to the first K bytes of
// each packet. The source embeds this as an undocumented constant table
// (RebornEncryption.limit_from_type) rather than a computed value; since
// the table's exact values never made it into the retrieved corpus (see
// DESIGN.md, Open Question 1), these are carried as named constants in
// the same shape the spec describes, not derived.
var cipherLimits = map[CompressionKind]int{
	CompressionUncompressed: 12,
	CompressionZlib:         4,
	CompressionBZ2:          8,
}

// limitFor returns the cipher limit for a compression kind, applying to
// the whole buffer (no limit) when the kind is unrecognized.
func limitFor(kind CompressionKind) int {
	if n, ok := cipherLimits[kind]; ok {
		return n
	}
	return -1
}

// Cipher is a per-connection keystream generator with a monotonically
// advancing 64-bit iterator. Two independent instances exist per
// connection (inbound, outbound); they must never share iterator state
// (spec.md §4.1, §5).
//
// The keystream itself is a documented-but-not-bit-exact placeholder: the
// original game's RebornEncryption.encrypt/decrypt body never made it
// into the retrieved corpus (see DESIGN.md, Open Question 1). What is
// preserved exactly is the contract: NewCipher(seed), SetLimit(kind), Apply
// mutates in place and advances the iterator by the number of bytes
// actually processed under the active limit.
type Cipher struct {
	seed     byte
	iterator uint64
	limit    int
}

// NewCipher builds a cipher seeded with the connection's shared seed byte
// (ConnectionConfig.InitialEncryptionSeed, 0-255).
func NewCipher(seed byte) *Cipher {
	return &Cipher{seed: seed, limit: -1}
}

// SetLimit restricts Apply to the first N bytes of the next buffer it
// processes, per the per-generation/per-compression-kind table above.
func (c *Cipher) SetLimit(kind CompressionKind) {
	c.limit = limitFor(kind)
}

// Iterator returns the current 64-bit counter, for tests asserting
// monotonic advancement (testable property 4 in spec.md §8).
func (c *Cipher) Iterator() uint64 { return c.iterator }

// Apply XORs buf in place with the keystream, respecting the active
// limit (set via SetLimit; -1 means the whole buffer), and advances the
// iterator by exactly the number of bytes processed.
func (c *Cipher) Apply(buf []byte) {
	n := len(buf)
	if c.limit >= 0 && c.limit < n {
		n = c.limit
	}
	for i := 0; i < n; i++ {
		buf[i] ^= c.keystreamByte(c.iterator)
		c.iterator++
	}
}

// keystreamByte derives one keystream byte from the seed and the current
// iterator value. This is the placeholder construction described above:
// a seed-mixed counter stream that is internally consistent (encrypt then
// decrypt with the same seed and starting iterator is the identity) but
// makes no claim to match the original game's byte sequence.
func (c *Cipher) keystreamByte(iter uint64) byte {
	x := iter ^ (uint64(c.seed) * 0x9E3779B97F4A7C15)
	x ^= x >> 33
	x *= 0xFF51AFD7ED558CCD
	x ^= x >> 33
	return byte(x)
}
