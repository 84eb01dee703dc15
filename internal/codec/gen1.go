package codec

// gen1Codec implements ENCRYPT_GEN_1: no encryption, no compression. Used
// by web clients. Ported directly from the source's Gen1Codec, which is
// the identity function in both directions (spec.md §4.2 table).
type gen1Codec struct{}

func (c *gen1Codec) EncodePacket(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

func (c *gen1Codec) DecodePacket(payload []byte) ([]byte, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
