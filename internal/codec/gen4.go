package codec

// gen4Codec implements ENCRYPT_GEN_4 (clients 2.19-2.21): bzip2
// compression always, cipher applied under the BZ2 limit, no
// compression-type byte on the wire (spec.md §4.2 table). Ported from
// the source's Gen4Codec.
type gen4Codec struct {
	in, out *Cipher
	// firstInboundPending mirrors spec.md §3's CodecState flag: the
	// first inbound frame after login is always plain zlib, never
	// ciphered, regardless of generation.
	firstInboundPending bool
}

func (c *gen4Codec) EncodePacket(plaintext []byte) ([]byte, error) {
	compressed, err := bzip2Compress(plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(compressed))
	copy(out, compressed)
	c.out.SetLimit(CompressionBZ2)
	c.out.Apply(out)
	return out, nil
}

func (c *gen4Codec) DecodePacket(payload []byte) ([]byte, error) {
	if c.firstInboundPending {
		if plain, err := zlibDecompress(payload); err == nil {
			c.firstInboundPending = false
			return plain, nil
		}
		// Decompression failed: fall through to the generation-specific
		// path per spec.md §4.2.
	}

	decrypted := make([]byte, len(payload))
	copy(decrypted, payload)
	c.in.SetLimit(CompressionBZ2)
	c.in.Apply(decrypted)

	plain, err := bzip2Decompress(decrypted)
	if err != nil {
		return nil, newDecodeError(payload, StageDecompress, err)
	}
	c.firstInboundPending = false
	return plain, nil
}
