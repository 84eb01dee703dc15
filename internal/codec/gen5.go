package codec

// gen5Codec implements ENCRYPT_GEN_5 (clients 2.22+): dynamic compression
// selection by payload size, a leading compression-type byte, cipher
// applied under that type's limit (spec.md §4.2 table, §4.1). Ported from
// the source's Gen5Codec.
type gen5Codec struct {
	in, out             *Cipher
	firstInboundPending bool
}

func (c *gen5Codec) EncodePacket(plaintext []byte) ([]byte, error) {
	kind := SelectCompression(plaintext)
	compressed, err := compressFor(kind, plaintext)
	if err != nil {
		return nil, err
	}

	encrypted := make([]byte, len(compressed))
	copy(encrypted, compressed)
	c.out.SetLimit(kind)
	c.out.Apply(encrypted)

	packet := make([]byte, 1+len(encrypted))
	packet[0] = byte(kind)
	copy(packet[1:], encrypted)
	return packet, nil
}

func (c *gen5Codec) DecodePacket(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, newDecodeError(payload, StageDecompress, errInvalidCompressionType)
	}

	if c.firstInboundPending {
		if plain, err := zlibDecompress(payload); err == nil {
			c.firstInboundPending = false
			return plain, nil
		}
		// Fall through: first frame wasn't plain zlib after all.
	}

	kind := CompressionKind(payload[0])
	if !kind.Valid() {
		return nil, newDecodeError(payload, StageUnknownType, errInvalidCompressionType)
	}

	body := payload[1:]
	decrypted := make([]byte, len(body))
	copy(decrypted, body)
	c.in.SetLimit(kind)
	c.in.Apply(decrypted)

	plain, err := decompressFor(kind, decrypted)
	if err != nil {
		return nil, newDecodeError(payload, StageDecompress, err)
	}
	c.firstInboundPending = false
	return plain, nil
}
