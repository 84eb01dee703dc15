package codec

// gen2Codec implements ENCRYPT_GEN_2: no encryption, zlib compression
// only. Ported directly from the source's Gen2Codec (spec.md §4.2 table).
type gen2Codec struct{}

func (c *gen2Codec) EncodePacket(plaintext []byte) ([]byte, error) {
	return zlibCompress(plaintext)
}

func (c *gen2Codec) DecodePacket(payload []byte) ([]byte, error) {
	plain, err := zlibDecompress(payload)
	if err != nil {
		return nil, newDecodeError(payload, StageDecompress, err)
	}
	return plain, nil
}
