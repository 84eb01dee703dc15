package codec

import (
	"bytes"
	"io"

	dbzip2 "github.com/dsnet/compress/bzip2"
	kzlib "github.com/klauspost/compress/zlib"
)

// zlibCompress and zlibDecompress wrap klauspost/compress's zlib (the
// bzip2 path below uses a different module, dsnet/compress).
func zlibCompress(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := kzlib.NewWriterLevel(&buf, kzlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zlibDecompress(compressed []byte) ([]byte, error) {
	r, err := kzlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// bzip2Compress and bzip2Decompress use dsnet/compress/bzip2 because Go's
// standard library compress/bzip2 package is decode-only; gen4 always
// needs bzip2 compression and gen5 needs it for payloads over 8KB, so a
// compression-capable bzip2 implementation is required, not optional.
func bzip2Compress(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := dbzip2.NewWriter(&buf, &dbzip2.WriterConfig{Level: dbzip2.DefaultCompression})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bzip2Decompress(compressed []byte) ([]byte, error) {
	r, err := dbzip2.NewReader(bytes.NewReader(compressed), nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// SelectCompression implements the gen-5 compression-selection rule from
// spec.md §4.2: small packets travel uncompressed, large ones use bzip2,
// everything in between uses zlib.
func SelectCompression(plaintext []byte) CompressionKind {
	switch n := len(plaintext); {
	case n <= 55:
		return CompressionUncompressed
	case n > 0x2000:
		return CompressionBZ2
	default:
		return CompressionZlib
	}
}

func compressFor(kind CompressionKind, plain []byte) ([]byte, error) {
	switch kind {
	case CompressionUncompressed:
		return plain, nil
	case CompressionZlib:
		return zlibCompress(plain)
	case CompressionBZ2:
		return bzip2Compress(plain)
	default:
		return nil, errInvalidCompressionType
	}
}

func decompressFor(kind CompressionKind, data []byte) ([]byte, error) {
	switch kind {
	case CompressionUncompressed:
		return data, nil
	case CompressionZlib:
		return zlibDecompress(data)
	case CompressionBZ2:
		return bzip2Decompress(data)
	default:
		return nil, errInvalidCompressionType
	}
}
