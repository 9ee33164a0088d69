package audit

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how the SQLite store encodes payload blobs.
type Compression string

const (
	CompressionZstd Compression = "zstd"
	CompressionNone Compression = "none"
)

// ParseCompression returns the named compression. Empty selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(name))) {
	case "", CompressionZstd:
		return CompressionZstd, nil
	case CompressionNone:
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want zstd or none)", name)
	}
}

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("audit: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("audit: zstd decoder initialization failed: " + err.Error())
	}
}

// compress encodes data. Payloads that zstd cannot shrink are stored as-is
// and reported with CompressionNone.
func compress(data []byte, c Compression) ([]byte, Compression) {
	if c != CompressionZstd {
		return data, CompressionNone
	}
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return data, CompressionNone
	}
	return out, CompressionZstd
}

func decompress(data []byte, c Compression, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, want %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", c)
	}
}
