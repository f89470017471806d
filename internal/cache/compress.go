package cache

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// payloadCompressor holds the process-wide zstd encoder/decoder pair.
// Both are safe for concurrent use and expensive to construct, so they
// are built once and shared across every Cache in the process.
var payloadCompressor = newCompressor()

type compressor struct {
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newCompressor() *compressor {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("cache: zstd encoder: %v", err))
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("cache: zstd decoder: %v", err))
	}
	return &compressor{enc: enc, dec: dec}
}

// compress archives payload bytes for storage. The artifact store keeps
// payloads indefinitely until collected, so shrinking them on disk is
// worth the CPU cost.
func compress(payload []byte) []byte {
	payloadCompressor.mu.Lock()
	defer payloadCompressor.mu.Unlock()
	return payloadCompressor.enc.EncodeAll(payload, nil)
}

// decompress restores payload bytes written by compress.
func decompress(stored []byte) ([]byte, error) {
	payloadCompressor.mu.Lock()
	defer payloadCompressor.mu.Unlock()
	return payloadCompressor.dec.DecodeAll(stored, nil)
}
