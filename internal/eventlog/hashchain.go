package eventlog

import (
	sha256 "github.com/minio/sha256-simd"
)

// computeHash recomputes the chain hash for an envelope whose PreviousHash
// and Payload are already set, using codec c's preimage framing. Hash
// itself is excluded from the preimage, matching spec section 4.1.
func computeHash(c Codec, e Envelope) ([32]byte, error) {
	pre, err := c.MarshalPreimage(e.SchemaVersion, e.Sequence, e.Tick, e.PreviousHash, e.Payload)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(pre), nil
}
