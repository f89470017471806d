package eventlog

import (
	"encoding/binary"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

const headSuffix = "Head"
const eventPrefix = "E:"

// eventKey builds the storage key for a single event record: stream prefix
// + "E:" + big-endian u64 sequence, per spec section 6.
func eventKey(stream ids.StreamIdentity, sequence uint64) []byte {
	k := stream.ToStreamKey()
	k = append(k, eventPrefix...)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], sequence)
	return append(k, seqBuf[:]...)
}

// headKey builds the storage key for a stream's head record.
func headKey(stream ids.StreamIdentity) []byte {
	return append(stream.ToStreamKey(), headSuffix...)
}

// eventRangeStart/End build the [start, end) bounds for iterating every
// event at or after fromSequence within stream.
func eventRangeStart(stream ids.StreamIdentity, fromSequence uint64) []byte {
	return eventKey(stream, fromSequence)
}

func eventRangeEnd(stream ids.StreamIdentity) []byte {
	// "E:" followed by 0xff*8 is above every possible sequence key but
	// still below "Head" and any other non-event suffix lexicographically
	// greater than "E:", since "F" > "E".
	k := stream.ToStreamKey()
	k = append(k, eventPrefix...)
	for i := 0; i < 8; i++ {
		k = append(k, 0xff)
	}
	return append(k, 0x00)
}
