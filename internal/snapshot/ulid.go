package snapshot

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Snapshot ids are ULIDs: 26 Crockford base32 characters, a 48-bit
// millisecond timestamp followed by 80 bits of which the first 16 are a
// per-millisecond sequence and the rest random.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewID returns a new, time-ordered snapshot id.
func NewID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	seq := nextSeq(ts)

	var b [16]byte
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)

	return encodeULID(b)
}

// nextSeq returns the sequence number for an id minted at ts. ulidMu must
// be held. The sequence wraps to zero after 65536 ids in one millisecond;
// ids stay distinct through the 64 random bits that follow it, but lose
// strict ordering within that millisecond.
func nextSeq(ts uint64) uint16 {
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}
	return lastSeq
}

// encodeULID writes the 128 bits as 26 base32 digits, most significant
// first. The leading digit carries only 3 bits.
func encodeULID(b [16]byte) string {
	var hi, lo uint64
	hi = binary.BigEndian.Uint64(b[:8])
	lo = binary.BigEndian.Uint64(b[8:])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
