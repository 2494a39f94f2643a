package dice

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"time"
)

// newSeed draws a non-negative math/rand seed from crypto/rand. It falls
// back to the clock when the system source cannot be read.
func newSeed() int64 {
	var buf [8]byte
	if _, err := crypto_rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}
