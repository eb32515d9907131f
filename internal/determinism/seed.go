// Package determinism derives reproducible sampling seeds so that repeated
// reviews of the same refs get the same oracle output.
package determinism

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// GenerateSeed hashes the base and target refs into a seed. The high bit is
// masked off so the value also fits APIs that take a signed int64.
func GenerateSeed(baseRef, targetRef string) uint64 {
	input := fmt.Sprintf("%s|%s", baseRef, targetRef)
	hash := sha256.Sum256([]byte(input))
	seed := binary.BigEndian.Uint64(hash[:8])
	return seed & 0x7FFFFFFFFFFFFFFF
}
