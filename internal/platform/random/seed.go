// Package random provides cryptographic seed generation helpers.
//
// It uses crypto/rand to generate high-entropy seeds for initializing the
// deterministic pseudo-random streams that drive models, so that unseeded
// runs do not accidentally share a stream.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random non-zero seed using crypto/rand.
func NewSeed() (int64, error) {
	for {
		var b [8]byte
		if _, err := crand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		seed := int64(binary.LittleEndian.Uint64(b[:]))
		if seed != 0 {
			return seed, nil
		}
	}
}
