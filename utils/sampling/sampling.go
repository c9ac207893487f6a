package sampling

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/zeebo/blake3"
)

// RandUint64 returns a random insecure uint64 value.
func RandUint64() uint64 {
	b := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(b)
}

// RandInt generates a random Int in [0, max-1].
func RandInt(max *big.Int) (n *big.Int) {
	var err error
	if n, err = rand.Int(rand.Reader, max); err != nil {
		panic(err)
	}
	return
}

// DeterministicBytes expands seed into n pseudo-random bytes using blake3.
// The same seed always produces the same stream.
func DeterministicBytes(seed []byte, n int) (b []byte) {
	hasher := blake3.New()
	if _, err := hasher.Write(seed); err != nil {
		panic(err)
	}
	b = make([]byte, n)
	digest := hasher.Digest()
	if _, err := digest.Read(b); err != nil {
		panic(err)
	}
	return
}
