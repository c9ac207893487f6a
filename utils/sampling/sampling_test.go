package sampling

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedPRNGDeterminism(t *testing.T) {

	key := []byte{1, 2, 3}
	prng1, err := NewKeyedPRNG(key)
	require.NoError(t, err)
	prng2, err := NewKeyedPRNG(key)
	require.NoError(t, err)

	buf1 := make([]byte, 256)
	buf2 := make([]byte, 256)
	_, err = prng1.Read(buf1)
	require.NoError(t, err)
	_, err = prng2.Read(buf2)
	require.NoError(t, err)
	require.Equal(t, buf1, buf2)

	require.Equal(t, key, prng1.Key())

	// Reset rewinds the stream to its start.
	require.NoError(t, prng1.Reset())
	buf3 := make([]byte, 256)
	_, err = prng1.Read(buf3)
	require.NoError(t, err)
	require.Equal(t, buf1, buf3)
}

func TestNewPRNGDiverges(t *testing.T) {

	prng1, err := NewPRNG()
	require.NoError(t, err)
	prng2, err := NewPRNG()
	require.NoError(t, err)

	buf1 := make([]byte, 64)
	buf2 := make([]byte, 64)
	_, err = prng1.Read(buf1)
	require.NoError(t, err)
	_, err = prng2.Read(buf2)
	require.NoError(t, err)
	require.NotEqual(t, buf1, buf2)
}

func TestSeededPRNG(t *testing.T) {

	prng1, err := NewSeededPRNG([]byte("a human-readable seed of arbitrary length"))
	require.NoError(t, err)
	prng2, err := NewSeededPRNG([]byte("a human-readable seed of arbitrary length"))
	require.NoError(t, err)

	// The seed is expanded to a fixed-size key.
	require.Len(t, prng1.Key(), 32)

	buf1 := make([]byte, 64)
	buf2 := make([]byte, 64)
	_, err = prng1.Read(buf1)
	require.NoError(t, err)
	_, err = prng2.Read(buf2)
	require.NoError(t, err)
	require.Equal(t, buf1, buf2)
}

func TestRandInt(t *testing.T) {
	max := big.NewInt(1 << 20)
	for i := 0; i < 64; i++ {
		n := RandInt(max)
		require.True(t, n.Sign() >= 0)
		require.True(t, n.Cmp(max) < 0)
	}
}

func TestDeterministicBytes(t *testing.T) {
	b1 := DeterministicBytes([]byte("seed"), 128)
	b2 := DeterministicBytes([]byte("seed"), 128)
	require.Equal(t, b1, b2)
	require.Len(t, b1, 128)

	b3 := DeterministicBytes([]byte("other"), 128)
	require.NotEqual(t, b1, b3)
}
