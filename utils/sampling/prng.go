// Package sampling implements secure and deterministic sampling of uniform random integers.
package sampling

import (
	"crypto/rand"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// PRNG is an interface for secure (keyed) deterministic generation of random bytes.
type PRNG interface {
	Read(sum []byte) (n int, err error)
}

// KeyedPRNG is a structure storing the parameters used to securely and deterministically generate shared
// sequences of random bytes among different parties using the hash function blake2b. Backward sequence
// security (given the digest i, compute the digest i-1) is ensured by default, however forward sequence
// security (given the digest i, compute the digest i+1) is only ensured if the KeyedPRNG is keyed.
type KeyedPRNG struct {
	key []byte
	xof blake2b.XOF
	mu  sync.Mutex
}

// NewKeyedPRNG creates a new instance of KeyedPRNG.
// Accepts an optional key, else set key=nil which is treated as key=[]byte{}
// WARNING: A PRNG INITIALISED WITH key=nil IS INSECURE!
func NewKeyedPRNG(key []byte) (*KeyedPRNG, error) {
	var err error
	prng := new(KeyedPRNG)
	prng.key = key
	prng.xof, err = blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	return prng, err
}

// NewSeededPRNG creates a KeyedPRNG keyed with a 32-byte key expanded from an
// arbitrary-length seed, so that human-readable seeds of any length produce
// uniformly keyed streams. Equal seeds yield equal streams.
func NewSeededPRNG(seed []byte) (*KeyedPRNG, error) {
	return NewKeyedPRNG(DeterministicBytes(seed, 32))
}

// NewPRNG creates KeyedPRNG keyed from rand.Read for instances were no key should be provided by the user.
func NewPRNG() (*KeyedPRNG, error) {
	var err error
	prng := new(KeyedPRNG)
	key := make([]byte, 64)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	prng.key = key
	prng.xof, err = blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	return prng, err
}

// Key returns a copy of the key used to seed the PRNG.
// This value can be used to instantiate a new PRNG that will produce the same stream of bytes.
func (prng *KeyedPRNG) Key() (key []byte) {
	key = make([]byte, len(prng.key))
	copy(key, prng.key)
	return
}

// Read reads bytes from the KeyedPRNG on sum.
func (prng *KeyedPRNG) Read(sum []byte) (n int, err error) {
	prng.mu.Lock()
	defer prng.mu.Unlock()
	return prng.xof.Read(sum)
}

// Reset resets the PRNG to its initial state.
func (prng *KeyedPRNG) Reset() (err error) {
	prng.mu.Lock()
	defer prng.mu.Unlock()
	var xof blake2b.XOF
	if xof, err = blake2b.NewXOF(blake2b.OutputLengthUnknown, prng.key); err != nil {
		return
	}
	prng.xof = xof
	return
}

// ThreadSafePRNG is an PRNG safe to use in concurrent environments.
type ThreadSafePRNG struct {
}

// NewThreadSafePRNG creates a new PRNG that relies on the crypto/rand
// random number generator. It is safe for concurrent use.
func NewThreadSafePRNG() (*ThreadSafePRNG, error) {
	return &ThreadSafePRNG{}, nil
}

// Read reads bytes from the ThreadSafePRNG on sum.
func (prng *ThreadSafePRNG) Read(sum []byte) (n int, err error) {
	return rand.Read(sum)
}
