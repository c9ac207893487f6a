package ring

import (
	"encoding/binary"
	"math/bits"

	"github.com/pimfhe/pimring/utils/sampling"
)

const randomBufferSize = 1024

// UniformSampler wraps a sampling.PRNG and samples vectors with
// coefficients uniform over [0, modulus-1] by rejection sampling.
// A UniformSampler is not safe for concurrent use.
type UniformSampler struct {
	prng    sampling.PRNG
	modulus uint64
	mask    uint64
	buffer  []byte
	ptr     int
}

// NewUniformSampler creates a new instance of UniformSampler from a
// PRNG and a modulus.
func NewUniformSampler(prng sampling.PRNG, modulus uint64) *UniformSampler {
	return &UniformSampler{
		prng:    prng,
		modulus: modulus,
		mask:    (1 << uint64(bits.Len64(modulus-1))) - 1,
		buffer:  make([]byte, randomBufferSize),
		ptr:     randomBufferSize,
	}
}

// Read fills v with fresh uniform coefficients. The vector modulus is
// set to the sampler modulus.
func (u *UniformSampler) Read(v *ModularVector) {

	var randomUint uint64

	buffer := u.buffer
	ptr := u.ptr

	v.Modulus = u.modulus

	for i := range v.Values {

		// Samples an integer in [0, modulus-1]
		for {

			// Refills the buffer if it runs empty
			if ptr == len(buffer) {
				if _, err := u.prng.Read(buffer); err != nil {
					// Sanity check, this error should not happen.
					panic(err)
				}
				ptr = 0
			}

			randomUint = binary.BigEndian.Uint64(buffer[ptr:ptr+8]) & u.mask
			ptr += 8

			if randomUint < u.modulus {
				break
			}
		}

		v.Values[i] = randomUint
	}

	u.ptr = ptr
}

// ReadNew samples a new uniform vector of the given length.
func (u *UniformSampler) ReadNew(length int) (v *ModularVector) {
	v = NewModularVector(length, u.modulus)
	u.Read(v)
	return
}
