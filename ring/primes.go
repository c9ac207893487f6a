package ring

import (
	"fmt"
	"math/big"
	"math/bits"
)

// IsPrime applies the Baillie-PSW, i.e. Miller-Rabin + Lucas primality test to the input.
// Returns true if input is prime. Trustworthy for all integers up to 2^64.
func IsPrime(x uint64) bool {
	return new(big.Int).SetUint64(x).ProbablyPrime(0)
}

// NextNTTPrime returns the next prime p > q such that p % NthRoot == 1.
func NextNTTPrime(q, NthRoot uint64) (qNext uint64, err error) {

	qNext = q + NthRoot

	for !IsPrime(qNext) {

		qNext += NthRoot

		if bits.Len64(qNext) > MaxModulusBits {
			return 0, fmt.Errorf("next NTT prime exceeds the maximum modulus size of %d bits", MaxModulusBits)
		}
	}

	return
}

// PreviousNTTPrime returns the previous prime p < q such that p % NthRoot == 1.
func PreviousNTTPrime(q, NthRoot uint64) (qPrev uint64, err error) {

	if q < NthRoot {
		return 0, fmt.Errorf("previous NTT prime: no prime in the interval [2, %d-1]", q)
	}

	qPrev = q - NthRoot

	for !IsPrime(qPrev) {

		if qPrev < NthRoot {
			return 0, fmt.Errorf("previous NTT prime: reached the lower bound with no prime found")
		}

		qPrev -= NthRoot
	}

	return
}

// FirstPrime returns the smallest prime p >= 2^logQ satisfying
// p % NthRoot == 1.
func FirstPrime(logQ int, NthRoot uint64) (uint64, error) {

	if logQ > MaxModulusBits {
		return 0, fmt.Errorf("logQ = %d > %d bits", logQ, MaxModulusBits)
	}

	q := uint64(1 << logQ)
	for q%NthRoot != 1 {
		q++
	}

	if IsPrime(q) {
		return q, nil
	}

	return NextNTTPrime(q, NthRoot)
}

// LastPrime returns the largest prime p <= 2^logQ satisfying
// p % NthRoot == 1.
func LastPrime(logQ int, NthRoot uint64) (uint64, error) {

	if logQ > MaxModulusBits {
		return 0, fmt.Errorf("logQ = %d > %d bits", logQ, MaxModulusBits)
	}

	q := uint64(1 << logQ)
	for q%NthRoot != 1 {
		q--
	}

	if IsPrime(q) {
		return q, nil
	}

	return PreviousNTTPrime(q, NthRoot)
}

// GenerateNTTPrimes generates primeNb primes of bit-size logQ congruent
// to 1 modulo NthRoot, alternating above and below 2^logQ.
func GenerateNTTPrimes(logQ, NthRoot int, primeNb int) (primes []uint64, err error) {

	if logQ > MaxModulusBits {
		return nil, fmt.Errorf("logQ = %d > %d bits", logQ, MaxModulusBits)
	}

	var nextPrime, previousPrime uint64

	// Starting value: 2^logQ + 1
	nextPrime = uint64(1<<logQ) + 1
	previousPrime = uint64(1<<logQ) + 1

	primes = make([]uint64, 0, primeNb)

	checkForNext := true
	checkForPrevious := true

	for len(primes) != primeNb && (checkForNext || checkForPrevious) {

		if checkForNext {
			if nextPrime, err = NextNTTPrime(nextPrime, uint64(NthRoot)); err != nil {
				checkForNext = false
			} else if bits.Len64(nextPrime) == logQ {
				primes = append(primes, nextPrime)
			} else {
				checkForNext = false
			}
		}

		if len(primes) == primeNb {
			break
		}

		if checkForPrevious {
			if previousPrime, err = PreviousNTTPrime(previousPrime, uint64(NthRoot)); err != nil {
				checkForPrevious = false
			} else if bits.Len64(previousPrime) == logQ {
				primes = append(primes, previousPrime)
			} else {
				checkForPrevious = false
			}
		}
	}

	if len(primes) != primeNb {
		return nil, fmt.Errorf("cannot generate %d NTT primes of %d bits with NthRoot = %d", primeNb, logQ, NthRoot)
	}

	return primes, nil
}
