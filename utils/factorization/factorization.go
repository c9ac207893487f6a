// Package factorization implements a small set of integer factorization
// routines: trial division by a table of small primes, Pollard's rho
// method and Lenstra's elliptic-curve method.
package factorization

import (
	"math/big"

	"github.com/pimfhe/pimring/utils/sampling"
)

// smallPrimesBound is the exclusive upper bound of the small primes
// removed by trial division before the probabilistic methods run.
const smallPrimesBound = 1 << 12

var smallPrimes = sievedPrimes(smallPrimesBound)

func sievedPrimes(bound int) (primes []uint64) {
	composite := make([]bool, bound)
	for i := 2; i < bound; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, uint64(i))
		for j := i * i; j < bound; j += i {
			composite[j] = true
		}
	}
	return
}

// GetFactors returns all the distinct prime factors of m.
// Factors found probabilistically are checked with big.Int.ProbablyPrime(0),
// which is 100% accurate for integers up to 2^64.
func GetFactors(m *big.Int) (factors []*big.Int) {

	n := new(big.Int).Set(m)

	one := new(big.Int).SetUint64(1)

	addFactor := func(f *big.Int) {
		for i := range factors {
			if factors[i].Cmp(f) == 0 {
				return
			}
		}
		factors = append(factors, new(big.Int).Set(f))
	}

	// Trial division by the small primes.
	r, p := new(big.Int), new(big.Int)
	for _, sp := range smallPrimes {
		p.SetUint64(sp)
		if r.Mod(n, p); r.Sign() == 0 {
			addFactor(p)
			for r.Sign() == 0 {
				n.Quo(n, p)
				r.Mod(n, p)
			}
		}
		if n.Cmp(one) == 0 {
			return
		}
	}

	// Splits the remaining composite part.
	stack := []*big.Int{n}
	for len(stack) > 0 {

		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if c.Cmp(one) == 0 {
			continue
		}

		if c.ProbablyPrime(0) {
			addFactor(c)
			continue
		}

		f := pollardRho(c)
		if f == nil {
			f = ecm(c)
		}

		stack = append(stack, f, new(big.Int).Quo(c, f))
	}

	return
}

// pollardRho attempts to find a non-trivial factor of n with
// Pollard's rho method (Brent's cycle finding variant).
// Returns nil on failure.
func pollardRho(n *big.Int) (factor *big.Int) {

	one := new(big.Int).SetUint64(1)

	for attempt := 0; attempt < 16; attempt++ {

		c := sampling.RandInt(n)

		x := sampling.RandInt(n)
		y := new(big.Int).Set(x)
		d := new(big.Int).SetUint64(1)

		f := func(v *big.Int) {
			v.Mul(v, v)
			v.Add(v, c)
			v.Mod(v, n)
		}

		diff := new(big.Int)
		for i := 0; i < 1<<20 && d.Cmp(one) == 0; i++ {
			f(x)
			f(y)
			f(y)
			diff.Sub(x, y)
			diff.Abs(diff)
			if diff.Sign() == 0 {
				break
			}
			d.GCD(nil, nil, diff, n)
		}

		if d.Cmp(one) > 0 && d.Cmp(n) < 0 {
			return d
		}
	}

	return nil
}

// ecm finds a non-trivial factor of n with Lenstra's elliptic-curve method.
// A factor is recovered when a point addition fails to invert a
// denominator modulo n, i.e. when the denominator shares a factor with n.
func ecm(n *big.Int) (factor *big.Int) {

	one := new(big.Int).SetUint64(1)

	for {

		w, g := NewRandomWeierstrassCurve(n)

		// Walks k!·G until an inversion failure reveals a factor.
		acc := Point{X: new(big.Int).Set(g.X), Y: new(big.Int).Set(g.Y)}

		for k := 2; k < 1<<16; k++ {

			next, d := addAndCheck(&w, acc, acc)
			if d != nil {
				if d.Cmp(one) > 0 && d.Cmp(n) < 0 {
					return d
				}
				break
			}

			for j := 1; j < k; j++ {
				next, d = addAndCheck(&w, next, g)
				if d != nil {
					break
				}
			}

			if d != nil {
				if d.Cmp(one) > 0 && d.Cmp(n) < 0 {
					return d
				}
				break
			}

			acc = next
		}
	}
}

// addAndCheck adds P and Q on w, but first checks that the slope
// denominator is invertible modulo w.N. If it is not, the gcd of the
// denominator with w.N is returned instead of a point.
func addAndCheck(w *Weierstrass, P, Q Point) (R Point, d *big.Int) {

	den := new(big.Int)

	if P.X.Cmp(Q.X) != 0 {
		den.Sub(Q.X, P.X)
	} else {
		den.Add(P.Y, P.Y)
	}
	den.Mod(den, w.N)

	if den.Sign() != 0 {
		d = new(big.Int).GCD(nil, nil, den, w.N)
		if d.Cmp(new(big.Int).SetUint64(1)) == 0 {
			return w.Add(P, Q), nil
		}
		return Point{}, d
	}

	return Point{}, new(big.Int).Set(w.N)
}
