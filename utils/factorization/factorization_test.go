package factorization

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetFactorsSmall(t *testing.T) {
	factors := GetFactors(big.NewInt(12288))
	require.Len(t, factors, 2)
	requireContains(t, factors, 2)
	requireContains(t, factors, 3)
}

func TestGetFactorsPrime(t *testing.T) {
	factors := GetFactors(big.NewInt(12289))
	require.Len(t, factors, 1)
	requireContains(t, factors, 12289)
}

func TestGetFactorsComposite(t *testing.T) {
	// 1000003 * 1000033: both factors exceed the trial-division bound.
	n := new(big.Int).SetUint64(1000003 * 1000033)
	factors := GetFactors(n)

	product := big.NewInt(1)
	rem := new(big.Int).Set(n)
	for _, f := range factors {
		require.True(t, f.ProbablyPrime(0))
		require.Equal(t, 0, new(big.Int).Mod(n, f).Sign())
		for new(big.Int).Mod(rem, f).Sign() == 0 {
			rem.Quo(rem, f)
		}
		product.Mul(product, f)
	}
	require.Equal(t, 0, rem.Cmp(big.NewInt(1)))
}

func requireContains(t *testing.T, factors []*big.Int, v int64) {
	t.Helper()
	for _, f := range factors {
		if f.Cmp(big.NewInt(v)) == 0 {
			return
		}
	}
	t.Fatalf("factor %d not found", v)
}
