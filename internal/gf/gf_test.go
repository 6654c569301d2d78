package gf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_New_RejectsNonPrimitive(t *testing.T) {
	// x^4+1 does not generate the full multiplicative group of GF(2^4).
	_, err := New(4, 0x1)
	assert.Error(t, err)
}

func Test_New_StandardPolysAreAllPrimitive(t *testing.T) {
	for m, poly := range StandardPrimitivePolys {
		f, err := New(m, poly)
		require.NoErrorf(t, err, "m=%d poly=0x%x", m, poly)
		assert.Equal(t, (1<<uint(m))-1, f.N)
	}
}

func Test_ExpLog_AreInverses(t *testing.T) {
	f, err := New(5, StandardPrimitivePolys[5])
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		i := rapid.IntRange(0, f.N-1).Draw(t, "i")
		v := f.Exp(i)
		assert.Equal(t, i, f.Log(v))
	})
}

func Test_Mul_ByInverseIsOne(t *testing.T) {
	f, err := New(6, StandardPrimitivePolys[6])
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(1, f.N).Draw(t, "a")
		inv := f.Inv(a)
		assert.Equal(t, 1, f.Mul(a, inv))
	})
}

func Test_Exp_WrapsNegativeIndices(t *testing.T) {
	f, err := New(4, StandardPrimitivePolys[4])
	require.NoError(t, err)

	assert.Equal(t, f.Exp(0), f.Exp(-f.N))
	assert.Equal(t, f.Exp(3), f.Exp(3-f.N))
}
