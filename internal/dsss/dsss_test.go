package dsss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_NewSequence_RejectsNonMersenneLength(t *testing.T) {
	_, err := NewSequence(20, 1)
	assert.Error(t, err)
}

func Test_NewSequence_RejectsZeroSeed(t *testing.T) {
	_, err := NewSequence(31, 0)
	assert.Error(t, err)
}

func Test_NewSequence_Deterministic(t *testing.T) {
	a, err := NewSequence(31, 0x15)
	require.NoError(t, err)
	b, err := NewSequence(31, 0x15)
	require.NoError(t, err)
	assert.Equal(t, a.Chips, b.Chips)
}

func Test_NewSequence_DifferentSeedsDiffer(t *testing.T) {
	a, err := NewSequence(31, 1)
	require.NoError(t, err)
	b, err := NewSequence(31, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a.Chips, b.Chips)
}

func Test_NewSequence_ChipsAreAlwaysPlusMinusOne(t *testing.T) {
	seq, err := NewSequence(63, 7)
	require.NoError(t, err)
	for _, c := range seq.Chips {
		assert.True(t, c == 1 || c == -1)
	}
}

func Test_SpreadDespread_PerfectAlignmentRecoversBit(t *testing.T) {
	seq, err := NewSequence(31, 0x15)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		bit := byte(rapid.IntRange(0, 1).Draw(t, "bit"))
		chips := seq.Spread(bit)
		got, corr := seq.Despread(chips)
		assert.Equal(t, bit, got)
		assert.Equal(t, seq.N, abs(corr))
	})
}

func Test_Despread_OrthogonalToUnrelatedSequence(t *testing.T) {
	seq, err := NewSequence(31, 0x15)
	require.NoError(t, err)
	other, err := NewSequence(31, 0x9)
	require.NoError(t, err)

	_, corr := seq.Despread(other.Chips)
	assert.Less(t, abs(corr), seq.N)
}

func Test_ClampLLR_SaturatesAtBounds(t *testing.T) {
	assert.Equal(t, int8(127), ClampLLR(1e9))
	assert.Equal(t, int8(-127), ClampLLR(-1e9))
	assert.Equal(t, int8(0), ClampLLR(0))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
