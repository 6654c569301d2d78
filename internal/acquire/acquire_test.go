package acquire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9jhu/chirpmodem/internal/carrier"
	"github.com/kb9jhu/chirpmodem/internal/dpsk"
	"github.com/kb9jhu/chirpmodem/internal/dsss"
)

// testParams uses an integer number of carrier cycles per chip so the
// demodulation chain underneath correlateAt is exact rather than
// approximate (see internal/carrier's own test for why this matters).
func testParams() carrier.Params {
	return carrier.Params{SamplesPerChip: 8, SampleRate: 32, CarrierFreq: 4}
}

func buildBlock(t *testing.T, seq *dsss.Sequence, bit byte, cp carrier.Params) []float64 {
	t.Helper()
	chips := seq.Spread(bit)
	phases := dpsk.Modulate(chips, 0)
	return carrier.ModulatePhases(phases, 0, cp)
}

func Test_FindSyncOffset_ReturnsZeroResultWhenWindowTooShort(t *testing.T) {
	seq, err := dsss.NewSequence(7, 1)
	require.NoError(t, err)
	cp := testParams()

	window := make([]float64, seq.N*cp.SamplesPerChip-1) // one sample short
	result := FindSyncOffset(window, 0, seq, cp, 5, 0.1, 1.0)
	assert.Equal(t, Result{}, result)
}

func Test_FindSyncOffset_NegativeMaxOffsetClampsToZero(t *testing.T) {
	seq, err := dsss.NewSequence(7, 1)
	require.NoError(t, err)
	cp := testParams()

	window := buildBlock(t, seq, 0, cp)
	result := FindSyncOffset(window, 0, seq, cp, -5, 0, 0)
	assert.Equal(t, 0, result.SampleOffset)
}

func Test_FindSyncOffset_SingleFeasibleOffsetMatchesDirectCorrelation(t *testing.T) {
	seq, err := dsss.NewSequence(7, 1)
	require.NoError(t, err)
	cp := testParams()

	window := buildBlock(t, seq, 0, cp)
	want := correlateAt(window, 0, seq, cp)

	result := FindSyncOffset(window, 0, seq, cp, 5, 0, 0)
	assert.Equal(t, 0, result.SampleOffset)
	assert.InDelta(t, want, result.Correlation, 1e-9)
}

func Test_FindSyncOffset_AcceptsWhenBelowMeasuredCorrelation(t *testing.T) {
	seq, err := dsss.NewSequence(7, 1)
	require.NoError(t, err)
	cp := testParams()

	window := buildBlock(t, seq, 0, cp)
	want := correlateAt(window, 0, seq, cp)
	normalized := math.Abs(want) / float64(seq.N)

	result := FindSyncOffset(window, 0, seq, cp, 0, normalized*0.5, 0)
	assert.True(t, result.Accepted)
}

func Test_FindSyncOffset_RejectsWhenAboveMeasuredCorrelation(t *testing.T) {
	seq, err := dsss.NewSequence(7, 1)
	require.NoError(t, err)
	cp := testParams()

	window := buildBlock(t, seq, 0, cp)
	want := correlateAt(window, 0, seq, cp)
	normalized := math.Abs(want) / float64(seq.N)

	result := FindSyncOffset(window, 0, seq, cp, 0, normalized+0.5, 0)
	assert.False(t, result.Accepted)
}

func Test_correlateAt_NegatingTransmittedBitNegatesCorrelation(t *testing.T) {
	seq, err := dsss.NewSequence(15, 0x2A)
	require.NoError(t, err)
	cp := testParams()

	block0 := buildBlock(t, seq, 0, cp)
	block1 := buildBlock(t, seq, 1, cp)

	corr0 := correlateAt(block0, 0, seq, cp)
	corr1 := correlateAt(block1, 0, seq, cp)

	assert.InDelta(t, corr0, -corr1, 1e-9)
}

func Test_FindSyncOffset_RejectsConstantCorrelationAcrossOffsets(t *testing.T) {
	seq, err := dsss.NewSequence(7, 1)
	require.NoError(t, err)
	cp := testParams()

	need := seq.N * cp.SamplesPerChip
	window := make([]float64, need+5) // all zero: every offset scores identically

	result := FindSyncOffset(window, 0, seq, cp, 5, 0, 2.0)
	assert.False(t, result.Accepted)
}

func Test_estimateNoiseFloor_MeanAbsExcludingPeak(t *testing.T) {
	correlations := []float64{2, -4, 6, -8}
	floor := estimateNoiseFloor(correlations, 2) // exclude the 6
	assert.InDelta(t, (2.0+4.0+8.0)/3.0, floor, 1e-12)
}

func Test_estimateNoiseFloor_FloorsAtEpsilonWhenAllOthersZero(t *testing.T) {
	floor := estimateNoiseFloor([]float64{0, 5, 0}, 1)
	assert.Greater(t, floor, 0.0)
	assert.Less(t, floor, 1e-6)
}
