package carrier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// testParams uses a carrier frequency that completes exactly one cycle
// per chip interval, so the I/Q integration is exactly orthogonal (no
// spectral leakage) and phase recovery is exact rather than approximate.
func testParams() Params {
	return Params{SamplesPerChip: 8, SampleRate: 32, CarrierFreq: 4}
}

func Test_ModulateDemodulate_RecoversPhase(t *testing.T) {
	p := testParams()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(t, "n")
		phases := make([]float64, n)
		for i := range phases {
			phases[i] = rapid.Float64Range(-math.Pi+0.1, math.Pi-0.1).Draw(t, "phase")
		}
		samples := ModulatePhases(phases, 0, p)
		symbols := DemodulateSymbols(samples, 0, p)
		assert.Len(t, symbols, n)
		for i, s := range symbols {
			assert.InDelta(t, phases[i], s.Phase, 1e-6)
		}
	})
}

func Test_DemodulateSymbols_IgnoresTrailingPartialInterval(t *testing.T) {
	p := testParams()
	samples := make([]float64, p.SamplesPerChip*2+3)
	symbols := DemodulateSymbols(samples, 0, p)
	assert.Len(t, symbols, 2)
}

func Test_StreamModulator_ContinuityMatchesOneShot(t *testing.T) {
	p := testParams()
	phases := []float64{0.1, 0.5, -0.3, 1.2, 2.0}

	oneShot := ModulatePhases(phases, 0, p)

	m := NewStreamModulator(p)
	var streamed []float64
	streamed = append(streamed, m.Modulate(phases[:2])...)
	streamed = append(streamed, m.Modulate(phases[2:])...)

	assert.Equal(t, len(oneShot), len(streamed))
	for i := range oneShot {
		assert.InDelta(t, oneShot[i], streamed[i], 1e-9)
	}
}

func Test_Omega_ScalesWithCarrierFreq(t *testing.T) {
	p := testParams()
	p2 := p
	p2.CarrierFreq *= 2
	assert.InDelta(t, p.Omega()*2, p2.Omega(), 1e-12)
}
