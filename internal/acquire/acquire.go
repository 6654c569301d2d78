// Package acquire implements the synchronizer: correlating a window of
// received samples against the known preamble/sync-word spreading
// sequence to find the sample offset where a frame begins.
//
// Grounded on doismellburning-samoyed/src/pll_dcd.go's acceptance-
// threshold shape (score a running statistic, accept only above a
// configured threshold, otherwise keep searching) and the ka9q-ubersdr
// audio_extensions/fsk/fsk_demod.go sliding-window search loop,
// generalized from tone detection to chip-sequence correlation.
package acquire

import (
	"math"

	"github.com/kb9jhu/chirpmodem/internal/carrier"
	"github.com/kb9jhu/chirpmodem/internal/dpsk"
	"github.com/kb9jhu/chirpmodem/internal/dsss"
)

// Result is the outcome of one FindSyncOffset search.
type Result struct {
	SampleOffset int
	Correlation  float64
	NoiseFloor   float64
	PeakToNoise  float64
	Accepted     bool
}

// FindSyncOffset searches sample offsets [0, maxSampleOffset] in window
// for the alignment of one reference-sequence-length block of chips
// (seq.N chips, each cp.SamplesPerChip samples) that best correlates
// against seq, accepting iff the peak clears both an absolute threshold
// and a peak-to-noise-floor ratio. Implements spec.md sec.4.F.
//
// startSampleIndex is the absolute sample index (internal/ring.SampleRing
// .ReadCursor()) that window[0] corresponds to in the continuously
// modulated TX stream, so the carrier phase basis used at every candidate
// offset lines up with the signal that was actually transmitted there,
// not a phase basis reset to zero at an arbitrary window boundary.
//
// window must hold at least seq.N*cp.SamplesPerChip + maxSampleOffset
// samples for every offset to be searchable; shorter windows are
// searched only up to what fits.
func FindSyncOffset(window []float64, startSampleIndex int64, seq *dsss.Sequence, cp carrier.Params, maxSampleOffset int, correlationThreshold, peakToNoiseRatio float64) Result {
	need := seq.N * cp.SamplesPerChip
	if maxSampleOffset < 0 {
		maxSampleOffset = 0
	}

	correlations := make([]float64, 0, maxSampleOffset+1)
	bestOffset := 0
	bestAbs := -1.0
	bestCorr := 0.0
	found := false

	for offset := 0; offset <= maxSampleOffset; offset++ {
		end := offset + need
		if end > len(window) {
			break
		}
		corr := correlateAt(window[offset:end], startSampleIndex+int64(offset), seq, cp)
		correlations = append(correlations, corr)

		abs := math.Abs(corr)
		if abs > bestAbs {
			bestAbs = abs
			bestOffset = offset
			bestCorr = corr
			found = true
		}
	}

	if !found {
		return Result{}
	}

	noiseFloor := estimateNoiseFloor(correlations, bestOffset)
	ratio := math.Inf(1)
	if noiseFloor > 0 {
		ratio = bestAbs / noiseFloor
	}

	accepted := bestAbs >= correlationThreshold*float64(seq.N) && ratio >= peakToNoiseRatio

	return Result{
		SampleOffset: bestOffset,
		Correlation:  bestCorr,
		NoiseFloor:   noiseFloor,
		PeakToNoise:  ratio,
		Accepted:     accepted,
	}
}

// correlateAt runs carrier demod (4.E) then DPSK soft demod (4.D) over
// one candidate block, hard-decides each chip from the sign of its LLR,
// and correlates against the reference sequence via dsss.Despread --
// the same statistic the receive-side despread step uses, so
// correlationThreshold is expressed in the same units ([-L,L]) in both
// places. startSampleIndex is block[0]'s absolute position in the
// continuously modulated TX stream (see FindSyncOffset); each candidate
// offset is an independent alignment hypothesis, not a continuation of
// the previous candidate, so there is no real predecessor chip to
// reference here -- DemodulateSoftPadded's fabricated first-chip LLR is
// the correct choice for a single-shot correlation test, unlike the
// continuous per-bit decode in internal/streamdemod.
func correlateAt(block []float64, startSampleIndex int64, seq *dsss.Sequence, cp carrier.Params) float64 {
	symbols := carrier.DemodulateSymbols(block, startSampleIndex, cp)
	phases := make([]float64, len(symbols))
	for i, s := range symbols {
		phases[i] = s.Phase
	}
	chipLLRs := dpsk.DemodulateSoftPadded(phases, 1.0)

	hardChips := make([]dsss.Chip, len(chipLLRs))
	for i, llr := range chipLLRs {
		if llr >= 0 {
			hardChips[i] = 1
		} else {
			hardChips[i] = -1
		}
	}

	_, corr := seq.Despread(hardChips)
	return float64(corr)
}

// estimateNoiseFloor is the mean absolute off-peak correlation: a crude
// but allocation-free stand-in for a true noise PSD estimate, adequate
// for a peak-to-noise accept/reject decision.
func estimateNoiseFloor(correlations []float64, peakIdx int) float64 {
	var sum float64
	n := 0
	for i, c := range correlations {
		if i == peakIdx {
			continue
		}
		sum += math.Abs(c)
		n++
	}
	if n == 0 {
		return 1e-9
	}
	floor := sum / float64(n)
	if floor <= 0 {
		floor = 1e-9
	}
	return floor
}
