// Package dpsk implements differential phase-shift keying: a chip is
// carried as the phase change between consecutive symbols, not an
// absolute phase, so the receiver never needs a coherent phase reference.
//
// Grounded on the differential-phase demodulation idiom described in
// doismellburning-samoyed/src/demod_psk.go's V.26/V.27 header comment
// (MFJ-2400-style DPSK modem chips), generalized here from its 4/8-phase
// constellations down to binary DPSK.
package dpsk

import "math"

// WrapPhase reduces x into (-pi, pi].
func WrapPhase(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x <= -math.Pi {
		x += 2 * math.Pi
	} else if x > math.Pi {
		x -= 2 * math.Pi
	}
	return x
}

// Modulate encodes a chip stream (+1/-1) as a sequence of phases. chip==+1
// holds the previous phase; chip==-1 advances it by pi. Output length
// equals len(chips).
func Modulate(chips []int8, phi0 float64) []float64 {
	out := make([]float64, len(chips))
	phase := phi0
	for i, c := range chips {
		if c == -1 {
			phase += math.Pi
		}
		out[i] = WrapPhase(phase)
	}
	return out
}

// DemodulateSoft computes one LLR per consecutive phase pair. Output
// length is len(phases)-1; the caller determines how to handle the first
// symbol's missing reference (see DemodulateSoftPadded for a length-
// matched variant). Positive LLR means chip 0 (no phase jump), negative
// means chip 1 (pi jump).
func DemodulateSoft(phases []float64, esN0Linear float64) []float64 {
	if len(phases) < 2 {
		return nil
	}
	scale := 2 * esN0Linear
	out := make([]float64, len(phases)-1)
	for i := 1; i < len(phases); i++ {
		delta := WrapPhase(phases[i] - phases[i-1])
		out[i-1] = scale * math.Cos(delta)
	}
	return out
}

// DemodulateSoftPadded is DemodulateSoftContinuous with no known
// predecessor phase: used only where no real previous chip exists yet
// (the very first chip of an acquisition attempt), so out[0] falls back
// to repeating out[1] rather than reflecting a true phase difference.
func DemodulateSoftPadded(phases []float64, esN0Linear float64) []float64 {
	return DemodulateSoftContinuous(phases, 0, false, esN0Linear)
}

// DemodulateSoftContinuous generalizes DemodulateSoft to carry the
// differential phase reference across a block boundary: prevPhase is the
// phase estimated for the last chip of the previous call (havePrev true),
// so out[0] reflects the true cross-block phase difference instead of a
// fabricated duplicate. DPSK's differential encoding runs continuously
// across the whole modulated chip stream (internal/carrier's
// StreamModulator never resets phase at a bit boundary -- see
// internal/carrier/carrier.go), so demodulating each bit as an
// independent block and always discarding the true predecessor phase
// would throw away one real chip's worth of information on every single
// bit. havePrev is false only when no real predecessor exists yet (the
// start of a fresh acquisition attempt); out[0] then falls back to
// repeating out[1], the same best-effort stand-in DemodulateSoftPadded
// always used.
func DemodulateSoftContinuous(phases []float64, prevPhase float64, havePrev bool, esN0Linear float64) []float64 {
	n := len(phases)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	scale := 2 * esN0Linear
	ref := prevPhase
	for i := 0; i < n; i++ {
		if i == 0 && !havePrev {
			ref = phases[0]
			continue
		}
		delta := WrapPhase(phases[i] - ref)
		out[i] = scale * math.Cos(delta)
		ref = phases[i]
	}
	if !havePrev && n > 1 {
		out[0] = out[1]
	}
	return out
}
