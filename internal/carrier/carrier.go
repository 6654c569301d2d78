// Package carrier maps a stream of chip-domain phases onto real-valued
// audio samples and back, via direct phase modulation on transmit and
// in-phase/quadrature integration on receive.
//
// Grounded on the per-baud-interval accumulate-then-estimate shape of
// doismellburning-samoyed/src/demod_afsk.go and the ka9q-ubersdr
// audio_extensions/fsk/fsk_demod.go zero-crossing accumulator loop,
// generalized here from tone/mark-space detection to coherent I/Q
// integration against a known carrier.
package carrier

import "math"

// Params are the fixed carrier parameters agreed between peers.
type Params struct {
	SamplesPerChip int
	SampleRate     float64
	CarrierFreq    float64
}

// Omega is the angular frequency in radians/sample.
func (p Params) Omega() float64 {
	return 2 * math.Pi * p.CarrierFreq / p.SampleRate
}

// ModulatePhases holds each phase for SamplesPerChip samples, emitting
// sample[n] = sin(omega*n + phase), where n is the absolute sample index
// since stream start (startSampleIndex + local offset). Output length is
// len(phases) * SamplesPerChip.
func ModulatePhases(phases []float64, startSampleIndex int64, p Params) []float64 {
	omega := p.Omega()
	out := make([]float64, len(phases)*p.SamplesPerChip)
	idx := 0
	for _, phi := range phases {
		for s := 0; s < p.SamplesPerChip; s++ {
			n := float64(startSampleIndex) + float64(idx)
			out[idx] = math.Sin(omega*n + phi)
			idx++
		}
	}
	return out
}

// Symbol is one demodulated chip-interval: the estimated phase and the
// I/Q amplitude, which is available for signal-strength estimation.
type Symbol struct {
	Phase     float64
	Amplitude float64
}

// DemodulateSymbols integrates I = sum(sample*sin(omega*n)) and
// Q = sum(sample*cos(omega*n)) over each SamplesPerChip-sample interval
// and reports phase = atan2(Q, I). len(samples) must be a multiple of
// SamplesPerChip; a short trailing partial interval is ignored.
func DemodulateSymbols(samples []float64, startSampleIndex int64, p Params) []Symbol {
	omega := p.Omega()
	numSymbols := len(samples) / p.SamplesPerChip
	out := make([]Symbol, numSymbols)
	for k := 0; k < numSymbols; k++ {
		var i, q float64
		base := k * p.SamplesPerChip
		for s := 0; s < p.SamplesPerChip; s++ {
			n := float64(startSampleIndex) + float64(base+s)
			samp := samples[base+s]
			i += samp * math.Sin(omega*n)
			q += samp * math.Cos(omega*n)
		}
		out[k] = Symbol{Phase: math.Atan2(q, i), Amplitude: math.Hypot(i, q)}
	}
	return out
}

// StreamModulator wraps ModulatePhases with a running absolute sample
// index so that phase stays continuous across successive calls, matching
// the transmit-side continuity requirement.
type StreamModulator struct {
	Params
	sampleIndex int64
}

// NewStreamModulator creates a transmit-side modulator starting at
// absolute sample index 0.
func NewStreamModulator(p Params) *StreamModulator {
	return &StreamModulator{Params: p}
}

// Modulate emits samples for phases, continuing the running sample index
// from the previous call.
func (m *StreamModulator) Modulate(phases []float64) []float64 {
	out := ModulatePhases(phases, m.sampleIndex, m.Params)
	m.sampleIndex += int64(len(out))
	return out
}
