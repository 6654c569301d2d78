// Package testchannel provides shared noise-injection helpers for tests
// that exercise the demodulator chain against a degraded channel --
// spec.md treats the channel model itself as out of scope, but several
// tests (pure-noise rejection, false-peak recovery, weak-signal resync)
// each need the same uniform or Gaussian noise a real channel would
// add, so it is factored out here rather than hand-rolled per test.
//
// Grounded on the teacher's own use of a seeded math/rand source for
// reproducible randomized behavior (doismellburning-samoyed/src/xmit.go's
// and multi_modem.go's p-persistence jitter via rand.Int63n): callers
// pass their own *rand.Rand built with rand.NewSource so every test stays
// deterministic across runs.
package testchannel

import "math/rand"

// Uniform fills dst with independent samples drawn uniformly from
// [-amplitude, amplitude].
func Uniform(rng *rand.Rand, dst []float64, amplitude float64) {
	for i := range dst {
		dst[i] = (rng.Float64()*2 - 1) * amplitude
	}
}

// AWGN fills dst with independent zero-mean Gaussian samples of the
// given standard deviation -- additive white Gaussian noise, the
// standard channel-impairment model for the weak-signal/noise-floor
// scenarios in spec.md sec.8.
func AWGN(rng *rand.Rand, dst []float64, stddev float64) {
	for i := range dst {
		dst[i] = rng.NormFloat64() * stddev
	}
}
