// Package dsss implements direct-sequence spread-spectrum spreading and
// despreading over a maximal-length (LFSR-derived) chip sequence.
//
// Grounded on other_examples/writerslogic-witnessd's spread_spectrum.go
// PN-sequence-generate-then-correlate shape, adapted from its
// HMAC-DRBG-keyed generator to a plain primitive-polynomial LFSR: the
// spreading code here is a physical-layer synchronization pattern agreed
// out of band between peers, not a secret, so a deterministic,
// reproducible-from-a-small-seed generator is the right tool, matching
// spec.md's "both ends must agree" requirement bit-exactly.
package dsss

import (
	"fmt"

	"github.com/kb9jhu/chirpmodem/internal/gf"
	"github.com/kb9jhu/chirpmodem/internal/modemerr"
)

// Chip is a spread-spectrum chip value, always +1 or -1.
type Chip = int8

// Sequence is an immutable maximal-length spreading-sequence descriptor:
// length n (a Mersenne number 2^m-1) and seed. Chips are generated once at
// construction and never mutated afterward.
type Sequence struct {
	N     int
	Seed  int
	M     int
	Chips []Chip
}

// NewSequence builds the deterministic chip sequence for length n (must be
// 2^m-1 for some m in [2,10]) and a nonzero seed. Two peers constructing a
// Sequence with the same (n, seed) produce bit-identical chips.
func NewSequence(n int, seed int) (*Sequence, error) {
	m, ok := mersenneDegree(n)
	if !ok {
		return nil, fmt.Errorf("dsss: n=%d: %w", n, modemerr.ErrBadSequenceLength)
	}
	if seed == 0 {
		return nil, fmt.Errorf("dsss: seed must be nonzero")
	}

	poly, ok := gf.StandardPrimitivePolys[m]
	if !ok {
		return nil, fmt.Errorf("dsss: no standard primitive polynomial for m=%d", m)
	}
	fullPoly := uint(poly) | (1 << uint(m))

	mask := (1 << uint(m)) - 1
	state := seed & mask
	if state == 0 {
		state = 1
	}

	chips := make([]Chip, n)
	for i := 0; i < n; i++ {
		bit := state & 1
		if bit == 0 {
			chips[i] = +1
		} else {
			chips[i] = -1
		}
		state <<= 1
		if state&(1<<uint(m)) != 0 {
			state ^= int(fullPoly)
		}
		state &= mask
	}

	return &Sequence{N: n, Seed: seed, M: m, Chips: chips}, nil
}

func mersenneDegree(n int) (int, bool) {
	for m := 2; m <= 10; m++ {
		if n == (1<<uint(m))-1 {
			return m, true
		}
	}
	return 0, false
}

// Spread maps bit b (0 or 1) to a chip sequence: +sequence for b==0,
// -sequence for b==1.
func (s *Sequence) Spread(bit byte) []Chip {
	out := make([]Chip, s.N)
	if bit == 0 {
		copy(out, s.Chips)
	} else {
		for i, c := range s.Chips {
			out[i] = -c
		}
	}
	return out
}

// Despread correlates a received chip block of length n against the
// sequence and hard-decides the bit from the sign of the correlation.
// Positive correlation decodes to bit 0, negative to bit 1.
func (s *Sequence) Despread(received []Chip) (bit byte, correlation int) {
	for i, c := range s.Chips {
		correlation += int(c) * int(received[i])
	}
	if correlation < 0 {
		bit = 1
	}
	return bit, correlation
}

// DespreadSoft returns an LLR alongside the hard bit. LLR is
// 2*correlation/noiseVariance, rounded and clamped to [-127,127]. LLR >= 0
// means bit 0, consistent with Despread's hard decision.
func (s *Sequence) DespreadSoft(received []Chip, noiseVariance float64) (bit byte, llr int8) {
	bit, correlation := s.Despread(received)
	if noiseVariance <= 0 {
		noiseVariance = 1
	}
	raw := 2 * float64(correlation) / noiseVariance
	llr = ClampLLR(raw)
	return bit, llr
}

// ClampLLR rounds and clamps a floating-point LLR to the modem's
// signed-8-bit LLR range [-127, 127].
func ClampLLR(v float64) int8 {
	r := int(v + sign(v)*0.5) // round half away from zero
	if r > 127 {
		return 127
	}
	if r < -127 {
		return -127
	}
	return int8(r)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
