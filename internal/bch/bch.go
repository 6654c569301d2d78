// Package bch implements a single-error-correcting (t=1) BCH codec over
// GF(2^m), m <= 10.
//
// Grounded on doismellburning-samoyed/src/fx25_init.go and
// fx25_encode.go (Phil Karn's Reed-Solomon codec): the generator
// polynomial is built from its roots exactly as init_rs_char builds
// rs.genpoly, specialized from a general t-root RS generator to the
// single conjugate cycle of alpha that produces a t=1 BCH code; encode
// uses the same "shift register fed by a feedback term" idea as
// encode_rs_char, specialized to division by a degree-m generator instead
// of a degree-nroots one.
package bch

import (
	"fmt"

	"github.com/kb9jhu/chirpmodem/internal/bitpack"
	"github.com/kb9jhu/chirpmodem/internal/gf"
	"github.com/kb9jhu/chirpmodem/internal/modemerr"
)

// Status is the outcome of a Decode call.
type Status int

const (
	StatusSuccess Status = iota
	StatusCorrected
	StatusDetected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCorrected:
		return "corrected"
	case StatusDetected:
		return "detected"
	default:
		return "failed"
	}
}

// Params is an immutable BCH(n, k, t=1) code, memoized by its name via
// New.
type Params struct {
	Name  string
	N, K  int
	M     int
	Field *gf.Field

	// generatorMSB holds the r+1 = (N-K+1) GF(2) coefficients of the
	// generator polynomial, high degree first: generatorMSB[0] is the
	// x^(N-K) coefficient (always 1), generatorMSB[N-K] is the constant
	// term (always 1).
	generatorMSB []int
}

var cache = map[string]*Params{}

// New builds (or returns the memoized) BCH(n,k,1) parameters for GF(2^m)
// with the given primitive polynomial (low m bits only, leading x^m term
// implicit, e.g. 0x09 for x^7+x^3+1).
func New(name string, m int, primPoly uint) (*Params, error) {
	if p, ok := cache[name]; ok {
		return p, nil
	}

	field, err := gf.New(m, primPoly)
	if err != nil {
		return nil, err
	}

	generator := minimalPolynomial(field, 1) // conjugates of alpha^1
	r := len(generator) - 1
	n := field.N
	k := n - r

	generatorMSB := make([]int, r+1)
	for i, c := range generator {
		generatorMSB[r-i] = c
	}

	p := &Params{
		Name:         name,
		N:            n,
		K:            k,
		M:            m,
		Field:        field,
		generatorMSB: generatorMSB,
	}
	cache[name] = p
	return p, nil
}

// polyMul multiplies two GF(2^m)-coefficient polynomials, coefficients
// ordered low degree first.
func polyMul(f *gf.Field, a, b []int) []int {
	out := make([]int, len(a)+len(b)-1)
	for i, ai := range a {
		if ai == 0 {
			continue
		}
		for j, bj := range b {
			out[i+j] = f.Add(out[i+j], f.Mul(ai, bj))
		}
	}
	return out
}

// minimalPolynomial builds the minimal polynomial of alpha^e over GF(2),
// represented as field elements that are guaranteed, by construction, to
// be exactly 0 or 1 -- i.e. genuine GF(2) bits. Coefficients are ordered
// low degree first.
func minimalPolynomial(f *gf.Field, e int) []int {
	seen := map[int]bool{}
	var cycle []int
	cur := e % f.N
	for !seen[cur] {
		seen[cur] = true
		cycle = append(cycle, cur)
		cur = (cur * 2) % f.N
	}

	poly := []int{1}
	for _, exp := range cycle {
		root := f.Exp(exp)
		poly = polyMul(f, poly, []int{root, 1}) // (x + root)
	}
	return poly
}

// Encode pads dataBytes to K bits (MSB first, zero-padded on the low
// order end) and produces the systematic BCH codeword, N bits packed
// MSB-first into ceil(N/8) bytes.
func (p *Params) Encode(dataBytes []byte) ([]byte, error) {
	maxBytes := p.K / 8
	if len(dataBytes) > maxBytes {
		return nil, fmt.Errorf("bch %s: %w (max %d bytes)", p.Name, modemerr.ErrPayloadTooLarge, maxBytes)
	}

	msgBits := bitpack.UnpackBits(dataBytes, p.K)

	r := p.N - p.K
	shifted := make([]int, p.N)
	for i, b := range msgBits {
		shifted[i] = int(b)
	}

	for i := 0; i < p.K; i++ {
		if shifted[i] == 0 {
			continue
		}
		for j := 0; j <= r; j++ {
			shifted[i+j] ^= p.generatorMSB[j]
		}
	}

	codewordBits := make([]byte, p.N)
	for i := 0; i < p.K; i++ {
		codewordBits[i] = msgBits[i]
	}
	for i := 0; i < r; i++ {
		codewordBits[p.K+i] = byte(shifted[p.K+i])
	}

	return bitpack.PackBits(codewordBits), nil
}

// Result is the outcome of Decode.
type Result struct {
	Data              []byte
	Status            Status
	ErrorCount        int
	CorrectedPosition int // valid iff Status == StatusCorrected
	IsUncorrectable   bool
}

// syndrome evaluates the received codeword bits (MSB first, highest
// degree first) at alpha via Horner's rule over GF(2^m).
func (p *Params) syndrome(bits []byte) int {
	alpha := p.Field.Exp(1)
	result := 0
	for _, b := range bits {
		result = p.Field.Mul(result, alpha)
		if b == 1 {
			result = p.Field.Add(result, 1)
		}
	}
	return result
}

// Decode evaluates the syndrome of codewordBytes and corrects a single
// bit error if present.
func (p *Params) Decode(codewordBytes []byte) Result {
	if len(codewordBytes)*8 < p.N {
		return Result{Status: StatusFailed}
	}

	bits := bitpack.UnpackBits(codewordBytes, p.N)

	s1 := p.syndrome(bits)
	if s1 == 0 {
		return Result{
			Data:   bitpack.PackBits(bits[:p.K]),
			Status: StatusSuccess,
		}
	}

	pos := p.N - 1 - p.Field.Log(s1)
	if pos < 0 || pos >= p.N {
		return Result{Status: StatusDetected, ErrorCount: 2, IsUncorrectable: true}
	}

	corrected := append([]byte(nil), bits...)
	corrected[pos] ^= 1

	if p.syndrome(corrected) == 0 {
		return Result{
			Data:              bitpack.PackBits(corrected[:p.K]),
			Status:            StatusCorrected,
			ErrorCount:        1,
			CorrectedPosition: pos,
		}
	}

	return Result{Status: StatusDetected, ErrorCount: 2, IsUncorrectable: true}
}
