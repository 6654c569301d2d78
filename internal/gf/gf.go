// Package gf implements GF(2^m) arithmetic via precomputed log/antilog
// tables, the same table-construction idiom as Phil Karn's init_rs_char
// (carried in doismellburning-samoyed/src/fx25_init.go), specialized here
// to the modem's BCH codec instead of general t-error Reed-Solomon.
//
// A Field is created once per BCH code parameter set and is immutable and
// safe for concurrent readers afterward.
package gf

import "fmt"

// Field is a precomputed GF(2^m) with m <= 10.
type Field struct {
	M    int
	N    int   // 2^m - 1, the multiplicative order
	Poly uint  // primitive polynomial, degree m, with the x^m term implicit
	exp  []int // exp[i] = alpha^i, for i in [0, N), as an integer in [1, 2^m-1]
	log  []int // log[v] = i such that alpha^i = v, for v in [1, 2^m-1]; log[0] is unused
}

// New builds the log/antilog tables for GF(2^m) from a primitive
// polynomial (given without its implicit leading x^m term, e.g. for
// x^7+x^3+1 pass 0x09). Returns an error if primPoly does not generate
// the full multiplicative group (i.e. is not primitive).
func New(m int, primPoly uint) (*Field, error) {
	if m < 2 || m > 10 {
		return nil, fmt.Errorf("gf: m must be in [2,10], got %d", m)
	}

	n := (1 << uint(m)) - 1
	f := &Field{
		M:    m,
		N:    n,
		Poly: primPoly,
		exp:  make([]int, n),
		log:  make([]int, n+1),
	}

	sr := 1
	for i := 0; i < n; i++ {
		f.exp[i] = sr
		f.log[sr] = i
		sr <<= 1
		if sr&(1<<uint(m)) != 0 {
			sr ^= int(primPoly) | (1 << uint(m))
		}
	}
	if sr != 1 {
		return nil, fmt.Errorf("gf: polynomial 0x%x is not primitive for m=%d", primPoly, m)
	}

	return f, nil
}

// Exp returns alpha^i, normalizing i into [0, N).
func (f *Field) Exp(i int) int {
	i %= f.N
	if i < 0 {
		i += f.N
	}
	return f.exp[i]
}

// Log returns i such that alpha^i == v. v must be nonzero.
func (f *Field) Log(v int) int {
	return f.log[v]
}

// StandardPrimitivePolys lists a textbook primitive polynomial for each
// supported field degree, expressed as the low m bits (the x^m term is
// implicit). Shared by the BCH codec and the DSSS maximal-length-sequence
// generator, which is itself a degree-m primitive-polynomial LFSR walking
// the same multiplicative group these tables generate.
var StandardPrimitivePolys = map[int]uint{
	2:  0x3, // x^2+x+1
	3:  0x3, // x^3+x+1
	4:  0x3, // x^4+x+1
	5:  0x5, // x^5+x^2+1
	6:  0x3, // x^6+x+1
	7:  0x9, // x^7+x^3+1
	8:  0x1D, // x^8+x^4+x^3+x^2+1
	9:  0x11, // x^9+x^4+1
	10: 0x9,  // x^10+x^3+1
}

// Add is GF(2^m) addition, which is XOR.
func (f *Field) Add(a, b int) int {
	return a ^ b
}

// Mul is GF(2^m) multiplication.
func (f *Field) Mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return f.Exp(f.Log(a) + f.Log(b))
}

// Inv returns the multiplicative inverse of a nonzero element.
func (f *Field) Inv(a int) int {
	return f.Exp(-f.Log(a))
}
