// Package ldpc implements a systematic LDPC encoder and a min-sum
// iterative soft-decision decoder over a sparse bipartite (Tanner) graph.
//
// The pack carries no direct LDPC example; the bipartite-graph-as-
// adjacency-lists shape and the small-struct-of-slices style follow the
// teacher's general idiom (doismellburning-samoyed/src/fx25_init.go's
// table-driven codec construction), and the deterministic matrix
// construction (construct.go) reuses the maximal-length-LFSR idea from
// internal/dsss so that, like spec.md requires, the frame-configuration
// table can be "shipped as a constant" without a large literal incidence
// table in source.
package ldpc

import (
	"fmt"
	"math"

	"github.com/kb9jhu/chirpmodem/internal/bitpack"
	"github.com/kb9jhu/chirpmodem/internal/modemerr"
)

// MatrixDescriptor is the parsed parity-check matrix: height (check
// nodes), width (variable/bit nodes), and a list of (check, bit)
// 1-positions. The core never parses an external file format; it only
// ever consumes an already-built descriptor like this one.
type MatrixDescriptor struct {
	Height    int
	Width     int
	Incidence [][2]int // (checkIndex, bitIndex)
}

type edge struct {
	check, bit int
}

// Code is an immutable, constructed-once LDPC code: adjacency lists,
// systematic form, and puncture set. Safe for concurrent use by multiple
// demodulator instances once constructed.
type Code struct {
	Desc MatrixDescriptor

	Punctured map[int]bool

	checkAdj [][]int // checkAdj[c] = bit indices incident to check c
	bitAdj   [][]int // bitAdj[b] = check indices incident to bit b

	edges      []edge
	checkEdges [][]int // checkEdges[c] = indices into edges
	bitEdges   [][]int // bitEdges[b] = indices into edges

	Rank    int
	K       int   // Width - Rank, the information length
	colPerm []int // colPerm[permutedPos] = original column index
	// p[i] (the parity bits in permuted order) = XOR over j where P[i][j]==1 of m[j]
	p [][]bool // Rank x K

	TransmittedN int // bits actually sent over the wire
}

// NewCode constructs a Code from a parity-check matrix descriptor, a set
// of punctured bit indices (0-based, within [0,Width)), and the number of
// bits actually transmitted (Width - len(punctured)).
func NewCode(desc MatrixDescriptor, punctured []int, transmittedN int) (*Code, error) {
	punctSet := make(map[int]bool, len(punctured))
	for _, b := range punctured {
		punctSet[b] = true
	}
	if desc.Width-len(punctSet) != transmittedN {
		return nil, fmt.Errorf("ldpc: width %d minus %d punctured bits != transmittedN %d", desc.Width, len(punctSet), transmittedN)
	}

	c := &Code{
		Desc:         desc,
		Punctured:    punctSet,
		TransmittedN: transmittedN,
	}

	c.checkAdj = make([][]int, desc.Height)
	c.bitAdj = make([][]int, desc.Width)
	for _, inc := range desc.Incidence {
		chk, bit := inc[0], inc[1]
		c.checkAdj[chk] = append(c.checkAdj[chk], bit)
		c.bitAdj[bit] = append(c.bitAdj[bit], chk)
	}

	c.edges = make([]edge, len(desc.Incidence))
	c.checkEdges = make([][]int, desc.Height)
	c.bitEdges = make([][]int, desc.Width)
	for i, inc := range desc.Incidence {
		c.edges[i] = edge{check: inc[0], bit: inc[1]}
		c.checkEdges[inc[0]] = append(c.checkEdges[inc[0]], i)
		c.bitEdges[inc[1]] = append(c.bitEdges[inc[1]], i)
	}

	if err := c.buildSystematicForm(); err != nil {
		return nil, err
	}

	return c, nil
}

// buildSystematicForm runs Gaussian elimination with column permutation
// over GF(2) to produce [I_rank | P] in the first `rank` permuted
// columns, handling rank-deficient H (rank < Height) by leaving the
// redundant rows as all-zero rows rather than assuming rank == Height.
func (c *Code) buildSystematicForm() error {
	rows, cols := c.Desc.Height, c.Desc.Width

	dense := make([][]bool, rows)
	for r := 0; r < rows; r++ {
		dense[r] = make([]bool, cols)
	}
	for _, inc := range c.Desc.Incidence {
		dense[inc[0]][inc[1]] = true
	}

	colPerm := make([]int, cols)
	for i := range colPerm {
		colPerm[i] = i
	}

	pivotRow := 0
	for col := 0; col < cols && pivotRow < rows; col++ {
		sel := -1
		for row := pivotRow; row < rows; row++ {
			if dense[row][col] {
				sel = row
				break
			}
		}
		if sel == -1 {
			continue
		}
		dense[pivotRow], dense[sel] = dense[sel], dense[pivotRow]

		for row := 0; row < rows; row++ {
			if row != pivotRow && dense[row][col] {
				xorRow(dense[row], dense[pivotRow])
			}
		}

		for row := 0; row < rows; row++ {
			dense[row][col], dense[row][pivotRow] = dense[row][pivotRow], dense[row][col]
		}
		colPerm[col], colPerm[pivotRow] = colPerm[pivotRow], colPerm[col]

		pivotRow++
	}

	rank := pivotRow
	k := cols - rank

	p := make([][]bool, rank)
	for i := 0; i < rank; i++ {
		p[i] = make([]bool, k)
		copy(p[i], dense[i][rank:cols])
	}

	c.Rank = rank
	c.K = k
	c.colPerm = colPerm
	c.p = p
	return nil
}

func xorRow(dst, src []bool) {
	for i := range dst {
		if src[i] {
			dst[i] = !dst[i]
		}
	}
}

// Encode accepts up to ceil(k/8) bytes and unpacks k = Width-Rank
// message bits from them, MSB first (bits past k are ignored), computes the
// systematic codeword p = P*m (permuted coordinates), maps [p|m] back to
// original column order via the inverse of the construction permutation,
// drops the punctured bits, and packs the transmitted bits MSB-first.
//
// Invariant: for every codeword c this produces, H*c^T == 0 over GF(2),
// regardless of rank deficiency, because the permutation is applied
// identically to H's columns and to c.
func (c *Code) Encode(messageBytes []byte) ([]byte, error) {
	if len(messageBytes) > (c.K+7)/8 {
		return nil, fmt.Errorf("ldpc: message exceeds %d bits (k): %w", c.K, modemerr.ErrPayloadTooLarge)
	}

	mBits := bitpack.UnpackBits(messageBytes, c.K)
	m := make([]bool, c.K)
	for i, b := range mBits {
		m[i] = b == 1
	}

	permuted := make([]bool, c.Desc.Width)
	for i := 0; i < c.Rank; i++ {
		var bit bool
		for j, pij := range c.p[i] {
			if pij && m[j] {
				bit = !bit
			}
		}
		permuted[i] = bit
	}
	copy(permuted[c.Rank:], m)

	original := make([]byte, c.Desc.Width)
	for i, v := range permuted {
		orig := c.colPerm[i]
		if v {
			original[orig] = 1
		}
	}

	transmitted := make([]byte, 0, c.TransmittedN)
	for bit := 0; bit < c.Desc.Width; bit++ {
		if c.Punctured[bit] {
			continue
		}
		transmitted = append(transmitted, original[bit])
	}

	return bitpack.PackBits(transmitted), nil
}

// DecodeResult is the outcome of Decode.
type DecodeResult struct {
	DecodedMessage  []byte
	DecodedCodeword []byte
	Iterations      int
	Converged       bool
}

// Decode runs min-sum message passing on the Tanner graph. receivedLLRs
// must have length TransmittedN; punctured positions are injected as LLR
// 0 before iterating. Non-convergence within maxIterations is reported,
// not treated as an error -- the caller (the framer) decides whether to
// still attempt BCH on the extracted message.
func (c *Code) Decode(receivedLLRs []int8, maxIterations int) (DecodeResult, error) {
	if len(receivedLLRs) != c.TransmittedN {
		return DecodeResult{}, fmt.Errorf("ldpc: expected %d LLRs, got %d", c.TransmittedN, len(receivedLLRs))
	}

	channelLLR := make([]float64, c.Desc.Width)
	idx := 0
	for bit := 0; bit < c.Desc.Width; bit++ {
		if c.Punctured[bit] {
			channelLLR[bit] = 0
			continue
		}
		channelLLR[bit] = float64(receivedLLRs[idx])
		idx++
	}

	btoC := make([]float64, len(c.edges))
	ctoB := make([]float64, len(c.edges))
	for i, e := range c.edges {
		btoC[i] = channelLLR[e.bit]
	}

	posterior := make([]float64, c.Desc.Width)
	hard := make([]byte, c.Desc.Width)

	converged := false
	iterations := 0

	for iter := 0; iter < maxIterations; iter++ {
		iterations = iter + 1

		for _, eidxs := range c.checkEdges {
			for _, e := range eidxs {
				minAbs := math.Inf(1)
				sign := 1.0
				for _, e2 := range eidxs {
					if e2 == e {
						continue
					}
					v := btoC[e2]
					if math.Abs(v) < minAbs {
						minAbs = math.Abs(v)
					}
					if v < 0 {
						sign = -sign
					}
				}
				if math.IsInf(minAbs, 1) {
					minAbs = 0
				}
				ctoB[e] = sign * minAbs
			}
		}

		for bit, eidxs := range c.bitEdges {
			total := channelLLR[bit]
			for _, e := range eidxs {
				total += ctoB[e]
			}
			posterior[bit] = total
			if total < 0 {
				hard[bit] = 1
			} else {
				hard[bit] = 0
			}
		}

		for bit, eidxs := range c.bitEdges {
			for _, e := range eidxs {
				btoC[e] = posterior[bit] - ctoB[e]
			}
		}

		if c.allChecksSatisfied(hard) {
			converged = true
			break
		}
	}

	decodedMessage := make([]byte, c.K)
	for j := 0; j < c.K; j++ {
		orig := c.colPerm[c.Rank+j]
		decodedMessage[j] = hard[orig]
	}

	return DecodeResult{
		DecodedMessage:  bitpack.PackBits(decodedMessage),
		DecodedCodeword: bitpack.PackBits(hard),
		Iterations:      iterations,
		Converged:       converged,
	}, nil
}

func (c *Code) allChecksSatisfied(hard []byte) bool {
	for _, bits := range c.checkAdj {
		var x byte
		for _, b := range bits {
			x ^= hard[b]
		}
		if x != 0 {
			return false
		}
	}
	return true
}
