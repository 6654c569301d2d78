package ldpc

// NewDeterministicCode builds a Code from a deterministically-generated
// regular parity-check matrix, rather than a hand-authored incidence
// list. height is the number of check rows to generate before
// addRedundantRow runs; addRedundantRow, when true, appends one more
// linearly dependent check row (the XOR of rows 0 and 1) so the
// constructed code deliberately has rank < Height -- exercising the
// rank-deficient k = N-rank path.
func NewDeterministicCode(width, height, varDegree int, seed uint64, punctured []int, transmittedN int, addRedundantRow bool) (*Code, error) {
	desc := buildRegularH(width, height, varDegree, seed)
	if addRedundantRow {
		desc = withRedundantRow(desc, 0, 1)
	}
	return NewCode(desc, punctured, transmittedN)
}

// buildRegularH deterministically constructs a parity-check matrix with
// `height` check rows and (approximately) regular variable-node degree
// varDegree: each bit is wired to min(varDegree, height) distinct checks.
// The walk is a fixed xorshift64 PRNG seeded by `seed`: no real randomness
// is involved, so the same (width, height, varDegree, seed) always
// produces byte-identical output, which is what lets the
// frame-configuration table be "shipped as a constant" (spec.md sec.3)
// without a literal incidence-pair table in source.
//
// Grounded on the same maximal-length-LFSR-style deterministic stepping
// used by internal/dsss, generalized from a chip sequence to a bipartite
// edge assignment.
func buildRegularH(width, height, varDegree int, seed uint64) MatrixDescriptor {
	if height < 1 {
		height = 1
	}

	state := seed
	if state == 0 {
		state = 0x9E3779B97F4A7C15
	}
	next := func() uint64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return state
	}

	incidence := make([][2]int, 0, width*varDegree)
	for bit := 0; bit < width; bit++ {
		chosen := make(map[int]bool, varDegree)
		for len(chosen) < varDegree && len(chosen) < height {
			c := int(next() % uint64(height))
			if !chosen[c] {
				chosen[c] = true
				incidence = append(incidence, [2]int{c, bit})
			}
		}
	}

	return MatrixDescriptor{Height: height, Width: width, Incidence: incidence}
}

// withRedundantRow appends one extra check row equal to the GF(2) sum
// (symmetric difference of incident-bit sets) of two existing rows, so
// the resulting matrix has rank == original rank even though its height
// grew by one -- the rank-deficient case spec.md sec.3/sec.9 requires
// implementations to handle (k = N - rank, not N - height).
func withRedundantRow(d MatrixDescriptor, rowA, rowB int) MatrixDescriptor {
	bitsA := map[int]bool{}
	bitsB := map[int]bool{}
	for _, inc := range d.Incidence {
		if inc[0] == rowA {
			bitsA[inc[1]] = true
		}
		if inc[0] == rowB {
			bitsB[inc[1]] = true
		}
	}

	newRow := d.Height
	incidence := append([][2]int{}, d.Incidence...)
	for bit := range bitsA {
		if !bitsB[bit] {
			incidence = append(incidence, [2]int{newRow, bit})
		}
	}
	for bit := range bitsB {
		if !bitsA[bit] {
			incidence = append(incidence, [2]int{newRow, bit})
		}
	}

	return MatrixDescriptor{Height: d.Height + 1, Width: d.Width, Incidence: incidence}
}
