package framer

import (
	"fmt"

	"github.com/kb9jhu/chirpmodem/internal/bch"
	"github.com/kb9jhu/chirpmodem/internal/ldpc"
	"github.com/kb9jhu/chirpmodem/internal/modemerr"
)

// bchCode is the single reused BCH(127,120,1) codec, shared by every
// ldpcNType profile. See SPEC_FULL.md's frame-configuration table for the
// rationale.
var bchCode = bch.BCH127120_1()

// profile pairs one LDPC code with the payload cap its information
// length permits without truncating the BCH codeword.
type profile struct {
	ldpcNType       byte
	ldpcCode        *ldpc.Code
	maxPayloadBytes int
}

// profileSpec describes one row of the frame-configuration table before
// its LDPC code is constructed.
type profileSpec struct {
	width, height, varDegree int
	seed                     uint64
	punctured                []int
	transmittedN             int
	addRedundantRow          bool
}

func punctureRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// profileSpecs is the closed frame-configuration table: one entry per
// 2-bit ldpcNType value. Matrix construction is fully deterministic
// (construct.go's xorshift64 walk), so this table -- despite not being a
// literal incidence list -- is exactly the "constant" spec.md requires:
// the same four (width, height, varDegree, seed) tuples always produce
// the same four parity-check matrices.
var profileSpecs = [4]profileSpec{
	{width: 128, height: 1, varDegree: 3, seed: 0xA5A5A5A5A5A5A5A5, transmittedN: 128},
	{width: 256, height: 2, varDegree: 3, seed: 0xC2B2AE3D27D4EB4F, transmittedN: 256},
	{width: 512, height: 4, varDegree: 3, seed: 0x165667B19E3779F9, transmittedN: 512},
	{width: 1040, height: 8, varDegree: 3, seed: 0x27D4EB2F165667C5, punctured: punctureRange(1024, 1040), transmittedN: 1024, addRedundantRow: true},
}

var profiles = buildProfiles()

func buildProfiles() [4]*profile {
	var out [4]*profile
	for i, spec := range profileSpecs {
		code, err := ldpc.NewDeterministicCode(spec.width, spec.height, spec.varDegree, spec.seed, spec.punctured, spec.transmittedN, spec.addRedundantRow)
		if err != nil {
			panic(fmt.Sprintf("framer: profile %d: %v", i, err))
		}
		maxPayload := bchCode.K / 8
		if code.K < bchCode.N {
			// Would truncate real BCH parity bits; every shipped profile
			// is tuned to avoid this, so seeing it means profileSpecs
			// was edited without re-tuning height.
			panic(fmt.Sprintf("framer: profile %d: ldpc k=%d shorter than bch n=%d", i, code.K, bchCode.N))
		}
		out[i] = &profile{ldpcNType: byte(i), ldpcCode: code, maxPayloadBytes: maxPayload}
	}
	return out
}

func profileFor(ldpcNType byte) (*profile, error) {
	if int(ldpcNType) >= len(profiles) {
		return nil, fmt.Errorf("framer: ldpcNType %d: %w", ldpcNType, modemerr.ErrUnknownLdpcNType)
	}
	return profiles[ldpcNType], nil
}
