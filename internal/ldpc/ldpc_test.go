package ldpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// parityCode builds a trivial single-check-row LDPC code over `width`
// bits where the one check is an even-parity equation over all bits --
// enough to exercise Encode/Decode's shape without a large literal
// incidence table.
func parityCode(t *testing.T, width int) *Code {
	t.Helper()
	inc := make([][2]int, width)
	for i := 0; i < width; i++ {
		inc[i] = [2]int{0, i}
	}
	code, err := NewCode(MatrixDescriptor{Height: 1, Width: width, Incidence: inc}, nil, width)
	require.NoError(t, err)
	return code
}

func Test_NewCode_RejectsWrongTransmittedN(t *testing.T) {
	_, err := NewCode(MatrixDescriptor{Height: 1, Width: 4, Incidence: [][2]int{{0, 0}}}, nil, 3)
	assert.Error(t, err)
}

func Test_Encode_ProducesCodewordSatisfyingParity(t *testing.T) {
	code := parityCode(t, 8)
	assert.Equal(t, 7, code.K)

	message := []byte{0b10110000} // 7 used bits + 1 padding bit, MSB-first
	codeword, err := code.Encode(message)
	require.NoError(t, err)

	bits := make([]byte, 8)
	for i := 0; i < 8; i++ {
		bits[i] = (codeword[0] >> uint(7-i)) & 1
	}
	var parity byte
	for _, b := range bits {
		parity ^= b
	}
	assert.Equal(t, byte(0), parity)
}

func Test_Encode_RejectsOversizedMessage(t *testing.T) {
	code := parityCode(t, 8)
	_, err := code.Encode([]byte{0, 0}) // 16 bits > K=7
	assert.Error(t, err)
}

func Test_Decode_NoNoiseConverges(t *testing.T) {
	code := parityCode(t, 8)
	message := []byte{0b10110010}
	codewordBytes, err := code.Encode(message)
	require.NoError(t, err)

	llrs := make([]int8, 8)
	for i := 0; i < 8; i++ {
		bit := (codewordBytes[0] >> uint(7-i)) & 1
		if bit == 0 {
			llrs[i] = 100
		} else {
			llrs[i] = -100
		}
	}

	result, err := code.Decode(llrs, 10)
	require.NoError(t, err)
	assert.True(t, result.Converged)

	// Compare only the 7 real message bits, MSB-first (K=7 < 8, low
	// padding bit is not part of the message).
	gotBits := make([]byte, 7)
	wantBits := make([]byte, 7)
	for i := 0; i < 7; i++ {
		gotBits[i] = (result.DecodedMessage[0] >> uint(7-i)) & 1
		wantBits[i] = (message[0] >> uint(7-i)) & 1
	}
	assert.Equal(t, wantBits, gotBits)
}

func Test_Decode_RejectsWrongLLRLength(t *testing.T) {
	code := parityCode(t, 8)
	_, err := code.Decode(make([]int8, 4), 10)
	assert.Error(t, err)
}

func Test_Decode_PuncturedPositionsInjectZeroLLR(t *testing.T) {
	inc := [][2]int{{0, 0}, {0, 1}, {0, 2}, {0, 3}}
	code, err := NewCode(MatrixDescriptor{Height: 1, Width: 4, Incidence: inc}, []int{3}, 3)
	require.NoError(t, err)

	// Only 3 transmitted LLRs even though Width is 4; bit 3 is punctured.
	_, err = code.Decode([]int8{100, 100, 100}, 5)
	require.NoError(t, err)
}

// checkParityZero verifies H*c^T == 0 over GF(2) directly from the
// descriptor's incidence list, independent of the adjacency lists Code
// itself builds -- spec.md sec.8's first invariant.
func checkParityZero(t *rapid.T, desc MatrixDescriptor, codewordBits []byte) {
	for chk := 0; chk < desc.Height; chk++ {
		var x byte
		for _, inc := range desc.Incidence {
			if inc[0] == chk {
				x ^= codewordBits[inc[1]]
			}
		}
		if x != 0 {
			t.Fatalf("check %d unsatisfied", chk)
		}
	}
}

func Test_Encode_AlwaysSatisfiesParity_IncludingRankDeficientMatrix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(4, 24).Draw(t, "width")
		height := rapid.IntRange(1, 6).Draw(t, "height")
		varDegree := rapid.IntRange(1, 4).Draw(t, "varDegree")
		seed := rapid.Uint64().Draw(t, "seed")
		addRedundant := rapid.Bool().Draw(t, "addRedundant")

		code, err := NewDeterministicCode(width, height, varDegree, seed, nil, width, addRedundant)
		if err != nil {
			t.Skip("construction rejected this combination")
		}

		kBytes := (code.K + 7) / 8
		msg := make([]byte, kBytes)
		for i := range msg {
			msg[i] = byte(rapid.IntRange(0, 255).Draw(t, "msgByte"))
		}

		codeword, err := code.Encode(msg)
		require.NoError(t, err)

		bits := make([]byte, width)
		for i := 0; i < width; i++ {
			bits[i] = (codeword[i/8] >> uint(7-(i%8))) & 1
		}
		checkParityZero(t, code.Desc, bits)
	})
}

func Test_Decode_ConfidentLLRsConvergeWithinFiveIterations(t *testing.T) {
	code, err := NewDeterministicCode(32, 3, 3, 0xDEADBEEF, nil, 32, false)
	require.NoError(t, err)

	msg := make([]byte, (code.K+7)/8)
	for i := range msg {
		msg[i] = byte(0xB7 + i)
	}
	codeword, err := code.Encode(msg)
	require.NoError(t, err)

	llrs := make([]int8, 32)
	for i := range llrs {
		bit := (codeword[i/8] >> uint(7-(i%8))) & 1
		if bit == 0 {
			llrs[i] = 120
		} else {
			llrs[i] = -120
		}
	}

	result, err := code.Decode(llrs, 5)
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.LessOrEqual(t, result.Iterations, 5)
}
