package bitpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_PackUnpackRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(t, "data")
		n := len(data) * 8

		bits := UnpackBits(data, n)
		assert.Len(t, bits, n)

		packed := PackBits(bits)
		assert.Equal(t, data, packed)
	})
}

func Test_UnpackBits_ZeroPadsBeyondInput(t *testing.T) {
	bits := UnpackBits([]byte{0xFF}, 12)
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0}, bits)
}

func Test_UnpackBits_TruncatesBelowInput(t *testing.T) {
	bits := UnpackBits([]byte{0xF0}, 4)
	assert.Equal(t, []byte{1, 1, 1, 1}, bits)
}

func Test_PackBits_MSBFirst(t *testing.T) {
	out := PackBits([]byte{1, 0, 1, 0, 1, 0, 1, 0})
	assert.Equal(t, []byte{0xAA}, out)
}

func Test_PackBits_PartialByteZeroPadded(t *testing.T) {
	out := PackBits([]byte{1, 1})
	assert.Equal(t, []byte{0xC0}, out)
}

func Test_EvenParity(t *testing.T) {
	assert.Equal(t, byte(0), EvenParity([]byte{1, 1, 0, 0}))
	assert.Equal(t, byte(1), EvenParity([]byte{1, 1, 1, 0}))
	assert.Equal(t, byte(0), EvenParity(nil))
}
