package framer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func llrsFromBits(bits []byte) []int8 {
	out := make([]int8, len(bits))
	for i, b := range bits {
		if b == 0 {
			out[i] = 100
		} else {
			out[i] = -100
		}
	}
	return out
}

func Test_Build_PrependsPreambleAndSyncWord(t *testing.T) {
	userData := make([]byte, 15)
	frame, err := Build(userData, FrameOptions{SequenceNumber: 3, FrameType: FrameTypeData, LdpcNType: 0})
	require.NoError(t, err)

	assert.Equal(t, Preamble, frame[:len(Preamble)])
	assert.Equal(t, SyncWord, frame[len(Preamble):len(Preamble)+len(SyncWord)])
}

func Test_Build_RejectsOversizedPayload(t *testing.T) {
	_, err := Build(make([]byte, 16), FrameOptions{LdpcNType: 0})
	assert.Error(t, err)
}

func Test_Build_RejectsUnknownLdpcNType(t *testing.T) {
	_, err := Build(make([]byte, 4), FrameOptions{LdpcNType: 4})
	assert.Error(t, err)
}

func Test_BuildHeaderBits_EvenParity(t *testing.T) {
	bits := buildHeaderBits(FrameOptions{SequenceNumber: 5, FrameType: FrameTypeNak, LdpcNType: 2})
	require.Len(t, bits, 8)

	data, parity := bits[:7], bits[7]
	var p byte
	for _, b := range data {
		p ^= b
	}
	assert.Equal(t, p, parity)
}

func Test_ParseHeaderBits_RoundTrip(t *testing.T) {
	opts := FrameOptions{SequenceNumber: 6, FrameType: FrameTypeControl, LdpcNType: 3}
	bits := buildHeaderBits(opts)
	seq, ft, lt := parseHeaderBits(bits[:7])
	assert.Equal(t, opts.SequenceNumber, seq)
	assert.Equal(t, opts.FrameType, ft)
	assert.Equal(t, opts.LdpcNType, lt)
}

func Test_Decoder_RoundTripNoErrors(t *testing.T) {
	userData := make([]byte, 15)
	for i := range userData {
		userData[i] = byte(i*17 + 3)
	}
	opts := FrameOptions{SequenceNumber: 5, FrameType: FrameTypeData, LdpcNType: 0}

	frame, err := Build(userData, opts)
	require.NoError(t, err)

	header := frame[len(Preamble)+len(SyncWord) : len(Preamble)+len(SyncWord)+8]
	payloadBits := frame[len(Preamble)+len(SyncWord)+8:]

	dec := NewDecoder()
	assert.Equal(t, "WAITING_HEADER", dec.GetState())

	ok, err := dec.Initialize(header)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "WAITING_DATA", dec.GetState())
	assert.Equal(t, len(payloadBits), dec.DataLength())

	err = dec.AddDataBits(llrsFromBits(payloadBits))
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dec.GetState())

	result, err := dec.Finalize(50)
	require.NoError(t, err)
	assert.Equal(t, opts.SequenceNumber, result.SequenceNumber)
	assert.Equal(t, opts.FrameType, result.FrameType)
	assert.Equal(t, opts.LdpcNType, result.LdpcNType)
	assert.Equal(t, userData, result.UserData)
	assert.Equal(t, FrameStatusSuccess, result.Status)
	assert.True(t, result.LDPCConverged)
	assert.Equal(t, 0, result.BCHErrorCount)
}

func Test_Decoder_Initialize_RejectsBadParity(t *testing.T) {
	opts := FrameOptions{SequenceNumber: 1, FrameType: FrameTypeAck, LdpcNType: 1}
	bits := buildHeaderBits(opts)
	bits[7] ^= 1 // corrupt the parity bit

	dec := NewDecoder()
	ok, err := dec.Initialize(bits)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "WAITING_HEADER", dec.GetState())
}

func Test_Decoder_Initialize_RejectsWrongLength(t *testing.T) {
	dec := NewDecoder()
	_, err := dec.Initialize(make([]byte, 7))
	assert.Error(t, err)
}

func Test_Decoder_AddDataBits_IgnoresOverdelivery(t *testing.T) {
	dec := NewDecoder()
	ok, err := dec.Initialize(buildHeaderBits(FrameOptions{LdpcNType: 0}))
	require.NoError(t, err)
	require.True(t, ok)

	extra := make([]int8, dec.DataLength()+50)
	err = dec.AddDataBits(extra)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dec.GetState())
	assert.Equal(t, 0, dec.RemainingBits())
}

func Test_Decoder_Finalize_RequiresCompletedState(t *testing.T) {
	dec := NewDecoder()
	_, err := dec.Finalize(10)
	assert.Error(t, err)
}

func Test_Decoder_Reset_ReturnsToWaitingHeader(t *testing.T) {
	dec := NewDecoder()
	ok, err := dec.Initialize(buildHeaderBits(FrameOptions{LdpcNType: 0}))
	require.NoError(t, err)
	require.True(t, ok)

	dec.Reset()
	assert.Equal(t, "WAITING_HEADER", dec.GetState())
	assert.Equal(t, 0, dec.DataLength())
}

func Test_FrameStatus_String(t *testing.T) {
	assert.Equal(t, "success", FrameStatusSuccess.String())
	assert.Equal(t, "bch_corrected", FrameStatusBCHCorrected.String())
}
