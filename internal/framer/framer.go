// Package framer assembles and disassembles the modem's frame wire
// format: preamble, sync word, parity-protected header, and a BCH+LDPC
// protected payload. It drives the codecs in internal/bch and
// internal/ldpc but knows nothing about spreading, modulation, or
// acquisition -- those live in internal/dsss, internal/dpsk,
// internal/carrier, and internal/acquire.
//
// Grounded on the table-driven "profile selects a codec" shape of
// doismellburning-samoyed/src/fx25_init.go (which keeps a small table of
// named Reed-Solomon configurations and looks one up by a tag byte), here
// generalized to a 2-bit ldpcNType selecting an LDPC+BCH pairing instead
// of an RS block size.
package framer

import (
	"fmt"

	"github.com/kb9jhu/chirpmodem/internal/bch"
	"github.com/kb9jhu/chirpmodem/internal/bitpack"
	"github.com/kb9jhu/chirpmodem/internal/modemerr"
)

// Preamble and sync word bit patterns (one byte per bit, 0 or 1),
// spec.md sec 4.H / sec 6.
var (
	Preamble = []byte{0, 0, 0, 0}
	SyncWord = []byte{1, 0, 1, 1, 0, 1, 0, 0}
)

// FrameType distinguishes the 2-bit frameType header field's meanings.
// The core only assigns meaning to the bits; upper layers (the
// XModem-style transport) interpret FrameTypeControl further.
type FrameType byte

const (
	FrameTypeData FrameType = iota
	FrameTypeControl
	FrameTypeAck
	FrameTypeNak
)

// FrameStatus tags how a DecodedFrame's payload was recovered.
type FrameStatus int

const (
	FrameStatusSuccess FrameStatus = iota
	FrameStatusBCHCorrected
)

func (s FrameStatus) String() string {
	if s == FrameStatusBCHCorrected {
		return "bch_corrected"
	}
	return "success"
}

// FrameOptions selects the header fields for one outgoing frame.
type FrameOptions struct {
	SequenceNumber byte // 3 bits, 0-7
	FrameType      FrameType
	LdpcNType      byte // 2 bits, 0-3: selects the frame-configuration profile
}

// Build assembles one complete frame as a slice of hard bits (one byte
// per bit, value 0 or 1), ready for internal/dsss.Spread. It implements spec.md sec.4.H's seven build
// steps in order.
func Build(userData []byte, opts FrameOptions) ([]byte, error) {
	prof, err := profileFor(opts.LdpcNType)
	if err != nil {
		return nil, err
	}
	if len(userData) > prof.maxPayloadBytes {
		return nil, fmt.Errorf("framer: %d bytes: %w (max %d for ldpcNType %d)", len(userData), modemerr.ErrPayloadTooLarge, prof.maxPayloadBytes, opts.LdpcNType)
	}

	header := buildHeaderBits(opts)

	bchCodeword, err := bchCode.Encode(userData)
	if err != nil {
		return nil, err
	}
	bchBits := bitpack.UnpackBits(bchCodeword, bchCode.N)

	resized := resizeBits(bchBits, prof.ldpcCode.K)
	ldpcMessage := bitpack.PackBits(resized)

	payload, err := prof.ldpcCode.Encode(ldpcMessage)
	if err != nil {
		return nil, err
	}
	payloadBits := bitpack.UnpackBits(payload, prof.ldpcCode.TransmittedN)

	out := make([]byte, 0, len(Preamble)+len(SyncWord)+len(header)+len(payloadBits))
	out = append(out, Preamble...)
	out = append(out, SyncWord...)
	out = append(out, header...)
	out = append(out, payloadBits...)
	return out, nil
}

// resizeBits truncates or zero-pads bits to exactly n bits.
func resizeBits(bits []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, bits)
	return out
}

// buildHeaderBits lays out the 8 header bits MSB-first as
// S2 S1 S0 T1 T0 N1 N0 P, per spec.md sec.6's wire format.
func buildHeaderBits(opts FrameOptions) []byte {
	seq := opts.SequenceNumber & 0x7
	ft := byte(opts.FrameType) & 0x3
	lt := opts.LdpcNType & 0x3

	bits := []byte{
		(seq >> 2) & 1,
		(seq >> 1) & 1,
		seq & 1,
		(ft >> 1) & 1,
		ft & 1,
		(lt >> 1) & 1,
		lt & 1,
	}
	return append(bits, bitpack.EvenParity(bits))
}

// parseHeaderBits is initialize's inverse of buildHeaderBits: it does
// not itself validate parity, that is Initialize's job.
func parseHeaderBits(bits []byte) (seq byte, ft FrameType, lt byte) {
	seq = bits[0]<<2 | bits[1]<<1 | bits[2]
	ft = FrameType(bits[3]<<1 | bits[4])
	lt = bits[5]<<1 | bits[6]
	return
}

// state is the receive-side state machine's current phase.
type state int

const (
	stateWaitingHeader state = iota
	stateWaitingData
	stateCompleted
)

func (s state) String() string {
	switch s {
	case stateWaitingHeader:
		return "WAITING_HEADER"
	case stateWaitingData:
		return "WAITING_DATA"
	default:
		return "COMPLETED"
	}
}

// DecodedFrame is the result of successfully finalizing a frame.
type DecodedFrame struct {
	SequenceNumber byte
	FrameType      FrameType
	LdpcNType      byte
	UserData       []byte
	Status         FrameStatus
	LDPCConverged  bool
	BCHErrorCount  int
}

// Decoder is the receive-side per-frame state machine of spec.md
// sec.4.H: WAITING_HEADER -> WAITING_DATA -> COMPLETED. One Decoder
// handles exactly one frame; the streaming demodulator (internal/
// streamdemod) owns the decision to construct a fresh Decoder per
// acquisition.
type Decoder struct {
	st state

	prof *profile

	seq       byte
	frameType FrameType
	ldpcNType byte

	llrs []int8
}

// NewDecoder returns a Decoder ready to receive a header.
func NewDecoder() *Decoder {
	return &Decoder{st: stateWaitingHeader}
}

// GetState reports the decoder's current phase as a string, matching
// the state names used throughout spec.md sec.4.
func (d *Decoder) GetState() string {
	return d.st.String()
}

// DataLength is the number of payload LLRs this frame expects (LDPC N),
// valid only once Initialize has succeeded.
func (d *Decoder) DataLength() int {
	if d.prof == nil {
		return 0
	}
	return d.prof.ldpcCode.TransmittedN
}

// RemainingBits is how many more payload LLRs AddDataBits needs before
// Finalize can run.
func (d *Decoder) RemainingBits() int {
	return d.DataLength() - len(d.llrs)
}

// Initialize consumes the 8 hard header bits. A parity failure is
// recoverable: it returns (false, nil) and leaves the decoder in
// WAITING_HEADER for the caller to retry with the next candidate byte.
// An unrecognized ldpcNType is a configuration error.
func (d *Decoder) Initialize(headerBits []byte) (bool, error) {
	if d.st != stateWaitingHeader {
		return false, modemerr.ErrStateMisuse
	}
	if len(headerBits) != 8 {
		return false, modemerr.ErrIncompleteData
	}

	data, parity := headerBits[:7], headerBits[7]
	if bitpack.EvenParity(data) != parity {
		return false, nil
	}

	seq, ft, lt := parseHeaderBits(data)
	prof, err := profileFor(lt)
	if err != nil {
		return false, err
	}

	d.prof = prof
	d.seq = seq
	d.frameType = ft
	d.ldpcNType = lt
	d.llrs = make([]int8, 0, prof.ldpcCode.TransmittedN)
	d.st = stateWaitingData
	return true, nil
}

// AddDataBits appends soft payload bits (LLR, sign convention: >= 0
// favors bit 0, matching internal/dpsk and internal/dsss) to the
// internal buffer. Bits beyond DataLength are ignored, not an error, so
// a caller that over-delivers on the final chunk need not slice exactly.
func (d *Decoder) AddDataBits(llrs []int8) error {
	if d.st != stateWaitingData {
		return modemerr.ErrStateMisuse
	}
	remaining := d.RemainingBits()
	take := len(llrs)
	if take > remaining {
		take = remaining
	}
	d.llrs = append(d.llrs, llrs[:take]...)
	if len(d.llrs) >= d.DataLength() {
		d.st = stateCompleted
	}
	return nil
}

// Finalize requires exactly DataLength LLRs to have been accumulated. It
// runs LDPC decode (punctured positions were already injected as LLR 0
// by internal/ldpc.Decode), trims the decoded message down to the BCH
// codeword length, runs BCH decode, and truncates the corrected
// bytes to the profile's maxPayloadBytes. BCH failure fails the whole
// frame; LDPC non-convergence does not -- BCH still gets a chance.
func (d *Decoder) Finalize(maxIterations int) (DecodedFrame, error) {
	if d.st != stateCompleted {
		return DecodedFrame{}, fmt.Errorf("framer: finalize: %w", modemerr.ErrIncompleteData)
	}

	ldpcResult, err := d.prof.ldpcCode.Decode(d.llrs, maxIterations)
	if err != nil {
		return DecodedFrame{}, err
	}

	messageBits := bitpack.UnpackBits(ldpcResult.DecodedMessage, d.prof.ldpcCode.K)
	bchBits := resizeBits(messageBits, bchCode.N)
	bchResult := bchCode.Decode(bitpack.PackBits(bchBits))

	if bchResult.Status == bch.StatusFailed || bchResult.IsUncorrectable {
		return DecodedFrame{}, modemerr.ErrBCHUncorrectable
	}

	payload := bchResult.Data
	if len(payload) > d.prof.maxPayloadBytes {
		payload = payload[:d.prof.maxPayloadBytes]
	}

	status := FrameStatusSuccess
	if bchResult.Status == bch.StatusCorrected {
		status = FrameStatusBCHCorrected
	}

	return DecodedFrame{
		SequenceNumber: d.seq,
		FrameType:      d.frameType,
		LdpcNType:      d.ldpcNType,
		UserData:       payload,
		Status:         status,
		LDPCConverged:  ldpcResult.Converged,
		BCHErrorCount:  bchResult.ErrorCount,
	}, nil
}

// Reset returns the decoder to WAITING_HEADER, discarding any partial
// frame. Used when the streaming demodulator abandons acquisition.
func (d *Decoder) Reset() {
	d.st = stateWaitingHeader
	d.prof = nil
	d.llrs = nil
}
