// Package modemerr defines the error taxonomy shared across the modem core.
//
// Configuration errors are returned immediately and should be treated as
// fatal by the caller. Channel errors are recovered locally by the
// components that see them (the streaming demodulator drops back to
// acquisition, the framer resets to WAITING_HEADER) and are exposed here
// only so callers and tests can distinguish "no frame yet" from "this
// frame was dropped."
package modemerr

import "errors"

var (
	// ErrBadSequenceLength is returned when a spreading-sequence length is
	// not an odd Mersenne number (2^m - 1).
	ErrBadSequenceLength = errors.New("modemerr: sequenceLength must be 2^m-1 for some m in [2,10]")

	// ErrUnknownLdpcNType is returned when a frame header names an
	// ldpcNType not present in the frame-configuration table.
	ErrUnknownLdpcNType = errors.New("modemerr: unknown ldpcNType")

	// ErrPayloadTooLarge is returned by Framer.Build and the BCH/LDPC
	// encoders when the caller supplies more bytes than the profile can
	// carry.
	ErrPayloadTooLarge = errors.New("modemerr: payload exceeds max length for profile")

	// ErrStateMisuse flags an out-of-order call on the receive-side framer
	// state machine (e.g. addDataBits before initialize).
	ErrStateMisuse = errors.New("modemerr: framer state machine called out of order")

	// ErrIncompleteData is returned by Finalize when fewer than N LLRs
	// have been accumulated.
	ErrIncompleteData = errors.New("modemerr: incomplete data")

	// ErrBCHUncorrectable marks a frame dropped because BCH detected (but
	// could not correct) an error.
	ErrBCHUncorrectable = errors.New("modemerr: bch uncorrectable error detected")
)
