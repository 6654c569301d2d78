// Package streamdemod implements the streaming demodulator: the
// sample-ring-backed acquisition/resync state machine that turns an
// unbounded stream of small audio chunks into a stream of completed
// frames.
//
// Grounded on doismellburning-samoyed/src/hdlc_rec.go and hdlc_rec2.go
// (the DCD hysteresis counters and the cooperative, bounded-work-per-
// call receive loop) and pll_dcd.go (rolling good/bad bit histories
// gating a lock/unlock transition), generalized from AFSK bit-slicing to
// DSSS/DPSK chip-domain demodulation with an attached framer.
package streamdemod

import (
	"github.com/kb9jhu/chirpmodem/internal/acquire"
	"github.com/kb9jhu/chirpmodem/internal/carrier"
	"github.com/kb9jhu/chirpmodem/internal/dpsk"
	"github.com/kb9jhu/chirpmodem/internal/dsss"
	"github.com/kb9jhu/chirpmodem/internal/framer"
	"github.com/kb9jhu/chirpmodem/internal/logging"
	"github.com/kb9jhu/chirpmodem/internal/ring"
)

// Tunable constants named directly in spec.md sec.4.G.
const (
	WeakThreshold        = 20
	ConsecutiveWeakLimit = 3
	ResyncTriggerCount   = 32
	StrongZeroThreshold  = 70
	NoiseUpdateInterval  = 10
	MaxBitsPerCall       = 50

	syncValidationBits = 12 // preamble (4 bits) + sync word (8 bits)

	// noiseVarianceToCorrelationFactor converts the chip-LLR-domain
	// noise-variance estimate into the correlation-domain scale that
	// DespreadSoft divides the despread correlation by.
	noiseVarianceToCorrelationFactor = 0.01
)

var preambleSyncPattern = func() []byte {
	out := make([]byte, 0, len(framer.Preamble)+len(framer.SyncWord))
	out = append(out, framer.Preamble...)
	out = append(out, framer.SyncWord...)
	return out
}()

// SyncState is the receiver's current acquisition state.
type SyncState struct {
	Locked      bool
	Correlation float64
}

// Demodulator is the per-connection receive-side state machine. It is
// not safe for concurrent use: per spec.md sec.5, the ring and state
// machine are single-writer/single-reader, serialized by the caller.
type Demodulator struct {
	ring *ring.SampleRing

	cp  carrier.Params
	seq *dsss.Sequence

	correlationThreshold float64
	peakToNoiseRatio     float64
	maxIterations        int

	locked          bool
	lastCorrelation float64
	consecutiveWeak int
	strongCount     int
	noiseVariance   float64
	bitsSinceLock   int

	// lastChipPhase/havePrevChipPhase carry the DPSK differential phase
	// reference across bit boundaries (and across separate GetAvailableFrames
	// calls), so demodulateBlock never treats a bit as an independent
	// differential run: the TX side (internal/carrier.StreamModulator)
	// modulates phase continuously across the whole frame, never resetting
	// it per bit.
	lastChipPhase     float64
	havePrevChipPhase bool

	decoder   *framer.Decoder
	headerBuf []byte // accumulates hard-decided bits while WAITING_HEADER

	log logging.Logger
}

// New builds a Demodulator with a sample ring of the given capacity
// (should be >= samplesPerBit*32, per spec.md's acquisition-horizon
// requirement).
func New(capacity int, cp carrier.Params, seq *dsss.Sequence, correlationThreshold, peakToNoiseRatio float64, maxIterations int, log logging.Logger) *Demodulator {
	if log == nil {
		log = logging.Discard()
	}
	return &Demodulator{
		ring:                 ring.New(capacity),
		cp:                   cp,
		seq:                  seq,
		correlationThreshold: correlationThreshold,
		peakToNoiseRatio:     peakToNoiseRatio,
		maxIterations:        maxIterations,
		noiseVariance:        1,
		decoder:              framer.NewDecoder(),
		log:                  log,
	}
}

func (d *Demodulator) samplesPerBit() int {
	return d.seq.N * d.cp.SamplesPerChip
}

// AddSamples copies chunk into the ring, overwriting the oldest buffered
// samples on overflow. O(len(chunk)), allocation-free.
func (d *Demodulator) AddSamples(chunk []float32) {
	d.ring.Write(chunk)
}

// GetSyncState reports whether the receiver is currently locked and the
// last peak correlation observed.
func (d *Demodulator) GetSyncState() SyncState {
	return SyncState{Locked: d.locked, Correlation: d.lastCorrelation}
}

// Reset clears the ring and the state machine, returning to UNLOCKED.
func (d *Demodulator) Reset() {
	d.ring.Reset()
	d.locked = false
	d.lastCorrelation = 0
	d.consecutiveWeak = 0
	d.strongCount = 0
	d.bitsSinceLock = 0
	d.havePrevChipPhase = false
	d.decoder.Reset()
	d.headerBuf = d.headerBuf[:0]
}

// GetAvailableFrames is the single driver entry point: it advances the
// state machine, bounded by a MaxBitsPerCall work quota, and returns
// zero or more fully decoded frames. Sample starvation is not an error;
// it simply ends the loop early.
func (d *Demodulator) GetAvailableFrames() []framer.DecodedFrame {
	var frames []framer.DecodedFrame

	for i := 0; i < MaxBitsPerCall; i++ {
		if !d.locked {
			if !d.tryAcquire() {
				break
			}
			continue
		}

		llr, ok := d.demodulateOneBit()
		if !ok {
			break
		}

		frame, completed, err := d.deliverBit(llr)
		if err != nil {
			d.log.Warnf("streamdemod: frame dropped: %v", err)
			d.dropFrame()
			continue
		}
		if completed {
			frames = append(frames, frame)
			d.log.Debugf("streamdemod: frame complete seq=%d status=%s", frame.SequenceNumber, frame.Status)
			// spec.md sec.4.G: each frame is independently acquired.
			d.dropFrame()
		}
	}
	return frames
}

// tryAcquire runs one UNLOCKED-state step. It returns false when the
// ring does not currently hold enough samples to attempt acquisition at
// all (so the caller should stop spinning this call).
func (d *Demodulator) tryAcquire() bool {
	spb := d.samplesPerBit()
	need := spb * syncValidationBits
	if d.ring.Available() < need {
		return false
	}

	buf32 := make([]float32, need)
	if !d.ring.Peek(0, need, buf32) {
		return false
	}
	window := make([]float64, need)
	for i, s := range buf32 {
		window[i] = float64(s)
	}

	maxOffset := spb / 2
	res := acquire.FindSyncOffset(window, d.ring.ReadCursor(), d.seq, d.cp, maxOffset, d.correlationThreshold, d.peakToNoiseRatio)

	if !res.Accepted {
		// Peak failed threshold: consume half a bit's samples and retry.
		step := spb / 2
		if step < 1 {
			step = 1
		}
		d.ring.Consume(step)
		return true
	}

	if !d.validateSyncPattern(window, res.SampleOffset, spb) {
		// False-peak recovery: advance by exactly one sample, never by
		// the whole candidate window, or a true peak a few samples
		// later is lost.
		d.ring.Consume(1)
		return true
	}

	d.ring.Consume(res.SampleOffset + syncValidationBits*spb)
	d.locked = true
	d.lastCorrelation = res.Correlation
	d.consecutiveWeak = 0
	d.strongCount = 0
	d.bitsSinceLock = 0
	d.decoder.Reset()
	d.headerBuf = d.headerBuf[:0]
	d.log.Debugf("streamdemod: locked at offset=%d correlation=%.1f", res.SampleOffset, res.Correlation)
	return true
}

// validateSyncPattern demodulates the candidate preamble+sync-word bits
// and scores them against the known pattern with both a soft LLR
// correlation and a hard-decision match ratio. It always starts a fresh
// DPSK differential reference (havePrevChipPhase=false): each candidate
// offset is an independent alignment hypothesis, not a continuation of
// whatever candidate was examined before it.
func (d *Demodulator) validateSyncPattern(window []float64, offset, spb int) bool {
	end := offset + spb*syncValidationBits
	if end > len(window) {
		return false
	}

	d.havePrevChipPhase = false
	base := d.ring.ReadCursor() + int64(offset)

	var llrSum float64
	hardMatches := 0
	for i := 0; i < syncValidationBits; i++ {
		start := offset + i*spb
		bit, llr := d.demodulateBlock(window[start:start+spb], base+int64(i*spb))
		expected := preambleSyncPattern[i]
		if bit == expected {
			hardMatches++
		}
		if expected == 0 {
			llrSum += float64(llr)
		} else {
			llrSum += -float64(llr)
		}
	}

	normalizedLLR := llrSum / (float64(syncValidationBits) * 127.0)
	hardRatio := float64(hardMatches) / float64(syncValidationBits)
	return normalizedLLR >= 0.5 && hardRatio >= 5.0/8.0
}

// demodulateBlock runs the full receive chain (4.E -> 4.D -> 4.C) over
// exactly one bit's worth of samples starting at the given absolute
// sample index (so the carrier phase basis lines up with the
// continuously modulated TX stream -- see internal/ring.SampleRing
// .ReadCursor()), and threads the last chip phase from the previous call
// through as the DPSK differential reference for this block's first
// chip. DPSK's phase difference is encoded continuously across the
// whole frame (internal/carrier.StreamModulator never resets phase at a
// bit boundary), so resetting the reference at every bit boundary would
// silently discard one real chip's worth of information on every bit.
func (d *Demodulator) demodulateBlock(block []float64, startSampleIndex int64) (bit byte, llr int8) {
	symbols := carrier.DemodulateSymbols(block, startSampleIndex, d.cp)
	phases := make([]float64, len(symbols))
	for i, s := range symbols {
		phases[i] = s.Phase
	}
	chipLLRs := dpsk.DemodulateSoftContinuous(phases, d.lastChipPhase, d.havePrevChipPhase, 1.0)
	if len(phases) > 0 {
		d.lastChipPhase = phases[len(phases)-1]
		d.havePrevChipPhase = true
	}

	hardChips := make([]dsss.Chip, len(chipLLRs))
	for i, v := range chipLLRs {
		if v >= 0 {
			hardChips[i] = 1
		} else {
			hardChips[i] = -1
		}
	}

	return d.seq.DespreadSoft(hardChips, d.noiseVariance)
}

// demodulateOneBit runs the LOCKED-state per-bit step: one full-chain
// demodulation at the current read cursor, advancing the cursor by one
// bit's samples. It returns ok=false if the ring does not yet hold a
// full bit's worth of samples.
func (d *Demodulator) demodulateOneBit() (int8, bool) {
	spb := d.samplesPerBit()
	if d.ring.Available() < spb {
		return 0, false
	}

	buf32 := make([]float32, spb)
	if !d.ring.Peek(0, spb, buf32) {
		return 0, false
	}
	block := make([]float64, spb)
	for i, s := range buf32 {
		block[i] = float64(s)
	}

	_, llr := d.demodulateBlock(block, d.ring.ReadCursor())
	d.ring.Consume(spb)
	d.bitsSinceLock++

	if d.bitsSinceLock%NoiseUpdateInterval == 0 {
		d.updateNoiseVariance(float64(llr))
	}

	d.trackWeakStrong(llr)
	d.maybeResync(llr)

	return llr, true
}

// updateNoiseVariance refreshes the cached chip-LLR noise-variance
// estimate from the most recent LLR magnitude, converted toward the
// correlation-domain scale demodulateBlock passes to DespreadSoft.
func (d *Demodulator) updateNoiseVariance(lastLLR float64) {
	mag := lastLLR
	if mag < 0 {
		mag = -mag
	}
	if mag == 0 {
		mag = 1
	}
	d.noiseVariance = mag * noiseVarianceToCorrelationFactor * float64(d.seq.N)
	if d.noiseVariance <= 0 {
		d.noiseVariance = 1
	}
}

// trackWeakStrong updates the weak/strong bit counters and drops to
// UNLOCKED on too many consecutive weak LLRs, unless the framer is
// actively mid-frame (it knows exactly how many bits remain and a
// transient weak run should not abort a frame in progress).
func (d *Demodulator) trackWeakStrong(llr int8) {
	abs := int(llr)
	if abs < 0 {
		abs = -abs
	}

	if abs < WeakThreshold {
		d.consecutiveWeak++
		d.strongCount = 0
		awaitingKnownCount := d.decoder.GetState() == "WAITING_DATA"
		if d.consecutiveWeak >= ConsecutiveWeakLimit && !awaitingKnownCount {
			d.log.Debugf("streamdemod: unlocking after %d consecutive weak bits", d.consecutiveWeak)
			d.locked = false
			d.havePrevChipPhase = false
			d.decoder.Reset()
		}
		return
	}

	d.consecutiveWeak = 0
	d.strongCount++
}

// maybeResync implements the proactive fine-resync drift-compensation
// step: after a long run of strong bits whose most recent LLR is itself
// very strong, nudge the read cursor by a bounded, safe amount if a
// tighter alignment is found nearby. Per spec.md sec.4.G the search is
// within +-0.5 chip of the current cursor, not +-0.5 bit -- searchRadius
// is therefore derived from SamplesPerChip, not samplesPerBit. It must
// not degrade an already-well-aligned signal, so a failed search just
// resets the trigger counter rather than moving the cursor.
func (d *Demodulator) maybeResync(llr int8) {
	if d.strongCount <= ResyncTriggerCount {
		return
	}
	if int(absInt8(llr)) <= StrongZeroThreshold {
		return
	}

	spb := d.samplesPerBit()
	searchRadius := d.cp.SamplesPerChip / 2
	// The window must be wide enough that every offset FindSyncOffset is
	// asked to try (0..2*searchRadius) still leaves a full bit's worth of
	// samples (spb) to demodulate, so it is sized symmetrically around
	// the cursor rather than only extending forward.
	need := 2*searchRadius + spb
	if d.ring.Available() < need {
		return
	}

	buf32 := make([]float32, need)
	if !d.ring.Peek(-searchRadius, need, buf32) {
		return
	}
	window := make([]float64, need)
	for i, s := range buf32 {
		window[i] = float64(s)
	}

	res := acquire.FindSyncOffset(window, d.ring.ReadCursor()-int64(searchRadius), d.seq, d.cp, 2*searchRadius, d.correlationThreshold*0.5, 1.0)
	if !res.Accepted {
		d.strongCount = 0
		return
	}

	shift := res.SampleOffset - searchRadius
	// Resync safety: never cross the next bit boundary when shifting
	// forward; backward shifts are unconditionally safe.
	if shift > 0 {
		maxForward := spb - 1
		if shift > maxForward {
			shift = maxForward
		}
		d.ring.Consume(shift)
	} else if shift < 0 {
		d.ring.Consume(shift) // Consume handles negative by not over-rewinding past readCount's floor via the ring's own bookkeeping
	}
	d.strongCount = 0
}

func absInt8(v int8) int8 {
	if v < 0 {
		return -v
	}
	return v
}

// dropFrame resets the attached framer and returns to UNLOCKED, per
// spec.md sec.4.G's "each frame is independently acquired" rule.
func (d *Demodulator) dropFrame() {
	d.decoder.Reset()
	d.locked = false
	d.havePrevChipPhase = false
	d.consecutiveWeak = 0
	d.strongCount = 0
}

// deliverBit feeds one LLR to the attached framer, driving its
// WAITING_HEADER -> WAITING_DATA -> COMPLETED state machine.
func (d *Demodulator) deliverBit(llr int8) (framer.DecodedFrame, bool, error) {
	switch d.decoder.GetState() {
	case "WAITING_HEADER":
		d.headerBit(llr)
		return framer.DecodedFrame{}, false, nil
	case "WAITING_DATA":
		if err := d.decoder.AddDataBits([]int8{llr}); err != nil {
			return framer.DecodedFrame{}, false, err
		}
		if d.decoder.GetState() != "COMPLETED" {
			return framer.DecodedFrame{}, false, nil
		}
		frame, err := d.decoder.Finalize(d.maxIterations)
		if err != nil {
			return framer.DecodedFrame{}, false, err
		}
		return frame, true, nil
	default:
		return framer.DecodedFrame{}, false, nil
	}
}

// headerBit accumulates one hard-decided header bit; once 8 have
// arrived it calls Initialize. Per spec.md sec.7, a header parity
// failure is recoverable but drops the demodulator straight back to
// UNLOCKED -- a fresh preamble/sync acquisition is required, the
// decoder does not keep sliding a candidate header window forward
// while nominally still "locked".
func (d *Demodulator) headerBit(llr int8) {
	var bit byte
	if llr < 0 {
		bit = 1
	}
	d.headerBuf = append(d.headerBuf, bit)
	if len(d.headerBuf) < 8 {
		return
	}

	ok, err := d.decoder.Initialize(d.headerBuf)
	d.headerBuf = d.headerBuf[:0]
	if err != nil {
		d.log.Warnf("streamdemod: header initialize error: %v", err)
		d.dropFrame()
		return
	}
	if !ok {
		d.log.Debugf("streamdemod: header parity rejected, returning to UNLOCKED")
		d.dropFrame()
	}
}
