// Command modemdemo builds one frame, runs it through the full
// encode -> spread -> modulate -> demodulate -> decode pipeline
// in-process, and reports the recovered frame -- a loopback self-test in
// the spirit of doismellburning-samoyed's atest.go (which synthesizes
// known test frames and checks they round-trip through the demodulator)
// and cmd/gen_tone (a small standalone tone-generation demo driven
// entirely from the command line, no config file required).
//
// Behind the audiodevice build tag it can additionally play the
// modulated waveform out a real sound card and capture the received
// waveform back in, via internal/audioio.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kb9jhu/chirpmodem/internal/carrier"
	"github.com/kb9jhu/chirpmodem/internal/config"
	"github.com/kb9jhu/chirpmodem/internal/dpsk"
	"github.com/kb9jhu/chirpmodem/internal/dsss"
	"github.com/kb9jhu/chirpmodem/internal/framer"
	"github.com/kb9jhu/chirpmodem/internal/logging"
	"github.com/kb9jhu/chirpmodem/internal/streamdemod"
)

// errNoAudioDevice is returned by the non-audiodevice playRecord stub.
var errNoAudioDevice = errors.New("modemdemo: built without the audiodevice build tag; rebuild with -tags audiodevice for real hardware I/O")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "modemdemo:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("modemdemo", pflag.ExitOnError)
	cfgFile := fs.String("config", "", "optional YAML config file")
	ldpcNType := fs.Uint8("ldpc-ntype", 0, "frame-configuration profile, 0-3")
	payload := fs.String("payload", "Hello, modem", "user data to send (truncated to the profile's max payload)")
	chunkSamples := fs.Int("chunk-samples", 4096, "samples per AddSamples call, simulating a streaming audio callback")
	hardware := fs.Bool("hardware", false, "play/record through a real sound card (requires building with -tags audiodevice)")

	opts := config.Defaults()
	config.RegisterFlags(fs, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgFile != "" {
		// Load the file over the defaults, then parse the command line
		// again so explicitly given flags still override the file.
		fileOpts, err := config.LoadFile(*cfgFile)
		if err != nil {
			return err
		}
		opts = fileOpts
		if err := fs.Parse(args); err != nil {
			return err
		}
	}

	log := logging.New(os.Stderr, opts.LogLevel)

	seq, err := dsss.NewSequence(opts.SequenceLength, opts.SequenceSeed)
	if err != nil {
		return fmt.Errorf("building spreading sequence: %w", err)
	}
	cp := opts.CarrierParams()

	userData := []byte(*payload)
	frameBits, err := framer.Build(userData, framer.FrameOptions{
		SequenceNumber: 1,
		FrameType:      framer.FrameTypeData,
		LdpcNType:      *ldpcNType,
	})
	if err != nil {
		return fmt.Errorf("building frame: %w", err)
	}
	log.Infof("built frame: %d bits, ldpcNType=%d, payload=%q", len(frameBits), *ldpcNType, userData)

	samples := transmit(frameBits, seq, cp)
	log.Infof("modulated %d samples", len(samples))

	if *hardware {
		captured, err := playRecord(samples, opts.SampleRate)
		if err != nil {
			return err
		}
		samples = captured
		log.Infof("captured %d samples from hardware loopback", len(samples))
	}

	ringCapacity := seq.N * cp.SamplesPerChip * opts.RingCapacityFactor
	demod := streamdemod.New(ringCapacity, cp, seq, opts.CorrelationThreshold, opts.PeakToNoiseRatio, opts.LdpcMaxIterations, log)

	var decoded []framer.DecodedFrame
	for start := 0; start < len(samples); start += *chunkSamples {
		end := start + *chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		chunk := make([]float32, end-start)
		for i, s := range samples[start:end] {
			chunk[i] = float32(s)
		}
		demod.AddSamples(chunk)
		decoded = append(decoded, demod.GetAvailableFrames()...)
	}

	if len(decoded) == 0 {
		return fmt.Errorf("no frame recovered")
	}
	for _, f := range decoded {
		log.Infof("decoded frame: seq=%d type=%d ldpcNType=%d status=%s converged=%v bchErrors=%d payload=%q",
			f.SequenceNumber, f.FrameType, f.LdpcNType, f.Status, f.LDPCConverged, f.BCHErrorCount, f.UserData)
	}
	return nil
}

// transmit spreads each frame bit, DPSK-modulates the resulting chip
// stream, and carrier-modulates the resulting phase stream, matching
// spec.md sec.4's transmit pipeline C -> D -> E.
func transmit(bits []byte, seq *dsss.Sequence, cp carrier.Params) []float64 {
	chips := make([]int8, 0, len(bits)*seq.N)
	for _, b := range bits {
		chips = append(chips, seq.Spread(b)...)
	}
	phases := dpsk.Modulate(chips, 0)
	mod := carrier.NewStreamModulator(cp)
	return mod.Modulate(phases)
}
