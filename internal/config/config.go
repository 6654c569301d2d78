// Package config collects the modem's fixed, peer-agreed parameters into
// one options struct, populated from command-line flags and an optional
// YAML file.
//
// Grounded on the teacher's src/config.go: one big options struct
// (struct audio_s / struct misc_config_s there) filled first with
// defaults, then overridden line-by-line from a config file, with
// malformed values logged and the default kept rather than aborting. Here
// the "config file" is YAML via gopkg.in/yaml.v3 and command-line
// overrides are spf13/pflag instead of the teacher's hand-rolled line
// tokenizer (src/config.go's split()), since this modem has no direwolf.conf
// legacy syntax to stay compatible with.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kb9jhu/chirpmodem/internal/carrier"
)

// Defaults, named the way src/config.go names its DEFAULT_* constants.
const (
	DefaultSequenceLength      = 31 // 2^5 - 1
	DefaultSequenceSeed        = 0x15
	DefaultSamplesPerChip      = 8
	DefaultSampleRate          = 48000.0
	DefaultCarrierFreq         = 1800.0
	DefaultCorrelationThresh   = 0.6
	DefaultPeakToNoiseRatio    = 3.0
	DefaultLdpcMaxIterations   = 50
	DefaultRingCapacityFactor  = 32
	DefaultLogLevel            = "info"
)

// Options is the complete set of parameters both ends of a link must
// agree on (the spreading sequence, carrier, and LDPC iteration cap),
// plus local-only knobs (log level, ring capacity factor).
type Options struct {
	SequenceLength int     `yaml:"sequenceLength"`
	SequenceSeed   int     `yaml:"sequenceSeed"`
	SamplesPerChip int     `yaml:"samplesPerChip"`
	SampleRate     float64 `yaml:"sampleRate"`
	CarrierFreq    float64 `yaml:"carrierFreq"`

	CorrelationThreshold float64 `yaml:"correlationThreshold"`
	PeakToNoiseRatio     float64 `yaml:"peakToNoiseRatio"`
	LdpcMaxIterations    int     `yaml:"ldpcMaxIterations"`

	RingCapacityFactor int    `yaml:"ringCapacityFactor"`
	LogLevel           string `yaml:"logLevel"`
}

// Defaults returns the option set used when neither a file nor flags
// override a field.
func Defaults() Options {
	return Options{
		SequenceLength:       DefaultSequenceLength,
		SequenceSeed:         DefaultSequenceSeed,
		SamplesPerChip:       DefaultSamplesPerChip,
		SampleRate:           DefaultSampleRate,
		CarrierFreq:          DefaultCarrierFreq,
		CorrelationThreshold: DefaultCorrelationThresh,
		PeakToNoiseRatio:     DefaultPeakToNoiseRatio,
		LdpcMaxIterations:    DefaultLdpcMaxIterations,
		RingCapacityFactor:   DefaultRingCapacityFactor,
		LogLevel:             DefaultLogLevel,
	}
}

// LoadFile reads a YAML file over top of Defaults(). A missing file is
// not an error -- matching the teacher's "empty path disables the
// feature" tolerance in config_init -- any other read or parse error is.
func LoadFile(path string) (Options, error) {
	opts := Defaults()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return opts, nil
}

// RegisterFlags binds Options' fields to command-line flags on fs,
// defaulted from *opts (typically the result of LoadFile), so the
// precedence is defaults -> file -> flags, the same layering
// src/config.go documents for its own command-line-then-file handling
// (there the file is read after the command line instead of before, but
// "later source wins" is the same idea).
func RegisterFlags(fs *pflag.FlagSet, opts *Options) {
	fs.IntVar(&opts.SequenceLength, "sequence-length", opts.SequenceLength, "DSSS chip sequence length (2^m-1)")
	fs.IntVar(&opts.SequenceSeed, "sequence-seed", opts.SequenceSeed, "DSSS chip sequence LFSR seed")
	fs.IntVar(&opts.SamplesPerChip, "samples-per-chip", opts.SamplesPerChip, "audio samples per spread chip")
	fs.Float64Var(&opts.SampleRate, "sample-rate", opts.SampleRate, "audio sample rate in Hz")
	fs.Float64Var(&opts.CarrierFreq, "carrier-freq", opts.CarrierFreq, "carrier frequency in Hz")
	fs.Float64Var(&opts.CorrelationThreshold, "correlation-threshold", opts.CorrelationThreshold, "acquisition correlation acceptance threshold")
	fs.Float64Var(&opts.PeakToNoiseRatio, "peak-to-noise-ratio", opts.PeakToNoiseRatio, "acquisition peak-to-noise-floor acceptance ratio")
	fs.IntVar(&opts.LdpcMaxIterations, "ldpc-max-iterations", opts.LdpcMaxIterations, "max LDPC min-sum decode iterations")
	fs.IntVar(&opts.RingCapacityFactor, "ring-capacity-factor", opts.RingCapacityFactor, "sample ring capacity as a multiple of samples-per-bit")
	fs.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level: debug, info, warn, error")
}

// CarrierParams derives internal/carrier's Params from Options.
func (o Options) CarrierParams() carrier.Params {
	return carrier.Params{
		SamplesPerChip: o.SamplesPerChip,
		SampleRate:     o.SampleRate,
		CarrierFreq:    o.CarrierFreq,
	}
}
