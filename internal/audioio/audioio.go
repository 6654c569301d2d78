// Package audioio wraps a real sound card via portaudio behind a build
// tag, since most deployments of this modem run against files or network
// sockets rather than local audio hardware.
//
// Grounded on doismellburning-samoyed/src/audio.go's audio_open/
// audio_get/audio_put shape (open a device at a fixed sample rate and
// channel count, then block on read/write of raw sample buffers) and
// audio_stats.go's periodic level reporting, adapted here from ALSA/OSS
// cgo device handles to github.com/gordonklaus/portaudio's cross-platform
// stream API, which is already a direct dependency in the teacher's
// go.mod (unused there, which this package now exercises).
//
//go:build audiodevice

package audioio

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// Stream wraps one portaudio duplex stream at a fixed sample rate, mono
// in and out, matching the carrier.Params.SampleRate both peers already
// agree on.
type Stream struct {
	stream *portaudio.Stream
	in     []float32
	out    []float32

	framesIn  atomic.Int64
	framesOut atomic.Int64
}

// Open initializes the portaudio runtime and opens a duplex stream with
// the given sample rate and frames-per-buffer. Every Open calls
// portaudio.Initialize; Close calls the matching portaudio.Terminate.
func Open(sampleRate float64, framesPerBuffer int) (*Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audioio: portaudio init: %w", err)
	}

	s := &Stream{
		in:  make([]float32, framesPerBuffer),
		out: make([]float32, framesPerBuffer),
	}

	stream, err := portaudio.OpenDefaultStream(1, 1, sampleRate, framesPerBuffer, s.in, s.out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audioio: open stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Start begins audio I/O, matching audio_open's "device is kept open,
// not opened per call" lifecycle.
func (s *Stream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("audioio: start stream: %w", err)
	}
	return nil
}

// Read blocks until one buffer of captured samples is available, copying
// it into dst (which must match the stream's framesPerBuffer), and
// returns the number of samples written.
func (s *Stream) Read(dst []float32) (int, error) {
	if err := s.stream.Read(); err != nil {
		return 0, fmt.Errorf("audioio: read: %w", err)
	}
	n := copy(dst, s.in)
	s.framesIn.Add(int64(n))
	return n, nil
}

// Write blocks until src has been queued for playback.
func (s *Stream) Write(src []float32) error {
	copy(s.out, src)
	if err := s.stream.Write(); err != nil {
		return fmt.Errorf("audioio: write: %w", err)
	}
	s.framesOut.Add(int64(len(src)))
	return nil
}

// Stats mirrors audio_stats.go's periodic level report: cumulative
// sample counts in and out, for a caller to log or display.
type Stats struct {
	FramesIn  int64
	FramesOut int64
}

// Stats reports cumulative frame counts since Open.
func (s *Stream) Stats() Stats {
	return Stats{FramesIn: s.framesIn.Load(), FramesOut: s.framesOut.Load()}
}

// Close stops the stream and releases the portaudio runtime.
func (s *Stream) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("audioio: close: %w", err)
	}
	portaudio.Terminate()
	return nil
}
