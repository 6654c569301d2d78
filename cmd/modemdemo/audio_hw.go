//go:build audiodevice

package main

import (
	"fmt"

	"github.com/kb9jhu/chirpmodem/internal/audioio"
)

// playRecord plays samples out the default sound card, then captures the
// same number of samples back in, returning the captured waveform --
// a real loopback through hardware instead of the in-process pipeline
// main.go exercises by default.
func playRecord(samples []float64, sampleRate float64) ([]float64, error) {
	const framesPerBuffer = 1024

	stream, err := audioio.Open(sampleRate, framesPerBuffer)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}

	out := make([]float32, framesPerBuffer)
	for start := 0; start < len(samples); start += framesPerBuffer {
		end := start + framesPerBuffer
		if end > len(samples) {
			end = len(samples)
		}
		for i := range out {
			out[i] = 0
		}
		for i, s := range samples[start:end] {
			out[i] = float32(s)
		}
		if err := stream.Write(out); err != nil {
			return nil, fmt.Errorf("modemdemo: playback: %w", err)
		}
	}

	captured := make([]float64, 0, len(samples))
	in := make([]float32, framesPerBuffer)
	for len(captured) < len(samples) {
		n, err := stream.Read(in)
		if err != nil {
			return nil, fmt.Errorf("modemdemo: capture: %w", err)
		}
		for _, s := range in[:n] {
			captured = append(captured, float64(s))
		}
	}
	return captured, nil
}
