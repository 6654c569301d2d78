//go:build !audiodevice

package main

// playRecord is unavailable without the audiodevice build tag; modemdemo
// falls back to the in-process loopback exercised in main.go.
func playRecord(samples []float64, sampleRate float64) ([]float64, error) {
	return nil, errNoAudioDevice
}
