package sstv

import "math"

// ToneGenerator synthesizes PCM tones with phase carried across calls,
// so consecutive tones join without clicks. Samples are float32 in
// [-1, 1].
type ToneGenerator struct {
	rate    float64
	phase   float64
	samples []float32
}

// NewToneGenerator creates a generator at the given sample rate with
// phase zero and an empty buffer.
func NewToneGenerator(sampleRate float64) *ToneGenerator {
	return &ToneGenerator{rate: sampleRate}
}

// AddTone appends floor(duration*rate) samples of the given frequency.
func (g *ToneGenerator) AddTone(freq, duration float64) {
	g.AddToneSamples(freq, int(duration*g.rate))
}

// AddToneSamples appends exactly n samples of the given frequency.
// Callers that need sample-accurate pixel boundaries compute n from
// absolute fractions and use this directly.
func (g *ToneGenerator) AddToneSamples(freq float64, n int) {
	step := 2 * math.Pi * freq / g.rate
	for i := 0; i < n; i++ {
		g.samples = append(g.samples, float32(math.Sin(g.phase)))
		g.phase += step
	}
	g.phase = math.Mod(g.phase, 2*math.Pi)
}

// Samples returns the accumulated buffer.
func (g *ToneGenerator) Samples() []float32 {
	return g.samples
}

// Reset clears the buffer and phase.
func (g *ToneGenerator) Reset() {
	g.phase = 0
	g.samples = g.samples[:0]
}
