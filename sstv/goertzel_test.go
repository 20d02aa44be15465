package sstv

import (
	"math"
	"testing"
)

func makeTone(freq, seconds, rate float64) []float32 {
	n := int(seconds * rate)
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / rate))
	}
	return out
}

func TestGoertzelPureToneMagnitude(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	samples := makeTone(1900, 0.05, 48000)

	mag := est.Goertzel(samples, 0, len(samples), 1900)
	// A unit sine measured at its own frequency normalizes to ~0.5.
	if mag < 0.45 || mag > 0.55 {
		t.Errorf("Goertzel magnitude at tone frequency = %.3f, want ~0.5", mag)
	}

	off := est.Goertzel(samples, 0, len(samples), 1200)
	if off > 0.05 {
		t.Errorf("Goertzel magnitude 700 Hz off tone = %.3f, want near 0", off)
	}
}

func TestDetectFrequencyRangeAccuracy(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	for _, freq := range []float64{1500, 1712, 1900, 2087, 2300} {
		samples := makeTone(freq, 0.02, 48000)
		got := est.DetectFrequencyRange(samples, 0, len(samples))
		if math.Abs(got-freq) > 2 {
			t.Errorf("DetectFrequencyRange(%v Hz tone) = %.1f", freq, got)
		}
	}
}

func TestDetectFrequencyRangeShortWindowDefault(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	samples := makeTone(2100, 0.01, 48000)
	if got := est.DetectFrequencyRange(samples, 0, 5); got != FreqBlack {
		t.Errorf("undersized window = %.1f, want benign default %v", got, FreqBlack)
	}
}

func TestDetectFrequencySyncTone(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	samples := makeTone(1200, 0.01, 48000)
	got := est.DetectFrequency(samples, 0, len(samples))
	if math.Abs(got-1200) > 15 {
		t.Errorf("DetectFrequency(1200 Hz tone) = %.1f", got)
	}
}

func TestDetectFrequencySilenceStaysQuiet(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	samples := make([]float32, 4800)
	got := est.DetectFrequency(samples, 0, 480)
	// Nothing exceeds the refinement threshold on silence; the result
	// is just the first probe, which must not be mistaken for a sync.
	if got != 1100 {
		t.Errorf("DetectFrequency(silence) = %.1f, want first probe 1100", got)
	}
}

func TestFullRangeMapping(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	for _, v := range []uint8{0, 1, 64, 127, 128, 200, 254, 255} {
		freq := pixelFreq(v)
		want := 1500 + float64(v)/255*800
		if math.Abs(freq-want) > 1e-9 {
			t.Fatalf("pixelFreq(%d) = %v, want %v", v, freq, want)
		}

		samples := makeTone(freq, 0.01, 48000)
		got := est.DetectFrequencyRange(samples, 0, len(samples))
		ld := &lineDecoder{est: est, rate: 48000}
		decoded := ld.freqToValue(got)
		if int(decoded) < int(v)-1 || int(decoded) > int(v)+1 {
			t.Errorf("value %d -> %.1f Hz -> %d, want within 1", v, got, decoded)
		}
	}
}

func TestSpectralPeak(t *testing.T) {
	t.Parallel()
	est := NewFreqEstimator(48000)
	samples := makeTone(1900, 0.03, 48000)
	got := est.SpectralPeak(samples, 0, len(samples), 1000, 2600)
	if math.Abs(got-1900) > 15 {
		t.Errorf("SpectralPeak(1900 Hz tone) = %.1f", got)
	}
}
