package sstv

import "math"

/*
 * Single-bin frequency estimation via the Goertzel recurrence.
 *
 * The bin index k = N*f/rate is allowed to be fractional, which keeps
 * the estimate accurate for the very short windows used during pixel
 * scans. Magnitudes are normalized by the window length so thresholds
 * hold across window sizes.
 */

// FreqEstimator measures tone frequencies in a sample buffer.
type FreqEstimator struct {
	rate float64
}

// NewFreqEstimator creates an estimator for the given sample rate.
func NewFreqEstimator(sampleRate float64) *FreqEstimator {
	return &FreqEstimator{rate: sampleRate}
}

// Goertzel returns the normalized magnitude of the given frequency over
// samples[start:end). Out-of-range windows are clamped; an empty window
// returns 0.
func (e *FreqEstimator) Goertzel(samples []float32, start, end int, freq float64) float64 {
	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	n := end - start
	if n <= 0 {
		return 0
	}

	k := float64(n) * freq / e.rate
	w := 2 * math.Pi * k / float64(n)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for i := start; i < end; i++ {
		s0 = float64(samples[i]) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	re := s1 - s2*math.Cos(w)
	im := s2 * math.Sin(w)
	return math.Sqrt(re*re+im*im) / float64(n)
}

// sweep returns the frequency with the strongest Goertzel response over
// [lo, hi] at the given step. Ties resolve to the first occurrence.
func (e *FreqEstimator) sweep(samples []float32, start, end int, lo, hi, step float64) (float64, float64) {
	bestFreq := lo
	bestMag := -1.0
	for f := lo; f <= hi; f += step {
		if mag := e.Goertzel(samples, start, end, f); mag > bestMag {
			bestMag = mag
			bestFreq = f
		}
	}
	return bestFreq, bestMag
}

// DetectFrequencyRange estimates the dominant frequency in the video
// band over a window of length samples starting at start. A coarse
// 25 Hz sweep across 1100-2500 Hz is refined by a 1 Hz sweep within
// ±30 Hz of the coarse winner. Windows shorter than 10 samples return
// the black frequency as a benign default.
func (e *FreqEstimator) DetectFrequencyRange(samples []float32, start, length int) float64 {
	end := start + length
	if end > len(samples) {
		end = len(samples)
	}
	if end-start < 10 {
		return FreqBlack
	}

	coarse, _ := e.sweep(samples, start, end, 1100, 2500, 25)
	fine, _ := e.sweep(samples, start, end, coarse-30, coarse+30, 1)
	return fine
}

// DetectFrequency estimates a tone frequency for sync and VIS work. It
// probes the fixed set 1100..2300 Hz in 100 Hz steps and, when the
// winner carries real energy, refines within ±100 Hz in 10 Hz steps.
func (e *FreqEstimator) DetectFrequency(samples []float32, start, length int) float64 {
	end := start + length
	if end > len(samples) {
		end = len(samples)
	}
	if end-start < 10 {
		return FreqBlack
	}

	best, mag := e.sweep(samples, start, end, 1100, 2300, 100)
	if mag > 0.05 {
		best, _ = e.sweep(samples, start, end, best-100, best+100, 10)
	}
	return best
}
