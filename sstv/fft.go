package sstv

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

/*
 * FFT spectral peak estimation.
 *
 * Goertzel sweeps carry the pixel pipeline; the FFT path serves the
 * wideband jobs: leader hunting in the timing fallback and the
 * spectrum probe exposed for diagnostics. Peak frequency is refined by
 * Gaussian interpolation over the three bins around the maximum.
 */

const spectralFFTSize = 2048

// SpectralPeak returns the strongest frequency in [minFreq, maxFreq]
// over a Hann-windowed slice of up to fftSize samples starting at
// start. Returns 0 when the window is empty.
func (e *FreqEstimator) SpectralPeak(samples []float32, start, length int, minFreq, maxFreq float64) float64 {
	end := start + length
	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	n := end - start
	if n < 2 {
		return 0
	}
	if n > spectralFFTSize {
		n = spectralFFTSize
	}

	input := make([]float64, spectralFFTSize)
	for i := 0; i < n; i++ {
		hann := 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
		input[i] = float64(samples[start+i]) * hann
	}

	coeffs := fourier.NewFFT(spectralFFTSize).Coefficients(nil, input)

	binOf := func(f float64) int {
		return int(f / e.rate * spectralFFTSize)
	}
	minBin := binOf(minFreq)
	maxBin := binOf(maxFreq)
	if minBin < 1 {
		minBin = 1
	}
	if maxBin >= len(coeffs)-1 {
		maxBin = len(coeffs) - 2
	}

	power := func(i int) float64 {
		return real(coeffs[i])*real(coeffs[i]) + imag(coeffs[i])*imag(coeffs[i])
	}

	maxIdx := minBin
	for i := minBin; i <= maxBin; i++ {
		if power(i) > power(maxIdx) {
			maxIdx = i
		}
	}

	peak := float64(maxIdx)
	p0, p1, p2 := power(maxIdx-1), power(maxIdx), power(maxIdx+1)
	if p0 > 0 && p1 > 0 && p2 > 0 {
		num := math.Log(p2 / p0)
		den := 2.0 * math.Log(p1*p1/(p2*p0))
		if math.Abs(den) > 1e-12 {
			peak += num / den
		}
	}

	return peak / spectralFFTSize * e.rate
}
