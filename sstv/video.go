package sstv

import "sort"

/*
 * Per-line demodulation.
 *
 * A cursor steps through each line's components; every pixel value
 * comes from a Goertzel sweep over a window anchored at the pixel's
 * absolute boundary floor(k/N * totalSamples). Windows may run past
 * the pixel into later samples when the per-pixel period is too short
 * for a usable estimate, but never past the scan itself.
 */

const (
	// Minimum Goertzel window for luma and RGB channel pixels.
	lumaMinWindow = 48

	// Chroma windows are max(chromaMinWindow, 4 * samples-per-pixel):
	// chroma periods are short and the estimate needs the extra
	// frequency resolution.
	chromaMinWindow = 96
)

// frame accumulates decode output: an RGBA raster plus transient U/V
// planes for the chroma-carrying modes.
type frame struct {
	mode   *Mode
	width  int
	height int
	pix    []byte

	// Full-size planes addressed at half horizontal resolution for
	// YUV; seeded to neutral 128 so unwritten cells cannot tint the
	// reconstruction.
	uPlane []uint8
	vPlane []uint8

	// Robot 36 separator tones that disagreed with line parity.
	sepMismatches int
}

func newFrame(mode *Mode) *frame {
	f := &frame{
		mode:   mode,
		width:  mode.Width,
		height: mode.Lines,
		pix:    make([]byte, 4*mode.Width*mode.Lines),
	}
	// Alpha is opaque before any decoding begins; a partial decode
	// must still be a valid image.
	for i := 3; i < len(f.pix); i += 4 {
		f.pix[i] = 255
	}
	if mode.ChromaPlanes() {
		f.uPlane = make([]uint8, mode.Width*mode.Lines)
		f.vPlane = make([]uint8, mode.Width*mode.Lines)
		for i := range f.uPlane {
			f.uPlane[i] = 128
			f.vPlane[i] = 128
		}
	}
	return f
}

func (f *frame) setRGB(x, y int, r, g, b uint8) {
	o := (y*f.width + x) * 4
	f.pix[o] = r
	f.pix[o+1] = g
	f.pix[o+2] = b
}

// setLuma stores provisional grayscale; the color reconstructor
// replaces it once the chroma planes are complete.
func (f *frame) setLuma(x, y int, v uint8) {
	f.setRGB(x, y, v, v, v)
}

func (f *frame) luma(x, y int) float64 {
	return float64(f.pix[(y*f.width+x)*4])
}

// lineDecoder demodulates scan lines for one mode at one offset.
type lineDecoder struct {
	est    *FreqEstimator
	rate   float64
	mode   *Mode
	offset float64 // frequency offset applied to the pixel mapping
	fb     *frame
}

func newLineDecoder(est *FreqEstimator, rate float64, mode *Mode, offset float64, fb *frame) *lineDecoder {
	return &lineDecoder{est: est, rate: rate, mode: mode, offset: offset, fb: fb}
}

// freqToValue maps a measured frequency to a byte value using the
// full-range contract, shifted by the working offset.
func (d *lineDecoder) freqToValue(f float64) uint8 {
	v := (f - (FreqBlack + d.offset)) / (FreqWhite - FreqBlack) * 255
	return clampByte(v)
}

// scanFreqs measures the raw frequency of each of n pixels across a
// scan of the given duration starting at pos.
func (d *lineDecoder) scanFreqs(samples []float32, pos int, duration float64, n, minWin int) []float64 {
	total := int(duration * d.rate)
	freqs := make([]float64, n)
	for i := 0; i < n; i++ {
		start := sampleBoundary(i, n, total)
		end := sampleBoundary(i+1, n, total)
		win := end - start
		if win < minWin {
			win = minWin
		}
		if start+win > total {
			win = total - start
		}
		freqs[i] = d.est.DetectFrequencyRange(samples, pos+start, win)
	}
	return freqs
}

func (d *lineDecoder) scanValues(samples []float32, pos int, duration float64, n, minWin int) []uint8 {
	freqs := d.scanFreqs(samples, pos, duration, n, minWin)
	vals := make([]uint8, n)
	for i, f := range freqs {
		vals[i] = d.freqToValue(f)
	}
	return vals
}

// medianFilter5 applies a 5-tap median across raw chroma frequencies.
// The two samples at each edge pass through unfiltered.
func medianFilter5(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	copy(out, freqs)
	if len(freqs) < 5 {
		return out
	}
	var window [5]float64
	for i := 2; i < len(freqs)-2; i++ {
		copy(window[:], freqs[i-2:i+3])
		sort.Float64s(window[:])
		out[i] = window[2]
	}
	return out
}

// decodeLineRGB walks sync, porch, then the G/B/R channel scans with
// their separators.
func (d *lineDecoder) decodeLineRGB(samples []float32, pos, y int) {
	m := d.mode
	p := pos + int(m.SyncPulse*d.rate) + int(m.SyncPorch*d.rate)
	scan := int(m.ScanTime * d.rate)
	sep := int(m.SeparatorPulse * d.rate)

	g := d.scanValues(samples, p, m.ScanTime, m.Width, lumaMinWindow)
	p += scan + sep
	b := d.scanValues(samples, p, m.ScanTime, m.Width, lumaMinWindow)
	p += scan + sep
	r := d.scanValues(samples, p, m.ScanTime, m.Width, lumaMinWindow)

	for x := 0; x < m.Width; x++ {
		d.fb.setRGB(x, y, r[x], g[x], b[x])
	}
}

// decodeLineYUV walks the Robot 36 layout: full-width Y, then the
// chroma-type separator, porch and a half-resolution chroma scan.
// Line parity decides which plane receives the chroma; the separator
// frequency is only measured so disagreements can be surfaced as a
// quality signal. Real-world signals make the separator untrustworthy.
func (d *lineDecoder) decodeLineYUV(samples []float32, pos, y int) {
	m := d.mode
	p := pos + int(m.SyncPulse*d.rate) + int(m.SyncPorch*d.rate)

	yVals := d.scanValues(samples, p, robotYScanTime, m.Width, lumaMinWindow)
	for x := 0; x < m.Width; x++ {
		d.fb.setLuma(x, y, yVals[x])
	}
	p += int(robotYScanTime * d.rate)

	even := y%2 == 0
	sepSamples := int(robotSeparatorTime * d.rate)
	sepFreq := d.est.DetectFrequencyRange(samples, p, sepSamples)
	expected := FreqBlack + d.offset
	if !even {
		expected = FreqWhite + d.offset
	}
	if sepFreq < expected-200 || sepFreq > expected+200 {
		d.fb.sepMismatches++
	}
	p += sepSamples + int(robotChromaPorch*d.rate)

	half := m.Width / 2
	total := int(robotChromaScanTime * d.rate)
	minWin := 4 * (total / half)
	if minWin < chromaMinWindow {
		minWin = chromaMinWindow
	}
	freqs := medianFilter5(d.scanFreqs(samples, p, robotChromaScanTime, half, minWin))

	plane := d.fb.vPlane
	if !even {
		plane = d.fb.uPlane
	}
	row := plane[y*m.Width : (y+1)*m.Width]
	for x := 0; x < half; x++ {
		v := d.freqToValue(freqs[x])
		row[x*2] = v
		row[x*2+1] = v
	}
}

// decodePairPD walks one PD line pair: Y0, R-Y, B-Y, Y1, each a full
// width component. Chroma is written into both rows of the pair.
func (d *lineDecoder) decodePairPD(samples []float32, pos, y int) {
	m := d.mode
	p := pos + int(m.SyncPulse*d.rate) + int(m.SyncPorch*d.rate)
	comp := int(m.ComponentTime * d.rate)

	minChroma := 4 * (comp / m.Width)
	if minChroma < chromaMinWindow {
		minChroma = chromaMinWindow
	}

	y1 := y + 1
	if y1 >= m.Lines {
		y1 = m.Lines - 1
	}

	y0Vals := d.scanValues(samples, p, m.ComponentTime, m.Width, lumaMinWindow)
	for x := 0; x < m.Width; x++ {
		d.fb.setLuma(x, y, y0Vals[x])
	}
	p += comp

	ryFreqs := medianFilter5(d.scanFreqs(samples, p, m.ComponentTime, m.Width, minChroma))
	for x := 0; x < m.Width; x++ {
		v := d.freqToValue(ryFreqs[x])
		d.fb.vPlane[y*m.Width+x] = v
		d.fb.vPlane[y1*m.Width+x] = v
	}
	p += comp

	byFreqs := medianFilter5(d.scanFreqs(samples, p, m.ComponentTime, m.Width, minChroma))
	for x := 0; x < m.Width; x++ {
		v := d.freqToValue(byFreqs[x])
		d.fb.uPlane[y*m.Width+x] = v
		d.fb.uPlane[y1*m.Width+x] = v
	}
	p += comp

	y1Vals := d.scanValues(samples, p, m.ComponentTime, m.Width, lumaMinWindow)
	for x := 0; x < m.Width; x++ {
		d.fb.setLuma(x, y1, y1Vals[x])
	}
}
