package sstv

import (
	"fmt"
	"math"
)

// Encoder converts raster images into SSTV audio. Each instance owns a
// tone generator whose phase is reset per encode, so output is a
// deterministic function of (pixels, mode, sample rate).
type Encoder struct {
	rate float64
	gen  *ToneGenerator

	// toneShift offsets every emitted frequency, simulating an
	// off-tuned transmitter. Zero in normal operation.
	toneShift float64
}

// NewEncoder creates an encoder emitting at the given sample rate.
func NewEncoder(sampleRate int) *Encoder {
	return &Encoder{
		rate: float64(sampleRate),
		gen:  NewToneGenerator(float64(sampleRate)),
	}
}

// sampleBoundary returns floor(k/n * total). Pixel and component
// boundaries are always derived from this absolute fraction; summing
// per-pixel floor(total/n) deltas drifts by up to ~14 samples per line
// and visibly corrupts chroma.
func sampleBoundary(k, n, total int) int {
	return int(int64(k) * int64(total) / int64(n))
}

// pixelFreq maps a byte value to its full-range tone frequency.
func pixelFreq(v uint8) float64 {
	return FreqBlack + float64(v)/255.0*(FreqWhite-FreqBlack)
}

// Encode produces a complete SSTV transmission (VIS header plus image
// body) as a mono 16-bit WAV file. Pixels are RGBA-8888 row-major and
// are consumed at the mode's native width and line count; alpha is
// ignored. Scaling is the caller's job.
func (e *Encoder) Encode(pixels []byte, width, height int, modeKey string) ([]byte, error) {
	samples, err := e.EncodeSamples(pixels, width, height, modeKey)
	if err != nil {
		return nil, err
	}
	return WriteWAV(samples, int(e.rate)), nil
}

// EncodeSamples is Encode without the WAV container.
func (e *Encoder) EncodeSamples(pixels []byte, width, height int, modeKey string) ([]float32, error) {
	mode := ModeByKey(modeKey)
	if mode == nil {
		return nil, fmt.Errorf("%w: unknown mode key %q", ErrInvalidInput, modeKey)
	}
	if width < mode.Width || height < mode.Lines {
		return nil, fmt.Errorf("%w: image %dx%d smaller than %s raster %dx%d",
			ErrInvalidInput, width, height, mode.Name, mode.Width, mode.Lines)
	}
	if len(pixels) < 4*width*height {
		return nil, fmt.Errorf("%w: pixel buffer %d bytes, need %d",
			ErrInvalidInput, len(pixels), 4*width*height)
	}

	e.gen.Reset()
	img := &raster{pix: pixels, stride: width * 4}

	e.writeVISHeader(mode.VIS)

	switch mode.Color {
	case ColorRGB:
		e.writeRGBBody(mode, img)
	case ColorYUV:
		e.writeYUVBody(mode, img)
	case ColorPD:
		e.writePDBody(mode, img)
	}

	return e.gen.Samples(), nil
}

// raster provides channel access into an RGBA-8888 buffer.
type raster struct {
	pix    []byte
	stride int
}

func (r *raster) rgb(x, y int) (uint8, uint8, uint8) {
	o := y*r.stride + x*4
	return r.pix[o], r.pix[o+1], r.pix[o+2]
}

func (e *Encoder) tone(freq, duration float64) {
	e.gen.AddTone(freq+e.toneShift, duration)
}

func (e *Encoder) toneSamples(freq float64, n int) {
	e.gen.AddToneSamples(freq+e.toneShift, n)
}

// writeVISHeader emits the leader, break, start bit, seven data bits
// LSB first, even parity bit and stop bit. Identical for all modes.
func (e *Encoder) writeVISHeader(vis uint8) {
	e.tone(FreqVISStart, visLeaderTime)
	e.tone(FreqSync, visBreakTime)
	e.tone(FreqVISStart, visBitTime)

	parity := uint8(0)
	for i := 0; i < 7; i++ {
		bit := (vis >> i) & 1
		parity ^= bit
		e.tone(visBitFreq(bit), visBitTime)
	}
	e.tone(visBitFreq(parity), visBitTime)
	e.tone(FreqSync, visBitTime)
}

func visBitFreq(bit uint8) float64 {
	if bit == 1 {
		return FreqVISBit1
	}
	return FreqVISBit0
}

// writeScan emits n pixel tones over a scan of the given duration,
// with each pixel's sample count derived from absolute boundaries.
// The value callback maps pixel index to byte value.
func (e *Encoder) writeScan(duration float64, n int, value func(i int) uint8) {
	total := int(duration * e.rate)
	for i := 0; i < n; i++ {
		start := sampleBoundary(i, n, total)
		end := sampleBoundary(i+1, n, total)
		e.toneSamples(pixelFreq(value(i)), end-start)
	}
}

// writeRGBBody emits sync, porch, then G/B/R channel scans separated
// by 1200 Hz separator pulses, one line per raster row.
func (e *Encoder) writeRGBBody(m *Mode, img *raster) {
	for y := 0; y < m.Lines; y++ {
		e.tone(FreqSync, m.SyncPulse)
		e.tone(FreqBlack, m.SyncPorch)

		e.writeScan(m.ScanTime, m.Width, func(x int) uint8 {
			_, g, _ := img.rgb(x, y)
			return g
		})
		e.tone(FreqSync, m.SeparatorPulse)
		e.writeScan(m.ScanTime, m.Width, func(x int) uint8 {
			_, _, b := img.rgb(x, y)
			return b
		})
		e.tone(FreqSync, m.SeparatorPulse)
		e.writeScan(m.ScanTime, m.Width, func(x int) uint8 {
			r, _, _ := img.rgb(x, y)
			return r
		})
	}
}

// Full-range luma/chroma, centered at 128.
func lumaY(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func chromaV(r, g, b uint8) float64 {
	return 128 + 0.615*float64(r) - 0.51499*float64(g) - 0.10001*float64(b)
}

func chromaU(r, g, b uint8) float64 {
	return 128 - 0.14713*float64(r) - 0.28886*float64(g) + 0.436*float64(b)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// writeYUVBody emits the Robot 36 layout: sync, porch, full-width Y
// scan, then a separator whose frequency announces which chroma plane
// follows (1500 Hz = V on even lines, 2300 Hz = U on odd lines), a
// short porch, and a half-resolution chroma scan averaging adjacent
// columns.
func (e *Encoder) writeYUVBody(m *Mode, img *raster) {
	half := m.Width / 2
	for y := 0; y < m.Lines; y++ {
		e.tone(FreqSync, m.SyncPulse)
		e.tone(FreqBlack, m.SyncPorch)

		e.writeScan(robotYScanTime, m.Width, func(x int) uint8 {
			return clampByte(lumaY(img.rgb(x, y)))
		})

		even := y%2 == 0
		if even {
			e.tone(FreqBlack, robotSeparatorTime)
		} else {
			e.tone(FreqWhite, robotSeparatorTime)
		}
		e.tone(FreqBlack, robotChromaPorch)

		e.writeScan(robotChromaScanTime, half, func(x int) uint8 {
			r0, g0, b0 := img.rgb(x*2, y)
			r1, g1, b1 := img.rgb(x*2+1, y)
			if even {
				return clampByte((chromaV(r0, g0, b0) + chromaV(r1, g1, b1)) / 2)
			}
			return clampByte((chromaU(r0, g0, b0) + chromaU(r1, g1, b1)) / 2)
		})
	}
}

// writePDBody emits line pairs: sync, porch, Y of the even line, R-Y
// and B-Y averaged over both lines, then Y of the odd line. All four
// components are full width.
func (e *Encoder) writePDBody(m *Mode, img *raster) {
	for y := 0; y < m.Lines; y += 2 {
		y1 := y + 1
		if y1 >= m.Lines {
			y1 = m.Lines - 1
		}

		e.tone(FreqSync, m.SyncPulse)
		e.tone(FreqBlack, m.SyncPorch)

		e.writeScan(m.ComponentTime, m.Width, func(x int) uint8 {
			return clampByte(lumaY(img.rgb(x, y)))
		})
		e.writeScan(m.ComponentTime, m.Width, func(x int) uint8 {
			return clampByte((pdRY(img.rgb(x, y)) + pdRY(img.rgb(x, y1))) / 2)
		})
		e.writeScan(m.ComponentTime, m.Width, func(x int) uint8 {
			return clampByte((pdBY(img.rgb(x, y)) + pdBY(img.rgb(x, y1))) / 2)
		})
		e.writeScan(m.ComponentTime, m.Width, func(x int) uint8 {
			return clampByte(lumaY(img.rgb(x, y1)))
		})
	}
}

func pdRY(r, g, b uint8) float64 {
	return 128 + 0.701*(float64(r)-lumaY(r, g, b))
}

func pdBY(r, g, b uint8) float64 {
	return 128 + 0.886*(float64(b)-lumaY(r, g, b))
}
