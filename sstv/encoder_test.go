package sstv

import (
	"errors"
	"testing"
)

// solidImage builds an RGBA raster filled with one color.
func solidImage(w, h int, r, g, b uint8) []byte {
	pix := make([]byte, 4*w*h)
	for i := 0; i < w*h; i++ {
		pix[i*4] = r
		pix[i*4+1] = g
		pix[i*4+2] = b
		pix[i*4+3] = 255
	}
	return pix
}

// quadImage builds an RGBA raster split into four equal quadrants:
// top-left, top-right, bottom-left, bottom-right.
func quadImage(w, h int, colors [4][3]uint8) []byte {
	pix := make([]byte, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			q := 0
			if x >= w/2 {
				q = 1
			}
			if y >= h/2 {
				q += 2
			}
			o := (y*w + x) * 4
			pix[o] = colors[q][0]
			pix[o+1] = colors[q][1]
			pix[o+2] = colors[q][2]
			pix[o+3] = 255
		}
	}
	return pix
}

func TestSampleBoundaryCoversTotalExactly(t *testing.T) {
	t.Parallel()
	cases := []struct{ n, total int }{
		{320, 7040}, {320, 7007}, {160, 2112}, {640, 5836},
		{1, 1}, {3, 100}, {7, 13}, {640, 639},
	}
	for _, tc := range cases {
		sum := 0
		for k := 0; k < tc.n; k++ {
			sum += sampleBoundary(k+1, tc.n, tc.total) - sampleBoundary(k, tc.n, tc.total)
		}
		if sum != tc.total {
			t.Errorf("n=%d total=%d: boundary deltas sum to %d", tc.n, tc.total, sum)
		}
		// The naive per-pixel floor(total/n) accumulation drops the
		// remainder; this is the drift the boundaries exist to prevent.
		if tc.total%tc.n != 0 {
			if naive := tc.n * (tc.total / tc.n); naive == tc.total {
				t.Errorf("n=%d total=%d: naive sum unexpectedly exact", tc.n, tc.total)
			}
		}
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	t.Parallel()
	e := NewEncoder(48000)

	if _, err := e.Encode(solidImage(320, 240, 0, 0, 0), 320, 240, "ROBOT99"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown mode: err = %v, want ErrInvalidInput", err)
	}
	if _, err := e.Encode(solidImage(320, 100, 0, 0, 0), 320, 100, KeyRobot36); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("too few rows: err = %v, want ErrInvalidInput", err)
	}
	if _, err := e.Encode(make([]byte, 8), 320, 240, KeyRobot36); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short buffer: err = %v, want ErrInvalidInput", err)
	}
}

func TestEncodeEmitsWAV(t *testing.T) {
	t.Parallel()
	e := NewEncoder(48000)
	m := ModeByKey(KeyRobot36)
	wav, err := e.Encode(solidImage(m.Width, m.Lines, 128, 128, 128), m.Width, m.Lines, KeyRobot36)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	samples, rate, err := ReadWAV(wav)
	if err != nil {
		t.Fatalf("ReadWAV of encoder output: %v", err)
	}
	if rate != 48000 {
		t.Errorf("rate = %d", rate)
	}

	// VIS header (610 ms) plus 240 lines; each tone of a line is
	// floor(duration*rate) samples long.
	perLine := 0
	for _, d := range []float64{m.SyncPulse, m.SyncPorch, robotYScanTime,
		robotSeparatorTime, robotChromaPorch, robotChromaScanTime} {
		perLine += int(d * 48000)
	}
	want := 29280 + 240*perLine
	if diff := len(samples) - want; diff < -240 || diff > 240 {
		t.Errorf("sample count = %d, want ~%d", len(samples), want)
	}
}

func TestVISRoundTripAllModes(t *testing.T) {
	for _, m := range Modes() {
		m := m
		t.Run(m.Key, func(t *testing.T) {
			e := NewEncoder(48000)
			samples, err := e.EncodeSamples(
				solidImage(m.Width, m.Lines, 100, 140, 90), m.Width, m.Lines, m.Key)
			if err != nil {
				t.Fatalf("EncodeSamples: %v", err)
			}

			d := NewDecoder(48000, Config{})
			res, err := d.DetectVIS(samples)
			if err != nil {
				t.Fatalf("DetectVIS: %v", err)
			}
			if res.Mode != m {
				t.Fatalf("detected %s, want %s", res.Mode.Name, m.Name)
			}
			if res.Code != int(m.VIS) {
				t.Errorf("VIS code = 0x%02X, want 0x%02X", res.Code, m.VIS)
			}
			if res.FreqShift < -40 || res.FreqShift > 40 {
				t.Errorf("freq shift = %.1f Hz, want ~0", res.FreqShift)
			}

			// The refined VIS end must sit near the true header end
			// (610 ms at 48 kHz).
			if res.EndPos < 29280-480 || res.EndPos > 29280+480 {
				t.Errorf("VIS end = %d, want ~29280", res.EndPos)
			}
		})
	}
}

// findSyncPulse applied immediately after the VIS stop bit must land
// on the first line's sync pulse.
func TestSyncInvariantAfterVIS(t *testing.T) {
	for _, key := range []string{KeyRobot36, KeyMartin1, KeyPD120} {
		key := key
		t.Run(key, func(t *testing.T) {
			m := ModeByKey(key)
			e := NewEncoder(48000)
			samples, err := e.EncodeSamples(
				solidImage(m.Width, m.Lines, 128, 128, 128), m.Width, m.Lines, key)
			if err != nil {
				t.Fatalf("EncodeSamples: %v", err)
			}

			const visEnd = 29280 // 610 ms of header at 48 kHz
			finder := newSyncFinder(NewFreqEstimator(48000), 48000, m, 0)
			got := finder.findSyncPulse(samples, visEnd, visEnd+int(m.LineTime()*48000))
			if got < 0 {
				t.Fatal("no sync found after VIS stop bit")
			}
			if got < visEnd-48 || got > visEnd+96 {
				t.Errorf("sync at %d, want ~%d", got, visEnd)
			}
		})
	}
}
