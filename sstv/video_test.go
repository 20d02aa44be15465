package sstv

import "testing"

func TestMedianFilter5(t *testing.T) {
	t.Parallel()
	in := []float64{1, 100, 3, 4, 5, 6, 200}
	out := medianFilter5(in)

	// Edges pass through unfiltered.
	if out[0] != 1 || out[1] != 100 || out[5] != 6 || out[6] != 200 {
		t.Errorf("edges altered: %v", out)
	}
	if out[2] != 4 {
		t.Errorf("out[2] = %v, want median 4", out[2])
	}
	if out[3] != 5 {
		t.Errorf("out[3] = %v, want median 5", out[3])
	}
	if out[4] != 5 {
		t.Errorf("out[4] = %v, want median 5", out[4])
	}

	// Input must be untouched.
	if in[2] != 3 {
		t.Error("medianFilter5 mutated its input")
	}

	short := []float64{1, 2, 3, 4}
	if got := medianFilter5(short); got[1] != 2 {
		t.Errorf("short input altered: %v", got)
	}
}

// A chroma sample at 1900 Hz must decode to the neutral 128, keeping
// RGB equal to luma.
func TestFreqToValueNeutral(t *testing.T) {
	t.Parallel()
	ld := &lineDecoder{est: NewFreqEstimator(48000), rate: 48000}
	if got := ld.freqToValue(1900); got != 128 {
		t.Errorf("freqToValue(1900) = %d, want 128", got)
	}
	if got := ld.freqToValue(1500); got != 0 {
		t.Errorf("freqToValue(1500) = %d, want 0", got)
	}
	if got := ld.freqToValue(2300); got != 255 {
		t.Errorf("freqToValue(2300) = %d, want 255", got)
	}
	// Out-of-band measurements clamp instead of wrapping.
	if got := ld.freqToValue(1100); got != 0 {
		t.Errorf("freqToValue(1100) = %d, want 0", got)
	}
	if got := ld.freqToValue(2500); got != 255 {
		t.Errorf("freqToValue(2500) = %d, want 255", got)
	}
}

func TestFreqToValueWithOffset(t *testing.T) {
	t.Parallel()
	ld := &lineDecoder{est: NewFreqEstimator(48000), rate: 48000, offset: -129}
	if got := ld.freqToValue(1900 - 129); got != 128 {
		t.Errorf("offset freqToValue(1771) = %d, want 128", got)
	}
}

func TestNewFrameInitialization(t *testing.T) {
	t.Parallel()
	f := newFrame(ModeByKey(KeyRobot36))
	for i := 3; i < len(f.pix); i += 4 {
		if f.pix[i] != 255 {
			t.Fatalf("alpha at byte %d = %d, want 255", i, f.pix[i])
		}
	}
	for i, v := range f.uPlane {
		if v != 128 || f.vPlane[i] != 128 {
			t.Fatalf("chroma plane seed at %d = (%d,%d), want neutral 128", i, v, f.vPlane[i])
		}
	}

	rgb := newFrame(ModeByKey(KeyMartin1))
	if rgb.uPlane != nil || rgb.vPlane != nil {
		t.Error("RGB modes must not allocate chroma planes")
	}
}
