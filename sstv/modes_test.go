package sstv

import (
	"math"
	"testing"
)

func TestModeRegistry(t *testing.T) {
	t.Parallel()
	cases := []struct {
		key    string
		vis    uint8
		w, h   int
		color  ColorFormat
		period float64 // nominal line (or line pair) seconds
	}{
		{KeyRobot36, 0x08, 320, 240, ColorYUV, 150e-3},
		{KeyMartin1, 0x2C, 320, 256, ColorRGB, 444.578e-3},
		{KeyScottie1, 0x3C, 320, 256, ColorRGB, 427.5e-3},
		{KeyPD120, 0x5D, 640, 496, ColorPD, 508.48e-3},
	}

	for _, tc := range cases {
		m := ModeByKey(tc.key)
		if m == nil {
			t.Fatalf("ModeByKey(%q) = nil", tc.key)
		}
		if m.VIS != tc.vis {
			t.Errorf("%s VIS = 0x%02X, want 0x%02X", tc.key, m.VIS, tc.vis)
		}
		if m.Width != tc.w || m.Lines != tc.h {
			t.Errorf("%s size = %dx%d, want %dx%d", tc.key, m.Width, m.Lines, tc.w, tc.h)
		}
		if m.Color != tc.color {
			t.Errorf("%s color = %v, want %v", tc.key, m.Color, tc.color)
		}
		if math.Abs(m.LineTime()-tc.period) > 1e-6 {
			t.Errorf("%s line time = %.6f, want %.6f", tc.key, m.LineTime(), tc.period)
		}
		if got := ModeByVIS(tc.vis); got != m {
			t.Errorf("ModeByVIS(0x%02X) != ModeByKey(%q)", tc.vis, tc.key)
		}
	}
}

func TestModeLookupMisses(t *testing.T) {
	t.Parallel()
	if ModeByKey("MARTIN2") != nil {
		t.Error("unknown key should return nil")
	}
	if ModeByVIS(0x7F) != nil || ModeByVIS(200) != nil {
		t.Error("unknown VIS should return nil")
	}
	if DefaultMode.Key != KeyRobot36 {
		t.Errorf("default mode = %s, want Robot 36", DefaultMode.Key)
	}
}
