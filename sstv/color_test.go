package sstv

import "testing"

func TestReconstructYUVSharedChroma(t *testing.T) {
	t.Parallel()
	m := ModeByKey(KeyRobot36)
	f := newFrame(m)

	for x := 0; x < f.width; x++ {
		f.setLuma(x, 0, 100)
		f.setLuma(x, 1, 100)
		f.vPlane[0*f.width+x] = 200 // even line carries V
		f.uPlane[1*f.width+x] = 60  // odd line carries U
	}
	reconstructYUV(f)

	for _, y := range []int{0, 1} {
		o := (y*f.width + 5) * 4
		r, g, b := f.pix[o], f.pix[o+1], f.pix[o+2]
		if r != 201 || g != 72 || b != 0 {
			t.Errorf("line %d pixel = (%d,%d,%d), want (201,72,0)", y, r, g, b)
		}
	}
}

func TestReconstructYUVNeutralChroma(t *testing.T) {
	t.Parallel()
	m := ModeByKey(KeyRobot36)
	f := newFrame(m)
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			f.setLuma(x, y, 180)
		}
	}
	// Planes stay at their neutral 128 seed.
	reconstructYUV(f)

	o := (100*f.width + 100) * 4
	if f.pix[o] != 180 || f.pix[o+1] != 180 || f.pix[o+2] != 180 {
		t.Errorf("neutral chroma gave (%d,%d,%d), want gray 180",
			f.pix[o], f.pix[o+1], f.pix[o+2])
	}
}

func TestReconstructPD(t *testing.T) {
	t.Parallel()
	m := ModeByKey(KeyPD120)
	f := newFrame(m)

	x, y := 10, 4
	f.setLuma(x, y, 100)
	f.vPlane[y*f.width+x] = 180 // R-Y
	f.uPlane[y*f.width+x] = 70  // B-Y
	reconstructPD(f)

	o := (y*f.width + x) * 4
	r, g, b := f.pix[o], f.pix[o+1], f.pix[o+2]
	if r != 152 || g != 85 || b != 42 {
		t.Errorf("pixel = (%d,%d,%d), want (152,85,42)", r, g, b)
	}
}

func TestClampByte(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   float64
		want uint8
	}{
		{-10, 0}, {0, 0}, {127.4, 127}, {127.5, 128}, {255, 255}, {300, 255},
	}
	for _, tc := range cases {
		if got := clampByte(tc.in); got != tc.want {
			t.Errorf("clampByte(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
