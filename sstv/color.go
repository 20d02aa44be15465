package sstv

/*
 * Color reconstruction from the provisional grayscale raster plus the
 * U/V planes. Full-range matrices; clamped and rounded per channel.
 * Alpha is untouched (already opaque).
 */

// reconstructYUV converts the Robot 36 frame. Each line pair shares
// one (U, V): V from the even line's plane, U from the odd line's.
func reconstructYUV(f *frame) {
	w := f.width
	for y0 := 0; y0 < f.height; y0 += 2 {
		y1 := y0 + 1
		if y1 >= f.height {
			y1 = y0
		}
		for x := 0; x < w; x++ {
			v := float64(f.vPlane[y0*w+x]) - 128
			u := float64(f.uPlane[y1*w+x]) - 128

			for _, yy := range [2]int{y0, y1} {
				lum := f.luma(x, yy)
				f.setRGB(x, yy,
					clampByte(lum+1.402*v),
					clampByte(lum-0.344136*u-0.714136*v),
					clampByte(lum+1.772*u))
				if y1 == y0 {
					break
				}
			}
		}
	}
}

// reconstructPD converts a PD frame. The V plane carries R-Y, the U
// plane carries B-Y, both duplicated across each line pair during
// decoding, so reconstruction is purely per pixel.
func reconstructPD(f *frame) {
	w := f.width
	for y := 0; y < f.height; y++ {
		for x := 0; x < w; x++ {
			lum := f.luma(x, y)
			ry := float64(f.vPlane[y*w+x]) - 128
			by := float64(f.uPlane[y*w+x]) - 128
			f.setRGB(x, y,
				clampByte(lum+ry),
				clampByte(lum-0.194*by-0.509*ry),
				clampByte(lum+by))
		}
	}
}
