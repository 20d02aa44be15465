package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG for image.Decode
	"image/png"
	"io"
)

/*
 * Raster plumbing between the HTTP/CLI surfaces and the codec. The
 * core consumes images at the mode's native size; scaling happens
 * here, nearest neighbor, which is what SSTV's resolution deserves.
 */

// loadImageRGBA decodes PNG or JPEG and scales to the requested size,
// returning a row-major RGBA-8888 buffer.
func loadImageRGBA(r io.Reader, width, height int) ([]byte, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return scaleRGBA(img, width, height), nil
}

// scaleRGBA resamples any image.Image to width x height RGBA bytes.
func scaleRGBA(img image.Image, width, height int) []byte {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	out := make([]byte, 4*width*height)
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y*srcH/height
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x*srcW/width
			r, g, b, _ := img.At(sx, sy).RGBA()
			o := (y*width + x) * 4
			out[o] = uint8(r >> 8)
			out[o+1] = uint8(g >> 8)
			out[o+2] = uint8(b >> 8)
			out[o+3] = 255
		}
	}
	return out
}

// encodePNG wraps an RGBA buffer as a PNG file.
func encodePNG(pixels []byte, width, height int) ([]byte, error) {
	img := &image.RGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
