package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestScaleRGBANearestNeighbor(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{255, 0, 0, 255})
	src.Set(1, 0, color.RGBA{0, 255, 0, 255})
	src.Set(0, 1, color.RGBA{0, 0, 255, 255})
	src.Set(1, 1, color.RGBA{255, 255, 255, 255})

	out := scaleRGBA(src, 4, 4)
	if len(out) != 64 {
		t.Fatalf("output length = %d, want 64", len(out))
	}
	// Top-left 2x2 block is red, bottom-right white.
	if out[0] != 255 || out[1] != 0 {
		t.Errorf("top-left = (%d,%d,...), want red", out[0], out[1])
	}
	o := (3*4 + 3) * 4
	if out[o] != 255 || out[o+1] != 255 || out[o+2] != 255 {
		t.Errorf("bottom-right not white")
	}
	for i := 3; i < len(out); i += 4 {
		if out[i] != 255 {
			t.Fatalf("alpha not opaque at %d", i)
		}
	}
}

func TestLoadImageRGBAAndPNGRoundTrip(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{100, 150, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	pixels, err := loadImageRGBA(&buf, 16, 16)
	if err != nil {
		t.Fatalf("loadImageRGBA: %v", err)
	}
	if len(pixels) != 16*16*4 {
		t.Fatalf("pixel buffer = %d bytes", len(pixels))
	}
	if pixels[0] != 100 || pixels[1] != 150 || pixels[2] != 200 {
		t.Errorf("pixel = (%d,%d,%d), want (100,150,200)", pixels[0], pixels[1], pixels[2])
	}

	encoded, err := encodePNG(pixels, 16, 16)
	if err != nil {
		t.Fatalf("encodePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("decode of encodePNG output: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("round-trip bounds = %v", img.Bounds())
	}
}

func TestLoadImageRGBARejectsGarbage(t *testing.T) {
	t.Parallel()
	if _, err := loadImageRGBA(bytes.NewReader([]byte("not an image")), 320, 240); err == nil {
		t.Error("expected error for non-image input")
	}
}
