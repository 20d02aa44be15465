package main

import (
	"encoding/binary"
	"testing"

	"github.com/cwsl/ubersstv/sstv"
)

func TestImageLineFrame(t *testing.T) {
	t.Parallel()
	rgba := []byte{10, 20, 30, 255, 40, 50, 60, 255}
	frame := frameCodec{}.imageLineFrame(7, rgba)

	if frame[0] != msgTypeImageLine {
		t.Fatalf("type = 0x%02x", frame[0])
	}
	if got := binary.BigEndian.Uint32(frame[1:5]); got != 7 {
		t.Errorf("line = %d, want 7", got)
	}
	if got := binary.BigEndian.Uint32(frame[5:9]); got != 2 {
		t.Errorf("width = %d, want 2", got)
	}
	want := []byte{10, 20, 30, 40, 50, 60}
	for i, b := range want {
		if frame[9+i] != b {
			t.Errorf("rgb[%d] = %d, want %d", i, frame[9+i], b)
		}
	}
}

func TestCompressedFrameRoundTrip(t *testing.T) {
	t.Parallel()
	codec := frameCodec{compress: true}
	frame := codec.statusFrame("Listening for SSTV")

	if frame[0] != compressedMarker {
		t.Fatalf("compressed frame missing marker, got 0x%02x", frame[0])
	}
	plain, err := zstdDecoder.DecodeAll(frame[1:], nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if plain[0] != msgTypeStatus {
		t.Errorf("inner type = 0x%02x", plain[0])
	}
	if got := binary.BigEndian.Uint16(plain[1:3]); int(got) != len("Listening for SSTV") {
		t.Errorf("status length = %d", got)
	}
}

func TestModeDetectedFrame(t *testing.T) {
	t.Parallel()
	m := sstv.ModeByKey(sstv.KeyMartin1)
	frame := frameCodec{}.modeDetectedFrame(m)
	if frame[0] != msgTypeModeDetected || frame[1] != 0x2C {
		t.Fatalf("header bytes = %v", frame[:2])
	}
	if got := string(frame[3 : 3+frame[2]]); got != "Martin M1" {
		t.Errorf("name = %q", got)
	}
}

func TestPCMBytesToInt16(t *testing.T) {
	t.Parallel()
	data := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	got := pcmBytesToInt16(data)
	want := []int16{1, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}
