package sstv

import (
	"context"
	"testing"
)

func TestStreamDecoderLiveChunks(t *testing.T) {
	m := ModeByKey(KeyRobot36)
	samples := encodeForTest(t, KeyRobot36, solidImage(m.Width, m.Lines, 128, 128, 128), m.Width, m.Lines)
	// Trailing audio past the image end, as a live source would keep
	// delivering.
	samples = append(samples, make([]float32, 48000)...)

	var got *Result
	s := NewStreamDecoder(48000, Config{AutoCalibrate: true}, func(r *Result) { got = r })

	const chunk = 4800 // 100 ms, the cadence of a live PCM source
	heldAtCompletion := -1
	for off := 0; off < len(samples); off += chunk {
		end := off + chunk
		if end > len(samples) {
			end = len(samples)
		}
		s.WriteFloat(samples[off:end])
		if got != nil && heldAtCompletion < 0 {
			heldAtCompletion = s.Buffered()
		}
	}

	if got == nil {
		t.Fatal("stream session never produced a result")
	}
	if got.Diagnostics.ModeKey != KeyRobot36 {
		t.Errorf("detected %s, want Robot 36", got.Diagnostics.ModeName)
	}
	if got.Diagnostics.Quality.Verdict != VerdictGood {
		t.Errorf("verdict = %s, want good", got.Diagnostics.Quality.Verdict)
	}
	if heldAtCompletion != 0 {
		t.Errorf("session holds %d samples after completion, want reset", heldAtCompletion)
	}
}

func TestStreamDecoderInt16Chunks(t *testing.T) {
	m := ModeByKey(KeyRobot36)
	samples := encodeForTest(t, KeyRobot36, solidImage(m.Width, m.Lines, 90, 90, 90), m.Width, m.Lines)

	pcm := make([]int16, len(samples))
	for i, v := range samples {
		pcm[i] = int16(v * 32767)
	}

	var got *Result
	s := NewStreamDecoder(48000, Config{AutoCalibrate: true}, func(r *Result) { got = r })
	s.WriteInt16(pcm)
	s.WriteInt16(make([]int16, 48000))

	if got == nil {
		t.Fatal("stream session never produced a result")
	}
	q := got.Diagnostics.Quality
	if q.Brightness < 80 || q.Brightness > 100 {
		t.Errorf("brightness = %.1f, want ~90", q.Brightness)
	}
}

func TestStreamDecoderFlushEmpty(t *testing.T) {
	t.Parallel()
	s := NewStreamDecoder(48000, Config{}, nil)
	s.WriteFloat(make([]float32, 100))
	res, err := s.Flush(context.Background())
	if err != nil || res != nil {
		t.Errorf("Flush of near-empty session = (%v, %v), want (nil, nil)", res, err)
	}
}
