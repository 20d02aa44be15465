package sstv

import (
	"context"
	"log"
	"sync"
)

/*
 * Streaming decode session.
 *
 * Live sources (RTP, websocket uploads) deliver int16 chunks with no
 * framing. The session accumulates them, runs VIS detection once
 * enough audio has arrived, and fires the offline pipeline when a full
 * image worth of samples is buffered. The core stays deterministic:
 * this is only an accumulation shim in front of Decode.
 */

const (
	// Do not bother scanning for VIS until this much audio exists.
	streamMinScanSeconds = 1.5

	// Re-scan cadence while no VIS has been found.
	streamRescanSeconds = 0.5

	// Slack beyond the nominal image length before decoding, covering
	// sync drift and the VIS end refinement.
	streamTailSeconds = 0.5
)

// StreamDecoder feeds a live PCM stream into the decoder.
type StreamDecoder struct {
	mu       sync.Mutex
	rate     float64
	dec      *Decoder
	onResult func(*Result)

	samples  []float32
	vis      *VISResult
	nextScan int
}

// NewStreamDecoder creates a streaming session. onResult is invoked
// from the caller's goroutine whenever an image completes; the session
// then resets for the next transmission.
func NewStreamDecoder(sampleRate int, cfg Config, onResult func(*Result)) *StreamDecoder {
	return &StreamDecoder{
		rate:     float64(sampleRate),
		dec:      NewDecoder(sampleRate, cfg),
		onResult: onResult,
		nextScan: int(streamMinScanSeconds * float64(sampleRate)),
	}
}

// WriteInt16 appends a chunk of 16-bit PCM and advances the session.
func (s *StreamDecoder) WriteInt16(chunk []int16) {
	f := make([]float32, len(chunk))
	for i, v := range chunk {
		f[i] = int16ToFloat32(v)
	}
	s.WriteFloat(f)
}

// WriteFloat appends a chunk of float PCM and advances the session.
func (s *StreamDecoder) WriteFloat(chunk []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, chunk...)
	s.advance()
}

// Buffered returns the number of samples currently held.
func (s *StreamDecoder) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// Reset drops all buffered audio and detection state.
func (s *StreamDecoder) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	s.vis = nil
	s.nextScan = int(streamMinScanSeconds * s.rate)
}

// advance runs detection and, when possible, a decode. Caller holds mu.
func (s *StreamDecoder) advance() {
	if s.vis == nil {
		if len(s.samples) < s.nextScan {
			return
		}
		s.nextScan = len(s.samples) + int(streamRescanSeconds*s.rate)

		det := newVISDetector(s.dec.est, s.rate, s.dec.cfg.MaxVISSearchSeconds)
		res, ok := det.detectVIS(s.samples)
		if !ok {
			return
		}
		s.vis = &res
		log.Printf("[SSTV Stream] %s header found at sample %d, waiting for image body",
			res.Mode.Name, res.EndPos)
	}

	need := s.vis.EndPos + s.imageSamples(s.vis.Mode) + int(streamTailSeconds*s.rate)
	if len(s.samples) < need {
		return
	}

	result, err := s.dec.Decode(context.Background(), s.samples)
	if err != nil {
		log.Printf("[SSTV Stream] Decode failed: %v", err)
	} else if s.onResult != nil {
		s.onResult(result)
	}

	// One transmission per buffer; start fresh for the next.
	s.samples = nil
	s.vis = nil
	s.nextScan = int(streamMinScanSeconds * s.rate)
}

// imageSamples is the nominal body length after the VIS end.
func (s *StreamDecoder) imageSamples(m *Mode) int {
	lines := m.Lines
	if m.Color == ColorPD {
		lines = m.Lines / 2
	}
	return lines * int(m.LineTime()*s.rate)
}

// Flush force-decodes whatever is buffered, for end-of-stream. Returns
// nil, nil when less than one second of audio is buffered; otherwise it
// returns whatever Decode returns for the buffer.
func (s *StreamDecoder) Flush(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	samples := s.samples
	s.samples = nil
	s.vis = nil
	s.nextScan = int(streamMinScanSeconds * s.rate)
	s.mu.Unlock()

	if len(samples) < int(s.rate) {
		return nil, nil
	}
	return s.dec.Decode(ctx, samples)
}
