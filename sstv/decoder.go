package sstv

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Config controls one decoder instance.
type Config struct {
	// AutoCalibrate refines the VIS frequency shift against measured
	// line syncs and re-acquires sync between lines to track drift.
	AutoCalibrate bool

	// ModeHint names the mode to assume when neither VIS nor timing
	// detection succeeds. Empty means Robot 36.
	ModeHint string

	// MaxVISSearchSeconds bounds the VIS scan. Zero means the 60 s
	// default; values under ~2 s miss recordings that begin well into
	// a broadcast.
	MaxVISSearchSeconds float64

	// LineFunc, when set, receives each fully reconstructed RGBA row.
	LineFunc func(y int, row []byte)
}

// Diagnostics reports how a decode went.
type Diagnostics struct {
	ModeName       string   `json:"mode_name"`
	ModeKey        string   `json:"mode_key"`
	VISCode        *int     `json:"vis_code"` // nil when no VIS was decoded
	SampleRate     int      `json:"sample_rate"`
	Duration       float64  `json:"duration_seconds"`
	FreqOffset     float64  `json:"freq_offset_hz"`
	AutoCalibrated bool     `json:"auto_calibrated"`
	FirstSyncPos   int      `json:"first_sync_pos"`
	DecodeTime     float64  `json:"decode_time_seconds"`
	TimingFallback bool     `json:"timing_fallback,omitempty"`
	UnknownVISCode *int     `json:"unknown_vis_code,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Quality        Quality  `json:"quality"`
}

// Result is a decoded frame plus its diagnostics.
type Result struct {
	Pixels      []byte // RGBA-8888, row-major, alpha 255
	Width       int
	Height      int
	Diagnostics Diagnostics
}

// Decoder turns SSTV audio into images. Instances hold no state across
// calls beyond configuration; a decode owns its buffers for the
// duration of the call, so output is a deterministic function of
// (samples, sampleRate, config).
type Decoder struct {
	rate float64
	est  *FreqEstimator
	cfg  Config
}

// NewDecoder creates a decoder for the given sample rate.
func NewDecoder(sampleRate int, cfg Config) *Decoder {
	return &Decoder{
		rate: float64(sampleRate),
		est:  NewFreqEstimator(float64(sampleRate)),
		cfg:  cfg,
	}
}

// DetectVIS runs only the VIS scan and returns ErrNoVIS when no header
// is present. Decode never returns this error; it degrades instead.
func (d *Decoder) DetectVIS(samples []float32) (*VISResult, error) {
	det := newVISDetector(d.est, d.rate, d.cfg.MaxVISSearchSeconds)
	if res, ok := det.detectVIS(samples); ok {
		return &res, nil
	}
	return nil, ErrNoVIS
}

// Decode demodulates a complete sample buffer into an RGBA frame. The
// context is checked between lines; everything else is a tight CPU
// loop.
func (d *Decoder) Decode(ctx context.Context, samples []float32) (*Result, error) {
	started := time.Now()

	fallback := DefaultMode
	if d.cfg.ModeHint != "" {
		if m := ModeByKey(d.cfg.ModeHint); m != nil {
			fallback = m
		} else {
			return nil, fmt.Errorf("%w: unknown mode hint %q", ErrInvalidInput, d.cfg.ModeHint)
		}
	}

	det := newVISDetector(d.est, d.rate, d.cfg.MaxVISSearchSeconds)
	vis := det.detect(samples, fallback)
	mode := vis.Mode

	diag := Diagnostics{
		ModeName:       mode.Name,
		ModeKey:        mode.Key,
		SampleRate:     int(d.rate),
		Duration:       float64(len(samples)) / d.rate,
		TimingFallback: vis.TimingDetected,
	}
	if vis.Code >= 0 {
		code := vis.Code
		diag.VISCode = &code
	}
	if vis.UnknownCode >= 0 {
		unknown := vis.UnknownCode
		diag.UnknownVISCode = &unknown
	}

	// First sync: forward only, widening twice before falling back to
	// the whole buffer. The VIS data and stop bits sit at 1200 Hz, so
	// a backward search would lock onto the header itself.
	finder := newSyncFinder(d.est, d.rate, mode, vis.FreqShift)
	lineSamples := int(mode.LineTime() * d.rate)
	firstSync := -1
	for _, span := range []int{lineSamples, 3 * lineSamples} {
		if firstSync = finder.findSyncPulse(samples, vis.EndPos, vis.EndPos+span); firstSync >= 0 {
			break
		}
	}
	if firstSync < 0 {
		firstSync = finder.findSyncPulse(samples, 0, len(samples))
	}
	if firstSync < 0 {
		return nil, fmt.Errorf("%w: no %s sync in %.1fs of audio",
			ErrNoSync, mode.Name, diag.Duration)
	}
	diag.FirstSyncPos = firstSync

	// Frequency offset: the VIS shift seeds it; with auto-calibration
	// the per-line sync measurement refines it.
	offset := vis.FreqShift
	if d.cfg.AutoCalibrate {
		diag.AutoCalibrated = true
		if refined := finder.estimateFreqOffset(samples, firstSync); refined != 0 {
			offset = refined
		}
	}
	diag.FreqOffset = offset

	fb := newFrame(mode)
	ld := newLineDecoder(d.est, d.rate, mode, offset, fb)

	lineStep := 1
	if mode.Color == ColorPD {
		lineStep = 2
	}

	pos := firstSync
	for y := 0; y < mode.Lines; y += lineStep {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if pos+lineSamples > len(samples) {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf(
				"audio ends %d lines early; returning partial frame", mode.Lines-y))
			log.Printf("[SSTV] Timing overflow at line %d/%d", y, mode.Lines)
			break
		}

		switch mode.Color {
		case ColorRGB:
			ld.decodeLineRGB(samples, pos, y)
		case ColorYUV:
			ld.decodeLineYUV(samples, pos, y)
		case ColorPD:
			ld.decodePairPD(samples, pos, y)
		}

		next := pos + lineSamples
		if d.cfg.AutoCalibrate {
			tol := lineSamples / 10
			if s := finder.findSyncPulse(samples, next-tol, next+tol); s >= 0 {
				next = s
			}
		}
		pos = next
	}

	switch mode.Color {
	case ColorYUV:
		reconstructYUV(fb)
	case ColorPD:
		reconstructPD(fb)
	}

	if fb.sepMismatches > mode.Lines/4 {
		diag.Warnings = append(diag.Warnings, fmt.Sprintf(
			"chroma separator disagreed with line parity on %d lines", fb.sepMismatches))
	}

	if d.cfg.LineFunc != nil {
		for y := 0; y < fb.height; y++ {
			d.cfg.LineFunc(y, fb.pix[y*fb.width*4:(y+1)*fb.width*4])
		}
	}

	diag.Quality = AnalyzeQuality(fb.pix, fb.width, fb.height)
	diag.DecodeTime = time.Since(started).Seconds()

	log.Printf("[SSTV] Decoded %s in %.2fs: verdict %s (R=%.0f G=%.0f B=%.0f)",
		mode.Name, diag.DecodeTime, diag.Quality.Verdict,
		diag.Quality.RAvg, diag.Quality.GAvg, diag.Quality.BAvg)

	return &Result{
		Pixels:      fb.pix,
		Width:       fb.width,
		Height:      fb.height,
		Diagnostics: diag,
	}, nil
}
