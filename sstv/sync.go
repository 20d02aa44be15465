package sstv

import (
	"log"
	"math"
	"sort"
)

/*
 * Line sync acquisition and frequency offset estimation.
 *
 * findSyncPulse only ever walks forward. Searching backward from the
 * VIS end is a trap: the data and stop bits sit at or near 1200 Hz and
 * false-match immediately. Callers that genuinely need slack on both
 * sides widen the range themselves.
 */

// syncFinder locates 1200 Hz line sync pulses for a specific mode.
type syncFinder struct {
	est   *FreqEstimator
	rate  float64
	mode  *Mode
	shift float64
}

func newSyncFinder(est *FreqEstimator, rate float64, mode *Mode, shift float64) *syncFinder {
	return &syncFinder{est: est, rate: rate, mode: mode, shift: shift}
}

// syncWindow returns the detection window in samples: the mode's sync
// pulse, but never under 4 ms.
func (s *syncFinder) syncWindow() int {
	d := s.mode.SyncPulse
	if d < 4e-3 {
		d = 4e-3
	}
	return int(d * s.rate)
}

// findSyncPulse scans [startPos, endPos] forward in 0.2 ms steps and
// returns the first validated sync position, or -1.
func (s *syncFinder) findSyncPulse(samples []float32, startPos, endPos int) int {
	v := &visDetector{est: s.est, rate: s.rate}
	return v.scanForSync(samples, startPos, endPos, s.syncWindow(), s.shift)
}

/*
 * Frequency offset estimation.
 *
 * The VIS shift is a single 10 ms measurement; broadcasts from moving
 * or badly tuned transmitters deserve better. Walking up to 20 line
 * syncs and taking the median center frequency rejects the outliers a
 * noisy channel produces. Offsets under 50 Hz are ignored: that is
 * within normal tuning slop and correcting it hurts clean signals.
 */

const (
	offsetEstimateLines = 20
	offsetMinSignal     = 50.0
)

// estimateFreqOffset measures the systematic sync frequency offset
// starting from the first sync pulse. Returns 0 when the offset is
// insignificant or unmeasurable.
func (s *syncFinder) estimateFreqOffset(samples []float32, firstSyncPos int) float64 {
	lineSamples := int(s.mode.LineTime() * s.rate)
	tol := lineSamples / 20
	syncSamples := int(s.mode.SyncPulse * s.rate)

	offsets := make([]float64, 0, offsetEstimateLines)
	pos := firstSyncPos
	for i := 0; i < offsetEstimateLines; i++ {
		expected := pos + lineSamples
		found := s.findSyncPulse(samples, expected-tol, expected+tol)
		if found < 0 {
			pos = expected
			continue
		}
		pos = found

		// Center frequency over the middle half of the pulse.
		start := found + syncSamples/4
		end := found + syncSamples*3/4
		coarse, _ := s.est.sweep(samples, start, end, FreqSync-150, FreqSync+150, 5)
		fine, _ := s.est.sweep(samples, start, end, coarse-5, coarse+5, 1)
		offsets = append(offsets, fine-FreqSync)
	}

	if len(offsets) == 0 {
		return 0
	}

	sort.Float64s(offsets)
	median := offsets[len(offsets)/2]
	if len(offsets)%2 == 0 {
		median = (offsets[len(offsets)/2-1] + offsets[len(offsets)/2]) / 2
	}

	if math.Abs(median) <= offsetMinSignal {
		return 0
	}
	log.Printf("[SSTV Sync] Estimated frequency offset %+.1f Hz over %d lines",
		median, len(offsets))
	return median
}
