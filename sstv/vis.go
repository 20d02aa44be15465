package sstv

import (
	"log"
	"math"
)

/*
 * VIS header detection.
 *
 * The VIS frame is a 300 ms 1900 Hz leader, a 10 ms 1200 Hz break, a
 * 30 ms 1900 Hz start bit, seven 30 ms data bits LSB first (1100 Hz =
 * 1, 1300 Hz = 0), an even parity bit and a 30 ms 1200 Hz stop bit.
 *
 * Detection tolerates transmitters that are off frequency: the break
 * tone's measured offset from 1200 Hz becomes the working frequency
 * shift for every later comparison. Two independent leader probes
 * before each break candidate suppress the false positives that long
 * noise or silence prefixes otherwise produce.
 */

const (
	visScanStride    = 0.5e-3
	visCandidateWin  = 10e-3
	visLeaderProbe   = 20e-3
	visBreakStep     = 5e-3
	visBreakMaxScan  = 300e-3
	visBreakMinLen   = 5e-3
	visEndSearchSpan = 60e-3
	visEndSearchStep = 2e-3
	visEndProbe      = 2e-3

	// Default ceiling on how much leading audio is searched for a VIS
	// header. Generous because real recordings can begin many seconds
	// before the broadcast.
	DefaultVISSearchSeconds = 60.0
)

// VISResult describes how the decoder identified the transmission.
type VISResult struct {
	Mode      *Mode
	EndPos    int     // sample index where the image body begins
	FreqShift float64 // measured transmitter offset in Hz

	// Code is the decoded 7-bit VIS code, or -1 when the mode came
	// from timing analysis or the default.
	Code int

	// UnknownCode is the last parity-valid code that matched no
	// registry entry, or -1. Surfaced as a diagnostic only.
	UnknownCode int

	// TimingDetected is set when the mode was inferred from line
	// periods rather than a VIS code.
	TimingDetected bool
}

// visDetector scans a sample buffer for a VIS header.
type visDetector struct {
	est       *FreqEstimator
	rate      float64
	maxSearch float64 // seconds
}

func newVISDetector(est *FreqEstimator, rate, maxSearch float64) *visDetector {
	if maxSearch <= 0 {
		maxSearch = DefaultVISSearchSeconds
	}
	return &visDetector{est: est, rate: rate, maxSearch: maxSearch}
}

func (v *visDetector) samplesFor(d float64) int {
	return int(d * v.rate)
}

// detect runs VIS detection followed by the timing fallback. It always
// produces a result; when both strategies fail the default mode is
// assumed with EndPos 0 so the orchestrator can still hunt for sync.
func (v *visDetector) detect(samples []float32, fallback *Mode) VISResult {
	visRes, ok := v.detectVIS(samples)
	if ok {
		return visRes
	}
	if res, ok := v.detectByTiming(samples); ok {
		log.Printf("[SSTV VIS] No valid VIS header; matched %s by line timing", res.Mode.Name)
		res.UnknownCode = visRes.UnknownCode
		return res
	}
	if fallback == nil {
		fallback = DefaultMode
	}
	log.Printf("[SSTV VIS] No VIS header or timing match; assuming %s", fallback.Name)
	return VISResult{Mode: fallback, EndPos: 0, Code: -1, UnknownCode: visRes.UnknownCode}
}

// detectVIS scans for break candidates at a 0.5 ms stride and vets
// each against the full VIS structure.
func (v *visDetector) detectVIS(samples []float32) (VISResult, bool) {
	stride := v.samplesFor(visScanStride)
	candWin := v.samplesFor(visCandidateWin)
	limit := len(samples) - candWin
	if searchCap := v.samplesFor(v.maxSearch); limit > searchCap {
		limit = searchCap
	}

	unknownCode := -1
	for pos := 0; pos <= limit; pos += stride {
		breakFreq := v.est.DetectFrequency(samples, pos, candWin)
		if math.Abs(breakFreq-FreqSync) > 150 {
			continue
		}

		res, unknown, ok := v.vetCandidate(samples, pos, breakFreq)
		if unknown >= 0 {
			unknownCode = unknown
		}
		if ok {
			res.UnknownCode = unknownCode
			return res, true
		}
	}

	return VISResult{UnknownCode: unknownCode}, false
}

// vetCandidate validates one break candidate. Returns the result on
// success; the middle return is a parity-valid VIS code that matched
// no mode (-1 otherwise).
func (v *visDetector) vetCandidate(samples []float32, pos int, breakFreq float64) (VISResult, int, bool) {
	shift := breakFreq - FreqSync
	probeWin := v.samplesFor(visLeaderProbe)
	bitSamples := v.samplesFor(visBitTime)

	// Two independent leader probes. Either failing kills the
	// candidate; this is what keeps noise prefixes quiet.
	for _, back := range []float64{200e-3, 100e-3} {
		p := pos - v.samplesFor(back)
		if p < 0 {
			return VISResult{}, -1, false
		}
		f := v.est.DetectFrequency(samples, p, probeWin)
		if math.Abs(f-(FreqVISStart+shift)) > 200 {
			return VISResult{}, -1, false
		}
	}

	// Establish the break extent in 5 ms steps, backward then forward.
	step := v.samplesFor(visBreakStep)
	maxScan := v.samplesFor(visBreakMaxScan)
	begin := pos
	for pos-begin < maxScan && begin-step >= 0 {
		if math.Abs(v.est.DetectFrequency(samples, begin-step, step)-breakFreq) > 80 {
			break
		}
		begin -= step
	}
	end := pos
	for end-pos < maxScan && end+step <= len(samples) {
		if math.Abs(v.est.DetectFrequency(samples, end, step)-breakFreq) > 80 {
			break
		}
		end += step
	}
	if end-begin < v.samplesFor(visBreakMinLen) {
		return VISResult{}, -1, false
	}

	// Re-measure over the middle of the established break: the
	// candidate window usually straddles the leader/break boundary.
	if mid := (end - begin) / 2; mid >= 10 {
		breakFreq = v.est.DetectFrequency(samples, begin+mid/2, mid)
		shift = breakFreq - FreqSync
	}

	// A 30 ms tone near 1900 Hz after the break is the start bit; some
	// transmitters omit it and data bits begin immediately.
	dataStart := end
	if f := v.bitProbe(samples, end); math.Abs(f-(FreqVISStart+shift)) <= 150 {
		dataStart = end + bitSamples
	}

	// First-bit sanity: a second start-bit-like tone, or a frequency
	// outside the data band, means this was not a VIS break.
	first := v.bitProbe(samples, dataStart)
	if math.Abs(first-(FreqVISStart+shift)) <= 150 {
		return VISResult{}, -1, false
	}
	if first-shift < 1000 || first-shift > 1500 {
		return VISResult{}, -1, false
	}

	// Seven data bits LSB first plus even parity.
	code := 0
	parity := 0
	for i := 0; i < 7; i++ {
		f := v.bitProbe(samples, dataStart+i*bitSamples)
		if f < FreqSync+shift {
			code |= 1 << i
			parity ^= 1
		}
	}
	parityBit := 0
	if v.bitProbe(samples, dataStart+7*bitSamples) < FreqSync+shift {
		parityBit = 1
	}
	if parity != parityBit {
		if DebugEnabled() {
			log.Printf("[SSTV VIS] Parity fail for code 0x%02x at sample %d", code, pos)
		}
		return VISResult{}, -1, false
	}

	mode := ModeByVIS(uint8(code))
	if mode == nil {
		log.Printf("[SSTV VIS] Valid parity but unknown VIS code 0x%02x, continuing", code)
		return VISResult{}, code, false
	}

	endPos := v.refineVISEnd(samples, dataStart+9*bitSamples, shift, mode.SyncPulse)
	log.Printf("[SSTV VIS] Detected %s (VIS 0x%02x) at sample %d, shift %+.0f Hz",
		mode.Name, code, endPos, shift)

	return VISResult{Mode: mode, EndPos: endPos, FreqShift: shift, Code: code, UnknownCode: -1}, -1, true
}

// bitProbe measures the central 20 ms of a 30 ms bit cell, which keeps
// the read stable against the few-ms error in the break-extent scan.
func (v *visDetector) bitProbe(samples []float32, bitStart int) float64 {
	margin := v.samplesFor(5e-3)
	return v.est.DetectFrequency(samples, bitStart+margin, v.samplesFor(visLeaderProbe))
}

// refineVISEnd searches ±60 ms around the nominal end for the 1500 Hz
// porch that follows the first line sync; the sync pulse of the now
// known mode precedes that porch. Falls back to the nominal position.
func (v *visDetector) refineVISEnd(samples []float32, nominal int, shift, syncPulse float64) int {
	span := v.samplesFor(visEndSearchSpan)
	step := v.samplesFor(visEndSearchStep)
	probe := v.samplesFor(visEndProbe)

	for p := nominal - span; p <= nominal+span; p += step {
		if p < 0 || p+probe > len(samples) {
			continue
		}
		f := v.est.DetectFrequency(samples, p, probe)
		if math.Abs(f-(FreqBlack+shift)) <= 100 {
			end := p - v.samplesFor(syncPulse)
			if end < 0 {
				end = 0
			}
			return end
		}
	}
	return nominal
}

/*
 * Timing-based fallback: no decodable VIS, but the transmission may
 * still carry a clean leader and sync cadence. Find a sustained
 * 1900 Hz leader, skip the VIS region, then match the inter-sync
 * period against the registry.
 */

const (
	leaderScanStep   = 10e-3
	leaderScanWin    = 20e-3
	leaderMinRun     = 200e-3
	leaderVISSkip    = 500e-3
	timingTolerance  = 0.10
	timingSyncProbes = 3
)

func (v *visDetector) detectByTiming(samples []float32) (VISResult, bool) {
	step := v.samplesFor(leaderScanStep)
	win := v.samplesFor(leaderScanWin)
	needRunF := leaderMinRun/leaderScanStep + 0.5
	needRun := int(needRunF)
	limit := len(samples) - win
	if searchCap := v.samplesFor(v.maxSearch); limit > searchCap {
		limit = searchCap
	}

	run := 0
	leaderStart := -1
	for pos := 0; pos <= limit; pos += step {
		f := v.est.SpectralPeak(samples, pos, win, 1000, 2600)
		if math.Abs(f-FreqVISStart) <= 100 {
			if run == 0 {
				leaderStart = pos
			}
			run++
			if run >= needRun {
				break
			}
		} else {
			run = 0
			leaderStart = -1
		}
	}
	if run < needRun || leaderStart < 0 {
		return VISResult{}, false
	}

	// Hunt image sync pulses past the VIS region and measure cadence.
	searchFrom := leaderStart + v.samplesFor(leaderVISSkip)
	syncDur := v.samplesFor(5e-3)
	syncs := make([]int, 0, timingSyncProbes)
	pos := searchFrom
	for len(syncs) < timingSyncProbes {
		searchEnd := pos + v.samplesFor(700e-3)
		s := v.scanForSync(samples, pos, searchEnd, syncDur, 0)
		if s < 0 {
			break
		}
		syncs = append(syncs, s)
		pos = s + v.samplesFor(100e-3)
	}
	if len(syncs) < 2 {
		return VISResult{}, false
	}

	period := float64(syncs[len(syncs)-1]-syncs[0]) / float64(len(syncs)-1)
	for _, m := range Modes() {
		expected := m.LineTime() * v.rate
		if math.Abs(period-expected)/expected <= timingTolerance {
			return VISResult{
				Mode: m, EndPos: syncs[0], Code: -1, UnknownCode: -1,
				TimingDetected: true,
			}, true
		}
	}
	return VISResult{}, false
}

// scanForSync is the shared forward scan for a sustained 1200 Hz pulse
// of at least syncDur samples. Acceptance needs the whole window plus
// three sub-windows near the expected frequency, which rejects brief
// noise bursts and data bits.
func (v *visDetector) scanForSync(samples []float32, startPos, endPos, syncDur int, shift float64) int {
	step := v.samplesFor(0.2e-3)
	if step < 1 {
		step = 1
	}
	if startPos < 0 {
		startPos = 0
	}
	if endPos > len(samples)-syncDur {
		endPos = len(samples) - syncDur
	}

	target := FreqSync + shift
	sub := syncDur / 3
	for pos := startPos; pos <= endPos; pos += step {
		// Energy gate: silence has no frequency, and the probe list
		// would otherwise report its first entry.
		if v.est.Goertzel(samples, pos, pos+syncDur, target) < 0.05 {
			continue
		}
		if math.Abs(v.est.DetectFrequency(samples, pos, syncDur)-target) > 200 {
			continue
		}
		ok := true
		for _, off := range []int{0, sub, 2 * sub} {
			if math.Abs(v.est.DetectFrequency(samples, pos+off, sub)-target) > 200 {
				ok = false
				break
			}
		}
		if ok {
			return pos
		}
	}
	return -1
}
