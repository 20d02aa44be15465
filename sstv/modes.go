package sstv

/*
 * SSTV Mode Specifications
 *
 * References:
 *   - Martin Bruchanov OK2MNM (2012, 2019): www.sstv-handbook.com/download/sstv_04.pdf
 *   - JL Barber N7CXI: "Proposal for SSTV Mode Specifications" (Dayton SSTV forum, 2000)
 *   - Dave Jones KB4YZ (1999): "SSTV Modes - Line Timing"
 */

// Wire-level tone frequencies in Hz. These are the interoperability
// contract and must not change.
const (
	FreqSync     = 1200.0 // line sync, VIS break, VIS stop
	FreqBlack    = 1500.0 // pixel value 0, Y porch
	FreqWhite    = 2300.0 // pixel value 255
	FreqVISBit1  = 1100.0 // VIS data/parity bit = 1
	FreqVISBit0  = 1300.0 // VIS data/parity bit = 0
	FreqVISStart = 1900.0 // VIS leader and start bit
)

// VIS header timing in seconds.
const (
	visLeaderTime = 300e-3
	visBreakTime  = 10e-3
	visBitTime    = 30e-3
)

// Robot 36 line layout constants (seconds). The Y scan is full width,
// the chroma scan is half horizontal resolution, alternating V (even
// lines) and U (odd lines).
const (
	robotYScanTime      = 88e-3
	robotSeparatorTime  = 4.5e-3
	robotChromaPorch    = 1.5e-3
	robotChromaScanTime = 44e-3
)

// ColorFormat identifies how a mode encodes color on the wire.
type ColorFormat int

const (
	ColorRGB ColorFormat = iota // three full-width channel scans per line (G, B, R)
	ColorYUV                    // full-width luma + alternating half-width chroma
	ColorPD                     // line pairs: Y0, R-Y, B-Y, Y1
)

func (c ColorFormat) String() string {
	switch c {
	case ColorRGB:
		return "RGB"
	case ColorYUV:
		return "YUV"
	case ColorPD:
		return "PD"
	}
	return "unknown"
}

// Mode describes one supported SSTV mode. Instances are immutable; the
// registry hands out pointers into a static table.
type Mode struct {
	Name string // human-readable label
	Key  string // stable identifier for mode selection
	VIS  uint8  // 7-bit VIS code

	Width int // pixels per scanline
	Lines int // number of scanlines

	Color ColorFormat

	SyncPulse float64 // 1200 Hz sync duration (seconds)
	SyncPorch float64 // 1500 Hz porch duration (seconds)

	// RGB modes only.
	ScanTime       float64 // per-channel scan duration (seconds)
	SeparatorPulse float64 // 1200 Hz channel separator (seconds)

	// PD modes only.
	ComponentTime float64 // per-component duration (seconds); 4 components per line pair
}

// Mode keys accepted by the encoder and reported in diagnostics.
const (
	KeyRobot36  = "ROBOT36"
	KeyMartin1  = "MARTIN1"
	KeyScottie1 = "SCOTTIE1"
	KeyPD120    = "PD120"
)

var modeTable = []Mode{
	{
		Name: "Robot 36", Key: KeyRobot36, VIS: 0x08,
		Width: 320, Lines: 240, Color: ColorYUV,
		SyncPulse: 9e-3, SyncPorch: 3e-3,
	},
	{
		Name: "Martin M1", Key: KeyMartin1, VIS: 0x2C,
		Width: 320, Lines: 256, Color: ColorRGB,
		SyncPulse: 4.862e-3, SyncPorch: 0.572e-3,
		ScanTime: 146e-3, SeparatorPulse: 0.572e-3,
	},
	{
		Name: "Scottie S1", Key: KeyScottie1, VIS: 0x3C,
		Width: 320, Lines: 256, Color: ColorRGB,
		SyncPulse: 9e-3, SyncPorch: 1.5e-3,
		ScanTime: 138e-3, SeparatorPulse: 1.5e-3,
	},
	{
		Name: "PD 120", Key: KeyPD120, VIS: 0x5D,
		Width: 640, Lines: 496, Color: ColorPD,
		SyncPulse: 20e-3, SyncPorch: 2.08e-3,
		ComponentTime: 121.6e-3,
	},
}

// DefaultMode is assumed when neither VIS nor timing detection succeeds.
var DefaultMode = &modeTable[0]

// LineTime returns the nominal duration of one scanline in seconds.
// For PD modes this is the duration of one line pair, since chroma is
// shared across two raster rows and the sync cadence is per pair.
func (m *Mode) LineTime() float64 {
	switch m.Color {
	case ColorRGB:
		return m.SyncPulse + m.SyncPorch + 3*m.ScanTime + 2*m.SeparatorPulse
	case ColorYUV:
		return m.SyncPulse + m.SyncPorch + robotYScanTime +
			robotSeparatorTime + robotChromaPorch + robotChromaScanTime
	case ColorPD:
		return m.SyncPulse + m.SyncPorch + 4*m.ComponentTime
	}
	return 0
}

// ChromaPlanes reports whether the mode carries chroma separately from
// the raster and therefore needs U/V planes during decoding.
func (m *Mode) ChromaPlanes() bool {
	return m.Color == ColorYUV || m.Color == ColorPD
}

// Modes returns the registry in declaration order.
func Modes() []*Mode {
	out := make([]*Mode, len(modeTable))
	for i := range modeTable {
		out[i] = &modeTable[i]
	}
	return out
}

// ModeByKey looks up a mode by its key (e.g. "ROBOT36").
func ModeByKey(key string) *Mode {
	for i := range modeTable {
		if modeTable[i].Key == key {
			return &modeTable[i]
		}
	}
	return nil
}

// ModeByVIS looks up a mode by its 7-bit VIS code.
func ModeByVIS(vis uint8) *Mode {
	if vis >= 128 {
		return nil
	}
	for i := range modeTable {
		if modeTable[i].VIS == vis {
			return &modeTable[i]
		}
	}
	return nil
}
