package sstv

import "errors"

// Error kinds surfaced by the codec. Recoverable conditions (missing
// start bit, failed VIS parity, missing VIS header) never reach the
// caller; they degrade inside the decoder per the propagation policy.
var (
	// ErrInvalidInput covers unknown mode keys, malformed WAV headers
	// and unsupported PCM formats.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSync means no line sync pulse could be located anywhere in
	// the sample buffer; the decoder cannot produce pixels.
	ErrNoSync = errors.New("no sync pulse found")

	// ErrNoVIS is only returned when a caller explicitly asks for VIS
	// detection alone; the decode path substitutes the default mode
	// instead.
	ErrNoVIS = errors.New("no VIS header found")
)
