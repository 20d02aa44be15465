package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/cwsl/ubersstv/sstv"
)

// Binary Websocket Frame Format
// =============================
//
// Live decode sessions exchange binary frames. Downstream (server to
// client):
//
//   MODE DETECTED (0x02):  [type:1][vis:1][name_len:1][name:N]
//   IMAGE LINE    (0x01):  [type:1][line:4 BE][width:4 BE][rgb:3*width]
//   COMPLETE      (0x05):  [type:1][json_len:4 BE][diagnostics json:N]
//   STATUS        (0x03):  [type:1][msg_len:2 BE][message:N]
//
// Upstream (client to server) frames are raw little-endian int16 mono
// PCM at the negotiated sample rate.
//
// When compression is enabled each downstream frame is zstd-compressed
// and prefixed with the 0xC5 marker byte; clients inspect the first
// byte to decide whether to decompress.

const (
	msgTypeImageLine    = 0x01
	msgTypeModeDetected = 0x02
	msgTypeStatus       = 0x03
	msgTypeComplete     = 0x05

	compressedMarker = 0xC5
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// frameCodec builds and optionally compresses websocket frames
type frameCodec struct {
	compress bool
}

func (c frameCodec) finish(frame []byte) []byte {
	if !c.compress {
		return frame
	}
	out := make([]byte, 1, len(frame)/2+1)
	out[0] = compressedMarker
	return zstdEncoder.EncodeAll(frame, out)
}

// modeDetectedFrame announces the detected mode
func (c frameCodec) modeDetectedFrame(mode *sstv.Mode) []byte {
	name := []byte(mode.Name)
	msg := make([]byte, 3+len(name))
	msg[0] = msgTypeModeDetected
	msg[1] = mode.VIS
	msg[2] = uint8(len(name))
	copy(msg[3:], name)
	return c.finish(msg)
}

// imageLineFrame carries one decoded line as RGB
func (c frameCodec) imageLineFrame(line int, rgba []byte) []byte {
	width := len(rgba) / 4
	msg := make([]byte, 1+4+4+width*3)
	msg[0] = msgTypeImageLine
	binary.BigEndian.PutUint32(msg[1:5], uint32(line))
	binary.BigEndian.PutUint32(msg[5:9], uint32(width))
	for x := 0; x < width; x++ {
		copy(msg[9+x*3:], rgba[x*4:x*4+3])
	}
	return c.finish(msg)
}

// statusFrame carries a human-readable progress message
func (c frameCodec) statusFrame(status string) []byte {
	b := []byte(status)
	msg := make([]byte, 3+len(b))
	msg[0] = msgTypeStatus
	binary.BigEndian.PutUint16(msg[1:3], uint16(len(b)))
	copy(msg[3:], b)
	return c.finish(msg)
}

// completeFrame carries the final diagnostics as JSON
func (c frameCodec) completeFrame(diag sstv.Diagnostics) []byte {
	payload, err := json.Marshal(diag)
	if err != nil {
		payload = []byte("{}")
	}
	msg := make([]byte, 5+len(payload))
	msg[0] = msgTypeComplete
	binary.BigEndian.PutUint32(msg[1:5], uint32(len(payload)))
	copy(msg[5:], payload)
	return c.finish(msg)
}

// decompressUpload expands a zstd-compressed request body and rejects a
// result larger than maxBytes; the limit is checked after the whole body
// has been decoded
func decompressUpload(data []byte, maxBytes int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd body: %w", err)
	}
	if len(out) > maxBytes {
		return nil, fmt.Errorf("decompressed body %d bytes exceeds limit %d", len(out), maxBytes)
	}
	return out, nil
}

// pcmBytesToInt16 converts little-endian PCM bytes to samples
func pcmBytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
