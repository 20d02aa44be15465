package sstv

import (
	"encoding/binary"
	"fmt"
	"math"
)

/*
 * RIFF/WAVE emission and parsing for mono 16-bit PCM.
 *
 * The writer emits the canonical 44-byte header. The reader walks the
 * chunk list instead of assuming a 44-byte header: real-world writers
 * insert LIST/INFO/fact chunks before data, and a fixed skip misparses
 * those files.
 */

const wavHeaderSize = 44

// WriteWAV encodes float samples as a mono 16-bit little-endian PCM
// WAV file. Samples are clamped to [-1, 1] before quantization.
func WriteWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(int16(math.Round(v*0x7FFF))))
	}
	return buf
}

// ReadWAV parses a mono 16-bit PCM WAV file into float samples and its
// sample rate. Chunks other than fmt and data are skipped.
func ReadWAV(data []byte) ([]float32, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidInput)
	}

	var (
		sampleRate int
		haveFmt    bool
		pcm        []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			// Truncated final chunk; take what is there.
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: fmt chunk too small (%d bytes)", ErrInvalidInput, size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels := binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported audio format %d (need PCM)", ErrInvalidInput, format)
			}
			if channels != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported channel count %d (need mono)", ErrInvalidInput, channels)
			}
			if bits != 16 {
				return nil, 0, fmt.Errorf("%w: unsupported bit depth %d (need 16)", ErrInvalidInput, bits)
			}
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		if pcm != nil && haveFmt {
			break
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, 0, fmt.Errorf("%w: missing fmt chunk", ErrInvalidInput)
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("%w: missing data chunk", ErrInvalidInput)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = int16ToFloat32(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return samples, sampleRate, nil
}

// int16ToFloat32 inverts the writer's 0x7FFF quantization so a
// write/read round trip stays within one quantization step.
func int16ToFloat32(v int16) float32 {
	f := float32(v) / 32767.0
	if f < -1 {
		f = -1
	}
	return f
}
