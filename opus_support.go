//go:build opus
// +build opus

package main

import (
	"fmt"
	"log"
	"os"

	opus "gopkg.in/hraban/opus.v2"
)

// opusAvailable reports whether Ogg/Opus input was compiled in
const opusAvailable = true

// readOpusFile decodes an Ogg/Opus recording to float samples. Opus
// always decodes at 48 kHz, which is also the codec's canonical rate.
func readOpusFile(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open opus file: %w", err)
	}
	defer f.Close()

	stream, err := opus.NewStream(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	var samples []float32
	buf := make([]float32, 11520) // 240 ms of 48 kHz mono
	for {
		n, err := stream.ReadFloat32(buf)
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
		samples = append(samples, buf[:n]...)
	}

	log.Printf("[Audio] Read %.1fs from opus file %s", float64(len(samples))/48000, path)
	return samples, 48000, nil
}
