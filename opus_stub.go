//go:build !opus
// +build !opus

package main

import "fmt"

// opusAvailable reports whether Ogg/Opus input was compiled in
const opusAvailable = false

// readOpusFile is unavailable without the opus build tag
func readOpusFile(path string) ([]float32, int, error) {
	return nil, 0, fmt.Errorf("opus input not compiled in; rebuild with -tags opus (requires libopus-dev libopusfile-dev)")
}
