// Package program loads a compiled Synacor binary into an immutable word
// sequence.
package program

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Program is an immutable loaded binary: its word contents plus the source
// path it was read from, retained for display only.
type Program struct {
	Words []uint16
	Path  string
}

// Load reads path as a stream of little-endian 16-bit words. An odd trailing
// byte is padded with a zero rather than rejected.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program %s: %w", path, err)
	}
	return &Program{
		Words: BytesToWords(data),
		Path:  path,
	}, nil
}

// BytesToWords interprets bytes as little-endian 16-bit words. An odd
// trailing byte is padded with a zero byte.
func BytesToWords(b []byte) []uint16 {
	if len(b)%2 != 0 {
		b = append(b, 0)
	}
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out
}

// WordsToBytes converts a slice of 16-bit words to a little-endian byte slice.
func WordsToBytes(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[i*2:], w)
	}
	return out
}
