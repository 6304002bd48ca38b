// Package packer converts a comma-separated decimal text file into a
// Synacor binary (little-endian 16-bit words).
package packer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dutt/synacore/internal/program"
)

// Parse splits a comma-separated list of decimal numbers into words. Each
// number must fit in 16 bits unsigned.
func Parse(text string) ([]uint16, error) {
	parts := strings.Split(text, ",")
	words := make([]uint16, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		words = append(words, uint16(n))
	}
	return words, nil
}

// OutPath replaces inPath's extension with .bin.
func OutPath(inPath string) string {
	ext := filepath.Ext(inPath)
	return strings.TrimSuffix(inPath, ext) + ".bin"
}

// Pack reads inPath, parses its comma-separated numbers, and writes the
// little-endian binary encoding to OutPath(inPath).
func Pack(inPath string) (string, error) {
	contents, err := os.ReadFile(inPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", inPath, err)
	}

	words, err := Parse(string(contents))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", inPath, err)
	}

	outPath := OutPath(inPath)
	if err := os.WriteFile(outPath, program.WordsToBytes(words), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}
