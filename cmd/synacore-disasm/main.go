// Command synacore-disasm produces a static listing of a Synacor binary.
package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dutt/synacore/internal/disasm"
	"github.com/dutt/synacore/internal/program"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		log.Fatal("Usage: synacore-disasm <program.bin> [output-file]")
	}
	inPath := os.Args[1]

	p, err := program.Load(inPath)
	if err != nil {
		log.Fatalf("loading %s: %v", inPath, err)
	}

	records := disasm.Fuse(disasm.Walk(p.Words, 0))
	records = disasm.MarkReachable(records)
	listing := disasm.Serialize(records)

	outPath := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".decompiled"
	if len(os.Args) >= 3 {
		outPath = os.Args[2]
	}

	if err := os.WriteFile(outPath, []byte(listing+"\n"), 0o644); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	log.Printf("wrote %s", outPath)
}
