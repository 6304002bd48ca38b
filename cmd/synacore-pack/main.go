// Command synacore-pack converts a comma-separated decimal text file into a
// Synacor binary.
package main

import (
	"log"
	"os"

	"github.com/dutt/synacore/internal/packer"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) != 2 {
		log.Fatal("Usage: synacore-pack <input-file>")
	}

	outPath, err := packer.Pack(os.Args[1])
	if err != nil {
		log.Fatalf("packing failed: %v", err)
	}
	log.Printf("wrote %s", outPath)
}
