// Command synacore-debug connects to a running synacore-run debug server
// and drives it interactively.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dutt/synacore/internal/debugclient"
	"github.com/dutt/synacore/internal/debugserver"
	"github.com/grimdork/climate"
)

// Config is the debugger's command-line surface.
type Config struct {
	Addr string `name:"addr" default:"localhost:6565" help:"Debug server address to connect to."`
}

func main() {
	log.SetFlags(0)

	var cfg Config
	if err := climate.Parse(&cfg, os.Args[1:]); err != nil {
		log.Fatalf("Usage: synacore-debug [options]\n%v", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = debugserver.DefaultAddr
	}

	client, greeting, err := debugclient.Dial(cfg.Addr, os.Stdout)
	if err != nil {
		log.Fatalf("connecting to %s: %v", cfg.Addr, err)
	}
	defer client.Close()

	fmt.Println(greeting)
	if err := client.Repl(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("session error: %v", err)
	}
}
