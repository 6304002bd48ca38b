// Command synacore-run loads a Synacor binary and serves a debug session
// over TCP.
package main

import (
	"log"
	"os"

	"github.com/dutt/synacore/internal/debugserver"
	"github.com/dutt/synacore/internal/program"
	"github.com/grimdork/climate"
	"github.com/rs/zerolog"
)

// Config is the runner's command-line surface, parsed by climate from
// tagged struct fields.
type Config struct {
	Addr    string `name:"addr" default:"0.0.0.0:6565" help:"Debug server listen address."`
	Debug   bool   `name:"debug" help:"Set the log level to debug."`
	Program string `arg:"1" help:"Path to the compiled Synacor binary."`
}

func main() {
	log.SetFlags(0)

	var cfg Config
	if err := climate.Parse(&cfg, os.Args[1:]); err != nil {
		log.Fatalf("Usage: synacore-run [options] <program.bin>\n%v", err)
	}
	if cfg.Program == "" {
		log.Fatal("Usage: synacore-run [options] <program.bin>")
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	p, err := program.Load(cfg.Program)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load program")
	}

	srv := debugserver.New(cfg.Addr, p, logger)
	if err := srv.Serve(); err != nil {
		logger.Fatal().Err(err).Msg("debug server stopped")
	}
}
