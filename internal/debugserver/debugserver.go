// Package debugserver implements the TCP debug session: an unframed
// greeting followed by a length-framed JSON request/response loop wrapping
// a host.Host.
package debugserver

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/dutt/synacore/internal/disasm"
	"github.com/dutt/synacore/internal/host"
	"github.com/dutt/synacore/internal/program"
	"github.com/dutt/synacore/internal/wire"
	"github.com/rs/zerolog"
)

// DefaultAddr is the listen address used when no override is configured.
const DefaultAddr = "0.0.0.0:6565"

// Server serves one debug session at a time against a single program.
type Server struct {
	addr    string
	program *program.Program
	log     zerolog.Logger

	breakpoints   []int
	hitBreakpoint int
}

// New builds a Server bound to addr (DefaultAddr if empty) serving p.
func New(addr string, p *program.Program, logger zerolog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{addr: addr, program: p, log: logger}
}

// Serve listens on s.addr and handles sessions one at a time until the
// listener errors or ctx-less shutdown (the current protocol has no
// cancellation channel, matching the single-session model it was designed
// around).
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	defer ln.Close()
	s.log.Info().Str("addr", s.addr).Msg("debug server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accepting connection: %w", err)
		}
		s.handleSession(conn)
	}
}

func (s *Server) handleSession(conn net.Conn) {
	defer conn.Close()
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("session started")

	greeting := fmt.Sprintf("Running %s", s.program.Path)
	if _, err := conn.Write([]byte(greeting)); err != nil {
		s.log.Warn().Err(err).Msg("failed to send greeting")
		return
	}

	h := host.From(s.program)
	s.breakpoints = nil
	s.hitBreakpoint = 0

	for {
		env, err := wire.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info().Msg("session ended (peer closed)")
				return
			}
			s.log.Warn().Err(err).Msg("session ended (protocol error)")
			return
		}
		if env.Kind != wire.EnvelopeRequest {
			s.log.Warn().Str("kind", string(env.Kind)).Msg("unexpected frame kind")
			return
		}

		quit, err := s.dispatch(conn, h, env.Request)
		if err != nil {
			s.log.Warn().Err(err).Msg("error handling command")
			return
		}
		if quit {
			s.log.Info().Msg("session ended (quit)")
			return
		}
	}
}

func (s *Server) dispatch(conn net.Conn, h *host.Host, cmd wire.Command) (quit bool, err error) {
	switch cmd.Kind {
	case wire.CommandNone:
		return false, nil

	case wire.CommandRun:
		if writeErr := wire.WriteFrame(conn, textEnvelope("Starting execution")); writeErr != nil {
			return false, writeErr
		}
		if runErr := h.Run(); runErr != nil {
			s.log.Error().Err(runErr).Msg("vm trap")
		}
		return false, wire.WriteFrame(conn, stateEnvelope(h))

	case wire.CommandStep:
		if stepErr := h.Step(); stepErr != nil {
			s.log.Error().Err(stepErr).Msg("vm trap")
		}
		return false, wire.WriteFrame(conn, stateEnvelope(h))

	case wire.CommandContinue:
		if writeErr := wire.WriteFrame(conn, textEnvelope("Continuing execution")); writeErr != nil {
			return false, writeErr
		}
		hit := s.runUntilBreakpoint(h)
		var responses []wire.Response
		if hit >= 0 {
			responses = append(responses, wire.Response{Kind: wire.ResponseText, Text: fmt.Sprintf("Hit breakpoint at %d", hit)})
		}
		responses = append(responses, wire.Response{Kind: wire.ResponseState, State: wire.StateFrom(h.CreateState())})
		return false, wire.WriteFrame(conn, wire.Envelope{Kind: wire.EnvelopeResponses, Responses: responses})

	case wire.CommandAddBreakpoint:
		s.breakpoints = append(s.breakpoints, cmd.Addr)
		return false, wire.WriteFrame(conn, textEnvelope(fmt.Sprintf("Breakpoint %d added at %d", len(s.breakpoints)-1, cmd.Addr)))

	case wire.CommandRemoveBreakpoint:
		s.removeBreakpoint(cmd.Addr)
		return false, wire.WriteFrame(conn, textEnvelope(fmt.Sprintf("Breakpoint removed at %d", cmd.Addr)))

	case wire.CommandPrintRegister:
		return false, wire.WriteFrame(conn, stateEnvelope(h))

	case wire.CommandPrintMemory:
		dump := h.CreateMemoryDump(cmd.Addr, cmd.Addr+cmd.Length)
		return false, wire.WriteFrame(conn, wire.Envelope{
			Kind:     wire.EnvelopeResponse,
			Response: wire.Response{Kind: wire.ResponseDump, Start: cmd.Addr, Words: dump},
		})

	case wire.CommandQuit:
		return true, nil

	default:
		return false, fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
}

// removeBreakpoint removes the breakpoint matching addr by value, not by
// slice index: command arguments name addresses, never list positions.
func (s *Server) removeBreakpoint(addr int) {
	for i, bp := range s.breakpoints {
		if bp == addr {
			s.breakpoints = append(s.breakpoints[:i], s.breakpoints[i+1:]...)
			return
		}
	}
}

func (s *Server) atBreakpoint(ip int) bool {
	for _, bp := range s.breakpoints {
		if bp == ip {
			return true
		}
	}
	return false
}

// runUntilBreakpoint steps until IP lands on a breakpoint (checked before
// each step) or the VM stops running, returning the hit address or -1. A hit
// is also recorded in s.hitBreakpoint.
func (s *Server) runUntilBreakpoint(h *host.Host) int {
	for h.ShouldRun() {
		if s.atBreakpoint(h.IP()) {
			s.hitBreakpoint = h.IP()
			return h.IP()
		}
		if err := h.Step(); err != nil {
			s.log.Error().Err(err).Msg("vm trap")
		}
	}
	return -1
}

func textEnvelope(text string) wire.Envelope {
	return wire.Envelope{Kind: wire.EnvelopeResponse, Response: wire.Response{Kind: wire.ResponseText, Text: text}}
}

func stateEnvelope(h *host.Host) wire.Envelope {
	return wire.Envelope{Kind: wire.EnvelopeResponse, Response: wire.Response{Kind: wire.ResponseState, State: wire.StateFrom(h.CreateState())}}
}

// disassembleHere renders the instruction stream in a snapshot's window,
// addressed from the snapshot's IP.
func disassembleHere(s host.State) string {
	records := disasm.Walk(s.Here[:], s.IP)
	return disasm.Serialize(records)
}
