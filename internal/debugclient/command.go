// Package debugclient implements the interactive debug REPL: a small
// recursive-descent parser for the command grammar (grounded on the
// reference implementation's PEG grammar), a session loop over the wire
// protocol, and rendering of each response kind.
package debugclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dutt/synacore/internal/wire"
)

// ErrEmptyLine signals that the input line was empty; callers should
// re-send the previously parsed command instead of reporting an error.
var ErrEmptyLine = fmt.Errorf("empty line")

// ParseCommand parses one REPL input line into a wire.Command, accepting
// both the long and short forms of every command.
func ParseCommand(line string) (wire.Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return wire.Command{}, ErrEmptyLine
	}
	fields := strings.Fields(trimmed)
	head := fields[0]

	switch head {
	case "r", "run":
		return wire.Command{Kind: wire.CommandRun}, nil
	case "s", "step":
		return wire.Command{Kind: wire.CommandStep}, nil
	case "c", "continue":
		return wire.Command{Kind: wire.CommandContinue}, nil
	case "q", "quit":
		return wire.Command{Kind: wire.CommandQuit}, nil
	case "b":
		n, err := requireNumber(fields, 1, "b <address>")
		if err != nil {
			return wire.Command{}, err
		}
		return wire.Command{Kind: wire.CommandAddBreakpoint, Addr: n}, nil
	case "del":
		n, err := requireNumber(fields, 1, "del <address>")
		if err != nil {
			return wire.Command{}, err
		}
		return wire.Command{Kind: wire.CommandRemoveBreakpoint, Addr: n}, nil
	case "pr":
		n, err := requireNumber(fields, 1, "pr <register>")
		if err != nil {
			return wire.Command{}, err
		}
		return parsePrintRegister(n)
	case "pm":
		return parsePrintMemoryArgs(fields[1:])
	case "p":
		if len(fields) < 2 {
			return wire.Command{}, fmt.Errorf("expected \"p reg <n>\" or \"p mem <a> [<l>]\"")
		}
		switch fields[1] {
		case "reg":
			n, err := requireNumber(fields, 2, "p reg <register>")
			if err != nil {
				return wire.Command{}, err
			}
			return parsePrintRegister(n)
		case "mem":
			return parsePrintMemoryArgs(fields[2:])
		default:
			return wire.Command{}, fmt.Errorf("unknown print target %q", fields[1])
		}
	default:
		return wire.Command{}, fmt.Errorf("unrecognized command %q", head)
	}
}

func parsePrintRegister(n int) (wire.Command, error) {
	if n > 7 {
		return wire.Command{}, fmt.Errorf("register %d out of range 0..7", n)
	}
	return wire.Command{Kind: wire.CommandPrintRegister, Addr: n}, nil
}

func parsePrintMemoryArgs(args []string) (wire.Command, error) {
	if len(args) < 1 {
		return wire.Command{}, fmt.Errorf("expected \"p mem <address> [<length>]\"")
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil {
		return wire.Command{}, fmt.Errorf("invalid address %q: %w", args[0], err)
	}
	length := 1
	if len(args) > 1 {
		length, err = strconv.Atoi(args[1])
		if err != nil {
			return wire.Command{}, fmt.Errorf("invalid length %q: %w", args[1], err)
		}
	}
	return wire.Command{Kind: wire.CommandPrintMemory, Addr: addr, Length: length}, nil
}

func requireNumber(fields []string, index int, usage string) (int, error) {
	if len(fields) <= index {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(fields[index])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", fields[index], err)
	}
	return n, nil
}

// ExpectedFrames reports how many framed responses the server sends for
// this command kind.
func ExpectedFrames(kind wire.CommandKind) int {
	switch kind {
	case wire.CommandRun, wire.CommandContinue:
		return 2
	case wire.CommandStep, wire.CommandAddBreakpoint, wire.CommandRemoveBreakpoint,
		wire.CommandPrintRegister, wire.CommandPrintMemory:
		return 1
	default:
		return 0
	}
}
