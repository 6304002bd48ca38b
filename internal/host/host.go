// Package host implements the Synacor VM core: registers, stack, memory,
// instruction pointer, and the fetch-decode-execute loop for all 22
// instructions.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dutt/synacore/internal/opcode"
	"github.com/dutt/synacore/internal/program"
)

// Sentinel errors for the fatal trap conditions. Every trap sets Halted and
// is wrapped with the offending instruction pointer by the caller.
var (
	ErrInvalidOperand    = errors.New("invalid operand")
	ErrInvalidWriteTarget = errors.New("invalid write target")
	ErrSegmentationFault = errors.New("memory read out of range")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrCallToZero        = errors.New("call to address zero")
	ErrUnknownOpcode     = errors.New("unknown opcode")
)

// StateWindowSize is the number of words captured after IP in a snapshot.
const StateWindowSize = 20

// State is a point-in-time snapshot of the VM, used by the debug protocol.
type State struct {
	Registers [opcode.RegisterCount]uint16
	IP        int
	Count     uint32
	Here      [StateWindowSize]uint16
}

// Host owns one running VM instance.
type Host struct {
	memory    []uint16
	registers [opcode.RegisterCount]uint16
	stack     []uint16
	ip        int
	count     uint32
	halted    bool
	path      string

	in  *bufio.Reader
	out io.Writer

	pending []byte
	err     error
}

// From builds a Host from a loaded program. Memory is a copy of the
// program's words; registers, stack, IP, and count start at their zero
// values.
func From(p *program.Program) *Host {
	mem := make([]uint16, len(p.Words))
	copy(mem, p.Words)
	return &Host{
		memory: mem,
		path:   p.Path,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Path returns the source path the running program was loaded from.
func (h *Host) Path() string { return h.path }

// IP returns the current instruction pointer.
func (h *Host) IP() int { return h.ip }

// Count returns the number of instructions executed so far.
func (h *Host) Count() uint32 { return h.count }

// Err returns the trap that halted the VM, if any.
func (h *Host) Err() error { return h.err }

// ShouldRun reports whether the VM may execute another instruction: it must
// not be halted and IP must address a word within memory.
func (h *Host) ShouldRun() bool {
	return !h.halted && h.ip < len(h.memory)
}

// resolve interprets an operand as a value: literals pass through, register
// operands read the register's current value, anything else is invalid.
func (h *Host) resolve(v uint16) (uint16, error) {
	switch {
	case opcode.IsLiteral(v):
		return v, nil
	case opcode.IsRegister(v):
		return h.registers[opcode.RegisterIndex(v)], nil
	default:
		return 0, ErrInvalidOperand
	}
}

// write stores val at the destination named by target: a literal addresses
// memory (extended with zeros as needed), a register operand writes that
// register, anything else is an invalid write target.
func (h *Host) write(target, val uint16) error {
	switch {
	case opcode.IsLiteral(target):
		h.ensureMemory(int(target))
		h.memory[target] = val
		return nil
	case opcode.IsRegister(target):
		h.registers[opcode.RegisterIndex(target)] = val
		return nil
	default:
		return ErrInvalidWriteTarget
	}
}

func (h *Host) ensureMemory(addr int) {
	if addr < len(h.memory) {
		return
	}
	grown := make([]uint16, addr+1)
	copy(grown, h.memory)
	h.memory = grown
}

func (h *Host) readMem(addr uint16) (uint16, error) {
	if int(addr) >= len(h.memory) {
		return 0, ErrSegmentationFault
	}
	return h.memory[addr], nil
}

func (h *Host) fetch() (uint16, error) {
	w, err := h.readMem(uint16(h.ip))
	if err != nil {
		return 0, err
	}
	h.ip++
	return w, nil
}

func (h *Host) push(v uint16) {
	h.stack = append(h.stack, v)
}

func (h *Host) pop() (uint16, error) {
	if len(h.stack) == 0 {
		return 0, ErrStackUnderflow
	}
	n := len(h.stack) - 1
	v := h.stack[n]
	h.stack = h.stack[:n]
	return v, nil
}

// Step executes exactly one instruction at IP. It is a no-op if ShouldRun is
// false. A trap sets Halted, stashes the error on the Host, and leaves IP
// pointing at the faulting instruction's opcode word.
func (h *Host) Step() error {
	if !h.ShouldRun() {
		return nil
	}

	faultIP := h.ip
	if err := h.step(); err != nil {
		h.halted = true
		h.err = err
		h.ip = faultIP
		return fmt.Errorf("trap at %d: %w", faultIP, err)
	}
	h.count++
	return nil
}

// Run clears Halted and steps until ShouldRun is false.
func (h *Host) Run() error {
	h.halted = false
	for h.ShouldRun() {
		if err := h.Step(); err != nil {
			return err
		}
	}
	return nil
}

// step decodes and dispatches one instruction, per opcode.go's table-driven
// ISA. See host.go's Step for the halt/count bookkeeping around this.
func (h *Host) step() error {
	op, err := h.fetch()
	if err != nil {
		return err
	}

	code := opcode.Decode(op)
	switch code {
	case opcode.Halt:
		h.halted = true
		return nil
	case opcode.Set:
		a, b, err := h.operandsAB()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		return h.write(a, bv)
	case opcode.Push:
		b, err := h.operandA()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		h.push(bv)
		return nil
	case opcode.Pop:
		a, err := h.operandA()
		if err != nil {
			return err
		}
		v, err := h.pop()
		if err != nil {
			return err
		}
		return h.write(a, v)
	case opcode.Eq:
		return h.execCompare(func(x, y uint16) bool { return x == y })
	case opcode.Gt:
		return h.execCompare(func(x, y uint16) bool { return x > y })
	case opcode.Jmp:
		b, err := h.operandA()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		h.ip = int(bv)
		return nil
	case opcode.Jt:
		return h.execBranch(func(v uint16) bool { return v != 0 })
	case opcode.Jf:
		return h.execBranch(func(v uint16) bool { return v == 0 })
	case opcode.Add:
		return h.execArith(func(x, y uint32) uint32 { return x + y })
	case opcode.Mult:
		return h.execArith(func(x, y uint32) uint32 { return x * y })
	case opcode.Mod:
		return h.execArith(func(x, y uint32) uint32 {
			if y == 0 {
				return 0
			}
			return x % y
		})
	case opcode.And:
		return h.execArith(func(x, y uint32) uint32 { return x & y })
	case opcode.Or:
		return h.execArith(func(x, y uint32) uint32 { return x | y })
	case opcode.Not:
		a, b, err := h.operandsAB()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		return h.write(a, (^bv)&0x7FFF)
	case opcode.Rmem:
		a, b, err := h.operandsAB()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		v, err := h.readMem(bv)
		if err != nil {
			return err
		}
		return h.write(a, v)
	case opcode.Wmem:
		a, b, err := h.operandsAB()
		if err != nil {
			return err
		}
		av, err := h.resolve(a)
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		h.ensureMemory(int(av))
		h.memory[av] = bv
		return nil
	case opcode.Call:
		b, err := h.operandA()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		if bv == 0 {
			return ErrCallToZero
		}
		h.push(uint16(h.ip))
		h.ip = int(bv)
		return nil
	case opcode.Ret:
		v, err := h.pop()
		if err != nil {
			return err
		}
		h.ip = int(v)
		return nil
	case opcode.Out:
		b, err := h.operandA()
		if err != nil {
			return err
		}
		bv, err := h.resolve(b)
		if err != nil {
			return err
		}
		_, werr := h.out.Write([]byte{byte(bv)})
		return werr
	case opcode.In:
		a, err := h.operandA()
		if err != nil {
			return err
		}
		v, err := h.nextInputByte()
		if err != nil {
			return err
		}
		return h.write(a, v)
	case opcode.Nop:
		return nil
	default:
		return ErrUnknownOpcode
	}
}

func (h *Host) operandA() (uint16, error) {
	return h.fetch()
}

func (h *Host) operandsAB() (a, b uint16, err error) {
	a, err = h.fetch()
	if err != nil {
		return 0, 0, err
	}
	b, err = h.fetch()
	return a, b, err
}

func (h *Host) operandsABC() (a, b, c uint16, err error) {
	a, err = h.fetch()
	if err != nil {
		return 0, 0, 0, err
	}
	b, err = h.fetch()
	if err != nil {
		return 0, 0, 0, err
	}
	c, err = h.fetch()
	return a, b, c, err
}

func (h *Host) execArith(f func(x, y uint32) uint32) error {
	a, b, c, err := h.operandsABC()
	if err != nil {
		return err
	}
	bv, err := h.resolve(b)
	if err != nil {
		return err
	}
	cv, err := h.resolve(c)
	if err != nil {
		return err
	}
	r := f(uint32(bv), uint32(cv)) % opcode.Modulus
	return h.write(a, uint16(r))
}

func (h *Host) execCompare(f func(x, y uint16) bool) error {
	a, b, c, err := h.operandsABC()
	if err != nil {
		return err
	}
	bv, err := h.resolve(b)
	if err != nil {
		return err
	}
	cv, err := h.resolve(c)
	if err != nil {
		return err
	}
	if f(bv, cv) {
		return h.write(a, 1)
	}
	return h.write(a, 0)
}

func (h *Host) execBranch(f func(uint16) bool) error {
	b, c, err := h.operandsAB()
	if err != nil {
		return err
	}
	bv, err := h.resolve(b)
	if err != nil {
		return err
	}
	cv, err := h.resolve(c)
	if err != nil {
		return err
	}
	if f(bv) {
		h.ip = int(cv)
	}
	return nil
}

// nextInputByte returns the next pending input character, reading a full
// line from stdin (newline included) when the buffer is empty.
func (h *Host) nextInputByte() (uint16, error) {
	for len(h.pending) == 0 {
		line, err := h.in.ReadString('\n')
		if len(line) == 0 && err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		h.pending = []byte(line)
	}
	b := h.pending[0]
	h.pending = h.pending[1:]
	return uint16(b), nil
}

// CreateState captures the current registers, IP, instruction count, and a
// fixed-size window of memory starting at IP.
func (h *Host) CreateState() State {
	var s State
	s.Registers = h.registers
	s.IP = h.ip
	s.Count = h.count
	for i := 0; i < StateWindowSize; i++ {
		addr := h.ip + i
		if addr < len(h.memory) {
			s.Here[i] = h.memory[addr]
		}
	}
	return s
}

// CreateMemoryDump returns memory[start:end], clamping end to the current
// memory length.
func (h *Host) CreateMemoryDump(start, end int) []uint16 {
	if start < 0 {
		start = 0
	}
	if end > len(h.memory) {
		end = len(h.memory)
	}
	if start >= end {
		return nil
	}
	out := make([]uint16, end-start)
	copy(out, h.memory[start:end])
	return out
}

// MemoryLen reports the current size of memory.
func (h *Host) MemoryLen() int { return len(h.memory) }

// SetOutput redirects the out stream used by the out opcode; tests use this
// to capture VM output without touching os.Stdout.
func (h *Host) SetOutput(w io.Writer) { h.out = w }

// SetInput redirects the stream used by the in opcode.
func (h *Host) SetInput(r io.Reader) { h.in = bufio.NewReader(r) }
