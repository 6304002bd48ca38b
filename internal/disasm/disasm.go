// Package disasm turns a Synacor word stream into a human-readable listing,
// following the same linear-sweep-then-reachability shape used to
// disassemble other small fixed-width instruction sets.
package disasm

import (
	"fmt"
	"strings"

	"github.com/dutt/synacore/internal/opcode"
)

// Record is one decoded instruction (or fused run of out instructions) at a
// known address.
type Record struct {
	Address   int
	Op        opcode.Code
	Operands  []string
	Unreached bool
}

// Walk classifies every word in words, skipping unknown words by one, and
// returns one Record per decoded instruction. Words unaccounted for at the
// tail produce a placeholder-operand record.
func Walk(words []uint16, base int) []Record {
	var out []Record
	i := 0
	for i < len(words) {
		code := opcode.Decode(words[i])
		if code == opcode.Unknown {
			i++
			continue
		}

		arity := code.Arity()
		rec := Record{Address: base + i, Op: code}
		i++
		for a := 0; a < arity; a++ {
			if i >= len(words) {
				rec.Operands = append(rec.Operands, fmt.Sprintf("<arg%d?>", a))
				continue
			}
			rec.Operands = append(rec.Operands, renderOperand(code, a, words[i]))
			i++
		}
		out = append(out, rec)
	}
	return out
}

func renderOperand(code opcode.Code, index int, v uint16) string {
	if code == opcode.Out {
		return string(rune(byte(v)))
	}
	if opcode.IsRegister(v) {
		return fmt.Sprintf("reg%d", opcode.RegisterIndex(v))
	}
	return fmt.Sprintf("%d", v)
}

// Fuse merges consecutive Out records into a single record whose operand is
// the concatenation of their characters, taking the first instruction's
// address. This is the documented consequence of unknown-word skipping: two
// out runs separated only by unknown words become adjacent and are fused.
func Fuse(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.Op == opcode.Out && len(out) > 0 && out[len(out)-1].Op == opcode.Out {
			last := &out[len(out)-1]
			last.Operands[0] += r.Operands[0]
			continue
		}
		out = append(out, r)
	}
	return out
}

// Serialize renders records one per line: "<addr>: <mnemonic> <args>". Out
// arguments are concatenated without separators; all other operands are
// space-separated.
func Serialize(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%d: %s", r.Address, r.Op)
		if len(r.Operands) > 0 {
			if r.Op == opcode.Out {
				b.WriteString(" " + strings.Join(r.Operands, ""))
			} else {
				b.WriteString(" " + strings.Join(r.Operands, " "))
			}
		}
		if r.Unreached {
			b.WriteString(" ; unreached")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// MarkReachable annotates records unreached from address 0 by a fallthrough
// and static-branch-target walk. Register-operand branch targets cannot be
// resolved statically and are not followed.
func MarkReachable(records []Record) []Record {
	byAddr := make(map[int]int, len(records))
	for i, r := range records {
		byAddr[r.Address] = i
	}

	visited := make(map[int]bool)
	queue := []int{0}
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		idx, ok := byAddr[addr]
		if !ok || visited[addr] {
			continue
		}
		visited[addr] = true
		r := records[idx]

		switch r.Op {
		case opcode.Jmp:
			if target, ok := literalOperand(r.Operands, 0); ok {
				queue = append(queue, target)
			}
		case opcode.Jt, opcode.Jf:
			if target, ok := literalOperand(r.Operands, 1); ok {
				queue = append(queue, target)
			}
			queue = append(queue, nextAddress(records, idx))
		case opcode.Call:
			if target, ok := literalOperand(r.Operands, 0); ok {
				queue = append(queue, target)
			}
			queue = append(queue, nextAddress(records, idx))
		case opcode.Halt, opcode.Ret:
			// terminal: no fallthrough
		default:
			queue = append(queue, nextAddress(records, idx))
		}
	}

	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		if !visited[out[i].Address] {
			out[i].Unreached = true
		}
	}
	return out
}

func nextAddress(records []Record, idx int) int {
	if idx+1 < len(records) {
		return records[idx+1].Address
	}
	return -1
}

func literalOperand(operands []string, index int) (int, bool) {
	if index >= len(operands) {
		return 0, false
	}
	s := operands[index]
	if strings.HasPrefix(s, "reg") {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}
