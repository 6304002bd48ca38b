// Package opcode defines the Synacor instruction set: the numeric code for
// each operation, its mnemonic, and its operand arity.
package opcode

// Code is the numeric value of a decoded instruction word.
type Code int

// The 22 defined instructions. Any word outside this range is Unknown.
const (
	Halt Code = iota
	Set
	Push
	Pop
	Eq
	Gt
	Jmp
	Jt
	Jf
	Add
	Mult
	Mod
	And
	Or
	Not
	Rmem
	Wmem
	Call
	Ret
	Out
	In
	Nop

	Unknown Code = -1
)

var mnemonics = map[Code]string{
	Halt: "halt",
	Set:  "set",
	Push: "push",
	Pop:  "pop",
	Eq:   "eq",
	Gt:   "gt",
	Jmp:  "jmp",
	Jt:   "jt",
	Jf:   "jf",
	Add:  "add",
	Mult: "mult",
	Mod:  "mod",
	And:  "and",
	Or:   "or",
	Not:  "not",
	Rmem: "rmem",
	Wmem: "wmem",
	Call: "call",
	Ret:  "ret",
	Out:  "out",
	In:   "in",
	Nop:  "nop",
}

// arity is the number of operand words following the opcode word.
var arity = map[Code]int{
	Halt: 0,
	Set:  2,
	Push: 1,
	Pop:  1,
	Eq:   3,
	Gt:   3,
	Jmp:  1,
	Jt:   2,
	Jf:   2,
	Add:  3,
	Mult: 3,
	Mod:  3,
	And:  3,
	Or:   3,
	Not:  2,
	Rmem: 2,
	Wmem: 2,
	Call: 1,
	Ret:  0,
	Out:  1,
	In:   1,
	Nop:  0,
}

// Decode classifies a raw word as an opcode. Words outside 0..21 decode to
// Unknown; callers walking an arbitrary word stream must skip those by one
// word rather than treat them as a fault.
func Decode(word uint16) Code {
	if word > 21 {
		return Unknown
	}
	return Code(word)
}

// Arity reports how many operand words follow this opcode's word.
func (c Code) Arity() int {
	n, ok := arity[c]
	if !ok {
		return 0
	}
	return n
}

// String renders the opcode's mnemonic, or "???" for Unknown.
func (c Code) String() string {
	if m, ok := mnemonics[c]; ok {
		return m
	}
	return "???"
}

// Valid reports whether c names one of the 22 defined instructions.
func (c Code) Valid() bool {
	_, ok := mnemonics[c]
	return ok
}

// Operand ranges, per the 16-bit operand encoding.
const (
	// LiteralMax is the highest value treated as a literal (and the highest
	// valid memory value).
	LiteralMax = 32767
	// RegisterBase is the first operand value that names a register.
	RegisterBase = 32768
	// RegisterMax is the last operand value that names a register (register 7).
	RegisterMax = 32775
	// RegisterCount is the number of registers.
	RegisterCount = 8
	// Modulus is the modulus for all arithmetic results.
	Modulus = 32768
)

// IsRegister reports whether operand v names a register.
func IsRegister(v uint16) bool {
	return v >= RegisterBase && v <= RegisterMax
}

// IsLiteral reports whether operand v is a literal/address value.
func IsLiteral(v uint16) bool {
	return v <= LiteralMax
}

// RegisterIndex returns the register index named by operand v. Callers must
// check IsRegister(v) first.
func RegisterIndex(v uint16) int {
	return int(v - RegisterBase)
}
