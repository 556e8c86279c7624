package uor

// Opcode identifies a VM instruction. The numeric values are stable within
// a build (they index straight into the codec's prime tables) but are not
// part of the wire format: only a chunk's prime factorization, produced by
// Build and consumed by Decode, ever crosses the VM boundary.
type Opcode int

const (
	NOP Opcode = iota
	PUSH
	ADD
	SUB
	MUL
	MOD
	DUP
	DROP
	SWAP
	COMPARE_EQ
	PRINT
	JUMP
	JUMP_IF_ZERO
	OP_RANDOM
	OP_INPUT
	PEEK_CHUNK
	BUILD_CHUNK
	POKE_CHUNK
	FACTORIZE
	HALT

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	NOP:          "NOP",
	PUSH:         "PUSH",
	ADD:          "ADD",
	SUB:          "SUB",
	MUL:          "MUL",
	MOD:          "MOD",
	DUP:          "DUP",
	DROP:         "DROP",
	SWAP:         "SWAP",
	COMPARE_EQ:   "COMPARE_EQ",
	PRINT:        "PRINT",
	JUMP:         "JUMP",
	JUMP_IF_ZERO:  "JUMP_IF_ZERO",
	OP_RANDOM:    "OP_RANDOM",
	OP_INPUT:     "OP_INPUT",
	PEEK_CHUNK:   "PEEK_CHUNK",
	BUILD_CHUNK:  "BUILD_CHUNK",
	POKE_CHUNK:   "POKE_CHUNK",
	FACTORIZE:    "FACTORIZE",
	HALT:         "HALT",
}

// String renders an opcode by its stable name, or "INVALID_OPCODE" for
// any value outside the fixed enumeration.
func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "INVALID_OPCODE"
}

// operandCount is the number of operands carried inside a chunk's payload
// factorization for each opcode. Every opcode but PUSH takes its inputs
// from the data stack at run time rather than from the chunk itself, so
// only PUSH has a nonzero count here.
var operandCount = [numOpcodes]int{
	PUSH: 1,
}

// NumOpcodes reports the size of the fixed opcode enumeration.
func NumOpcodes() int { return int(numOpcodes) }

// Valid reports whether op is a member of the fixed enumeration.
func (op Opcode) Valid() bool { return op >= 0 && op < numOpcodes }
