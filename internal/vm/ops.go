package vm

import (
	"math"

	"github.com/primeos/vm/internal/uor"
)

// opFunc executes one opcode's effect on v, given its decoded operands
// (only ever non-empty for PUSH). It must not touch v.ip except for the
// opcodes flagged in managesIP, which own the transition outright.
type opFunc func(v *VM, operands []int) error

var opTable = [...]opFunc{
	uor.NOP:          opNOP,
	uor.PUSH:         opPUSH,
	uor.ADD:          opADD,
	uor.SUB:          opSUB,
	uor.MUL:          opMUL,
	uor.MOD:          opMOD,
	uor.DUP:          opDUP,
	uor.DROP:         opDROP,
	uor.SWAP:         opSWAP,
	uor.COMPARE_EQ:   opCOMPARE_EQ,
	uor.PRINT:        opPRINT,
	uor.JUMP:         opJUMP,
	uor.JUMP_IF_ZERO: opJUMP_IF_ZERO,
	uor.OP_RANDOM:    opOP_RANDOM,
	uor.OP_INPUT:     opOP_INPUT,
	uor.PEEK_CHUNK:   opPEEK_CHUNK,
	uor.BUILD_CHUNK:  opBUILD_CHUNK,
	uor.POKE_CHUNK:   opPOKE_CHUNK,
	uor.FACTORIZE:    opFACTORIZE,
	uor.HALT:         opHALT,
}

func opNOP(v *VM, _ []int) error { return nil }

func opPUSH(v *VM, operands []int) error {
	return v.stack.push(operands[0])
}

func opADD(v *VM, _ []int) error {
	b, a, err := pop2(v)
	if err != nil {
		return err
	}
	if addOverflows(a, b) {
		return ArithmeticOverflowError{Op: "ADD"}
	}
	return v.stack.push(a + b)
}

func opSUB(v *VM, _ []int) error {
	b, a, err := pop2(v)
	if err != nil {
		return err
	}
	if subOverflows(a, b) {
		return ArithmeticOverflowError{Op: "SUB"}
	}
	return v.stack.push(a - b)
}

func opMUL(v *VM, _ []int) error {
	b, a, err := pop2(v)
	if err != nil {
		return err
	}
	if mulOverflows(a, b) {
		return ArithmeticOverflowError{Op: "MUL"}
	}
	return v.stack.push(a * b)
}

func opMOD(v *VM, _ []int) error {
	b, a, err := pop2(v)
	if err != nil {
		return err
	}
	if b == 0 {
		return DivisionByZeroError{}
	}
	return v.stack.push(a - (a/b)*b) // truncated remainder, Go's native semantics
}

func opDUP(v *VM, _ []int) error {
	a, err := v.stack.pop()
	if err != nil {
		return err
	}
	if err := v.stack.push(a); err != nil {
		return err
	}
	return v.stack.push(a)
}

func opDROP(v *VM, _ []int) error {
	_, err := v.stack.pop()
	return err
}

func opSWAP(v *VM, _ []int) error {
	top, err := v.stack.pop()
	if err != nil {
		return err
	}
	below, err := v.stack.pop()
	if err != nil {
		return err
	}
	if err := v.stack.push(top); err != nil {
		return err
	}
	return v.stack.push(below)
}

func opCOMPARE_EQ(v *VM, _ []int) error {
	b, a, err := pop2(v)
	if err != nil {
		return err
	}
	if a == b {
		return v.stack.push(1)
	}
	return v.stack.push(0)
}

func opPRINT(v *VM, _ []int) error {
	a, err := v.stack.pop()
	if err != nil {
		return err
	}
	v.output = append(v.output, a)
	return nil
}

func opJUMP(v *VM, _ []int) error {
	addr, err := v.stack.pop()
	if err != nil {
		return err
	}
	if addr < 0 || addr >= len(v.mem) {
		return AddressOutOfRangeError{Addr: addr, Len: len(v.mem)}
	}
	v.ip = addr
	return nil
}

func opJUMP_IF_ZERO(v *VM, _ []int) error {
	addr, err := v.stack.pop()
	if err != nil {
		return err
	}
	cond, err := v.stack.pop()
	if err != nil {
		return err
	}
	if cond != 0 {
		v.ip++
		return nil
	}
	if addr < 0 || addr >= len(v.mem) {
		return AddressOutOfRangeError{Addr: addr, Len: len(v.mem)}
	}
	v.ip = addr
	return nil
}

func opOP_RANDOM(v *VM, _ []int) error {
	n, err := v.stack.pop()
	if err != nil {
		return err
	}
	if n <= 0 {
		return NegativeRandomBoundError{N: n}
	}
	return v.stack.push(v.rng.Intn(n))
}

func opOP_INPUT(v *VM, _ []int) error {
	v.pending = true
	return nil
}

func opPEEK_CHUNK(v *VM, _ []int) error {
	addr, err := v.stack.pop()
	if err != nil {
		return err
	}
	if addr < 0 || addr >= len(v.mem) {
		return AddressOutOfRangeError{Addr: addr, Len: len(v.mem)}
	}
	return v.stack.push(v.mem[addr])
}

// opBUILD_CHUNK consumes a variable-length argument frame: a count of
// factor pairs, then that many (exponent, prime index) pairs, nearest pair
// popped first. It assembles and pushes the chunk those pairs and the
// implicit checksum factor together encode.
func opBUILD_CHUNK(v *VM, _ []int) error {
	k, err := v.stack.pop()
	if err != nil {
		return err
	}
	if k < 1 {
		return EncodingError{Note: "build_chunk: fewer than one factor pair"}
	}

	payload := 1
	expSum := 0
	for i := 0; i < k; i++ {
		exp, err := v.stack.pop()
		if err != nil {
			return err
		}
		primeIdx, err := v.stack.pop()
		if err != nil {
			return err
		}
		if exp < 0 || primeIdx < 0 {
			return EncodingError{Note: "build_chunk: negative exponent or prime index"}
		}
		p := v.codec.NthPrime(primeIdx)
		for e := 0; e < exp; e++ {
			if mulOverflows(payload, p) {
				return ArithmeticOverflowError{Op: "BUILD_CHUNK"}
			}
			payload *= p
		}
		expSum += exp
	}

	cksumExp := expSum % uor.ChecksumMod
	cksum := 1
	for e := 0; e < cksumExp; e++ {
		if mulOverflows(cksum, v.codec.ChecksumPrime()) {
			return ArithmeticOverflowError{Op: "BUILD_CHUNK"}
		}
		cksum *= v.codec.ChecksumPrime()
	}
	if mulOverflows(payload, cksum) {
		return ArithmeticOverflowError{Op: "BUILD_CHUNK"}
	}
	return v.stack.push(payload * cksum)
}

func opPOKE_CHUNK(v *VM, _ []int) error {
	addr, err := v.stack.pop()
	if err != nil {
		return err
	}
	chunk, err := v.stack.pop()
	if err != nil {
		return err
	}
	if addr < 0 || addr >= len(v.mem) {
		return AddressOutOfRangeError{Addr: addr, Len: len(v.mem)}
	}
	if _, err := v.codec.Decode(chunk); err != nil {
		return PokeDecodeError{Cause: err}
	}
	v.mem[addr] = chunk
	return nil
}

// opFACTORIZE decodes the top-of-stack chunk and pushes its opcode index
// followed by its operands in order, so the last operand ends up on top.
func opFACTORIZE(v *VM, _ []int) error {
	chunk, err := v.stack.pop()
	if err != nil {
		return err
	}
	instr, err := v.codec.Decode(chunk)
	if err != nil {
		return err
	}
	if err := v.stack.push(int(instr.Op)); err != nil {
		return err
	}
	for _, operand := range instr.Operands {
		if err := v.stack.push(operand); err != nil {
			return err
		}
	}
	return nil
}

func opHALT(v *VM, _ []int) error {
	v.halted = true
	return nil
}

func pop2(v *VM) (top, below int, err error) {
	if top, err = v.stack.pop(); err != nil {
		return 0, 0, err
	}
	if below, err = v.stack.pop(); err != nil {
		return 0, 0, err
	}
	return top, below, nil
}

func addOverflows(a, b int) bool {
	c := a + b
	return ((a ^ c) & (b ^ c)) < 0
}

func subOverflows(a, b int) bool {
	c := a - b
	return ((a ^ b) & (a ^ c)) < 0
}

func mulOverflows(a, b int) bool {
	if a == 0 || b == 0 {
		return false
	}
	c := a * b
	if a == -1 && b == math.MinInt {
		return true
	}
	return c/b != a
}
