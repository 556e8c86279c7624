// Package uor implements the UOR (Universal Object Representation) codec:
// the bijection between integer chunks and decoded instructions described
// in this repository's data model. A chunk is a checksum-guarded prime
// factorization; an Instruction is the (opcode, operands) pair it encodes.
package uor

import (
	"sync"

	"github.com/primeos/vm/internal/primetab"
)

// ChecksumMod is the fixed modulus the checksum exponent is taken under.
const ChecksumMod = 256

// Instruction is the decoded view of a chunk: an opcode plus its operands,
// in the order defined by OperandPrimes for that opcode.
type Instruction struct {
	Op       Opcode
	Operands []int
}

// Codec holds the fixed prime assignments used to build and decode chunks,
// backed by a shared primetab.Table. Every Codec constructed against the
// same Table (or against Tables that have resolved the same low indices,
// which in practice means any Table at all, since growth is strictly
// increasing from index 0) produces identical chunks for identical
// instructions.
type Codec struct {
	primes *primetab.Table

	checksumPrime int
	opcodePrime   [numOpcodes]int
	operandPrimes [numOpcodes][]int

	mu    sync.Mutex
	cache map[int]cacheEntry
}

type cacheEntry struct {
	instr Instruction
	err   error
}

// NewCodec reserves the fixed set of opcode and operand primes against pt
// and returns a ready Codec. Reservation happens once, in a stable order,
// so that decode work afterward is pure table lookup as described for the
// prime table component.
func NewCodec(pt *primetab.Table) *Codec {
	c := &Codec{primes: pt, cache: make(map[int]cacheEntry)}

	idx := 0
	c.checksumPrime = pt.Nth(idx)
	idx++
	for op := Opcode(0); op < numOpcodes; op++ {
		c.opcodePrime[op] = pt.Nth(idx)
		idx++
	}
	for op := Opcode(0); op < numOpcodes; op++ {
		n := operandCount[op]
		if n == 0 {
			continue
		}
		primes := make([]int, n)
		for j := 0; j < n; j++ {
			primes[j] = pt.Nth(idx)
			idx++
		}
		c.operandPrimes[op] = primes
	}
	return c
}

// NthPrime exposes the codec's backing prime table, so that BUILD_CHUNK's
// generic (prime_idx, exp) argument frame can be resolved the same way the
// codec itself resolves opcode and operand primes.
func (c *Codec) NthPrime(i int) int { return c.primes.Nth(i) }

// ChecksumPrime returns the single reserved prime whose exponent carries a
// chunk's checksum.
func (c *Codec) ChecksumPrime() int { return c.checksumPrime }

// OpcodePrimeIndex returns the prime-table index of op's opcode prime, for
// callers (notably generated UOR programs) that need to hand BUILD_CHUNK a
// prime index rather than a prime value.
func (c *Codec) OpcodePrimeIndex(op Opcode) (int, bool) {
	if !op.Valid() {
		return 0, false
	}
	return c.primes.IndexOf(c.opcodePrime[op])
}

// OperandPrimeIndex returns the prime-table index of op's j-th operand
// prime.
func (c *Codec) OperandPrimeIndex(op Opcode, j int) (int, bool) {
	if !op.Valid() || j < 0 || j >= len(c.operandPrimes[op]) {
		return 0, false
	}
	return c.primes.IndexOf(c.operandPrimes[op][j])
}

// Build encodes an instruction as a chunk integer.
func (c *Codec) Build(op Opcode, operands []int) (int, error) {
	if !op.Valid() {
		return 0, EncodingError{op, "unknown opcode"}
	}
	want := operandCount[op]
	if len(operands) != want {
		return 0, EncodingError{op, "wrong operand count"}
	}
	for _, v := range operands {
		if v < 0 {
			return 0, EncodingError{op, "negative operand"}
		}
	}

	payload := c.opcodePrime[op]
	expSum := 1
	for j, v := range operands {
		e := v + 1
		payload *= pow(c.operandPrimes[op][j], e)
		expSum += e
	}

	cksumExp := expSum % ChecksumMod
	return payload * pow(c.checksumPrime, cksumExp), nil
}

// Decode factors a chunk and recovers the instruction it encodes.
func (c *Codec) Decode(chunk int) (Instruction, error) {
	c.mu.Lock()
	if entry, ok := c.cache[chunk]; ok {
		c.mu.Unlock()
		return entry.instr, entry.err
	}
	c.mu.Unlock()

	instr, err := c.decode(chunk)

	c.mu.Lock()
	c.cache[chunk] = cacheEntry{instr, err}
	c.mu.Unlock()
	return instr, err
}

func (c *Codec) decode(chunk int) (Instruction, error) {
	factors, err := c.factor(chunk)
	if err != nil {
		return Instruction{}, err
	}

	cksumExp, hasCksum := factors[c.checksumPrime]
	if hasCksum {
		delete(factors, c.checksumPrime)
	}

	var op = Opcode(-1)
	for candidate := Opcode(0); candidate < numOpcodes; candidate++ {
		p := c.opcodePrime[candidate]
		e, present := factors[p]
		if !present {
			continue
		}
		if e != 1 {
			return Instruction{}, DecodeError{NoOpcode, chunk, "opcode prime exponent != 1"}
		}
		if op >= 0 {
			return Instruction{}, DecodeError{Ambiguous, chunk, "multiple opcode primes present"}
		}
		op = candidate
	}
	if op < 0 {
		return Instruction{}, DecodeError{NoOpcode, chunk, "no opcode prime present"}
	}
	delete(factors, c.opcodePrime[op])

	operands := make([]int, operandCount[op])
	expSum := 1
	for j, p := range c.operandPrimes[op] {
		e, present := factors[p]
		if !present || e < 1 {
			return Instruction{}, DecodeError{BadOperand, chunk, "missing or zero operand exponent"}
		}
		operands[j] = e - 1
		expSum += e
		delete(factors, p)
	}

	if len(factors) > 0 {
		return Instruction{}, DecodeError{Foreign, chunk, "unrecognized payload prime"}
	}

	if !hasCksum {
		return Instruction{}, DecodeError{Checksum, chunk, "missing checksum factor"}
	}
	if cksumExp != expSum%ChecksumMod {
		return Instruction{}, DecodeError{Checksum, chunk, "exponent mismatch"}
	}

	return Instruction{Op: op, Operands: operands}, nil
}

// factor fully factors x against c.primes, growing the table as needed.
// The checksum prime and all opcode/operand primes are always resolved up
// front by NewCodec, so trial division here only ever needs to discover
// genuinely foreign primes past those already known.
func (c *Codec) factor(x int) (map[int]int, error) {
	if x <= 0 {
		return nil, DecodeError{NoOpcode, x, "non-positive chunk"}
	}
	factors := make(map[int]int)
	remaining := x
	for i := 0; ; i++ {
		p := c.primes.Nth(i)
		if p*p > remaining {
			break
		}
		for remaining%p == 0 {
			factors[p]++
			remaining /= p
		}
		if remaining == 1 {
			break
		}
	}
	if remaining > 1 {
		factors[remaining]++
	}
	return factors, nil
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
