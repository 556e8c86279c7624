// Package vm implements the stack machine that executes decoded UOR chunks:
// a fixed-length program memory, a bounded LIFO data stack, and the
// dispatch loop that steps one instruction at a time so a host can suspend
// and resume it around OP_INPUT.
package vm

import (
	"math/rand"

	"github.com/primeos/vm/internal/uor"
)

// managesIP is the set of opcodes whose exec function is responsible for
// the instruction pointer transition itself. Every other opcode leaves the
// generic step loop to advance IP by one after a successful dispatch.
var managesIP = [...]bool{
	uor.JUMP:         true,
	uor.JUMP_IF_ZERO: true,
	uor.OP_INPUT:     true,
	uor.HALT:         true,
}

// VM is one running instance of the machine: its own program memory, data
// stack, and execution state. Two VMs never share mutable state, but they
// may safely share a *uor.Codec (and the primetab.Table underneath it),
// since both are internally synchronized.
type VM struct {
	codec *uor.Codec

	mem    []int
	stack  *stack
	ip     int
	output []int

	halted  bool
	err     error
	pending bool

	rng  *rand.Rand
	Logf func(format string, args ...interface{})
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStackLimit overrides the default data stack depth cap.
func WithStackLimit(limit uint) Option {
	return func(v *VM) { v.stack = newStack(limit) }
}

// WithRand overrides the source OP_RANDOM draws from. Absent this option,
// New uses a source with the fixed seed 1, so every VM built without it
// draws the same sequence.
func WithRand(rng *rand.Rand) Option {
	return func(v *VM) { v.rng = rng }
}

// WithLogf attaches a leveled logging hook, following the logf-closure
// pattern used throughout this codebase in place of a heavier logging
// interface.
func WithLogf(logf func(string, ...interface{})) Option {
	return func(v *VM) { v.Logf = logf }
}

// New returns a VM ready to Load a program. codec must not be nil.
func New(codec *uor.Codec, opts ...Option) *VM {
	v := &VM{
		codec: codec,
		stack: newStack(0),
		rng:   rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VM) logf(format string, args ...interface{}) {
	if v.Logf != nil {
		v.Logf(format, args...)
	}
}

// Load installs program as this VM's program memory, verifying every chunk
// decodes up front, and resets all execution state. Program memory's
// length is fixed for the lifetime of the load: POKE_CHUNK mutates the
// contents of a slot, never the slice's length.
func (v *VM) Load(program []int) error {
	for addr, chunk := range program {
		if _, err := v.codec.Decode(chunk); err != nil {
			return FetchDecodeError{Addr: addr, Cause: err}
		}
	}
	v.mem = append([]int(nil), program...)
	v.stack = newStack(v.stack.Limit)
	v.ip = 0
	v.output = nil
	v.halted = false
	v.err = nil
	v.pending = false
	return nil
}

// SeedStack pushes each of values onto the stack in order. It exists for a
// host's session setup, to pre-establish the state frame a freshly loaded
// program expects to find already on the stack; callers must use it only
// immediately after Load, before any Step.
func (v *VM) SeedStack(values []int) error {
	for _, val := range values {
		if err := v.stack.push(val); err != nil {
			return err
		}
	}
	return nil
}

// IP returns the current instruction pointer.
func (v *VM) IP() int { return v.ip }

// Halted reports whether the VM has stopped executing, either normally
// (via HALT) or fatally (Err returns non-nil in that case).
func (v *VM) Halted() bool { return v.halted }

// Err returns the fatal error that halted the VM, or nil if it has not
// halted or halted normally via HALT.
func (v *VM) Err() error { return v.err }

// PendingInput reports whether the VM is suspended awaiting ProvideInput.
func (v *VM) PendingInput() bool { return v.pending }

// Output returns the accumulated PRINT log, oldest first.
func (v *VM) Output() []int { return append([]int(nil), v.output...) }

// Stack returns the current data stack contents, bottom-first.
func (v *VM) Stack() []int { return v.stack.snapshot() }

// ProgramMemory returns a copy of program memory, in address order.
func (v *VM) ProgramMemory() []int { return append([]int(nil), v.mem...) }

// Peek reads program memory at addr without going through the running
// program, for hosts inspecting VM state between steps.
func (v *VM) Peek(addr int) (int, error) {
	if addr < 0 || addr >= len(v.mem) {
		return 0, AddressOutOfRangeError{Addr: addr, Len: len(v.mem)}
	}
	return v.mem[addr], nil
}

// Decode is a convenience wrapper letting a host render program memory
// (see Dump) without reaching into the VM's codec directly.
func (v *VM) Decode(chunk int) (uor.Instruction, error) { return v.codec.Decode(chunk) }

// Step executes exactly one instruction, or does nothing if the VM is
// already halted or suspended awaiting input. Fatal errors are recorded on
// the VM (Err, Halted) rather than returned; Step installs no panic
// recovery of its own.
func (v *VM) Step() {
	if v.halted || v.pending {
		return
	}

	at := v.ip
	chunk, err := v.Peek(at)
	if err != nil {
		v.fail(err)
		return
	}
	instr, err := v.codec.Decode(chunk)
	if err != nil {
		v.fail(FetchDecodeError{Addr: at, Cause: err})
		return
	}

	fn := opTable[instr.Op]
	if fn == nil {
		v.fail(FetchDecodeError{Addr: at, Cause: uor.EncodingError{Op: instr.Op, Note: "unimplemented opcode"}})
		return
	}

	v.logf("step @%d %v %v", at, instr.Op, instr.Operands)
	if err := fn(v, instr.Operands); err != nil {
		v.fail(err)
		return
	}
	if !managesIP[instr.Op] {
		v.ip++
	}
}

// ProvideInput resumes a VM suspended on OP_INPUT: it pushes value and
// advances IP by one, the second half of OP_INPUT's contract.
func (v *VM) ProvideInput(value int) error {
	if !v.pending {
		return NotPendingError{}
	}
	if err := v.stack.push(value); err != nil {
		v.fail(err)
		return err
	}
	v.pending = false
	v.ip++
	return nil
}

// fail records a fatal error and halts the VM. IP is left at the
// offending instruction, per the boundary property that a halted VM's IP
// always names the instruction that could not complete.
func (v *VM) fail(err error) {
	v.halted = true
	v.err = err
}
