package goalseeker

import (
	"fmt"

	"github.com/primeos/vm/internal/uor"
)

// asm is a minimal two-pass assembler for UOR chunk streams: it lets the
// program below refer to forward labels as ordinary PUSH operands, then
// resolves every label to a concrete address once the whole stream has
// been laid out. Nothing here is specific to the goal-seeker; it exists
// because hand-computing dozens of jump targets by address arithmetic is the
// kind of bookkeeping an assembler exists to remove.
type asm struct {
	codec  *uor.Codec
	instrs []pendingInstr
	labels map[string]int
}

type pendingInstr struct {
	op       uor.Opcode
	operand  int
	labelRef string // when non-empty, operand is resolved from labels at build time
}

func newAsm(codec *uor.Codec) *asm {
	return &asm{codec: codec, labels: make(map[string]int)}
}

// here returns the address the next emitted instruction will occupy.
func (a *asm) here() int { return len(a.instrs) }

// label binds name to the current address.
func (a *asm) label(name string) {
	if _, ok := a.labels[name]; ok {
		panic(fmt.Sprintf("goalseeker: duplicate label %q", name))
	}
	a.labels[name] = a.here()
}

func (a *asm) emit(op uor.Opcode) { a.instrs = append(a.instrs, pendingInstr{op: op}) }

func (a *asm) push(v int) { a.instrs = append(a.instrs, pendingInstr{op: uor.PUSH, operand: v}) }

// pushLabel emits a PUSH whose operand is resolved to name's address once
// the whole program has been laid out, for forward jump targets.
func (a *asm) pushLabel(name string) {
	a.instrs = append(a.instrs, pendingInstr{op: uor.PUSH, labelRef: name})
}

// build resolves every label reference and encodes the resulting
// instruction stream to chunks.
func (a *asm) build() ([]int, error) {
	chunks := make([]int, len(a.instrs))
	for addr, pi := range a.instrs {
		operand := pi.operand
		if pi.labelRef != "" {
			resolved, ok := a.labels[pi.labelRef]
			if !ok {
				return nil, fmt.Errorf("goalseeker: undefined label %q", pi.labelRef)
			}
			operand = resolved
		}
		var operands []int
		if pi.op == uor.PUSH {
			operands = []int{operand}
		}
		chunk, err := a.codec.Build(pi.op, operands)
		if err != nil {
			return nil, fmt.Errorf("goalseeker: encode @%d %v: %w", addr, pi.op, err)
		}
		chunks[addr] = chunk
	}
	return chunks, nil
}

// opcodeIndex and operandIndex panic on failure: they're only ever called
// with opcodes this codec itself reserved indices for during
// uor.NewCodec, so failure would mean a codec/program mismatch bug.
func opcodeIndex(codec *uor.Codec, op uor.Opcode) int {
	idx, ok := codec.OpcodePrimeIndex(op)
	if !ok {
		panic(fmt.Sprintf("goalseeker: no opcode prime index for %v", op))
	}
	return idx
}

func operandIndex(codec *uor.Codec, op uor.Opcode, j int) int {
	idx, ok := codec.OperandPrimeIndex(op, j)
	if !ok {
		panic(fmt.Sprintf("goalseeker: no operand prime index for %v[%d]", op, j))
	}
	return idx
}
