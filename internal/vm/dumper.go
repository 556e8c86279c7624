package vm

import (
	"fmt"
	"strings"
)

// MemorySlot is one entry of a program memory dump: the raw chunk plus its
// human-readable decoding, or the decode error in place of a rendering
// should the chunk fail to decode (Load and POKE_CHUNK only ever store
// chunks that decode).
type MemorySlot struct {
	Addr    int
	Chunk   int
	Decoded string
}

// Dump renders program memory the way a host-facing snapshot does: one
// entry per address, each carrying both the raw chunk and a decoded
// mnemonic string, following the disassembly-listing style the rest of
// this codebase's dumper uses for its own memory dumps.
func (v *VM) Dump() []MemorySlot {
	slots := make([]MemorySlot, len(v.mem))
	for addr, chunk := range v.mem {
		slots[addr] = MemorySlot{
			Addr:    addr,
			Chunk:   chunk,
			Decoded: v.decodedString(chunk),
		}
	}
	return slots
}

func (v *VM) decodedString(chunk int) string {
	instr, err := v.codec.Decode(chunk)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	if len(instr.Operands) == 0 {
		return instr.Op.String()
	}
	parts := make([]string, len(instr.Operands))
	for i, o := range instr.Operands {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return instr.Op.String() + " " + strings.Join(parts, " ")
}

// String renders a full VM snapshot for debugging: IP, halted/pending
// state, the data stack, and a decoded program memory listing, in that
// order, one line at a time.
func (v *VM) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ip=%d halted=%v pending=%v err=%v\n", v.ip, v.halted, v.pending, v.err)
	fmt.Fprintf(&b, "stack=%v\n", v.Stack())
	for _, slot := range v.Dump() {
		marker := "  "
		if slot.Addr == v.ip {
			marker = "->"
		}
		fmt.Fprintf(&b, "%s %04d: %-12d %s\n", marker, slot.Addr, slot.Chunk, slot.Decoded)
	}
	return b.String()
}
