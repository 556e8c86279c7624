package vm

import "github.com/primeos/vm/internal/mem"

// defaultStackLimit caps stack depth in the absence of an explicit limit,
// standing in for "implementations choose a safe cap" from the data model.
const defaultStackLimit = 1 << 16

// stack is the VM's LIFO data stack. It is built on mem.Ints, the same
// paged integer storage the teacher codebase uses for its dictionary
// memory: pushing never needs pre-sizing, and popped pages are left
// allocated rather than freed, which is fine since depth, not storage, is
// what StackOverflow guards.
type stack struct {
	mem.Ints
	depth uint
}

func newStack(limit uint) *stack {
	if limit == 0 {
		limit = defaultStackLimit
	}
	s := &stack{}
	s.Limit = limit
	return s
}

func (s *stack) Len() int { return int(s.depth) }

func (s *stack) push(v int) error {
	if s.depth >= s.Limit {
		return StackOverflowError{}
	}
	if err := s.Stor(s.depth, v); err != nil {
		return StackOverflowError{}
	}
	s.depth++
	return nil
}

func (s *stack) pop() (int, error) {
	if s.depth == 0 {
		return 0, StackUnderflowError{}
	}
	s.depth--
	v, err := s.Load(s.depth)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// snapshot returns the stack contents bottom-first, as required by the VM
// snapshot's stack field.
func (s *stack) snapshot() []int {
	out := make([]int, s.depth)
	_ = s.LoadInto(0, out)
	return out
}
