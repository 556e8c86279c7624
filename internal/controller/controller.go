// Package controller implements the interaction controller that mediates
// between a running VM and a Teacher: it loads the goal-seeker program,
// drives the VM one step at a time, and resolves every OP_INPUT suspension
// by consulting the Teacher, without ever inspecting which opcode is at the
// instruction pointer. The program's own two-suspension shape is trusted to
// alternate deterministically, so the controller's notion of what it is
// waiting for is tracked as a small piece of its own state rather than
// derived from VM internals.
package controller

import (
	"fmt"

	"github.com/primeos/vm/internal/goalseeker"
	"github.com/primeos/vm/internal/teacher"
	"github.com/primeos/vm/internal/uor"
	"github.com/primeos/vm/internal/vm"
)

// Phase names what kind of input the controller expects the next time the
// VM suspends.
type Phase string

const (
	// Idle means no session is loaded yet.
	Idle Phase = "IDLE"
	// AwaitingAttemptResult means the VM just printed an attempt and is
	// waiting to be told whether it matched the Teacher's target.
	AwaitingAttemptResult Phase = "AWAITING_ATTEMPT_RESULT"
	// SendTarget means the VM just succeeded and is waiting for the
	// Teacher's next target, which becomes its next attempt.
	SendTarget Phase = "SEND_TARGET"
)

// Controller owns one VM and one Teacher for the lifetime of a session.
type Controller struct {
	codec   *uor.Codec
	machine *vm.VM
	tch     *teacher.Teacher

	phase Phase
}

// New wires a Controller around an already-constructed VM, Teacher, and
// codec. The VM is not loaded until Init is called.
func New(codec *uor.Codec, machine *vm.VM, tch *teacher.Teacher) *Controller {
	return &Controller{codec: codec, machine: machine, tch: tch, phase: Idle}
}

// Init resets the Teacher (choosing its own, independent initial target)
// and generates a fresh goal-seeker program with initialAttempt poked into
// address 0 as the program's starting guess. The two are deliberately
// decoupled: a guess only ever lands on target by chance or by the
// failure-path's blind search, never because the controller handed it the
// answer (the one exception is SendTarget below, which is specified to do
// exactly that on every subsequent round). Init also seeds the stack with
// the four-element state frame the program's loop body is specified to
// find already present: last pushed address-0 value, session failure
// count, last modification-slot choice, last instruction-type choice. The
// generated program threads session state (last_attempt/new_attempt,
// failure count) through dedicated memory cells rather than this frame
// (see goalseeker's scratch/failcount cells), but the frame is not purely
// decorative: its top cell doubles as the modification slot's ADD
// operand, consumed and replenished once per round whenever the slot
// executes ADD, which is why it must be non-empty before the first Step.
// Session is ready for Step calls immediately after Init returns.
func (c *Controller) Init(initialAttempt int) error {
	c.tch.Reset()

	program, err := goalseeker.Generate(c.codec, initialAttempt)
	if err != nil {
		return fmt.Errorf("controller: generate program: %w", err)
	}
	if err := c.machine.Load(program); err != nil {
		return fmt.Errorf("controller: load program: %w", err)
	}
	if err := c.machine.SeedStack([]int{initialAttempt, 0, 0, 0}); err != nil {
		return fmt.Errorf("controller: seed state frame: %w", err)
	}
	c.phase = AwaitingAttemptResult
	return nil
}

// Step advances the session by exactly one unit of work: if the VM is not
// suspended, it executes one instruction; if the VM is suspended, it
// resolves the suspension by consulting the Teacher and feeding the result
// back in, flipping phase according to the outcome. Step is a no-op once
// the VM has halted.
func (c *Controller) Step() error {
	if c.machine.Halted() {
		return nil
	}

	if !c.machine.PendingInput() {
		c.machine.Step()
		return nil
	}

	switch c.phase {
	case AwaitingAttemptResult:
		return c.resolveAttemptResult()
	case SendTarget:
		return c.resolveSendTarget()
	default:
		return fmt.Errorf("controller: pending input in phase %v", c.phase)
	}
}

func (c *Controller) resolveAttemptResult() error {
	output := c.machine.Output()
	if len(output) == 0 {
		return fmt.Errorf("controller: no printed attempt to evaluate")
	}
	attempt := output[len(output)-1]

	success := c.tch.Evaluate(attempt)
	feedback := goalseeker.FeedbackFailure
	if success {
		feedback = goalseeker.FeedbackSuccess
	}
	if err := c.machine.ProvideInput(feedback); err != nil {
		return fmt.Errorf("controller: provide feedback: %w", err)
	}
	if success {
		c.phase = SendTarget
	}
	return nil
}

func (c *Controller) resolveSendTarget() error {
	target := c.tch.NextTarget(true)
	if err := c.machine.ProvideInput(target); err != nil {
		return fmt.Errorf("controller: provide target: %w", err)
	}
	c.phase = AwaitingAttemptResult
	return nil
}

// Run drives Step until the VM halts or budget steps have been taken,
// whichever comes first, returning an error only if Step itself errors.
// Hosts that want a finer-grained loop (e.g. to render a snapshot between
// every step) should call Step directly instead.
func (c *Controller) Run(budget int) error {
	for i := 0; i < budget && !c.machine.Halted(); i++ {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is the full host-facing view of a session at one point in time.
type Snapshot struct {
	InstructionPointer int
	Stack              []int
	OutputLog          []int
	Halted             bool
	Error              string
	ProgramMemory      []vm.MemorySlot
	NeedsInput         bool
	InteractionPhase   Phase
	CurrentTarget      int
	DifficultyLevel    string
	AttemptsOnTarget   int
}

// Snapshot renders the controller's and VM's combined state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		InstructionPointer: c.machine.IP(),
		Stack:              c.machine.Stack(),
		OutputLog:          c.machine.Output(),
		Halted:             c.machine.Halted(),
		ProgramMemory:      c.machine.Dump(),
		NeedsInput:         c.machine.PendingInput(),
		InteractionPhase:   c.phase,
		CurrentTarget:      c.tch.CurrentTarget(),
		DifficultyLevel:    c.tch.DifficultyLabel(),
		AttemptsOnTarget:   c.tch.AttemptsOnTarget(),
	}
	if err := c.machine.Err(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}
