// Package goalseeker generates the canonical self-modifying chunk stream
// that the interaction controller loads into a fresh VM: a guessing loop
// that prints an attempt, asks the controller (and through it, a Teacher)
// whether it was right, and rewrites its own first two instructions in
// response rather than keeping any of that state in ordinary variables.
package goalseeker

import "github.com/primeos/vm/internal/uor"

// Protocol-level constants shared with the controller and teacher.
const (
	AttemptModulus         = 10
	MaxFailuresBeforeStuck = 3
	StuckSignal            = 99

	FeedbackFailure = 0
	FeedbackSuccess = 1
)

// AttemptAddr and ModSlotAddr are the two program-memory cells the
// protocol promises are at fixed addresses: the PUSH that supplies the
// current attempt, and the modification slot executed right after it.
const (
	AttemptAddr = 0
	ModSlotAddr = 1
)

// Generate builds the canonical goal-seeker program against codec,
// seeded with initialAttempt as address 0's operand. The returned chunk
// stream is ready to load into a fresh VM.
func Generate(codec *uor.Codec, initialAttempt int) ([]int, error) {
	a := newAsm(codec)

	opcodeIdxPUSH := opcodeIndex(codec, uor.PUSH)
	operandIdxPUSH0 := operandIndex(codec, uor.PUSH, 0)

	chunkNOP, err := codec.Build(uor.NOP, nil)
	if err != nil {
		return nil, err
	}
	chunkPUSH0, err := codec.Build(uor.PUSH, []int{0})
	if err != nil {
		return nil, err
	}
	chunkADD, err := codec.Build(uor.ADD, nil)
	if err != nil {
		return nil, err
	}

	// --- main loop ---

	a.label("loop")
	a.push(initialAttempt) // address 0: the attempt push
	a.emit(uor.NOP)        // address 1: the modification slot

	// The slot's three possible contents have different stack arity: NOP
	// leaves the pushed attempt alone, PUSH(0) leaves an extra value on
	// top of it, and ADD consumes it together with whatever sits just
	// below (the seeded frame cell, or a previous round's replenishment).
	// Rebalance here so the loop is depth-invariant and the value PRINTed
	// below is always the evaluated guess, never the slot's leftover.
	a.push(ModSlotAddr)
	a.emit(uor.PEEK_CHUNK)
	a.push(chunkPUSH0)
	a.emit(uor.COMPARE_EQ)
	a.pushLabel("afterPush0Compensation")
	a.emit(uor.JUMP_IF_ZERO)
	a.emit(uor.DROP) // slot pushed an extra 0; discard it, exposing the attempt
	a.label("afterPush0Compensation")

	a.emit(uor.PRINT)

	a.push(ModSlotAddr)
	a.emit(uor.PEEK_CHUNK)
	a.push(chunkADD)
	a.emit(uor.COMPARE_EQ)
	a.pushLabel("afterAddReplenish")
	a.emit(uor.JUMP_IF_ZERO)
	a.push(0) // slot consumed the frame cell below; replenish it for next round
	a.label("afterAddReplenish")

	a.emit(uor.OP_INPUT) // suspends: AWAITING_ATTEMPT_RESULT

	a.pushLabel("failure")
	a.emit(uor.JUMP_IF_ZERO) // feedback == 0 -> failure; else fall through

	// --- success path ---
	a.label("success")
	a.emit(uor.OP_INPUT) // suspends: SEND_TARGET; new target ends up on top

	a.pushLabel("returnFromBuildSuccess")
	a.emit(uor.SWAP)
	a.pushLabel("buildPushFromTOS")
	a.emit(uor.JUMP)
	a.label("returnFromBuildSuccess") // stack: ..., chunk

	a.push(AttemptAddr)
	a.emit(uor.POKE_CHUNK)

	a.push(chunkPUSH0)
	a.pushLabel("failcount")
	a.emit(uor.POKE_CHUNK)

	a.pushLabel("loop")
	a.emit(uor.JUMP)

	// --- shared subroutine: build PUSH(v) from a value on top of stack,
	// returning to the address the caller pushed below v. ---
	a.label("buildPushFromTOS")
	a.push(1)
	a.emit(uor.ADD) // v -> v+1
	a.push(operandIdxPUSH0)
	a.emit(uor.SWAP)
	a.push(opcodeIdxPUSH)
	a.push(1)
	a.push(2)
	a.emit(uor.BUILD_CHUNK)
	a.emit(uor.SWAP) // stack: ..., chunk, returnAddr
	a.emit(uor.JUMP)

	// --- failure path ---
	a.label("failure")

	// last_attempt = operand of the PUSH currently at address 0.
	a.push(AttemptAddr)
	a.emit(uor.PEEK_CHUNK)
	a.emit(uor.FACTORIZE)
	a.emit(uor.SWAP)
	a.emit(uor.DROP) // stack: ..., last_attempt

	a.emit(uor.DUP)
	a.push(4)
	a.emit(uor.OP_RANDOM) // uniform in [0,4): random(0,3) inclusive
	a.emit(uor.ADD)
	a.push(1)
	a.emit(uor.ADD)
	a.push(AttemptModulus)
	a.emit(uor.MOD) // stack: ..., last_attempt, new_attempt

	a.pushLabel("returnFromBuildStash1")
	a.emit(uor.SWAP)
	a.pushLabel("buildPushFromTOS")
	a.emit(uor.JUMP)
	a.label("returnFromBuildStash1") // stack: ..., last_attempt, chunk
	a.pushLabel("scratch")
	a.emit(uor.POKE_CHUNK) // stack: ..., last_attempt

	a.pushLabel("scratch")
	a.emit(uor.PEEK_CHUNK)
	a.emit(uor.FACTORIZE)
	a.emit(uor.SWAP)
	a.emit(uor.DROP) // stack: ..., last_attempt, new_attempt

	a.emit(uor.COMPARE_EQ) // stack: ..., (last_attempt == new_attempt)
	a.pushLabel("afterDistinct")
	a.emit(uor.JUMP_IF_ZERO) // distinct already: skip the correction

	// collision: reload new_attempt, bump by one and re-mod, restash.
	a.pushLabel("scratch")
	a.emit(uor.PEEK_CHUNK)
	a.emit(uor.FACTORIZE)
	a.emit(uor.SWAP)
	a.emit(uor.DROP)
	a.push(1)
	a.emit(uor.ADD)
	a.push(AttemptModulus)
	a.emit(uor.MOD)

	a.pushLabel("returnFromBuildStash2")
	a.emit(uor.SWAP)
	a.pushLabel("buildPushFromTOS")
	a.emit(uor.JUMP)
	a.label("returnFromBuildStash2")
	a.pushLabel("scratch")
	a.emit(uor.POKE_CHUNK)

	a.label("afterDistinct")

	// failure_count += 1; persist; check for the stuck threshold.
	a.pushLabel("failcount")
	a.emit(uor.PEEK_CHUNK)
	a.emit(uor.FACTORIZE)
	a.emit(uor.SWAP)
	a.emit(uor.DROP)
	a.push(1)
	a.emit(uor.ADD)
	a.emit(uor.DUP)

	a.pushLabel("returnFromBuildFailcount")
	a.emit(uor.SWAP)
	a.pushLabel("buildPushFromTOS")
	a.emit(uor.JUMP)
	a.label("returnFromBuildFailcount") // stack: ..., new_failcount, chunk
	a.pushLabel("failcount")
	a.emit(uor.POKE_CHUNK) // stack: ..., new_failcount

	a.push(MaxFailuresBeforeStuck)
	a.emit(uor.COMPARE_EQ)
	a.pushLabel("afterStuck")
	a.emit(uor.JUMP_IF_ZERO)

	a.push(StuckSignal)
	a.emit(uor.PRINT)

	a.label("afterStuck")

	// choose the next modification-slot instruction: NOP, PUSH(0), or ADD.
	a.push(3)
	a.emit(uor.OP_RANDOM)

	a.emit(uor.DUP)
	a.push(0)
	a.emit(uor.COMPARE_EQ)
	a.pushLabel("notCase0")
	a.emit(uor.JUMP_IF_ZERO)
	a.emit(uor.DROP)
	a.push(chunkNOP)
	a.pushLabel("gotModChunk")
	a.emit(uor.JUMP)

	a.label("notCase0")
	a.emit(uor.DUP)
	a.push(1)
	a.emit(uor.COMPARE_EQ)
	a.pushLabel("notCase1")
	a.emit(uor.JUMP_IF_ZERO)
	a.emit(uor.DROP)
	a.push(chunkPUSH0)
	a.pushLabel("gotModChunk")
	a.emit(uor.JUMP)

	a.label("notCase1")
	a.emit(uor.DROP)
	a.push(chunkADD)

	a.label("gotModChunk")
	a.push(ModSlotAddr)
	a.emit(uor.POKE_CHUNK)

	// finally: build PUSH(new_attempt) from the stashed scratch value and
	// poke it into address 0.
	a.pushLabel("scratch")
	a.emit(uor.PEEK_CHUNK)
	a.emit(uor.FACTORIZE)
	a.emit(uor.SWAP)
	a.emit(uor.DROP)

	a.pushLabel("returnFromBuildAttempt")
	a.emit(uor.SWAP)
	a.pushLabel("buildPushFromTOS")
	a.emit(uor.JUMP)
	a.label("returnFromBuildAttempt")
	a.push(AttemptAddr)
	a.emit(uor.POKE_CHUNK)

	a.pushLabel("loop")
	a.emit(uor.JUMP)

	// --- data cells, never reached by control flow ---
	a.label("scratch")
	a.push(0)
	a.label("failcount")
	a.push(0)

	return a.build()
}
