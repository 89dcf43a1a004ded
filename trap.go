package svarog

import "log/slog"

// Exception cause codes (mcause, bit 31 clear).
const (
	causeInstrMisaligned uint32 = 0
	causeIllegalInstr    uint32 = 2
	causeBreakpoint      uint32 = 3
	causeLoadMisaligned  uint32 = 4
	causeLoadAccessFault uint32 = 5
	causeStoreMisaligned uint32 = 6
	causeStoreAccessFault uint32 = 7
	causeECallM          uint32 = 11
)

// TrapController arbitrates among exception sources and asynchronous
// interrupts and produces zero-or-one trap per cycle (C10). Priority,
// highest first (§4.6):
//  1. instruction-address misaligned (Fetch)
//  2. illegal instruction (Decode/Execute)
//  3. breakpoint (EBREAK at Execute)
//  4. load misaligned/access fault (Memory)
//  5. store misaligned/access fault (Memory)
//  6. ECALL (Execute)
//  7. asynchronous interrupts, only at instruction boundary with MIE set
type TrapController struct {
	interrupts *InterruptController
	logger     *slog.Logger
}

// NewTrapController wires the trap controller to the interrupt controller.
func NewTrapController(ic *InterruptController, logger *slog.Logger) *TrapController {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrapController{interrupts: ic, logger: logger}
}

// Decision is the trap controller's verdict for one cycle: at most one of
// Taken's fields is meaningful when Taken is true. IsInterrupt
// distinguishes an asynchronous interrupt (the retiring instruction is
// innocent and still commits) from an architectural exception raised by
// the retiring instruction itself (which must not commit).
type Decision struct {
	Taken       bool
	IsInterrupt bool
	Entry       trapEntry
}

// Arbitrate selects the highest-priority pending exception from the
// retiring instruction's candidate set (fetch/decode/memory faults
// threaded down the pipeline as data per §7), or — if it carries none,
// including when no instruction is retiring this cycle — an
// asynchronous interrupt.
//
// retiredPC is the PC of the instruction committing this cycle (used as
// the exception's faulting PC); nextPC is the PC of the next instruction
// to execute (used as an interrupt's saved PC per §4.6: "for interrupts,
// PC of the next instruction to be executed").
func (t *TrapController) Arbitrate(exc pendingExc, retiredPC, nextPC uint32, csr *CSRFile) Decision {
	if exc.cause != excNone {
		cause, tval := t.architecturalCause(exc)
		pc := retiredPC
		return Decision{Taken: true, Entry: trapEntry{Cause: cause, EPC: pc, Tval: tval}}
	}

	if pending, cause := t.interrupts.Evaluate(csr); pending {
		return Decision{Taken: true, IsInterrupt: true, Entry: trapEntry{
			Cause: cause | 0x80000000,
			EPC:   nextPC,
			Tval:  0,
		}}
	}

	return Decision{}
}

func (t *TrapController) architecturalCause(exc pendingExc) (cause, tval uint32) {
	switch exc.cause {
	case excInstrMisaligned:
		return causeInstrMisaligned, exc.tval
	case excIllegalInstruction:
		return causeIllegalInstr, exc.tval
	case excBreakpoint:
		return causeBreakpoint, 0
	case excLoadMisaligned:
		return causeLoadMisaligned, exc.tval
	case excLoadAccessFault:
		return causeLoadAccessFault, exc.tval
	case excStoreMisaligned:
		return causeStoreMisaligned, exc.tval
	case excStoreAccessFault:
		return causeStoreAccessFault, exc.tval
	case excECall:
		return causeECallM, 0
	default:
		return 0, 0
	}
}
