package svarog

// excCause identifies the source of an architectural exception (§4.6),
// used internally by a pipeline slot before it reaches the trap controller.
type excCause uint8

const (
	excNone excCause = iota
	excInstrMisaligned
	excIllegalInstruction
	excBreakpoint
	excLoadMisaligned
	excLoadAccessFault
	excStoreMisaligned
	excStoreAccessFault
	excECall
)

// pendingExc carries one candidate architectural exception through the
// pipeline, as data (§7): "architectural errors are purely data".
type pendingExc struct {
	cause excCause
	tval  uint32
}

// latch is one pipeline-register record (§3), shared shape across the
// IF/ID, ID/EX, EX/MEM and MEM/WB boundaries. When Valid=false the slot
// is a bubble: downstream stages perform no observable action for it.
type latch struct {
	Valid bool
	PC    uint32
	Word  uint32
	Op    MicroOp

	Rs1Val, Rs2Val uint32
	Result         uint32

	MemAddr  uint32
	MemData  uint32
	MemWidth Width
	IsLoad   bool
	IsStore  bool

	Rd       uint8
	RegWrite bool

	Exc pendingExc

	PredictedTaken  bool
	PredictedTarget uint32

	IsBranchOrJump bool // resolved in EX: forces a mispredict check against the prediction
	ActualTaken    bool
	ActualTarget   uint32

	CSRWrite    bool
	CSRAddr     uint16
	CSRWriteVal uint32

	IsMRET   bool
	IsFenceI bool
}

// bubble returns an invalid, side-effect-free latch, used whenever a
// stage is flushed or has nothing to present.
func bubble() latch {
	return latch{}
}
