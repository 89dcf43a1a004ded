package svarog

import "log/slog"

// Core is the per-hart scheduler (C8-C13): it owns the four pipeline
// latches and drives one cycle of IF/ID/EX/MEM/WB evaluation per Tick
// call. State is double-buffered the way the Design Notes describe:
// every stage reads the latches as they stood at the end of the
// previous cycle and the new latch values are only swapped in once all
// five stages have been evaluated, so no stage ever observes a
// partially updated cycle.
type Core struct {
	hartID uint32
	cfg    Config

	pc uint32

	regs       *RegFile
	csr        *CSRFile
	btb        *BTB
	pred       *Predictor
	hazard     *HazardUnit
	traps      *TrapController
	interrupts *InterruptController
	bus        *Interconnect
	mul        *Multiplier
	div        *Divider

	timer *Timer  // nil if no timer is configured for this system
	mswi  *MSWI   // nil if no MSWI is configured for this system
	uarts []*UART // empty if no UART is configured for this system

	ifid  latch
	idex  latch
	exmem latch
	memwb latch

	mulInFlight bool
	divInFlight bool

	Counters Counters

	halted bool
	logger *slog.Logger
}

// NewCore constructs a hart wired to the shared interconnect. timer and
// mswi may be nil, and uarts empty, when the system has no such
// peripheral configured (§6.4); timer/mswi are polled once per Tick to
// drive MTIP/MSIP, and uarts are consulted at retirement to surface a
// transmitted byte on Events.
func NewCore(hartID uint32, cfg Config, bus *Interconnect, timer *Timer, mswi *MSWI, uarts []*UART, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	btb := NewBTB(cfg.BTBEntries)
	ic := &InterruptController{}
	return &Core{
		hartID:     hartID,
		cfg:        cfg,
		pc:         cfg.ResetVector,
		regs:       &RegFile{},
		csr:        NewCSRFile(hartID),
		btb:        btb,
		pred:       NewPredictor(btb),
		hazard:     &HazardUnit{},
		interrupts: ic,
		traps:      NewTrapController(ic, logger),
		bus:        bus,
		mul:        NewMultiplier(cfg.MulLatency),
		div:        NewDivider(cfg.DivLatency),
		timer:      timer,
		mswi:       mswi,
		uarts:      uarts,
		logger:     logger,
	}
}

// PC returns the hart's current program counter.
func (c *Core) PC() uint32 { return c.pc }

// Halted reports whether the debug module has halted this hart (C17).
func (c *Core) Halted() bool { return c.halted }

// SetHalted is used by the debug module to stop or resume fetch (C17).
// Multi-cycle functional-unit state is left untouched across a halt, per
// the Open Questions decision in SPEC_FULL.md.
func (c *Core) SetHalted(h bool) { c.halted = h }

// RegFile exposes the register file for observability/debug reads.
func (c *Core) RegFile() *RegFile { return c.regs }

// CSRFile exposes the CSR file for observability/debug reads.
func (c *Core) CSRFile() *CSRFile { return c.csr }

// Tick evaluates one clock cycle and returns the observability events
// produced by it (§6.2). Every master ID this core uses on the shared
// interconnect (fetch, load/store) is serviced via bus.Request/Step
// inside this call.
func (c *Core) Tick() Events {
	var ev Events

	c.csr.Tick() // mcycle increments unconditionally (I3), even while halted

	var msip, mtip bool
	if c.mswi != nil {
		msip = c.mswi.Pending(int(c.hartID))
	}
	if c.timer != nil {
		mtip = c.timer.Pending(int(c.hartID))
	}
	c.csr.SetExternalPending(msip, mtip, c.boolMEIP())

	if c.halted {
		ev.Halted = true
		return ev
	}

	// --- Stage 1: retire (WB), using latches as they stood after the
	// previous cycle. This is the commit point for register and CSR
	// writes (a store reaches memory earlier, in MEM): the
	// register write (if any) happens before ID reads the register file
	// later in this same Tick (§5 same-cycle write-then-read).
	retiring := c.memwb
	nextRetirePC := c.nextRetirePC()
	trapDecision := c.traps.Arbitrate(retiring.Exc, retiring.PC, nextRetirePC, c.csr)

	mretThisCycle := retiring.Valid && retiring.IsMRET && !trapDecision.Taken

	var mretTarget uint32
	switch {
	case trapDecision.Taken && trapDecision.IsInterrupt:
		// An asynchronous interrupt never faults the instruction retiring
		// this cycle: it is architecturally innocent and commits normally,
		// and the interrupt instead flushes MEM and everything younger
		// (mepc points at the MEM-stage instruction, the next one that
		// would have retired, per §4.6).
		if retiring.Valid {
			c.commitRetirement(retiring, &ev)
		}
		c.csr.EnterTrap(trapDecision.Entry)
		ev.TrapTaken = true
		ev.TrapCause = trapDecision.Entry.Cause
	case trapDecision.Taken:
		c.csr.EnterTrap(trapDecision.Entry)
		ev.TrapTaken = true
		ev.TrapCause = trapDecision.Entry.Cause
	case retiring.Valid:
		c.commitRetirement(retiring, &ev)
		if mretThisCycle {
			mretTarget = c.csr.ReturnFromTrap()
		}
	}

	// --- Stage 2: MEM, using the exmem latch as it stood coming in.
	// Skipped (squashed) when an older instruction is trapping or
	// executing MRET this cycle: that instruction is younger and must
	// never commit its memory side effect.
	var newMemwb latch
	memStall := false
	if trapDecision.Taken || mretThisCycle {
		newMemwb = bubble()
	} else {
		newMemwb, memStall = c.stageMEM(c.exmem)
	}

	// --- Stage 3: EX, using the idex latch as it stood coming in, and
	// the *current* (pre-tick) exmem/memwb latches for forwarding.
	var newExmem latch
	exStall := false
	mispredict := false
	var mispredictTarget uint32
	switch {
	case trapDecision.Taken || mretThisCycle:
		newExmem = bubble()
	case memStall:
		newExmem = c.exmem // MEM hasn't drained; hold EX's output behind it
		exStall = true
	default:
		newExmem, exStall, mispredict, mispredictTarget = c.stageEX(c.idex, c.exmem, c.memwb)
	}

	// --- Stage 4: ID, using the ifid latch as it stood coming in.
	var newIdex latch
	idStall := false
	switch {
	case trapDecision.Taken || mretThisCycle || mispredict:
		newIdex = bubble()
	case exStall:
		newIdex = c.idex // EX is still working the same instruction; hold it in place
		idStall = true
	default:
		newIdex, idStall = c.stageID(c.ifid, c.idex, c.exmem, c.memwb)
	}

	// --- Stage 5: IF, using the current pc.
	stallFetch := idStall || exStall
	var newIfid latch
	if trapDecision.Taken || mretThisCycle || mispredict {
		newIfid = bubble()
	} else if stallFetch {
		newIfid = c.ifid // hold; same instruction is retried next cycle
	} else {
		newIfid = c.stageIF(c.pc)
	}

	// --- PC update, priority order per §4.4.
	switch {
	case trapDecision.Taken:
		c.pc = c.csr.Mtvec()
	case mretThisCycle:
		c.pc = mretTarget
	case mispredict:
		c.pc = mispredictTarget
	case stallFetch:
		// pc unchanged; same fetch is retried next cycle
	default:
		c.pc = c.nextPCAfterFetch(newIfid)
	}

	// MEM/WB always advances, even while ID/IF stall on a load-use hazard
	// or a busy functional unit: only the younger stages freeze.
	c.memwb = newMemwb
	c.exmem = newExmem
	c.idex = newIdex
	c.ifid = newIfid

	if idStall || exStall {
		c.Counters.RecordStall(1)
		c.csr.RecordStallCycle()
	}

	return ev
}

// nextRetirePC is the PC of the instruction that would retire next after
// the current WB-stage instruction: the MEM-stage instruction if valid,
// else the oldest valid instruction behind it, else the current fetch
// PC. An asynchronous interrupt's mepc uses this value (§4.6: "for
// interrupts, PC of the next instruction to be executed").
func (c *Core) nextRetirePC() uint32 {
	switch {
	case c.exmem.Valid:
		return c.exmem.PC
	case c.idex.Valid:
		return c.idex.PC
	case c.ifid.Valid:
		return c.ifid.PC
	default:
		return c.pc
	}
}

func (c *Core) boolMEIP() bool {
	// No external-interrupt source is modeled beyond the timer/MSWI
	// peripherals; MEIP stays low. A future platform-level interrupt
	// controller would drive this instead.
	return false
}

func (c *Core) commitRetirement(l latch, ev *Events) {
	if l.RegWrite {
		c.regs.Write(l.Rd, l.Result)
		ev.RegWrite = true
		ev.RegWriteAddr = l.Rd
		ev.RegWriteData = l.Result
	}
	if l.CSRWrite {
		c.csr.Write(l.CSRAddr, l.CSRWriteVal)
	}
	if l.IsStore {
		ev.MemStore = true
		ev.MemStoreAddr = l.MemAddr
		ev.MemStoreData = l.MemData
		ev.MemStoreWidth = l.MemWidth
		for _, u := range c.uarts {
			if l.MemAddr == u.TXAddr() {
				ev.UARTTx = true
				ev.UARTTxByte = byte(l.MemData)
				break
			}
		}
	}
	if l.IsLoad {
		ev.MemLoad = true
		ev.MemLoadAddr = l.MemAddr
		ev.MemLoadData = l.Result
		ev.MemLoadWidth = l.MemWidth
	}
	wasBranch := l.Op.Op == OpBranch
	wasRedirect := l.IsBranchOrJump && (l.ActualTaken != l.PredictedTaken ||
		(l.ActualTaken && l.ActualTarget != l.PredictedTarget))
	c.csr.Retire(wasBranch, wasRedirect)
	c.Counters.RecordRetirement(wasBranch, wasRedirect)
	ev.Retired = true
	ev.RetiredPC = l.PC
	ev.RetiredInstr = l.Word
}

// stageMEM performs the load/store memory access for the instruction in
// MEM, if any, and returns the MEM/WB latch. stall is true when the
// interconnect could not service the request this cycle (every
// reference slave is always Ready, so this only matters for a future
// slave that can genuinely backpressure); out is then a bubble, so the
// instruction does not advance into MEM/WB, and the caller holds EX/MEM
// so the still-pending bus request is retried next cycle (§4.7).
func (c *Core) stageMEM(l latch) (out latch, stall bool) {
	if !l.Valid {
		return bubble(), false
	}
	out = l
	if out.Exc.cause != excNone {
		out.IsLoad, out.IsStore = false, false
		return out, false
	}
	if !out.IsLoad && !out.IsStore {
		return out, false
	}
	if c.cfg.StrictAlign && out.MemWidth != Byte && out.MemAddr%uint32(out.MemWidth) != 0 {
		if out.IsLoad {
			out.Exc = pendingExc{cause: excLoadMisaligned, tval: out.MemAddr}
		} else {
			out.Exc = pendingExc{cause: excStoreMisaligned, tval: out.MemAddr}
		}
		out.IsLoad, out.IsStore = false, false
		return out, false
	}

	if !c.bus.HasPending(MasterLSU) {
		req := BusRequest{Address: out.MemAddr, Width: out.MemWidth}
		if out.IsStore {
			req.Write = true
			req.Data = out.MemData
		}
		c.bus.Request(MasterLSU, req)
	}
	var resp BusResponse
	serviced := false
	for _, r := range c.bus.Step() {
		if r.Master == MasterLSU {
			resp, serviced = r.Resp, true
		}
	}
	if !serviced {
		return bubble(), true // same request stays latched on the bus; retry next cycle
	}
	if resp.Error {
		if out.IsLoad {
			out.Exc = pendingExc{cause: excLoadAccessFault, tval: out.MemAddr}
		} else {
			out.Exc = pendingExc{cause: excStoreAccessFault, tval: out.MemAddr}
		}
		out.IsLoad, out.IsStore = false, false
		return out, false
	}
	if out.IsLoad {
		out.Result = loadValue(resp.Data, out.MemWidth, out.Op.MemSign)
	}
	return out, false
}

// stageEX evaluates the ALU/branch/mul/div/CSR computation for the
// instruction in EX, with operands forwarded from the current MEM/WB
// latches. Returns the new EX/MEM latch, whether EX must stall (a
// multi-cycle unit is still busy), whether a mispredict was resolved
// this cycle, and its redirect target.
func (c *Core) stageEX(l, mem, wb latch) (out latch, stall, mispredict bool, target uint32) {
	if !l.Valid {
		return bubble(), false, false, 0
	}

	a := c.forwardedOperand(l.Op.Rs1, l.Rs1Val, mem, wb)
	b := l.Rs2Val
	if !l.Op.HasImmediate || l.Op.Op == OpStore || l.Op.Op == OpBranch {
		b = c.forwardedOperand(l.Op.Rs2, l.Rs2Val, mem, wb)
	}

	out = l
	out.Rd = l.Op.Rd
	out.RegWrite = l.Op.WritesRd

	// An exception already raised at Fetch or Decode outranks anything EX
	// could raise (TrapController's priority list): carry it unchanged.
	if l.Exc.cause != excNone {
		out.RegWrite = false
		return out, false, false, 0
	}

	switch l.Op.Op {
	case OpALU:
		rhs := b
		if l.Op.HasImmediate {
			rhs = l.Op.Immediate
		}
		out.Result = EvalALU(l.Op.ALU, a, rhs)

	case OpLUI:
		out.Result = l.Op.Immediate

	case OpAUIPC:
		out.Result = l.PC + l.Op.Immediate

	case OpLoad:
		out.MemAddr = a + l.Op.Immediate
		out.MemWidth = l.Op.MemSize
		out.IsLoad = true

	case OpStore:
		out.MemAddr = a + l.Op.Immediate
		out.MemData = b
		out.MemWidth = l.Op.MemSize
		out.IsStore = true

	case OpBranch:
		out.IsBranchOrJump = true
		out.ActualTaken = EvalBranch(l.Op.Cond, a, b)
		if out.ActualTaken {
			out.ActualTarget = l.PC + l.Op.Immediate
		} else {
			out.ActualTarget = l.PC + 4
		}
		if out.ActualTaken != l.PredictedTaken || (out.ActualTaken && out.ActualTarget != l.PredictedTarget) {
			mispredict = true
			target = out.ActualTarget
		}
		c.btb.Update(l.PC, out.ActualTarget, false)

	case OpJAL:
		out.IsBranchOrJump = true
		out.ActualTaken = true
		out.ActualTarget = l.PC + l.Op.Immediate
		out.Result = l.PC + 4
		if out.ActualTarget != l.PredictedTarget || !l.PredictedTaken {
			mispredict = true
			target = out.ActualTarget
		}
		c.btb.Update(l.PC, out.ActualTarget, true)

	case OpJALR:
		out.IsBranchOrJump = true
		out.ActualTaken = true
		out.ActualTarget = (a + l.Op.Immediate) &^ 1
		out.Result = l.PC + 4
		if out.ActualTarget != l.PredictedTarget || !l.PredictedTaken {
			mispredict = true
			target = out.ActualTarget
		}
		c.btb.Update(l.PC, out.ActualTarget, true)

	case OpMul:
		if !c.mulInFlight {
			c.mul.Start(l.Op.MulSub, a, b)
			c.mulInFlight = true
			return bubble(), true, false, 0
		}
		c.mul.Tick()
		if c.mul.Busy() {
			return bubble(), true, false, 0
		}
		c.mulInFlight = false
		out.Result = c.mul.Result()

	case OpDiv:
		if !c.divInFlight {
			c.div.Start(l.Op.DivSub, a, b)
			c.divInFlight = true
			return bubble(), true, false, 0
		}
		c.div.Tick()
		if c.div.Busy() {
			return bubble(), true, false, 0
		}
		c.divInFlight = false
		q, r := c.div.Result()
		switch l.Op.DivSub {
		case DivDIV, DivDIVU:
			out.Result = q
		default:
			out.Result = r
		}

	case OpCSRRW, OpCSRRS, OpCSRRC:
		cur, ok := c.csr.Read(l.Op.CSRAddr)
		if !ok {
			out.Exc = pendingExc{cause: excIllegalInstruction, tval: l.Word}
			out.RegWrite = false
			break
		}
		out.Result = cur
		// CSRRW/RS/RC take their operand from rs1 (register form) or the
		// zero-extended uimm (immediate form) — never from rs2 (§4.1).
		rhs := a
		if l.Op.HasImmediate {
			rhs = l.Op.Immediate
		}
		// CSRRW always writes; CSRRS/CSRRC only write when the operand is
		// non-zero (rs1=x0 or uimm=0 means "read only", §8) — no write, no
		// trap, no side effect in that case even if the CSR is read-only.
		writes := l.Op.Op == OpCSRRW || rhs != 0
		if writes && !c.csr.Writable(l.Op.CSRAddr) {
			out.Exc = pendingExc{cause: excIllegalInstruction, tval: l.Word}
			out.RegWrite = false
			break
		}
		if writes {
			var newVal uint32
			switch l.Op.Op {
			case OpCSRRW:
				newVal = rhs
			case OpCSRRS:
				newVal = cur | rhs
			case OpCSRRC:
				newVal = cur &^ rhs
			}
			out.CSRWrite = true
			out.CSRAddr = l.Op.CSRAddr
			out.CSRWriteVal = newVal
		}

	case OpECALL:
		out.Exc = pendingExc{cause: excECall}

	case OpEBREAK:
		out.Exc = pendingExc{cause: excBreakpoint}

	case OpMRET:
		out.IsMRET = true

	case OpFENCE:
		// no architectural effect in a single-hart-visible functional model

	case OpFENCEI:
		out.IsFenceI = true
		out.IsBranchOrJump = true
		out.ActualTaken = false
		out.ActualTarget = l.PC + 4
		// Always redirect to PC+4 so IF/ID are refetched after FENCE.I.
		mispredict = true
		target = out.ActualTarget

	case OpInvalid:
		out.Exc = pendingExc{cause: excIllegalInstruction, tval: l.Word}
		out.RegWrite = false
	}

	return out, false, mispredict, target
}

// forwardedOperand resolves the EX-stage value of register rs, applying
// the hazard unit's MEM/WB forwarding when a producer is in flight.
func (c *Core) forwardedOperand(rs uint8, raw uint32, mem, wb latch) uint32 {
	switch c.hazard.Forward(rs, mem, wb) {
	case FwdMEM:
		return mem.Result
	case FwdWB:
		return wb.Result
	default:
		return raw
	}
}

// stageID decodes and reads operands for the instruction in IF/ID,
// detecting load-use and CSR hazards against the current EX/MEM/WB
// latches. When stall is true, out is a bubble and the caller must
// leave ifid in place for a retry next cycle.
func (c *Core) stageID(l, ex, mem, wb latch) (out latch, stall bool) {
	if !l.Valid {
		return bubble(), false
	}

	u := Decode(l.Word)
	usesRs1, usesRs2 := uses(u)

	if c.hazard.LoadUseStall(usesRs1, usesRs2, u.Rs1, u.Rs2, ex) {
		return bubble(), true
	}
	isCSR := u.Op == OpCSRRW || u.Op == OpCSRRS || u.Op == OpCSRRC
	if c.hazard.CSRHazard(isCSR, ex, mem) || c.hazard.CSRHazard(isCSR, mem, wb) {
		return bubble(), true
	}

	out = latch{
		Valid:           true,
		PC:              l.PC,
		Word:            l.Word,
		Op:              u,
		Rs1Val:          c.regs.Read(u.Rs1),
		Rs2Val:          c.regs.Read(u.Rs2),
		Rd:              u.Rd,
		RegWrite:        u.WritesRd,
		PredictedTaken:  l.PredictedTaken,
		PredictedTarget: l.PredictedTarget,
	}
	out.Exc = l.Exc
	if out.Exc.cause == excNone && u.Op == OpInvalid {
		out.Exc = pendingExc{cause: excIllegalInstruction, tval: l.Word}
	}
	return out, false
}

// stageIF fetches the instruction word at pc and computes the
// speculative prediction Fetch feeds forward (§4.3/§4.4).
func (c *Core) stageIF(pc uint32) latch {
	if c.cfg.StrictAlign && pc&0x3 != 0 {
		return latch{Valid: true, PC: pc, Exc: pendingExc{cause: excInstrMisaligned, tval: pc}}
	}

	c.bus.Request(MasterFetch, BusRequest{Address: pc, Width: Word})
	results := c.bus.Step()
	var resp BusResponse
	for _, r := range results {
		if r.Master == MasterFetch {
			resp = r.Resp
		}
	}
	if resp.Error {
		return latch{Valid: true, PC: pc, Exc: pendingExc{cause: excLoadAccessFault, tval: pc}}
	}

	word := resp.Data
	u := Decode(word)
	target, taken := c.pred.Prediction(pc, u)
	return latch{
		Valid:           true,
		PC:              pc,
		Word:            word,
		PredictedTaken:  taken,
		PredictedTarget: target,
	}
}

// nextPCAfterFetch picks the default next-PC when no trap, MRET, or
// mispredict overrides it this cycle: the Fetch-stage prediction if
// taken, else PC+4.
func (c *Core) nextPCAfterFetch(fetched latch) uint32 {
	if fetched.Valid && fetched.Exc.cause == excNone && fetched.PredictedTaken {
		return fetched.PredictedTarget
	}
	return fetched.PC + 4
}
