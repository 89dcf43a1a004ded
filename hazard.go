package svarog

// ForwardSel identifies where an EX-stage operand should come from.
type ForwardSel uint8

const (
	FwdNone ForwardSel = iota
	FwdMEM
	FwdWB
)

// HazardUnit detects RAW, load-use, structural, and CSR hazards and
// generates the stall/flush/forward selects the scheduler drives each
// cycle (C9).
type HazardUnit struct{}

// Forward picks a forwarding source for a register operand read in EX.
// Per §4.4: forward from MEM if its producer writes rs and the result is
// already available (not a load, whose data only becomes valid when the
// response returns); otherwise from WB under the same conditions.
// MEM wins over WB on a tie (most recent producer).
func (h *HazardUnit) Forward(rs uint8, mem, wb latch) ForwardSel {
	if rs == 0 {
		return FwdNone
	}
	if mem.Valid && mem.RegWrite && mem.Rd == rs && !mem.IsLoad {
		return FwdMEM
	}
	if wb.Valid && wb.RegWrite && wb.Rd == rs {
		return FwdWB
	}
	return FwdNone
}

// LoadUseStall reports whether the instruction in ID must stall one
// cycle because the EX-stage instruction it depends on is a load whose
// result is not yet available (MEM has not produced the loaded value).
func (h *HazardUnit) LoadUseStall(idUses1, idUses2 bool, idRs1, idRs2 uint8, ex latch) bool {
	// The ID/EX latch carries the decoded op; IsLoad is only set once EX runs.
	isLoad := ex.IsLoad || ex.Op.Op == OpLoad
	if !ex.Valid || !isLoad || !ex.RegWrite || ex.Rd == 0 {
		return false
	}
	return (idUses1 && idRs1 == ex.Rd) || (idUses2 && idRs2 == ex.Rd)
}

// CSRHazard reports whether a CSR instruction must stall in ID because
// another CSR op is in either of the two given latches; the scheduler
// checks the ID-stage op against its EX, MEM and WB latches. The CSR file is combinational
// read-after-write within a cycle but not across cycles, so back-to-back
// CSR instructions must still serialize through the pipeline (§4.4).
func (h *HazardUnit) CSRHazard(exIsCSR bool, mem, wb latch) bool {
	if !exIsCSR {
		return false
	}
	isCSR := func(l latch) bool {
		switch l.Op.Op {
		case OpCSRRW, OpCSRRS, OpCSRRC:
			return true
		}
		return false
	}
	return (mem.Valid && isCSR(mem)) || (wb.Valid && isCSR(wb))
}

// uses reports which source registers a MicroOp actually reads, so the
// hazard unit doesn't stall on a register field the instruction ignores
// (e.g. LUI's Rs1 field doesn't exist; U/J-type ops don't read GPRs).
func uses(u MicroOp) (usesRs1, usesRs2 bool) {
	switch u.Op {
	case OpALU:
		return true, !u.HasImmediate
	case OpLoad, OpJALR:
		return true, false
	case OpStore, OpBranch:
		return true, true
	case OpMul, OpDiv:
		return true, true
	case OpCSRRW, OpCSRRS, OpCSRRC:
		return !u.HasImmediate, false
	default:
		return false, false
	}
}
