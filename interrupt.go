package svarog

// Cause codes for asynchronous interrupts (mcause bit 31 set, §3, §4.6).
const (
	intCauseMSI uint32 = 3
	intCauseMTI uint32 = 7
	intCauseMEI uint32 = 11
)

// InterruptController combines MIP/MIE/MSTATUS.MIE into a pending
// interrupt plus a priority-encoded cause (C11). Priority, highest
// first: MEIP(11) > MSIP(3) > MTIP(7) (§4.6).
type InterruptController struct{}

// Evaluate returns whether an interrupt is pending and, if so, its cause.
// interrupt_pending = (mip & mie) ≠ 0 ∧ mstatus.MIE (§4.6).
func (ic *InterruptController) Evaluate(csr *CSRFile) (pending bool, cause uint32) {
	if !csr.MIE() {
		return false, 0
	}
	active := csr.MIPBits() & csr.MIEBits()
	if active == 0 {
		return false, 0
	}
	switch {
	case active&mipMEIP != 0:
		return true, intCauseMEI
	case active&mipMSIP != 0:
		return true, intCauseMSI
	case active&mipMTIP != 0:
		return true, intCauseMTI
	}
	return false, 0
}
