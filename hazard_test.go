package svarog

import "testing"

func TestForwardMEMWinsOverWB(t *testing.T) {
	h := &HazardUnit{}
	mem := latch{Valid: true, RegWrite: true, Rd: 5, Result: 111}
	wb := latch{Valid: true, RegWrite: true, Rd: 5, Result: 222}
	if sel := h.Forward(5, mem, wb); sel != FwdMEM {
		t.Errorf("Forward = %v, want FwdMEM", sel)
	}
}

func TestForwardSkipsMEMLoad(t *testing.T) {
	h := &HazardUnit{}
	mem := latch{Valid: true, RegWrite: true, Rd: 5, IsLoad: true, Result: 111}
	wb := latch{Valid: true, RegWrite: true, Rd: 5, Result: 222}
	if sel := h.Forward(5, mem, wb); sel != FwdWB {
		t.Errorf("Forward = %v, want FwdWB (MEM-stage load isn't ready yet)", sel)
	}
}

func TestForwardIgnoresX0(t *testing.T) {
	h := &HazardUnit{}
	mem := latch{Valid: true, RegWrite: true, Rd: 0, Result: 111}
	if sel := h.Forward(0, mem, latch{}); sel != FwdNone {
		t.Errorf("Forward for x0 = %v, want FwdNone", sel)
	}
}

func TestLoadUseStallDetected(t *testing.T) {
	h := &HazardUnit{}
	ex := latch{Valid: true, IsLoad: true, RegWrite: true, Rd: 3}
	if !h.LoadUseStall(true, false, 3, 0, ex) {
		t.Errorf("expected a load-use stall")
	}
	if h.LoadUseStall(true, false, 4, 0, ex) {
		t.Errorf("unexpected stall for an unrelated register")
	}
}

func TestCSRHazardSerializes(t *testing.T) {
	h := &HazardUnit{}
	mem := latch{Valid: true, Op: MicroOp{Op: OpCSRRW}}
	if !h.CSRHazard(true, mem, latch{}) {
		t.Errorf("expected a CSR hazard against a CSR op in MEM")
	}
	if h.CSRHazard(false, mem, latch{}) {
		t.Errorf("no hazard should be reported for a non-CSR EX op")
	}
}
