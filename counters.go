package svarog

// Counters mirrors the observability-surface counter snapshot (C16, §6.2)
// that the host harness reads between ticks. mcycle/minstret live in the
// CSR file (they're architecturally visible). Branch retirements and
// stall cycles are counted here for the host; the CSR file keeps its own
// separate HPM counts, which are what csrHPMBranches/csrHPMStalls read.
type Counters struct {
	Retired       uint64
	Mispredicts   uint64
	BranchRetired uint64
	StallCycles   uint64
}

// RecordRetirement updates the non-CSR-backed counters the scheduler
// tracks purely for observability (§6.2), separate from the
// architectural mcycle/minstret which live in the CSR file.
func (c *Counters) RecordRetirement(wasBranch, wasRedirect bool) {
	c.Retired++
	if wasBranch {
		c.BranchRetired++
	}
	if wasRedirect {
		c.Mispredicts++
	}
}

// RecordStall increments the stall-cycle counter by n.
func (c *Counters) RecordStall(n uint64) {
	c.StallCycles += n
}
