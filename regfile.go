package svarog

// RegFile is the 32-entry general-purpose register file (C5). x0 always
// reads zero and discards writes (I1). Exclusive writer is Writeback;
// ID reads combinationally, with the hazard unit supplying forwards.
type RegFile struct {
	regs [32]uint32
}

// Read returns the value of register r, hard-wiring r=0 to zero.
func (f *RegFile) Read(r uint8) uint32 {
	if r == 0 {
		return 0
	}
	return f.regs[r]
}

// Write commits a value to register r at the end of Writeback. Writes to
// x0 are silently discarded.
func (f *RegFile) Write(r uint8, v uint32) {
	if r == 0 {
		return
	}
	f.regs[r] = v
}

// Snapshot returns a copy of all 32 registers for observability/debug use.
func (f *RegFile) Snapshot() [32]uint32 {
	return f.regs
}
