package svarog

// Machine-mode CSR addresses (§3).
const (
	csrMstatus   = 0x300
	csrMisa      = 0x301
	csrMie       = 0x304
	csrMtvec     = 0x305
	csrMscratch  = 0x340
	csrMepc      = 0x341
	csrMcause    = 0x342
	csrMtval     = 0x343
	csrMip       = 0x344
	csrMcycle    = 0xB00
	csrMinstret  = 0xB02
	csrMcycleH   = 0xB80
	csrMinstretH = 0xB82
	csrMvendorid = 0xF11
	csrMarchid   = 0xF12
	csrMimpid    = 0xF13
	csrMhartid   = 0xF14

	// Performance-counter HPM events (C16), not part of the base ISA CSR
	// map but addressed the same way through the crossbar.
	csrHPMBranches = 0xB03
	csrHPMStalls   = 0xB04
)

// mstatus bit positions (§3).
const (
	mstatusMIE  = 1 << 3
	mstatusMPIE = 1 << 7
	mstatusMPPShift = 11
	mstatusMPPMask  = 0x3 << mstatusMPPShift
)

// mip/mie bit positions.
const (
	mipMSIP = 1 << 3
	mipMTIP = 1 << 7
	mipMEIP = 1 << 11
)

// csrAccess classifies how a CSR device may be touched.
type csrAccess int

const (
	csrReadOnly csrAccess = iota
	csrReadWrite
	csrReadWriteSideEffect
)

// trapEntry carries the data a trap delivery writes into the CSR file,
// per §4.5 "Side-effects driven by hardware".
type trapEntry struct {
	Cause uint32
	EPC   uint32
	Tval  uint32
}

// csrDevice is one entry on the CSR crossbar (Design Notes §9): an
// ordered walk with first-hit selection: a heterogeneous CSR address
// space dispatched through one small interface instead of a giant switch.
type csrDevice interface {
	handlesAddr(addr uint16) bool
	read(addr uint16) uint32
	write(addr uint16, val uint32) bool // returns false if addr is read-only
	writable() bool
}

// CSRFile is the machine-mode control and status register file (C6).
// Reads are combinational on the current cycle's address; writes commit
// at the end of the cycle. CSRRW/RS/RC observe the old value and commit
// the new value atomically within one instruction — no tearing.
type CSRFile struct {
	hartID uint32

	mstatus  uint32
	mie      uint32
	mtvec    uint32
	mscratch uint32
	mepc     uint32
	mcause   uint32
	mtval    uint32
	mcycle   uint64
	minstret uint64

	hpmBranches uint64
	hpmStalls   uint64

	// mip is fully hardware-wired in this machine-mode-only configuration
	// (§4.8): MSIP comes from the MSWI device, MTIP from the timer
	// device, MEIP from an external source. None are CSR-writable.
	msip bool
	mtip bool
	meip bool

	devices []csrDevice
}

// NewCSRFile constructs the CSR file and wires its crossbar device list.
func NewCSRFile(hartID uint32) *CSRFile {
	f := &CSRFile{hartID: hartID}
	f.devices = []csrDevice{
		&basicCSRDevice{addr: csrMstatus, access: csrReadWrite, get: func() uint32 { return f.mstatus }, set: f.writeMstatus},
		&basicCSRDevice{addr: csrMie, access: csrReadWrite, get: func() uint32 { return f.mie }, set: f.writeMie},
		// MIP is hardware-wired end to end in this machine-mode-only
		// configuration: every bit is driven by SetExternalPending, none
		// are CSR-writable (§4.8).
		&basicCSRDevice{addr: csrMip, access: csrReadOnly, get: f.readMip},
		&basicCSRDevice{addr: csrMtvec, access: csrReadWrite, get: func() uint32 { return f.mtvec }, set: func(v uint32) { f.mtvec = v &^ 0x3 }},
		&basicCSRDevice{addr: csrMscratch, access: csrReadWrite, get: func() uint32 { return f.mscratch }, set: func(v uint32) { f.mscratch = v }},
		&basicCSRDevice{addr: csrMepc, access: csrReadWrite, get: func() uint32 { return f.mepc }, set: func(v uint32) { f.mepc = v &^ 0x3 }},
		&basicCSRDevice{addr: csrMcause, access: csrReadWrite, get: func() uint32 { return f.mcause }, set: func(v uint32) { f.mcause = v }},
		&basicCSRDevice{addr: csrMtval, access: csrReadWrite, get: func() uint32 { return f.mtval }, set: func(v uint32) { f.mtval = v }},
		&basicCSRDevice{addr: csrMisa, access: csrReadOnly, get: func() uint32 { return misaValue() }},
		&basicCSRDevice{addr: csrMvendorid, access: csrReadOnly, get: func() uint32 { return 0 }},
		&basicCSRDevice{addr: csrMarchid, access: csrReadOnly, get: func() uint32 { return 0 }},
		&basicCSRDevice{addr: csrMimpid, access: csrReadOnly, get: func() uint32 { return 0 }},
		&basicCSRDevice{addr: csrMhartid, access: csrReadOnly, get: func() uint32 { return f.hartID }},
		&counterCSRDevice{addr: csrMcycle, high: false, get: func() uint64 { return f.mcycle }, set: func(v uint64) { f.mcycle = v }},
		&counterCSRDevice{addr: csrMcycleH, high: true, get: func() uint64 { return f.mcycle }, set: func(v uint64) { f.mcycle = v }},
		&counterCSRDevice{addr: csrMinstret, high: false, get: func() uint64 { return f.minstret }, set: func(v uint64) { f.minstret = v }},
		&counterCSRDevice{addr: csrMinstretH, high: true, get: func() uint64 { return f.minstret }, set: func(v uint64) { f.minstret = v }},
		&counterCSRDevice{addr: csrHPMBranches, high: false, get: func() uint64 { return f.hpmBranches }, set: func(v uint64) { f.hpmBranches = v }},
		&counterCSRDevice{addr: csrHPMStalls, high: false, get: func() uint64 { return f.hpmStalls }, set: func(v uint64) { f.hpmStalls = v }},
	}
	return f
}

// misaValue reports RV32I(M, Zicsr): bit 8 (I), bit 12 (M), MXL=1 (32-bit) in bits 31:30.
func misaValue() uint32 {
	return 1<<30 | 1<<8 | 1<<12
}

// Handles reports whether addr maps to a known CSR.
func (f *CSRFile) Handles(addr uint16) bool {
	for _, d := range f.devices {
		if d.handlesAddr(addr) {
			return true
		}
	}
	return false
}

// Read performs the combinational CSR read used by EX. ok is false if no
// device claims the address (caller raises illegal-instruction).
func (f *CSRFile) Read(addr uint16) (val uint32, ok bool) {
	for _, d := range f.devices {
		if d.handlesAddr(addr) {
			return d.read(addr), true
		}
	}
	return 0, false
}

// Write commits a new CSR value at the end of the cycle. ok is false if
// the address is unmapped or read-only; the pipeline checks Writable in
// Execute and raises illegal-instruction there, before Write is called.
func (f *CSRFile) Write(addr uint16, val uint32) (ok bool) {
	for _, d := range f.devices {
		if d.handlesAddr(addr) {
			return d.write(addr, val)
		}
	}
	return false
}

// Writable reports whether addr maps to a writable CSR, without
// mutating anything. Execute uses this to raise illegal-instruction on a
// write to a read-only CSR (§4.5, §7) before Writeback ever calls Write.
func (f *CSRFile) Writable(addr uint16) bool {
	for _, d := range f.devices {
		if d.handlesAddr(addr) {
			return d.writable()
		}
	}
	return false
}

func (f *CSRFile) writeMstatus(v uint32) {
	// Only MIE, MPIE, MPP are writable; MPP is hard-wired to 3 (M-only, §3).
	f.mstatus = (f.mstatus &^ (mstatusMIE | mstatusMPIE | mstatusMPPMask)) |
		(v & (mstatusMIE | mstatusMPIE)) | mstatusMPPMask
}

func (f *CSRFile) writeMie(v uint32) {
	// Only MSIP/MTIP/MEIP are writable in M-only mode (§3, §4.5).
	f.mie = v & (mipMSIP | mipMTIP | mipMEIP)
}

func (f *CSRFile) readMip() uint32 {
	var v uint32
	if f.msip {
		v |= mipMSIP
	}
	if f.mtip {
		v |= mipMTIP
	}
	if f.meip {
		v |= mipMEIP
	}
	return v
}

// SetExternalPending updates the three hardware-driven MIP bits. Called
// once per cycle by the scheduler from the MSWI device (C14), the timer
// device (C14), and any platform-level external-interrupt source.
func (f *CSRFile) SetExternalPending(msipPending, timerPending, externalPending bool) {
	f.msip = msipPending
	f.mtip = timerPending
	f.meip = externalPending
}

// MIE reports mstatus.MIE.
func (f *CSRFile) MIE() bool { return f.mstatus&mstatusMIE != 0 }

// MIEBits returns the enable bits from mie.
func (f *CSRFile) MIEBits() uint32 { return f.mie }

// MIPBits returns the pending bits from mip.
func (f *CSRFile) MIPBits() uint32 { return f.readMip() }

// Mtvec returns the trap base address.
func (f *CSRFile) Mtvec() uint32 { return f.mtvec }

// Mepc returns the saved trap PC.
func (f *CSRFile) Mepc() uint32 { return f.mepc }

// EnterTrap applies the hardware side-effects of trap entry (§4.5): save
// PC/cause/tval, stack MIE into MPIE, clear MIE, MPP stays M.
func (f *CSRFile) EnterTrap(e trapEntry) {
	f.mepc = e.EPC &^ 0x3
	f.mcause = e.Cause
	f.mtval = e.Tval
	mie := f.mstatus & mstatusMIE
	f.mstatus = (f.mstatus &^ (mstatusMIE | mstatusMPIE)) | (boolBit(mie != 0) << 7) | mstatusMPPMask
}

// ReturnFromTrap applies MRET's hardware side-effects (§4.5): restore MIE
// from MPIE, set MPIE, MPP stays M. Returns the PC to resume at.
func (f *CSRFile) ReturnFromTrap() uint32 {
	mpie := f.mstatus & mstatusMPIE
	f.mstatus = (f.mstatus &^ (mstatusMIE | mstatusMPIE)) | (boolBit(mpie != 0) << 3) | mstatusMPIE | mstatusMPPMask
	return f.mepc
}

// Tick advances mcycle by one; called unconditionally every cycle (I3).
func (f *CSRFile) Tick() { f.mcycle++ }

// Retire advances minstret and the branch HPM counter at instruction
// retirement.
func (f *CSRFile) Retire(wasBranch, wasMispredict bool) {
	f.minstret++
	if wasBranch {
		f.hpmBranches++
	}
	_ = wasMispredict // tracked by the scheduler's own mispredict counter, not a CSR
}

// RecordStallCycle advances the HPM stall-cycle counter (C16, 0xB04).
// Called once per cycle the scheduler stalls ID or EX.
func (f *CSRFile) RecordStallCycle() { f.hpmStalls++ }

// Snapshot returns the observability-surface counter values (§6.2).
func (f *CSRFile) Snapshot() (mcycle, minstret uint64) {
	return f.mcycle, f.minstret
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// basicCSRDevice implements csrDevice for a single 32-bit-wide CSR backed
// by closures over CSRFile fields.
type basicCSRDevice struct {
	addr   uint16
	access csrAccess
	get    func() uint32
	set    func(uint32)
}

func (d *basicCSRDevice) handlesAddr(addr uint16) bool { return addr == d.addr }
func (d *basicCSRDevice) read(addr uint16) uint32      { return d.get() }
func (d *basicCSRDevice) write(addr uint16, val uint32) bool {
	if d.access == csrReadOnly {
		return false
	}
	d.set(val)
	return true
}
func (d *basicCSRDevice) writable() bool { return d.access != csrReadOnly }

// counterCSRDevice implements csrDevice for the low or high half of a
// 64-bit counter (mcycle/minstret), split per §3 "64-bit counters, split
// on xlen=32": a write to one half leaves the other half unchanged.
type counterCSRDevice struct {
	addr uint16
	high bool
	get  func() uint64
	set  func(uint64)
}

func (d *counterCSRDevice) handlesAddr(addr uint16) bool { return addr == d.addr }

func (d *counterCSRDevice) read(addr uint16) uint32 {
	v := d.get()
	if d.high {
		return uint32(v >> 32)
	}
	return uint32(v)
}

func (d *counterCSRDevice) write(addr uint16, val uint32) bool {
	cur := d.get()
	if d.high {
		d.set(cur&0xFFFFFFFF | uint64(val)<<32)
	} else {
		d.set(cur&0xFFFFFFFF00000000 | uint64(val))
	}
	return true
}
func (d *counterCSRDevice) writable() bool { return true }
