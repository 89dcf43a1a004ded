package svarog

// Multiplier is the pipelined multiply unit (C2). It produces a 64-bit
// product over a fixed latency (default 3 cycles) and exposes a
// busy/idle flag the scheduler treats as any other stall source.
type Multiplier struct {
	latency uint32

	busy       bool
	cyclesLeft uint32
	op         MulOp
	a, b       uint32
	result     uint32
}

// NewMultiplier constructs a multiplier with the given latency (≥1).
func NewMultiplier(latency uint32) *Multiplier {
	if latency < 1 {
		latency = 1
	}
	return &Multiplier{latency: latency}
}

// Busy reports whether the multiplier is still processing a request.
func (m *Multiplier) Busy() bool { return m.busy }

// Start accepts a new multiply request. The scheduler must not call
// Start while Busy() is true (handshake-ready/valid protocol, §4.2).
func (m *Multiplier) Start(op MulOp, a, b uint32) {
	m.op = op
	m.a, m.b = a, b
	m.busy = true
	m.cyclesLeft = m.latency
}

// Tick advances the multiplier's internal state machine by one cycle.
// When cyclesLeft reaches zero the result becomes valid and Busy()
// reports false on the following call.
func (m *Multiplier) Tick() {
	if !m.busy {
		return
	}
	m.cyclesLeft--
	if m.cyclesLeft == 0 {
		m.result = computeMul(m.op, m.a, m.b)
		m.busy = false
	}
}

// Result returns the product of the most recently completed request.
func (m *Multiplier) Result() uint32 { return m.result }

func computeMul(op MulOp, a, b uint32) uint32 {
	switch op {
	case MulMUL:
		return a * b
	case MulMULH:
		p := int64(int32(a)) * int64(int32(b))
		return uint32(uint64(p) >> 32)
	case MulMULHSU:
		p := int64(int32(a)) * int64(uint64(b))
		return uint32(uint64(p) >> 32)
	case MulMULHU:
		p := uint64(a) * uint64(b)
		return uint32(p >> 32)
	default:
		return 0
	}
}

// Divider is the iterative divide unit (C2), default latency 32+ cycles.
// Holds {busy, cyclesLeft, quotient, remainder} as a small explicit state
// machine per the Design Notes; the scheduler stalls on Busy() exactly
// like the multiplier.
type Divider struct {
	latency uint32

	busy       bool
	cyclesLeft uint32
	quotient   uint32
	remainder  uint32
}

// NewDivider constructs a divider with the given latency (≥1).
func NewDivider(latency uint32) *Divider {
	if latency < 1 {
		latency = 1
	}
	return &Divider{latency: latency}
}

// Busy reports whether the divider is still processing a request.
func (d *Divider) Busy() bool { return d.busy }

// Start accepts a new divide request and resolves the required edge
// cases up front (§4.2): divide-by-zero and signed INT_MIN/-1 overflow
// are architecturally defined, not UB, so they're computed once at issue
// time and simply held for `latency` cycles like any other result.
func (d *Divider) Start(op DivOp, a, b uint32) {
	d.quotient, d.remainder = computeDiv(op, a, b)
	d.busy = true
	d.cyclesLeft = d.latency
}

// Tick advances the divider's iterative state machine by one cycle.
func (d *Divider) Tick() {
	if !d.busy {
		return
	}
	d.cyclesLeft--
	if d.cyclesLeft == 0 {
		d.busy = false
	}
}

// Result returns the (quotient, remainder) pair of the most recently
// completed request.
func (d *Divider) Result() (quotient, remainder uint32) { return d.quotient, d.remainder }

// computeDiv computes both the quotient and remainder for the operation's
// signedness; DIV and REM (and DIVU/REMU) share one division so the
// edge cases in §4.2/R4 only need stating once per signedness.
func computeDiv(op DivOp, a, b uint32) (quotient, remainder uint32) {
	switch op {
	case DivDIV, DivREM:
		if b == 0 {
			return 0xFFFFFFFF, a // quotient=-1, remainder=dividend
		}
		sa, sb := int32(a), int32(b)
		if sa == -0x80000000 && sb == -1 {
			return uint32(sa), 0 // INT_MIN / -1 overflow: quotient=INT_MIN, remainder=0
		}
		return uint32(sa / sb), uint32(sa % sb)
	case DivDIVU, DivREMU:
		if b == 0 {
			return 0xFFFFFFFF, a // quotient=2^32-1, remainder=dividend (R4)
		}
		return a / b, a % b
	default:
		return 0, 0
	}
}
