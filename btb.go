package svarog

// btbEntry is one branch-target buffer slot (§3). A hit implies the last
// observed branch at that PC targeted Target.
type btbEntry struct {
	valid           bool
	tag             uint32
	target          uint32
	isUnconditional bool
}

// BTB is a direct-mapped branch-target buffer (C7), owned by the fetch
// stage. Replacement on tag mismatch is unconditional overwrite — no
// pseudo-LRU, per the Open Questions decision in SPEC_FULL.md.
type BTB struct {
	entries []btbEntry
	indexBits uint
}

// NewBTB constructs a BTB with n entries, n a power of two (§4.3).
func NewBTB(n int) *BTB {
	if n < 2 || n&(n-1) != 0 {
		panic("svarog: btb_entries must be a power of two >= 2")
	}
	bits := uint(0)
	for 1<<bits < n {
		bits++
	}
	return &BTB{entries: make([]btbEntry, n), indexBits: bits}
}

func (b *BTB) index(pc uint32) uint32 {
	return (pc >> 2) & uint32(len(b.entries)-1)
}

func (b *BTB) tagOf(pc uint32) uint32 {
	return pc >> (2 + b.indexBits)
}

// Lookup returns the cached target for pc and whether it was a hit:
// valid ∧ tag == PC[31:2+log2(N)] (§4.3).
func (b *BTB) Lookup(pc uint32) (target uint32, unconditional, hit bool) {
	e := b.entries[b.index(pc)]
	if e.valid && e.tag == b.tagOf(pc) {
		return e.target, e.isUnconditional, true
	}
	return 0, false, false
}

// Update writes a fresh entry for pc, overwriting whatever the slot held.
// Execute calls it for every branch or jump it resolves, whether or not
// the prediction was correct (§4.3).
func (b *BTB) Update(pc, target uint32, unconditional bool) {
	b.entries[b.index(pc)] = btbEntry{
		valid:           true,
		tag:             b.tagOf(pc),
		target:          target,
		isUnconditional: unconditional,
	}
}

// Predictor implements the static direction predictor + BTB lookup (C7)
// that Fetch consults in parallel with the instruction read.
type Predictor struct {
	btb *BTB
}

// NewPredictor wires a predictor to its BTB.
func NewPredictor(btb *BTB) *Predictor {
	return &Predictor{btb: btb}
}

// Prediction is what Fetch computes speculatively for the instruction at
// pc. Fetch pre-decodes the word it just read and passes that MicroOp
// here to pick the next PC (§4.3, §4.4 PC update policy step 4).
func (p *Predictor) Prediction(pc uint32, u MicroOp) (target uint32, taken bool) {
	switch u.Op {
	case OpJAL:
		// Unconditional direct jump: always taken, target computed at fetch.
		return pc + u.Immediate, true

	case OpJALR:
		// Indirect jump: predict target via BTB only; on miss, no
		// speculative redirect is possible (default to PC+4 and let EX
		// resolve it as a "mispredict").
		if t, _, hit := p.btb.Lookup(pc); hit {
			return t, true
		}
		return 0, false

	case OpBranch:
		// Static rule: negative immediate (as a signed offset) predicts
		// taken; positive predicts not-taken. Direction always comes from
		// this rule; a BTB hit only refines the *target* used when the
		// rule predicts taken (§4.3 — the BTB never overrides direction).
		staticTaken := int32(u.Immediate) < 0
		if !staticTaken {
			return 0, false
		}
		if t, unconditional, hit := p.btb.Lookup(pc); hit && !unconditional {
			return t, true
		}
		return pc + u.Immediate, true

	default:
		return 0, false
	}
}
