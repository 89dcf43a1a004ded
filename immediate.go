package svarog

// immFormat identifies which RV32 instruction encoding an immediate was
// extracted from; each has its own field layout and sign-extension width.
type immFormat uint8

const (
	immNone immFormat = iota
	immI              // loads, JALR, arithmetic-immediate (CSR*I's unsigned uimm uses csrUimm)
	immS              // stores
	immB              // branches
	immU              // LUI, AUIPC
	immJ              // JAL
)

// decodeImmediate extracts and sign- (or zero-) extends the immediate field
// of a 32-bit instruction word per its format. This is pure combinational
// logic: the same word and format always produce the same immediate.
func decodeImmediate(word uint32, format immFormat) uint32 {
	switch format {
	case immI:
		return signExtend(word>>20, 12)
	case immS:
		hi := (word >> 25) & 0x7F
		lo := (word >> 7) & 0x1F
		return signExtend(hi<<5|lo, 12)
	case immB:
		b12 := (word >> 31) & 1
		b11 := (word >> 7) & 1
		b10_5 := (word >> 25) & 0x3F
		b4_1 := (word >> 8) & 0xF
		raw := b12<<12 | b11<<11 | b10_5<<5 | b4_1<<1
		return signExtend(raw, 13)
	case immU:
		return word & 0xFFFFF000
	case immJ:
		b20 := (word >> 31) & 1
		b19_12 := (word >> 12) & 0xFF
		b11 := (word >> 20) & 1
		b10_1 := (word >> 21) & 0x3FF
		raw := b20<<20 | b19_12<<12 | b11<<11 | b10_1<<1
		return signExtend(raw, 21)
	default:
		return 0
	}
}

// csrUimm extracts the 5-bit zero-extended immediate used by CSRRWI,
// CSRRSI, and CSRRCI, where the rs1 field carries an unsigned constant
// instead of a register number. Per §4.1 this is never sign-extended.
func csrUimm(word uint32) uint32 {
	return zeroExtend(word>>15, 5)
}
