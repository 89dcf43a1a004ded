package svarog

// Op is the tagged micro-op variant a 32-bit instruction word decodes to.
// Pattern-matching on Op replaces the dynamic dispatch a CISC decoder would
// use; each pipeline stage switches on it directly.
type Op uint8

const (
	OpInvalid Op = iota
	OpALU
	OpLoad
	OpStore
	OpBranch
	OpJAL
	OpJALR
	OpLUI
	OpAUIPC
	OpMul
	OpDiv
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpECALL
	OpEBREAK
	OpMRET
	OpFENCE
	OpFENCEI
)

func (o Op) String() string {
	switch o {
	case OpALU:
		return "ALU"
	case OpLoad:
		return "LOAD"
	case OpStore:
		return "STORE"
	case OpBranch:
		return "BRANCH"
	case OpJAL:
		return "JAL"
	case OpJALR:
		return "JALR"
	case OpLUI:
		return "LUI"
	case OpAUIPC:
		return "AUIPC"
	case OpMul:
		return "MUL"
	case OpDiv:
		return "DIV"
	case OpCSRRW:
		return "CSRRW"
	case OpCSRRS:
		return "CSRRS"
	case OpCSRRC:
		return "CSRRC"
	case OpECALL:
		return "ECALL"
	case OpEBREAK:
		return "EBREAK"
	case OpMRET:
		return "MRET"
	case OpFENCE:
		return "FENCE"
	case OpFENCEI:
		return "FENCE.I"
	default:
		return "INVALID"
	}
}

// ALUOp identifies a single-cycle ALU/shift operation (C1).
type ALUOp uint8

const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUSll
	ALUSrl
	ALUSra
	ALUSlt
	ALUSltu
	ALUAnd
	ALUOr
	ALUXor
)

// BranchCond identifies the comparison a conditional branch tests.
type BranchCond uint8

const (
	BrEQ BranchCond = iota
	BrNE
	BrLT
	BrGE
	BrLTU
	BrGEU
)

// MulOp identifies a multiplier sub-operation (C2).
type MulOp uint8

const (
	MulMUL MulOp = iota
	MulMULH
	MulMULHSU
	MulMULHU
)

// DivOp identifies a divider sub-operation (C2).
type DivOp uint8

const (
	DivDIV DivOp = iota
	DivDIVU
	DivREM
	DivREMU
)

// MicroOp is the decoder's output (C4): a fully classified, self-contained
// description of one instruction. Decoding is pure combinational logic —
// the same instruction word always produces the same MicroOp, with
// no hidden decoder state.
type MicroOp struct {
	Op   Op
	Word uint32 // raw instruction word, for mtval on illegal-instruction traps

	Rd, Rs1, Rs2 uint8
	WritesRd     bool

	HasImmediate bool
	Immediate    uint32 // sign- or zero-extended to xlen, per format

	ALU     ALUOp
	Cond    BranchCond
	MulSub  MulOp
	DivSub  DivOp
	MemSize Width
	MemSign bool // true: sign-extend load result

	CSRAddr uint16
}

const (
	opcodeLOAD     = 0x03
	opcodeMiscMem  = 0x0F
	opcodeOPIMM    = 0x13
	opcodeAUIPC    = 0x17
	opcodeSTORE    = 0x23
	opcodeOP       = 0x33
	opcodeLUI      = 0x37
	opcodeBRANCH   = 0x63
	opcodeJALR     = 0x67
	opcodeJAL      = 0x6F
	opcodeSYSTEM   = 0x73
)

// Decode classifies a 32-bit instruction word into a MicroOp. An
// unrecognized encoding decodes to OpInvalid with WritesRd=false; it is
// the execute stage's job to turn that into an illegal-instruction trap
// with mtval=word (§4.1).
func Decode(word uint32) MicroOp {
	opcode := word & 0x7F
	rd := uint8((word >> 7) & 0x1F)
	funct3 := uint8((word >> 12) & 0x7)
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct7 := uint8((word >> 25) & 0x7F)

	u := MicroOp{Word: word, Rd: rd, Rs1: rs1, Rs2: rs2}

	switch opcode {
	case opcodeOPIMM:
		u.Op = OpALU
		u.WritesRd = true
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immI)
		switch funct3 {
		case 0x0:
			u.ALU = ALUAdd
		case 0x2:
			u.ALU = ALUSlt
		case 0x3:
			u.ALU = ALUSltu
		case 0x4:
			u.ALU = ALUXor
		case 0x6:
			u.ALU = ALUOr
		case 0x7:
			u.ALU = ALUAnd
		case 0x1:
			if funct7&^1 != 0 { // only bit0 of funct7 (shamt[5]) is legal for RV32
				return MicroOp{Op: OpInvalid, Word: word}
			}
			u.ALU = ALUSll
			u.Immediate = uint32(rs2) // shamt, low 5 bits
		case 0x5:
			switch funct7 {
			case 0x00:
				u.ALU = ALUSrl
			case 0x20:
				u.ALU = ALUSra
			default:
				return MicroOp{Op: OpInvalid, Word: word}
			}
			u.Immediate = uint32(rs2)
		}
		return u

	case opcodeOP:
		u.WritesRd = true
		if funct7 == 0x01 {
			// M-extension tie-break: funct7=1 selects MUL/DIV, any other
			// funct7 under opcode 0x33 selects base integer ops (§4.1).
			switch funct3 {
			case 0x0:
				u.Op, u.MulSub = OpMul, MulMUL
			case 0x1:
				u.Op, u.MulSub = OpMul, MulMULH
			case 0x2:
				u.Op, u.MulSub = OpMul, MulMULHSU
			case 0x3:
				u.Op, u.MulSub = OpMul, MulMULHU
			case 0x4:
				u.Op, u.DivSub = OpDiv, DivDIV
			case 0x5:
				u.Op, u.DivSub = OpDiv, DivDIVU
			case 0x6:
				u.Op, u.DivSub = OpDiv, DivREM
			case 0x7:
				u.Op, u.DivSub = OpDiv, DivREMU
			}
			return u
		}
		u.Op = OpALU
		switch funct3 {
		case 0x0:
			if funct7 == 0x20 {
				u.ALU = ALUSub
			} else if funct7 == 0x00 {
				u.ALU = ALUAdd
			} else {
				return MicroOp{Op: OpInvalid, Word: word}
			}
		case 0x1:
			if funct7 != 0x00 {
				return MicroOp{Op: OpInvalid, Word: word}
			}
			u.ALU = ALUSll
		case 0x2:
			u.ALU = ALUSlt
		case 0x3:
			u.ALU = ALUSltu
		case 0x4:
			u.ALU = ALUXor
		case 0x5:
			switch funct7 {
			case 0x00:
				u.ALU = ALUSrl
			case 0x20:
				u.ALU = ALUSra
			default:
				return MicroOp{Op: OpInvalid, Word: word}
			}
		case 0x6:
			u.ALU = ALUOr
		case 0x7:
			u.ALU = ALUAnd
		}
		return u

	case opcodeLOAD:
		u.Op = OpLoad
		u.WritesRd = true
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immI)
		switch funct3 {
		case 0x0:
			u.MemSize, u.MemSign = Byte, true
		case 0x1:
			u.MemSize, u.MemSign = Half, true
		case 0x2:
			u.MemSize, u.MemSign = Word, false
		case 0x4:
			u.MemSize, u.MemSign = Byte, false
		case 0x5:
			u.MemSize, u.MemSign = Half, false
		default:
			return MicroOp{Op: OpInvalid, Word: word}
		}
		return u

	case opcodeSTORE:
		u.Op = OpStore
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immS)
		switch funct3 {
		case 0x0:
			u.MemSize = Byte
		case 0x1:
			u.MemSize = Half
		case 0x2:
			u.MemSize = Word
		default:
			return MicroOp{Op: OpInvalid, Word: word}
		}
		return u

	case opcodeBRANCH:
		u.Op = OpBranch
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immB)
		switch funct3 {
		case 0x0:
			u.Cond = BrEQ
		case 0x1:
			u.Cond = BrNE
		case 0x4:
			u.Cond = BrLT
		case 0x5:
			u.Cond = BrGE
		case 0x6:
			u.Cond = BrLTU
		case 0x7:
			u.Cond = BrGEU
		default:
			return MicroOp{Op: OpInvalid, Word: word}
		}
		return u

	case opcodeJAL:
		u.Op = OpJAL
		u.WritesRd = true
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immJ)
		return u

	case opcodeJALR:
		if funct3 != 0 {
			return MicroOp{Op: OpInvalid, Word: word}
		}
		u.Op = OpJALR
		u.WritesRd = true
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immI)
		return u

	case opcodeLUI:
		u.Op = OpLUI
		u.WritesRd = true
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immU)
		return u

	case opcodeAUIPC:
		u.Op = OpAUIPC
		u.WritesRd = true
		u.HasImmediate = true
		u.Immediate = decodeImmediate(word, immU)
		return u

	case opcodeMiscMem:
		switch funct3 {
		case 0x0:
			u.Op = OpFENCE
		case 0x1:
			u.Op = OpFENCEI
		default:
			return MicroOp{Op: OpInvalid, Word: word}
		}
		return u

	case opcodeSYSTEM:
		switch funct3 {
		case 0x0:
			switch {
			case word>>20 == 0x000 && rs1 == 0 && rd == 0:
				u.Op = OpECALL
			case word>>20 == 0x001 && rs1 == 0 && rd == 0:
				u.Op = OpEBREAK
			case word>>20 == 0x302 && rs1 == 0 && rd == 0:
				u.Op = OpMRET
			default:
				return MicroOp{Op: OpInvalid, Word: word}
			}
			return u
		case 0x1, 0x2, 0x3:
			u.WritesRd = true
			u.CSRAddr = uint16(word >> 20)
			switch funct3 {
			case 0x1:
				u.Op = OpCSRRW
			case 0x2:
				u.Op = OpCSRRS
			case 0x3:
				u.Op = OpCSRRC
			}
			return u
		case 0x5, 0x6, 0x7:
			u.WritesRd = true
			u.HasImmediate = true
			u.CSRAddr = uint16(word >> 20)
			u.Immediate = csrUimm(word) // rs1 field is a zero-extended uimm, never sign-extended
			switch funct3 {
			case 0x5:
				u.Op = OpCSRRW
			case 0x6:
				u.Op = OpCSRRS
			case 0x7:
				u.Op = OpCSRRC
			}
			return u
		default:
			return MicroOp{Op: OpInvalid, Word: word}
		}
	}

	return MicroOp{Op: OpInvalid, Word: word}
}
