package svarog

import "testing"

func encodeR(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1F)<<7 | opcode
}

func encodeB(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	b12 := (u >> 12) & 1
	b11 := (u >> 11) & 1
	b10_5 := (u >> 5) & 0x3F
	b4_1 := (u >> 1) & 0xF
	return b12<<31 | b10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opcode
}

func encodeU(opcode, rd uint32, imm int32) uint32 {
	return uint32(imm)&0xFFFFF000 | rd<<7 | opcode
}

func encodeJ(opcode, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	b20 := (u >> 20) & 1
	b19_12 := (u >> 12) & 0xFF
	b11 := (u >> 11) & 1
	b10_1 := (u >> 1) & 0x3FF
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | rd<<7 | opcode
}

func addi(rd, rs1 uint32, imm int32) uint32 { return encodeI(0x13, 0x0, rd, rs1, imm) }
func add(rd, rs1, rs2 uint32) uint32        { return encodeR(0x33, 0x0, 0x00, rd, rs1, rs2) }
func sub(rd, rs1, rs2 uint32) uint32        { return encodeR(0x33, 0x0, 0x20, rd, rs1, rs2) }
func mul(rd, rs1, rs2 uint32) uint32        { return encodeR(0x33, 0x0, 0x01, rd, rs1, rs2) }
func divOp(rd, rs1, rs2 uint32) uint32      { return encodeR(0x33, 0x4, 0x01, rd, rs1, rs2) }
func lw(rd, rs1 uint32, imm int32) uint32   { return encodeI(0x03, 0x2, rd, rs1, imm) }
func sw(rs1, rs2 uint32, imm int32) uint32  { return encodeS(0x23, 0x2, rs1, rs2, imm) }
func beq(rs1, rs2 uint32, imm int32) uint32 { return encodeB(0x63, 0x0, rs1, rs2, imm) }
func jal(rd uint32, imm int32) uint32       { return encodeJ(0x6F, rd, imm) }
func lui(rd uint32, imm int32) uint32       { return encodeU(0x37, rd, imm) }
func csrrw(rd, csr, rs1 uint32) uint32      { return encodeI(0x73, 0x1, rd, rs1, int32(csr)) }
func csrrs(rd, csr, rs1 uint32) uint32      { return encodeI(0x73, 0x2, rd, rs1, int32(csr)) }
func ecall() uint32                         { return encodeI(0x73, 0x0, 0, 0, 0) }
func mret() uint32                          { return encodeI(0x73, 0x0, 0, 0, 0x302) }

// newTestSystem builds a single-hart, single-RAM system with program
// loaded at the reset vector.
func newTestSystem(t *testing.T, program []uint32) *System {
	t.Helper()
	cfg := DefaultConfig()
	sys, err := NewSystem(cfg, nil)
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	buf := make([]byte, len(program)*4)
	for i, w := range program {
		buf[i*4] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	sys.RAM().Load(buf)
	return sys
}

// runUntilRetire ticks the system until hart 0 retires maxRetires
// instructions or the cycle budget is exhausted, returning the observed
// events in retirement order.
func runUntilRetire(t *testing.T, sys *System, maxRetires, maxCycles int) []Events {
	t.Helper()
	var retired []Events
	for i := 0; i < maxCycles && len(retired) < maxRetires; i++ {
		evs := sys.Tick()
		if evs[0].Retired {
			retired = append(retired, evs[0])
		}
	}
	return retired
}
