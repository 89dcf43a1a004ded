package svarog

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// coreSerializeVersion is incremented whenever the binary layout changes.
const coreSerializeVersion = 1

// coreSerializeSize is the number of bytes produced by Core.Serialize.
// Update this constant whenever the binary layout changes.
const coreSerializeSize = 1 + 4 + 32*4 + csrSerializeSize + 4*latchSerializeSize + muldivSerializeSize

const latchSerializeSize = 64
const csrSerializeSize = 8*4 + 2*8 + 2*8 + 3
const muldivSerializeSize = 2 * (1 + 4 + 4)

// SerializeSize returns the number of bytes needed for Serialize.
func (c *Core) SerializeSize() int { return coreSerializeSize }

// Serialize writes the full architectural and microarchitectural state
// of one hart into buf, which must be at least SerializeSize() bytes.
// The shared interconnect, timer, and MSWI are not included — a restored
// Core must be rewired to the same peripherals it was captured with. The
// BTB is not included either: a restored Core starts with an empty BTB.
func (c *Core) Serialize(buf []byte) error {
	if len(buf) < coreSerializeSize {
		return errors.New("svarog: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = coreSerializeVersion
	off := 1

	be.PutUint32(buf[off:], c.pc)
	off += 4

	regs := c.regs.Snapshot()
	for _, r := range regs {
		be.PutUint32(buf[off:], r)
		off += 4
	}

	off += c.csr.serialize(buf[off:])

	for _, l := range []latch{c.ifid, c.idex, c.exmem, c.memwb} {
		off += serializeLatch(l, buf[off:])
	}

	off += c.serializeMulDiv(buf[off:])

	return nil
}

// Deserialize restores hart state from buf, which must be at least
// SerializeSize() bytes and was produced by Serialize at a matching
// version. The bus, timer, and MSWI pointers are left unchanged.
func (c *Core) Deserialize(buf []byte) error {
	if len(buf) < coreSerializeSize {
		return errors.New("svarog: deserialize buffer too small")
	}
	if buf[0] != coreSerializeVersion {
		return errors.Errorf("svarog: unsupported serialize version %d", buf[0])
	}
	be := binary.BigEndian
	off := 1

	c.pc = be.Uint32(buf[off:])
	off += 4

	var regs [32]uint32
	for i := range regs {
		regs[i] = be.Uint32(buf[off:])
		off += 4
	}
	c.regs = &RegFile{}
	for i := 1; i < 32; i++ {
		c.regs.Write(uint8(i), regs[i])
	}

	off += c.csr.deserialize(buf[off:])

	latches := make([]*latch, 4)
	latches[0], latches[1], latches[2], latches[3] = &c.ifid, &c.idex, &c.exmem, &c.memwb
	for _, l := range latches {
		var read int
		*l, read = deserializeLatch(buf[off:])
		off += read
	}

	off += c.deserializeMulDiv(buf[off:])

	return nil
}

func serializeLatch(l latch, buf []byte) int {
	be := binary.BigEndian
	buf[0] = boolByte(l.Valid)
	be.PutUint32(buf[1:], l.PC)
	be.PutUint32(buf[5:], l.Word)
	be.PutUint32(buf[9:], l.Rs1Val)
	be.PutUint32(buf[13:], l.Rs2Val)
	be.PutUint32(buf[17:], l.Result)
	be.PutUint32(buf[21:], l.MemAddr)
	be.PutUint32(buf[25:], l.MemData)
	buf[29] = byte(l.MemWidth)
	buf[30] = boolByte(l.IsLoad)
	buf[31] = boolByte(l.IsStore)
	buf[32] = l.Rd
	buf[33] = boolByte(l.RegWrite)
	buf[34] = byte(l.Exc.cause)
	be.PutUint32(buf[35:], l.Exc.tval)
	buf[39] = boolByte(l.PredictedTaken)
	be.PutUint32(buf[40:], l.PredictedTarget)
	buf[44] = boolByte(l.IsBranchOrJump)
	buf[45] = boolByte(l.ActualTaken)
	be.PutUint32(buf[46:], l.ActualTarget)
	buf[50] = boolByte(l.CSRWrite)
	be.PutUint16(buf[51:], l.CSRAddr)
	be.PutUint32(buf[53:], l.CSRWriteVal)
	buf[57] = boolByte(l.IsMRET)
	buf[58] = boolByte(l.IsFenceI)
	return latchSerializeSize
}

func deserializeLatch(buf []byte) (latch, int) {
	be := binary.BigEndian
	var l latch
	l.Valid = buf[0] != 0
	l.PC = be.Uint32(buf[1:])
	l.Word = be.Uint32(buf[5:])
	l.Rs1Val = be.Uint32(buf[9:])
	l.Rs2Val = be.Uint32(buf[13:])
	l.Result = be.Uint32(buf[17:])
	l.MemAddr = be.Uint32(buf[21:])
	l.MemData = be.Uint32(buf[25:])
	l.MemWidth = Width(buf[29])
	l.IsLoad = buf[30] != 0
	l.IsStore = buf[31] != 0
	l.Rd = buf[32]
	l.RegWrite = buf[33] != 0
	l.Exc.cause = excCause(buf[34])
	l.Exc.tval = be.Uint32(buf[35:])
	l.PredictedTaken = buf[39] != 0
	l.PredictedTarget = be.Uint32(buf[40:])
	l.IsBranchOrJump = buf[44] != 0
	l.ActualTaken = buf[45] != 0
	l.ActualTarget = be.Uint32(buf[46:])
	l.CSRWrite = buf[50] != 0
	l.CSRAddr = be.Uint16(buf[51:])
	l.CSRWriteVal = be.Uint32(buf[53:])
	l.IsMRET = buf[57] != 0
	l.IsFenceI = buf[58] != 0
	l.Op = Decode(l.Word) // the decoded MicroOp is not stored; rebuild it
	return l, latchSerializeSize
}

func (c *Core) serializeMulDiv(buf []byte) int {
	buf[0] = boolByte(c.mulInFlight)
	buf[1] = boolByte(c.divInFlight)
	return muldivSerializeSize
}

func (c *Core) deserializeMulDiv(buf []byte) int {
	c.mulInFlight = buf[0] != 0
	c.divInFlight = buf[1] != 0
	return muldivSerializeSize
}

func (f *CSRFile) serialize(buf []byte) int {
	be := binary.BigEndian
	be.PutUint32(buf[0:], f.mstatus)
	be.PutUint32(buf[4:], f.mie)
	be.PutUint32(buf[8:], f.mtvec)
	be.PutUint32(buf[12:], f.mscratch)
	be.PutUint32(buf[16:], f.mepc)
	be.PutUint32(buf[20:], f.mcause)
	be.PutUint32(buf[24:], f.mtval)
	be.PutUint64(buf[28:], f.mcycle)
	be.PutUint64(buf[36:], f.minstret)
	be.PutUint64(buf[44:], f.hpmBranches)
	be.PutUint64(buf[52:], f.hpmStalls)
	buf[60] = boolByte(f.msip)
	buf[61] = boolByte(f.mtip)
	buf[62] = boolByte(f.meip)
	return csrSerializeSize
}

func (f *CSRFile) deserialize(buf []byte) int {
	be := binary.BigEndian
	f.mstatus = be.Uint32(buf[0:])
	f.mie = be.Uint32(buf[4:])
	f.mtvec = be.Uint32(buf[8:])
	f.mscratch = be.Uint32(buf[12:])
	f.mepc = be.Uint32(buf[16:])
	f.mcause = be.Uint32(buf[20:])
	f.mtval = be.Uint32(buf[24:])
	f.mcycle = be.Uint64(buf[28:])
	f.minstret = be.Uint64(buf[36:])
	f.hpmBranches = be.Uint64(buf[44:])
	f.hpmStalls = be.Uint64(buf[52:])
	f.msip = buf[60] != 0
	f.mtip = buf[61] != 0
	f.meip = buf[62] != 0
	return csrSerializeSize
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
