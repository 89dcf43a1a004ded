package svarog

// Events is the per-cycle observability surface tests drive against
// (§6.2). Core.Tick fills in a fresh Events each cycle; fields are zero
// when nothing of that kind happened.
type Events struct {
	Retired      bool
	RetiredPC    uint32
	RetiredInstr uint32

	RegWrite     bool
	RegWriteAddr uint8
	RegWriteData uint32

	MemStore      bool
	MemStoreAddr  uint32
	MemStoreData  uint32
	MemStoreWidth Width

	MemLoad      bool
	MemLoadAddr  uint32
	MemLoadData  uint32
	MemLoadWidth Width

	TrapTaken bool
	TrapCause uint32

	UARTTx     bool
	UARTTxByte byte

	Halted bool
}
