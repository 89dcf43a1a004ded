package svarog

// UART is a minimal memory-mapped transmit-only UART register block
// (§4.7/§6.4/§8 scenario 6): a TX data register and a TX-ready status
// register. The byte-banging wire transport is out of scope; only the
// register-level interface and its output observability are modeled,
// mirroring the register-accessor shape of Timer and MSWI.
type UART struct {
	base uint32
	name string

	tx []byte
}

const (
	uartTxDataOff  = 0x0
	uartTxReadyOff = 0x4
)

// NewUART constructs a UART register block at base.
func NewUART(base uint32, name string) *UART {
	if name == "" {
		name = "uart"
	}
	return &UART{base: base, name: name}
}

func (u *UART) Base() uint32 { return u.base }
func (u *UART) Size() uint32 { return 8 }
func (u *UART) Ready() bool  { return true }
func (u *UART) Name() string { return u.name }

// TXAddr returns the address of the TX data register, the one store
// target that produces a transmitted byte.
func (u *UART) TXAddr() uint32 { return u.base + uartTxDataOff }

func (u *UART) Do(req BusRequest) BusResponse {
	off := req.Address - u.base
	switch off {
	case uartTxDataOff:
		if req.Write {
			u.tx = append(u.tx, byte(req.Data))
			return BusResponse{}
		}
		return BusResponse{Data: 0}
	case uartTxReadyOff:
		if req.Write {
			return BusResponse{}
		}
		return BusResponse{Data: 1} // always ready: the output buffer is unbounded
	default:
		return BusResponse{Error: true}
	}
}

// Output drains and returns every byte transmitted since the last call.
// This is the harness-facing hook for §8 scenario 6 ("a store to the
// UART TX register triggers exactly one byte on the TX channel").
func (u *UART) Output() []byte {
	out := u.tx
	u.tx = nil
	return out
}
