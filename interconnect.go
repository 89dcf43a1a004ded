package svarog

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// MasterID identifies a requester on the interconnect (§4.7). Per the
// Open Questions decision in SPEC_FULL.md, Svarog models a single shared
// bus with a fetch master, a load-store master, and an optional debug
// master, arbitrated round-robin.
type MasterID int

const (
	MasterFetch MasterID = iota
	MasterLSU
	MasterDebug
	masterCount
)

// BusRequest is one interconnect transaction request (§3).
type BusRequest struct {
	Address    uint32
	Write      bool
	ByteEnable uint8 // one bit set per valid byte lane, aligned to Address
	Data       uint32
	Width      Width
}

// BusResponse is the slave's reply to a BusRequest (§3).
type BusResponse struct {
	Data  uint32
	Error bool // unmapped or faulting access; MEM converts this to an access fault
}

// Slave is a memory-mapped device behind the interconnect: RAM, ROM,
// timer, or MSWI. Each declares a contiguous [Base, Base+Size) range.
type Slave interface {
	Base() uint32
	Size() uint32
	Ready() bool // false means the slave is stalling this cycle (§4.7)
	Do(req BusRequest) BusResponse
	Name() string
}

// pendingRequest tracks one master's outstanding, in-order transaction.
type pendingRequest struct {
	active bool
	req    BusRequest
}

// Interconnect routes requests from masters to address-decoded slaves
// (C12). Arbitration is round-robin across masters with pending
// requests; responses to a given master are returned in request order;
// across masters, responses may interleave (§4.7 ordering guarantee).
type Interconnect struct {
	slaves  []Slave
	pending [masterCount]pendingRequest
	lastWinner MasterID
	logger  *slog.Logger
}

// NewInterconnect constructs an interconnect with the given slave set.
// Overlapping slave ranges are an implementation (configuration) error,
// rejected before the first tick (§7).
func NewInterconnect(slaves []Slave, logger *slog.Logger) (*Interconnect, error) {
	for i := 0; i < len(slaves); i++ {
		for j := i + 1; j < len(slaves); j++ {
			if rangesOverlap(slaves[i], slaves[j]) {
				return nil, errors.Wrapf(ErrConfigInvalid,
					"memory regions %q and %q overlap", slaves[i].Name(), slaves[j].Name())
			}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interconnect{slaves: slaves, lastWinner: masterCount - 1, logger: logger}, nil
}

func rangesOverlap(a, b Slave) bool {
	aEnd := a.Base() + a.Size()
	bEnd := b.Base() + b.Size()
	return a.Base() < bEnd && b.Base() < aEnd
}

func (ic *Interconnect) decode(addr uint32) Slave {
	for _, s := range ic.slaves {
		if addr >= s.Base() && addr < s.Base()+s.Size() {
			return s
		}
	}
	return nil
}

// Request latches master's request as pending. A master that asserts a
// request must keep it stable until a Step services it (§4.7); calling
// Request again for a master with an already-pending, unaccepted request
// is a protocol violation and panics with a diagnostic (§7 "protocol
// violation: a master releases request before accept").
func (ic *Interconnect) Request(m MasterID, req BusRequest) {
	if ic.pending[m].active {
		ic.logger.Error("interconnect protocol violation: request issued while a prior request is still pending",
			"master", m, "address", fmt.Sprintf("%#x", req.Address))
		panic(errors.Errorf("svarog: interconnect: master %d issued a new request before its prior one was accepted", m))
	}
	ic.pending[m].active = true
	ic.pending[m].req = req
}

// HasPending reports whether master m has an outstanding, unaccepted request.
func (ic *Interconnect) HasPending(m MasterID) bool {
	return ic.pending[m].active
}

// StepResult is one master's outcome from a Step call.
type StepResult struct {
	Master   MasterID
	Resp     BusResponse
	Serviced bool
}

// Step arbitrates one cycle for every currently pending master. Masters
// targeting distinct slaves are serviced independently in the same
// cycle — the reference slave set (RAM/ROM/timer/MSWI) is dual-ported
// in the sense that an instruction fetch and a concurrent load/store can
// both complete in one cycle, matching common small-core TCM designs and
// keeping the worked examples in spec.md §8 (zero-stall forwarding,
// exactly-one-bubble load-use) honest. Real contention is still
// arbitrated round-robin: when two or more pending masters target the
// *same* slave in the same cycle, only the one after lastWinner wins
// (lastWinner is a single value shared by all slaves, not tracked per
// slave); the other(s) remain pending and retry next cycle (§4.7
// "interconnect stall"). A slave reporting !Ready() stalls only the
// master(s) addressing it.
func (ic *Interconnect) Step() []StepResult {
	bySlave := make(map[Slave][]MasterID)
	for i := 0; i < int(masterCount); i++ {
		m := MasterID(i)
		if !ic.pending[m].active {
			continue
		}
		slave := ic.decode(ic.pending[m].req.Address)
		bySlave[slave] = append(bySlave[slave], m)
	}

	var results []StepResult
	for slave, contenders := range bySlave {
		if slave == nil {
			for _, m := range contenders {
				ic.pending[m].active = false
				results = append(results, StepResult{Master: m, Resp: BusResponse{Error: true}, Serviced: true})
			}
			continue
		}
		if !slave.Ready() {
			continue
		}
		winner := ic.arbitrate(contenders)
		resp := slave.Do(ic.pending[winner].req)
		ic.pending[winner].active = false
		ic.lastWinner = winner
		results = append(results, StepResult{Master: winner, Resp: resp, Serviced: true})
	}
	return results
}

// arbitrate picks the contender that comes first after lastWinner,
// round-robin, when more than one master targets the same slave.
func (ic *Interconnect) arbitrate(contenders []MasterID) MasterID {
	if len(contenders) == 1 {
		return contenders[0]
	}
	best := contenders[0]
	bestDist := distance(ic.lastWinner, best)
	for _, c := range contenders[1:] {
		if d := distance(ic.lastWinner, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func distance(from, to MasterID) int {
	d := int(to) - int(from)
	if d <= 0 {
		d += int(masterCount)
	}
	return d
}
