package svarog

import (
	"log/slog"

	"github.com/pkg/errors"
)

// System wires a Config's declared memory regions and peripherals onto
// one shared Interconnect and constructs one Core per hart (C12, C14,
// C15). It is the top-level object a harness constructs and ticks.
type System struct {
	cfg   Config
	bus   *Interconnect
	timer *Timer
	mswi  *MSWI
	uarts []*UART
	cores []*Core

	cycle uint64
}

// NewSystem validates cfg, builds the memory map, and constructs the
// configured number of harts.
func NewSystem(cfg Config, logger *slog.Logger) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var slaves []Slave
	for i, r := range cfg.MemoryRegions {
		switch r.Kind {
		case KindRAM:
			slaves = append(slaves, NewRAM(r.Base, r.Size, ramName(i)))
		case KindROM:
			slaves = append(slaves, NewROM(r.Base, r.Size, nil, romName(i)))
		}
	}

	var timer *Timer
	var mswi *MSWI
	if cfg.Peripherals.Timer != nil {
		timer = NewTimer(cfg.Peripherals.Timer.Base, cfg.NumHarts, cfg.RTCDivisor)
		slaves = append(slaves, timer)
	}
	if cfg.Peripherals.MSWI != nil {
		mswi = NewMSWI(cfg.Peripherals.MSWI.Base, cfg.NumHarts)
		slaves = append(slaves, mswi)
	}

	var uarts []*UART
	for _, u := range cfg.Peripherals.UARTs {
		uart := NewUART(u.Base, u.Name)
		uarts = append(uarts, uart)
		slaves = append(slaves, uart)
	}

	bus, err := NewInterconnect(slaves, logger)
	if err != nil {
		return nil, errors.Wrap(err, "svarog: constructing system")
	}

	s := &System{cfg: cfg, bus: bus, timer: timer, mswi: mswi, uarts: uarts}
	for h := 0; h < cfg.NumHarts; h++ {
		s.cores = append(s.cores, NewCore(uint32(h), cfg, bus, timer, mswi, uarts, logger))
	}
	return s, nil
}

// UART returns the i'th configured UART device, for a harness that wants
// to drain transmitted bytes between Tick calls.
func (s *System) UART(i int) *UART { return s.uarts[i] }

func ramName(i int) string { return indexedName("ram", i) }
func romName(i int) string { return indexedName("rom", i) }

func indexedName(prefix string, i int) string {
	digits := [10]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}
	if i < 10 {
		return prefix + string(digits[i:i+1])
	}
	return prefix // falls back to a shared name past 10 regions of one kind
}

// Slave exposes the underlying memory-mapped device at index i in the
// order NewSystem constructed it, for test fixtures that need to Load a
// RAM/ROM image before the first Tick.
func (s *System) Slave(i int) Slave {
	for j, sl := range s.bus.slaves {
		if j == i {
			return sl
		}
	}
	return nil
}

// RAM returns the first RAM region, the common case for a single-region
// test fixture that needs to Load a program image.
func (s *System) RAM() *RAM {
	for _, sl := range s.bus.slaves {
		if r, ok := sl.(*RAM); ok {
			return r
		}
	}
	return nil
}

// Core returns hart h.
func (s *System) Core(h int) *Core { return s.cores[h] }

// NumHarts returns the configured hart count.
func (s *System) NumHarts() int { return len(s.cores) }

// Tick advances the timer device and every hart by one cycle, returning
// each hart's observability events for the cycle (§6.2).
func (s *System) Tick() []Events {
	s.cycle++
	if s.timer != nil {
		s.timer.Tick()
	}
	ev := make([]Events, len(s.cores))
	for i, c := range s.cores {
		ev[i] = c.Tick()
	}
	return ev
}

// Run ticks the system until maxCycles is reached or until stop reports
// true for some hart's events, whichever comes first. Returns the cycle
// count actually run and whether stop fired (false means the budget was
// exhausted, mirroring ErrTimeout's condition at the caller's choice).
func (s *System) Run(maxCycles uint64, stop func(ev []Events) bool) (ranCycles uint64, stopped bool) {
	for ranCycles = 0; ranCycles < maxCycles; ranCycles++ {
		ev := s.Tick()
		if stop != nil && stop(ev) {
			return ranCycles + 1, true
		}
	}
	return ranCycles, false
}
