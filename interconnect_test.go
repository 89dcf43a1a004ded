package svarog

import "testing"

func TestInterconnectServicesDistinctSlavesConcurrently(t *testing.T) {
	ramA := NewRAM(0x0000, 0x1000, "a")
	ramB := NewRAM(0x1000, 0x1000, "b")
	ic, err := NewInterconnect([]Slave{ramA, ramB}, nil)
	if err != nil {
		t.Fatalf("NewInterconnect: %v", err)
	}
	ic.Request(MasterFetch, BusRequest{Address: 0x0000, Width: Word})
	ic.Request(MasterLSU, BusRequest{Address: 0x1000, Width: Word})
	results := ic.Step()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (both masters serviced in one cycle)", len(results))
	}
}

func TestInterconnectArbitratesSameSlaveRoundRobin(t *testing.T) {
	ram := NewRAM(0x0000, 0x1000, "ram")
	ic, err := NewInterconnect([]Slave{ram}, nil)
	if err != nil {
		t.Fatalf("NewInterconnect: %v", err)
	}
	ic.Request(MasterFetch, BusRequest{Address: 0x0000, Width: Word})
	ic.Request(MasterLSU, BusRequest{Address: 0x0004, Width: Word})
	results := ic.Step()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (only one master wins the same slave)", len(results))
	}
	loser := MasterLSU
	if results[0].Master == MasterLSU {
		loser = MasterFetch
	}
	if !ic.HasPending(loser) {
		t.Errorf("losing master should still have its request pending")
	}
}

func TestInterconnectRequestBeforeAcceptPanics(t *testing.T) {
	ram := NewRAM(0x0000, 0x1000, "ram")
	ic, _ := NewInterconnect([]Slave{ram}, nil)
	ic.Request(MasterFetch, BusRequest{Address: 0, Width: Word})
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic on a double request before accept")
		}
	}()
	ic.Request(MasterFetch, BusRequest{Address: 4, Width: Word})
}

func TestInterconnectUnmappedAddressErrors(t *testing.T) {
	ram := NewRAM(0x0000, 0x1000, "ram")
	ic, _ := NewInterconnect([]Slave{ram}, nil)
	ic.Request(MasterLSU, BusRequest{Address: 0xFFFF0000, Width: Word})
	results := ic.Step()
	if len(results) != 1 || !results[0].Resp.Error {
		t.Fatalf("expected one errored result for an unmapped address")
	}
}
