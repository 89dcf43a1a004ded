package svarog

import "testing"

func TestCoreSerializeRoundTrip(t *testing.T) {
	prog := []uint32{
		addi(1, 0, 5),
		addi(2, 0, 7),
		add(3, 1, 2),
	}
	sys := newTestSystem(t, prog)
	runUntilRetire(t, sys, 2, 100)

	c := sys.Core(0)
	buf := make([]byte, c.SerializeSize())
	if err := c.Serialize(buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewCore(0, DefaultConfig(), sys.bus, nil, nil, nil, nil)
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if restored.PC() != c.PC() {
		t.Errorf("PC = %#x, want %#x", restored.PC(), c.PC())
	}
	if restored.RegFile().Read(1) != c.RegFile().Read(1) {
		t.Errorf("x1 mismatch after round trip")
	}
	wantCycle, wantInstret := c.CSRFile().Snapshot()
	gotCycle, gotInstret := restored.CSRFile().Snapshot()
	if wantCycle != gotCycle || wantInstret != gotInstret {
		t.Errorf("csr snapshot mismatch: got (%d,%d) want (%d,%d)", gotCycle, gotInstret, wantCycle, wantInstret)
	}
}

func TestSerializeBufferTooSmall(t *testing.T) {
	c := NewCore(0, DefaultConfig(), nil, nil, nil, nil, nil)
	if err := c.Serialize(make([]byte, 1)); err == nil {
		t.Errorf("expected an error for an undersized buffer")
	}
}
