package svarog

import "testing"

func stepN(u *Multiplier, n int) {
	for i := 0; i < n; i++ {
		u.Tick()
	}
}

func TestMultiplierLatencyHandshake(t *testing.T) {
	m := NewMultiplier(3)
	m.Start(MulMUL, 6, 7)
	if !m.Busy() {
		t.Fatalf("expected busy immediately after Start")
	}
	stepN(m, 2)
	if !m.Busy() {
		t.Fatalf("expected still busy after 2 of 3 cycles")
	}
	m.Tick()
	if m.Busy() {
		t.Fatalf("expected idle after 3 cycles")
	}
	if m.Result() != 42 {
		t.Errorf("result = %d, want 42", m.Result())
	}
}

func TestMULHSigned(t *testing.T) {
	m := NewMultiplier(1)
	m.Start(MulMULH, 0xFFFFFFFF, 0xFFFFFFFF) // -1, -1
	m.Tick()
	if m.Result() != 0 {
		t.Errorf("MULH(-1,-1) high = %#x, want 0", m.Result())
	}
}

func TestDivideByZeroUnsigned(t *testing.T) {
	d := NewDivider(1)
	d.Start(DivDIVU, 17, 0)
	d.Tick()
	q, r := d.Result()
	if q != 0xFFFFFFFF || r != 17 {
		t.Errorf("DIVU/0 = (%#x,%#x), want (0xFFFFFFFF,17)", q, r)
	}
}

func TestDivideIntMinByNegOne(t *testing.T) {
	d := NewDivider(1)
	d.Start(DivDIV, 0x80000000, 0xFFFFFFFF)
	d.Tick()
	q, r := d.Result()
	if q != 0x80000000 || r != 0 {
		t.Errorf("DIV INT_MIN/-1 = (%#x,%#x), want (0x80000000,0)", q, r)
	}
}
