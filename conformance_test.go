package svarog

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var conformancePath = flag.String("conformancepath", "testdata/conformance", "directory containing conformance JSON fixtures")

// conformanceCase is one fixture: an initial register state, a raw
// program image, and the expected register state after the program runs
// to completion (signaled by the trap its final ECALL raises).
type conformanceCase struct {
	Name    string           `json:"name"`
	Image   []uint32         `json:"image"`
	Initial map[string]uint32 `json:"initial"`
	Final   map[string]uint32 `json:"final"`
}

// TestConformance runs every JSON fixture under -conformancepath, each
// modeling one short program and its expected architectural end state,
// in the style of the official riscv-tests pass/fail convention: the
// program signals completion by executing ECALL. The run stops at the
// first trap taken and then compares every register listed in final.
func TestConformance(t *testing.T) {
	entries, err := os.ReadDir(*conformancePath)
	if err != nil {
		t.Skipf("no conformance fixtures at %s: %v", *conformancePath, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := entry.Name()
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(*conformancePath, name))
			if err != nil {
				t.Fatalf("reading %s: %v", name, err)
			}
			var tc conformanceCase
			if err := json.Unmarshal(data, &tc); err != nil {
				t.Fatalf("parsing %s: %v", name, err)
			}
			runConformanceCase(t, tc)
		})
	}
}

func runConformanceCase(t *testing.T, tc conformanceCase) {
	t.Helper()
	sys := newTestSystem(t, tc.Image)
	for reg, val := range tc.Initial {
		if r := regIndex(reg); r > 0 {
			sys.Core(0).RegFile().Write(r, val)
		}
	}

	var trapped bool
	for i := 0; i < 100_000 && !trapped; i++ {
		evs := sys.Tick()
		if evs[0].TrapTaken {
			trapped = true
		}
	}
	if !trapped {
		t.Fatalf("%s: program did not trap (ECALL) within the cycle budget", tc.Name)
	}

	for reg, want := range tc.Final {
		r := regIndex(reg)
		if r == 0 {
			continue
		}
		if got := sys.Core(0).RegFile().Read(r); got != want {
			t.Errorf("%s: %s = %#x, want %#x", tc.Name, reg, got, want)
		}
	}
}

func regIndex(name string) uint8 {
	for i := 0; i < 32; i++ {
		if name == "x"+itoa(i) {
			return uint8(i)
		}
	}
	return 0
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
