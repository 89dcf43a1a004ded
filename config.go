package svarog

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MemoryKind distinguishes RAM from ROM regions in the declarative config.
type MemoryKind string

const (
	KindRAM MemoryKind = "ram"
	KindROM MemoryKind = "rom"
)

// MemoryRegion declares one memory region (§6.4).
type MemoryRegion struct {
	Base     uint32     `yaml:"base"`
	Size     uint32     `yaml:"size"`
	Kind     MemoryKind `yaml:"kind"`
	InitFile string     `yaml:"init_file,omitempty"`
}

// PeripheralsConfig declares the optional peripheral set (§6.4).
type PeripheralsConfig struct {
	Timer *struct {
		Base uint32 `yaml:"base"`
	} `yaml:"timer,omitempty"`
	MSWI *struct {
		Base uint32 `yaml:"base"`
	} `yaml:"mswi,omitempty"`
	UARTs []UARTConfig `yaml:"uarts,omitempty"`
}

// UARTConfig declares one memory-mapped UART-like device (§6.4). The
// byte-banging transport is out of scope; only the register model (TX
// data register + TX-ready observability) is implemented.
type UARTConfig struct {
	Base uint32 `yaml:"base"`
	Name string `yaml:"name"`
}

// ISAExtensions declares which optional extensions are enabled (§6.4).
// Base I is always present.
type ISAExtensions struct {
	M      bool `yaml:"m"`
	Zicsr  bool `yaml:"zicsr"`
	Zicntr bool `yaml:"zicntr"`
}

// Config is the declarative, enumerated configuration surface (§6.4),
// loadable from YAML the way the host harness's site/deployment config
// would be (mirroring the `tinyrange-cc` example's own YAML-backed
// config pattern).
type Config struct {
	XLen          int               `yaml:"xlen"`
	NumHarts      int               `yaml:"num_harts"`
	MemoryRegions []MemoryRegion    `yaml:"memory_regions"`
	Peripherals   PeripheralsConfig `yaml:"peripherals"`
	ResetVector   uint32            `yaml:"reset_vector"`
	ISAExtensions ISAExtensions     `yaml:"isa_extensions"`
	MulLatency    uint32            `yaml:"mul_latency"`
	DivLatency    uint32            `yaml:"div_latency"`
	BTBEntries    int               `yaml:"btb_entries"`
	RTCDivisor    uint32            `yaml:"rtc_divisor,omitempty"`
	StrictAlign   bool              `yaml:"strict_alignment"`
}

// DefaultConfig returns a single-hart, RAM-only configuration with M and
// Zicsr enabled, suitable as a starting point for tests and the CLI.
func DefaultConfig() Config {
	return Config{
		XLen:     32,
		NumHarts: 1,
		MemoryRegions: []MemoryRegion{
			{Base: 0x0000_0000, Size: 1 << 20, Kind: KindRAM},
		},
		ResetVector:   0,
		ISAExtensions: ISAExtensions{M: true, Zicsr: true, Zicntr: true},
		MulLatency:    3,
		DivLatency:    32,
		BTBEntries:    64,
		RTCDivisor:    1,
		StrictAlign:   true,
	}
}

// LoadConfigFile reads and parses a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "svarog: reading config %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "svarog: parsing config %q", path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects an invalid configuration before the first tick (§7):
// overlapping memory regions, non-power-of-two BTB, zero harts.
func (c Config) Validate() error {
	if c.XLen != 32 {
		return errors.Wrapf(ErrConfigInvalid, "xlen must be 32, got %d", c.XLen)
	}
	if c.NumHarts < 1 {
		return errors.Wrap(ErrConfigInvalid, "num_harts must be >= 1")
	}
	if c.BTBEntries < 2 || c.BTBEntries&(c.BTBEntries-1) != 0 {
		return errors.Wrapf(ErrConfigInvalid, "btb_entries must be a power of two >= 2, got %d", c.BTBEntries)
	}
	if c.MulLatency < 1 {
		return errors.Wrap(ErrConfigInvalid, "mul_latency must be >= 1")
	}
	if c.DivLatency < 1 {
		return errors.Wrap(ErrConfigInvalid, "div_latency must be >= 1")
	}
	for i, r := range c.MemoryRegions {
		for j := i + 1; j < len(c.MemoryRegions); j++ {
			o := c.MemoryRegions[j]
			if r.Base < o.Base+o.Size && o.Base < r.Base+r.Size {
				return errors.Wrapf(ErrConfigInvalid, "memory regions %d and %d overlap", i, j)
			}
		}
		if r.Kind != KindRAM && r.Kind != KindROM {
			return errors.Wrapf(ErrConfigInvalid, "memory region %d: unknown kind %q", i, r.Kind)
		}
	}
	return nil
}
