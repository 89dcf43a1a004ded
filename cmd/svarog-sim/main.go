// Command svarog-sim runs a Svarog system from a YAML configuration and
// a raw binary program image, optionally printing retirement trace
// lines, and ends with a per-hart PC and mcycle/minstret summary.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/svarog/svarog"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML system configuration (default: DefaultConfig)")
	imagePath := flag.String("image", "", "path to a raw binary program image")
	maxCycles := flag.Uint64("max-cycles", 1_000_000, "cycle budget before giving up")
	trace := flag.Bool("trace", false, "print one line per retired instruction")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "svarog-sim: -image is required")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := svarog.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = svarog.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "svarog-sim: %v\n", err)
			os.Exit(1)
		}
	}

	sys, err := svarog.NewSystem(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svarog-sim: %v\n", err)
		os.Exit(1)
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svarog-sim: reading image: %v\n", err)
		os.Exit(1)
	}
	ram := sys.RAM()
	if ram == nil {
		fmt.Fprintln(os.Stderr, "svarog-sim: configuration has no RAM region to load the image into")
		os.Exit(1)
	}
	ram.Load(image)

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.Default(int64(*maxCycles))
	}

	var retired uint64
	ran, _ := sys.Run(*maxCycles, func(evs []svarog.Events) bool {
		if bar != nil {
			bar.Add(1)
		}
		for hart, ev := range evs {
			if ev.Retired {
				retired++
				if *trace {
					fmt.Printf("hart%d pc=%#08x instr=%#08x\n", hart, ev.RetiredPC, ev.RetiredInstr)
				}
			}
			if ev.TrapTaken && *trace {
				fmt.Printf("hart%d trap cause=%d\n", hart, ev.TrapCause)
			}
		}
		return false
	})

	if bar != nil {
		bar.Finish()
	}

	fmt.Printf("ran %d cycles, retired %d instructions\n", ran, retired)
	for h := 0; h < sys.NumHarts(); h++ {
		mcycle, minstret := sys.Core(h).CSRFile().Snapshot()
		fmt.Printf("hart%d: pc=%#08x mcycle=%d minstret=%d\n", h, sys.Core(h).PC(), mcycle, minstret)
	}
}
