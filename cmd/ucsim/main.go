// Package main provides the entry point for ucsim, a cycle-level
// simulator of a microcoded compressed-instruction RV32 core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/sarchlab/ucsim/emu"
	"github.com/sarchlab/ucsim/loader"
	"github.com/sarchlab/ucsim/timing/cache"
	"github.com/sarchlab/ucsim/timing/core"
	"github.com/sarchlab/ucsim/timing/latency"
)

var (
	configPath  = flag.String("config", "", "Path to core configuration JSON file")
	latencyPath = flag.String("latency", "", "Path to emulation cost model JSON file")
	base        = flag.Uint("base", 0, "Load address for flat binary images")
	entry       = flag.Int64("entry", -1, "Entry byte address (default: image entry)")
	icache      = flag.Bool("icache", false, "Enable the instruction fetch cache")
	maxCycles   = flag.Uint64("max-cycles", 100_000_000, "Cycle budget before giving up (0 = unbounded)")
	progress    = flag.Bool("progress", false, "Show a progress bar against the cycle budget")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: ucsim [options] <program.bin|program.hex>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(imagePath string) int {
	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = core.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading core config: %v\n", err)
			return 1
		}
	}

	latencyCfg := latency.DefaultConfig()
	if *latencyPath != "" {
		var err error
		latencyCfg, err = latency.LoadConfig(*latencyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading cost model: %v\n", err)
			return 1
		}
	}

	img, err := loader.Load(imagePath, uint32(*base))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		return 1
	}

	reservedSize := uint32(1)<<(cfg.AddrBits+1) - cfg.MicrocodeBase
	if err := img.CheckReserved(cfg.MicrocodeBase, reservedSize); err != nil {
		fmt.Fprintf(os.Stderr, "Error placing program: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", imagePath)
		fmt.Printf("Entry point: 0x%X\n", img.Entry)
		fmt.Printf("Segments: %d\n", len(img.Segments))
	}

	mem := emu.NewMemory()
	img.CopyTo(mem)

	opts := []core.Option{
		core.WithMemory(mem),
		core.WithLatencyConfig(latencyCfg),
	}
	var fetchCache *cache.FetchCache
	if *icache {
		fetchCache = cache.NewFetchCache(cache.DefaultConfig(), mem)
		opts = append(opts, core.WithInstPort(fetchCache))
	}

	c, err := core.NewCore(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building core: %v\n", err)
		return 1
	}

	entryAddr := img.Entry
	if *entry >= 0 {
		entryAddr = uint32(*entry)
	}
	if err := c.SetPC(entryAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting entry point: %v\n", err)
		return 1
	}

	if err := runCore(c); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return 1
	}

	report(c, fetchCache, imagePath)
	return int(c.ExitCode())
}

func runCore(c *core.Core) error {
	if !*progress || *maxCycles == 0 {
		_, err := c.Run(*maxCycles)
		return err
	}

	bar := progressbar.Default(int64(*maxCycles), "cycles")
	const chunk = 4096
	for !c.Halted() {
		stats := c.RunCycles(chunk)
		_ = bar.Set64(int64(stats.Cycles))
		if stats.Cycles >= *maxCycles && !c.Halted() {
			_ = bar.Finish()
			return fmt.Errorf("core did not halt within %d cycles", *maxCycles)
		}
	}
	_ = bar.Finish()
	return nil
}

func report(c *core.Core, fetchCache *cache.FetchCache, imagePath string) {
	stats := c.Stats()

	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", imagePath)
	fmt.Printf("Exit code: %d\n", c.ExitCode())
	fmt.Printf("Total Instructions: %d\n", stats.Instructions)
	fmt.Printf("Total Cycles: %d\n", stats.Cycles)
	fmt.Printf("CPI: %.2f\n", stats.CPI())

	if !*verbose {
		return
	}

	total := stats.Cycles
	if total == 0 {
		total = 1
	}
	fmt.Printf("\n")
	fmt.Printf("Breakdown:\n")
	fmt.Printf("  Emulation path:  %6d cycles (%5.1f%%)\n",
		stats.MicrocodeCycles, 100.0*float64(stats.MicrocodeCycles)/float64(total))
	fmt.Printf("  Stalls:          %6d cycles (%5.1f%%)\n",
		stats.Stalls, 100.0*float64(stats.Stalls)/float64(total))
	fmt.Printf("  Bubbles:         %6d cycles (%5.1f%%)\n",
		stats.Bubbles, 100.0*float64(stats.Bubbles)/float64(total))
	fmt.Printf("\n")
	fmt.Printf("Pipeline Events:\n")
	fmt.Printf("  Traps:   %d\n", stats.Traps)
	fmt.Printf("  Flushes: %d\n", stats.Flushes)

	if fetchCache != nil {
		cs := fetchCache.Stats()
		fmt.Printf("\n")
		fmt.Printf("Fetch Cache:\n")
		fmt.Printf("  Fetches:  %d\n", cs.Fetches)
		fmt.Printf("  Hits:     %d (%.1f%%)\n", cs.Hits, 100.0*cs.HitRate())
		fmt.Printf("  Misses:   %d\n", cs.Misses)
	}
}
