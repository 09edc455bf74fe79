// Command ps1core loads a configuration document, a BIOS image, and
// optionally a disc or a PS-EXE, then runs the emulated machine
// against the windowed video/audio front-ends, matching the teacher's
// split between its simulation core and its thin cmd/ie32to64 entry
// point.
package main

import (
	"flag"
	"fmt"
	"os"

	"ps1core/internal/config"
	"ps1core/internal/cpu"
	"ps1core/internal/frontend/ebitenvideo"
	"ps1core/internal/frontend/otoaudio"
	"ps1core/internal/frontend/tty"
	"ps1core/internal/logger"
	"ps1core/internal/machine"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "path to the JSON configuration document")
	exePath := flag.String("exe", "", "optional PS-EXE to load instead of booting the BIOS's own disc path")
	headless := flag.Bool("headless", false, "run without opening a window (useful for CI/automation)")
	frames := flag.Int("frames", 0, "in -headless mode, stop after this many frames (0 = run until halted)")
	scale := flag.Int("scale", 2, "integer window scale factor")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ps1core -config config.json [options]\n\nRuns a PS1 software image.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *cfgPath == "" {
		flag.Usage()
		return 1
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	sys, err := machine.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *exePath != "" {
		data, err := os.ReadFile(*exePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading %s: %v\n", *exePath, err)
			return 1
		}
		if err := sys.LoadEXE(data); err != nil {
			fmt.Fprintf(os.Stderr, "error: loading %s: %v\n", *exePath, err)
			return 1
		}
	}

	wireTTY(sys)

	if *headless {
		return runHeadless(sys, *frames)
	}
	return runWindowed(sys, *scale)
}

// newLogger builds a Logger from the config's logger section,
// defaulting to a console sink at INFO when unset (§6 "Configuration
// object").
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level, _ := logger.ParseLevel(cfg.Logger.Level)
	opts := []logger.Option{
		logger.WithMinLevel(level),
		logger.WithCategories(cfg.Logger.Categories...),
		logger.WithSyscallLogging(cfg.Logger.SyscallLog),
	}
	if cfg.Logger.ToFile != "" {
		return logger.NewFile(cfg.Logger.ToFile, opts...)
	}
	return logger.NewConsole(opts...), nil
}

// wireTTY intercepts the A0/B0 putchar BIOS calls and routes the
// character to a raw-mode console instead of only tracing the call,
// the console-helper "external collaborator" named in §1. putchar is
// still let through to the real BIOS (handled=false): the console
// just observes the character being printed, matching the HLE
// package's "trace, don't replace" posture elsewhere.
func wireTTY(sys *machine.System) {
	console := tty.New(func() {
		sys.Log.Info("frontend", "disc-swap hotkey pressed (not yet wired to a disc tray)")
	})
	console.Start()

	echo := func(c *cpu.CPU) bool {
		console.WriteByte(byte(c.Regs[4]))
		return false
	}
	sys.HLE.Intercept(0xA3C, echo) // A(0x3C) putchar
	sys.HLE.Intercept(0xB3D, echo) // B(0x3D) putchar
}

func runHeadless(sys *machine.System, frames int) int {
	if frames <= 0 {
		for !sys.CPU.Stopped {
			sys.RunFrame()
		}
		return 0
	}
	for i := 0; i < frames && !sys.CPU.Stopped; i++ {
		sys.RunFrame()
	}
	return 0
}

func runWindowed(sys *machine.System, scale int) int {
	render := sys.Render
	gpu := sys.GPU

	video := ebitenvideo.New(displaySource{gpu: gpu, render: render}, sys.Pad, func() { sys.CPU.Stopped = true })
	video.SetStepFunc(sys.RunFrame)

	audio, err := otoaudio.New(44100)
	if err == nil {
		audio.Attach(sys.SPU)
		audio.Start()
		defer audio.Close()
	}

	if err := video.Run("ps1core", scale); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// displaySource adapts *gpu.GPU and the renderer back-end to the
// single Source interface ebitenvideo.Output needs each frame.
type displaySource struct {
	gpu interface {
		DisplayRegion() (x, y, w, h uint32)
	}
	render interface {
		SnapshotRGBA(x, y, w, h uint32) []byte
	}
}

func (d displaySource) DisplayRegion() (x, y, w, h uint32) { return d.gpu.DisplayRegion() }
func (d displaySource) SnapshotRGBA(x, y, w, h uint32) []byte {
	return d.render.SnapshotRGBA(x, y, w, h)
}
