// Package machine wires every component package into one runnable
// system and drives the outer step loop described in §2: advance the
// CPU one instruction (or let an active DMA transfer burn a bus
// cycle instead), charge the scheduler the cycles that cost, and stop
// on a breakpoint, an explicit halt, or after a requested number of
// frames.
package machine

import (
	"fmt"
	"os"

	"ps1core/internal/addrspace"
	"ps1core/internal/bus"
	"ps1core/internal/cdrom"
	"ps1core/internal/cdrom/iso9660"
	"ps1core/internal/config"
	"ps1core/internal/cpu"
	"ps1core/internal/dma"
	"ps1core/internal/gpu"
	"ps1core/internal/gpu/render/swrender"
	"ps1core/internal/gte"
	"ps1core/internal/hle"
	"ps1core/internal/kernel"
	"ps1core/internal/loader"
	"ps1core/internal/logger"
	"ps1core/internal/mdec"
	"ps1core/internal/memcard"
	"ps1core/internal/scheduler"
	"ps1core/internal/sio"
	"ps1core/internal/spu"
	"ps1core/internal/timers"
)

// System owns every emulated component and the scheduler driving them.
type System struct {
	Config *config.Config
	Log    *logger.Logger

	Mem   *addrspace.GuestMemory
	Bus   *bus.Bus
	CPU   *cpu.CPU
	GTE   *gte.GTE
	IRQ   *bus.Interrupts
	Sched *scheduler.Scheduler

	DMA     *dma.Controller
	GPU     *gpu.GPU
	Render  *swrender.Renderer
	CDROM   *cdrom.Drive
	Disc    cdrom.Disc
	Timers  *timers.Controller
	SIO     *sio.Controller
	SPU     *spu.SPU
	MDEC    *mdec.MDEC
	Pad     *sio.DigitalController
	Cards   [2]*memcard.Card

	HLE    *hle.Handler
	Kernel *kernel.Inspector

	vblanks *uint64
}

// schedAdapter exposes *scheduler.Scheduler through the narrower
// Scheduler interfaces each peripheral package declares, translating
// scheduler.EventID to the plain uint64 those interfaces use.
type schedAdapter struct{ s *scheduler.Scheduler }

func (a schedAdapter) Now() uint64 { return a.s.Now() }
func (a schedAdapter) Schedule(delay uint64, cb func(uint64)) uint64 {
	return uint64(a.s.Schedule(delay, cb))
}
func (a schedAdapter) Deschedule(id uint64) { a.s.Deschedule(scheduler.EventID(id)) }

// irqAdapter implements every peripheral-specific InterruptRaiser
// interface by forwarding to the shared interrupt controller's
// generic Raise(source), avoiding a back-pointer on each peripheral
// (the pattern already used across bus/cpu/dma/gpu).
type irqAdapter struct {
	ic     *bus.Interrupts
	source int
}

func (a irqAdapter) Raise()           { a.ic.Raise(a.source) }
func (a irqAdapter) RaiseVBlank()     { a.ic.Raise(bus.IRQVBlank) }
func (a irqAdapter) RaiseCDROM()      { a.ic.Raise(bus.IRQCDROM) }
func (a irqAdapter) RaiseDMA()        { a.ic.Raise(bus.IRQDMA) }
func (a irqAdapter) RaiseSIO()        { a.ic.Raise(bus.IRQSIO) }
func (a irqAdapter) RaiseSPU()        { a.ic.Raise(bus.IRQSPU) }
func (a irqAdapter) RaiseTimer(i int) { a.ic.Raise(bus.IRQTimer0 + i) }

// vblankAdapter raises the VBlank interrupt and counts the edge so
// System.RunFrame knows when a frame boundary has passed.
type vblankAdapter struct {
	ic      *bus.Interrupts
	counter *uint64
}

func (a vblankAdapter) RaiseVBlank() {
	a.ic.Raise(bus.IRQVBlank)
	*a.counter++
}

// dmaMemAdapter implements dma.Memory over the guest bus so DMA
// transfers go through the same RAM the CPU sees.
type dmaMemAdapter struct{ b *bus.Bus }

func (a dmaMemAdapter) DMARead32(addr uint32) uint32 {
	v, _ := a.b.Read32(addr, false)
	return v
}
func (a dmaMemAdapter) DMAWrite32(addr uint32, v uint32) { a.b.Write32(addr, v, false) }

// dmaRequesterAdapter lets the GPU kick its DMA channel (2) when its
// FIFO state changes, per §4.6 "DMA request lines".
type dmaRequesterAdapter struct{ d *dma.Controller }

func (a dmaRequesterAdapter) KickChannel(ch int) { a.d.Step() }

// loaderMemAdapter implements loader.Memory over the bus, issuing
// plain byte stores the way the BIOS's own Load() writes through the
// flat guest pointer rather than the CPU's checked load/store path.
type loaderMemAdapter struct{ b *bus.Bus }

func (a loaderMemAdapter) CopyIn(dest uint32, data []byte) {
	for i, v := range data {
		a.b.Write8(dest+uint32(i), uint32(v), false)
	}
}
func (a loaderMemAdapter) Zero(addr uint32, size uint32) {
	for i := uint32(0); i < size; i++ {
		a.b.Write8(addr+i, 0, false)
	}
}

// loaderCPUAdapter implements loader.CPU over the real CPU's exported
// register file.
type loaderCPUAdapter struct{ c *cpu.CPU }

func (a loaderCPUAdapter) SetPC(pc uint32)          { a.c.PC = pc }
func (a loaderCPUAdapter) SetGPR(reg int, v uint32) { a.c.Regs[reg] = v }

// hleMemAdapter implements hle.Memory for CHAR_PTR argument tracing.
type hleMemAdapter struct{ b *bus.Bus }

func (a hleMemAdapter) ReadByte(addr uint32) byte {
	v, _ := a.b.Read8(addr, false)
	return byte(v)
}

// New builds a fully wired System from cfg: guest memory, the bus,
// every peripheral, and the BIOS HLE hook, ready for Reset/Step/Run.
func New(cfg *config.Config, log *logger.Logger) (*System, error) {
	ramSize := uint32(2 * 1024 * 1024)
	if cfg.RAMSizeBytes != 0 {
		ramSize = uint32(cfg.RAMSizeBytes)
	}
	mem, err := addrspace.NewGuestMemory(ramSize)
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}

	if cfg.BIOSPath != "" {
		data, err := os.ReadFile(cfg.BIOSPath)
		if err != nil {
			return nil, fmt.Errorf("machine: loading BIOS: %w", err)
		}
		if err := mem.LoadBIOS(data); err != nil {
			return nil, fmt.Errorf("machine: installing BIOS: %w", err)
		}
	}

	b := bus.New(mem, log)
	irq := bus.NewInterrupts()
	sched := scheduler.New()
	sa := schedAdapter{sched}

	c := cpu.New(b)
	c.SetClock(sched.Now)
	g := gte.New()
	g.SetClock(sched.Now)
	c.GTE = g

	dmaCtl := dma.New(dmaMemAdapter{b}, irqAdapter{irq, bus.IRQDMA})

	render := swrender.New()
	timersCtl := timers.New(sa, irqAdapter{irq, 0})
	vblanks := new(uint64)
	gpuDev := gpu.New(render, sa, timersCtl, vblankAdapter{irq, vblanks}, dmaRequesterAdapter{dmaCtl}, 263)

	var disc cdrom.Disc
	if cfg.Disc != nil && cfg.Disc.CuePath != "" {
		img, err := iso9660.OpenCue(cfg.Disc.CuePath)
		if err != nil {
			return nil, fmt.Errorf("machine: loading disc: %w", err)
		}
		disc = img
	} else if cfg.Disc != nil && cfg.Disc.BinPath != "" {
		img, err := iso9660.Open(cfg.Disc.BinPath)
		if err != nil {
			return nil, fmt.Errorf("machine: loading disc: %w", err)
		}
		disc = img
	}
	cdromDev := cdrom.New(sa, irqAdapter{irq, bus.IRQCDROM}, disc)

	pad := &sio.DigitalController{}
	var cards [2]*memcard.Card
	for i := range cards {
		cards[i] = memcard.New()
	}
	sioCtl := sio.New(sa, irqAdapter{irq, bus.IRQSIO}, pad, cards[0])

	spuDev := spu.New(irqAdapter{irq, bus.IRQSPU})
	mdecDev := mdec.New()

	b.RegisterIO(0x1070, 0x1077, irq)
	b.RegisterIO(0x1080, 0x10FF, dmaCtl)
	b.RegisterIO(0x1810, 0x1817, gpuDev)
	b.RegisterIO(0x1820, 0x1827, mdecDev)
	b.RegisterIO(0x1040, 0x104F, sioCtl)
	b.RegisterIO(0x1100, 0x112F, timersCtl)
	b.RegisterIO(0x1800, 0x1803, cdromDev)
	b.RegisterIO(0x1C00, 0x1DFF, spuDev)

	dmaCtl.AttachPort(dma.ChanGPU, gpuDev)
	dmaCtl.AttachPort(dma.ChanCDROM, cdromDev)
	dmaCtl.AttachPort(dma.ChanSPU, spuDev)
	dmaCtl.AttachPort(dma.ChanMDECIn, mdecDev)
	dmaCtl.AttachPort(dma.ChanMDECOut, mdecDev)

	hleMem := hleMemAdapter{b}
	hleHandler := hle.New(hleMem, log)
	c.HLE = hleHandler

	sys := &System{
		Config: cfg,
		Log:    log,
		Mem:    mem,
		Bus:    b,
		CPU:    c,
		GTE:    g,
		IRQ:    irq,
		Sched:  sched,
		DMA:    dmaCtl,
		GPU:    gpuDev,
		Render: render,
		CDROM:  cdromDev,
		Disc:   disc,
		Timers: timersCtl,
		SIO:    sioCtl,
		SPU:    spuDev,
		MDEC:   mdecDev,
		Pad:    pad,
		Cards:  cards,
		HLE:    hleHandler,
		Kernel: kernel.New(mem.BIOSBytes(), mem.RAMBytes()),
		vblanks: vblanks,
	}
	return sys, nil
}

// LoadEXE loads a PS-EXE file straight into guest memory, bypassing
// the BIOS's own disc-boot path, matching a debug/fast-boot entry
// point (§6 "Loader").
func (s *System) LoadEXE(raw []byte) error {
	_, err := loader.Load(raw, loaderMemAdapter{s.Bus}, loaderCPUAdapter{s.CPU})
	return err
}

// Step advances the system by one unit of work: either one word of an
// active DMA transfer, or one CPU instruction, charging the scheduler
// whatever cycles that cost (§2 "Outer step loop").
func (s *System) Step() {
	if s.DMA.Step() {
		s.Sched.Advance(1)
		return
	}
	s.CPU.Step(s.IRQ.Pending())
	s.Sched.Advance(uint64(s.CPU.Cycles()))
}

// RunFrame steps the system until one VBlank has been observed,
// matching a front-end's "render one frame" granularity.
func (s *System) RunFrame() {
	target := *s.vblanks + 1
	for *s.vblanks < target && !s.CPU.Stopped {
		s.Step()
	}
}
