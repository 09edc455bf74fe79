package gpu

import "testing"

type fakeScheduler struct{}

func (f *fakeScheduler) Now() uint64 { return 0 }
func (f *fakeScheduler) Schedule(delay uint64, cb func(uint64)) uint64 { return 1 }

type fakeTimers struct {
	hblanks int
	vblank  bool
}

func (f *fakeTimers) NotifyHBlank()          { f.hblanks++ }
func (f *fakeTimers) NotifyVBlank(a bool) { f.vblank = a }

type fakeIRQ struct{ vblankRaised int }

func (f *fakeIRQ) RaiseVBlank() { f.vblankRaised++ }

type fakeDMA struct{}

func (f *fakeDMA) KickChannel(ch int) {}

// fakeRenderer records every call the GP0 dispatcher makes to it, so
// tests can assert decoding without a real rasterizer.
type fakeRenderer struct {
	fillRects []struct{ x, y, w, h, color uint32 }
	triangles []struct {
		v                               [3]Vertex
		shaded, textured, semiTrans     bool
	}
	cpuToVRAM struct {
		x, y, w, h uint32
		pixels     []uint16
	}
	vramToCPUCalled bool
	uniformUpdates  int
}

func (f *fakeRenderer) DrawTriangle(v [3]Vertex, shaded, textured, semiTransparent bool) {
	f.triangles = append(f.triangles, struct {
		v                           [3]Vertex
		shaded, textured, semiTrans bool
	}{v, shaded, textured, semiTransparent})
}
func (f *fakeRenderer) DrawLine(a, b Vertex, semiTransparent bool) {}
func (f *fakeRenderer) FillRect(x, y, w, h uint32, color uint32) {
	f.fillRects = append(f.fillRects, struct{ x, y, w, h, color uint32 }{x, y, w, h, color})
}
func (f *fakeRenderer) CPUToVRAM(x, y, w, h uint32, pixels []uint16) {
	f.cpuToVRAM.x, f.cpuToVRAM.y, f.cpuToVRAM.w, f.cpuToVRAM.h = x, y, w, h
	f.cpuToVRAM.pixels = pixels
}
func (f *fakeRenderer) VRAMToCPU(x, y, w, h uint32) []uint16 {
	f.vramToCPUCalled = true
	return []uint16{0x1111, 0x2222, 0x3333, 0x4444}
}
func (f *fakeRenderer) VRAMToVRAM(srcX, srcY, dstX, dstY, w, h uint32) {}
func (f *fakeRenderer) Sync()                                         {}
func (f *fakeRenderer) RequestUniformUpdate(texpage, drawArea DrawState) { f.uniformUpdates++ }

func newTestGPU() (*GPU, *fakeRenderer, *fakeTimers, *fakeIRQ) {
	r := &fakeRenderer{}
	timers := &fakeTimers{}
	irq := &fakeIRQ{}
	g := New(r, &fakeScheduler{}, timers, irq, &fakeDMA{}, 263)
	return g, r, timers, irq
}

// TestQuickFillRect checks the 3-word quick-fill command (§4.6).
func TestQuickFillRect(t *testing.T) {
	g, r, _, _ := newTestGPU()

	g.WriteGP0(0x02FF0000)          // color
	g.WriteGP0(10 | (20 << 16))     // x=10, y=20
	g.WriteGP0(30 | (40 << 16))     // w=30, h=40

	if len(r.fillRects) != 1 {
		t.Fatalf("expected one FillRect call, got %d", len(r.fillRects))
	}
	got := r.fillRects[0]
	if got.x != 10 || got.y != 20 || got.w != 30 || got.h != 40 {
		t.Fatalf("FillRect(%d,%d,%d,%d), want (10,20,30,40)", got.x, got.y, got.w, got.h)
	}
	if got.color != 0xFF0000 {
		t.Fatalf("FillRect color = %#x, want 0xFF0000", got.color)
	}
}

// TestFlatTriangle checks a 4-word flat (mono, opaque) triangle (op
// 0x20): one command word plus three vertex words.
func TestFlatTriangle(t *testing.T) {
	g, r, _, _ := newTestGPU()

	g.WriteGP0(0x20FF0000)
	g.WriteGP0(uint32(uint16(1)) | uint32(uint16(2))<<16)
	g.WriteGP0(uint32(uint16(3)) | uint32(uint16(4))<<16)
	g.WriteGP0(uint32(uint16(5)) | uint32(uint16(6))<<16)

	if len(r.triangles) != 1 {
		t.Fatalf("expected one DrawTriangle call, got %d", len(r.triangles))
	}
	tri := r.triangles[0]
	if tri.textured || tri.shaded {
		t.Fatalf("expected a flat, untextured triangle")
	}
	if tri.v[0].X != 1 || tri.v[0].Y != 2 || tri.v[2].X != 5 || tri.v[2].Y != 6 {
		t.Fatalf("unexpected vertex decode: %+v", tri.v)
	}
}

// TestCPUToVRAMBlit checks the image-load command (0xA0): a 3-word
// header followed by a pixel stream, handed to the renderer once full.
func TestCPUToVRAMBlit(t *testing.T) {
	g, r, _, _ := newTestGPU()

	g.WriteGP0(0xA0000000)
	g.WriteGP0(5 | (6 << 16))  // dest x=5, y=6
	g.WriteGP0(2 | (1 << 16))  // w=2, h=1 -> 2 pixels, one GP0 word

	g.WriteGP0(uint32(uint16(0xAAAA)) | uint32(uint16(0xBBBB))<<16)

	if r.cpuToVRAM.x != 5 || r.cpuToVRAM.y != 6 || r.cpuToVRAM.w != 2 || r.cpuToVRAM.h != 1 {
		t.Fatalf("CPUToVRAM rect = (%d,%d,%d,%d), want (5,6,2,1)", r.cpuToVRAM.x, r.cpuToVRAM.y, r.cpuToVRAM.w, r.cpuToVRAM.h)
	}
	if len(r.cpuToVRAM.pixels) != 2 || r.cpuToVRAM.pixels[0] != 0xAAAA || r.cpuToVRAM.pixels[1] != 0xBBBB {
		t.Fatalf("CPUToVRAM pixels = %#v, want [0xAAAA 0xBBBB]", r.cpuToVRAM.pixels)
	}
	if g.state != stateIdle {
		t.Fatalf("expected pipeline to return to idle once the blit completes")
	}
}

// TestVRAMToCPUBlitDrainsThroughGPUREAD checks the 0xC0 readback path:
// ReadGP0 packs two halfwords per 32-bit read until the buffer drains.
func TestVRAMToCPUBlitDrainsThroughGPUREAD(t *testing.T) {
	g, r, _, _ := newTestGPU()

	g.WriteGP0(0xC0000000)
	g.WriteGP0(0) // xy
	g.WriteGP0(2 | (2 << 16))

	if !r.vramToCPUCalled {
		t.Fatalf("expected VRAMToCPU to be called on the renderer")
	}

	first := g.ReadGP0()
	if first != 0x22221111 {
		t.Fatalf("first GPUREAD = %#x, want 0x22221111", first)
	}
	second := g.ReadGP0()
	if second != 0x44443333 {
		t.Fatalf("second GPUREAD = %#x, want 0x44443333", second)
	}
	if g.state != stateIdle {
		t.Fatalf("expected pipeline idle after draining the full buffer")
	}
}

// TestEnvCommandsUpdateDrawStateAndNotifyRenderer checks the ENV
// command family (§4.6): each one updates DrawState and pushes a
// uniform-update notification to the renderer.
func TestEnvCommandsUpdateDrawStateAndNotifyRenderer(t *testing.T) {
	g, r, _, _ := newTestGPU()

	g.WriteGP0(0xE1000123)
	g.WriteGP0(0xE3000456)

	if g.draw.TexPage != 0x123 {
		t.Fatalf("TexPage = %#x, want 0x123", g.draw.TexPage)
	}
	if g.draw.DrawAreaTopLeft != 0x456 {
		t.Fatalf("DrawAreaTopLeft = %#x, want 0x456", g.draw.DrawAreaTopLeft)
	}
	if r.uniformUpdates != 2 {
		t.Fatalf("expected 2 uniform-update notifications, got %d", r.uniformUpdates)
	}
}

// TestDisplayModeSelectsResolution checks GP1(0x08)'s hres/vres
// decode feeding DisplayRegion.
func TestDisplayModeSelectsResolution(t *testing.T) {
	g, _, _, _ := newTestGPU()

	g.WriteGP1(0x08000002) // hres field = 2 -> 512 wide
	_, _, w, h := g.DisplayRegion()
	if w != 512 {
		t.Fatalf("display width = %d, want 512", w)
	}
	if h != 240 {
		t.Fatalf("display height = %d, want 240 (non-interlaced)", h)
	}
}

// TestStatusRegisterReadyBitsWhenIdle checks GPUSTAT's ready-to-receive
// bits are set once the FIFO/pipeline is idle (§4.6).
func TestStatusRegisterReadyBitsWhenIdle(t *testing.T) {
	g, _, _, _ := newTestGPU()

	s := g.StatusRegister()
	if s&(1<<26) == 0 {
		t.Fatalf("expected ready-to-receive-command bit set while idle")
	}
	if s&(1<<28) == 0 {
		t.Fatalf("expected ready-to-receive-DMA-block bit set while idle")
	}
}

// TestOnLineEndRaisesVBlankOnTransition checks §4.6's timing model:
// crossing into the blanking region raises VBLANK exactly once, on
// the rising edge.
func TestOnLineEndRaisesVBlankOnTransition(t *testing.T) {
	g, _, timers, irq := newTestGPU()

	visibleLines := g.scanlinesPer - 20
	for i := uint32(0); i < visibleLines; i++ {
		g.onLineEnd()
	}
	if irq.vblankRaised != 1 {
		t.Fatalf("expected exactly one VBlank IRQ at the blanking transition, got %d", irq.vblankRaised)
	}
	if !timers.vblank {
		t.Fatalf("expected TimerNotifier to observe VBlank active")
	}

	g.onLineEnd()
	if irq.vblankRaised != 1 {
		t.Fatalf("expected no additional VBlank IRQ while still inside the blanking region, got %d", irq.vblankRaised)
	}
}
