// Package gpu implements the GPU front-end (§4.6): the GP0 command
// FIFO and state machine, GP1 control commands, and display timing.
// Actual rasterization is delegated to a Renderer back-end.
package gpu

// Renderer is the VRAM black box (§4.6 "VRAM"): the GPU front-end
// decodes commands and hands fully-resolved primitives to it.
type Renderer interface {
	DrawTriangle(v [3]Vertex, shaded, textured, semiTransparent bool)
	DrawLine(a, b Vertex, semiTransparent bool)
	FillRect(x, y, w, h uint32, color uint32)
	CPUToVRAM(x, y, w, h uint32, pixels []uint16)
	VRAMToCPU(x, y, w, h uint32) []uint16
	VRAMToVRAM(srcX, srcY, dstX, dstY, w, h uint32)
	Sync()
	RequestUniformUpdate(texpage, drawArea DrawState)
}

// Vertex is a decoded primitive vertex: position, color, and (when
// textured) UV plus CLUT/texpage selectors.
type Vertex struct {
	X, Y       int32
	R, G, B    uint8
	U, V       uint8
}

// DrawState mirrors the scissor/offset/texpage/draw-area fields GP1's
// "get GPU info" latch reports back (§4.6 "GP1 commands").
type DrawState struct {
	TexPage             uint32
	TextureWindow       uint32
	DrawAreaTopLeft     uint32
	DrawAreaBottomRight uint32
	DrawOffset          uint32
	MaskSetting         uint32
}

// Scheduler is the subset of the global scheduler the GPU needs for
// HBlank/line-end timing.
type Scheduler interface {
	Now() uint64
	Schedule(delay uint64, cb func(cyclesLate uint64)) uint64
}

// TimerNotifier receives the GPU's HBlank/VBlank events so Timer
// 0/1's sync modes and clock sources can react (§4.9).
type TimerNotifier interface {
	NotifyHBlank()
	NotifyVBlank(active bool)
}

// InterruptRaiser queues the VBLANK interrupt.
type InterruptRaiser interface {
	RaiseVBlank()
}

// DMARequester lets the GPU nudge the DMA controller's GPU channel
// when DREQ rises (§4.6 "DREQ").
type DMARequester interface {
	KickChannel(ch int)
}

const (
	hblankCycles  = 1812
	lineEndCycles = 2560

	fifoDepth = 16
)

type pipelineState int

const (
	stateIdle pipelineState = iota
	stateAccumulating
	stateCPUToVRAM
	stateVRAMToCPU
)

// GPU holds the GP0 FIFO, pipeline state machine, display-control
// latches, and display timing.
type GPU struct {
	fifo     []uint32
	state    pipelineState
	pending  []uint32
	wantLen  int

	blitX, blitY, blitW, blitH uint32
	blitCursor                 uint32
	blitBuf                    []uint16

	gp1 gp1State

	draw DrawState

	scanline     uint32
	scanlinesPer uint32
	inVBlank     bool

	renderer Renderer
	sched    Scheduler
	timers   TimerNotifier
	irq      InterruptRaiser
	dma      DMARequester

	gpuread uint32
}

// gp1State is the display-control register set written via GP1.
type gp1State struct {
	displayEnabled bool
	dmaDirection   uint32
	displayStartX, displayStartY uint32
	hRangeStart, hRangeEnd       uint32
	vRangeStart, vRangeEnd       uint32
	hres, vres                   uint32
	interlace                    bool
	colorDepth24                 bool
}

// New creates a GPU wired to the given renderer and scheduler
// dependencies. scanlinesPer selects NTSC (263) vs PAL (314) frame
// length.
func New(r Renderer, sched Scheduler, timers TimerNotifier, irq InterruptRaiser, dma DMARequester, scanlinesPer uint32) *GPU {
	g := &GPU{renderer: r, sched: sched, timers: timers, irq: irq, dma: dma, scanlinesPer: scanlinesPer}
	g.scheduleHBlank()
	return g
}

// WriteGP0 implements the GP0 command port: it either starts
// accumulating a new command, streams payload words into the current
// one, or (during CPU->VRAM blit) streams pixel half-words.
func (g *GPU) WriteGP0(word uint32) {
	if g.state == stateCPUToVRAM {
		g.feedBlitWord(word)
		return
	}
	if g.state == stateAccumulating {
		if g.wantLen < 0 {
			if word == 0x55555555 {
				g.dispatchPolyline(g.pending)
				g.pending = nil
				g.state = stateIdle
				return
			}
			g.pending = append(g.pending, word)
			return
		}
		g.pending = append(g.pending, word)
		if len(g.pending) >= g.wantLen {
			words := g.pending
			g.pending = nil
			g.state = stateIdle
			// Dispatch may move the pipeline into a blit state.
			g.dispatchGP0(words)
		}
		return
	}
	g.beginGP0(word)
}

// beginGP0 decodes the first word of a new command and either
// executes it immediately (fixed, already-known length) or switches to
// accumulating mode.
func (g *GPU) beginGP0(word uint32) {
	op := uint8(word >> 24)
	if op&0xF8 == 0x48 || op&0xF8 == 0x58 {
		g.pending = []uint32{word}
		g.wantLen = -1
		g.state = stateAccumulating
		return
	}
	n := gp0WordCount(op)
	if n <= 1 {
		g.dispatchGP0([]uint32{word})
		return
	}
	g.pending = []uint32{word}
	g.wantLen = n
	g.state = stateAccumulating
}

// gp0WordCount returns the total word count (including the command
// word) for fixed-length GP0 commands, per §4.6's command families.
// Variable-length families (polylines, variable-size rectangles) are
// handled specially inside dispatchGP0/polyline streaming.
func gp0WordCount(op uint8) int {
	switch op {
	case 0x00, 0x01, 0x02:
		return 3 // NOP, clear cache, quick-fill rect (color+xy+wh)
	case 0x20, 0x22:
		return 4 // flat triangle (mono/semitrans)
	case 0x24, 0x26:
		return 7 // flat textured triangle
	case 0x28, 0x2A:
		return 5 // flat quad
	case 0x2C, 0x2E:
		return 9 // flat textured quad
	case 0x30, 0x32:
		return 6 // gouraud triangle
	case 0x34, 0x36:
		return 9 // gouraud textured triangle
	case 0x38, 0x3A:
		return 8 // gouraud quad
	case 0x3C, 0x3E:
		return 12 // gouraud textured quad
	case 0x40, 0x42:
		return 3 // flat line
	case 0x48, 0x4A:
		return 0 // polyline, variable, terminated by 0x55555555
	case 0x50, 0x52:
		return 4 // gouraud line
	case 0x58, 0x5A:
		return 0 // gouraud polyline
	case 0x60, 0x62:
		return 3 // flat rect variable
	case 0x64, 0x66:
		return 4 // flat textured rect variable
	case 0x68, 0x6A:
		return 2 // 1x1 rect
	case 0x6C, 0x6E:
		return 3 // 1x1 textured rect
	case 0x70, 0x72:
		return 2 // 8x8 rect
	case 0x74, 0x76:
		return 3
	case 0x78, 0x7A:
		return 2 // 16x16 rect
	case 0x7C, 0x7E:
		return 3
	case 0x80:
		return 4 // VRAM-VRAM blit
	case 0xA0:
		return 3 // CPU-VRAM blit header (dest xy, then wh, then pixel stream)
	case 0xC0:
		return 3 // VRAM-CPU blit header
	case 0xE1, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6:
		return 1 // ENV settings, single word
	default:
		return 1
	}
}

func (g *GPU) dispatchGP0(words []uint32) {
	op := uint8(words[0] >> 24)
	switch {
	case op == 0x00:
		// NOP.
	case op == 0x01:
		// Clear texture cache: no cache modeled, so a no-op.
	case op == 0x02:
		g.quickFillRect(words)
	case op >= 0x20 && op <= 0x3F:
		g.polygon(op, words)
	case op >= 0x40 && op <= 0x4F:
		g.drawLineFixed(words, false, op&0x02 != 0)
	case op >= 0x50 && op <= 0x5F:
		g.drawLineFixed(words, true, op&0x02 != 0)
	case op >= 0x60 && op <= 0x7F:
		g.rectangle(op, words)
	case op == 0x80:
		g.vramToVRAM(words)
	case op == 0xA0:
		g.beginCPUToVRAM(words)
	case op == 0xC0:
		g.beginVRAMToCPU(words)
	case op >= 0xE1 && op <= 0xE6:
		g.envCommand(op, words[0])
	}
}

func (g *GPU) quickFillRect(words []uint32) {
	color := words[0] & 0xFFFFFF
	x := words[1] & 0xFFFF
	y := words[1] >> 16
	w := words[2] & 0xFFFF
	h := words[2] >> 16
	g.renderer.FillRect(x, y, w, h, color)
}

// polygon decodes one of the 32 POLYGON variants (§4.6): vertex count
// 3 or 4 from bit 27, textured from bit 26, gouraud from bit 28,
// semi-transparent from bit 25.
func (g *GPU) polygon(op uint8, words []uint32) {
	quad := op&0x08 != 0
	gouraud := op&0x10 != 0
	textured := op&0x04 != 0
	semiTrans := op&0x02 != 0

	n := 3
	if quad {
		n = 4
	}
	verts := make([]Vertex, 0, n)
	idx := 1
	color := words[0] & 0xFFFFFF
	for i := 0; i < n; i++ {
		v := Vertex{R: uint8(color), G: uint8(color >> 8), B: uint8(color >> 16)}
		if gouraud && i > 0 {
			color = words[idx] & 0xFFFFFF
			idx++
			v.R, v.G, v.B = uint8(color), uint8(color>>8), uint8(color>>16)
		}
		xy := words[idx]
		idx++
		v.X = int32(int16(xy & 0xFFFF))
		v.Y = int32(int16(xy >> 16))
		if textured {
			uv := words[idx]
			idx++
			v.U = uint8(uv)
			v.V = uint8(uv >> 8)
		}
		verts = append(verts, v)
	}
	tri := [3]Vertex{verts[0], verts[1], verts[2]}
	g.renderer.DrawTriangle(tri, gouraud, textured, semiTrans)
	if quad {
		tri2 := [3]Vertex{verts[1], verts[2], verts[3]}
		g.renderer.DrawTriangle(tri2, gouraud, textured, semiTrans)
	}
}

// dispatchPolyline draws each consecutive vertex pair of a
// terminated polyline as one line segment (§4.6 LINE family).
func (g *GPU) dispatchPolyline(words []uint32) {
	op := uint8(words[0] >> 24)
	gouraud := op&0x10 != 0
	semiTrans := op&0x02 != 0

	type vtx struct {
		x, y    int32
		r, g, b uint8
	}
	var verts []vtx
	color := words[0] & 0xFFFFFF
	idx := 1
	for idx < len(words) {
		v := vtx{r: uint8(color), g: uint8(color >> 8), b: uint8(color >> 16)}
		xy := words[idx]
		idx++
		v.x, v.y = int32(int16(xy&0xFFFF)), int32(int16(xy>>16))
		verts = append(verts, v)
		if gouraud && idx < len(words) {
			color = words[idx] & 0xFFFFFF
			idx++
		}
	}
	for i := 0; i+1 < len(verts); i++ {
		a := Vertex{X: verts[i].x, Y: verts[i].y, R: verts[i].r, G: verts[i].g, B: verts[i].b}
		b := Vertex{X: verts[i+1].x, Y: verts[i+1].y, R: verts[i+1].r, G: verts[i+1].g, B: verts[i+1].b}
		g.renderer.DrawLine(a, b, semiTrans)
	}
}

func (g *GPU) drawLineFixed(words []uint32, gouraud bool, semiTrans bool) {
	color := words[0] & 0xFFFFFF
	a := Vertex{R: uint8(color), G: uint8(color >> 8), B: uint8(color >> 16)}
	xy := words[1]
	a.X, a.Y = int32(int16(xy&0xFFFF)), int32(int16(xy>>16))
	idx := 2
	b := a
	if gouraud {
		color = words[2] & 0xFFFFFF
		b.R, b.G, b.B = uint8(color), uint8(color>>8), uint8(color>>16)
		idx = 3
	}
	xy = words[idx]
	b.X, b.Y = int32(int16(xy&0xFFFF)), int32(int16(xy>>16))
	g.renderer.DrawLine(a, b, semiTrans)
}

// rectangle decodes the RECTANGLE family: 1x1/8x8/16x16/variable size,
// textured or flat (§4.6).
func (g *GPU) rectangle(op uint8, words []uint32) {
	textured := op&0x04 != 0
	semiTrans := op&0x02 != 0
	size := (op >> 3) & 0x3 // 0=variable, 1=1x1, 2=8x8, 3=16x16

	color := words[0] & 0xFFFFFF
	xy := words[1]
	x := int32(int16(xy & 0xFFFF))
	y := int32(int16(xy >> 16))

	idx := 2
	var u, v uint8
	if textured {
		uv := words[idx]
		idx++
		u, v = uint8(uv), uint8(uv>>8)
	}
	var w, h uint32
	switch size {
	case 1:
		w, h = 1, 1
	case 2:
		w, h = 8, 8
	case 3:
		w, h = 16, 16
	default:
		wh := words[idx]
		w, h = wh&0xFFFF, wh>>16
	}
	r, gr, b := uint8(color), uint8(color>>8), uint8(color>>16)
	topLeft := Vertex{X: x, Y: y, R: r, G: gr, B: b, U: u, V: v}
	topRight := Vertex{X: x + int32(w), Y: y, R: r, G: gr, B: b, U: u + uint8(w), V: v}
	botLeft := Vertex{X: x, Y: y + int32(h), R: r, G: gr, B: b, U: u, V: v + uint8(h)}
	botRight := Vertex{X: x + int32(w), Y: y + int32(h), R: r, G: gr, B: b, U: u + uint8(w), V: v + uint8(h)}
	g.renderer.DrawTriangle([3]Vertex{topLeft, topRight, botLeft}, false, textured, semiTrans)
	g.renderer.DrawTriangle([3]Vertex{topRight, botRight, botLeft}, false, textured, semiTrans)
}

func (g *GPU) vramToVRAM(words []uint32) {
	src := words[1]
	dst := words[2]
	wh := words[3]
	g.renderer.VRAMToVRAM(src&0xFFFF, src>>16, dst&0xFFFF, dst>>16, wh&0xFFFF, wh>>16)
}

func (g *GPU) beginCPUToVRAM(words []uint32) {
	xy := words[1]
	wh := words[2]
	g.blitX, g.blitY = xy&0xFFFF, xy>>16
	g.blitW, g.blitH = wh&0xFFFF, wh>>16
	if g.blitW == 0 {
		g.blitW = 1024
	}
	if g.blitH == 0 {
		g.blitH = 512
	}
	g.blitBuf = make([]uint16, 0, g.blitW*g.blitH)
	g.blitCursor = 0
	g.state = stateCPUToVRAM
}

func (g *GPU) feedBlitWord(word uint32) {
	g.blitBuf = append(g.blitBuf, uint16(word), uint16(word>>16))
	if uint32(len(g.blitBuf)) >= g.blitW*g.blitH {
		g.renderer.CPUToVRAM(g.blitX, g.blitY, g.blitW, g.blitH, g.blitBuf[:g.blitW*g.blitH])
		g.blitBuf = nil
		g.state = stateIdle
	}
}

func (g *GPU) beginVRAMToCPU(words []uint32) {
	xy := words[1]
	wh := words[2]
	x, y := xy&0xFFFF, xy>>16
	w, h := wh&0xFFFF, wh>>16
	g.renderer.Sync()
	g.blitBuf = g.renderer.VRAMToCPU(x, y, w, h)
	g.blitCursor = 0
	g.state = stateVRAMToCPU
}

// envCommand handles texpage/texture-window/draw-area/offset/mask
// ENV commands (§4.6).
func (g *GPU) envCommand(op uint8, word uint32) {
	switch op {
	case 0xE1:
		g.draw.TexPage = word & 0x3FFFFF
	case 0xE2:
		g.draw.TextureWindow = word & 0xFFFFF
	case 0xE3:
		g.draw.DrawAreaTopLeft = word & 0xFFFFF
	case 0xE4:
		g.draw.DrawAreaBottomRight = word & 0xFFFFF
	case 0xE5:
		g.draw.DrawOffset = word & 0x3FFFFF
	case 0xE6:
		g.draw.MaskSetting = word & 0x3
	}
	g.renderer.RequestUniformUpdate(g.draw, g.draw)
}

// ReadGP0 services GPUREAD during a VRAM->CPU blit, returning one
// packed pixel pair per read, per §4.6's pipeline description.
func (g *GPU) ReadGP0() uint32 {
	if g.state != stateVRAMToCPU || len(g.blitBuf) == 0 {
		return g.gpuread
	}
	var lo, hi uint16
	if int(g.blitCursor) < len(g.blitBuf) {
		lo = g.blitBuf[g.blitCursor]
	}
	if int(g.blitCursor)+1 < len(g.blitBuf) {
		hi = g.blitBuf[g.blitCursor+1]
	}
	g.blitCursor += 2
	if int(g.blitCursor) >= len(g.blitBuf) {
		g.state = stateIdle
		g.blitBuf = nil
	}
	g.gpuread = uint32(lo) | uint32(hi)<<16
	return g.gpuread
}

// WriteGP1 implements GP1 display-control commands (§4.6).
func (g *GPU) WriteGP1(word uint32) {
	op := word >> 24
	switch op {
	case 0x00:
		g.gp1 = gp1State{}
		g.state = stateIdle
	case 0x01:
		g.fifo = nil
		g.state = stateIdle
	case 0x03:
		g.gp1.displayEnabled = word&1 == 0
	case 0x04:
		g.gp1.dmaDirection = word & 0x3
	case 0x05:
		g.gp1.displayStartX = word & 0x3FF
		g.gp1.displayStartY = (word >> 10) & 0x1FF
	case 0x06:
		g.gp1.hRangeStart = word & 0xFFF
		g.gp1.hRangeEnd = (word >> 12) & 0xFFF
	case 0x07:
		g.gp1.vRangeStart = word & 0x3FF
		g.gp1.vRangeEnd = (word >> 10) & 0x3FF
	case 0x08:
		g.gp1.hres = word & 0x3
		g.gp1.vres = (word >> 2) & 1
		g.gp1.interlace = word&0x20 != 0
		g.gp1.colorDepth24 = word&0x10 != 0
	case 0x10:
		g.gpuread = g.gp1InfoReply(word & 0x7)
	}
}

func (g *GPU) gp1InfoReply(sub uint32) uint32 {
	switch sub {
	case 2:
		return g.draw.TextureWindow
	case 3:
		return g.draw.DrawAreaTopLeft
	case 4:
		return g.draw.DrawAreaBottomRight
	case 5:
		return g.draw.DrawOffset
	case 7:
		return 2
	default:
		return 0
	}
}

// StatusRegister packs GPUSTAT (§4.6), including the DREQ bit whose
// readiness depends on the current DMA direction.
func (g *GPU) StatusRegister() uint32 {
	var s uint32
	s |= g.draw.TexPage & 0x1FF
	if g.gp1.dmaDirection != 0 {
		s |= 1 << 25 // DREQ (simplified: always ready once a direction is selected)
	}
	s |= g.gp1.dmaDirection << 29
	if !g.gp1.displayEnabled {
		s |= 1 << 23
	}
	if g.state == stateIdle {
		s |= 1 << 26 // ready to receive command
		s |= 1 << 28 // ready to receive DMA block
	}
	s |= 1 << 27 // ready to send VRAM to CPU, always true in this model
	return s
}

// standardHRes maps the 2-bit horizontal-resolution field (plus the
// separate 368-wide flag folded into bit 0 of hres on real hardware
// via GP1(0x08) bit 6) to a dot count; this model keeps the common
// four widths selected by gp1.hres.
var standardHRes = [4]uint32{256, 320, 512, 640}

// DisplayRegion reports the visible framebuffer rectangle in VRAM
// coordinates, the granularity a front-end needs to blit one frame
// (§4.6 "Timing"/"VRAM").
func (g *GPU) DisplayRegion() (x, y, w, h uint32) {
	w = standardHRes[g.gp1.hres&0x3]
	h = uint32(240)
	if g.gp1.vres == 1 && g.gp1.interlace {
		h = 480
	}
	return g.gp1.displayStartX, g.gp1.displayStartY, w, h
}

func (g *GPU) scheduleHBlank() {
	g.sched.Schedule(hblankCycles, func(late uint64) {
		g.timers.NotifyHBlank()
		g.scheduleLineEnd()
	})
}

func (g *GPU) scheduleLineEnd() {
	g.sched.Schedule(lineEndCycles-hblankCycles, func(late uint64) {
		g.onLineEnd()
		g.scheduleHBlank()
	})
}

// onLineEnd advances the scanline counter and fires VBLANK on the
// visible-to-blank transition, per §4.6 "Timing".
func (g *GPU) onLineEnd() {
	g.scanline++
	if g.scanline >= g.scanlinesPer {
		g.scanline = 0
	}
	visibleLines := g.scanlinesPer - 20
	wasVBlank := g.inVBlank
	g.inVBlank = g.scanline >= visibleLines
	if g.inVBlank != wasVBlank {
		g.timers.NotifyVBlank(g.inVBlank)
		if g.inVBlank {
			g.irq.RaiseVBlank()
		}
	}
}

// DMARead/DMAWrite implement dma.Port for the GPU channel: writes feed
// GP0, reads drain GPUREAD.
func (g *GPU) DMARead() uint32  { return g.ReadGP0() }
func (g *GPU) DMAWrite(v uint32) { g.WriteGP0(v) }

// ReadRegister/WriteRegister implement bus.RegisterDevice at offsets
// 0 (GPUREAD/GP0) and 4 (GPUSTAT/GP1).
func (g *GPU) ReadRegister(offset uint32, width int) uint32 {
	switch offset {
	case 0:
		return g.ReadGP0()
	case 4:
		return g.StatusRegister()
	}
	return 0
}

func (g *GPU) WriteRegister(offset uint32, width int, value uint32) {
	switch offset {
	case 0:
		g.WriteGP0(value)
	case 4:
		g.WriteGP1(value)
	}
}
