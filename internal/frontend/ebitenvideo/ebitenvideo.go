// Package ebitenvideo presents the GPU's rasterized framebuffer in a
// window via ebiten and forwards keyboard state into the digital
// controller, the way a front-end plugs into the machine's display
// and input surfaces without the core depending on any windowing
// library.
package ebitenvideo

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"ps1core/internal/sio"
)

// Source is the subset of the GPU/renderer the front-end needs each
// frame: the visible region in VRAM coordinates and an RGBA snapshot
// of it.
type Source interface {
	DisplayRegion() (x, y, w, h uint32)
	SnapshotRGBA(x, y, w, h uint32) []byte
}

// Output is an ebiten.Game that blits the emulated framebuffer once
// per host frame and reads keyboard state into a DigitalController.
type Output struct {
	gpu  Source
	pad  *sio.DigitalController
	quit func()

	// step, when set via SetStepFunc, is invoked once per host Update
	// tick before input is sampled, letting main drive the machine's
	// RunFrame without this package depending on internal/machine.
	step func()

	mu     sync.RWMutex
	window *ebiten.Image

	clipboardOnce sync.Once
	clipboardOK   bool

	frameCount uint64
}

// New creates a window presenting gpu's framebuffer and routing
// keyboard input into pad. quit, if non-nil, is called when the
// window is closed.
func New(gpu Source, pad *sio.DigitalController, quit func()) *Output {
	return &Output{gpu: gpu, pad: pad, quit: quit}
}

// Run opens the window and blocks until it is closed, matching the
// teacher's pattern of handing the whole ebiten run loop a Game value.
func (o *Output) Run(title string, scale int) error {
	x, y, w, h := o.gpu.DisplayRegion()
	_ = x
	_ = y
	if scale < 1 {
		scale = 1
	}
	ebiten.SetWindowSize(int(w)*scale, int(h)*scale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	return ebiten.RunGame(o)
}

// SetStepFunc installs the callback Update invokes once per host
// tick, before input is sampled.
func (o *Output) SetStepFunc(step func()) { o.step = step }

// Update implements ebiten.Game: it advances the machine (if a step
// function is installed), samples keys into the pad's button mask,
// and detects window close.
func (o *Output) Update() error {
	if ebiten.IsWindowBeingClosed() {
		if o.quit != nil {
			o.quit()
		}
		return ebiten.Termination
	}
	if o.step != nil {
		o.step()
	}
	o.pollInput()
	return nil
}

var keyBindings = map[ebiten.Key]uint16{
	ebiten.KeyArrowUp:    1 << sio.BtnUp,
	ebiten.KeyArrowDown:  1 << sio.BtnDown,
	ebiten.KeyArrowLeft:  1 << sio.BtnLeft,
	ebiten.KeyArrowRight: 1 << sio.BtnRight,
	ebiten.KeyEnter:      1 << sio.BtnStart,
	ebiten.KeyShift:      1 << sio.BtnSelect,
	ebiten.KeyZ:          1 << sio.BtnCross,
	ebiten.KeyX:          1 << sio.BtnCircle,
	ebiten.KeyA:          1 << sio.BtnSquare,
	ebiten.KeyS:          1 << sio.BtnTriangle,
	ebiten.KeyQ:          1 << sio.BtnL1,
	ebiten.KeyW:          1 << sio.BtnR1,
}

func (o *Output) pollInput() {
	var buttons uint16
	for key, bit := range keyBindings {
		if ebiten.IsKeyPressed(key) {
			buttons |= bit
		}
	}
	o.pad.Buttons = buttons

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		o.copyScreenshotNotice()
	}
}

// copyScreenshotNotice is a placeholder clipboard exercise point: a
// real build would copy a screenshot or debug dump here. Ctrl+C just
// proves the clipboard backend initializes without wiring a full
// capture pipeline.
func (o *Output) copyScreenshotNotice() {
	o.clipboardOnce.Do(func() {
		o.clipboardOK = clipboard.Init() == nil
	})
	if !o.clipboardOK {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte("ps1core screenshot placeholder"))
}

// Draw implements ebiten.Game: it blits the GPU's current visible
// region into the window each host frame.
func (o *Output) Draw(screen *ebiten.Image) {
	x, y, w, h := o.gpu.DisplayRegion()

	o.mu.Lock()
	if o.window == nil || o.window.Bounds().Dx() != int(w) || o.window.Bounds().Dy() != int(h) {
		o.window = ebiten.NewImage(int(w), int(h))
	}
	o.window.WritePixels(o.gpu.SnapshotRGBA(x, y, w, h))
	o.mu.Unlock()

	screen.DrawImage(o.window, nil)
	o.frameCount++
}

// Layout implements ebiten.Game with a fixed logical screen size
// matching the GPU's current display region.
func (o *Output) Layout(outsideWidth, outsideHeight int) (int, int) {
	_, _, w, h := o.gpu.DisplayRegion()
	if w == 0 || h == 0 {
		return 1, 1
	}
	return int(w), int(h)
}

// FrameCount reports how many Draw calls have happened, useful for an
// FPS readout.
func (o *Output) FrameCount() uint64 { return o.frameCount }

func (o *Output) String() string {
	return fmt.Sprintf("ebitenvideo.Output{frames=%d}", o.frameCount)
}
