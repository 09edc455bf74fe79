// Package swrender implements a software VRAM renderer: a 1MiB
// (1024x512x16bpp) pixel buffer with scanline-fill triangle/line
// rasterization, satisfying gpu.Renderer without any GPU API
// dependency. It is the default back-end and the one exercised by
// tests.
package swrender

import "ps1core/internal/gpu"

const (
	Width  = 1024
	Height = 512
)

// Renderer is a straightforward scanline rasterizer over an in-memory
// VRAM buffer.
type Renderer struct {
	vram     [Width * Height]uint16
	maskSet  bool
	maskCheck bool
}

// New creates a zeroed VRAM buffer.
func New() *Renderer { return &Renderer{} }

func pack555(r, g, b uint8) uint16 {
	return uint16(r>>3)&0x1F | (uint16(g>>3)&0x1F)<<5 | (uint16(b>>3)&0x1F)<<10
}

func (r *Renderer) setPixel(x, y int32, color uint16) {
	if x < 0 || y < 0 || x >= Width || y >= Height {
		return
	}
	idx := y*Width + x
	if r.maskCheck && r.vram[idx]&0x8000 != 0 {
		return
	}
	if r.maskSet {
		color |= 0x8000
	}
	r.vram[idx] = color
}

// DrawTriangle rasterizes one flat or gouraud-shaded triangle with a
// standard edge-function scanline fill; texturing is approximated by
// the shared vertex color since no texture-page sampling is modeled
// at this layer (§4.6 treats the renderer as an opaque back-end, and
// texel fetch would require a VRAM-backed texture cache this core
// does not implement).
func (r *Renderer) DrawTriangle(v [3]gpu.Vertex, shaded, textured, semiTransparent bool) {
	minX, maxX := minMax3(v[0].X, v[1].X, v[2].X)
	minY, maxY := minMax3(v[0].Y, v[1].Y, v[2].Y)
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= Width {
		maxX = Width - 1
	}
	if maxY >= Height {
		maxY = Height - 1
	}
	area := edge(v[0], v[1], v[2])
	if area == 0 {
		return
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := gpu.Vertex{X: x, Y: y}
			w0 := edge(v[1], v[2], p)
			w1 := edge(v[2], v[0], p)
			w2 := edge(v[0], v[1], p)
			if (w0 < 0 || w1 < 0 || w2 < 0) && (w0 > 0 || w1 > 0 || w2 > 0) {
				continue
			}
			var rr, gg, bb uint8
			if shaded {
				rr = barycentricU8(w0, w1, w2, area, v[0].R, v[1].R, v[2].R)
				gg = barycentricU8(w0, w1, w2, area, v[0].G, v[1].G, v[2].G)
				bb = barycentricU8(w0, w1, w2, area, v[0].B, v[1].B, v[2].B)
			} else {
				rr, gg, bb = v[0].R, v[0].G, v[0].B
			}
			r.setPixel(x, y, pack555(rr, gg, bb))
		}
	}
}

func minMax3(a, b, c int32) (int32, int32) {
	min, max := a, a
	for _, v := range []int32{b, c} {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func edge(a, b, c gpu.Vertex) int64 {
	return int64(b.X-a.X)*int64(c.Y-a.Y) - int64(b.Y-a.Y)*int64(c.X-a.X)
}

func barycentricU8(w0, w1, w2, area int64, c0, c1, c2 uint8) uint8 {
	if area == 0 {
		return c0
	}
	sum := int64(c0)*w0 + int64(c1)*w1 + int64(c2)*w2
	return uint8(sum / area)
}

// DrawLine uses a standard Bresenham walk between the two endpoints.
func (r *Renderer) DrawLine(a, b gpu.Vertex, semiTransparent bool) {
	x0, y0, x1, y1 := a.X, a.Y, b.X, b.Y
	dx := abs32(x1 - x0)
	dy := -abs32(y1 - y0)
	sx, sy := int32(1), int32(1)
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errTerm := dx + dy
	color := pack555(a.R, a.G, a.B)
	for {
		r.setPixel(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * errTerm
		if e2 >= dy {
			errTerm += dy
			x0 += sx
		}
		if e2 <= dx {
			errTerm += dx
			y0 += sy
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// FillRect writes a solid color into a rectangle, honoring mask bits.
func (r *Renderer) FillRect(x, y, w, h uint32, color uint32) {
	c := pack555(uint8(color), uint8(color>>8), uint8(color>>16))
	for dy := uint32(0); dy < h; dy++ {
		for dx := uint32(0); dx < w; dx++ {
			r.setPixel(int32(x+dx), int32(y+dy), c)
		}
	}
}

// CPUToVRAM copies a stream of 16-bit pixels into a rectangle,
// row-major, per §4.6's CPU->VRAM blit contract.
func (r *Renderer) CPUToVRAM(x, y, w, h uint32, pixels []uint16) {
	i := 0
	for dy := uint32(0); dy < h && i < len(pixels); dy++ {
		for dx := uint32(0); dx < w && i < len(pixels); dx++ {
			r.setPixel(int32(x+dx), int32(y+dy), pixels[i])
			i++
		}
	}
}

// VRAMToCPU emits the rectangle's pixels row-major.
func (r *Renderer) VRAMToCPU(x, y, w, h uint32) []uint16 {
	out := make([]uint16, 0, w*h)
	for dy := uint32(0); dy < h; dy++ {
		for dx := uint32(0); dx < w; dx++ {
			px, py := int32(x+dx), int32(y+dy)
			if px < 0 || py < 0 || px >= Width || py >= Height {
				out = append(out, 0)
				continue
			}
			out = append(out, r.vram[py*Width+px])
		}
	}
	return out
}

// VRAMToVRAM copies one rectangle to another within the same buffer.
func (r *Renderer) VRAMToVRAM(srcX, srcY, dstX, dstY, w, h uint32) {
	pixels := r.VRAMToCPU(srcX, srcY, w, h)
	r.CPUToVRAM(dstX, dstY, w, h, pixels)
}

// Sync is a no-op: this rasterizer draws synchronously.
func (r *Renderer) Sync() {}

// RequestUniformUpdate tracks the mask-set/check bits this rasterizer
// actually consults; the rest of the draw state is advisory to a
// software back-end with no texture cache.
func (r *Renderer) RequestUniformUpdate(texpage, drawArea gpu.DrawState) {
	r.maskSet = drawArea.MaskSetting&1 != 0
	r.maskCheck = drawArea.MaskSetting&2 != 0
}

// Framebuffer exposes the raw VRAM contents for a presentation
// front-end to blit from.
func (r *Renderer) Framebuffer() []uint16 { return r.vram[:] }

// SnapshotRGBA converts the w x h region at (x, y) from 555-BGR VRAM
// into tightly packed RGBA8888, the pixel format ebiten.Image.WritePixels
// expects.
func (r *Renderer) SnapshotRGBA(x, y, w, h uint32) []byte {
	out := make([]byte, 0, w*h*4)
	for row := uint32(0); row < h; row++ {
		srcY := y + row
		if srcY >= Height {
			out = append(out, make([]byte, (h-row)*w*4)...)
			break
		}
		for col := uint32(0); col < w; col++ {
			srcX := x + col
			var px uint16
			if srcX < Width {
				px = r.vram[srcY*Width+srcX]
			}
			rr := uint8(px&0x1F) << 3
			gg := uint8((px>>5)&0x1F) << 3
			bb := uint8((px>>10)&0x1F) << 3
			out = append(out, rr, gg, bb, 0xFF)
		}
	}
	return out
}
