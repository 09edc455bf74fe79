package memcard

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Directory/title-frame layout, per the memory-card descriptor
// header: 16 frames per card, frame 0 is the header, frames 1-15 are
// one-per-save directory entries; each save's own title frame and
// icon-bitmap frames live inside its data block, not modeled here
// beyond the title frame's embedded CLUT, which this package
// interprets directly out of a passed-in 128-byte frame.
const (
	iconWidth  = 16
	iconHeight = 16
	clutColors = 16
)

// TitleFrame is the subset of a save's title-block frame this package
// decodes: the Shift-JIS title text is left as raw bytes (no charset
// conversion attempted) and the 16-color CLUT used by the icon.
type TitleFrame struct {
	TitleRaw [64]byte
	CLUT     [clutColors]uint16
}

// ParseTitleFrame reads a 128-byte title-block frame's CLUT and
// title text, per the card descriptor's MCTitleFrame layout
// (title_shift_jis at +4, icon_clut at the final 32 bytes).
func ParseTitleFrame(frame []byte) (TitleFrame, error) {
	var tf TitleFrame
	if len(frame) != FrameSize {
		return tf, fmt.Errorf("memcard: title frame must be %d bytes, got %d", FrameSize, len(frame))
	}
	copy(tf.TitleRaw[:], frame[4:4+64])
	clutOff := FrameSize - clutColors*2
	for i := 0; i < clutColors; i++ {
		lo := frame[clutOff+i*2]
		hi := frame[clutOff+i*2+1]
		tf.CLUT[i] = uint16(lo) | uint16(hi)<<8
	}
	return tf, nil
}

// clutToRGBA unpacks a PS1 555-BGR color into a color.RGBA, matching
// the GPU's own 16-bit color packing.
func clutToRGBA(c uint16) color.RGBA {
	r := uint8((c & 0x1F) << 3)
	g := uint8(((c >> 5) & 0x1F) << 3)
	b := uint8(((c >> 10) & 0x1F) << 3)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// DecodeIcon renders one 16x16 4bpp icon bitmap frame (128 bytes, two
// pixels per byte) against tf's CLUT into an image.Image.
func DecodeIcon(bitmap []byte, tf TitleFrame) (image.Image, error) {
	if len(bitmap) < iconWidth*iconHeight/2 {
		return nil, fmt.Errorf("memcard: icon bitmap too short: %d bytes", len(bitmap))
	}
	img := image.NewRGBA(image.Rect(0, 0, iconWidth, iconHeight))
	for y := 0; y < iconHeight; y++ {
		for x := 0; x < iconWidth; x += 2 {
			b := bitmap[(y*iconWidth+x)/2]
			lo := b & 0xF
			hi := b >> 4
			img.Set(x, y, clutToRGBA(tf.CLUT[lo]))
			img.Set(x+1, y, clutToRGBA(tf.CLUT[hi]))
		}
	}
	return img, nil
}

// ScaleIcon upscales a decoded icon to the requested size for a
// debug/preview front-end, using x/image/draw's bilinear scaler
// rather than hand-rolled nearest-neighbor replication.
func ScaleIcon(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
