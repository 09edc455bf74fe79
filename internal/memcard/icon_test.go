package memcard

import "testing"

func TestParseTitleFrameRejectsWrongSize(t *testing.T) {
	if _, err := ParseTitleFrame(make([]byte, 64)); err == nil {
		t.Fatal("expected error for wrong-size frame")
	}
}

func TestParseTitleFrameCLUT(t *testing.T) {
	frame := make([]byte, FrameSize)
	clutOff := FrameSize - clutColors*2
	frame[clutOff] = 0xFF
	frame[clutOff+1] = 0x7F // white, 0x7FFF
	tf, err := ParseTitleFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if tf.CLUT[0] != 0x7FFF {
		t.Fatalf("CLUT[0] = %#x, want 0x7FFF", tf.CLUT[0])
	}
}

func TestDecodeIconProducesCorrectSize(t *testing.T) {
	frame := make([]byte, FrameSize)
	tf, _ := ParseTitleFrame(frame)
	bitmap := make([]byte, iconWidth*iconHeight/2)
	img, err := DecodeIcon(bitmap, tf)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != iconWidth || b.Dy() != iconHeight {
		t.Fatalf("icon size = %dx%d, want %dx%d", b.Dx(), b.Dy(), iconWidth, iconHeight)
	}
}

func TestDecodeIconRejectsShortBitmap(t *testing.T) {
	tf, _ := ParseTitleFrame(make([]byte, FrameSize))
	if _, err := DecodeIcon(make([]byte, 4), tf); err == nil {
		t.Fatal("expected error for short bitmap")
	}
}

func TestScaleIcon(t *testing.T) {
	frame := make([]byte, FrameSize)
	tf, _ := ParseTitleFrame(frame)
	bitmap := make([]byte, iconWidth*iconHeight/2)
	img, _ := DecodeIcon(bitmap, tf)
	scaled := ScaleIcon(img, 64, 64)
	if scaled.Bounds().Dx() != 64 || scaled.Bounds().Dy() != 64 {
		t.Fatal("scaled icon has wrong dimensions")
	}
}
