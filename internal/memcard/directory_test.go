package memcard

import "testing"

func TestDirectoryFreshCardAllUnoccupied(t *testing.T) {
	c := New()
	dir := c.Directory()
	for _, e := range dir {
		if e.Occupied() {
			t.Fatalf("fresh card entry %d should not be occupied", e.Index)
		}
	}
}

func TestDirectoryReadsFilename(t *testing.T) {
	c := New()
	frame := c.Image[FrameSize : 2*FrameSize]
	frame[0] = byte(BlockFirst)
	copy(frame[0xA:], []byte("BASLUS-00000SAVE"))
	dir := c.Directory()
	if !dir[0].Occupied() {
		t.Fatal("expected entry 0 to be occupied")
	}
	if dir[0].Filename != "BASLUS-00000SAVE" {
		t.Fatalf("filename = %q", dir[0].Filename)
	}
}
