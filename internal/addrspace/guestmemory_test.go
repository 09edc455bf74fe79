package addrspace

import "testing"

// TestNewGuestMemoryRejectsUnsupportedRAMSize checks the discrete
// 1/2/4/8 MiB size set (§3 "Region map").
func TestNewGuestMemoryRejectsUnsupportedRAMSize(t *testing.T) {
	if _, err := NewGuestMemory(3 * 1024 * 1024); err == nil {
		t.Fatalf("expected an error for an unsupported RAM size")
	}
}

// TestNewGuestMemoryAllocatesRegions checks that RAM/BIOS/scratchpad
// all come out the configured/fixed sizes.
func TestNewGuestMemoryAllocatesRegions(t *testing.T) {
	gm, err := NewGuestMemory(2 * 1024 * 1024)
	if err != nil {
		t.Fatalf("NewGuestMemory: %v", err)
	}
	if gm.RAMSize() != 2*1024*1024 {
		t.Fatalf("RAMSize() = %d, want 2MiB", gm.RAMSize())
	}
	if len(gm.RAMBytes()) != 2*1024*1024 {
		t.Fatalf("len(RAMBytes()) = %d, want 2MiB", len(gm.RAMBytes()))
	}
	if len(gm.BIOSBytes()) != BIOSSize {
		t.Fatalf("len(BIOSBytes()) = %d, want %d", len(gm.BIOSBytes()), BIOSSize)
	}
	if len(gm.ScratchpadBytes()) != ScratchpadSize {
		t.Fatalf("len(ScratchpadBytes()) = %d, want %d", len(gm.ScratchpadBytes()), ScratchpadSize)
	}
}

// TestResizePreservesExistingContents checks the memory-control
// RAM-size register path: shrinking/growing keeps the overlapping bytes.
func TestResizePreservesExistingContents(t *testing.T) {
	gm, err := NewGuestMemory(2 * 1024 * 1024)
	if err != nil {
		t.Fatalf("NewGuestMemory: %v", err)
	}
	gm.RAMBytes()[0] = 0xAB
	gm.RAMBytes()[1024*1024] = 0xCD

	if err := gm.Resize(4 * 1024 * 1024); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if gm.RAMSize() != 4*1024*1024 {
		t.Fatalf("RAMSize() after resize = %d, want 4MiB", gm.RAMSize())
	}
	if gm.RAMBytes()[0] != 0xAB || gm.RAMBytes()[1024*1024] != 0xCD {
		t.Fatalf("expected pre-resize contents to survive growing RAM")
	}
}

// TestResizeRejectsUnsupportedSize checks Resize shares New's size set.
func TestResizeRejectsUnsupportedSize(t *testing.T) {
	gm, err := NewGuestMemory(1 * 1024 * 1024)
	if err != nil {
		t.Fatalf("NewGuestMemory: %v", err)
	}
	if err := gm.Resize(5 * 1024 * 1024); err == nil {
		t.Fatalf("expected an error for an unsupported resize target")
	}
}

// TestLoadBIOSRequiresExactSize checks §6's fixed 512 KiB BIOS image
// size and the BIOSLoaded latch.
func TestLoadBIOSRequiresExactSize(t *testing.T) {
	gm, err := NewGuestMemory(2 * 1024 * 1024)
	if err != nil {
		t.Fatalf("NewGuestMemory: %v", err)
	}
	if gm.BIOSLoaded() {
		t.Fatalf("expected BIOSLoaded to be false before any image is installed")
	}
	if err := gm.LoadBIOS(make([]byte, BIOSSize-1)); err == nil {
		t.Fatalf("expected an error for an undersized BIOS image")
	}

	image := make([]byte, BIOSSize)
	image[0] = 0x42
	if err := gm.LoadBIOS(image); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}
	if !gm.BIOSLoaded() {
		t.Fatalf("expected BIOSLoaded to be true after installing a valid image")
	}
	if gm.BIOSBytes()[0] != 0x42 {
		t.Fatalf("expected BIOS bytes to be copied into the backing slice")
	}
}
