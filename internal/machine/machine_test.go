package machine

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"ps1core/internal/addrspace"
	"ps1core/internal/config"
	"ps1core/internal/loader"
	"ps1core/internal/logger"
)

// writeBIOS drops a BIOSSize-byte stub at a temp path; its contents
// don't matter to New beyond satisfying the fixed-size check.
func writeBIOS(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bios.bin")
	if err := os.WriteFile(path, make([]byte, addrspace.BIOSSize), 0o644); err != nil {
		t.Fatalf("writing stub BIOS: %v", err)
	}
	return path
}

// buildMinimalEXE builds a one-instruction PS-EXE payload: a header
// pointing at destAddr with a single NOP instruction as its body.
func buildMinimalEXE(destAddr, pc uint32) []byte {
	h := make([]byte, loader.HeaderSize)
	copy(h, "PS-X EXE")
	le := binary.LittleEndian
	le.PutUint32(h[0x10:], pc)        // initial PC
	le.PutUint32(h[0x14:], 0)         // initial GP
	le.PutUint32(h[0x18:], destAddr)  // dest addr
	le.PutUint32(h[0x1C:], 4)         // file size: one word
	le.PutUint32(h[0x30:], 0)         // SP base
	le.PutUint32(h[0x34:], 0)         // SP offset -> DefaultSP fallback

	body := make([]byte, 4) // 0x00000000 = SLL r0, r0, 0 (NOP)
	return append(h, body...)
}

// TestNewWiresEveryComponent checks that New builds a runnable System
// from a minimal configuration without error, and that every exported
// component handle is non-nil, per §2's "wires every package into one
// runnable machine".
func TestNewWiresEveryComponent(t *testing.T) {
	cfg := &config.Config{BIOSPath: writeBIOS(t), RAMSizeBytes: 2 * 1024 * 1024}

	sys, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sys.Bus == nil || sys.CPU == nil || sys.DMA == nil || sys.GPU == nil ||
		sys.CDROM == nil || sys.Timers == nil || sys.SIO == nil || sys.SPU == nil ||
		sys.MDEC == nil || sys.HLE == nil || sys.Kernel == nil {
		t.Fatalf("expected every component handle to be wired, got %+v", sys)
	}
	if !sys.Mem.BIOSLoaded() {
		t.Fatalf("expected the BIOS image to be installed")
	}
}

// TestLoadEXEAndStep checks the fast-boot path: loading a minimal
// PS-EXE points the CPU at its entry point, and Step executes without
// panicking.
func TestLoadEXEAndStep(t *testing.T) {
	cfg := &config.Config{BIOSPath: writeBIOS(t), RAMSizeBytes: 2 * 1024 * 1024}
	sys, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const destAddr = 0x80010000
	exe := buildMinimalEXE(destAddr, destAddr)
	if err := sys.LoadEXE(exe); err != nil {
		t.Fatalf("LoadEXE: %v", err)
	}
	if sys.CPU.PC != destAddr {
		t.Fatalf("CPU.PC = %#x, want entry point %#x", sys.CPU.PC, destAddr)
	}

	for i := 0; i < 4; i++ {
		sys.Step()
	}
}
