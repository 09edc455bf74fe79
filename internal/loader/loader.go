// Package loader implements the PS-EXE executable format: the
// 0x800-byte header, the optional memfill region, and the process of
// copying a payload into guest memory and pointing the CPU at its
// entry point (§6 "Loader").
package loader

import (
	"encoding/binary"
	"errors"
)

const (
	HeaderSize = 0x800
	magic      = "PS-X EXE"

	// DefaultSP is used when the header's initial stack pointer is
	// zero, matching the BIOS's own fallback.
	DefaultSP = 0x801FFFF0
)

var ErrBadMagic = errors.New("loader: missing PS-X EXE magic")

// Header mirrors the fields actually consumed from the 0x800-byte
// PS-EXE header; reserved/unused fields are not modeled.
type Header struct {
	InitialPC   uint32
	InitialGP   uint32
	DestAddr    uint32
	FileSize    uint32
	MemfillAddr uint32
	MemfillSize uint32
	InitialSP   uint32
	SPBase      uint32
}

// ParseHeader parses the fixed-layout fields of a raw 0x800-byte
// PS-EXE header. The layout (offsets from the start of the buffer)
// matches the documented PS-X EXE format.
func ParseHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < HeaderSize {
		return h, errors.New("loader: header shorter than 0x800 bytes")
	}
	if string(raw[0:8]) != magic {
		return h, ErrBadMagic
	}
	le := binary.LittleEndian
	h.InitialPC = le.Uint32(raw[0x10:])
	h.InitialGP = le.Uint32(raw[0x14:])
	h.DestAddr = le.Uint32(raw[0x18:])
	h.FileSize = le.Uint32(raw[0x1C:])
	h.MemfillAddr = le.Uint32(raw[0x28:])
	h.MemfillSize = le.Uint32(raw[0x2C:])
	h.SPBase = le.Uint32(raw[0x30:])
	h.InitialSP = h.SPBase + le.Uint32(raw[0x34:])
	return h, nil
}

// Memory is the subset of the guest address space the loader writes
// through: a raw copy that bypasses the bus's access-width and
// privilege checks, matching how the BIOS's own Load() uses the flat
// guest pointer rather than going through the CPU's load/store path.
type Memory interface {
	CopyIn(destAddr uint32, data []byte)
	Zero(addr uint32, size uint32)
}

// CPU is the subset of CPU state the loader sets up before transfer,
// satisfied directly by *cpu.CPU's exported PC/Regs fields through
// the small adapter in internal/machine.
type CPU interface {
	SetPC(pc uint32)
	SetGPR(reg int, value uint32)
}

// GPR indices for $gp, $sp, $fp, matching the MIPS o32 register
// convention the BIOS itself relies on.
const (
	RegGP = 28
	RegSP = 29
	RegFP = 30
)

// Load parses the header, zero-fills the requested memfill region (if
// any), copies the payload starting right after the header, and
// points cpu at the executable's entry point with $gp/$sp/$fp set up
// (§6 "Loader": "mimics the BIOS's own EXE-load syscall path").
func Load(raw []byte, mem Memory, cpu CPU) (Header, error) {
	h, err := ParseHeader(raw)
	if err != nil {
		return h, err
	}
	if h.MemfillSize != 0 {
		mem.Zero(h.MemfillAddr, h.MemfillSize)
	}
	payload := raw[HeaderSize:]
	if uint32(len(payload)) > h.FileSize {
		payload = payload[:h.FileSize]
	}
	mem.CopyIn(h.DestAddr, payload)

	sp := h.InitialSP
	if sp == 0 {
		sp = DefaultSP
	}

	cpu.SetPC(h.InitialPC)
	cpu.SetGPR(RegGP, h.InitialGP)
	cpu.SetGPR(RegSP, sp)
	cpu.SetGPR(RegFP, sp)
	return h, nil
}
