// Package bus implements the system bus: typed aligned load/store
// dispatch by address, routing to RAM/BIOS/scratchpad via fastmem or
// to one of the memory-mapped device register banks, honoring
// region-specific access timing (§4.2).
package bus

import (
	"encoding/binary"

	"ps1core/internal/addrspace"
	"ps1core/internal/logger"
	"ps1core/internal/mips"
)

// RegisterDevice is implemented by every memory-mapped peripheral that
// the bus's I/O fan-out dispatches byte/halfword/word accesses to.
// Offsets are relative to the device's registered base, not absolute
// bus addresses.
type RegisterDevice interface {
	ReadRegister(offset uint32, width int) uint32
	WriteRegister(offset uint32, width int, value uint32)
}

// ioRegion is one registered device and the absolute range it answers.
type ioRegion struct {
	start, end uint32 // [start,end), absolute offsets within the 4KiB I/O bank
	dev        RegisterDevice
}

// Bus is the system bus described in §4.2.
type Bus struct {
	mem *addrspace.GuestMemory
	log *logger.Logger

	ioRegions []ioRegion

	// RaiseExceptions and ChargeCycles are the two compile-time flags
	// from §4.2, made runtime-configurable so tests can disable them.
	RaiseExceptions bool
	ChargeCycles    bool

	exp2Enabled bool

	// CacheIsolate suppresses stores when SR.isolate_cache is set
	// (they would only ever target the nonexistent I-cache); set by
	// the cache-control register at 0xFFFE0130.
	CacheIsolate bool

	// Access timing state (§4.2 "Access-time model"). Nonseq/seq costs
	// for BIOS and the expansion regions, derived from the
	// memory-control delay/size registers; RAM is always 5 cycles/read.
	timing AccessTiming

	lastCycles uint32
}

// AccessTiming holds the derived nonseq/seq cycle costs per region.
type AccessTiming struct {
	BIOSNonSeq, BIOSSeq         uint32
	Exp1NonSeq, Exp1Seq         uint32
	Exp2NonSeq, Exp2Seq         uint32
	Exp3NonSeq, Exp3Seq         uint32
	RAMCycles                   uint32
}

// DefaultTiming matches the PS1's reset-state delay/size register
// values (COM0-3 common delays, 8-bit bus width) closely enough for
// BIOS boot timing to be plausible without modeling the registers bit
// for bit; the memory-control region (§4.2) overwrites these live.
func DefaultTiming() AccessTiming {
	return AccessTiming{
		BIOSNonSeq: 6, BIOSSeq: 3,
		Exp1NonSeq: 6, Exp1Seq: 3,
		Exp2NonSeq: 6, Exp2Seq: 3,
		Exp3NonSeq: 6, Exp3Seq: 3,
		RAMCycles: 5,
	}
}

// New creates a Bus over the given guest memory.
func New(mem *addrspace.GuestMemory, log *logger.Logger) *Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{
		mem:             mem,
		log:             log,
		RaiseExceptions: true,
		ChargeCycles:    true,
		timing:          DefaultTiming(),
	}
}

// SetTiming overrides the derived access-timing table, called when the
// memory-control delay/size registers change.
func (b *Bus) SetTiming(t AccessTiming) { b.timing = t }

// SetExpansion2Enabled toggles whether expansion 2 participates in the
// dispatch order (§4.2).
func (b *Bus) SetExpansion2Enabled(enabled bool) { b.exp2Enabled = enabled }

// RegisterIO attaches a peripheral's register bank at [start,end)
// (absolute addresses, typically within 0x1F801000-0x1F801FFF).
func (b *Bus) RegisterIO(start, end uint32, dev RegisterDevice) {
	b.ioRegions = append(b.ioRegions, ioRegion{start, end, dev})
}

func (b *Bus) findIO(addr uint32) (RegisterDevice, uint32, bool) {
	for _, r := range b.ioRegions {
		if addr >= r.start && addr < r.end {
			return r.dev, addr - r.start, true
		}
	}
	return nil, 0, false
}

// LastAccessCycles returns the cycle cost of the most recently
// completed access, for the CPU to add to its instruction cycle count.
func (b *Bus) LastAccessCycles() uint32 { return b.lastCycles }

func widthBytes(width int) uint32 { return uint32(width / 8) }

// access performs the full dispatch described in §4.2 for a read
// (write == false) or write. size is 1, 2, or 4 bytes.
func (b *Bus) access(addr addrspace.Address, size uint32, write bool, writeVal uint32, userMode bool) (uint32, *mips.Fault) {
	raw := uint32(addr)

	// Unaligned access check.
	if size > 1 && raw&(size-1) != 0 {
		code := mips.ExcADEL
		if write {
			code = mips.ExcADES
		}
		return 0, b.fault(code, raw, true)
	}

	seg := addr.Segment()

	// KUSEG hole [0x20000000, 0x80000000) is DBE, BadVAddr not latched.
	if seg == addrspace.SegKUSEG && raw >= 0x20000000 {
		return 0, b.fault(mips.ExcDBE, raw, false)
	}

	// Privilege check: user mode may not touch any KSEG address.
	if userMode && seg != addrspace.SegKUSEG {
		code := mips.ExcADEL
		if write {
			code = mips.ExcADES
		}
		return 0, b.fault(code, raw, true)
	}

	// KSEG2 above 0xC0000000: only the cache-control register is legal.
	if seg == addrspace.SegKSEG2 {
		if raw == CacheControlRegister {
			if write {
				b.CacheIsolate = writeVal&CacheControlIsolate != 0
			}
			return 0, nil
		}
		// Fatal per §4.2; callers treat a nil-value/nil-fault return
		// from an unreachable region as a programming error, so we
		// surface it the same way as any other bus miss would be
		// impossible to reach here: panic to match the "fatal"
		// classification (§7 class 3, invariant violation).
		panic("bus: KSEG2 access outside cache-control register")
	}

	phys := addr.Physical()
	region, regionOff := addrspace.RegionOf(phys, b.mem.RAMSize())

	// Scratchpad is not mirrored into KSEG1.
	if region == addrspace.RegionScratchpad && seg == addrspace.SegKSEG1 {
		return 0, b.fault(mips.ExcDBE, raw, false)
	}

	switch region {
	case addrspace.RegionRAM:
		b.chargeCycles(b.timing.RAMCycles)
		return b.memAccess(b.mem.RAMBytes(), regionOff, size, write, writeVal), nil

	case addrspace.RegionBIOS:
		b.chargeCycles(b.timing.BIOSNonSeq)
		if write {
			// BIOS is mapped read-only once loaded; ignore writes
			// rather than fault, matching typical BIOS-region behavior.
			return 0, nil
		}
		return b.memAccess(b.mem.BIOSBytes(), regionOff, size, write, writeVal), nil

	case addrspace.RegionIO:
		dev, off, ok := b.findIO(IOBase + regionOff)
		if !ok {
			return 0, b.fault(mips.ExcDBE, raw, false)
		}
		if write {
			dev.WriteRegister(off, int(size*8), writeVal)
			return 0, nil
		}
		return dev.ReadRegister(off, int(size*8)), nil

	case addrspace.RegionScratchpad:
		return b.memAccess(b.mem.ScratchpadBytes(), regionOff, size, write, writeVal), nil

	case addrspace.RegionExpansion2:
		if !b.exp2Enabled {
			return 0, b.fault(mips.ExcDBE, raw, false)
		}
		b.chargeCycles(b.timing.Exp2NonSeq)
		return 0xFFFFFFFF, nil // unpopulated by default; devices register via RegisterIO if present

	case addrspace.RegionExpansion1:
		b.chargeCycles(b.timing.Exp1NonSeq)
		return 0xFFFFFFFF, nil

	case addrspace.RegionExpansion3:
		b.chargeCycles(b.timing.Exp3NonSeq)
		return 0xFFFFFFFF, nil

	default:
		return 0, b.fault(mips.ExcDBE, raw, false)
	}
}

func (b *Bus) chargeCycles(c uint32) {
	if b.ChargeCycles {
		b.lastCycles = c
	} else {
		b.lastCycles = 0
	}
}

func (b *Bus) fault(code mips.ExceptionCode, badVAddr uint32, hasBadVAddr bool) *mips.Fault {
	if !b.RaiseExceptions {
		return nil
	}
	return &mips.Fault{Code: code, BadVAddr: badVAddr, BadVAddrValid: hasBadVAddr}
}

func (b *Bus) memAccess(buf []byte, off uint32, size uint32, write bool, writeVal uint32) uint32 {
	if write && b.CacheIsolate {
		return 0
	}
	switch size {
	case 1:
		if write {
			buf[off] = byte(writeVal)
			return 0
		}
		return uint32(buf[off])
	case 2:
		if write {
			binary.LittleEndian.PutUint16(buf[off:], uint16(writeVal))
			return 0
		}
		return uint32(binary.LittleEndian.Uint16(buf[off:]))
	default:
		if write {
			binary.LittleEndian.PutUint32(buf[off:], writeVal)
			return 0
		}
		return binary.LittleEndian.Uint32(buf[off:])
	}
}

// Read32 / Read16 / Read8 perform unsigned reads. userMode gates the
// privilege check described in §4.2.
func (b *Bus) Read32(addr uint32, userMode bool) (uint32, *mips.Fault) {
	return b.access(addrspace.Address(addr), 4, false, 0, userMode)
}
func (b *Bus) Read16(addr uint32, userMode bool) (uint32, *mips.Fault) {
	return b.access(addrspace.Address(addr), 2, false, 0, userMode)
}
func (b *Bus) Read8(addr uint32, userMode bool) (uint32, *mips.Fault) {
	return b.access(addrspace.Address(addr), 1, false, 0, userMode)
}

// ReadS16 / ReadS8 sign-extend the loaded value to 32 bits.
func (b *Bus) ReadS16(addr uint32, userMode bool) (uint32, *mips.Fault) {
	v, f := b.access(addrspace.Address(addr), 2, false, 0, userMode)
	return uint32(int32(int16(v))), f
}
func (b *Bus) ReadS8(addr uint32, userMode bool) (uint32, *mips.Fault) {
	v, f := b.access(addrspace.Address(addr), 1, false, 0, userMode)
	return uint32(int32(int8(v))), f
}

func (b *Bus) Write32(addr uint32, value uint32, userMode bool) *mips.Fault {
	_, f := b.access(addrspace.Address(addr), 4, true, value, userMode)
	return f
}
func (b *Bus) Write16(addr uint32, value uint32, userMode bool) *mips.Fault {
	_, f := b.access(addrspace.Address(addr), 2, true, value, userMode)
	return f
}
func (b *Bus) Write8(addr uint32, value uint32, userMode bool) *mips.Fault {
	_, f := b.access(addrspace.Address(addr), 1, true, value, userMode)
	return f
}

// Memory exposes the underlying guest memory, for peripherals (DMA,
// GPU CPU<->VRAM blits) that need direct RAM access per the design
// notes' "pass as a parameter" rule rather than storing a bus pointer.
func (b *Bus) Memory() *addrspace.GuestMemory { return b.mem }
