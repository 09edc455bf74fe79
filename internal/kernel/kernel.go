// Package kernel is not a real HLE reimplementation of the BIOS
// kernel; it is a read-only introspection layer that dumps identifying
// information and structure tables out of a loaded BIOS/RAM image, the
// way the original tooling's Kernel type describes itself: "simply a
// collection of utilities for retrieving the KERNEL/BIOS status and
// information" (§6 supplemented features).
package kernel

import (
	"encoding/binary"
	"fmt"
)

// Layout offsets inside the 512KiB BIOS ROM image where the kernel
// build identifies itself in plain ASCII/BCD, matching the well known
// PS1 BIOS header fields.
const (
	bcdDateOffset = 0x100 // 4 BCD bytes: YY MM DD (century implied 19/20)
	makerOffset   = 0x108
	versionOffset = 0x12C
	maxStringLen  = 32
)

// Inspector reads identifying strings and live kernel structures out
// of a BIOS image plus RAM, entirely for diagnostic/debug use; nothing
// here participates in actual emulation.
type Inspector struct {
	rom []byte
	ram []byte
}

// New creates an Inspector over the given BIOS ROM and main RAM
// backing slices. Both are assumed already loaded/initialized; dump
// functions are undefined before the BIOS has booted, mirroring the
// original tool's own caveat.
func New(rom, ram []byte) *Inspector {
	return &Inspector{rom: rom, ram: ram}
}

func readCString(buf []byte, offset int, max int) string {
	if offset < 0 || offset >= len(buf) {
		return ""
	}
	end := offset + max
	if end > len(buf) {
		end = len(buf)
	}
	region := buf[offset:end]
	for i, b := range region {
		if b == 0 {
			return string(region[:i])
		}
	}
	return string(region)
}

// DumpKernelMaker reads the maker identification string embedded in
// the BIOS image as plain ASCII, no conversion needed.
func (k *Inspector) DumpKernelMaker() string {
	return readCString(k.rom, makerOffset, maxStringLen)
}

// DumpKernelVersion reads the kernel version string, also plain ASCII.
func (k *Inspector) DumpKernelVersion() string {
	return readCString(k.rom, versionOffset, maxStringLen)
}

// DumpKernelBcdDate decodes the 4-byte BCD build date into a
// YYYY-MM-DD string; the BIOS stores it packed BCD, unlike the
// adjoining ASCII strings.
func (k *Inspector) DumpKernelBcdDate() string {
	if bcdDateOffset+4 > len(k.rom) {
		return ""
	}
	b := k.rom[bcdDateOffset : bcdDateOffset+4]
	century := 19
	if bcdToBin(b[0]) < 90 {
		century = 20
	}
	year := century*100 + int(bcdToBin(b[0]))
	month := bcdToBin(b[1])
	day := bcdToBin(b[2])
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func bcdToBin(v byte) int { return int(v>>4)*10 + int(v&0xF) }

// ProcessControlBlock mirrors the kernel's per-process bookkeeping
// record, read live out of RAM for debug display.
type ProcessControlBlock struct {
	Status       uint32
	ThreadPtr    uint32
}

// ThreadControlBlock mirrors one kernel thread-control-block entry:
// saved register file plus status, used by ChangeThread/OpenThread.
type ThreadControlBlock struct {
	Status uint32
	Mode   uint32
	PC     uint32
	SP     uint32
	GP     uint32
	Regs   [32]uint32
	SR     uint32
}

// EventControlBlock mirrors one slot of the kernel's fixed-size event
// table, set up by OpenEvent/CloseEvent/DeliverEvent.
type EventControlBlock struct {
	Class    uint32
	Status   uint32
	Mode     uint32
	Callback uint32
}

// Standard kernel RAM layout: the thread/event/process-control-block
// tables live at fixed addresses in low RAM once the BIOS has set up
// its data structures.
const (
	processTableAddr = 0x0108
	threadTableAddr  = 0x0110
	eventTableAddr   = 0x0120
	threadTableSize  = 8   // kernel supports 8 concurrent threads
	eventTableSize   = 16  // kernel supports 16 event slots
	threadEntrySize  = 0xC0
	eventEntrySize   = 0x1C
)

func (k *Inspector) le32(addr uint32) uint32 {
	if int(addr)+4 > len(k.ram) {
		return 0
	}
	return binary.LittleEndian.Uint32(k.ram[addr:])
}

// DumpThread reads the live thread-control-block at the given kernel
// thread index (0..7).
func (k *Inspector) DumpThread(index int) ThreadControlBlock {
	var t ThreadControlBlock
	if index < 0 || index >= threadTableSize {
		return t
	}
	base := uint32(threadTableAddr + index*threadEntrySize)
	t.Status = k.le32(base + 0x00)
	t.Mode = k.le32(base + 0x04)
	t.PC = k.le32(base + 0x08)
	t.SR = k.le32(base + 0x0C)
	for r := 0; r < 32; r++ {
		t.Regs[r] = k.le32(base + 0x10 + uint32(r*4))
	}
	t.SP = t.Regs[29]
	t.GP = t.Regs[28]
	return t
}

// DumpEvent reads the live event-control-block at the given kernel
// event table index (0..15).
func (k *Inspector) DumpEvent(index int) EventControlBlock {
	var e EventControlBlock
	if index < 0 || index >= eventTableSize {
		return e
	}
	base := uint32(eventTableAddr + index*eventEntrySize)
	e.Class = k.le32(base + 0x00)
	e.Status = k.le32(base + 0x04)
	e.Mode = k.le32(base + 0x08)
	e.Callback = k.le32(base + 0x0C)
	return e
}
