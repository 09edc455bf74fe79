package bus

import "ps1core/internal/addrspace"

// IOBase is the absolute address of the I/O register bank.
const IOBase = addrspace.IOBase

// Offsets relative to IOBase (§4.2 "I/O region fan-out").
const (
	OffMemControl  = 0x000
	OffMemControl2 = 0x060 // RAM-size register
	OffSIO0        = 0x040
	OffSIO1        = 0x050
	OffInterruptStat = 0x070
	OffInterruptMask = 0x074
	OffTimer0      = 0x100
	OffTimer1      = 0x110
	OffTimer2      = 0x120
	OffDMA         = 0x080
	OffCDROM       = 0x800
	OffGP0         = 0x810
	OffGP1         = 0x814
	OffMDEC        = 0x820
	OffSPU         = 0xC00
)

// CacheControlRegister is the KSEG2 cache-control register address.
const CacheControlRegister = 0xFFFE0130

// CacheControlIsolate is the isolate_cache bit within that register.
const CacheControlIsolate = 1 << 16
