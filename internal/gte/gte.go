// Package gte implements coprocessor 2, the Geometry Transformation
// Engine: the fixed-point matrix/vector ALU used for 3D transform and
// lighting (§4.4).
package gte

// Command encodes a GTE opcode word: bits [0:5] opcode, bit 10 lm
// (IR saturation mode), bits [13:14] translation-vector selector,
// bits [15:16] multiply-vector selector, bits [17:18] matrix
// selector, bit 19 shift-fraction selector.
type Command uint32

func (c Command) Opcode() uint32      { return uint32(c) & 0x3F }
func (c Command) LM() bool            { return uint32(c)>>10&1 != 0 }
func (c Command) Translation() uint32 { return uint32(c) >> 13 & 0x3 }
func (c Command) MulVec() uint32      { return uint32(c) >> 15 & 0x3 }
func (c Command) MulMat() uint32      { return uint32(c) >> 17 & 0x3 }
func (c Command) SF() uint32          { return uint32(c) >> 19 & 1 }

// Opcode values, per §4.4 "Commands".
const (
	opRTPS  = 0x01
	opNCLIP = 0x06
	opOP    = 0x0C
	opDPCS  = 0x10
	opINTPL = 0x11
	opMVMVA = 0x12
	opNCDS  = 0x13
	opCDP   = 0x14
	opNCDT  = 0x16
	opNCCS  = 0x1B
	opCC    = 0x1C
	opNCS   = 0x1E
	opNCT   = 0x20
	opSQR   = 0x28
	opDPCL  = 0x29
	opDPCT  = 0x2A
	opAVSZ3 = 0x2D
	opAVSZ4 = 0x2E
	opRTPT  = 0x30
	opGPF   = 0x3D
	opGPL   = 0x3E
	opNCCT  = 0x3F
)

// Flag bits of the status register (register 63), per §4.4 "Flag
// register semantics". Bit 31 (the error flag) is the OR-reduction of
// bits 23:30 and 13:18, which is why IR0/color-FIFO/IR3 saturation
// (bits 12, 19-22) do not contribute to it.
const (
	flagMAC1Pos = 1 << 30
	flagMAC2Pos = 1 << 29
	flagMAC3Pos = 1 << 28
	flagMAC1Neg = 1 << 27
	flagMAC2Neg = 1 << 26
	flagMAC3Neg = 1 << 25
	flagIR1Sat  = 1 << 24
	flagIR2Sat  = 1 << 23
	flagIR3Sat  = 1 << 22
	flagColorB  = 1 << 21
	flagColorG  = 1 << 20
	flagColorR  = 1 << 19
	flagOTZSat  = 1 << 18
	flagDivOvf  = 1 << 17
	flagMAC0Pos = 1 << 16
	flagMAC0Neg = 1 << 15
	flagSX2Sat  = 1 << 14
	flagSY2Sat  = 1 << 13
	flagIR0Sat  = 1 << 12
)

// Data register indices (0-31) per §4.4 "Register file".
const (
	dV0XY, dV0Z = 0, 1 // V0 packs X/Y into reg0, Z into reg1
	dV1XY, dV1Z = 2, 3
	dV2XY, dV2Z = 4, 5
	dRGB             = 6
	dOTZ             = 7
	dIR0             = 8
	dIR1             = 9
	dIR2             = 10
	dIR3             = 11
	dSXY0            = 12
	dSXY1            = 13
	dSXY2            = 14
	dSXYP            = 15
	dSZ0             = 16
	dSZ1             = 17
	dSZ2             = 18
	dSZ3             = 19
	dRGB0            = 20
	dRGB1            = 21
	dRGB2            = 22
	dRES1            = 23
	dMAC0            = 24
	dMAC1            = 25
	dMAC2            = 26
	dMAC3            = 27
	dIRGB            = 28
	dORGB            = 29
	dLZCS            = 30
	dLZCR            = 31
)

// Control register indices (32-63, addressed here as 0-31 relative).
const (
	cRT11RT12 = 0
	cRT13RT21 = 1
	cRT22RT23 = 2
	cRT31RT32 = 3
	cRT33     = 4
	cTRX      = 5
	cTRY      = 6
	cTRZ      = 7
	cL11L12   = 8
	cL13L21   = 9
	cL22L23   = 10
	cL31L32   = 11
	cL33      = 12
	cRBK      = 13
	cGBK      = 14
	cBBK      = 15
	cLR1LR2   = 16
	cLR3LG1   = 17
	cLG2LG3   = 18
	cLB1LB2   = 19
	cLB3      = 20
	cRFC      = 21
	cGFC      = 22
	cBFC      = 23
	cOFX      = 24
	cOFY      = 25
	cH        = 26
	cDQA      = 27
	cDQB      = 28
	cZSF3     = 29
	cZSF4     = 30
	cFLAG     = 31
)

// GTE holds the full 64-register COP2 file and dispatches geometry
// commands against it.
type GTE struct {
	data    [32]uint32
	control [32]uint32

	interlockAt uint64
	nowFunc     func() uint64
}

// New creates a GTE with a zeroed register file.
func New() *GTE {
	return &GTE{nowFunc: func() uint64 { return 0 }}
}

// SetClock installs the function the GTE consults for "now", used to
// stage the per-command interlock timestamp (§4.4 "Commands").
func (g *GTE) SetClock(now func() uint64) { g.nowFunc = now }

func signExtend16(v uint32) uint32 { return uint32(int32(int16(uint16(v)))) }

// ReadData implements the data-register read side-table from §4.4:
// most registers sign-extend their 16-bit half, a handful pack two
// FIFO halves into one word.
func (g *GTE) ReadData(reg uint32) uint32 {
	reg &= 0x1F
	switch reg {
	case dV0Z, dV1Z, dV2Z:
		return signExtend16(g.data[reg])
	case dIR0, dIR1, dIR2, dIR3:
		return signExtend16(g.data[reg])
	case dSXYP:
		return g.data[dSXY2]
	default:
		return g.data[reg]
	}
}

// WriteData implements the data-register write side-table: writing
// SXYP pushes the screen FIFO, writing IRGB derives IR1-3, writing
// LZCS recomputes the leading zero/one count into LZCR.
func (g *GTE) WriteData(reg uint32, val uint32) {
	reg &= 0x1F
	switch reg {
	case dSXYP:
		g.pushScreenFIFO(int16(val), int16(val>>16))
		return
	case dIRGB:
		g.data[dIRGB] = val & 0x7FFF
		b := (val >> 10) & 0x1F
		gc := (val >> 5) & 0x1F
		r := val & 0x1F
		g.data[dIR1] = r * 0x80
		g.data[dIR2] = gc * 0x80
		g.data[dIR3] = b * 0x80
		return
	case dLZCS:
		g.data[dLZCS] = val
		g.data[dLZCR] = uint32(leadingRunLength(int32(val)))
		return
	case dORGB, dLZCR:
		return // read-only
	default:
		g.data[reg] = val
	}
}

// leadingRunLength counts leading zero bits for a non-negative value
// or leading one bits for a negative value, per §4.4 register LZCR.
func leadingRunLength(v int32) int {
	if v >= 0 {
		n := 0
		for bit := 31; bit >= 0; bit-- {
			if v&(1<<uint(bit)) != 0 {
				break
			}
			n++
		}
		return n
	}
	n := 0
	for bit := 31; bit >= 0; bit-- {
		if v&(1<<uint(bit)) == 0 {
			break
		}
		n++
	}
	return n
}

// ReadControl implements the control-register read side-table: the
// packed matrix corners and most 16-bit scalars sign-extend; the flag
// register recomputes its OR-reduction bit on every read (§4.4 "Flag
// register semantics").
func (g *GTE) ReadControl(reg uint32) uint32 {
	reg &= 0x1F
	switch reg {
	case cRT33, cL33, cLB3:
		return signExtend16(g.control[reg])
	case cH:
		return signExtend16(g.control[reg])
	case cDQA, cZSF3, cZSF4:
		return signExtend16(g.control[reg])
	case cFLAG:
		g.recomputeFlagOR()
		return g.control[cFLAG]
	default:
		return g.control[reg]
	}
}

func (g *GTE) WriteControl(reg uint32, val uint32) {
	reg &= 0x1F
	if reg == cFLAG {
		val &^= 0xFFF // bits 0-11 are unused and always read zero
	}
	g.control[reg] = val
}

// recomputeFlagOR sets bit 31 to the OR-reduction of bits 23:30 and
// 13:18, matching §4.4's "bit 31 is the OR-reduction" rule.
func (g *GTE) recomputeFlagOR() {
	bits := g.control[cFLAG] &^ (1 << 31)
	relevant := bits&(0xFF<<23) | bits&(0x3F<<13)
	if relevant != 0 {
		g.control[cFLAG] |= 1 << 31
	} else {
		g.control[cFLAG] &^= 1 << 31
	}
}

func (g *GTE) setFlag(bit uint32) { g.control[cFLAG] |= bit }

// Execute dispatches a GTE command. Writing the command register
// always clears every flag bit before execution (§4.4).
func (g *GTE) Execute(word uint32) {
	cmd := Command(word)
	g.control[cFLAG] = 0
	g.interlockAt = g.nowFunc() + commandCycles(cmd.Opcode())

	switch cmd.Opcode() {
	case opRTPS:
		g.rtps(cmd, true)
	case opRTPT:
		g.rtpt(cmd)
	case opNCLIP:
		g.nclip()
	case opOP:
		g.op(cmd)
	case opMVMVA:
		g.mvmva(cmd)
	case opDPCS:
		g.dpcs(cmd, false)
	case opDPCT:
		g.dpct(cmd)
	case opDPCL:
		g.dpcl(cmd)
	case opINTPL:
		g.intpl(cmd)
	case opNCDS:
		g.ncds(cmd, 0)
	case opNCDT:
		g.ncdt(cmd)
	case opNCCS:
		g.nccs(cmd, 0)
	case opNCCT:
		g.ncct(cmd)
	case opNCS:
		g.ncs(cmd, 0)
	case opNCT:
		g.nct(cmd)
	case opCC:
		g.cc(cmd)
	case opCDP:
		g.cdp(cmd)
	case opSQR:
		g.sqr(cmd)
	case opAVSZ3:
		g.avsz3()
	case opAVSZ4:
		g.avsz4()
	case opGPF:
		g.gpf(cmd)
	case opGPL:
		g.gpl(cmd)
	}
	g.recomputeFlagOR()
}

// commandCycles returns the documented per-command cycle count used to
// advance the interlock timestamp. Commands without their own case
// (the lighting/coloring family among them) share one default cost of
// 19 cycles.
func commandCycles(opcode uint32) uint64 {
	switch opcode {
	case opRTPS:
		return 15
	case opRTPT:
		return 23
	case opNCLIP:
		return 8
	case opAVSZ3, opAVSZ4:
		return 5
	case opMVMVA:
		return 8
	default:
		return 19
	}
}

func (g *GTE) pushScreenFIFO(x, y int16) {
	g.data[dSXY0] = g.data[dSXY1]
	g.data[dSXY1] = g.data[dSXY2]
	g.data[dSXY2] = uint32(uint16(x)) | uint32(uint16(y))<<16
}

func (g *GTE) pushZFIFO(z uint16) {
	g.data[dSZ0] = g.data[dSZ1]
	g.data[dSZ1] = g.data[dSZ2]
	g.data[dSZ2] = g.data[dSZ3]
	g.data[dSZ3] = uint32(z)
}
