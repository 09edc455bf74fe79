package gte

// Saturating register setters implementing §4.4 "Arithmetic helpers".
// Each records the appropriate sticky flag bit and returns the
// (possibly wider) value the caller needs for downstream computation,
// while the stored register always takes the truncated/clamped form.

const (
	mac43Max = int64(1) << 43
	mac43Min = -(int64(1) << 43)
)

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// setMAC stores a MAC1/2/3 accumulator result, flagging 44-bit
// overflow without altering the value (the register itself only ever
// holds the low 32 bits, matching hardware truncation).
func (g *GTE) setMAC(n int, value int64) int64 {
	if value >= mac43Max {
		g.setFlag(macPosFlag(n))
	} else if value < mac43Min {
		g.setFlag(macNegFlag(n))
	}
	reg := uint32(dMAC1 + n - 1)
	g.data[reg] = uint32(int32(value))
	return value
}

func macPosFlag(n int) uint32 {
	switch n {
	case 1:
		return flagMAC1Pos
	case 2:
		return flagMAC2Pos
	default:
		return flagMAC3Pos
	}
}

func macNegFlag(n int) uint32 {
	switch n {
	case 1:
		return flagMAC1Neg
	case 2:
		return flagMAC2Neg
	default:
		return flagMAC3Neg
	}
}

func (g *GTE) setMAC0(value int64) int64 {
	if value >= int64(1)<<31 {
		g.setFlag(flagMAC0Pos)
	} else if value < -(int64(1) << 31) {
		g.setFlag(flagMAC0Neg)
	}
	g.data[dMAC0] = uint32(int32(value))
	return value
}

// saturateIR clamps to 0..0x7FFF when lm, else -0x8000..0x7FFF, records
// the per-register saturation flag, and stores the result, also
// refreshing the packed IRGB mirror the way hardware does on every
// IR1-3 write (§4.4 register file notes).
func (g *GTE) saturateIR(n int, value int64, lm bool) int32 {
	lo, hi := int64(-0x8000), int64(0x7FFF)
	if lm {
		lo = 0
	}
	clamped := value
	if value < lo || value > hi {
		g.setFlag(irSatFlag(n))
		clamped = clamp64(value, lo, hi)
	}
	reg := uint32(dIR1 + n - 1)
	g.data[reg] = uint32(int32(clamped))
	g.refreshIRGB()
	return int32(clamped)
}

func irSatFlag(n int) uint32 {
	switch n {
	case 1:
		return flagIR1Sat
	case 2:
		return flagIR2Sat
	default:
		return flagIR3Sat
	}
}

// refreshIRGB recomputes the derived 15-bit packed color mirror from
// the current IR1-3 values (register 28, read-only ORGB mirror at 29).
func (g *GTE) refreshIRGB() {
	clamp := func(v int32, lo, hi int32) int32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	r := uint32(clamp(int32(g.data[dIR1])/0x80, 0, 0x1F))
	gc := uint32(clamp(int32(g.data[dIR2])/0x80, 0, 0x1F))
	b := uint32(clamp(int32(g.data[dIR3])/0x80, 0, 0x1F))
	packed := r | gc<<5 | b<<10
	g.data[dIRGB] = packed
	g.data[dORGB] = packed
}

func (g *GTE) saturateIR0(value int64) int32 {
	clamped := value
	if value < 0 || value > 0x1000 {
		g.setFlag(flagIR0Sat)
		clamped = clamp64(value, 0, 0x1000)
	}
	g.data[dIR0] = uint32(int32(clamped))
	return int32(clamped)
}

func (g *GTE) saturateSX2(value int64) int16 {
	clamped := value
	if value < -0x400 || value > 0x3FF {
		g.setFlag(flagSX2Sat)
		clamped = clamp64(value, -0x400, 0x3FF)
	}
	return int16(clamped)
}

func (g *GTE) saturateSY2(value int64) int16 {
	clamped := value
	if value < -0x400 || value > 0x3FF {
		g.setFlag(flagSY2Sat)
		clamped = clamp64(value, -0x400, 0x3FF)
	}
	return int16(clamped)
}

func (g *GTE) saturateSZ3(value int64) uint16 {
	clamped := value
	if value < 0 || value > 0xFFFF {
		g.setFlag(flagOTZSat)
		clamped = clamp64(value, 0, 0xFFFF)
	}
	return uint16(clamped)
}

func (g *GTE) saturateOTZ(value int64) uint16 {
	v := g.saturateSZ3(value)
	g.data[dOTZ] = uint32(v)
	return v
}

func (g *GTE) saturateColor(value int64) uint8 {
	clamped := value
	if value < 0 || value > 0xFF {
		clamped = clamp64(value, 0, 0xFF)
	}
	return uint8(clamped)
}

// reciprocalTable is the 257-entry Unsigned Newton-Raphson lookup
// table documented in no$psx and used by the reciprocal divider below.
var reciprocalTable = buildReciprocalTable()

func buildReciprocalTable() [257]uint32 {
	var tab [257]uint32
	for i := 0; i < 257; i++ {
		v := (0x40000/(i+0x100) + 1) / 2 - 0x101
		if v < 0 {
			v = 0
		}
		tab[i] = uint32(v)
	}
	return tab
}

func countLeadingZeros16(v uint16) uint32 {
	n := uint32(0)
	for bit := 15; bit >= 0; bit-- {
		if v&(1<<uint(bit)) != 0 {
			break
		}
		n++
	}
	return n
}

// divide implements the reciprocal divider from §4.4: for h < 2*sz it
// runs the UNR-table Newton-Raphson approximation; otherwise it
// saturates to 0x1FFFF and flags divide overflow.
func (g *GTE) divide(h, sz uint32) uint32 {
	if sz == 0 || h >= sz*2 {
		g.setFlag(flagDivOvf)
		return 0x1FFFF
	}
	shift := countLeadingZeros16(uint16(sz))
	numer := uint64(h) << shift
	denom := uint64(sz) << shift
	divisor := reciprocalTable[(denom-0x7FC0)>>7] + 0x101
	d := (0x2000080 - denom*uint64(divisor)) >> 8
	d = (0x80 + d*uint64(divisor)) >> 8
	result := (numer*d + 0x8000) >> 16
	if result > 0x1FFFF {
		return 0x1FFFF
	}
	return uint32(result)
}

// matrix reads one of the four selectable 3x3 matrices (ROT/LIGHT/
// COLOR/INVALID-zero, per the MVMVA matrix selector). Each control
// register packs two consecutive row-major matrix elements into its
// low/high halfwords, with the final element alone in its own word.
func (g *GTE) matrix(sel uint32) [3][3]int32 {
	lo := func(w uint32) int32 { return int32(int16(w)) }
	hi := func(w uint32) int32 { return int32(int16(w >> 16)) }

	pack := func(r12, r34, r56, r78, r9 uint32) [3][3]int32 {
		return [3][3]int32{
			{lo(r12), hi(r12), lo(r34)},
			{hi(r34), lo(r56), hi(r56)},
			{lo(r78), hi(r78), lo(r9)},
		}
	}

	switch sel {
	case 0: // rotation
		return pack(g.control[cRT11RT12], g.control[cRT13RT21], g.control[cRT22RT23], g.control[cRT31RT32], g.control[cRT33])
	case 1: // light
		return pack(g.control[cL11L12], g.control[cL13L21], g.control[cL22L23], g.control[cL31L32], g.control[cL33])
	case 2: // color (light-color)
		return pack(g.control[cLR1LR2], g.control[cLR3LG1], g.control[cLG2LG3], g.control[cLB1LB2], g.control[cLB3])
	default: // "invalid": garbage matrix, modeled as zero
		return [3][3]int32{}
	}
}

// translationVector reads the selectable translation vector (TR/BK/FC/none).
func (g *GTE) translationVector(sel uint32) [3]int32 {
	switch sel {
	case 0:
		return [3]int32{int32(g.control[cTRX]), int32(g.control[cTRY]), int32(g.control[cTRZ])}
	case 1:
		return [3]int32{int32(g.control[cRBK]), int32(g.control[cGBK]), int32(g.control[cBBK])}
	case 2:
		return [3]int32{int32(g.control[cRFC]), int32(g.control[cGFC]), int32(g.control[cBFC])}
	default:
		return [3]int32{}
	}
}

func (g *GTE) vertex(n int) [3]int16 {
	switch n {
	case 0:
		return [3]int16{int16(g.data[dV0XY]), int16(g.data[dV0XY] >> 16), int16(g.data[dV0Z])}
	case 1:
		return [3]int16{int16(g.data[dV1XY]), int16(g.data[dV1XY] >> 16), int16(g.data[dV1Z])}
	default:
		return [3]int16{int16(g.data[dV2XY]), int16(g.data[dV2XY] >> 16), int16(g.data[dV2Z])}
	}
}

func (g *GTE) irVector() [3]int16 {
	return [3]int16{int16(g.data[dIR1]), int16(g.data[dIR2]), int16(g.data[dIR3])}
}

// multiplyVector selects the MVMVA source vector (V0/V1/V2/IR).
func (g *GTE) multiplyVector(sel uint32) [3]int16 {
	switch sel {
	case 0:
		return g.vertex(0)
	case 1:
		return g.vertex(1)
	case 2:
		return g.vertex(2)
	default:
		return g.irVector()
	}
}

// vectorMatMul computes mat*vec + translation, shifted by sf*12, and
// writes the saturated result through MAC1-3/IR1-3 (the shared core of
// RTPS/RTPT/MVMVA/NC*/CC, per §4.4).
func (g *GTE) vectorMatMul(m [3][3]int32, v [3]int16, tr [3]int32, lm bool, sf uint32) [3]int32 {
	var mac [3]int64
	for i := 0; i < 3; i++ {
		acc := int64(tr[i]) * 0x1000
		acc = int64(g.setMAC(i+1, acc+int64(m[i][0])*int64(v[0])))
		acc = int64(g.setMAC(i+1, acc+int64(m[i][1])*int64(v[1])))
		acc = int64(g.setMAC(i+1, acc+int64(m[i][2])*int64(v[2])))
		mac[i] = acc >> (sf * 12)
		g.setMAC(i+1, mac[i])
	}
	var out [3]int32
	for i := 0; i < 3; i++ {
		out[i] = g.saturateIR(i+1, mac[i], lm)
	}
	return out
}

// interpolate blends mac with the far-color vector via IR0, shared by
// DPCS/DPCT/DPCL/INTPL/NCDS/CDP (§4.4).
func (g *GTE) interpolate(mac [3]int64, sf uint32, lm bool) [3]int32 {
	fc := [3]int32{int32(g.control[cRFC]), int32(g.control[cGFC]), int32(g.control[cBFC])}
	ir0 := int64(int16(g.data[dIR0]))
	var result [3]int64
	for i := 0; i < 3; i++ {
		diff := int64(fc[i])*0x1000 - mac[i]
		diff = int64(g.setMAC(i+1, diff))
		shifted := diff >> (sf * 12)
		blended := g.setMAC(i+1, shifted*ir0+mac[i])
		result[i] = blended >> (sf * 12)
		g.setMAC(i+1, result[i])
	}
	var out [3]int32
	for i := 0; i < 3; i++ {
		out[i] = g.saturateIR(i+1, result[i], lm)
	}
	return out
}

// pushColorFromMAC derives an RGB-plus-code byte quad from MAC1-3 and
// pushes it through the color FIFO (§4.4 register file "color FIFO").
func (g *GTE) pushColorFromMAC() {
	r := g.saturateColor(int64(int32(g.data[dMAC1])) >> 4)
	gc := g.saturateColor(int64(int32(g.data[dMAC2])) >> 4)
	b := g.saturateColor(int64(int32(g.data[dMAC3])) >> 4)
	if int32(g.data[dMAC1])>>4 < 0 || int32(g.data[dMAC1])>>4 > 0xFF {
		g.setFlag(flagColorR)
	}
	if int32(g.data[dMAC2])>>4 < 0 || int32(g.data[dMAC2])>>4 > 0xFF {
		g.setFlag(flagColorG)
	}
	if int32(g.data[dMAC3])>>4 < 0 || int32(g.data[dMAC3])>>4 > 0xFF {
		g.setFlag(flagColorB)
	}
	code := uint8(g.data[dRGB2] >> 24)
	g.data[dRGB0] = g.data[dRGB1]
	g.data[dRGB1] = g.data[dRGB2]
	g.data[dRGB2] = uint32(r) | uint32(gc)<<8 | uint32(b)<<16 | uint32(code)<<24
}
