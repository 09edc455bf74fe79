package gte

// transformVertex runs one vertex through the rotation matrix and
// translation vector, returning the clamped IR1-3 plus the raw
// (pre-shift) MAC3 accumulator SZ is always derived from (§4.4
// "Invariant": SZ uses MAC3 >> 12 regardless of the shift selector).
func (g *GTE) transformVertex(v [3]int16, sf uint32, lm bool) (ir [3]int32, rawMAC3 int64) {
	tr := g.translationVector(0)
	m := g.matrix(0)

	var shifted [3]int64
	var raw3 int64
	for i := 0; i < 3; i++ {
		acc := int64(tr[i]) * 0x1000
		acc = g.setMAC(i+1, acc+int64(m[i][0])*int64(v[0]))
		acc = g.setMAC(i+1, acc+int64(m[i][1])*int64(v[1]))
		acc = g.setMAC(i+1, acc+int64(m[i][2])*int64(v[2]))
		if i == 2 {
			raw3 = acc
		}
		shifted[i] = acc >> (sf * 12)
		g.setMAC(i+1, shifted[i])
	}
	for i := 0; i < 3; i++ {
		ir[i] = g.saturateIR(i+1, shifted[i], lm)
	}
	return ir, raw3
}

// projectScreen runs the perspective divide and pushes the screen-XY
// and Z FIFOs for one already-transformed vertex (the tail shared by
// RTPS and each vertex of RTPT).
func (g *GTE) projectScreen(ir [3]int32, rawMAC3 int64) {
	sz := g.saturateSZ3(rawMAC3 >> 12)
	g.pushZFIFO(sz)

	h := g.control[cH]
	div := int64(g.divide(h, uint32(sz)))

	ofx := int64(int32(g.control[cOFX]))
	ofy := int64(int32(g.control[cOFY]))
	dqa := int64(int16(g.control[cDQA]))
	dqb := int64(int32(g.control[cDQB]))

	mac0 := g.setMAC0(div*int64(ir[0]) + ofx)
	sx2 := g.saturateSX2(mac0 >> 16)
	mac0 = g.setMAC0(div*int64(ir[1]) + ofy)
	sy2 := g.saturateSY2(mac0 >> 16)
	mac0 = g.setMAC0(div*dqa + dqb)
	g.saturateIR0(mac0 >> 12)

	g.pushScreenFIFO(sx2, sy2)
}

// rtps implements the single-vertex perspective transform (§4.4
// "Commands"). lm is taken from the command encoding.
func (g *GTE) rtps(cmd Command, _ bool) {
	sf := cmd.SF()
	lm := cmd.LM()
	ir, rawMAC3 := g.transformVertex(g.vertex(0), sf, lm)
	g.projectScreen(ir, rawMAC3)
}

// rtpt runs RTPS's transform three times, once per vertex register.
func (g *GTE) rtpt(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	for n := 0; n < 3; n++ {
		ir, rawMAC3 := g.transformVertex(g.vertex(n), sf, lm)
		g.projectScreen(ir, rawMAC3)
	}
}

// nclip computes the Z component of the cross product of the three
// screen-XY FIFO entries, used by callers for back-face culling
// (§4.4 "Commands").
func (g *GTE) nclip() {
	sxy := func(reg uint32) (int32, int32) {
		w := g.data[reg]
		return int32(int16(w)), int32(int16(w >> 16))
	}
	x0, y0 := sxy(dSXY0)
	x1, y1 := sxy(dSXY1)
	x2, y2 := sxy(dSXY2)
	value := int64(x0)*int64(y1-y2) + int64(x1)*int64(y2-y0) + int64(x2)*int64(y0-y1)
	g.setMAC0(value)
}

// op computes the cross product of IR with the rotation matrix's
// diagonal.
func (g *GTE) op(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	m := g.matrix(0) // OP always uses the rotation matrix diagonal
	ir := g.irVector()

	mac1 := int64(ir[1])*int64(m[2][2]) - int64(ir[2])*int64(m[1][1])
	mac2 := int64(ir[2])*int64(m[0][0]) - int64(ir[0])*int64(m[2][2])
	mac3 := int64(ir[0])*int64(m[1][1]) - int64(ir[1])*int64(m[0][0])

	mac1 = g.setMAC(1, mac1) >> (sf * 12)
	mac2 = g.setMAC(2, mac2) >> (sf * 12)
	mac3 = g.setMAC(3, mac3) >> (sf * 12)
	g.setMAC(1, mac1)
	g.setMAC(2, mac2)
	g.setMAC(3, mac3)

	g.saturateIR(1, mac1, lm)
	g.saturateIR(2, mac2, lm)
	g.saturateIR(3, mac3, lm)
}

// mvmva is the generic matrix x vector (+ optional translation)
// instruction every MVMVA-derived command specializes.
func (g *GTE) mvmva(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	m := g.matrix(cmd.MulMat())
	v := g.multiplyVector(cmd.MulVec())
	tr := g.translationVector(cmd.Translation())

	var mac [3]int64
	for i := 0; i < 3; i++ {
		acc := int64(tr[i]) * 0x1000
		acc = g.setMAC(i+1, acc+int64(m[i][0])*int64(v[0]))
		acc = g.setMAC(i+1, acc+int64(m[i][1])*int64(v[1]))
		acc = g.setMAC(i+1, acc+int64(m[i][2])*int64(v[2]))
		mac[i] = acc >> (sf * 12)
		g.setMAC(i+1, mac[i])
	}
	for i := 0; i < 3; i++ {
		g.saturateIR(i+1, mac[i], lm)
	}
}

// sqr squares each component of IR1-3 (§4.4 "Commands").
func (g *GTE) sqr(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	ir := g.irVector()
	for i := 0; i < 3; i++ {
		sq := int64(ir[i]) * int64(ir[i])
		shifted := g.setMAC(i+1, sq) >> (sf * 12)
		g.setMAC(i+1, shifted)
		g.saturateIR(i+1, shifted, lm)
	}
}

// avsz3/avsz4 compute the ZSF-weighted average of the Z FIFO, used to
// derive an ordering-table key for a triangle/quad (§4.4 "Commands").
func (g *GTE) avsz3() {
	zsf := int64(int16(g.control[cZSF3]))
	sum := zsf * (int64(uint16(g.data[dSZ1])) + int64(uint16(g.data[dSZ2])) + int64(uint16(g.data[dSZ3])))
	g.setMAC0(sum)
	g.saturateOTZ(sum >> 12)
}

func (g *GTE) avsz4() {
	zsf := int64(int16(g.control[cZSF4]))
	sum := zsf * (int64(uint16(g.data[dSZ0])) + int64(uint16(g.data[dSZ1])) + int64(uint16(g.data[dSZ2])) + int64(uint16(g.data[dSZ3])))
	g.setMAC0(sum)
	g.saturateOTZ(sum >> 12)
}

// dpcs/dpct/dpcl implement the depth-cueing family: interpolate a
// source color toward the far-color vector by IR0 (§4.4 "Commands").
func (g *GTE) dpcs(cmd Command, useFIFO bool) {
	sf := cmd.SF()
	lm := cmd.LM()
	var mac [3]int64
	src := g.rgbcColor()
	for i := 0; i < 3; i++ {
		mac[i] = int64(src[i]) << 16
	}
	g.interpolate(mac, sf, lm)
	g.pushColorFromMAC()
}

func (g *GTE) dpct(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	for n := 0; n < 3; n++ {
		color := g.rgbFIFOColor(n)
		var mac [3]int64
		for i := 0; i < 3; i++ {
			mac[i] = int64(color[i]) << 16
		}
		g.interpolate(mac, sf, lm)
		g.pushColorFromMAC()
	}
}

func (g *GTE) dpcl(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	src := g.rgbcColor()
	ir := g.irVector()
	var mac [3]int64
	for i := 0; i < 3; i++ {
		mac[i] = int64(src[i])<<16 + int64(ir[i])*int64(colorDeltaWeight(src[i]))
	}
	g.interpolate(mac, sf, lm)
	g.pushColorFromMAC()
}

// colorDeltaWeight always returns 0, so DPCL seeds MAC1-3 from the
// RGBC color alone and IR1-3 add nothing to the seed.
func colorDeltaWeight(uint8) int64 { return 0 }

// intpl interpolates the current IR1-3 toward the far-color vector.
func (g *GTE) intpl(cmd Command) {
	sf := cmd.SF()
	lm := cmd.LM()
	ir := g.irVector()
	var mac [3]int64
	for i := 0; i < 3; i++ {
		mac[i] = int64(ir[i]) << 12
	}
	g.interpolate(mac, sf, lm)
	g.pushColorFromMAC()
}

// ncds/ncdt/nccs/ncct/ncs/nct/cc/cdp are the lighting/coloring family:
// each transforms a vertex normal through the light matrix, applies
// the light-color matrix, and depth-cues or tints the result. They
// share the MVMVA core with fixed matrix/vector/translation selectors
// per §4.4's command list.
func (g *GTE) lightVertex(n int, sf uint32, lm bool) [3]int32 {
	v := g.vertex(n)
	lightMat := g.matrix(1)
	var mac [3]int64
	for i := 0; i < 3; i++ {
		acc := g.setMAC(i+1, int64(lightMat[i][0])*int64(v[0]))
		acc = g.setMAC(i+1, acc+int64(lightMat[i][1])*int64(v[1]))
		acc = g.setMAC(i+1, acc+int64(lightMat[i][2])*int64(v[2]))
		mac[i] = acc >> (sf * 12)
		g.setMAC(i+1, mac[i])
	}
	var ir [3]int32
	for i := 0; i < 3; i++ {
		ir[i] = g.saturateIR(i+1, mac[i], lm)
	}
	return ir
}

func (g *GTE) colorizeVertex(ir [3]int32, sf uint32, lm bool) {
	colorMat := g.matrix(2)
	bg := g.translationVector(1)
	var mac [3]int64
	for i := 0; i < 3; i++ {
		acc := int64(bg[i]) * 0x1000
		acc = g.setMAC(i+1, acc+int64(colorMat[i][0])*int64(ir[0]))
		acc = g.setMAC(i+1, acc+int64(colorMat[i][1])*int64(ir[1]))
		acc = g.setMAC(i+1, acc+int64(colorMat[i][2])*int64(ir[2]))
		mac[i] = acc >> (sf * 12)
		g.setMAC(i+1, mac[i])
	}
	src := g.rgbcColor()
	for i := 0; i < 3; i++ {
		mac[i] = g.setMAC(i+1, int64(src[i])<<4+mac[i])
	}
	for i := 0; i < 3; i++ {
		g.saturateIR(i+1, mac[i], lm)
	}
}

func (g *GTE) ncs(cmd Command, n int) {
	ir := g.lightVertex(n, cmd.SF(), cmd.LM())
	g.colorizeVertex(ir, cmd.SF(), cmd.LM())
	g.pushColorFromMAC()
}

func (g *GTE) nct(cmd Command) {
	for n := 0; n < 3; n++ {
		g.ncs(cmd, n)
	}
}

func (g *GTE) ncds(cmd Command, n int) {
	sf, lm := cmd.SF(), cmd.LM()
	ir := g.lightVertex(n, sf, lm)
	g.colorizeVertex(ir, sf, lm)
	var mac [3]int64
	for i := 0; i < 3; i++ {
		mac[i] = int64(int32(g.data[dMAC1+uint32(i)])) << (sf * 12)
	}
	g.interpolate(mac, sf, lm)
	g.pushColorFromMAC()
}

func (g *GTE) ncdt(cmd Command) {
	for n := 0; n < 3; n++ {
		g.ncds(cmd, n)
	}
}

func (g *GTE) nccs(cmd Command, n int) {
	sf, lm := cmd.SF(), cmd.LM()
	ir := g.lightVertex(n, sf, lm)
	g.colorizeVertex(ir, sf, lm)
	g.pushColorFromMAC()
}

func (g *GTE) ncct(cmd Command) {
	for n := 0; n < 3; n++ {
		g.nccs(cmd, n)
	}
}

func (g *GTE) cc(cmd Command) {
	sf, lm := cmd.SF(), cmd.LM()
	ir := g.irVector()
	g.colorizeVertex([3]int32{int32(ir[0]), int32(ir[1]), int32(ir[2])}, sf, lm)
	g.pushColorFromMAC()
}

func (g *GTE) cdp(cmd Command) {
	sf, lm := cmd.SF(), cmd.LM()
	ir := g.irVector()
	g.colorizeVertex([3]int32{int32(ir[0]), int32(ir[1]), int32(ir[2])}, sf, lm)
	var mac [3]int64
	for i := 0; i < 3; i++ {
		mac[i] = int64(int32(g.data[dMAC1+uint32(i)])) << (sf * 12)
	}
	g.interpolate(mac, sf, lm)
	g.pushColorFromMAC()
}

// gpf/gpl are the general-purpose interpolation commands: GPF scales
// IR1-3 by IR0, GPL adds the running MAC1-3 to the IR0-scaled product.
func (g *GTE) gpf(cmd Command) {
	sf, lm := cmd.SF(), cmd.LM()
	ir0 := int64(int16(g.data[dIR0]))
	ir := g.irVector()
	for i := 0; i < 3; i++ {
		shifted := g.setMAC(i+1, ir0*int64(ir[i])) >> (sf * 12)
		g.setMAC(i+1, shifted)
		g.saturateIR(i+1, shifted, lm)
	}
	g.pushColorFromMAC()
}

func (g *GTE) gpl(cmd Command) {
	sf, lm := cmd.SF(), cmd.LM()
	ir0 := int64(int16(g.data[dIR0]))
	ir := g.irVector()
	for i := 0; i < 3; i++ {
		prior := int64(int32(g.data[dMAC1+uint32(i)])) << (sf * 12)
		shifted := g.setMAC(i+1, prior+ir0*int64(ir[i])) >> (sf * 12)
		g.setMAC(i+1, shifted)
		g.saturateIR(i+1, shifted, lm)
	}
	g.pushColorFromMAC()
}

// rgbcColor reads the source color register (RGBC, reg 6) as 3 bytes,
// shared by the depth-cueing and coloring commands.
func (g *GTE) rgbcColor() [3]uint8 {
	w := g.data[dRGB]
	return [3]uint8{uint8(w), uint8(w >> 8), uint8(w >> 16)}
}

// rgbFIFOColor reads one of the three color-FIFO entries (used by DPCT).
func (g *GTE) rgbFIFOColor(n int) [3]uint8 {
	reg := uint32(dRGB0 + n)
	w := g.data[reg]
	return [3]uint8{uint8(w), uint8(w >> 8), uint8(w >> 16)}
}
