package cpu

import "ps1core/internal/mips"

// --- Immediate ALU ops ---

func opAddi(c *CPU, instr uint32) {
	a := int32(c.reg(rs(instr)))
	b := int32(simm16(instr))
	sum := a + b
	if overflowsAdd(a, b, sum) {
		c.raise(mips.ExcOV)
		return
	}
	c.setReg(rt(instr), uint32(sum))
}

func opAddiu(c *CPU, instr uint32) {
	c.setReg(rt(instr), c.reg(rs(instr))+simm16(instr))
}

func opSlti(c *CPU, instr uint32) {
	v := uint32(0)
	if int32(c.reg(rs(instr))) < int32(simm16(instr)) {
		v = 1
	}
	c.setReg(rt(instr), v)
}

func opSltiu(c *CPU, instr uint32) {
	v := uint32(0)
	if c.reg(rs(instr)) < simm16(instr) {
		v = 1
	}
	c.setReg(rt(instr), v)
}

func opAndi(c *CPU, instr uint32) { c.setReg(rt(instr), c.reg(rs(instr))&imm16(instr)) }
func opOri(c *CPU, instr uint32)  { c.setReg(rt(instr), c.reg(rs(instr))|imm16(instr)) }
func opXori(c *CPU, instr uint32) { c.setReg(rt(instr), c.reg(rs(instr))^imm16(instr)) }
func opLui(c *CPU, instr uint32)  { c.setReg(rt(instr), imm16(instr)<<16) }

// --- Register ALU ops ---

func opSll(c *CPU, instr uint32)  { c.setReg(rd(instr), c.reg(rt(instr))<<shamt(instr)) }
func opSrl(c *CPU, instr uint32)  { c.setReg(rd(instr), c.reg(rt(instr))>>shamt(instr)) }
func opSra(c *CPU, instr uint32) {
	c.setReg(rd(instr), uint32(int32(c.reg(rt(instr)))>>shamt(instr)))
}
func opSllv(c *CPU, instr uint32) { c.setReg(rd(instr), c.reg(rt(instr))<<(c.reg(rs(instr))&0x1F)) }
func opSrlv(c *CPU, instr uint32) { c.setReg(rd(instr), c.reg(rt(instr))>>(c.reg(rs(instr))&0x1F)) }
func opSrav(c *CPU, instr uint32) {
	c.setReg(rd(instr), uint32(int32(c.reg(rt(instr)))>>(c.reg(rs(instr))&0x1F)))
}

func overflowsAdd(a, b, sum int32) bool {
	return (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0)
}
func overflowsSub(a, b, diff int32) bool {
	return (a >= 0 && b < 0 && diff < 0) || (a < 0 && b >= 0 && diff >= 0)
}

func opAdd(c *CPU, instr uint32) {
	a := int32(c.reg(rs(instr)))
	b := int32(c.reg(rt(instr)))
	sum := a + b
	if overflowsAdd(a, b, sum) {
		c.raise(mips.ExcOV)
		return
	}
	c.setReg(rd(instr), uint32(sum))
}

func opAddu(c *CPU, instr uint32) { c.setReg(rd(instr), c.reg(rs(instr))+c.reg(rt(instr))) }

func opSub(c *CPU, instr uint32) {
	a := int32(c.reg(rs(instr)))
	b := int32(c.reg(rt(instr)))
	diff := a - b
	if overflowsSub(a, b, diff) {
		c.raise(mips.ExcOV)
		return
	}
	c.setReg(rd(instr), uint32(diff))
}

func opSubu(c *CPU, instr uint32) { c.setReg(rd(instr), c.reg(rs(instr))-c.reg(rt(instr))) }
func opAnd(c *CPU, instr uint32)  { c.setReg(rd(instr), c.reg(rs(instr))&c.reg(rt(instr))) }
func opOr(c *CPU, instr uint32)   { c.setReg(rd(instr), c.reg(rs(instr))|c.reg(rt(instr))) }
func opXor(c *CPU, instr uint32)  { c.setReg(rd(instr), c.reg(rs(instr))^c.reg(rt(instr))) }
func opNor(c *CPU, instr uint32)  { c.setReg(rd(instr), ^(c.reg(rs(instr)) | c.reg(rt(instr)))) }

func opSlt(c *CPU, instr uint32) {
	v := uint32(0)
	if int32(c.reg(rs(instr))) < int32(c.reg(rt(instr))) {
		v = 1
	}
	c.setReg(rd(instr), v)
}
func opSltu(c *CPU, instr uint32) {
	v := uint32(0)
	if c.reg(rs(instr)) < c.reg(rt(instr)) {
		v = 1
	}
	c.setReg(rd(instr), v)
}

// --- Multiply/divide, with HI/LO interlock (§4.3 "Arithmetic") ---

const (
	mulCycles = 7
	divCycles = 36
)

func opMult(c *CPU, instr uint32) {
	a := int64(int32(c.reg(rs(instr))))
	b := int64(int32(c.reg(rt(instr))))
	p := uint64(a * b)
	c.LO = uint32(p)
	c.HI = uint32(p >> 32)
	c.hiloReadyAt = c.nowFunc() + mulCycles
}

func opMultu(c *CPU, instr uint32) {
	p := uint64(c.reg(rs(instr))) * uint64(c.reg(rt(instr)))
	c.LO = uint32(p)
	c.HI = uint32(p >> 32)
	c.hiloReadyAt = c.nowFunc() + mulCycles
}

func opDiv(c *CPU, instr uint32) {
	n := int32(c.reg(rs(instr)))
	d := int32(c.reg(rt(instr)))
	switch {
	case d == 0:
		if n >= 0 {
			c.LO = 0xFFFFFFFF // -1
		} else {
			c.LO = 1
		}
		c.HI = uint32(n)
	case n == -0x80000000 && d == -1:
		c.LO = uint32(n)
		c.HI = 0
	default:
		c.LO = uint32(n / d)
		c.HI = uint32(n % d)
	}
	c.hiloReadyAt = c.nowFunc() + divCycles
}

func opDivu(c *CPU, instr uint32) {
	n := c.reg(rs(instr))
	d := c.reg(rt(instr))
	if d == 0 {
		c.LO = 0xFFFFFFFF
		c.HI = n
	} else {
		c.LO = n / d
		c.HI = n % d
	}
	c.hiloReadyAt = c.nowFunc() + divCycles
}

func opMfhi(c *CPU, instr uint32) { c.stallHILO(); c.setReg(rd(instr), c.HI) }
func opMflo(c *CPU, instr uint32) { c.stallHILO(); c.setReg(rd(instr), c.LO) }
func opMthi(c *CPU, instr uint32) { c.HI = c.reg(rs(instr)) }
func opMtlo(c *CPU, instr uint32) { c.LO = c.reg(rs(instr)) }
