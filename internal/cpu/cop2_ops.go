package cpu

import "ps1core/internal/mips"

// COP2 (GTE) data transfer instructions move words between a GPR and the
// GTE's data/control register files, or dispatch a GTE command, per
// §4.3 "Coprocessor instructions". All of them fault with COU when the
// GTE has not been enabled via SR.CU2, and are no-ops (beyond the raise)
// if no GTE is wired in at all.
func opMfc2(c *CPU, instr uint32) {
	if !c.gteReady() {
		return
	}
	c.queueLoad(rt(instr), c.GTE.ReadData(rd(instr)))
}

func opCfc2(c *CPU, instr uint32) {
	if !c.gteReady() {
		return
	}
	c.queueLoad(rt(instr), c.GTE.ReadControl(rd(instr)))
}

func opMtc2(c *CPU, instr uint32) {
	if !c.gteReady() {
		return
	}
	c.GTE.WriteData(rd(instr), c.reg(rt(instr)))
}

func opCtc2(c *CPU, instr uint32) {
	if !c.gteReady() {
		return
	}
	c.GTE.WriteControl(rd(instr), c.reg(rt(instr)))
}

// opCop2Exec dispatches a GTE command encoded in the low 25 bits of the
// instruction word.
func opCop2Exec(c *CPU, instr uint32) {
	if !c.gteReady() {
		return
	}
	c.GTE.Execute(instr & 0x1FFFFFF)
}

// opCopUnusable handles COP1/COP3: neither coprocessor exists on this
// machine, so any instruction encoding them always faults.
func opCopUnusable(c *CPU, instr uint32) { c.raise(mips.ExcCOU) }

// gteReady raises COU and reports false unless SR.CU2 is set and a GTE
// implementation is wired in.
func (c *CPU) gteReady() bool {
	if !c.COP0.COP2Enabled() {
		c.raise(mips.ExcCOU)
		return false
	}
	return c.GTE != nil
}

func opLwc2(c *CPU, instr uint32) {
	v, fault := c.Bus.Read32(effAddr(c, instr), c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	if !c.gteReady() {
		return
	}
	c.GTE.WriteData(rt(instr), v)
}

func opSwc2(c *CPU, instr uint32) {
	if !c.gteReady() {
		return
	}
	v := c.GTE.ReadData(rt(instr))
	if f := c.Bus.Write32(effAddr(c, instr), v, c.COP0.UserMode()); f != nil {
		c.raiseAddressError(f.Code, f.BadVAddr)
	}
}
