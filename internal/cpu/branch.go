package cpu

// branch stages a taken branch/jump; PC only moves to the target after
// the branch-delay-slot instruction has also executed (§4.3 step 5).
func (c *CPU) branch(target uint32) {
	c.branchTaken = true
	c.branchTarget = target
}

func branchTargetRel(pc, instr uint32) uint32 {
	return pc + 4 + (simm16(instr) << 2)
}

func opJ_(c *CPU, instr uint32) {
	target := (c.PC & 0xF0000000) | (target26(instr) << 2)
	c.branch(target)
}

func opJal(c *CPU, instr uint32) {
	c.setReg(31, c.PC+8)
	target := (c.PC & 0xF0000000) | (target26(instr) << 2)
	c.branch(target)
}

func opJr(c *CPU, instr uint32) { c.branch(c.reg(rs(instr))) }

func opJalr(c *CPU, instr uint32) {
	target := c.reg(rs(instr))
	linkReg := rd(instr)
	if linkReg == 0 {
		linkReg = 31
	}
	c.setReg(linkReg, c.PC+8)
	c.branch(target)
}

func opBeq(c *CPU, instr uint32) {
	if c.reg(rs(instr)) == c.reg(rt(instr)) {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
func opBne(c *CPU, instr uint32) {
	if c.reg(rs(instr)) != c.reg(rt(instr)) {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
func opBlez(c *CPU, instr uint32) {
	if int32(c.reg(rs(instr))) <= 0 {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
func opBgtz(c *CPU, instr uint32) {
	if int32(c.reg(rs(instr))) > 0 {
		c.branch(branchTargetRel(c.PC, instr))
	}
}

func opBltz(c *CPU, instr uint32) {
	if int32(c.reg(rs(instr))) < 0 {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
func opBgez(c *CPU, instr uint32) {
	if int32(c.reg(rs(instr))) >= 0 {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
func opBltzal(c *CPU, instr uint32) {
	c.setReg(31, c.PC+8)
	if int32(c.reg(rs(instr))) < 0 {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
func opBgezal(c *CPU, instr uint32) {
	c.setReg(31, c.PC+8)
	if int32(c.reg(rs(instr))) >= 0 {
		c.branch(branchTargetRel(c.PC, instr))
	}
}
