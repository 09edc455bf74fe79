package cpu

func effAddr(c *CPU, instr uint32) uint32 { return c.reg(rs(instr)) + simm16(instr) }

func opLb(c *CPU, instr uint32) {
	v, fault := c.Bus.ReadS8(effAddr(c, instr), c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	c.queueLoad(rt(instr), v)
}
func opLbu(c *CPU, instr uint32) {
	v, fault := c.Bus.Read8(effAddr(c, instr), c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	c.queueLoad(rt(instr), v)
}
func opLh(c *CPU, instr uint32) {
	v, fault := c.Bus.ReadS16(effAddr(c, instr), c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	c.queueLoad(rt(instr), v)
}
func opLhu(c *CPU, instr uint32) {
	v, fault := c.Bus.Read16(effAddr(c, instr), c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	c.queueLoad(rt(instr), v)
}
func opLw(c *CPU, instr uint32) {
	v, fault := c.Bus.Read32(effAddr(c, instr), c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	c.queueLoad(rt(instr), v)
}

func opSb(c *CPU, instr uint32) {
	if fault := c.Bus.Write8(effAddr(c, instr), c.reg(rt(instr))&0xFF, c.COP0.UserMode()); fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
	}
}
func opSh(c *CPU, instr uint32) {
	if fault := c.Bus.Write16(effAddr(c, instr), c.reg(rt(instr))&0xFFFF, c.COP0.UserMode()); fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
	}
}
func opSw(c *CPU, instr uint32) {
	if fault := c.Bus.Write32(effAddr(c, instr), c.reg(rt(instr)), c.COP0.UserMode()); fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
	}
}

// LWL/LWR/SWL/SWR implement the canonical MIPS unaligned word access:
// merge a masked slice of the word-aligned source word with the
// register's untouched bytes, keyed by the low two bits of the
// effective address (§4.3 "Unaligned load/store").
func opLwl(c *CPU, instr uint32) {
	addr := effAddr(c, instr)
	aligned := addr &^ 3
	word, fault := c.Bus.Read32(aligned, c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	existing := c.reg(rt(instr))
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = (existing & 0x00FFFFFF) | (word << 24)
	case 1:
		merged = (existing & 0x0000FFFF) | (word << 16)
	case 2:
		merged = (existing & 0x000000FF) | (word << 8)
	default:
		merged = word
	}
	c.queueLoad(rt(instr), merged)
}

func opLwr(c *CPU, instr uint32) {
	addr := effAddr(c, instr)
	aligned := addr &^ 3
	word, fault := c.Bus.Read32(aligned, c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	existing := c.reg(rt(instr))
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = word
	case 1:
		merged = (existing & 0xFF000000) | (word >> 8)
	case 2:
		merged = (existing & 0xFFFF0000) | (word >> 16)
	default:
		merged = (existing & 0xFFFFFF00) | (word >> 24)
	}
	c.queueLoad(rt(instr), merged)
}

func opSwl(c *CPU, instr uint32) {
	addr := effAddr(c, instr)
	aligned := addr &^ 3
	word, fault := c.Bus.Read32(aligned, c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	rtv := c.reg(rt(instr))
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = (word & 0xFFFFFF00) | (rtv >> 24)
	case 1:
		merged = (word & 0xFFFF0000) | (rtv >> 16)
	case 2:
		merged = (word & 0xFF000000) | (rtv >> 8)
	default:
		merged = rtv
	}
	if f := c.Bus.Write32(aligned, merged, c.COP0.UserMode()); f != nil {
		c.raiseAddressError(f.Code, f.BadVAddr)
	}
}

func opSwr(c *CPU, instr uint32) {
	addr := effAddr(c, instr)
	aligned := addr &^ 3
	word, fault := c.Bus.Read32(aligned, c.COP0.UserMode())
	if fault != nil {
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		return
	}
	rtv := c.reg(rt(instr))
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = rtv
	case 1:
		merged = (word & 0x000000FF) | (rtv << 8)
	case 2:
		merged = (word & 0x0000FFFF) | (rtv << 16)
	default:
		merged = (word & 0x00FFFFFF) | (rtv << 24)
	}
	if f := c.Bus.Write32(aligned, merged, c.COP0.UserMode()); f != nil {
		c.raiseAddressError(f.Code, f.BadVAddr)
	}
}
