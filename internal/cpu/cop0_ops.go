package cpu

import "ps1core/internal/mips"

// cop0Reg reads a COP0 register by number (§3 "CPU state" register list).
// Unmapped registers read back as zero, matching real hardware's behavior
// for registers this core does not model individually.
func (c *CPU) cop0Reg(r uint32) uint32 {
	switch r {
	case 3:
		return c.COP0.BPC
	case 5:
		return c.COP0.BDA
	case 6:
		return c.COP0.JUMPDEST
	case 7:
		return c.COP0.DCIC
	case 8:
		return c.COP0.BadVAddr
	case 9:
		return c.COP0.BPCM
	case 12:
		return c.COP0.SR
	case 13:
		return c.COP0.CAUSE
	case 14:
		return c.COP0.EPC
	case 15:
		return c.COP0.PRID
	default:
		return 0
	}
}

func (c *CPU) setCop0Reg(r uint32, v uint32) {
	switch r {
	case 3:
		c.COP0.BPC = v
	case 5:
		c.COP0.BDA = v
	case 6:
		c.COP0.JUMPDEST = v
	case 7:
		c.COP0.DCIC = v
	case 9:
		c.COP0.BPCM = v
	case 12:
		c.COP0.SR = v
	case 13:
		// Only the software-writable bits of CAUSE may be set by MTC0.
		c.COP0.CAUSE = (c.COP0.CAUSE &^ (0x3 << 8)) | (v & (0x3 << 8))
	// BadVAddr, EPC, PRID are read-only from the CPU's point of view.
	default:
	}
}

func opMfc0(c *CPU, instr uint32) { c.queueLoad(rt(instr), c.cop0Reg(rd(instr))) }

// opMtc0 writes through immediately; COP0 register writes are not
// delayed the way CPU loads are (§4.3 "Coprocessor instructions").
func opMtc0(c *CPU, instr uint32) { c.setCop0Reg(rd(instr), c.reg(rt(instr))) }

// opCop0Exec dispatches COP0 "CO" functions; the only one this core
// implements is RFE (function 0x10). Anything else is a reserved
// instruction on real hardware.
func opCop0Exec(c *CPU, instr uint32) {
	if funct(instr) == 0x10 {
		c.RFE()
		return
	}
	c.raise(mips.ExcRI)
}
