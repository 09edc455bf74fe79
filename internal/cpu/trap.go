package cpu

import "ps1core/internal/mips"

// opSyscall and opBreak raise their respective exceptions; the operand
// in the instruction's code field is informational only and this core
// does not expose it (§4.3 "Traps").
func opSyscall(c *CPU, instr uint32) { c.raise(mips.ExcSYSCALL) }

func opBreak(c *CPU, instr uint32) {
	c.raise(mips.ExcBP)
	c.pendingIsBreak = true
}
