// Package cpu implements the MIPS R3000A interpreter: fetch-decode-
// execute, delayed loads, branch delay slots, the exception model, and
// the BIOS HLE hook point (§4.3).
package cpu

import (
	"ps1core/internal/bus"
	"ps1core/internal/mips"
)

// GTE is the minimal surface the CPU needs from coprocessor 2: command
// dispatch plus the data/control register file it moves words through
// via LWC2/SWC2 and COP2 instructions.
type GTE interface {
	Execute(command uint32)
	ReadData(reg uint32) uint32
	WriteData(reg uint32, value uint32)
	ReadControl(reg uint32) uint32
	WriteControl(reg uint32, value uint32)
}

// SyscallHandler is consulted on jumps into the BIOS springboard
// vectors (physical 0xA0/0xB0/0xC0); see §4.3 "HLE hook".
type SyscallHandler interface {
	// OnCall is invoked with the vector (0xA0/0xB0/0xC0), the function
	// ID ((vector>>4)<<8 | r9, so A(0x3C) is 0xA3C), and the live CPU
	// so the handler can read registers
	// and write return values. It reports whether the call was
	// handled (skip the BIOS, jump straight to $ra) or not (fall
	// through to the ROM implementation).
	OnCall(vector uint32, functionID uint32, c *CPU) (handled bool)
	// OnReturn is invoked when execution reaches an address previously
	// pushed as an exit hook target.
	OnReturn(functionID uint32, c *CPU)
}

type loadSlot struct {
	reg   uint32
	value uint32
	valid bool
}

// syscallFrame records a pending BIOS-call return address for exit hooks.
type syscallFrame struct {
	exitPC     uint32
	functionID uint32
	callerPC   uint32
}

// CPU is the MIPS R3000A interpreter state.
type CPU struct {
	Regs [32]uint32
	PC   uint32
	HI, LO uint32
	COP0 COP0

	Bus *bus.Bus
	GTE GTE
	HLE SyscallHandler

	decodeTable [4096]handler

	// current/next in-flight delayed loads (§3 "Load-delay slot").
	ldCurrent, ldNext loadSlot

	// branch-delay bookkeeping.
	branchTaken  bool
	branchTarget uint32
	inDelaySlot  bool // true while executing the instruction after a taken branch

	// exception staged by the handler just executed.
	pendingException bool
	pendingCode      mips.ExceptionCode
	pendingBadVAddr  uint32
	pendingHasBadV   bool
	pendingIsBreak   bool

	// HI/LO interlock: the scheduler timestamp at which a pending
	// multiply/divide result becomes ready.
	hiloReadyAt uint64
	nowFunc     func() uint64

	// cycle count consumed by the instruction currently executing;
	// the bus's access-timing cost and HI/LO stalls both add here.
	cycles uint32

	Stopped     bool
	Breakpoints map[uint32]bool

	callStack []syscallFrame

	// Cache enable mirrors whether cached fetches are modeled; kept as
	// a simple flag since this core does not simulate a real I-cache
	// timing model beyond "cached vs uncached region" (§4.3 step 3).
	ICacheEnabled bool
}

// New creates a CPU wired to bus b, with PC at the BIOS reset vector.
func New(b *bus.Bus) *CPU {
	c := &CPU{
		Bus:         b,
		Breakpoints: make(map[uint32]bool),
		nowFunc:     func() uint64 { return 0 },
	}
	c.buildDecodeTable()
	c.Reset()
	return c
}

// SetClock installs the function the CPU consults to know "now" for
// HI/LO interlock stalls; normally the scheduler's Now.
func (c *CPU) SetClock(now func() uint64) { c.nowFunc = now }

// Reset restores the CPU to its post-construction state: PC at the
// BIOS reset vector (0xBFC00000), SR with BEV set.
func (c *CPU) Reset() {
	c.Regs = [32]uint32{}
	c.PC = 0xBFC00000
	c.HI, c.LO = 0, 0
	c.COP0 = COP0{SR: srBEV, PRID: 0x00000002}
	c.ldCurrent = loadSlot{}
	c.ldNext = loadSlot{}
	c.branchTaken = false
	c.inDelaySlot = false
	c.pendingException = false
	c.Stopped = false
	c.callStack = nil
}

// reg reads register r, forcing r0 to read zero.
func (c *CPU) reg(r uint32) uint32 {
	if r == 0 {
		return 0
	}
	return c.Regs[r]
}

// setReg performs an immediate (non-delayed) writeback.
func (c *CPU) setReg(r uint32, v uint32) {
	if r == 0 {
		return
	}
	c.Regs[r] = v
}

// queueLoad stages a delayed-load writeback, resolved one instruction
// later per §3 "Load-delay slot". If ldCurrent already targets the
// same register, the stale pending value is discarded in favor of the
// new load (it would have been overwritten anyway).
func (c *CPU) queueLoad(r uint32, v uint32) {
	if r == 0 {
		return
	}
	if c.ldCurrent.valid && c.ldCurrent.reg == r {
		c.ldCurrent.valid = false
	}
	c.ldNext = loadSlot{reg: r, value: v, valid: true}
}

// raise stages an exception for the current instruction; the actual
// vector entry happens after the handler returns (§4.3 step 5).
func (c *CPU) raise(code mips.ExceptionCode) {
	c.pendingException = true
	c.pendingCode = code
	c.pendingHasBadV = false
}

func (c *CPU) raiseAddressError(code mips.ExceptionCode, badVAddr uint32) {
	c.pendingException = true
	c.pendingCode = code
	c.pendingBadVAddr = badVAddr
	c.pendingHasBadV = true
}

// flushLoadDelay promotes ldNext into ldCurrent and commits ldCurrent's
// value, used whenever an exception or interrupt interrupts the
// pipeline (§4.3 step 2 and step 5 both flush before vectoring).
func (c *CPU) flushLoadDelay() {
	if c.ldCurrent.valid {
		c.setReg(c.ldCurrent.reg, c.ldCurrent.value)
	}
	c.ldCurrent = c.ldNext
	c.ldNext = loadSlot{}
}

// Step executes exactly one instruction per the §4.3 "Step contract".
func (c *CPU) Step(interruptPending bool) {
	c.cycles = 0
	currentPC := c.PC
	wasInDelaySlot := c.inDelaySlot
	delayedTarget := c.branchTarget

	if currentPC&0x3 != 0 {
		c.raiseAddressError(mips.ExcADEL, currentPC)
		c.enterException(currentPC, wasInDelaySlot)
		c.inDelaySlot = false
		return
	}

	instr, fault := c.fetch(currentPC)
	if fault != nil {
		c.flushLoadDelay()
		c.raiseAddressError(fault.Code, fault.BadVAddr)
		c.pendingHasBadV = fault.BadVAddrValid
		c.enterException(currentPC, wasInDelaySlot)
		c.inDelaySlot = false
		return
	}

	isGTECommand := (instr>>26)&0x3F == 0x12 && (instr>>25)&1 == 1

	if interruptPending && c.COP0.InterruptsEnabled() && !isGTECommand {
		c.flushLoadDelay()
		c.raise(mips.ExcINT)
		c.enterException(currentPC, wasInDelaySlot)
		c.inDelaySlot = false
		return
	}

	c.pendingException = false
	c.branchTaken = false

	h := c.decodeTable[decodeKey(instr)]
	if h == nil {
		c.raise(mips.ExcRI)
	} else {
		h(c, instr)
	}

	if c.pendingException {
		c.flushLoadDelay()
		c.enterException(currentPC, wasInDelaySlot)
		c.inDelaySlot = false
		c.Regs[0] = 0
		return
	}

	// Commit delayed loads then advance PC.
	if c.ldCurrent.valid {
		c.setReg(c.ldCurrent.reg, c.ldCurrent.value)
	}
	c.ldCurrent = c.ldNext
	c.ldNext = loadSlot{}

	if c.branchTaken {
		// The delay-slot instruction at currentPC+4 runs next; the
		// target is taken after it.
		c.PC = currentPC + 4
		c.inDelaySlot = true
	} else if wasInDelaySlot {
		c.PC = delayedTarget
		c.inDelaySlot = false
		c.checkHLEHook(delayedTarget)
	} else {
		c.PC = currentPC + 4
		c.inDelaySlot = false
	}

	c.checkHLEReturn(currentPC)

	c.Regs[0] = 0
}

func (c *CPU) fetch(pc uint32) (uint32, *mips.Fault) {
	v, fault := c.Bus.Read32(pc, c.COP0.UserMode())
	return v, fault
}

// enterException performs COP0's exception entry (§4.3 "Exception entry").
func (c *CPU) enterException(pc uint32, wasInDelaySlot bool) {
	c.COP0.PushExceptionStack()
	epc := pc
	if wasInDelaySlot {
		epc = pc - 4
	}
	c.COP0.EPC = epc
	c.COP0.SetException(uint32(c.pendingCode), wasInDelaySlot)
	if c.pendingHasBadV {
		c.COP0.BadVAddr = c.pendingBadVAddr
	}
	c.PC = c.COP0.ExceptionVector(c.pendingIsBreak)
	c.pendingIsBreak = false
}

// RFE returns from exception: pops the mode/interrupt-enable stack.
func (c *CPU) RFE() { c.COP0.PopExceptionStack() }

// checkHLEHook consults the installed SyscallHandler when control
// jumps to one of the BIOS springboard vectors.
func (c *CPU) checkHLEHook(target uint32) {
	if c.HLE == nil {
		return
	}
	phys := target & 0x1FFFFFFF
	if phys != 0xA0 && phys != 0xB0 && phys != 0xC0 {
		return
	}
	functionID := ((phys >> 4) << 8) | (c.reg(9) & 0xFF)
	ra := c.reg(31)
	if c.HLE.OnCall(phys, functionID, c) {
		c.branchTaken = true
		c.branchTarget = ra
		c.PC = ra
		c.inDelaySlot = false
		return
	}
	c.callStack = append(c.callStack, syscallFrame{exitPC: ra, functionID: functionID, callerPC: target})
}

func (c *CPU) checkHLEReturn(fromPC uint32) {
	if c.HLE == nil || len(c.callStack) == 0 {
		return
	}
	top := &c.callStack[len(c.callStack)-1]
	if c.PC == top.exitPC {
		c.HLE.OnReturn(top.functionID, c)
		c.callStack = c.callStack[:len(c.callStack)-1]
	}
}

// stallHILO adds the remaining wait to the instruction-cycle counter
// if a multiply/divide result is not yet ready.
func (c *CPU) stallHILO() {
	now := c.nowFunc()
	if now < c.hiloReadyAt {
		c.cycles += uint32(c.hiloReadyAt - now)
	}
}

// AddCycles accounts for extra cycles a handler consumed beyond the
// decode/execute baseline (e.g. bus access timing, HI/LO stalls).
func (c *CPU) AddCycles(n uint32) { c.cycles += n }

// Cycles reports the number of cycles the just-executed Step consumed
// (baseline 1 plus any bus/stall cost), so the outer loop can advance
// the scheduler by the right amount.
func (c *CPU) Cycles() uint32 {
	if c.Bus != nil {
		c.cycles += c.Bus.LastAccessCycles()
	}
	return c.cycles + 1
}
