// Package hle implements the BIOS call hook table consulted by the
// CPU's SyscallHandler seam (§4.3 "HLE hook"): a function-ID-keyed
// table of names and parameter descriptors used to trace calls
// through the 0xA0/0xB0/0xC0 springboard vectors, and the small set
// of calls whose effect is actually intercepted rather than traced.
package hle

import (
	"fmt"
	"strings"

	"ps1core/internal/cpu"
	"ps1core/internal/logger"
)

// ParamType is the argument kind used to format a traced call, lifted
// from the set the original syscall table annotates each parameter
// with (INT/UINT/CHAR/pointers/enums).
type ParamType int

const (
	ParamInt ParamType = iota
	ParamUint
	ParamChar
	ParamCharPtr
	ParamVoidPtr
	ParamBool
	ParamAccessMode
	ParamSeekMode
	ParamEventClass
	ParamEventMode
)

// Param names one argument of a traced call.
type Param struct {
	Name string
	Type ParamType
}

// Call describes one BIOS function: its human name and argument list,
// keyed by FunctionID = ((vector>>4)<<8) | r9 (so 0xA0 function 0x42
// is 0xA42, matching the BIOS's own A/B/C table numbering).
type Call struct {
	Name   string
	Params []Param
}

// Memory is the subset of guest memory the tracer needs to read
// CHAR_PTR arguments (for logging a string argument's contents).
type Memory interface {
	ReadByte(addr uint32) byte
}

// Handler implements cpu.SyscallHandler: by default it does not
// emulate BIOS behavior (everything still runs through the real ROM),
// it only observes and logs calls/returns, matching the "not a real
// HLE version of the kernel, simply utilities for retrieving status"
// posture of the traced BIOS inspection tools this is grounded on. A
// function installed with Intercept runs on its call and may
// short-circuit it.
type Handler struct {
	table map[uint32]Call
	mem   Memory
	log   *logger.Logger

	// intercept, when non-nil for a function ID, is actually invoked
	// and may short-circuit the BIOS call by returning handled=true.
	intercept map[uint32]func(c *cpu.CPU) (handled bool)
}

// New creates a Handler with the standard BIOS call table installed.
func New(mem Memory, log *logger.Logger) *Handler {
	h := &Handler{
		table:     defaultTable(),
		mem:       mem,
		log:       log,
		intercept: make(map[uint32]func(c *cpu.CPU) (handled bool)),
	}
	return h
}

// Intercept installs fn to run (and potentially short-circuit) calls
// to the named function ID, instead of merely tracing them.
func (h *Handler) Intercept(functionID uint32, fn func(c *cpu.CPU) (handled bool)) {
	h.intercept[functionID] = fn
}

// OnCall implements cpu.SyscallHandler.
func (h *Handler) OnCall(vector uint32, functionID uint32, c *cpu.CPU) bool {
	if h.log != nil {
		h.log.Debug("hle", "%s", h.describe(functionID, c))
	}
	if fn, ok := h.intercept[functionID]; ok {
		return fn(c)
	}
	return false
}

// OnReturn implements cpu.SyscallHandler; nothing is currently traced
// on return, but the hook point exists for a future return-value log.
func (h *Handler) OnReturn(functionID uint32, c *cpu.CPU) {}

// describe formats a call and its arguments for tracing, reading
// register $a0-$a3 (GPRs 4-7) for the first four parameters, matching
// the o32 calling convention the BIOS itself uses.
func (h *Handler) describe(functionID uint32, c *cpu.CPU) string {
	call, ok := h.table[functionID]
	if !ok {
		return fmt.Sprintf("%#x: unknown", functionID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", call.Name)
	for i, p := range call.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= 4 {
			b.WriteString(p.Name + "=...")
			continue
		}
		v := c.Regs[4+i]
		fmt.Fprintf(&b, "%s=%s", p.Name, h.formatParam(p.Type, v))
	}
	b.WriteString(")")
	return b.String()
}

func (h *Handler) formatParam(t ParamType, v uint32) string {
	switch t {
	case ParamChar:
		return fmt.Sprintf("%q", rune(v))
	case ParamInt:
		return fmt.Sprintf("%d", int32(v))
	case ParamBool:
		return fmt.Sprintf("%t", v != 0)
	case ParamCharPtr:
		return fmt.Sprintf("%q", h.readCString(v, 64))
	case ParamVoidPtr:
		return fmt.Sprintf("%#x", v)
	default:
		return fmt.Sprintf("%#x", v)
	}
}

func (h *Handler) readCString(addr uint32, max int) string {
	if addr == 0 || h.mem == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < max; i++ {
		ch := h.mem.ReadByte(addr + uint32(i))
		if ch == 0 {
			break
		}
		b.WriteByte(ch)
	}
	return b.String()
}
