package hle

import (
	"bytes"
	"strings"
	"testing"

	"ps1core/internal/addrspace"
	"ps1core/internal/bus"
	"ps1core/internal/cpu"
	"ps1core/internal/logger"
)

type fakeMem struct{ data map[uint32]byte }

func (m *fakeMem) ReadByte(addr uint32) byte { return m.data[addr] }

func newTestCPU() *cpu.CPU {
	mem, err := addrspace.NewGuestMemory(2 * 1024 * 1024)
	if err != nil {
		panic(err)
	}
	b := bus.New(mem, nil)
	return cpu.New(b)
}

func TestDescribeKnownCall(t *testing.T) {
	c := newTestCPU()
	c.Regs[4] = 0x1234 // fd
	c.Regs[5] = 0x5678 // dst
	c.Regs[6] = 16     // len

	h := New(nil, nil)
	got := h.describe(0xA02, c)
	if !strings.Contains(got, "read(") {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestDescribeUnknownFunction(t *testing.T) {
	h := New(nil, nil)
	got := h.describe(0xAFF, newTestCPU())
	if !strings.Contains(got, "unknown") {
		t.Fatalf("expected unknown marker, got %q", got)
	}
}

func TestOnCallLogsAndIntercepts(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.WithMinLevel(logger.LevelDebug), logger.WithSyscallLogging(true))
	h := New(nil, log)

	called := false
	h.Intercept(0xA06, func(c *cpu.CPU) bool {
		called = true
		return true
	})

	c := newTestCPU()
	if !h.OnCall(0xA0, 0xA06, c) {
		t.Fatal("expected intercepted call to report handled")
	}
	if !called {
		t.Fatal("intercept function not invoked")
	}
	if buf.Len() == 0 {
		t.Fatal("expected a trace line to be logged")
	}
}

func TestReadCString(t *testing.T) {
	mem := &fakeMem{data: map[uint32]byte{0x100: 'h', 0x101: 'i', 0x102: 0}}
	h := New(mem, nil)
	if got := h.readCString(0x100, 16); got != "hi" {
		t.Fatalf("readCString = %q, want %q", got, "hi")
	}
}
