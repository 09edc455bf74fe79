package mdec

import (
	"testing"
	"time"
)

func TestResetStatus(t *testing.T) {
	m := New()
	if got := m.ReadStat(); got&(1<<31) == 0 {
		t.Fatalf("fresh MDEC should report data-out-empty, got %#x", got)
	}
}

func TestDecodeCommandRoundTrip(t *testing.T) {
	m := New()
	m.StartDecodeThread()
	defer m.StopDecodeThread()

	// Header word: cmd=DECODE (1), 2 parameter words to follow.
	m.WriteCommand(uint32(CmdDecode)<<29 | 2)
	m.WriteCommand(0xAAAA)
	m.WriteCommand(0xBBBB)

	deadline := time.Now().Add(2 * time.Second)
	for m.ReadStat()&(1<<31) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	v1 := m.ReadData()
	v2 := m.ReadData()
	if v1 != 0xAAAA || v2 != 0xBBBB {
		t.Fatalf("decoded words = %#x, %#x", v1, v2)
	}
}

func TestWriteControlResets(t *testing.T) {
	m := New()
	m.WriteCommand(uint32(CmdSetScale) << 29)
	m.WriteControl(1 << 31)
	if m.curCmd != CmdIdle {
		t.Fatalf("expected reset to clear current command, got %v", m.curCmd)
	}
}

func TestStartStopDecodeThreadIdempotent(t *testing.T) {
	m := New()
	m.StartDecodeThread()
	m.StartDecodeThread() // second call should be a no-op, not a second goroutine
	m.StopDecodeThread()
	m.StopDecodeThread() // should not block or panic
}
