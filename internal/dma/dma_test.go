package dma

import "testing"

// fakeMemory is a flat word-addressable RAM stand-in for the bus,
// sized generously enough to hold the OTC scenario's addresses.
type fakeMemory struct {
	words map[uint32]uint32
}

func newFakeMemory() *fakeMemory { return &fakeMemory{words: make(map[uint32]uint32)} }

func (m *fakeMemory) DMARead32(addr uint32) uint32  { return m.words[addr] }
func (m *fakeMemory) DMAWrite32(addr uint32, v uint32) { m.words[addr] = v }

type fakeIRQ struct{ raised bool }

func (f *fakeIRQ) RaiseDMA() { f.raised = true }

// TestOTCClear reproduces §8 end-to-end scenario 3: DMA6 (OTC) with
// MADR=0x100000, BCR=16, burst+decrement+start builds a backward
// linked list terminated by the 0xFFFFFF end marker.
func TestOTCClear(t *testing.T) {
	mem := newFakeMemory()
	irq := &fakeIRQ{}
	c := New(mem, irq)

	c.WriteMADR(ChanOTC, 0x100000)
	c.WriteBCR(ChanOTC, 16)
	c.WriteCHCR(ChanOTC, chcrStepDec|chcrStart)

	for i := 0; i < 16; i++ {
		if !c.Step() {
			t.Fatalf("expected channel active at step %d", i)
		}
	}
	if c.Step() {
		t.Fatalf("expected transfer to be finished after 16 words")
	}

	addr := uint32(0x100000)
	for i := 0; i < 15; i++ {
		want := addr - 4
		if mem.words[addr] != want {
			t.Fatalf("word at %#x = %#x, want %#x", addr, mem.words[addr], want)
		}
		addr -= 4
	}
	if mem.words[addr] != 0xFFFFFF {
		t.Fatalf("terminal word at %#x = %#x, want 0xFFFFFF", addr, mem.words[addr])
	}
	if irq.raised {
		t.Fatalf("expected no IRQ: channel 6's DICR enable bit was never set")
	}
}

// TestDMAPriorityArbitration checks §4.5 "Arbitration": among active
// channels, the lower DPCR priority field (0 = highest) runs first,
// ties broken by lower channel id.
func TestDMAPriorityArbitration(t *testing.T) {
	mem := newFakeMemory()
	irq := &fakeIRQ{}
	c := New(mem, irq)

	c.WriteMADR(ChanGPU, 0x1000)
	c.WriteBCR(ChanGPU, 1)
	c.WriteMADR(ChanSPU, 0x2000)
	c.WriteBCR(ChanSPU, 1)

	// DPCR: on real hardware a lower priority field means the channel
	// runs first. Give GPU (channel 2) field 0 and SPU (channel 4)
	// field 7, so GPU must arbitrate first despite its higher channel id.
	dpcr := c.ReadDPCR()
	dpcr &^= 0x7 << (ChanGPU * 4)
	dpcr |= 0x0 << (ChanGPU * 4)
	dpcr &^= 0x7 << (ChanSPU * 4)
	dpcr |= 0x7 << (ChanSPU * 4)
	c.WriteDPCR(dpcr)

	c.WriteCHCR(ChanSPU, chcrStart)
	c.WriteCHCR(ChanGPU, chcrStart)

	order := c.activeOrder()
	if len(order) != 2 || order[0] != ChanGPU {
		t.Fatalf("expected GPU channel first by lower priority field, got order=%v", order)
	}
}
