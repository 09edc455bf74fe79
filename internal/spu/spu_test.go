package spu

import "testing"

type fakeIRQ struct{ raised bool }

func (f *fakeIRQ) RaiseSPU() { f.raised = true }

// TestManualTransferFillStraight reproduces §4.10's manual-transfer
// path: each FIFO write lands at TransferAddr and advances it by one
// halfword under the straight fill subtype.
func TestManualTransferFillStraight(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.WriteRegister(0x1AC, 2, FillStraight)
	s.WriteRegister(0x1A6, 2, 0x10)
	s.WriteControl(ctrlTransferManual << 4)

	s.WriteFIFO(0x1234)
	s.WriteFIFO(0x5678)

	if got := s.readHalfword(0x10); got != 0x1234 {
		t.Fatalf("sound RAM[0x10] = %#x, want 0x1234", got)
	}
	if got := s.readHalfword(0x11); got != 0x5678 {
		t.Fatalf("sound RAM[0x11] = %#x, want 0x5678", got)
	}
	if s.transferAddr != 0x12 {
		t.Fatalf("transferAddr = %#x, want 0x12", s.transferAddr)
	}
}

// TestManualTransferFillConstant checks the constant fill subtype
// (§4.10): every FIFO word lands on the same sound-RAM cell.
func TestManualTransferFillConstant(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.WriteRegister(0x1AC, 2, FillConstant)
	s.WriteRegister(0x1A6, 2, 0x20)
	s.WriteControl(ctrlTransferManual << 4)

	s.WriteFIFO(0x1111)
	s.WriteFIFO(0x2222)

	if s.transferAddr != 0x20 {
		t.Fatalf("transferAddr = %#x, want unchanged 0x20", s.transferAddr)
	}
	if got := s.readHalfword(0x20); got != 0x2222 {
		t.Fatalf("sound RAM[0x20] = %#x, want the last word written (0x2222)", got)
	}
}

// TestDMAWriteDrivesFIFO checks the dma.Port write path: one 32-bit
// DMA word becomes two manual-mode FIFO writes.
func TestDMAWriteDrivesFIFO(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.WriteRegister(0x1AC, 2, FillStraight)
	s.WriteRegister(0x1A6, 2, 0x40)
	s.WriteControl(ctrlTransferManual << 4)

	s.DMAWrite(0xBEEFCAFE)

	if got := s.readHalfword(0x40); got != 0xCAFE {
		t.Fatalf("sound RAM[0x40] = %#x, want 0xCAFE", got)
	}
	if got := s.readHalfword(0x41); got != 0xBEEF {
		t.Fatalf("sound RAM[0x41] = %#x, want 0xBEEF", got)
	}
}

// TestDMAReadDrainsTransferAddr checks the dma.Port read path: one
// 32-bit DMA read pulls two halfwords starting at TransferAddr and
// advances it by two.
func TestDMAReadDrainsTransferAddr(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.writeHalfword(0x50, 0x0001)
	s.writeHalfword(0x51, 0x0002)
	s.transferAddr = 0x50

	v := s.DMARead()
	if v != 0x00020001 {
		t.Fatalf("DMARead = %#x, want 0x00020001", v)
	}
	if s.transferAddr != 0x52 {
		t.Fatalf("transferAddr after DMARead = %#x, want 0x52", s.transferAddr)
	}
}

// TestDREQReflectsTransferMode checks §4.10's DREQ line: it only
// asserts in the DMA-driven transfer modes, not manual or stopped.
func TestDREQReflectsTransferMode(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.WriteControl(ctrlTransferManual << 4)
	if s.DREQ() {
		t.Fatalf("expected DREQ low in manual transfer mode")
	}
	s.WriteControl(ctrlTransferDMAWrite << 4)
	if !s.DREQ() {
		t.Fatalf("expected DREQ high in DMA-write transfer mode")
	}
}

// TestWriteControlDisableClearsTransferBusy checks §4.10: clearing
// the SPU enable bit drops the transfer-busy status flag.
func TestWriteControlDisableClearsTransferBusy(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)
	s.Status |= statTransferBusy

	s.WriteControl(0)

	if s.Status&statTransferBusy != 0 {
		t.Fatalf("expected transfer-busy cleared after disabling the SPU")
	}
}

// TestWriteControlIRQ9RaisesInterrupt checks that IRQ9 enable raises
// the SPU interrupt line immediately, per §4.10's "IRQ9" gate.
func TestWriteControlIRQ9RaisesInterrupt(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.WriteControl(ctrlIRQ9Enable)

	if !irq.raised {
		t.Fatalf("expected RaiseSPU to fire when IRQ9 enable is set")
	}
}

// TestMixSampleScalesByVolume checks the basic panning/main-volume
// scaling path: a single keyed-on voice at full volume, full main
// volume, should mix to its own current sample level.
func TestMixSampleScalesByVolume(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.Control = ctrlEnable
	s.MainVolumeL = 0x4000
	s.MainVolumeR = 0x4000
	s.KeyOn = 1
	s.Voices[0].VolumeL = 0x4000
	s.Voices[0].VolumeR = 0x4000
	s.Voices[0].CurrentVolume = 1000

	l, r := s.MixSample()
	if l != 1000 || r != 1000 {
		t.Fatalf("MixSample = (%d, %d), want (1000, 1000) at unity volume", l, r)
	}
}

// TestMixSampleSilentWhenDisabled checks §4.10: a disabled SPU mixes
// to silence regardless of voice state.
func TestMixSampleSilentWhenDisabled(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)
	s.KeyOn = 1
	s.Voices[0].CurrentVolume = 32767
	s.Voices[0].VolumeL = 0x4000
	s.Voices[0].VolumeR = 0x4000

	l, r := s.MixSample()
	if l != 0 || r != 0 {
		t.Fatalf("MixSample = (%d, %d), want silence while disabled", l, r)
	}
}

// TestVoiceRegisterRoundTrip exercises the per-voice register block
// (§4.2's I/O fan-out): every field written through WriteRegister
// should read back identically.
func TestVoiceRegisterRoundTrip(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	base := uint32(16) // voice 1
	s.WriteRegister(base+0x0, 2, 0x1111)
	s.WriteRegister(base+0x2, 2, 0x2222)
	s.WriteRegister(base+0x4, 2, 0x3333)
	s.WriteRegister(base+0x6, 2, 0x4444)
	s.WriteRegister(base+0xC, 2, 0x0064)

	if got := s.ReadRegister(base+0x0, 2); got != 0x1111 {
		t.Fatalf("voice 1 VolumeL = %#x, want 0x1111", got)
	}
	if got := s.ReadRegister(base+0x2, 2); got != 0x2222 {
		t.Fatalf("voice 1 VolumeR = %#x, want 0x2222", got)
	}
	if got := s.ReadRegister(base+0x4, 2); got != 0x3333 {
		t.Fatalf("voice 1 Pitch = %#x, want 0x3333", got)
	}
	if got := s.ReadRegister(base+0x6, 2); got != 0x4444 {
		t.Fatalf("voice 1 StartAddr = %#x, want 0x4444", got)
	}
	if got := s.ReadRegister(base+0xC, 2); got != 0x0064 {
		t.Fatalf("voice 1 CurrentVolume = %#x, want 0x0064", got)
	}
}

// TestKeyOnKeyOffRegisterSplit checks the 24-bit KEYON/KEYOFF masks
// split across two 16/8-bit register halves.
func TestKeyOnKeyOffRegisterSplit(t *testing.T) {
	irq := &fakeIRQ{}
	s := New(irq)

	s.WriteRegister(0x188, 2, 0xFFFF)
	s.WriteRegister(0x18A, 1, 0x7F)

	if s.KeyOn != 0x7FFFFF {
		t.Fatalf("KeyOn = %#x, want 0x7FFFFF", s.KeyOn)
	}
	if got := s.ReadRegister(0x188, 2); got != 0xFFFF {
		t.Fatalf("KEY_ON lo readback = %#x, want 0xFFFF", got)
	}
	if got := s.ReadRegister(0x18A, 1); got != 0x7F {
		t.Fatalf("KEY_ON hi readback = %#x, want 0x7F", got)
	}
}
