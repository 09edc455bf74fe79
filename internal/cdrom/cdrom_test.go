package cdrom

import "testing"

// fakeScheduler queues callbacks in registration order and fires them
// one at a time on demand, enough to drive the drive's response and
// sector-read events deterministically.
type fakeScheduler struct {
	pending []func(uint64)
}

func (f *fakeScheduler) Now() uint64 { return 0 }

func (f *fakeScheduler) Schedule(delay uint64, cb func(uint64)) uint64 {
	f.pending = append(f.pending, cb)
	return uint64(len(f.pending))
}

// FireNext runs the oldest still-pending callback. Callbacks that
// schedule further callbacks append to the same queue, so repeated
// FireNext calls drive a whole chain (e.g. sector-read's self-reschedule).
func (f *fakeScheduler) FireNext() bool {
	if len(f.pending) == 0 {
		return false
	}
	cb := f.pending[0]
	f.pending = f.pending[1:]
	cb(0)
	return true
}

type fakeIRQ struct{ raised int }

func (f *fakeIRQ) RaiseCDROM() { f.raised++ }

// fakeDisc serves sectors from an in-memory slice, ok=false past the
// end, matching Disc's "no sector" contract.
type fakeDisc struct {
	sectors [][2352]byte
}

func (d *fakeDisc) ReadSector(lba uint32) ([2352]byte, bool) {
	if int(lba) >= len(d.sectors) {
		return [2352]byte{}, false
	}
	return d.sectors[lba], true
}

func (d *fakeDisc) TrackCount() int { return 1 }

func writeParam(d *Drive, b byte) {
	d.WriteRegister(0, 1, 0) // select index 0
	d.WriteRegister(2, 1, uint32(b))
}

func sendCommand(d *Drive, cmd byte) {
	d.WriteRegister(0, 1, 0)
	d.WriteRegister(1, 1, uint32(cmd))
}

// TestGetstatRespondsWithDriveStatus reproduces a minimal GETSTAT
// round trip: command byte in, INT3 first response out.
func TestGetstatRespondsWithDriveStatus(t *testing.T) {
	sched := &fakeScheduler{}
	irq := &fakeIRQ{}
	d := New(sched, irq, &fakeDisc{})
	d.WriteRegister(0, 1, 1)   // select index 1
	d.WriteRegister(2, 1, 0xFF) // enable every interrupt flag

	sendCommand(d, cmdGetstat)
	if !sched.FireNext() {
		t.Fatalf("expected a scheduled response callback")
	}

	status := d.ReadRegister(0, 1)
	if status&(1<<5) == 0 {
		t.Fatalf("status byte %#x: expected response-FIFO-not-empty bit set", status)
	}
	resp := d.ReadRegister(1, 1)
	if resp != uint32(d.driveStatByte()) {
		t.Fatalf("GETSTAT response = %#x, want drive status byte %#x", resp, d.driveStatByte())
	}
	if irq.raised != 1 {
		t.Fatalf("expected exactly one CDROM IRQ, got %d", irq.raised)
	}
}

// TestDoorOpenRejectsCommandsExceptTest checks §4.7's disc-absence
// rule: every command but TEST gets an immediate INT5 door-open error.
func TestDoorOpenRejectsCommandsExceptTest(t *testing.T) {
	sched := &fakeScheduler{}
	irq := &fakeIRQ{}
	d := New(sched, irq, nil) // nil disc -> doorOpen

	sendCommand(d, cmdGetstat)
	sched.FireNext()

	if d.interruptFlags != Int5Error {
		t.Fatalf("interruptFlags = %d, want Int5Error", d.interruptFlags)
	}
	d.ReadRegister(1, 1) // drive status byte, with the error bit set
	code := d.ReadRegister(1, 1)
	if code != ErrDriveDoorOpen {
		t.Fatalf("error code = %#x, want ErrDriveDoorOpen", code)
	}
}

// TestSetlocThenReadnStreamsSectors drives SETLOC + READN end to end
// and checks the sector bytes surface through the data FIFO once
// "want data" is requested, per §4.7 "Sector streaming".
func TestSetlocThenReadnStreamsSectors(t *testing.T) {
	sched := &fakeScheduler{}
	irq := &fakeIRQ{}
	var sector [2352]byte
	for i := range sector {
		sector[i] = byte(i)
	}
	d2 := New(sched, irq, &fakeDisc{sectors: [][2352]byte{sector}})

	// SETLOC 00:02:00 (BCD) -> LBA 0.
	writeParam(d2, 0x00)
	writeParam(d2, 0x02)
	writeParam(d2, 0x00)
	sendCommand(d2, cmdSetloc)
	sched.FireNext()

	sendCommand(d2, cmdReadn)
	sched.FireNext() // first response (INT3)
	sched.FireNext() // first sector delivery (INT1)

	d2.WriteRegister(3, 1, 0x80) // want data

	first800 := d2.ReadRegister(2, 1)
	if byte(first800) != sector[24] {
		t.Fatalf("first data byte = %#x, want sector[24]=%#x", first800, sector[24])
	}
}

// TestAcknowledgePromotesQueuedResponse checks that acknowledging the
// current response (write to index 1, port 3) advances to the next
// queued one and re-raises if still enabled (§4.7 "Acknowledgment").
func TestAcknowledgePromotesQueuedResponse(t *testing.T) {
	sched := &fakeScheduler{}
	irq := &fakeIRQ{}
	d := New(sched, irq, &fakeDisc{})
	d.WriteRegister(0, 1, 1)    // select index 1
	d.WriteRegister(2, 1, 0x1F) // interrupt enable mask, all bits

	sendCommand(d, cmdGetid) // schedules INT3 then, via its own Schedule call, INT2
	sched.FireNext()         // INT3 first response presented
	if d.interruptFlags != Int3FirstResponse {
		t.Fatalf("interruptFlags = %d, want Int3FirstResponse", d.interruptFlags)
	}

	d.WriteRegister(0, 1, 1)    // select index 1 for the acknowledge port
	d.WriteRegister(3, 1, 0x1F) // acknowledge all flags, promote next

	sched.FireNext() // the GETID identification response becomes pending
	if d.interruptFlags != Int2SecondResponse {
		t.Fatalf("interruptFlags = %d, want Int2SecondResponse after promotion", d.interruptFlags)
	}
	if irq.raised < 2 {
		t.Fatalf("expected at least 2 CDROM IRQs across both responses, got %d", irq.raised)
	}
}
