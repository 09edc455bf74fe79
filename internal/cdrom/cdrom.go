// Package cdrom implements the CDROM drive register model, command
// protocol, and sector streaming described in §4.7.
package cdrom

// Scheduler is the subset of the global scheduler the drive needs to
// delay command responses and sector delivery.
type Scheduler interface {
	Now() uint64
	Schedule(delay uint64, cb func(cyclesLate uint64)) uint64
}

// InterruptRaiser queues the CDROM interrupt line.
type InterruptRaiser interface {
	RaiseCDROM()
}

// Disc is the backing image the drive reads sectors from.
type Disc interface {
	// ReadSector returns the 2352-byte raw sector at the given
	// logical block address, or ok=false if no disc is loaded.
	ReadSector(lba uint32) (sector [2352]byte, ok bool)
	TrackCount() int
}

// Interrupt codes, per §4.7 "Command protocol".
const (
	Int1Data           = 1
	Int2SecondResponse = 2
	Int3FirstResponse  = 3
	Int4DataEnd        = 4
	Int5Error          = 5
)

// Error codes carried in an INT5 response, per §4.7 "Disc absence".
const (
	ErrDriveDoorOpen   = 0x08
	ErrWrongNumParams  = 0x20
	ErrInvalidCommand  = 0x40
)

// Command opcodes (§4.7 "Supported commands"). PLAY has no handler and
// is answered like any other invalid command.
const (
	cmdGetstat = 0x01
	cmdSetloc  = 0x02
	cmdPlay    = 0x03
	cmdStop    = 0x08
	cmdPause   = 0x09
	cmdInit    = 0x0A
	cmdDemute  = 0x0C
	cmdSetmode = 0x0E
	cmdSeekl   = 0x15
	cmdTest    = 0x19
	cmdGetid   = 0x1A
	cmdReadtoc = 0x1E
	cmdReadn   = 0x06
)

// Approximate delivery delays in system clocks, per §4.7.
const (
	delayINITReadTOC = 0x13cce
	delaySTOP        = 0x0d38aca
	sectorPeriod     = 33868800 * 0x930 / 4 / 44100 // one sector-read period at the 33.8688 MHz system clock
)

func seekPeriodCycles(systemClock uint64) uint64 {
	return systemClock * 0x930 / 4 / 44100
}

type response struct {
	bytes []byte
	irq   int
}

// Drive is the four-port CDROM controller.
type Drive struct {
	index uint8 // current port index, 0-3

	paramFIFO    []byte
	responseFIFO []byte
	dataFIFO     []byte
	dataCursor   int

	pendingResponses []response
	busy             bool

	interruptEnableMask uint8
	interruptFlags      uint8

	mode uint8

	locSector uint32
	curSector uint32
	reading   bool
	doorOpen  bool
	wholeSectorMode bool

	pendingSector [2352]byte
	havePending   bool

	sched Scheduler
	irq   InterruptRaiser
	disc  Disc

	respEvent uint64
	readEvent uint64
}

// New creates a drive over the given disc image; the lid is closed
// when a disc is given and open when disc is nil (no disc loaded).
func New(sched Scheduler, irq InterruptRaiser, disc Disc) *Drive {
	return &Drive{sched: sched, irq: irq, disc: disc, doorOpen: disc == nil}
}

// statusByte packs the port-0 status summary (§4.7 "Register model").
func (d *Drive) statusByte() byte {
	var s byte
	s |= d.index & 0x3
	if len(d.paramFIFO) == 0 {
		s |= 1 << 3 // param FIFO empty
	}
	if len(d.paramFIFO) < 16 {
		s |= 1 << 4 // param FIFO not full
	}
	if len(d.responseFIFO) > 0 {
		s |= 1 << 5 // response FIFO not empty
	}
	if len(d.dataFIFO) > d.dataCursor {
		s |= 1 << 6 // data FIFO not empty
	}
	if d.busy {
		s |= 1 << 7 // command transmission busy
	}
	return s
}

// ReadRegister implements the four byte-wide ports, with ports 1-3
// behaving differently depending on the current index (§4.7).
func (d *Drive) ReadRegister(offset uint32, width int) uint32 {
	switch offset {
	case 0:
		return uint32(d.statusByte())
	case 1:
		return uint32(d.popResponseByte())
	case 2:
		return uint32(d.popDataByte())
	case 3:
		switch d.index {
		case 0, 2:
			return uint32(d.interruptEnableMask | 0xE0)
		default:
			return uint32(d.interruptFlags | 0xE0)
		}
	}
	return 0xFF
}

func (d *Drive) WriteRegister(offset uint32, width int, value uint32) {
	v := uint8(value)
	switch offset {
	case 0:
		d.index = v & 0x3
	case 1:
		switch d.index {
		case 0:
			d.beginCommand(v)
		case 3:
			// Sound-map data out, not modeled.
		}
	case 2:
		switch d.index {
		case 0:
			d.paramFIFO = append(d.paramFIFO, v)
		case 1:
			d.interruptEnableMask = v
		}
	case 3:
		switch d.index {
		case 0:
			if v&0x80 != 0 {
				d.wantData()
			}
		case 1:
			d.acknowledge(v & 0x1F)
		}
	}
}

func (d *Drive) popResponseByte() byte {
	if len(d.responseFIFO) == 0 {
		return 0
	}
	b := d.responseFIFO[0]
	d.responseFIFO = d.responseFIFO[1:]
	return b
}

func (d *Drive) popDataByte() byte {
	if d.dataCursor >= len(d.dataFIFO) {
		return 0
	}
	b := d.dataFIFO[d.dataCursor]
	d.dataCursor++
	return b
}

// beginCommand records the command, validates parameter count/disc
// presence, and schedules its first response (§4.7 "Command
// protocol").
func (d *Drive) beginCommand(cmd uint8) {
	params := d.paramFIFO
	d.paramFIFO = nil
	d.busy = true

	if d.doorOpen && cmd != cmdTest {
		d.scheduleError(1, ErrDriveDoorOpen)
		return
	}

	switch cmd {
	case cmdGetstat:
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	case cmdSetloc:
		if len(params) != 3 {
			d.scheduleError(1, ErrWrongNumParams)
			return
		}
		d.locSector = bcdToLBA(params[0], params[1], params[2])
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	case cmdSeekl:
		d.curSector = d.locSector
		d.scheduleOK(seekPeriodCycles(33868800), []byte{d.driveStatByte()}, Int2SecondResponse)
	case cmdReadn:
		d.curSector = d.locSector
		d.reading = true
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
		d.scheduleSectorRead()
	case cmdPause:
		d.reading = false
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	case cmdStop:
		d.reading = false
		d.scheduleOK(delaySTOP, []byte{d.driveStatByte()}, Int2SecondResponse)
	case cmdInit:
		d.mode = 0
		d.scheduleOK(delayINITReadTOC, []byte{d.driveStatByte()}, Int2SecondResponse)
	case cmdDemute:
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	case cmdSetmode:
		if len(params) != 1 {
			d.scheduleError(1, ErrWrongNumParams)
			return
		}
		d.mode = params[0]
		d.wholeSectorMode = params[0]&0x20 != 0
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	case cmdTest:
		d.handleTest(params)
	case cmdGetid:
		d.scheduleGetID()
	case cmdReadtoc:
		d.scheduleOK(delayINITReadTOC, []byte{d.driveStatByte()}, Int2SecondResponse)
	default:
		d.scheduleError(1, ErrInvalidCommand)
	}
}

func (d *Drive) driveStatByte() byte {
	var s byte
	if d.doorOpen {
		s |= 1 << 4
	}
	if d.reading {
		s |= 1 << 5
	}
	s |= 1 << 1 // motor on
	return s
}

func (d *Drive) handleTest(params []byte) {
	if len(params) == 0 {
		d.scheduleError(1, ErrWrongNumParams)
		return
	}
	switch params[0] {
	case 0x20: // BIOS version
		d.scheduleOK(1, []byte{0x94, 0x09, 0x19, 0xC0}, Int3FirstResponse)
	case 0x04, 0x05:
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	default:
		d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	}
}

func (d *Drive) scheduleGetID() {
	if d.doorOpen {
		d.scheduleError(1, ErrDriveDoorOpen)
		return
	}
	d.scheduleOK(1, []byte{d.driveStatByte()}, Int3FirstResponse)
	d.sched.Schedule(0x4a00, func(late uint64) {
		d.pushResponse([]byte{0x02, 0x00, 0x20, 0x00, 'S', 'C', 'E', 'A'}, Int2SecondResponse)
	})
}

func (d *Drive) scheduleOK(delay uint64, bytes []byte, irq int) {
	d.sched.Schedule(delay, func(late uint64) { d.pushResponse(bytes, irq) })
}

func (d *Drive) scheduleError(delay uint64, code byte) {
	d.sched.Schedule(delay, func(late uint64) {
		d.pushResponse([]byte{d.driveStatByte() | 1, code}, Int5Error)
	})
}

// pushResponse enqueues a response; if no response is currently being
// presented, it is delivered immediately, otherwise it queues behind
// the current one (§4.7 "Acknowledgment... promotes the next").
func (d *Drive) pushResponse(bytes []byte, irq int) {
	d.pendingResponses = append(d.pendingResponses, response{bytes, irq})
	if len(d.pendingResponses) == 1 {
		d.presentHead()
	}
}

func (d *Drive) presentHead() {
	if len(d.pendingResponses) == 0 {
		d.busy = false
		return
	}
	head := d.pendingResponses[0]
	d.responseFIFO = append([]byte(nil), head.bytes...)
	d.interruptFlags = uint8(head.irq)
	if d.interruptEnableMask&d.interruptFlags != 0 {
		d.irq.RaiseCDROM()
	}
}

// acknowledge implements the write to (index 1, port 3): dequeues the
// current response and promotes the next one.
func (d *Drive) acknowledge(mask uint8) {
	d.interruptFlags &^= mask
	if len(d.pendingResponses) > 0 {
		d.pendingResponses = d.pendingResponses[1:]
	}
	d.presentHead()
}

// scheduleSectorRead streams one sector per period while READN is
// active, stalling on INT1 if the host hasn't drained the previous
// sector (§4.7 "Sector streaming").
func (d *Drive) scheduleSectorRead() {
	if !d.reading {
		return
	}
	d.sched.Schedule(sectorPeriod, func(late uint64) {
		if !d.reading {
			return
		}
		if d.havePending {
			d.pushResponse([]byte{d.driveStatByte()}, Int1Data)
			return
		}
		sector, ok := d.disc.ReadSector(d.curSector)
		if !ok {
			d.pushResponse([]byte{d.driveStatByte() | 1, ErrInvalidCommand}, Int5Error)
			d.reading = false
			return
		}
		d.pendingSector = sector
		d.havePending = true
		d.curSector++
		d.pushResponse([]byte{d.driveStatByte()}, Int1Data)
		d.scheduleSectorRead()
	})
}

// wantData moves the pending sector into the data FIFO, per §4.7's
// "want data" bit.
func (d *Drive) wantData() {
	if !d.havePending {
		return
	}
	if d.wholeSectorMode {
		d.dataFIFO = append([]byte(nil), d.pendingSector[12:12+0x924]...)
	} else {
		d.dataFIFO = append([]byte(nil), d.pendingSector[24:24+0x800]...)
	}
	d.dataCursor = 0
	d.havePending = false
}

// bcdToLBA converts SETLOC's minute/second/sector BCD triple into a
// logical block address (75 sectors/second, 2 seconds of lead-in).
func bcdToLBA(mm, ss, ff byte) uint32 {
	m := uint32(bcdToBin(mm))
	s := uint32(bcdToBin(ss))
	f := uint32(bcdToBin(ff))
	return (m*60+s)*75 + f - 150
}

func bcdToBin(v byte) byte { return (v>>4)*10 + v&0xF }

// DMARead implements dma.Port for channel 3: each word pulls four
// bytes off the data FIFO the way the real controller streams a
// sector to RAM 32 bits at a time.
func (d *Drive) DMARead() uint32 {
	b0 := d.popDataByte()
	b1 := d.popDataByte()
	b2 := d.popDataByte()
	b3 := d.popDataByte()
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
}

// DMAWrite implements dma.Port; channel 3 only ever runs device-to-RAM,
// so writes from RAM to the drive have no effect.
func (d *Drive) DMAWrite(v uint32) {}
