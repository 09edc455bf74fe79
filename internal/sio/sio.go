// Package sio implements the controller/memory-card serial interface
// described in §4.8: byte-level TX/RX timing, the standard digital
// controller protocol, and a device-driver seam memcard plugs into.
package sio

// Scheduler is the subset of the global scheduler needed to delay the
// RX-available bit after a byte exchange.
type Scheduler interface {
	Schedule(delay uint64, cb func(cyclesLate uint64)) uint64
}

// InterruptRaiser queues the PAD/card interrupt line.
type InterruptRaiser interface {
	RaiseSIO()
}

// Device is a serial peripheral attached to one SIO port (a
// controller or a memory card). It receives each transmitted byte and
// returns a response byte plus whether it asserted /ACK.
type Device interface {
	// Exchange advances the device's protocol state machine by one
	// byte.
	Exchange(b byte) (response byte, ack bool)
	// Reset returns the device to its idle, command-ready state
	// (called by WriteControl on the DTR rising edge, i.e. when the
	// port is selected again after a deselect).
	Reset()
}

const (
	ctrlTXEnable = 1 << 0
	ctrlDTR      = 1 << 1
	ctrlRXEnable = 1 << 2
	ctrlACK      = 1 << 4
	ctrlPortSelect = 1 << 13

	statTXReady1 = 1 << 0
	statRXReady  = 1 << 1
	statTXReady2 = 1 << 2
	statACKLevel = 1 << 7
	statIRQ      = 1 << 9

	rxDelayCycles = 1000
)

// Controller is one SIO port pair (SIO0 in PS1 terms: controllers and
// memory cards share the bus, selected by control.port_select).
type Controller struct {
	ports [2]Device

	control uint16
	baud    uint16
	mode    uint16

	txByte  byte
	rxByte  byte
	rxReady bool

	sched Scheduler
	irq   InterruptRaiser

	selected int
}

// New creates a controller with port1/port2 device drivers attached.
func New(sched Scheduler, irq InterruptRaiser, port1, port2 Device) *Controller {
	return &Controller{sched: sched, irq: irq, ports: [2]Device{port1, port2}}
}

func (c *Controller) statusRegister() uint16 {
	var s uint16
	s |= statTXReady1 | statTXReady2
	if c.rxReady {
		s |= statRXReady
	}
	return s
}

// WriteData queues one byte for transmission; if TX is enabled and
// DTR is asserted, it is immediately handed to the selected device
// (§4.8 "Byte-level contract").
func (c *Controller) WriteData(v byte) {
	c.txByte = v
	if c.control&ctrlTXEnable == 0 || c.control&ctrlDTR == 0 {
		return
	}
	port := 0
	if c.control&ctrlPortSelect != 0 {
		port = 1
	}
	dev := c.ports[port]
	if dev == nil {
		return
	}
	resp, ack := dev.Exchange(v)
	c.sched.Schedule(rxDelayCycles, func(late uint64) {
		c.rxByte = resp
		c.rxReady = true
		if ack {
			if c.control&ctrlRXEnable != 0 {
				c.irq.RaiseSIO()
			}
		}
	})
}

func (c *Controller) ReadData() byte {
	c.rxReady = false
	return c.rxByte
}

func (c *Controller) WriteControl(v uint16) {
	wasSelected := c.control&ctrlDTR != 0
	c.control = v
	if !wasSelected && v&ctrlDTR != 0 {
		for _, d := range c.ports {
			if d != nil {
				d.Reset()
			}
		}
	}
	if v&ctrlACK != 0 {
		c.control &^= ctrlACK
	}
}

func (c *Controller) ReadControl() uint16 { return c.control }
func (c *Controller) ReadStatus() uint16  { return c.statusRegister() }
func (c *Controller) WriteMode(v uint16)  { c.mode = v }
func (c *Controller) ReadMode() uint16    { return c.mode }
func (c *Controller) WriteBaud(v uint16)  { c.baud = v }
func (c *Controller) ReadBaud() uint16    { return c.baud }

// ReadRegister/WriteRegister implement bus.RegisterDevice for the
// 0x1F801040-0x1F80104F SIO0 block.
func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	switch offset {
	case 0x0:
		return uint32(c.ReadData())
	case 0x4:
		return uint32(c.ReadStatus())
	case 0x8:
		return uint32(c.ReadMode())
	case 0xA:
		return uint32(c.ReadControl())
	case 0xE:
		return uint32(c.ReadBaud())
	}
	return 0
}

func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	switch offset {
	case 0x0:
		c.WriteData(byte(value))
	case 0x8:
		c.WriteMode(uint16(value))
	case 0xA:
		c.WriteControl(uint16(value))
	case 0xE:
		c.WriteBaud(uint16(value))
	}
}

// DigitalController implements Device for the standard 16-button pad
// (§4.8 "Controller protocol").
type DigitalController struct {
	// Buttons is the live button state, one bit per button, active
	// HIGH here (the wire-level active-low inversion happens when
	// packing the response bytes).
	Buttons uint16

	step int
}

// Button bit positions, LSB-first in the 16-bit packed response,
// matching the documented fixed layout.
const (
	BtnSelect = iota
	BtnL3
	BtnR3
	BtnStart
	BtnUp
	BtnRight
	BtnDown
	BtnLeft
	BtnL2
	BtnR2
	BtnL1
	BtnR1
	BtnTriangle
	BtnCircle
	BtnCross
	BtnSquare
)

func (d *DigitalController) Reset() { d.step = 0 }

func (d *DigitalController) Exchange(b byte) (byte, bool) {
	defer func() { d.step++ }()
	switch d.step {
	case 0:
		if b != 0x01 {
			return 0xFF, false
		}
		return 0xFF, true
	case 1:
		if b != 0x42 {
			return 0xFF, false
		}
		return 0x41, true
	case 2:
		return 0x5A, true
	case 3:
		return byte(^d.Buttons), true
	case 4:
		return byte(^d.Buttons >> 8), false
	}
	return 0xFF, false
}
