// Package timers implements the three root counters (§4.9): per-timer
// value/target/mode, clock-source selection, sync modes, and IRQ
// delivery with repeat/toggle semantics.
package timers

// Scheduler is the subset of internal/scheduler.Scheduler the timers
// need to re-derive their next tick/target event.
type Scheduler interface {
	Now() uint64
	Schedule(delay uint64, cb func(cyclesLate uint64)) uint64
	Deschedule(id uint64)
}

// InterruptRaiser queues a timer's IRQ line onto the CPU/bus.
type InterruptRaiser interface {
	RaiseTimer(index int)
}

// Mode register bit layout, per §4.9.
const (
	modeSyncEnable   = 1 << 0
	modeSyncShift    = 1
	modeSyncMask     = 0x3 << modeSyncShift
	modeResetTarget  = 1 << 3
	modeIRQTarget    = 1 << 4
	modeIRQOverflow  = 1 << 5
	modeIRQRepeat    = 1 << 6
	modeIRQToggle    = 1 << 7
	modeClockShift   = 8
	modeClockMask    = 0x3 << modeClockShift
	modeIRQOutput    = 1 << 10
	modeTargetLatch  = 1 << 11
	modeOverflowLatch = 1 << 12
)

// Timer is one root counter.
type Timer struct {
	index  int
	Value  uint32
	Target uint32
	Mode   uint32

	cyclesPerInc uint64
	lastSync     uint64
	tickEvent    uint64

	paused bool
}

// Controller owns the three root counters and wires them to the
// scheduler and interrupt line.
type Controller struct {
	Timers [3]Timer

	sched Scheduler
	irq   InterruptRaiser

	dotclockDivider uint64 // GPU-supplied; approximated at a fixed ratio
	hblankActive    bool
	vblankActive    bool
}

// New creates a controller with all three timers stopped at zero.
func New(sched Scheduler, irq InterruptRaiser) *Controller {
	c := &Controller{sched: sched, irq: irq, dotclockDivider: 8}
	for i := range c.Timers {
		c.Timers[i].index = i
	}
	return c
}

// clockSourceIsSystem reports whether the timer's selected clock
// source ticks every system cycle (as opposed to dot-clock, HBlank, or
// system/8), per §4.9 "Clock sources".
func (c *Controller) clockSourceIsSystem(t *Timer) bool {
	src := (t.Mode & modeClockMask) >> modeClockShift
	switch t.index {
	case 0:
		return src == 0 || src == 2
	case 1:
		return src == 0 || src == 2
	case 2:
		return src == 0 || src == 1
	}
	return true
}

// cyclesPerIncrement returns how many system cycles elapse per counter
// increment for the timer's current clock source.
func (c *Controller) cyclesPerIncrement(t *Timer) uint64 {
	if c.clockSourceIsSystem(t) {
		return 1
	}
	switch t.index {
	case 0:
		return c.dotclockDivider
	case 1:
		return 1 // HBlank-driven; ticks are delivered via NotifyHBlank, not cycle math
	case 2:
		return 8 // system clock / 8
	}
	return 1
}

// syncStopped reports whether sync mode currently holds the counter
// paused, per §4.9 "Sync modes".
func (c *Controller) syncStopped(t *Timer) bool {
	if t.Mode&modeSyncEnable == 0 {
		return false
	}
	mode := (t.Mode & modeSyncMask) >> modeSyncShift
	switch t.index {
	case 0, 1:
		return mode == 0 || mode == 3
	case 2:
		return mode == 0 || mode == 3
	}
	return false
}

// WriteMode writes the mode register, which always resets the
// counter to zero and re-derives the next scheduled tick (§4.9).
func (c *Controller) WriteMode(idx int, v uint32) {
	t := &c.Timers[idx]
	t.Mode = v &^ (modeTargetLatch | modeOverflowLatch)
	t.Value = 0
	t.paused = c.syncStopped(t)
	c.rescheduleIRQLatch(idx)
	c.rescheduleTick(idx)
}

func (c *Controller) ReadMode(idx int) uint32 {
	t := &c.Timers[idx]
	v := t.Mode
	t.Mode &^= modeTargetLatch | modeOverflowLatch // read-and-clear latches
	return v
}

func (c *Controller) WriteValue(idx int, v uint32) {
	c.Timers[idx].Value = v & 0xFFFF
	c.rescheduleTick(idx)
}
func (c *Controller) ReadValue(idx int) uint32 { return c.Timers[idx].Value }

func (c *Controller) WriteTarget(idx int, v uint32) {
	c.Timers[idx].Target = v & 0xFFFF
	c.rescheduleTick(idx)
}
func (c *Controller) ReadTarget(idx int) uint32 { return c.Timers[idx].Target }

// rescheduleTick cancels any pending tick event and schedules the next
// one analytically from cyclesPerInc, per §4.9's "counter updates can
// be computed analytically".
func (c *Controller) rescheduleTick(idx int) {
	t := &c.Timers[idx]
	c.sched.Deschedule(t.tickEvent)
	t.tickEvent = 0
	if t.paused {
		return
	}
	if t.index == 1 && !c.clockSourceIsSystem(t) {
		return // HBlank-clocked: advanced by NotifyHBlank via tickOnce
	}
	t.cyclesPerInc = c.cyclesPerIncrement(t)
	nextBoundary := uint64(0xFFFF)
	if t.Target > t.Value && t.Mode&modeIRQTarget != 0 {
		nextBoundary = uint64(t.Target)
	}
	stepsToFire := nextBoundary - uint64(t.Value)
	delay := stepsToFire * t.cyclesPerInc
	if delay == 0 {
		delay = t.cyclesPerInc
	}
	t.tickEvent = c.sched.Schedule(delay, func(late uint64) { c.onTick(idx) })
}

func (c *Controller) rescheduleIRQLatch(idx int) {}

// onTick fires when the analytically-derived boundary (target or
// 0xFFFF overflow) is reached; it advances Value, sets the
// corresponding latch, raises IRQ per §4.9's repeat/toggle rules, and
// reschedules the next boundary.
func (c *Controller) onTick(idx int) {
	t := &c.Timers[idx]
	// Same test rescheduleTick used to pick the boundary.
	if t.Target > t.Value && t.Mode&modeIRQTarget != 0 {
		t.Value = t.Target
		t.Mode |= modeTargetLatch
		if t.Mode&modeResetTarget != 0 {
			t.Value = 0
		} else {
			t.Value++
		}
		c.fireIRQ(idx, true)
	} else {
		t.Mode |= modeOverflowLatch
		c.fireIRQ(idx, false)
		t.Value = 0
	}
	c.rescheduleTick(idx)
}

// fireIRQ implements §4.9's "IRQ delivery": the latch is always set
// (done by the caller); the interrupt line only asserts if the
// relevant enable bit is set, honoring repeat and toggle semantics.
func (c *Controller) fireIRQ(idx int, targetHit bool) {
	t := &c.Timers[idx]
	enable := (targetHit && t.Mode&modeIRQTarget != 0) || (!targetHit && t.Mode&modeIRQOverflow != 0)
	if !enable {
		return
	}
	if t.Mode&modeIRQToggle != 0 {
		before := t.Mode&modeIRQOutput != 0
		t.Mode ^= modeIRQOutput
		after := t.Mode&modeIRQOutput != 0
		if before && !after {
			c.irq.RaiseTimer(idx)
		}
		return
	}
	if t.Mode&modeIRQRepeat == 0 && t.Mode&modeIRQOutput != 0 {
		return // one-shot already delivered until mode is rewritten
	}
	t.Mode |= modeIRQOutput
	c.irq.RaiseTimer(idx)
}

// NotifyHBlank is called by the GPU at each HBlank boundary (§4.6
// "Timing"), driving Timer 1's HBlank clock source and Timer 0's
// HBlank-keyed sync modes.
func (c *Controller) NotifyHBlank() {
	c.hblankActive = !c.hblankActive
	t0 := &c.Timers[0]
	if t0.Mode&modeSyncEnable != 0 {
		mode := (t0.Mode & modeSyncMask) >> modeSyncShift
		switch mode {
		case 1:
			t0.Value = 0
		case 2:
			t0.Value = 0
			t0.paused = false
		}
	}
	t1 := &c.Timers[1]
	if (t1.Mode&modeClockMask)>>modeClockShift == 1 || (t1.Mode&modeClockMask)>>modeClockShift == 3 {
		c.tickOnce(1)
	}
}

// NotifyVBlank is called by the GPU at each VBlank edge, driving Timer
// 1's sync modes.
func (c *Controller) NotifyVBlank(active bool) {
	c.vblankActive = active
	t1 := &c.Timers[1]
	if t1.Mode&modeSyncEnable != 0 {
		mode := (t1.Mode & modeSyncMask) >> modeSyncShift
		switch mode {
		case 1:
			t1.Value = 0
		case 2:
			t1.Value = 0
			t1.paused = !active
		case 3:
			// Paused from the mode write until the first VBlank edge,
			// then reset at each edge like mode 1.
			t1.Value = 0
			if t1.paused {
				t1.paused = false
				c.rescheduleTick(1)
			}
		}
	}
}

// ReadRegister/WriteRegister implement bus.RegisterDevice for the
// 0x1F801100-0x1F80112F root-counter block: 3 timers of 0x10 bytes
// with value/mode/target at +0/+4/+8.
func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	idx := int(offset / 0x10)
	if idx > 2 {
		return 0
	}
	switch offset % 0x10 {
	case 0x0:
		return c.ReadValue(idx)
	case 0x4:
		return c.ReadMode(idx)
	case 0x8:
		return c.ReadTarget(idx)
	}
	return 0
}

func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	idx := int(offset / 0x10)
	if idx > 2 {
		return
	}
	switch offset % 0x10 {
	case 0x0:
		c.WriteValue(idx, value)
	case 0x4:
		c.WriteMode(idx, value)
	case 0x8:
		c.WriteTarget(idx, value)
	}
}

// tickOnce advances a timer by exactly one count outside the normal
// analytic scheduling, used for externally clocked sources (HBlank).
func (c *Controller) tickOnce(idx int) {
	t := &c.Timers[idx]
	if t.paused {
		return
	}
	t.Value++
	if uint32(t.Value) == t.Target && t.Mode&modeIRQTarget != 0 {
		t.Mode |= modeTargetLatch
		c.fireIRQ(idx, true)
		if t.Mode&modeResetTarget != 0 {
			t.Value = 0
		}
	}
	if t.Value > 0xFFFF {
		t.Value = 0
		t.Mode |= modeOverflowLatch
		c.fireIRQ(idx, false)
	}
}
