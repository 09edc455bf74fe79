// Package mdec implements the MDEC command/status register pair and
// runs macroblock decoding on a background goroutine, the way the
// original decoder offloads IDCT/color-conversion work to its own
// worker thread behind a ring buffer (§5 "Suspension points": MDEC is
// treated as an external collaborator the CPU hands data to and later
// drains a FIFO from).
package mdec

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Command selects what a DECODE/SET_QUANT/SET_SCALE transfer means,
// mirroring MDEC_Cmd.
type Command int

const (
	CmdIdle Command = iota
	CmdDecode
	CmdSetQuant
	CmdSetScale
)

// OutputDepth selects 4/8/24/15-bit pixel output.
type OutputDepth int

const (
	Depth4 OutputDepth = iota
	Depth8
	Depth24
	Depth15
)

const statResetValue = 0x80040000

// status packs the MDEC status register's fields.
type status struct {
	missingParams  uint16
	currBlock      uint8
	dataOutBit15   bool
	dataOutSigned  bool
	outDepth       OutputDepth
	dataOutRequest bool
	dataInRequest  bool
	cmdBusy        bool
	dataInFull     bool
	dataOutEmpty   bool
}

func (s status) pack() uint32 {
	var v uint32
	v |= uint32(s.missingParams)
	v |= uint32(s.currBlock&0x7) << 16
	if s.dataOutBit15 {
		v |= 1 << 23
	}
	if s.dataOutSigned {
		v |= 1 << 24
	}
	v |= uint32(s.outDepth&0x3) << 25
	if s.dataOutRequest {
		v |= 1 << 27
	}
	if s.dataInRequest {
		v |= 1 << 28
	}
	if s.cmdBusy {
		v |= 1 << 29
	}
	if s.dataInFull {
		v |= 1 << 30
	}
	if s.dataOutEmpty {
		v |= 1 << 31
	}
	return v
}

// MDEC holds the register state, the quant/scale tables, and the
// in/out FIFOs feeding the background decode worker.
type MDEC struct {
	mu sync.Mutex

	stat           status
	curCmd         Command
	numParams      uint32
	luminanceTable [64]byte
	colorTable     [64]byte
	scaleTable     [64]int16

	inFIFO  []uint32
	outFIFO []uint32

	cond   *sync.Cond
	group  *errgroup.Group
	cancel context.CancelFunc
}

// New creates an idle MDEC with the default scale table installed.
func New() *MDEC {
	m := &MDEC{scaleTable: defaultScaleTable, stat: status{dataOutEmpty: true}}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// StartDecodeThread launches the background worker goroutine that
// drains inFIFO and produces decoded macroblocks into outFIFO,
// managed through an errgroup so StopDecodeThread can wait for a
// clean shutdown instead of leaking a goroutine.
func (m *MDEC) StartDecodeThread() {
	if m.group != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	m.cancel = cancel
	m.group = g
	g.Go(func() error {
		m.decodeLoop(ctx)
		return nil
	})
}

// StopDecodeThread signals the worker to exit and waits for it.
func (m *MDEC) StopDecodeThread() {
	if m.group == nil {
		return
	}
	m.cancel()
	m.mu.Lock()
	m.cond.Broadcast()
	m.mu.Unlock()
	m.group.Wait()
	m.group = nil
}

// decodeLoop waits for work on the input FIFO and decodes whole
// macroblocks, the way the original's condition-variable-gated thread
// blocks until the main thread supplies command words.
func (m *MDEC) decodeLoop(ctx context.Context) {
	for {
		m.mu.Lock()
		for len(m.inFIFO) == 0 && ctx.Err() == nil {
			m.cond.Wait()
		}
		if ctx.Err() != nil {
			m.mu.Unlock()
			return
		}
		block := m.inFIFO
		m.inFIFO = nil
		cmd := m.curCmd
		m.stat.cmdBusy = true
		m.mu.Unlock()

		decoded := m.decodeBlock(cmd, block)

		m.mu.Lock()
		m.outFIFO = append(m.outFIFO, decoded...)
		m.stat.cmdBusy = false
		m.stat.dataOutEmpty = len(m.outFIFO) == 0
		m.mu.Unlock()
	}
}

// decodeBlock is a placeholder macroblock transform: full IDCT/YUV
// color conversion is out of scope (§9 Non-goals carry this the same
// way the JIT carries "no code generation"); it passes the quantized
// coefficients through so a future pass can replace this with a real
// transform without touching the threading/register model around it.
func (m *MDEC) decodeBlock(cmd Command, in []uint32) []uint32 {
	if cmd != CmdDecode {
		return nil
	}
	out := make([]uint32, len(in))
	copy(out, in)
	return out
}

// WriteCommand feeds one data word to the command/parameter FIFO,
// dispatching on the first word of a new command.
func (m *MDEC) WriteCommand(v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.numParams == 0 {
		m.beginCommand(v)
	} else {
		m.inFIFO = append(m.inFIFO, v)
		m.numParams--
		if m.numParams == 0 {
			m.cond.Broadcast()
		}
	}
}

func (m *MDEC) beginCommand(v uint32) {
	cmd := Command((v >> 29) & 0x7)
	m.curCmd = cmd
	switch cmd {
	case CmdDecode:
		m.numParams = v & 0xFFFF
		m.stat.outDepth = OutputDepth((v >> 27) & 0x3)
		m.stat.dataOutSigned = (v>>26)&1 != 0
		m.stat.dataOutBit15 = (v>>25)&1 != 0
	case CmdSetQuant:
		m.numParams = 16 + boolToUint32((v&1) != 0)*16
	case CmdSetScale:
		m.numParams = 32
	default:
		m.numParams = 0
	}
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// WriteControl implements the control register's reset: bit 31 resets
// the decoder. The DMA request-enable bits 30/29 are ignored.
func (m *MDEC) WriteControl(v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v&(1<<31) != 0 {
		m.resetLocked()
	}
}

func (m *MDEC) resetLocked() {
	m.stat = status{dataOutEmpty: true}
	m.curCmd = CmdIdle
	m.numParams = 0
	m.inFIFO = nil
	m.outFIFO = nil
}

// ReadData pops one decoded word from the output FIFO.
func (m *MDEC) ReadData() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outFIFO) == 0 {
		return 0
	}
	v := m.outFIFO[0]
	m.outFIFO = m.outFIFO[1:]
	m.stat.dataOutEmpty = len(m.outFIFO) == 0
	return v
}

// ReadStat returns the packed status register.
func (m *MDEC) ReadStat() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stat.pack()
}

// DMARead/DMAWrite implement dma.Port: channel 1 (MDECout) drains
// decoded macroblocks, channel 0 (MDECin) feeds command/data words in.
func (m *MDEC) DMARead() uint32     { return m.ReadData() }
func (m *MDEC) DMAWrite(v uint32)   { m.WriteCommand(v) }

// ReadRegister/WriteRegister implement bus.RegisterDevice over the
// MDEC0 (command/data)/MDEC1 (control/status) pair at 0x1F801820 and
// 0x1F801824.
func (m *MDEC) ReadRegister(offset uint32, width int) uint32 {
	switch offset {
	case 0x0:
		return m.ReadData()
	case 0x4:
		return m.ReadStat()
	}
	return 0
}

func (m *MDEC) WriteRegister(offset uint32, width int, value uint32) {
	switch offset {
	case 0x0:
		m.WriteCommand(value)
	case 0x4:
		m.WriteControl(value)
	}
}

// defaultScaleTable is the IDCT coefficient scale table the real
// decoder resets SET_SCALE to, in zig-zag order; transcribed directly
// from the reference implementation's constant table.
var defaultScaleTable = [64]int16{
	i16(0x5A82), i16(0x5A82), i16(0x5A82), i16(0x5A82), i16(0x5A82), i16(0x5A82), i16(0x5A82), i16(0x5A82),
	i16(0x7D8A), i16(0x6A6D), i16(0x471C), i16(0x18F8), i16(0xE707), i16(0xB8E3), i16(0x9592), i16(0x8275),
	i16(0x7641), i16(0x30FB), i16(0xCF04), i16(0x89BE), i16(0x89BE), i16(0xCF04), i16(0x30FB), i16(0x7641),
	i16(0x6A6D), i16(0xE707), i16(0x8275), i16(0xB8E3), i16(0x471C), i16(0x7D8A), i16(0x18F8), i16(0x9592),
	i16(0x5A82), i16(0xA57D), i16(0xA57D), i16(0x5A82), i16(0x5A82), i16(0xA57D), i16(0xA57D), i16(0x5A82),
	i16(0x471C), i16(0x8275), i16(0x18F8), i16(0x6A6D), i16(0x9592), i16(0xE707), i16(0x7D8A), i16(0xB8E3),
	i16(0x30FB), i16(0x89BE), i16(0x7641), i16(0xCF04), i16(0xCF04), i16(0x7641), i16(0x89BE), i16(0x30FB),
	i16(0x18F8), i16(0xB8E3), i16(0x6A6D), i16(0x8275), i16(0x7D8A), i16(0x9592), i16(0x471C), i16(0xE707),
}

func i16(v uint16) int16 { return int16(v) }
