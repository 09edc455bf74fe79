// Package tty is the TTY console helper named in §1: it puts the host
// terminal in raw mode to stream kernel-HLE putchar/TTY output and
// reads hotkeys for disc-swap and a clipboard-copy of the console
// scrollback, grounded on the teacher's terminal_host.go.
package tty

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.design/x/clipboard"
	"golang.org/x/term"
)

// scrollbackLimit bounds the buffer CopyScrollback copies from so a
// long-running BIOS trace can't grow it without bound.
const scrollbackLimit = 64 * 1024

// Console streams putchar-hook output to stdout in raw mode and
// serves a small hotkey surface (disc swap, clipboard copy) read from
// stdin in a background goroutine, the way the teacher's
// TerminalHost pairs a raw-mode writer with a non-blocking reader.
type Console struct {
	fd       int
	oldState *term.State

	mu         sync.Mutex
	scrollback strings.Builder

	diskSwap func()

	stopCh chan struct{}
	done   chan struct{}
}

// New creates a Console. diskSwap, if non-nil, is invoked when the
// user presses the 'd' hotkey.
func New(diskSwap func()) *Console {
	return &Console{
		fd:       int(os.Stdin.Fd()),
		diskSwap: diskSwap,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start puts stdin into raw mode and begins polling it for hotkeys on
// a background goroutine. It is safe to call even when stdin is not a
// terminal (e.g. redirected in tests); raw mode is then simply skipped.
func (c *Console) Start() {
	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		close(c.done)
		return
	}
	c.oldState = oldState

	go c.readLoop()
}

func (c *Console) readLoop() {
	defer close(c.done)
	buf := make([]byte, 1)
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			c.handleHotkey(buf[0])
		}
		if err != nil {
			return
		}
	}
}

func (c *Console) handleHotkey(b byte) {
	switch b {
	case 'd', 'D':
		if c.diskSwap != nil {
			c.diskSwap()
		}
	case 'c', 'C':
		c.CopyScrollback()
	case 0x03: // Ctrl+C
		close(c.stopCh)
	}
}

// WriteByte appends one byte of kernel TTY output to stdout and the
// in-memory scrollback, the sink a putchar HLE intercept writes
// through.
func (c *Console) WriteByte(b byte) {
	os.Stdout.Write([]byte{b})
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scrollback.Len() >= scrollbackLimit {
		return
	}
	c.scrollback.WriteByte(b)
}

// CopyScrollback copies the accumulated TTY scrollback to the host
// clipboard, the one observable slice of the ImGui debugger's
// "copy to clipboard" feature kept in scope here.
func (c *Console) CopyScrollback() {
	if clipboard.Init() != nil {
		return
	}
	c.mu.Lock()
	text := c.scrollback.String()
	c.mu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
}

// Stop restores the original terminal state.
func (c *Console) Stop() {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	if c.oldState != nil {
		_ = term.Restore(c.fd, c.oldState)
	}
}

func (c *Console) String() string {
	return fmt.Sprintf("tty.Console{buffered=%d}", c.scrollback.Len())
}
