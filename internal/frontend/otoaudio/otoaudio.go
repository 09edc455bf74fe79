// Package otoaudio drives the host audio device with samples pulled
// from the SPU's voice mixer, the audio counterpart to
// internal/frontend/ebitenvideo, grounded on the teacher's own
// audio_backend_oto.go OTO v3 player.
package otoaudio

import (
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// Source is the subset of the SPU the player needs each sample tick.
type Source interface {
	MixSample() (left, right int16)
}

// Player streams the SPU's mixed stereo output through an oto
// context, matching the teacher's OtoPlayer: a lock-free atomic
// pointer to the source on the hot Read path, a mutex only around
// setup/control.
type Player struct {
	ctx    *oto.Context
	player *oto.Player

	src atomic.Pointer[Source]

	mu      sync.Mutex
	started bool
}

// New opens an oto context at sampleRate, 16-bit signed stereo, the
// native format MixSample already produces.
func New(sampleRate int) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   0,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	return &Player{ctx: ctx}, nil
}

// Attach wires the SPU as the sample source and creates the
// underlying oto.Player.
func (p *Player) Attach(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src.Store(&src)
	p.player = p.ctx.NewPlayer(p)
}

// Read implements io.Reader for oto.Player: it pulls one stereo
// sample per 4 output bytes (2 channels x 16 bits) directly from the
// attached SPU, with silence when nothing is attached yet.
func (p *Player) Read(out []byte) (int, error) {
	srcPtr := p.src.Load()
	if srcPtr == nil {
		for i := range out {
			out[i] = 0
		}
		return len(out), nil
	}
	src := *srcPtr
	n := len(out) / 4
	for i := 0; i < n; i++ {
		l, r := src.MixSample()
		off := i * 4
		out[off+0] = byte(l)
		out[off+1] = byte(l >> 8)
		out[off+2] = byte(r)
		out[off+3] = byte(r >> 8)
	}
	return n * 4, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

// Stop halts playback without releasing the player.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && p.player != nil {
		p.player.Pause()
		p.started = false
	}
}

// Close releases the underlying player.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		err := p.player.Close()
		p.player = nil
		return err
	}
	return nil
}
