package audio

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrNoContext is returned when the audio device could not be opened
var ErrNoContext = errors.New("audio context unavailable")

// Engine owns the oto context and the stream gain. The context is opened
// lazily on the first Play, since oto allows only one per process.
type Engine struct {
	format Format

	ctxOnce sync.Once
	ctx     *oto.Context
	ctxErr  error

	mu      sync.Mutex
	gain    float64
	current *Player
}

// NewEngine creates an engine for 16-bit PCM in the given format
func NewEngine(format Format) *Engine {
	if format.SampleRate == 0 {
		format = DefaultFormat
	}
	return &Engine{format: format, gain: 1}
}

// Format returns the PCM format every sound must match
func (e *Engine) Format() Format {
	return e.format
}

func (e *Engine) context() (*oto.Context, error) {
	e.ctxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   e.format.SampleRate,
			ChannelCount: e.format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			e.ctxErr = fmt.Errorf("%w: %v", ErrNoContext, err)
			return
		}

		// Wait for the hardware audio devices to be ready
		<-ready
		e.ctx = ctx
		log.Println("Audio context initialized")
	})
	return e.ctx, e.ctxErr
}

// Play loops sound until the returned Player is stopped
func (e *Engine) Play(sound Sound) (*Player, error) {
	if sound.Format != e.format {
		return nil, fmt.Errorf("%w: %s is %v, engine wants %v", ErrUnsupportedFormat, sound.Name, sound.Format, e.format)
	}
	if len(sound.PCM) == 0 {
		return nil, fmt.Errorf("%w: %s has no samples", ErrUnsupportedFormat, sound.Name)
	}

	ctx, err := e.context()
	if err != nil {
		return nil, err
	}

	p := &Player{
		engine: e,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.current = p
	e.mu.Unlock()

	go p.loop(ctx, sound.PCM)
	return p, nil
}

// SetGain sets the stream gain in [0,1] for the playing and future sounds
func (e *Engine) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}

	e.mu.Lock()
	e.gain = gain
	cur := e.current
	e.mu.Unlock()

	if cur != nil {
		cur.setVolume(gain)
	}
}

// Gain returns the current stream gain
func (e *Engine) Gain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gain
}

func (e *Engine) release(p *Player) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == p {
		e.current = nil
	}
}

// Player is one looping alarm sound
type Player struct {
	engine *Engine
	stopCh chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
	out     *oto.Player
}

func (p *Player) loop(ctx *oto.Context, pcm []byte) {
	defer close(p.done)
	defer p.engine.release(p)

	for {
		out := ctx.NewPlayer(bytes.NewReader(pcm))
		out.SetVolume(p.engine.Gain())

		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			out.Close()
			return
		}
		p.out = out
		p.mu.Unlock()

		out.Play()

		// Poll until this pass finishes or a stop arrives
		for out.IsPlaying() {
			select {
			case <-p.stopCh:
				out.Pause()
				out.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}

		if err := out.Close(); err != nil {
			log.Printf("Failed to close audio player: %v", err)
		}

		select {
		case <-p.stopCh:
			return
		default:
		}
	}
}

func (p *Player) setVolume(gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.SetVolume(gain)
	}
}

// Stop ends playback. Safe to call more than once and on a nil Player.
func (p *Player) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	if p.out != nil {
		p.out.Pause()
	}
	p.mu.Unlock()

	<-p.done
	log.Println("Audio playback stopped")
}
