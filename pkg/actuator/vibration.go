package actuator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	// ErrVibrationUnsupported is returned by hosts without a vibration motor
	ErrVibrationUnsupported = errors.New("vibration unsupported")
	ErrInvalidPattern       = errors.New("invalid vibration pattern")
)

// Pattern is a repeating vibration: wait Delay, then alternate On and Off
type Pattern struct {
	Delay time.Duration
	On    time.Duration
	Off   time.Duration
}

// DefaultPattern buzzes one second on, one second off
var DefaultPattern = Pattern{Delay: 0, On: time.Second, Off: time.Second}

// Validate checks the pattern can repeat
func (p Pattern) Validate() error {
	if p.On <= 0 {
		return fmt.Errorf("%w: on segment must be positive", ErrInvalidPattern)
	}
	if p.Delay < 0 || p.Off < 0 {
		return fmt.Errorf("%w: negative segment", ErrInvalidPattern)
	}
	return nil
}

// Vibrator repeats a pattern until stopped
type Vibrator interface {
	Start(p Pattern) error
	Stop()
}

// NoVibration is the vibrator for hosts without a motor
type NoVibration struct{}

func (NoVibration) Start(Pattern) error { return ErrVibrationUnsupported }
func (NoVibration) Stop()               {}

// Motor is switched by a PatternVibrator
type Motor interface {
	On() error
	Off() error
}

// PatternVibrator drives a Motor with timers, one per segment
type PatternVibrator struct {
	motor Motor

	mu      sync.Mutex
	gen     uint64
	running bool
	timer   *time.Timer
}

// NewPatternVibrator creates a vibrator for motor
func NewPatternVibrator(motor Motor) *PatternVibrator {
	return &PatternVibrator{motor: motor}
}

func (v *PatternVibrator) Start(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.stopLocked()
	v.running = true
	v.gen++
	gen := v.gen
	v.timer = time.AfterFunc(p.Delay, func() { v.segment(gen, p, true) })
	return nil
}

func (v *PatternVibrator) segment(gen uint64, p Pattern, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// a stale timer from a stopped run
	if !v.running || v.gen != gen {
		return
	}

	next := p.Off
	if on {
		v.motor.On()
		next = p.On
	} else {
		v.motor.Off()
	}
	v.timer = time.AfterFunc(next, func() { v.segment(gen, p, !on) })
}

// Stop cancels the pattern and switches the motor off
func (v *PatternVibrator) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *PatternVibrator) stopLocked() {
	if !v.running {
		return
	}
	v.running = false
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.motor.Off()
}

// TerminalBell rings the terminal bell at the start of every "on" segment
type TerminalBell struct {
	w io.Writer
}

// NewTerminalBell rings on stderr when w is nil
func NewTerminalBell(w io.Writer) *TerminalBell {
	if w == nil {
		w = os.Stderr
	}
	return &TerminalBell{w: w}
}

func (b *TerminalBell) On() error {
	_, err := fmt.Fprint(b.w, "\a")
	return err
}

func (b *TerminalBell) Off() error { return nil }
