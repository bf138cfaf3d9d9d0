// Package actuator turns an alarm into sound, vibration, a media volume
// override and a persistent notification.
package actuator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/audio"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

// SoundOutput loops the selected sound until the returned stop func is called
type SoundOutput interface {
	Play(sel models.SoundSelection) (stop func(), err error)
}

// EngineOutput plays library sounds on an audio engine
type EngineOutput struct {
	Engine  *audio.Engine
	Library *audio.Library
	Logger  *slog.Logger
}

func (o EngineOutput) Play(sel models.SoundSelection) (func(), error) {
	sound, err := o.Library.Resolve(sel)
	if err != nil && o.Logger != nil {
		o.Logger.Warn("alarm sound unavailable, using default tone", "sound", sel, "err", err)
	}
	p, err := o.Engine.Play(sound)
	if err != nil {
		return nil, err
	}
	return p.Stop, nil
}

// Config wires the channels of a Device. Nil channels are skipped.
type Config struct {
	Sound    SoundOutput
	Volume   MediaVolume
	Vibrator Vibrator
	Pattern  Pattern
	Notifier AlarmNotifier
	Logger   *slog.Logger
}

// Device is the alarm.Actuator for a single host
type Device struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	playing     bool
	alarmID     string
	stopSound   func()
	savedVolume int
	volumeSaved bool
}

var _ alarm.Actuator = (*Device)(nil)

// NewDevice creates a device from cfg
func NewDevice(cfg Config) *Device {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if cfg.Vibrator == nil {
		cfg.Vibrator = NoVibration{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Pattern == (Pattern{}) {
		cfg.Pattern = DefaultPattern
	}
	return &Device{cfg: cfg, logger: logger}
}

// Start forces the media volume, loops the sound, starts vibrating and
// shows the alarm notification. Each channel that fails is logged and
// reported in the joined error; the others keep running.
func (d *Device) Start(a alarm.Alarm) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playing {
		d.stopLocked()
	}
	d.playing = true
	d.alarmID = a.ID
	settings := a.Settings.Normalize()

	var errs []error
	if err := d.forceVolume(settings.VolumePercent); err != nil {
		d.logger.Warn("failed to set alarm volume", "alarm_id", a.ID, "err", err)
		errs = append(errs, err)
	}

	if d.cfg.Sound != nil {
		stop, err := d.cfg.Sound.Play(settings.Sound)
		if err != nil {
			d.logger.Warn("failed to play alarm sound", "alarm_id", a.ID, "sound", settings.Sound, "err", err)
			errs = append(errs, fmt.Errorf("sound: %w", err))
		} else {
			d.stopSound = stop
		}
	}

	if err := d.cfg.Vibrator.Start(d.cfg.Pattern); err != nil {
		if errors.Is(err, ErrVibrationUnsupported) {
			d.logger.Debug("vibration unsupported on this host")
		} else {
			d.logger.Warn("failed to start vibration", "alarm_id", a.ID, "err", err)
			errs = append(errs, fmt.Errorf("vibration: %w", err))
		}
	}

	if err := d.cfg.Notifier.Show(a.Message); err != nil {
		d.logger.Warn("failed to show alarm notification", "alarm_id", a.ID, "err", err)
		errs = append(errs, fmt.Errorf("notification: %w", err))
	}

	d.logger.Info("alarm actuated", "alarm_id", a.ID, "volume_percent", settings.VolumePercent, "sound", settings.Sound)
	return errors.Join(errs...)
}

func (d *Device) forceVolume(percent int) error {
	if d.cfg.Volume == nil {
		return nil
	}
	current, err := d.cfg.Volume.Level()
	if err != nil {
		return fmt.Errorf("volume: read level: %w", err)
	}
	d.savedVolume = current
	d.volumeSaved = true

	target := TargetVolume(d.cfg.Volume.Max(), current, percent)
	if err := d.cfg.Volume.SetLevel(target); err != nil {
		return fmt.Errorf("volume: %w", err)
	}
	return nil
}

// Stop silences every channel and restores the media volume
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.playing {
		return nil
	}
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	var errs []error

	if d.stopSound != nil {
		d.stopSound()
		d.stopSound = nil
	}
	d.cfg.Vibrator.Stop()

	if d.volumeSaved {
		if err := d.cfg.Volume.SetLevel(d.savedVolume); err != nil {
			d.logger.Error("failed to restore media volume", "level", d.savedVolume, "err", err)
			errs = append(errs, fmt.Errorf("restore volume: %w", err))
		}
		d.volumeSaved = false
	}

	if err := d.cfg.Notifier.Dismiss(); err != nil {
		d.logger.Warn("failed to dismiss alarm notification", "err", err)
		errs = append(errs, err)
	}

	d.logger.Info("alarm silenced", "alarm_id", d.alarmID)
	d.playing = false
	d.alarmID = ""
	return errors.Join(errs...)
}

func (d *Device) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// OnStopAction forwards the notification stop action to fn
func (d *Device) OnStopAction(fn func()) {
	d.cfg.Notifier.OnStopAction(fn)
}
