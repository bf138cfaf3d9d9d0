package models

import "time"

// Phase is the lifecycle phase of the alarm
type Phase string

const (
	PhaseIdle     Phase = "idle"     // Nothing sounding, triggers allowed
	PhaseActive   Phase = "active"   // Alarm is sounding
	PhaseCooldown Phase = "cooldown" // Recently stopped, triggers suppressed
)

// AlarmState is a snapshot of the alarm lifecycle
type AlarmState struct {
	Phase                       Phase     `json:"phase"`
	ActiveMessage               string    `json:"active_message,omitempty"`
	ActiveSourceTitleNormalized string    `json:"active_source_title,omitempty"`
	LastStoppedAt               time.Time `json:"last_stopped_at,omitempty"`
	AlarmID                     string    `json:"alarm_id,omitempty"`
}

// StateChange is emitted to observers whenever an alarm starts or stops
type StateChange struct {
	Active  bool      `json:"active"`
	Message string    `json:"message"`
	AlarmID string    `json:"alarm_id,omitempty"`
	Title   string    `json:"source_title,omitempty"` // normalized title of the triggering notification
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Origin  string    `json:"origin,omitempty"` // foreground or background
}

// ListenerStatus is the background listener's answer to a status query
type ListenerStatus struct {
	Listening bool   `json:"listening"`
	Monitored string `json:"monitored,omitempty"`
	Active    bool   `json:"active"`
	Message   string `json:"message,omitempty"`
	AlarmID   string `json:"alarm_id,omitempty"`
}

const (
	OriginForeground = "foreground"
	OriginBackground = "background"
)
