package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind names a message type and the subject suffix it travels on
type Kind string

const (
	KindState        Kind = "state"
	KindNotification Kind = "notification"
	KindStop         Kind = "stop"
	KindSettings     Kind = "settings"
	KindTrigger      Kind = "trigger"
	KindStatus       Kind = "status"
	KindReady        Kind = "ready"
)

func (k Kind) valid() bool {
	switch k {
	case KindState, KindNotification, KindStop, KindSettings, KindTrigger, KindStatus, KindReady:
		return true
	}
	return false
}

// Envelope wraps every payload exchanged over NATS
type Envelope struct {
	Kind    Kind            `json:"kind"`
	SentAt  time.Time       `json:"sent_at"`
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate ensures required fields are present
func (e Envelope) Validate() error {
	if !e.Kind.valid() {
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.SentAt.IsZero() {
		return errors.New("sent_at is required")
	}
	return nil
}

// Encode wraps payload in an envelope of kind
func Encode(kind Kind, origin string, payload any) ([]byte, error) {
	env := Envelope{Kind: kind, SentAt: time.Now().UTC(), Origin: origin}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		env.Payload = raw
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Decode unwraps data into out, checking the envelope kind. out may be nil
// for payload-less kinds.
func Decode(data []byte, want Kind, out any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	if env.Kind != want {
		return Envelope{}, fmt.Errorf("expected %s envelope, got %s", want, env.Kind)
	}
	if out != nil {
		if len(env.Payload) == 0 {
			return Envelope{}, fmt.Errorf("%s envelope has no payload", want)
		}
		if err := json.Unmarshal(env.Payload, out); err != nil {
			return Envelope{}, fmt.Errorf("decode %s payload: %w", want, err)
		}
	}
	return env, nil
}
