// Package classifier decides whether a transit notification announces an
// imminent arrival. It is shared by the background listener and the
// foreground coordinator so both paths fire on exactly the same input.
package classifier

import (
	"strings"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// ArrivalPhrases trigger the alarm when found anywhere in the combined text
var ArrivalPhrases = []string{
	"next stop",
	"final stop",
	"last stop",
	"get off at the next stop",
	"arriving at",
}

// Reason explains a classification decision
type Reason string

const (
	ReasonOtherSource Reason = "other_source" // not the monitored app
	ReasonDebug       Reason = "debug"        // debug mode fires on everything
	ReasonPhrase      Reason = "phrase"
	ReasonStops       Reason = "stops_remaining"
	ReasonNoMatch     Reason = "no_match"
)

// Decision is the outcome of Evaluate
type Decision struct {
	Trigger        bool
	Reason         Reason
	Phrase         string // matched arrival phrase, if any
	StopsRemaining int    // -1 when the text carried no count
}

// Classify reports whether n should fire the alarm
func Classify(n models.IncomingNotification, settings models.AlarmSettings, monitored string) bool {
	return Evaluate(n, settings, monitored).Trigger
}

// Evaluate classifies n against the monitored source and settings.
// The phrase match is primary. When the trigger sensitivity is above one,
// a parsed stops-remaining count at or under it also fires.
func Evaluate(n models.IncomingNotification, settings models.AlarmSettings, monitored string) Decision {
	d := Decision{StopsRemaining: -1}

	if monitored == "" || n.SourceApp != monitored {
		d.Reason = ReasonOtherSource
		return d
	}

	if settings.DebugMode {
		d.Trigger = true
		d.Reason = ReasonDebug
		return d
	}

	text := strings.ToLower(n.CombinedText())
	for _, phrase := range ArrivalPhrases {
		if strings.Contains(text, phrase) {
			d.Trigger = true
			d.Reason = ReasonPhrase
			d.Phrase = phrase
			return d
		}
	}

	if stops, ok := ParseStops(n); ok {
		d.StopsRemaining = stops
		if settings.TriggerSensitivity > 1 && stops <= settings.TriggerSensitivity {
			d.Trigger = true
			d.Reason = ReasonStops
			return d
		}
	}

	d.Reason = ReasonNoMatch
	return d
}

// Message builds the text shown while the alarm sounds
func Message(n models.IncomingNotification) string {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = "Transit Update"
	}
	return n.DisplayName() + ": " + title
}
