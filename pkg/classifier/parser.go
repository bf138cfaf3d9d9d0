package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

const countToken = `(\d+|one|two|three|four|five|six|seven|eight|nine|ten)`

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

type appPatterns struct {
	nextStop       *regexp.Regexp
	stopsRemaining *regexp.Regexp
	line           *regexp.Regexp
}

var (
	linePattern = regexp.MustCompile(`(?i)(?:line|route|bus|train)\s+([A-Z0-9]+)`)

	perApp = map[string]appPatterns{
		"com.google.android.apps.maps": {
			nextStop:       regexp.MustCompile(`(?i)next stop[:\s]+([^(]+)`),
			stopsRemaining: regexp.MustCompile(`(?i)\(` + countToken + `\s+(?:more\s+)?stops?\)`),
			line:           linePattern,
		},
		"com.thetransitapp.droid": {
			nextStop:       regexp.MustCompile(`(?i)next[:\s]+([^-]+)`),
			stopsRemaining: regexp.MustCompile(`(?i)` + countToken + `\s+stops?\s+remaining`),
			line:           regexp.MustCompile(`(?i)([A-Z0-9]+)\s+(?:line|route)`),
		},
	}

	generic = appPatterns{
		nextStop:       regexp.MustCompile(`(?i)next stop[:\s]+([^(\-]+)`),
		stopsRemaining: regexp.MustCompile(`(?i)\bin\s+` + countToken + `\s+stops?\b`),
		line:           linePattern,
	}
)

// Details holds the fields extracted from a transit notification
type Details struct {
	NextStop       string
	Line           string
	StopsRemaining int // -1 when unknown
}

func patternsFor(source string) appPatterns {
	if p, ok := perApp[source]; ok {
		return p
	}
	return generic
}

// ParseStops extracts the number of stops remaining, if the text has one
func ParseStops(n models.IncomingNotification) (int, bool) {
	text := n.CombinedText()
	if stops, ok := matchCount(patternsFor(n.SourceApp).stopsRemaining, text); ok {
		return stops, true
	}
	return matchCount(generic.stopsRemaining, text)
}

// ParseDetails extracts next stop, line and stop count for display
func ParseDetails(n models.IncomingNotification) Details {
	p := patternsFor(n.SourceApp)
	text := n.CombinedText()

	d := Details{StopsRemaining: -1}
	if m := p.nextStop.FindStringSubmatch(text); m != nil {
		d.NextStop = strings.TrimSpace(m[1])
	}
	if m := p.line.FindStringSubmatch(text); m != nil {
		d.Line = strings.TrimSpace(m[1])
	}
	if stops, ok := ParseStops(n); ok {
		d.StopsRemaining = stops
	}
	return d
}

func matchCount(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	token := strings.ToLower(m[1])
	if v, ok := wordNumbers[token]; ok {
		return v, true
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return v, true
}
