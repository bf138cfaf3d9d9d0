package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

func TestParseStops(t *testing.T) {
	tests := []struct {
		name   string
		source string
		text   string
		want   int
		found  bool
	}{
		{"maps digits", maps, "Bus 42 (3 more stops)", 3, true},
		{"maps single", maps, "Train A (1 stop)", 1, true},
		{"maps words", maps, "Bus 42 (two more stops)", 2, true},
		{"transit remaining", "com.thetransitapp.droid", "4 stops remaining", 4, true},
		{"generic in n stops", "org.example", "Get ready, in 2 stops", 2, true},
		{"generic fallback for maps", maps, "Exit in 3 stops", 3, true},
		{"no count", maps, "Departing now", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStops(models.IncomingNotification{SourceApp: tt.source, Title: tt.text})
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDetails_GoogleMaps(t *testing.T) {
	d := ParseDetails(models.IncomingNotification{
		SourceApp: maps,
		Title:     "Next stop: Main St (2 more stops)",
		Body:      "Bus 42X toward Downtown",
	})

	assert.Equal(t, "Main St", d.NextStop)
	assert.Equal(t, "42X", d.Line)
	assert.Equal(t, 2, d.StopsRemaining)
}

func TestParseDetails_Empty(t *testing.T) {
	d := ParseDetails(models.IncomingNotification{SourceApp: maps})

	assert.Empty(t, d.NextStop)
	assert.Empty(t, d.Line)
	assert.Equal(t, -1, d.StopsRemaining)
}
