package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDismissalMemory(t *testing.T) {
	var m DismissalMemory

	assert.False(t, m.Matches(""), "empty memory never matches")
	assert.False(t, m.Matches("Next stop"))

	m.Remember("  Next Stop: Main St ")
	assert.Equal(t, "next stop: main st", m.Fingerprint())
	assert.True(t, m.Matches("next stop: main st"))
	assert.True(t, m.Matches("NEXT STOP: MAIN ST"))
	assert.False(t, m.Matches("Next stop: Elm St"))

	m.Remember("Arriving at Elm")
	assert.False(t, m.Matches("Next stop: Main St"), "only the latest title is remembered")

	m.Clear()
	assert.Empty(t, m.Fingerprint())
	assert.False(t, m.Matches("Arriving at Elm"))
}

func TestDismissalMemory_EmptyTitleNeverMatches(t *testing.T) {
	var m DismissalMemory

	m.Remember("   ")
	assert.False(t, m.Matches(""))
	assert.False(t, m.Matches("  "))
}
