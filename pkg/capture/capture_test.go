package capture

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

func notifyBody(app, summary, text string, hints map[string]dbus.Variant) []interface{} {
	return []interface{}{app, uint32(0), "", summary, text, []string{}, hints, int32(-1)}
}

func TestDecodeNotify(t *testing.T) {
	n, ok := decodeNotify(notifyBody("Google Maps", " Next stop: Main St ", "Bus 42", map[string]dbus.Variant{
		"desktop-entry": dbus.MakeVariant("com.google.android.apps.maps"),
	}))
	require.True(t, ok)

	assert.Equal(t, "com.google.android.apps.maps", n.SourceApp)
	assert.Equal(t, "Google Maps", n.AppName)
	assert.Equal(t, "Next stop: Main St", n.Title)
	assert.Equal(t, "Bus 42", n.Body)
}

func TestDecodeNotify_AppNameWithoutHints(t *testing.T) {
	n, ok := decodeNotify(notifyBody("Transit", "Arriving", "", map[string]dbus.Variant{}))
	require.True(t, ok)
	assert.Equal(t, "Transit", n.SourceApp)

	n, ok = decodeNotify([]interface{}{"Transit", uint32(0), "", "Arriving", ""})
	require.True(t, ok)
	assert.Equal(t, "Arriving", n.Title)
}

func TestDecodeNotify_Malformed(t *testing.T) {
	_, ok := decodeNotify(nil)
	assert.False(t, ok)

	_, ok = decodeNotify([]interface{}{42, uint32(0), "", "x", "y"})
	assert.False(t, ok)

	_, ok = decodeNotify(notifyBody("", "Next stop", "", nil))
	assert.False(t, ok, "no source to filter on")
}

func TestFromMessage(t *testing.T) {
	msg := &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldInterface: dbus.MakeVariant("org.freedesktop.Notifications"),
			dbus.FieldMember:    dbus.MakeVariant("Notify"),
		},
		Body: notifyBody("Citymapper", "Get off at the next stop", "", nil),
	}

	n, ok := FromMessage(msg)
	require.True(t, ok)
	assert.Equal(t, "Citymapper", n.SourceApp)

	msg.Headers[dbus.FieldMember] = dbus.MakeVariant("CloseNotification")
	_, ok = FromMessage(msg)
	assert.False(t, ok)

	_, ok = FromMessage(&dbus.Message{Type: dbus.TypeSignal})
	assert.False(t, ok)
}

func TestChan(t *testing.T) {
	ch := make(chan models.IncomingNotification, 2)
	ch <- models.IncomingNotification{SourceApp: "a"}
	ch <- models.IncomingNotification{SourceApp: "b"}
	close(ch)

	var got []string
	err := Chan(ch).Run(context.Background(), func(n models.IncomingNotification) {
		got = append(got, n.SourceApp)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}
