package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

func TestLocal_StateAndNotification(t *testing.T) {
	ctx := context.Background()
	hub := NewLocal()

	var states []models.StateChange
	sub, err := hub.OnState(func(sc models.StateChange) { states = append(states, sc) })
	require.NoError(t, err)

	require.NoError(t, hub.PublishState(ctx, models.StateChange{Active: true, AlarmID: "a1", Seq: 1}))
	require.Len(t, states, 1)
	assert.Equal(t, "a1", states[0].AlarmID)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, hub.PublishState(ctx, models.StateChange{Seq: 2}))
	assert.Len(t, states, 1)

	var notes []models.IncomingNotification
	_, err = hub.OnNotification(func(n models.IncomingNotification) { notes = append(notes, n) })
	require.NoError(t, err)

	n := models.IncomingNotification{SourceApp: "com.thetransitapp.droid", Title: "Arriving at Elm"}
	assert.ErrorIs(t, hub.PublishNotification(ctx, n), ErrNotReady)
	assert.False(t, hub.ForegroundReady(ctx))

	require.NoError(t, hub.MarkReady(ctx, true))
	assert.True(t, hub.ForegroundReady(ctx))
	require.NoError(t, hub.PublishNotification(ctx, n))
	assert.Equal(t, []models.IncomingNotification{n}, notes)
}

func TestLocal_Commands(t *testing.T) {
	ctx := context.Background()
	hub := NewLocal()

	_, err := hub.Status(ctx)
	assert.ErrorIs(t, err, ErrNoListener)
	_, err = hub.RequestTrigger(ctx, models.DefaultSettings())
	assert.ErrorIs(t, err, ErrNoListener)

	var stops int
	var updates []models.SettingsUpdate
	_, _ = hub.OnStop(func() { stops++ })
	_, _ = hub.OnSettings(func(u models.SettingsUpdate) { updates = append(updates, u) })
	statusSub, _ := hub.ServeStatus(func() models.ListenerStatus {
		return models.ListenerStatus{Listening: true, Monitored: "com.citymapper.app.release"}
	})
	_, _ = hub.OnTrigger(func(s models.AlarmSettings) TriggerReply {
		return TriggerReply{Result: "activated", AlarmID: "t1"}
	})

	require.NoError(t, hub.SendStop(ctx))
	assert.Equal(t, 1, stops)

	update := models.SettingsUpdate{Settings: models.DefaultSettings(), Monitored: "com.citymapper.app.release", Monitoring: true}
	require.NoError(t, hub.PushSettings(ctx, update))
	assert.Equal(t, []models.SettingsUpdate{update}, updates)

	st, err := hub.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Listening)

	reply, err := hub.RequestTrigger(ctx, models.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "t1", reply.AlarmID)

	require.NoError(t, statusSub.Unsubscribe())
	_, err = hub.Status(ctx)
	assert.ErrorIs(t, err, ErrNoListener)
}

func TestLocal_OnReadyFiresOnTransition(t *testing.T) {
	ctx := context.Background()
	hub := NewLocal()

	var readies int
	_, _ = hub.OnReady(func() { readies++ })

	require.NoError(t, hub.MarkReady(ctx, true))
	require.NoError(t, hub.MarkReady(ctx, true))
	assert.Equal(t, 1, readies)

	require.NoError(t, hub.MarkReady(ctx, false))
	require.NoError(t, hub.MarkReady(ctx, true))
	assert.Equal(t, 2, readies)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	change := models.StateChange{Active: true, Message: "Transit: Arriving", AlarmID: "a1", Seq: 3, At: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}

	data, err := Encode(KindState, models.OriginBackground, change)
	require.NoError(t, err)

	var got models.StateChange
	env, err := Decode(data, KindState, &got)
	require.NoError(t, err)
	assert.Equal(t, change, got)
	assert.Equal(t, models.OriginBackground, env.Origin)
	assert.False(t, env.SentAt.IsZero())
}

func TestDecode_Rejects(t *testing.T) {
	stop, err := Encode(KindStop, "", nil)
	require.NoError(t, err)

	_, err = Decode(stop, KindStop, nil)
	assert.NoError(t, err)

	_, err = Decode(stop, KindState, nil)
	assert.Error(t, err, "kind mismatch")

	var sc models.StateChange
	_, err = Decode(stop, KindStop, &sc)
	assert.Error(t, err, "missing payload")

	_, err = Decode([]byte("not json"), KindStop, nil)
	assert.Error(t, err)

	noTime, _ := json.Marshal(Envelope{Kind: KindStop})
	_, err = Decode(noTime, KindStop, nil)
	assert.Error(t, err)

	unknown, _ := json.Marshal(Envelope{Kind: "bogus", SentAt: time.Now()})
	_, err = Decode(unknown, "bogus", nil)
	assert.Error(t, err)
}

func TestNATS_Subjects(t *testing.T) {
	b := NewNATS(nil, NATSConfig{Prefix: "home.snoozer."})
	assert.Equal(t, "home.snoozer.state", b.Subject(KindState))
	assert.Equal(t, "home.snoozer.ready.ping", b.pingSubject())

	b = NewNATS(nil, NATSConfig{})
	assert.Equal(t, "transit-snoozer.status", b.Subject(KindStatus))
	assert.Equal(t, 2*time.Second, b.cfg.Timeout)
}
