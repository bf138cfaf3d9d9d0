package components

import (
	"sync/atomic"
	"testing"
	"time"

	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestHoldButton_FiresAfterHold(t *testing.T) {
	test.NewApp()
	var fired atomic.Int32
	b := NewHoldButton("Stop", 150*time.Millisecond, func() { fired.Add(1) })

	b.MouseDown(&desktop.MouseEvent{})
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, b.Progress())

	b.MouseUp(&desktop.MouseEvent{})
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestHoldButton_EarlyReleaseResets(t *testing.T) {
	test.NewApp()
	var fired atomic.Int32
	b := NewHoldButton("Stop", time.Second, func() { fired.Add(1) })

	b.MouseDown(&desktop.MouseEvent{})
	time.Sleep(120 * time.Millisecond)
	b.MouseOut()

	assert.Zero(t, b.Progress())
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestHoldButton_ZeroHoldFiresOnPress(t *testing.T) {
	test.NewApp()
	fired := false
	b := NewHoldButton("Stop", 0, func() { fired = true })

	b.MouseDown(&desktop.MouseEvent{})
	assert.True(t, fired)
}
