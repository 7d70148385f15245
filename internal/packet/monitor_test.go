package packet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(t *testing.T, tx, rx *Codec) {
	t.Helper()
	buf := make([]byte, MaxPacketSize)
	tx.SetData([]byte("hb"))
	n := tx.Encode(buf)
	require.NotZero(t, n)
	require.True(t, rx.Decode(buf[:n]), "decode failed: %v", rx.Err())
}

func TestBackToBackArrivalIsUnstable(t *testing.T) {
	tx := NewCodec()
	rx := NewCodec()

	// Two decodes within far less than expected-tolerance: both
	// intervals (from codec creation, then between the decodes) fall
	// below the window's lower bound, so the counter reaches 2.
	exchange(t, tx, rx)
	exchange(t, tx, rx)

	assert.True(t, rx.IsCommUnstable())
	assert.Equal(t, uint16(2), rx.UnstableCounter())
	assert.Equal(t, ErrUnstableCommunication, rx.Err())
}

func TestWideToleranceIsStable(t *testing.T) {
	tx := NewCodec()
	rx := NewCodec()
	// Window [0, 200ms] accepts any immediate arrival.
	rx.SetExpectedInterval(100, 100000)

	exchange(t, tx, rx)
	exchange(t, tx, rx)

	assert.False(t, rx.IsCommUnstable())
	assert.Zero(t, rx.UnstableCounter())
	assert.Equal(t, ErrNone, rx.Err())
}

func TestStableArrivalResetsUnstableState(t *testing.T) {
	tx := NewCodec()
	rx := NewCodec()
	rx.SetExpectedInterval(20, 15000) // window [5ms, 35ms]

	exchange(t, tx, rx) // immediate: below window
	require.True(t, rx.IsCommUnstable())

	time.Sleep(20 * time.Millisecond)
	exchange(t, tx, rx) // in-window

	assert.False(t, rx.IsCommUnstable())
	assert.Zero(t, rx.UnstableCounter())
	assert.Equal(t, ErrNone, rx.Err())
}

func TestCommLostOnFrozenLifesign(t *testing.T) {
	rx := NewCodec()
	rx.SetCommTimeout(40)

	require.False(t, rx.IsCommLost(), "fresh monitor must not be lost")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rx.IsCommLost())
	assert.GreaterOrEqual(t, rx.TimeSinceLastChangeMs(), uint32(40))
}

func TestLifesignChangeClearsCommLost(t *testing.T) {
	tx := NewCodec()
	rx := NewCodec()
	rx.SetCommTimeout(40)
	rx.SetExpectedInterval(100, 1000000)

	time.Sleep(60 * time.Millisecond)
	require.True(t, rx.IsCommLost())

	// First exchange carries lifesign 0 == rx initial state, so the
	// counter only changes from the second frame on.
	exchange(t, tx, rx)
	exchange(t, tx, rx)
	assert.False(t, rx.IsCommLost())
}

func TestResetCommMonitor(t *testing.T) {
	tx := NewCodec()
	rx := NewCodec()
	exchange(t, tx, rx)
	exchange(t, tx, rx)
	require.True(t, rx.IsCommUnstable())

	rx.ResetCommMonitor()
	assert.False(t, rx.IsCommUnstable())
	assert.Zero(t, rx.UnstableCounter())
	assert.Zero(t, rx.LastIntervalUs())
	assert.Equal(t, ErrNone, rx.Err())
	assert.False(t, rx.IsCommLost())
}

func TestMonitorDefaults(t *testing.T) {
	c := NewCodec()
	assert.Equal(t, uint32(DefaultCommTimeoutMs), c.CommTimeoutMs())
	assert.Equal(t, uint32(DefaultExpectedIntervalMs), c.ExpectedIntervalMs())
	assert.Equal(t, uint32(DefaultIntervalToleranceUs), c.IntervalToleranceUs())
}
