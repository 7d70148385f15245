package packet

import "math"

// updateReceivedLifesign advances the liveness and stability monitor
// after a successful decode. Runs on the decoding goroutine only.
func (c *Codec) updateReceivedLifesign(lifesign uint16) {
	now := nanotime()

	c.lastIntervalUs = uint32((now - c.lastRecvNs) / 1000)
	c.lastRecvNs = now

	expectedUs := c.expectedIntervalMs * 1000
	var lower uint32
	if expectedUs > c.toleranceUs {
		lower = expectedUs - c.toleranceUs
	}
	upper := expectedUs + c.toleranceUs

	if c.lastIntervalUs < lower || c.lastIntervalUs > upper {
		if c.unstableCounter < math.MaxUint16 {
			c.unstableCounter++
		}
		c.commUnstable = true
		if c.err == ErrNone {
			c.err = ErrUnstableCommunication
		}
	} else {
		c.unstableCounter = 0
		c.commUnstable = false
		if c.err == ErrUnstableCommunication {
			c.err = ErrNone
		}
	}

	c.rxLifesignPrev = c.rxLifesign
	c.rxLifesign = lifesign

	if c.rxLifesign != c.rxLifesignPrev {
		c.lastChangeNs.Store(now)
		if c.err == ErrLossOfCommunication {
			c.err = ErrNone
		}
	}
}

// IsCommLost reports whether the peer's lifesign has been frozen for at
// least the configured timeout. The last-change instant is published
// atomically, so this observer is safe from any goroutine.
func (c *Codec) IsCommLost() bool {
	elapsedMs := (nanotime() - c.lastChangeNs.Load()) / 1e6
	return uint32(elapsedMs) >= c.commTimeoutMs
}

// IsCommUnstable reports whether the last inter-arrival interval fell
// outside the tolerance window.
func (c *Codec) IsCommUnstable() bool { return c.commUnstable }

// LastIntervalUs returns the last measured inter-arrival interval.
func (c *Codec) LastIntervalUs() uint32 { return c.lastIntervalUs }

// UnstableCounter returns the consecutive out-of-tolerance count. It
// saturates at 65535 and resets on the first in-tolerance arrival.
func (c *Codec) UnstableCounter() uint16 { return c.unstableCounter }

// TimeSinceLastChangeMs returns the milliseconds elapsed since the
// received lifesign last changed. Safe from any goroutine.
func (c *Codec) TimeSinceLastChangeMs() uint32 {
	return uint32((nanotime() - c.lastChangeNs.Load()) / 1e6)
}

// CommTimeoutMs returns the configured loss-of-communication timeout.
func (c *Codec) CommTimeoutMs() uint32 { return c.commTimeoutMs }

// SetCommTimeout sets the lifesign-freeze timeout in milliseconds.
func (c *Codec) SetCommTimeout(timeoutMs uint32) { c.commTimeoutMs = timeoutMs }

// ExpectedIntervalMs returns the expected inter-arrival interval.
func (c *Codec) ExpectedIntervalMs() uint32 { return c.expectedIntervalMs }

// IntervalToleranceUs returns the allowed deviation from the expected
// interval.
func (c *Codec) IntervalToleranceUs() uint32 { return c.toleranceUs }

// SetExpectedInterval configures the stability tolerance window:
// an arrival is stable when its interval lies within
// [interval-tolerance, interval+tolerance].
func (c *Codec) SetExpectedInterval(intervalMs, toleranceUs uint32) {
	c.expectedIntervalMs = intervalMs
	c.toleranceUs = toleranceUs
}

// ResetCommMonitor restarts liveness tracking, e.g. after a reconnect.
func (c *Codec) ResetCommMonitor() {
	now := nanotime()
	c.rxLifesign = 0
	c.rxLifesignPrev = 0
	c.lastChangeNs.Store(now)
	c.lastRecvNs = now
	c.lastIntervalUs = 0
	c.unstableCounter = 0
	c.commUnstable = false
	if c.err == ErrLossOfCommunication || c.err == ErrUnstableCommunication {
		c.err = ErrNone
	}
}
