package event

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// PeriodicTimer is a monotonic timerfd firing at a fixed interval. Its
// descriptor is registered on the Loop; Handle drains the expiration
// count and invokes the callback once per call regardless of how many
// expirations accumulated.
type PeriodicTimer struct {
	fd       int
	callback func()
}

// NewPeriodicTimer creates and arms a periodic CLOCK_MONOTONIC timer.
func NewPeriodicTimer(interval time.Duration) (*PeriodicTimer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timer create: %w", err)
	}

	ns := interval.Nanoseconds()
	ts := unix.Timespec{
		Sec:  ns / int64(time.Second),
		Nsec: ns % int64(time.Second),
	}
	spec := unix.ItimerSpec{Value: ts, Interval: ts}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("timer settime: %w", err)
	}

	return &PeriodicTimer{fd: fd}, nil
}

// SetCallback sets the function invoked by Handle.
func (t *PeriodicTimer) SetCallback(callback func()) {
	t.callback = callback
}

// Handle reads and discards the accumulated expiration count, then
// invokes the callback once. Call from the Loop when the fd is ready.
func (t *PeriodicTimer) Handle() {
	var buf [8]byte
	n, err := unix.Read(t.fd, buf[:])
	if err != nil || n != len(buf) {
		// Spurious wakeup on a nonblocking timerfd; nothing expired.
		return
	}
	_ = binary.LittleEndian.Uint64(buf[:]) // expiration count, discarded

	if t.callback != nil {
		t.callback()
	}
}

// Fd returns the timer descriptor for Loop registration.
func (t *PeriodicTimer) Fd() int { return t.fd }

// Close disarms the timer and releases its descriptor.
func (t *PeriodicTimer) Close() {
	if t.fd >= 0 {
		unix.Close(t.fd)
		t.fd = -1
	}
}
