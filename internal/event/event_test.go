package event

import (
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestTimerFiresOnLoop(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	defer loop.Close()

	timer, err := NewPeriodicTimer(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("new timer: %v", err)
	}
	defer timer.Close()

	var fired atomic.Int64
	timer.SetCallback(func() {
		if fired.Add(1) >= 3 {
			loop.Stop()
		}
	})
	if err := loop.Register(timer.Fd(), unix.EPOLLIN, timer.Handle); err != nil {
		t.Fatalf("register: %v", err)
	}

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		loop.Stop()
		t.Fatal("loop did not stop after timer fires")
	}
	if fired.Load() < 3 {
		t.Fatalf("timer fired %d times, want >= 3", fired.Load())
	}
}

func TestHandleCoalescesExpirations(t *testing.T) {
	timer, err := NewPeriodicTimer(5 * time.Millisecond)
	if err != nil {
		t.Fatalf("new timer: %v", err)
	}
	defer timer.Close()

	var calls int
	timer.SetCallback(func() { calls++ })

	// Let several expirations pile up, then drain once.
	time.Sleep(40 * time.Millisecond)
	timer.Handle()
	if calls != 1 {
		t.Fatalf("callback ran %d times for one Handle, want 1", calls)
	}
}

func TestStopIdempotent(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	defer loop.Close()

	loop.Stop()
	loop.Stop()

	done := make(chan struct{})
	go func() {
		loop.Run() // running flag is reset by Run; stop again below
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after Stop")
	}
}
