// Package event wraps epoll readiness multiplexing and timerfd
// periodic timers for the main-thread application loop.
package event

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"firestige.xyz/pulse/internal/log"
)

const maxEvents = 16

// Loop multiplexes readiness on registered file descriptors and
// dispatches their callbacks synchronously on the calling goroutine.
type Loop struct {
	epfd      int
	callbacks map[int]func()
	running   atomic.Bool
}

// NewLoop creates the epoll instance.
func NewLoop() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("event loop create: %w", err)
	}
	return &Loop{
		epfd:      epfd,
		callbacks: make(map[int]func()),
	}, nil
}

// Register adds fd with the given epoll event mask; callback runs on
// each readiness notification. Registration must happen before Run.
func (l *Loop) Register(fd int, events uint32, callback func()) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("event loop register fd %d: %w", fd, err)
	}
	l.callbacks[fd] = callback
	log.GetLogger().Debugf("event loop: registered fd %d events 0x%x", fd, events)
	return nil
}

// Run blocks dispatching events until Stop is called. The wait uses a
// bounded timeout so a Stop with no pending readiness still takes
// effect promptly.
func (l *Loop) Run() {
	events := make([]unix.EpollEvent, maxEvents)
	l.running.Store(true)

	for l.running.Load() {
		n, err := unix.EpollWait(l.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.GetLogger().WithError(err).Error("event loop: wait failed")
			return
		}
		for i := 0; i < n; i++ {
			if cb, ok := l.callbacks[int(events[i].Fd)]; ok {
				cb()
			}
		}
	}
}

// Stop requests Run to return. Idempotent; safe to call from a
// callback or from the signal-handling goroutine.
func (l *Loop) Stop() {
	l.running.Store(false)
}

// Close releases the epoll descriptor. Registered fds are not closed.
func (l *Loop) Close() {
	if l.epfd >= 0 {
		unix.Close(l.epfd)
		l.epfd = -1
	}
}
