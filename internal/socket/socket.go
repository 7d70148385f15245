// Package socket provides the connected UDP endpoint used by the
// RX/TX workers: bind local, connect remote, blocking send/receive
// with a configurable receive timeout.
//
// The endpoint is built on a raw file descriptor rather than net.Conn
// so SO_RCVTIMEO, buffer sizing and errno classification behave
// exactly as the workers require.
package socket

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

// Endpoint is a connected IPv4 datagram socket. Concurrent Send and
// Recv from different goroutines are permitted; the kernel serializes
// each direction.
type Endpoint struct {
	fd  int
	src netip.AddrPort
	dst netip.AddrPort
}

// Open creates the datagram socket, sets SO_REUSEADDR, binds to src
// and connects to dst. On any step's failure the socket is closed and
// the failing step is reported in the error.
func Open(src, dst netip.AddrPort) (*Endpoint, error) {
	if !src.Addr().Is4() || !dst.Addr().Is4() {
		return nil, fmt.Errorf("socket open: only IPv4 addresses are supported")
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socket setsockopt SO_REUSEADDR: %w", err)
	}

	if err := unix.Bind(fd, sockaddr(src)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socket bind %s: %w", src, err)
	}

	if err := unix.Connect(fd, sockaddr(dst)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socket connect %s: %w", dst, err)
	}

	return &Endpoint{fd: fd, src: src, dst: dst}, nil
}

func sockaddr(ap netip.AddrPort) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{
		Port: int(ap.Port()),
		Addr: ap.Addr().As4(),
	}
}

// Send transmits one datagram to the connected peer. Blocking.
func (e *Endpoint) Send(data []byte) (int, error) {
	n, err := unix.Write(e.fd, data)
	if err != nil {
		return -1, fmt.Errorf("socket send: %w", err)
	}
	return n, nil
}

// Recv blocks until a datagram arrives or the receive timeout expires.
// A timeout surfaces as a Transient error with n <= 0.
func (e *Endpoint) Recv(buf []byte) (int, error) {
	n, err := unix.Read(e.fd, buf)
	if err != nil {
		return -1, fmt.Errorf("socket recv: %w", err)
	}
	return n, nil
}

// SetRecvTimeout sets SO_RCVTIMEO; zero disables the timeout.
func (e *Endpoint) SetRecvTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(e.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("socket setsockopt SO_RCVTIMEO: %w", err)
	}
	return nil
}

// Fd exposes the raw descriptor for socket-option tuning.
func (e *Endpoint) Fd() int { return e.fd }

// Src returns the bound local address.
func (e *Endpoint) Src() netip.AddrPort { return e.src }

// Dst returns the connected peer address.
func (e *Endpoint) Dst() netip.AddrPort { return e.dst }

// Close releases the descriptor. Safe to call more than once.
func (e *Endpoint) Close() {
	if e.fd >= 0 {
		unix.Close(e.fd)
		e.fd = -1
	}
}

// Transient reports whether a send/recv error is a retry opportunity
// rather than a reason to terminate the worker: interrupted by signal,
// receive-timeout/would-block, or the ICMP-origin "connection refused"
// a connected UDP socket reports while the remote is not yet listening.
func Transient(err error) bool {
	return errors.Is(err, unix.EINTR) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.ECONNREFUSED)
}
