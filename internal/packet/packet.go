// Package packet implements the lifesign datagram codec and the
// liveness/stability monitor keyed to the received lifesign counter.
//
// Wire format, little-endian:
//
//	offset 0  unique_id   u32
//	offset 4  lifesign    u16   wrapping counter, incremented per encode
//	offset 6  data_length u16   N, 0..256
//	offset 8  data        N bytes
//	offset 8+N crc32      u32   IEEE 802.3 CRC over bytes [0, 8+N)
package packet

import (
	"encoding/binary"
	"hash/crc32"
	"sync/atomic"
	"time"
)

const (
	// HeaderSize is unique_id + lifesign + data_length.
	HeaderSize = 8
	// FooterSize is the CRC32 trailer.
	FooterSize = 4
	// MinPacketSize is a frame with an empty payload.
	MinPacketSize = HeaderSize + FooterSize
	// MaxDataSize bounds the payload length.
	MaxDataSize = 256
	// MaxPacketSize is the largest encodable frame.
	MaxPacketSize = HeaderSize + MaxDataSize + FooterSize
)

// Monitor defaults, overridable via SetCommTimeout / SetExpectedInterval.
const (
	DefaultCommTimeoutMs       = 1000
	DefaultExpectedIntervalMs  = 100
	DefaultIntervalToleranceUs = 5000
)

// ErrorKind is the closed error taxonomy of the codec and its monitor.
// It is surfaced through Err, never through panics.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrInvalidDataPointer
	ErrDataTooLarge
	ErrBufferTooSmall
	ErrInvalidPacket
	ErrCrcMismatch
	ErrUnstableCommunication
	ErrLossOfCommunication
)

func (e ErrorKind) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrInvalidDataPointer:
		return "invalid data pointer"
	case ErrDataTooLarge:
		return "data too large"
	case ErrBufferTooSmall:
		return "buffer too small"
	case ErrInvalidPacket:
		return "invalid packet"
	case ErrCrcMismatch:
		return "crc mismatch"
	case ErrUnstableCommunication:
		return "unstable communication"
	case ErrLossOfCommunication:
		return "loss of communication"
	}
	return "unknown"
}

// monoEpoch anchors the monotonic nanosecond clock used by the monitor.
var monoEpoch = time.Now()

func nanotime() int64 {
	return time.Since(monoEpoch).Nanoseconds()
}

// Codec encodes and decodes lifesign frames and tracks peer liveness.
// A Codec is confined to one goroutine; only the published last-change
// stamp may be read from elsewhere (see IsCommLost).
type Codec struct {
	// TX fields
	uniqueID uint32
	lifesign uint16
	data     []byte // borrowed, never copied into the codec
	crc      uint32

	// RX lifesign monitoring
	rxLifesign     uint16
	rxLifesignPrev uint16
	lastChangeNs   atomic.Int64 // monotonic ns, cross-thread readable
	lastRecvNs     int64
	commTimeoutMs  uint32

	// Stability monitoring
	expectedIntervalMs uint32
	toleranceUs        uint32
	lastIntervalUs     uint32
	unstableCounter    uint16
	commUnstable       bool

	err ErrorKind
}

// NewCodec returns a codec with default monitor configuration. The
// liveness clock starts now, so a freshly created codec is not
// considered comm-lost until a full timeout elapses.
func NewCodec() *Codec {
	c := &Codec{
		commTimeoutMs:      DefaultCommTimeoutMs,
		expectedIntervalMs: DefaultExpectedIntervalMs,
		toleranceUs:        DefaultIntervalToleranceUs,
	}
	now := nanotime()
	c.lastChangeNs.Store(now)
	c.lastRecvNs = now
	return c
}

// SetUniqueID sets the sender identity carried in encoded frames.
func (c *Codec) SetUniqueID(id uint32) { c.uniqueID = id }

// SetData borrows the payload for subsequent Encode calls. The slice
// must remain valid until the encode completes; it is not copied.
func (c *Codec) SetData(data []byte) {
	if data == nil {
		c.err = ErrInvalidDataPointer
		c.data = nil
		return
	}
	if len(data) > MaxDataSize {
		c.err = ErrDataTooLarge
		c.data = nil
		return
	}
	c.err = ErrNone
	c.data = data
}

// Encode writes one frame into buf and returns the number of bytes
// written, or 0 with Err set. On success the TX lifesign wraps forward
// for the next call.
func (c *Codec) Encode(buf []byte) int {
	total := HeaderSize + len(c.data) + FooterSize
	if buf == nil {
		c.err = ErrInvalidDataPointer
		return 0
	}
	if len(buf) < total {
		c.err = ErrBufferTooSmall
		return 0
	}

	binary.LittleEndian.PutUint32(buf[0:4], c.uniqueID)
	binary.LittleEndian.PutUint16(buf[4:6], c.lifesign)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(c.data)))
	copy(buf[HeaderSize:], c.data)

	body := HeaderSize + len(c.data)
	c.crc = crc32.ChecksumIEEE(buf[:body])
	binary.LittleEndian.PutUint32(buf[body:body+FooterSize], c.crc)

	c.err = ErrNone
	c.lifesign++
	return total
}

// Decode parses one received frame. On success the header fields are
// recorded, Data exposes a view borrowed from buf, and the liveness
// monitor advances. On any failure the monitor does not advance and
// Err reports the cause.
func (c *Codec) Decode(buf []byte) bool {
	if buf == nil {
		c.err = ErrInvalidDataPointer
		return false
	}
	if len(buf) < MinPacketSize {
		c.err = ErrInvalidPacket
		return false
	}

	dataLen := int(binary.LittleEndian.Uint16(buf[6:8]))
	if len(buf) < HeaderSize+dataLen+FooterSize {
		c.err = ErrInvalidPacket
		return false
	}
	if dataLen > MaxDataSize {
		c.err = ErrDataTooLarge
		return false
	}

	body := HeaderSize + dataLen
	stored := binary.LittleEndian.Uint32(buf[body : body+FooterSize])
	if crc32.ChecksumIEEE(buf[:body]) != stored {
		c.err = ErrCrcMismatch
		return false
	}

	c.uniqueID = binary.LittleEndian.Uint32(buf[0:4])
	c.crc = stored
	if dataLen > 0 {
		c.data = buf[HeaderSize:body]
	} else {
		c.data = nil
	}

	c.err = ErrNone
	c.updateReceivedLifesign(binary.LittleEndian.Uint16(buf[4:6]))
	return true
}

// UniqueID returns the identity of the last encoded or decoded frame.
func (c *Codec) UniqueID() uint32 { return c.uniqueID }

// Lifesign returns the TX counter that the next Encode will emit.
func (c *Codec) Lifesign() uint16 { return c.lifesign }

// ReceivedLifesign returns the last successfully decoded counter.
func (c *Codec) ReceivedLifesign() uint16 { return c.rxLifesign }

// Data returns the payload view of the last decode (or the borrowed
// TX payload). The view aliases the caller's buffer and must be
// consumed before that buffer is reused.
func (c *Codec) Data() []byte { return c.data }

// DataLength returns the payload length in bytes.
func (c *Codec) DataLength() int { return len(c.data) }

// Crc32 returns the CRC of the last encoded or decoded frame.
func (c *Codec) Crc32() uint32 { return c.crc }

// Err returns the current error state.
func (c *Codec) Err() ErrorKind { return c.err }
