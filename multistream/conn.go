package multistream

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/nyxwire/noisewire/noisewireerr"
)

// multistreamProtocolID is the protocol name negotiated before any security
// layer is selected.
const multistreamProtocolID = "/multistream/1.0.0"

// noiseProtocolID is the security protocol this dialer negotiates.
const noiseProtocolID = "/noise"

// MaxFrameSize is the largest post-handshake record this dialer will write
// or accept, the 16-bit length field's maximum value.
const MaxFrameSize = 65535

// Conn wraps a raw TCP connection through both negotiation phases: the
// varint-framed protocol-name exchange used before the Noise handshake, and
// the 16-bit length-prefixed record framing used after it. Once upgraded by
// package upgrader, callers should no longer reach past the resulting
// SecureChannel back to this type's raw methods.
type Conn struct {
	raw net.Conn
	buf *bufio.Reader
	log *logrus.Entry
}

// Dial opens a TCP connection to addr and negotiates multistream-select
// down to the /noise protocol, per spec.md section 4.6 steps 1-6. The
// returned Conn is ready for a Noise handshake to be driven over it.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	log := logrus.WithFields(logrus.Fields{"package": "multistream", "function": "Dial", "addr": addr})

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", noisewireerr.ErrIO, addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	c := &Conn{raw: raw, buf: bufio.NewReader(raw), log: log}

	if err := c.negotiate(multistreamProtocolID); err != nil {
		raw.Close()
		// Wrap both sentinels (via the two %w verbs) so errors.Is still
		// matches the underlying ErrIO/ErrVarint cause, not just
		// ErrNegotiation.
		return nil, fmt.Errorf("%w: %w", noisewireerr.ErrNegotiation, err)
	}
	log.Debug("negotiated /multistream/1.0.0")

	if err := c.negotiate(noiseProtocolID); err != nil {
		raw.Close()
		return nil, fmt.Errorf("%w: %w", noisewireerr.ErrAuthProtocolUnsupported, err)
	}
	log.Debug("negotiated /noise")

	return c, nil
}

// negotiate sends name and requires the peer to echo it back exactly. It is
// used for both /multistream/1.0.0 and /noise; a mismatch is returned as a
// plain error, and Dial wraps it in ErrNegotiation or
// ErrAuthProtocolUnsupported depending on which line failed.
func (c *Conn) negotiate(name string) error {
	if err := c.writeLine(name); err != nil {
		return err
	}
	got, err := c.readLine()
	if err != nil {
		return err
	}
	if got != name {
		return fmt.Errorf("peer replied %q, wanted %q", got, name)
	}
	return nil
}

// writeLine sends varint(len(name)+1) || name || "\n".
func (c *Conn) writeLine(name string) error {
	line := append([]byte(name), '\n')
	prefix := EncodeUvarint(uint64(len(line)))
	if _, err := c.raw.Write(append(prefix, line...)); err != nil {
		return fmt.Errorf("%w: %v", noisewireerr.ErrIO, err)
	}
	return nil
}

// readLine reads one pre-handshake record: a varint length (including the
// trailing newline) followed by that many bytes, and returns the protocol
// name with the newline stripped.
func (c *Conn) readLine() (string, error) {
	n, err := ReadUvarint(c.buf)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%w: zero-length record", noisewireerr.ErrVarint)
	}

	line := make([]byte, n)
	if _, err := io.ReadFull(c.buf, line); err != nil {
		return "", fmt.Errorf("%w: %v", noisewireerr.ErrIO, err)
	}
	if line[len(line)-1] != '\n' {
		return "", fmt.Errorf("%w: record not newline-terminated", noisewireerr.ErrVarint)
	}
	return string(line[:len(line)-1]), nil
}

// WriteLine exposes the pre-handshake line writer: it sends a varint-framed,
// newline-terminated protocol name directly on the raw connection.
func (c *Conn) WriteLine(name string) error { return c.writeLine(name) }

// ReadLine exposes the pre-handshake line reader for the same purpose as
// WriteLine.
func (c *Conn) ReadLine() (string, error) { return c.readLine() }

// WriteFrame writes one post-handshake record: a 16-bit big-endian length
// followed by frame. It loops until the full record is written.
func (c *Conn) WriteFrame(frame []byte) error {
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds max %d", noisewireerr.ErrIO, len(frame), MaxFrameSize)
	}

	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(frame)))

	if err := c.writeAll(header[:]); err != nil {
		return err
	}
	return c.writeAll(frame)
}

// ReadFrame reads exactly one post-handshake record.
func (c *Conn) ReadFrame() ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(c.buf, header[:]); err != nil {
		return nil, connClosedOrIOErr(err)
	}

	length := binary.BigEndian.Uint16(header[:])
	frame := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.buf, frame); err != nil {
			return nil, connClosedOrIOErr(err)
		}
	}
	return frame, nil
}

func (c *Conn) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.raw.Write(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", noisewireerr.ErrIO, err)
		}
		buf = buf[n:]
	}
	return nil
}

func connClosedOrIOErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", noisewireerr.ErrConnectionClosed, err)
	}
	return fmt.Errorf("%w: %v", noisewireerr.ErrIO, err)
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RawConn returns the underlying net.Conn. Used by config.Dial to clear the
// dial deadline once the handshake completes; callers outside this module
// should not need it.
func (c *Conn) RawConn() net.Conn {
	return c.raw
}
