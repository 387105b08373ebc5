package wsconn

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds how long Close waits to queue the close frame.
const closeGracePeriod = time.Second

// Conn is a net.Conn over a Channel.
type Conn struct {
	ch Channel

	// rbuf holds the unread tail of the last inbound message. Only the
	// reading goroutine touches it.
	rbuf []byte

	// werr is sticky once a write fails. Only the writing goroutine sets
	// it, but Flush may run elsewhere.
	mu   sync.Mutex
	werr error

	closeOnce sync.Once
	closeErr  error
}

var _ net.Conn = (*Conn)(nil)

// New wraps ch. The Conn takes ownership of ch.
func New(ch Channel) *Conn {
	return &Conn{ch: ch}
}

// Read copies the next bytes of the inbound message stream into p. If a
// message is larger than p, the remainder is returned by later reads.
// Empty messages are skipped.
func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(c.rbuf) == 0 {
		data, err := ReadBinary(c.ch)
		if err != nil {
			return 0, err
		}
		c.rbuf = data
	}

	n := copy(p, c.rbuf)
	c.rbuf = c.rbuf[n:]
	return n, nil
}

// Write sends p as one binary message. Writes are never split or
// coalesced, so the peer sees the same message boundaries the caller used.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.writeErr(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if err := c.ch.WriteMessage(websocket.BinaryMessage, p); err != nil {
		err = fmt.Errorf("write message: %w", err)
		c.mu.Lock()
		c.werr = err
		c.mu.Unlock()
		return 0, err
	}
	return len(p), nil
}

// Flush reports the first write failure, if any. Write hands every message
// to the channel before returning, so nothing is ever left queued.
func (c *Conn) Flush() error {
	return c.writeErr()
}

func (c *Conn) writeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.werr
}

// Close sends a normal-closure frame, best effort, and closes the channel.
// It is safe to call more than once and concurrently with Read and Write.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ch.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		if err := c.ch.Close(); err != nil {
			c.closeErr = fmt.Errorf("close channel: %w", err)
		}
	})
	return c.closeErr
}

func (c *Conn) LocalAddr() net.Addr  { return c.ch.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.ch.RemoteAddr() }

func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.ch.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ch.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error  { return c.ch.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.ch.SetWriteDeadline(t) }
