package testutil

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errPipeClosed = errors.New("message pipe closed")

type message struct {
	kind int
	data []byte
}

type pipeEnd struct {
	once   sync.Once
	closed chan struct{}
}

func (e *pipeEnd) close() {
	e.once.Do(func() { close(e.closed) })
}

// MessageChannel is one end of an in-memory message pipe. It has the same
// method set as *websocket.Conn where wsconduit uses it. Writes are buffered
// so a single goroutine can script both directions of a test exchange.
type MessageChannel struct {
	in   chan message
	out  chan message
	self *pipeEnd
	peer *pipeEnd

	mu        sync.Mutex
	writeErr  error
	closeSent bool
}

// MessagePipe returns two connected MessageChannels.
func MessagePipe() (*MessageChannel, *MessageChannel) {
	ab := make(chan message, 64)
	ba := make(chan message, 64)
	ea := &pipeEnd{closed: make(chan struct{})}
	eb := &pipeEnd{closed: make(chan struct{})}
	a := &MessageChannel{in: ba, out: ab, self: ea, peer: eb}
	b := &MessageChannel{in: ab, out: ba, self: eb, peer: ea}
	return a, b
}

// ReadMessage returns the next queued message. Once the peer has closed and
// nothing is left, it returns a normal-closure *websocket.CloseError.
func (c *MessageChannel) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.in:
		return m.kind, m.data, nil
	default:
	}

	select {
	case m := <-c.in:
		return m.kind, m.data, nil
	case <-c.self.closed:
		return 0, nil, net.ErrClosed
	case <-c.peer.closed:
		select {
		case m := <-c.in:
			return m.kind, m.data, nil
		default:
		}
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

// WriteMessage queues a copy of data for the peer.
func (c *MessageChannel) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	err := c.writeErr
	c.mu.Unlock()
	if err != nil {
		return err
	}

	m := message{kind: kind, data: append([]byte(nil), data...)}
	select {
	case <-c.self.closed:
		return net.ErrClosed
	case <-c.peer.closed:
		return errPipeClosed
	default:
	}
	select {
	case c.out <- m:
		return nil
	case <-c.self.closed:
		return net.ErrClosed
	case <-c.peer.closed:
		return errPipeClosed
	}
}

// WriteControl records close frames; other control messages are dropped.
func (c *MessageChannel) WriteControl(kind int, _ []byte, _ time.Time) error {
	if kind == websocket.CloseMessage {
		c.mu.Lock()
		c.closeSent = true
		c.mu.Unlock()
	}
	return nil
}

// FailWrites makes every later WriteMessage return err.
func (c *MessageChannel) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// CloseSent reports whether a close frame was written.
func (c *MessageChannel) CloseSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeSent
}

// Pending returns the number of messages queued for this end.
func (c *MessageChannel) Pending() int {
	return len(c.in)
}

func (c *MessageChannel) SetReadDeadline(time.Time) error  { return nil }
func (c *MessageChannel) SetWriteDeadline(time.Time) error { return nil }

func (c *MessageChannel) LocalAddr() net.Addr  { return pipeAddr{} }
func (c *MessageChannel) RemoteAddr() net.Addr { return pipeAddr{} }

func (c *MessageChannel) Close() error {
	c.self.close()
	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
