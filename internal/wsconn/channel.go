package wsconn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrUnsupportedMessageKind is returned when a text message arrives
	// where a binary one is required.
	ErrUnsupportedMessageKind = errors.New("wsconn: unsupported message kind")

	// ErrUnexpectedEndOfStream is returned when the channel closes while a
	// message is expected. Closure is never reported as a clean io.EOF.
	ErrUnexpectedEndOfStream = errors.New("wsconn: unexpected end of stream")
)

// Channel is the subset of *websocket.Conn used by wsconduit. At most one
// goroutine may read and one may write at a time.
type Channel interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

var _ Channel = (*websocket.Conn)(nil)

// ReadBinary waits for the next message on ch and returns its payload.
func ReadBinary(ch Channel) ([]byte, error) {
	mt, data, err := ch.ReadMessage()
	if err != nil {
		if isEndOfStream(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnexpectedEndOfStream, err)
		}
		return nil, fmt.Errorf("read message: %w", err)
	}
	if mt != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMessageKind, mt)
	}
	return data, nil
}

func isEndOfStream(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
