package wsconn

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/die-net/wsconduit/internal/testutil"
)

func TestReadBuffersRemainder(t *testing.T) {
	t.Parallel()

	peer, ch := testutil.MessagePipe()
	c := New(ch)
	defer c.Close()

	for _, m := range []string{"hello world", "", "!"} {
		if err := peer.WriteMessage(websocket.BinaryMessage, []byte(m)); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	buf := make([]byte, 4)
	for range 4 {
		n, err := c.Read(buf)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, string(buf[:n]))
	}

	want := []string{"hell", "o wo", "rld", "!"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("read %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestReadFull(t *testing.T) {
	t.Parallel()

	peer, ch := testutil.MessagePipe()
	c := New(ch)
	defer c.Close()

	msg := bytes.Repeat([]byte("0123456789"), 1000)
	if err := peer.WriteMessage(websocket.BinaryMessage, msg[:3333]); err != nil {
		t.Fatal(err)
	}
	if err := peer.WriteMessage(websocket.BinaryMessage, msg[3333:]); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len(msg))
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatal("payload mismatch")
	}
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(peer *testutil.MessageChannel)
		wantErr error
	}{
		{
			name: "text message",
			setup: func(peer *testutil.MessageChannel) {
				_ = peer.WriteMessage(websocket.TextMessage, []byte("hi"))
			},
			wantErr: ErrUnsupportedMessageKind,
		},
		{
			name: "peer closed",
			setup: func(peer *testutil.MessageChannel) {
				_ = peer.Close()
			},
			wantErr: ErrUnexpectedEndOfStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			peer, ch := testutil.MessagePipe()
			c := New(ch)
			defer c.Close()

			tt.setup(peer)

			n, err := c.Read(make([]byte, 16))
			if n != 0 {
				t.Fatalf("read %d bytes", n)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want %v", err, tt.wantErr)
			}
			if errors.Is(err, io.EOF) {
				t.Fatal("closure must not look like a clean EOF")
			}
		})
	}
}

func TestReadDeliversPendingBeforeClose(t *testing.T) {
	t.Parallel()

	peer, ch := testutil.MessagePipe()
	c := New(ch)
	defer c.Close()

	if err := peer.WriteMessage(websocket.BinaryMessage, []byte("last words")); err != nil {
		t.Fatal(err)
	}
	_ = peer.Close()

	got, err := io.ReadAll(io.LimitReader(c, 10))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "last words" {
		t.Fatalf("got %q", got)
	}
	if _, err := c.Read(make([]byte, 1)); !errors.Is(err, ErrUnexpectedEndOfStream) {
		t.Fatalf("err=%v want %v", err, ErrUnexpectedEndOfStream)
	}
}

func TestWriteOneMessagePerCall(t *testing.T) {
	t.Parallel()

	peer, ch := testutil.MessagePipe()
	c := New(ch)
	defer c.Close()

	for _, m := range []string{"a", "bc", "", "def"} {
		n, err := c.Write([]byte(m))
		if err != nil {
			t.Fatal(err)
		}
		if n != len(m) {
			t.Fatalf("wrote %d want %d", n, len(m))
		}
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"a", "bc", "def"} {
		kind, got, err := peer.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if kind != websocket.BinaryMessage {
			t.Fatalf("kind %d", kind)
		}
		if string(got) != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	if peer.Pending() != 0 {
		t.Fatalf("%d unexpected messages", peer.Pending())
	}
}

func TestWriteErrorIsSticky(t *testing.T) {
	t.Parallel()

	_, ch := testutil.MessagePipe()
	c := New(ch)
	defer c.Close()

	boom := errors.New("boom")
	ch.FailWrites(boom)

	if _, err := c.Write([]byte("x")); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
	if err := c.Flush(); !errors.Is(err, boom) {
		t.Fatalf("flush err=%v want %v", err, boom)
	}

	ch.FailWrites(nil)
	if _, err := c.Write([]byte("y")); !errors.Is(err, boom) {
		t.Fatalf("err=%v want sticky %v", err, boom)
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	_, ch := testutil.MessagePipe()
	c := New(ch)

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !ch.CloseSent() {
		t.Fatal("close frame not sent")
	}
	if _, err := c.Write([]byte("x")); err == nil {
		t.Fatal("write after close succeeded")
	}
}

func TestConnOverWebSocket(t *testing.T) {
	t.Parallel()

	url := testutil.StartWebSocketServer(t, func(ws *websocket.Conn) {
		c := New(ws)
		defer c.Close()
		_, _ = io.Copy(c, c)
	})

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(ws)
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))

	testutil.AssertEcho(t, c, c, []byte("ping over websocket"))
	testutil.AssertEcho(t, c, c, bytes.Repeat([]byte{0xa5}, 100_000))
}
