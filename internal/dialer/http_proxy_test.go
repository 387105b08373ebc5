package dialer

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/die-net/wsconduit/internal/testutil"
)

// serveConnect answers one CONNECT request on c with status, and relays to
// the requested address on 200.
func serveConnect(ctx context.Context, c net.Conn, status int, gotAuth chan<- string) {
	br := bufio.NewReader(c)
	req, err := http.ReadRequest(br)
	if err != nil {
		return
	}
	if gotAuth != nil {
		gotAuth <- req.Header.Get("Proxy-Authorization")
	}
	if req.Method != http.MethodConnect || status != http.StatusOK {
		if status == http.StatusOK {
			status = http.StatusMethodNotAllowed
		}
		resp := &http.Response{StatusCode: status, ProtoMajor: 1, ProtoMinor: 1}
		_ = resp.Write(c)
		return
	}

	d := net.Dialer{}
	up, err := d.DialContext(ctx, "tcp", req.Host)
	if err != nil {
		resp := &http.Response{StatusCode: http.StatusBadGateway, ProtoMajor: 1, ProtoMinor: 1}
		_ = resp.Write(c)
		return
	}
	defer up.Close()

	if _, err := io.WriteString(c, "HTTP/1.1 200 Connection established\r\n\r\n"); err != nil {
		return
	}

	g := errgroup.Group{}
	g.Go(func() error {
		_, err := io.Copy(up, br)
		_ = up.Close()
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(c, up)
		_ = c.Close()
		return err
	})
	_ = g.Wait()
}

func newTestHTTPDialer(t *testing.T, rawURL string) Dialer {
	t.Helper()

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	user := u.User.Username()
	pass, _ := u.User.Password()
	d, err := NewHTTPProxyDialer(Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second}, u, user, pass)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestHTTPProxyDialer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	gotAuth := make(chan string, 1)
	proxyLn, wait := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		serveConnect(ctx, c, http.StatusOK, gotAuth)
	})

	d := newTestHTTPDialer(t, "http://user:pass@"+proxyLn.Addr().String())

	c, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, c, c, []byte("hello"))
	_ = c.Close()
	wait()

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))
	if got := <-gotAuth; got != want {
		t.Fatalf("Proxy-Authorization: got %q want %q", got, want)
	}
}

func TestHTTPProxyDialerNoAuth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	gotAuth := make(chan string, 1)
	proxyLn, _ := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		serveConnect(ctx, c, http.StatusOK, gotAuth)
	})

	d := newTestHTTPDialer(t, "http://"+proxyLn.Addr().String())

	c, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	testutil.AssertEcho(t, c, c, []byte("hello"))

	if got := <-gotAuth; got != "" {
		t.Fatalf("unexpected Proxy-Authorization %q", got)
	}
}

func TestHTTPProxyDialerRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	proxyLn, _ := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		resp := &http.Response{StatusCode: http.StatusForbidden, ProtoMajor: 1, ProtoMinor: 1}
		br := bufio.NewReader(c)
		if _, err := http.ReadRequest(br); err != nil {
			return
		}
		_ = resp.Write(c)
	})

	d := newTestHTTPDialer(t, "http://"+proxyLn.Addr().String())

	_, err := d.DialContext(ctx, "tcp", "example.com:443")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestHTTPProxyDialerCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan struct{})
	proxyLn, _ := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		close(accepted)
		// Never answer; wait for the client to give up.
		_, _ = io.Copy(io.Discard, c)
	})

	d := newTestHTTPDialer(t, "http://"+proxyLn.Addr().String())

	dialCtx, dialCancel := context.WithCancel(ctx)
	go func() {
		<-accepted
		dialCancel()
	}()

	_, err := d.DialContext(dialCtx, "tcp", "example.com:443")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPProxyDialerNegotiationTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	proxyLn, _ := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
	})

	u := &url.URL{Scheme: "http", Host: proxyLn.Addr().String()}
	d, err := NewHTTPProxyDialer(Config{NegotiationTimeout: 50 * time.Millisecond}, u, "", "")
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if _, err := d.DialContext(ctx, "tcp", "example.com:443"); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("negotiation took %s", elapsed)
	}
}

func TestNewHTTPProxyDialerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		u    *url.URL
	}{
		{name: "nil url"},
		{name: "missing host", u: &url.URL{Scheme: "http"}},
		{name: "wrong scheme", u: &url.URL{Scheme: "socks5", Host: "proxy.example:1080"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewHTTPProxyDialer(Config{}, tt.u, "", ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
