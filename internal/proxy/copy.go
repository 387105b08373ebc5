package proxy

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional relays between left and right until either direction
// reaches EOF or fails, then closes both. It returns the bytes copied from
// left to right and from right to left, and the first error that was not
// caused by that shutdown.
func CopyBidirectional(ctx context.Context, left, right net.Conn) (int64, int64, error) {
	var (
		g         errgroup.Group
		closeOnce sync.Once
		closed    atomic.Bool
	)
	closeBoth := func() {
		closeOnce.Do(func() {
			closed.Store(true)
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	// If the context is canceled, close both sides to unblock the copies.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var toRight, toLeft int64
	pump := func(dst, src net.Conn, n *int64) func() error {
		return func() error {
			var err error
			*n, err = copyBuffer(dst, src)
			if closed.Load() {
				err = nil
			}
			closeBoth()
			return err
		}
	}
	g.Go(pump(right, left, &toRight))
	g.Go(pump(left, right, &toLeft))

	err := g.Wait()
	return toRight, toLeft, err
}

func copyBuffer(dst io.Writer, src io.Reader) (int64, error) {
	buf := getCopyBuffer()
	defer putCopyBuffer(buf)

	return copyWithBuffer(dst, src, *buf)
}

// copyWithBuffer hides ReaderFrom and WriterTo so io.CopyBuffer always uses
// buf. Otherwise *net.TCPConn.ReadFrom would copy from a wsconn.Conn through
// its own allocated buffer.
func copyWithBuffer(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}
