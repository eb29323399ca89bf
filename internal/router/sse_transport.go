package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport"
)

// pushRate and pushBurst bound how fast the companion POST endpoint
// can hand frames to a session whose SSE peer may be reading slowly:
// a small token bucket on top of the bounded inbound channel, so a
// client that posts faster than its own SSE stream drains gets
// throttled here instead of growing an unbounded backlog (§5's
// backpressure note).
const (
	pushRate  = 50
	pushBurst = 64
)

// sseServerTransport is the server side of an SSE connection: Send
// writes an "event: message" frame to the open response body, and
// Receive yields frames handed in by the companion POST handler.
type sseServerTransport struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher

	inbound  chan []byte
	limiter  *rate.Limiter
	closedCh chan struct{}
	once     sync.Once
}

func newSSEServerTransport(w http.ResponseWriter, flusher http.Flusher) *sseServerTransport {
	return &sseServerTransport{
		w:        w,
		flusher:  flusher,
		inbound:  make(chan []byte, 64),
		limiter:  rate.NewLimiter(pushRate, pushBurst),
		closedCh: make(chan struct{}),
	}
}

func (t *sseServerTransport) Send(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.closedCh:
		return mcperr.New(mcperr.TransportClosed, "sse connection closed", nil)
	default:
	}
	if _, err := fmt.Fprintf(t.w, "event: message\ndata: %s\n\n", frame); err != nil {
		return mcperr.Wrap(mcperr.TransportClosed, err)
	}
	t.flusher.Flush()
	return nil
}

func (t *sseServerTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closedCh:
		return nil, mcperr.New(mcperr.TransportClosed, "sse connection closed", nil)
	case frame := <-t.inbound:
		return frame, nil
	}
}

// push hands a frame received on the companion POST endpoint to the
// waiting Receive call. It reports whether the transport was still
// open to accept it. The select against closedCh (rather than closing
// inbound itself) means a concurrent Close can never race a send on a
// closed channel. It waits on limiter first, so a client posting
// faster than the paired SSE stream drains applies backpressure at
// the POST handler instead of growing an unbounded backlog.
func (t *sseServerTransport) push(ctx context.Context, frame []byte) bool {
	if err := t.limiter.Wait(ctx); err != nil {
		return false
	}
	select {
	case <-t.closedCh:
		return false
	case t.inbound <- frame:
		return true
	}
}

// heartbeat writes an SSE comment line, sharing Send's lock so the two
// never interleave mid-line on the underlying writer.
func (t *sseServerTransport) heartbeat() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.closedCh:
		return mcperr.New(mcperr.TransportClosed, "sse connection closed", nil)
	default:
	}
	if _, err := fmt.Fprint(t.w, ":heartbeat\n\n"); err != nil {
		return mcperr.Wrap(mcperr.TransportClosed, err)
	}
	t.flusher.Flush()
	return nil
}

func (t *sseServerTransport) Close() error {
	t.once.Do(func() { close(t.closedCh) })
	return nil
}

var _ transport.Transport = (*sseServerTransport)(nil)
