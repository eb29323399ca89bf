package router

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/time/rate"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport"
)

// streamableTransport is the HTTP-side (left) transport of a
// non-stateless Streamable HTTP session. Unlike the SSE transport,
// its outbound side has no single open connection to write into: a
// POST response waiting on its own reply, and an optional long-lived
// listening GET, are both fed from the same backend stream, but each
// sees only the frames that belong to it. A reply whose "id" matches
// a registered waiter goes to that waiter alone, preserving
// request/response correlation across concurrent POSTs on one
// session; anything else (a notification, or a reply nobody is
// waiting for) goes to the listening-GET subscribers only.
type streamableTransport struct {
	mu        sync.Mutex
	waiters   map[string]chan []byte   // keyed by raw "id" bytes, one-shot POST replies
	listeners map[chan []byte]struct{} // long-lived listening GETs

	inbound  chan []byte
	limiter  *rate.Limiter
	closedCh chan struct{}
	once     sync.Once
}

func newStreamableTransport() *streamableTransport {
	return &streamableTransport{
		waiters:   make(map[string]chan []byte),
		listeners: make(map[chan []byte]struct{}),
		inbound:   make(chan []byte, 64),
		limiter:   rate.NewLimiter(pushRate, pushBurst),
		closedCh:  make(chan struct{}),
	}
}

// frameID extracts the raw "id" field from a JSON-RPC frame, for
// matching a backend reply to the POST waiter that asked for it. It
// returns ok=false if the frame is unparseable or carries no "id"
// (a notification).
func frameID(frame []byte) (id string, ok bool) {
	var env struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(frame, &env); err != nil || env.ID == nil {
		return "", false
	}
	return string(env.ID), true
}

// subscribeReply registers a one-shot waiter for the reply whose "id"
// equals id, returned along with an unsubscribe func the caller must
// invoke (e.g. on timeout) if it stops waiting before a reply arrives.
func (t *streamableTransport) subscribeReply(id string) (chan []byte, func()) {
	ch := make(chan []byte, 1)
	t.mu.Lock()
	t.waiters[id] = ch
	t.mu.Unlock()
	return ch, func() {
		t.mu.Lock()
		if cur, exists := t.waiters[id]; exists && cur == ch {
			delete(t.waiters, id)
		}
		t.mu.Unlock()
	}
}

// subscribeListen registers a new listening-GET reader that receives
// every frame not claimed by a reply waiter, returned along with an
// unsubscribe func the caller must invoke when it stops reading.
func (t *streamableTransport) subscribeListen() (chan []byte, func()) {
	ch := make(chan []byte, 16)
	t.mu.Lock()
	t.listeners[ch] = struct{}{}
	t.mu.Unlock()
	return ch, func() {
		t.mu.Lock()
		delete(t.listeners, ch)
		t.mu.Unlock()
	}
}

// Send routes a frame arriving from the backend: if its "id" matches
// a registered reply waiter, it goes to that waiter alone and is
// consumed (one reply per POST); otherwise it is fanned out to every
// listening-GET subscriber. A listening subscriber that is not
// keeping up is dropped from the fan-out rather than blocking every
// other subscriber and the forwarder goroutine indefinitely.
func (t *streamableTransport) Send(ctx context.Context, frame []byte) error {
	select {
	case <-t.closedCh:
		return mcperr.New(mcperr.TransportClosed, "streamable session closed", nil)
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := frameID(frame); ok {
		if ch, exists := t.waiters[id]; exists {
			delete(t.waiters, id)
			select {
			case ch <- frame:
			default:
			}
			return nil
		}
	}

	for ch := range t.listeners {
		select {
		case ch <- frame:
		default:
			delete(t.listeners, ch)
			close(ch)
		}
	}
	return nil
}

// Receive returns the next frame posted by a client request.
func (t *streamableTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closedCh:
		return nil, mcperr.New(mcperr.TransportClosed, "streamable session closed", nil)
	case frame := <-t.inbound:
		return frame, nil
	}
}

// push hands a POSTed frame to the waiting Receive call, rate-limited
// the same way the SSE companion POST is (§5 backpressure).
func (t *streamableTransport) push(ctx context.Context, frame []byte) bool {
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

func (t *streamableTransport) Close() error {
	t.once.Do(func() {
		close(t.closedCh)
		t.mu.Lock()
		for _, ch := range t.waiters {
			close(ch)
		}
		t.waiters = nil
		for ch := range t.listeners {
			close(ch)
		}
		t.listeners = nil
		t.mu.Unlock()
	})
	return nil
}

var _ transport.Transport = (*streamableTransport)(nil)
