package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport"
)

// --- fake transport ---

// fakeTransport is an in-memory transport.Transport backed by a
// channel, so both sides of a Session can be driven directly from a
// test without any real I/O.
type fakeTransport struct {
	mu     sync.Mutex
	in     chan []byte
	out    chan []byte
	done   chan struct{}
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan []byte, 16),
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (f *fakeTransport) Send(ctx context.Context, frame []byte) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return mcperr.New(mcperr.TransportClosed, "closed", nil)
	}
	f.mu.Unlock()
	select {
	case f.out <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-f.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	return nil
}

var _ transport.Transport = (*fakeTransport)(nil)

func TestSession_ForwardsBothDirections(t *testing.T) {
	defer goleak.VerifyNone(t)

	left := newFakeTransport()
	right := newFakeTransport()
	sess := New("", "test", left, right, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	left.in <- req

	select {
	case got := <-right.out:
		if string(got) != string(req) {
			t.Fatalf("right received %q, want %q", got, req)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for left->right forward")
	}

	resp := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	right.in <- resp

	select {
	case got := <-left.out:
		if string(got) != string(resp) {
			t.Fatalf("left received %q, want %q", got, resp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for right->left forward")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSession_EOFEndsRunCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	left := newFakeTransport()
	right := newFakeTransport()
	sess := New("eof-case", "test", left, right, nil, nil)

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	close(left.in)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on clean EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after EOF")
	}
}

func TestSession_ClosesBothSidesOnFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	left := newFakeTransport()
	right := newFakeTransport()
	sess := New("fail-case", "test", left, right, nil, nil)

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	close(right.in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	left.mu.Lock()
	leftClosed := left.closed
	left.mu.Unlock()
	right.mu.Lock()
	rightClosed := right.closed
	right.mu.Unlock()

	if !leftClosed || !rightClosed {
		t.Fatalf("expected both sides closed, left=%v right=%v", leftClosed, rightClosed)
	}
}

func TestSession_ContextCancellationStopsForwarders(t *testing.T) {
	defer goleak.VerifyNone(t)

	left := newFakeTransport()
	right := newFakeTransport()
	sess := New("cancel-case", "test", left, right, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestGracePeriod(t *testing.T) {
	if GracePeriod() <= 0 {
		t.Fatal("GracePeriod must be positive")
	}
}
