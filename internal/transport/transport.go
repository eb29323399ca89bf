// Package transport defines the duplex channel abstraction that a
// Session pairs: a single capability set {send, receive, close}
// implemented symmetrically by the stdio and HTTP client adapters.
package transport

import "context"

// Transport is an abstract duplex channel carrying raw JSON-RPC
// frames. Implementations never re-encode a frame; Send and the
// values yielded by Receive are exactly the bytes that crossed the
// wire, without a trailing newline.
//
// A Transport is created before a Session binds to it and must not be
// reused by a second Session after Close.
type Transport interface {
	// Send writes one frame to the transport's sink. It blocks if the
	// peer is not reading (backpressure), and returns ctx.Err() if ctx
	// is cancelled first.
	Send(ctx context.Context, frame []byte) error

	// Receive blocks until one frame is available, the transport
	// reaches end-of-stream, or ctx is cancelled. End-of-stream is
	// reported as io.EOF.
	Receive(ctx context.Context) ([]byte, error)

	// Close releases the transport's resources. It is idempotent.
	// Whether a Send or Receive already blocked in I/O returns depends
	// on the implementation: the stdio parent transport, for one,
	// leaves this process's stdin/stdout open, so a blocked Receive
	// there is not released by Close.
	Close() error
}
