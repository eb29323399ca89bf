// Package stdio implements the stdio MCP transport (C2): newline-
// delimited JSON frames read from an io.Reader and written to an
// io.Writer, plus a Child variant that owns the subprocess those
// pipes belong to.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport"
	"github.com/relaymcp/relaymcp/pkg/mcp"
)

// initialScanBuf and maxScanBuf bound the line buffer used to read
// frames. MCP does not bound frame size, so the ceiling is generous
// rather than protocol-derived.
const (
	initialScanBuf = 256 * 1024
	maxScanBuf     = 16 * 1024 * 1024
)

// Framed adapts a newline-delimited JSON stream to transport.Transport.
// It does not own process lifecycle; Child wraps it for that.
type Framed struct {
	w io.Writer

	mu      sync.Mutex // serializes Send against concurrent writers
	scanner *bufio.Scanner
	readMu  sync.Mutex // serializes Receive against concurrent readers

	closer io.Closer
	once   sync.Once
}

// NewFramed builds a Framed transport over r (frames arrive newline-
// terminated) and w (frames are written newline-terminated). closer,
// if non-nil, is invoked once by Close after the underlying streams
// are no longer needed.
func NewFramed(r io.Reader, w io.Writer, closer io.Closer) *Framed {
	sc := bufio.NewScanner(r)
	buf := make([]byte, initialScanBuf)
	sc.Buffer(buf, maxScanBuf)
	return &Framed{
		w:       w,
		scanner: sc,
		closer:  closer,
	}
}

// Send writes one frame followed by a newline. ctx is only observed
// for cancellation before the write begins; the underlying io.Writer
// has no native cancellation hook.
func (f *Framed) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.w.Write(frame); err != nil {
		return mcperr.Wrap(mcperr.TransportClosed, fmt.Errorf("write frame: %w", err))
	}
	if _, err := f.w.Write([]byte("\n")); err != nil {
		return mcperr.Wrap(mcperr.TransportClosed, fmt.Errorf("write newline: %w", err))
	}
	return nil
}

// Receive returns the next line from the source, stripped of its
// terminator. It returns io.EOF at end-of-stream. Scanning is not
// itself cancellable: ctx is checked once, before the read begins, so
// a Receive already blocked in a read returns only when that read
// unblocks (data, end-of-stream or a read error).
//
// A line that isn't a well-formed JSON-RPC frame is never forwarded as
// written: the peer on the other side of this transport has no way to
// parse it either, and a request left hanging never gets a reply.
// Receive substitutes a synthesized JSON-RPC error frame instead,
// echoing whatever id the line carries (nil if even that can't be
// recovered), so the caller still gets a well-formed, correlated frame
// to deliver.
func (f *Framed) Receive(ctx context.Context) ([]byte, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !f.scanner.Scan() {
		if err := f.scanner.Err(); err != nil {
			return nil, mcperr.Wrap(mcperr.TransportClosed, err)
		}
		return nil, io.EOF
	}

	line := f.scanner.Bytes()
	if _, err := mcp.DecodeMessage(line); err != nil {
		return mcperr.CreateJSONRPCError(recoverID(line), mcperr.CodeParseError, mcperr.SafeErrorMessage(
			mcperr.New(mcperr.MalformedFrame, "", err))), nil
	}

	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

// recoverID best-effort extracts an "id" field from a line that failed
// full JSON-RPC decoding, so the synthesized error can still correlate
// to the request that provoked it.
func recoverID(line []byte) interface{} {
	var probe struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil
	}
	return probe.ID
}

// Close closes the underlying closer, if any. It is safe to call more
// than once.
func (f *Framed) Close() error {
	var err error
	f.once.Do(func() {
		if f.closer != nil {
			err = f.closer.Close()
		}
	})
	return err
}

var _ transport.Transport = (*Framed)(nil)
