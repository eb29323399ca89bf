// Package session implements the Session (C4): a duplex pairing of
// two transports with one forwarder goroutine per direction, a
// supervisor that tears down both sides on the first failure, and an
// id that names the pairing for logs and, in server mode, routing.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/metrics"
	"github.com/relaymcp/relaymcp/internal/transport"
	"github.com/relaymcp/relaymcp/pkg/mcp"
)

// Session pairs a left transport (the incoming/parent side) and a
// right transport (the outgoing/backend side) and forwards frames
// between them until either side ends or ctx is cancelled.
//
// Correlation is end-to-end and stateless: because every Session owns
// one left endpoint and one right endpoint exclusively, and because
// server-mode backends are per-session child instances, no id
// rewriting is required. A shared-child variant, were one ever added,
// would need a proxy_id -> (session, original_id) map here; that
// variant is intentionally not built (see the design notes on
// shared-backend reuse).
type Session struct {
	ID      string
	Backend string // descriptive label only, e.g. backend name or "client"
	Left    transport.Transport
	Right   transport.Transport

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a Session pairing left and right. id is minted with
// uuid.NewString() if empty. m may be nil, in which case no metrics
// are recorded.
func New(id, backend string, left, right transport.Transport, logger *slog.Logger, m *metrics.Metrics) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:      id,
		Backend: backend,
		Left:    left,
		Right:   right,
		logger:  logger.With("session_id", id, "backend", backend),
		metrics: m,
	}
}

// Run forwards frames between Left and Right until one side reaches
// end-of-stream, a transport error occurs, or ctx is cancelled. It
// always closes both transports before returning, satisfying the
// resource-closure guarantee regardless of which side failed. Both
// transports are closed as soon as ctx is done (cancelled by the caller
// or by either forwarder ending), which unblocks a forwarder whose
// Receive does not itself observe ctx, such as a stdio child's.
//
// Run returns nil on a clean, ctx-driven or end-of-stream shutdown. A
// transport-level error from either direction is returned wrapped as
// *mcperr.Error{Kind: TransportClosed}.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.metrics != nil {
		s.metrics.SessionsStarted.WithLabelValues(s.Backend).Inc()
		s.metrics.ActiveSessions.WithLabelValues(s.Backend).Inc()
	}

	closeErrCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		closeErrCh <- s.closeBoth()
	}()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.forward(ctx, s.Left, s.Right, mcp.LeftToRight); err != nil {
			errCh <- err
		}
		cancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.forward(ctx, s.Right, s.Left, mcp.RightToLeft); err != nil {
			errCh <- err
		}
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	<-done
	close(errCh)

	var errs []error
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			continue
		}
		errs = append(errs, err)
	}

	closeErr := <-closeErrCh

	if s.metrics != nil {
		reason := "eof"
		if len(errs) > 0 {
			reason = "error"
		}
		s.metrics.SessionsEnded.WithLabelValues(s.Backend, reason).Inc()
		s.metrics.ActiveSessions.WithLabelValues(s.Backend).Dec()
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return closeErr
}

// forward copies frames from src to dst one at a time, in order, with
// no reordering and no coalescing, per the per-direction ordering
// guarantee.
func (s *Session) forward(ctx context.Context, src, dst transport.Transport, dir mcp.Direction) error {
	for {
		frame, err := src.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return mcperr.Wrap(mcperr.TransportClosed, fmt.Errorf("%s receive: %w", dir, err))
		}

		if _, decErr := mcp.WrapMessage(frame, dir); decErr != nil {
			s.logger.Debug("forwarded frame failed to decode, passing through raw",
				"direction", dir.String(), "error", decErr)
			if s.metrics != nil {
				s.metrics.CodecErrors.WithLabelValues(string(mcperr.MalformedFrame)).Inc()
			}
		}

		if err := dst.Send(ctx, frame); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return mcperr.Wrap(mcperr.TransportClosed, fmt.Errorf("%s send: %w", dir, err))
		}

		if s.metrics != nil {
			s.metrics.FramesForwarded.WithLabelValues(dir.String()).Inc()
		}
	}
}

func (s *Session) closeBoth() error {
	var errs []error
	if err := s.Left.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close left: %w", err))
	}
	if err := s.Right.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close right: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// gracePeriod bounds how long Run's caller should wait for a bound
// child process to exit after Close, before treating it as a defect.
const gracePeriod = 5 * time.Second

// GracePeriod exposes gracePeriod for callers that need the same
// bound. The stdio child's own Close uses stdio.CloseGrace, not this.
func GracePeriod() time.Duration { return gracePeriod }
