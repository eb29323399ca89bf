package httpclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport"
)

// SSE is the SSE client transport: a long-lived GET whose first event
// names the companion POST endpoint for outbound messages, and whose
// subsequent data: events are inbound messages. Reconnection is not
// attempted; the stream ending closes the transport.
type SSE struct {
	baseURL string
	client  *http.Client
	headers Headers

	endpointCh chan string // resolved exactly once, by the read loop
	endpoint   string
	endpointMu sync.Mutex

	inbound chan []byte
	done    chan struct{}
	readErr error
	mu      sync.Mutex
	closed  bool

	resp   *http.Response
	cancel context.CancelFunc
}

// Dial opens the SSE GET connection and starts reading events in the
// background. It returns once the connection is established; the
// companion POST endpoint is resolved lazily on first Send.
func Dial(ctx context.Context, baseURL string, headers Headers, client *http.Client) (*SSE, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		cancel()
		return nil, mcperr.New(mcperr.UpstreamHTTPError, "build GET", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, mcperr.New(mcperr.UpstreamHTTPError, "GET sse stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, mcperr.New(mcperr.UpstreamHTTPError, fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}

	s := &SSE{
		baseURL:    baseURL,
		client:     client,
		headers:    headers,
		endpointCh: make(chan string, 1),
		inbound:    make(chan []byte, 64),
		done:       make(chan struct{}),
		resp:       resp,
		cancel:     cancel,
	}

	go s.readLoop()

	return s, nil
}

// readLoop scans the SSE stream. The first data: event is the
// companion POST endpoint; every event after that is an inbound
// message frame.
func (s *SSE) readLoop() {
	defer close(s.done)
	defer s.resp.Body.Close()

	sc := bufio.NewScanner(s.resp.Body)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	gotEndpoint := false
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if !gotEndpoint {
			gotEndpoint = true
			s.endpointCh <- s.resolveEndpoint(payload)
			continue
		}
		select {
		case s.inbound <- []byte(payload):
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.mu.Lock()
		s.readErr = mcperr.Wrap(mcperr.TransportClosed, err)
		s.mu.Unlock()
	}
	close(s.inbound)
}

// resolveEndpoint turns the server-announced endpoint (absolute or
// relative) into an absolute URL against baseURL.
func (s *SSE) resolveEndpoint(raw string) string {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

// Send POSTs frame to the companion endpoint, blocking until the
// endpoint has been resolved from the SSE stream if it hasn't yet.
func (s *SSE) Send(ctx context.Context, frame []byte) error {
	s.endpointMu.Lock()
	if s.endpoint == "" {
		s.endpointMu.Unlock()
		select {
		case ep := <-s.endpointCh:
			s.endpointMu.Lock()
			s.endpoint = ep
			s.endpointMu.Unlock()
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			// The stream may have ended after the endpoint event was
			// already queued; only a missing endpoint is an error.
			select {
			case ep := <-s.endpointCh:
				s.endpointMu.Lock()
				s.endpoint = ep
				s.endpointMu.Unlock()
			default:
				return mcperr.Wrap(mcperr.TransportClosed, fmt.Errorf("stream ended before endpoint event"))
			}
		}
	} else {
		s.endpointMu.Unlock()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(frame))
	if err != nil {
		return mcperr.New(mcperr.UpstreamHTTPError, "build POST", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vals := range s.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcperr.New(mcperr.UpstreamHTTPError, "post frame", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return mcperr.New(mcperr.UpstreamHTTPError, fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}
	return nil
}

// Receive returns the next inbound SSE data event, or io.EOF when the
// stream has ended.
func (s *SSE) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-s.inbound:
		if !ok {
			s.mu.Lock()
			err := s.readErr
			s.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return frame, nil
	}
}

// Close cancels the GET and unblocks any pending Receive/Send.
func (s *SSE) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	<-s.done
	return nil
}

var _ transport.Transport = (*SSE)(nil)
