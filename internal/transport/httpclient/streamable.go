// Package httpclient implements the HTTP client transport (C3): the
// two wire protocols a client-mode bridge speaks against a remote MCP
// endpoint, SSE and Streamable HTTP, selected at startup.
package httpclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport"
)

// Headers is the set of extra headers applied to every outbound
// request, built from -H flags and, if unset there, API_ACCESS_TOKEN.
type Headers = http.Header

// Streamable is the Streamable HTTP client transport. Every outbound
// frame is POSTed to url; the response is either a single JSON frame
// delivered to the next Receive, or an SSE stream whose data: events
// are queued for subsequent Receives. The server-issued
// Mcp-Session-Id, once observed, is echoed on every later request.
type Streamable struct {
	url     string
	client  *http.Client
	headers Headers

	mu        sync.Mutex
	sessionID string
	closed    bool

	inbound chan []byte
}

// NewStreamable builds a Streamable HTTP client transport against url.
func NewStreamable(url string, headers Headers, client *http.Client) *Streamable {
	if client == nil {
		client = http.DefaultClient
	}
	return &Streamable{
		url:     url,
		client:  client,
		headers: headers,
		inbound: make(chan []byte, 64),
	}
}

// Send POSTs frame to the endpoint. A JSON response is queued for the
// next Receive; an SSE response has each data: event queued in order.
// A notification-shaped 202/empty-body response queues nothing.
func (s *Streamable) Send(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return mcperr.Wrap(mcperr.TransportClosed, fmt.Errorf("send on closed transport"))
	}
	sid := s.sessionID
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(frame))
	if err != nil {
		return mcperr.New(mcperr.UpstreamHTTPError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, vals := range s.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if sid != "" {
		req.Header.Set("Mcp-Session-Id", sid)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcperr.New(mcperr.UpstreamHTTPError, "post frame", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Mcp-Session-Id"); v != "" {
		s.mu.Lock()
		s.sessionID = v
		s.mu.Unlock()
	}

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return mcperr.New(mcperr.UpstreamHTTPError, fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}

	ct := resp.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/event-stream") {
		return s.drainSSE(resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcperr.New(mcperr.UpstreamHTTPError, "read response", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	s.queue(bytes.TrimSpace(body))
	return nil
}

// drainSSE reads a single-response SSE stream to completion, queueing
// each data: event's payload as an inbound frame in arrival order.
func (s *Streamable) drainSSE(body io.Reader) error {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		s.queue([]byte(payload))
	}
	return sc.Err()
}

// queue blocks when the bounded inbound channel is full, so a slow
// consumer applies backpressure all the way to the HTTP response
// reader instead of frames being dropped.
func (s *Streamable) queue(frame []byte) {
	s.inbound <- frame
}

// Receive returns the next inbound frame queued by Send's response
// handling, or io.EOF once the transport is closed with nothing left
// queued.
func (s *Streamable) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-s.inbound:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	}
}

// Close marks the transport closed and unblocks any pending Receive.
func (s *Streamable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.inbound)
	return nil
}

var _ transport.Transport = (*Streamable)(nil)
