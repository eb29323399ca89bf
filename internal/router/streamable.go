package router

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/relaymcp/relaymcp/internal/session"
	"github.com/relaymcp/relaymcp/pkg/mcp"
)

// streamableReplyTimeout bounds how long a POST waits for a backend
// reply before falling back to 202 Accepted (the reply, if it still
// arrives, reaches the client over the listening GET instead).
const streamableReplyTimeout = 30 * time.Second

// streamableHandler serves the Streamable HTTP transport (§4.3, §4.5)
// for one backend: a single /mcp endpoint. POST carries one outbound
// frame and its response is either a JSON body or (if the backend
// hasn't answered by streamableReplyTimeout) 202 Accepted; GET opens a
// long-lived listening stream for traffic between POSTs; DELETE ends
// the session ahead of natural teardown. --stateless bypasses session
// binding entirely: each POST spawns and tears down its own child.
type streamableHandler struct {
	router  *Router
	backend string
}

func (h *streamableHandler) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *streamableHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("Mcp-Session-Id")
	if id == "" || !h.router.sessions.end(id) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGet opens a long-lived listening stream for server-initiated
// traffic on an existing, non-stateless session (§4.3's "a separate
// listening POST or GET").
func (h *streamableHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if h.router.opts.Stateless {
		http.Error(w, "stateless mode has no listening stream", http.StatusMethodNotAllowed)
		return
	}
	id := r.Header.Get("Mcp-Session-Id")
	ls, ok := h.router.sessions.get(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	left, ok := ls.sess.Left.(*streamableTransport)
	if !ok {
		http.Error(w, "session is not a streamable session", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Mcp-Session-Id", id)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub, unsubscribe := left.subscribeListen()
	defer unsubscribe()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(":heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-sub:
			if !ok {
				return
			}
			if _, err := w.Write([]byte("event: message\ndata: " + string(frame) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *streamableHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	msg, decErr := mcp.WrapMessage(body, mcp.LeftToRight)
	if decErr != nil {
		if h.router.metrics != nil {
			h.router.metrics.CodecErrors.WithLabelValues("malformed_frame").Inc()
		}
		http.Error(w, "malformed message", http.StatusBadRequest)
		return
	}

	if h.router.opts.Stateless {
		h.handleStatelessPost(w, r, body, msg.IsNotification())
		return
	}

	id := r.Header.Get("Mcp-Session-Id")
	var left *streamableTransport
	if id == "" {
		var err error
		id, left, err = h.startSession(r)
		if err != nil {
			http.Error(w, "backend unavailable", http.StatusBadGateway)
			return
		}
		w.Header().Set("Mcp-Session-Id", id)
	} else {
		ls, ok := h.router.sessions.get(id)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		left, ok = ls.sess.Left.(*streamableTransport)
		if !ok {
			http.Error(w, "session is not a streamable session", http.StatusBadRequest)
			return
		}
	}

	h.respond(w, r, left, body, msg.IsNotification())
}

func (h *streamableHandler) startSession(r *http.Request) (string, *streamableTransport, error) {
	id := uuid.NewString()
	logger := h.router.logger.With("session_id", id, "backend", h.backend, "transport", "streamable")

	child, err := h.router.reg.Instantiate(h.router.baseCtx, h.backend)
	if err != nil {
		return "", nil, err
	}

	left := newStreamableTransport()
	ctx, cancel := context.WithCancel(h.router.baseCtx)
	sess := session.New(id, h.backend, left, child, logger, h.router.metrics)
	h.router.sessions.put(id, sess, cancel)

	go func() {
		if err := sess.Run(ctx); err != nil {
			logger.Info("streamable session ended", "error", err)
		}
		h.router.sessions.remove(id)
	}()

	return id, left, nil
}

// respond pushes frame onto left and, unless it was a notification or
// carries no id, waits up to streamableReplyTimeout for the backend
// reply with the same id to arrive back over the fan-out, returning it
// as the POST's JSON body.
func (h *streamableHandler) respond(w http.ResponseWriter, r *http.Request, left *streamableTransport, frame []byte, isNotification bool) {
	var sub chan []byte
	var unsubscribe func()
	if !isNotification {
		if id, ok := frameID(frame); ok {
			sub, unsubscribe = left.subscribeReply(id)
			defer unsubscribe()
		}
	}

	if !left.push(r.Context(), frame) {
		http.Error(w, "session closed", http.StatusGone)
		return
	}

	if isNotification {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if sub == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	timer := time.NewTimer(streamableReplyTimeout)
	defer timer.Stop()

	select {
	case reply, ok := <-sub:
		if !ok {
			http.Error(w, "session closed", http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(reply)
	case <-r.Context().Done():
	case <-timer.C:
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *streamableHandler) handleStatelessPost(w http.ResponseWriter, r *http.Request, body []byte, isNotification bool) {
	child, err := h.router.reg.Instantiate(r.Context(), h.backend)
	if err != nil {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
		return
	}
	defer child.Close()

	if err := child.Send(r.Context(), body); err != nil {
		http.Error(w, "backend write failed", http.StatusBadGateway)
		return
	}

	if isNotification {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	reply, err := child.Receive(r.Context())
	if err != nil {
		http.Error(w, "backend closed without responding", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(reply)
}
