package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/relaymcp/relaymcp/internal/session"
)

// maxFrameSize bounds a single JSON-RPC frame read from an HTTP body.
const maxFrameSize = 10 << 20

// sseHandler serves the legacy HTTP+SSE transport for one backend: a
// long-lived GET establishes the event stream and spawns the backend
// child, and each client-to-server message arrives as a separate POST
// to the companion endpoint advertised over that stream.
type sseHandler struct {
	router         *Router
	backend        string
	messagesPrefix string
}

func (h *sseHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	logger := h.router.logger.With("session_id", id, "backend", h.backend, "transport", "sse")

	child, err := h.router.reg.Instantiate(r.Context(), h.backend)
	if err != nil {
		logger.Error("failed to spawn backend", "error", err)
		http.Error(w, "backend unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	left := newSSEServerTransport(w, flusher)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	fmt.Fprint(w, "event: endpoint\ndata: "+h.messagesPrefix+"?session_id="+id+"\n\n")
	flusher.Flush()

	sess := session.New(id, h.backend, left, child, logger, h.router.metrics)
	h.router.sessions.put(id, sess, cancel)
	defer h.router.sessions.remove(id)

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := left.heartbeat(); err != nil {
					return
				}
			}
		}
	}()

	if err := sess.Run(ctx); err != nil {
		logger.Info("sse session ended", "error", err)
	}
}

func (h *sseHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("session_id")
	if id == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	ls, ok := h.router.sessions.get(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	left, ok := ls.sess.Left.(*sseServerTransport)
	if !ok {
		http.Error(w, "session is not an sse session", http.StatusBadRequest)
		return
	}
	if !left.push(r.Context(), body) {
		http.Error(w, "session closed", http.StatusGone)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
