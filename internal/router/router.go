// Package router implements the HTTP server / router (C5): the
// multi-tenant front door that accepts SSE and Streamable HTTP
// connections, resolves each to a named (or default) backend, and
// instantiates a Session per client.
package router

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/metrics"
	"github.com/relaymcp/relaymcp/internal/registry"
)

// sseHeartbeat is the interval between SSE keep-alive comment lines.
const sseHeartbeat = 30 * time.Second

// shutdownGrace bounds how long the HTTP server waits for in-flight
// requests to finish during Shutdown.
const shutdownGrace = 10 * time.Second

// Options configures a Router.
type Options struct {
	Addr string

	AllowOrigins []string
	Stateless    bool
	CertFile     string
	KeyFile      string

	Logger *slog.Logger
}

// Router is the HTTP server / router (C5). It owns the net/http
// server, the CORS policy, the table mapping URL prefix to backend,
// and the store of live sessions bound to that table.
type Router struct {
	reg  *registry.Registry
	opts Options

	logger   *slog.Logger
	metrics  *metrics.Metrics
	cors     *corsAllower
	sessions *sessionStore

	server *http.Server

	// baseCtx is Start's context, process-wide shutdown. Streamable
	// HTTP sessions live across many independent POST requests, so
	// they derive from this instead of any one request's context,
	// which ends the moment that request's response is written.
	baseCtx context.Context
}

// New builds a Router over reg. Call Start to begin serving.
func New(reg *registry.Registry, opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Router{
		reg:      reg,
		opts:     opts,
		logger:   opts.Logger,
		cors:     newCORSAllower(opts.AllowOrigins),
		sessions: newSessionStore(),
	}
}

// Start builds the route table and serves until ctx is cancelled or
// the listener fails. It blocks.
func (r *Router) Start(ctx context.Context) error {
	r.baseCtx = ctx

	reg := prometheus.NewRegistry()
	r.metrics = metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/status", r.handleStatus)

	if r.reg.HasDefault() {
		r.registerBackend(mux, "", "")
	}
	for _, b := range r.reg.Each() {
		r.registerBackend(mux, "/servers/"+b.Name, b.Name)
	}

	var handler http.Handler = mux
	handler = r.cors.middleware(handler)

	r.server = &http.Server{
		Addr:    r.opts.Addr,
		Handler: handler,
	}
	if r.opts.CertFile != "" && r.opts.KeyFile != "" {
		r.server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if r.opts.CertFile != "" && r.opts.KeyFile != "" {
			r.logger.Info("starting HTTPS server", "addr", r.opts.Addr)
			err = r.server.ListenAndServeTLS(r.opts.CertFile, r.opts.KeyFile)
		} else {
			r.logger.Info("starting HTTP server", "addr", r.opts.Addr)
			err = r.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- mcperr.Wrap(mcperr.BindFailed, err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return r.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown tears down every live session and stops the HTTP server,
// waiting up to shutdownGrace for in-flight requests.
func (r *Router) Shutdown() error {
	r.sessions.closeAll()
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return r.server.Shutdown(ctx)
}

// Addr returns the configured listen address, before and after Start.
// It is not resolved against the listener: with port 0 it still ends
// in ":0", not the port the OS picked, so callers that need the port
// should supply an explicit one.
func (r *Router) Addr() string {
	if r.server == nil {
		return r.opts.Addr
	}
	return r.server.Addr
}

// registerBackend wires /<prefix>/sse, /<prefix>/messages/,
// /<prefix>/mcp for the named backend (prefix "" and name "" for the
// default server).
func (r *Router) registerBackend(mux *http.ServeMux, prefix, name string) {
	sh := &sseHandler{router: r, backend: name, messagesPrefix: prefix + "/messages/"}
	st := &streamableHandler{router: r, backend: name}

	mux.HandleFunc(prefix+"/sse", sh.handleGet)
	mux.HandleFunc(prefix+"/messages/", sh.handlePost)
	mux.HandleFunc(prefix+"/mcp", st.handle)
}

type statusResponse struct {
	Status   string   `json:"status"`
	Backends []string `json:"backends,omitempty"`
}

// handleStatus answers GET /status with the base {"status":"ok"}
// document, supplemented with the registered backend names.
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	resp := statusResponse{Status: "ok"}
	for _, b := range r.reg.Each() {
		resp.Backends = append(resp.Backends, b.Name)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
