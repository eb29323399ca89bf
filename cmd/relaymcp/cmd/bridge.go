package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/relaymcp/relaymcp/internal/config"
	"github.com/relaymcp/relaymcp/internal/registry"
	"github.com/relaymcp/relaymcp/internal/router"
	"github.com/relaymcp/relaymcp/internal/session"
	"github.com/relaymcp/relaymcp/internal/transport"
	"github.com/relaymcp/relaymcp/internal/transport/httpclient"
	"github.com/relaymcp/relaymcp/internal/transport/stdio"
)

// runClientMode wires the client-mode bridge (§1 item 1): this
// process's own stdin/stdout as the left (server) side of a Session,
// and an HTTP client transport against cfg.CommandOrURL as the right
// (upstream) side.
func runClientMode(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	headers := httpclient.BuildHeaders(cfg.Headers, cfg.AccessToken)

	var right transport.Transport
	switch cfg.Transport {
	case config.TransportStreamableHTTP:
		right = httpclient.NewStreamable(cfg.CommandOrURL, headers, http.DefaultClient)
	default:
		sse, err := httpclient.Dial(ctx, cfg.CommandOrURL, headers, http.DefaultClient)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", cfg.CommandOrURL, err)
		}
		right = sse
	}

	left := stdio.NewParent()
	sess := session.New("client", "upstream", left, right, logger, nil)

	logger.Info("client bridge started", "upstream", cfg.CommandOrURL, "transport", cfg.Transport)
	return sess.Run(ctx)
}

// runServerMode wires the server-mode multi-tenant router (§1 item
// 2): the backend registry loaded from §4.6's three sources, and the
// HTTP server / router that binds a fresh child to each incoming
// session.
func runServerMode(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backends, err := registry.Resolve(cfg.NamedServerConfig, cfg.NamedServerFlags)
	if err != nil {
		return fmt.Errorf("load named servers: %w", err)
	}

	var def *registry.Backend
	if cfg.CommandOrURL != "" {
		def = &registry.Backend{
			Name:    "",
			Command: cfg.CommandOrURL,
			Args:    cfg.DefaultArgs,
			Env:     defaultServerEnv(cfg),
			Dir:     cfg.Cwd,
			Enabled: true,
		}
	}

	reg := registry.New(backends, def)
	defer func() {
		if err := reg.Shutdown(); err != nil {
			logger.Error("registry shutdown", "error", err)
		}
	}()

	r := router.New(reg, router.Options{
		Addr:         cfg.Addr(),
		AllowOrigins: cfg.AllowOrigins,
		Stateless:    cfg.Stateless,
		Logger:       logger,
	})

	logger.Info("server mode starting", "addr", cfg.Addr(), "backends", len(backends), "has_default", def != nil)
	err = r.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// defaultServerEnv builds the default server's environment overlay
// per §4.2: an optional full pass-through of the proxy's own
// environment, unioned with the --env overlay. Named servers have
// neither a --env nor a --pass-environment flag of their own; per
// registry.LoadFromFile/LoadFromFlags they always inherit the
// proxy's environment unmodified (nil Env), matching §4.2's
// "inherited + pass-through only" for that case.
func defaultServerEnv(cfg *config.Config) []string {
	env := []string{}
	if cfg.PassEnvironment {
		env = append(env, os.Environ()...)
	}
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	return env
}
