// Package config holds relaymcp's startup configuration: the flag
// surface of spec.md §6, its validation rules, and the handful of
// environment variables the proxy honours.
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/relaymcp/relaymcp/internal/registry"
)

// Transport selects the wire protocol a client-mode bridge speaks
// against its upstream HTTP endpoint.
type Transport string

const (
	TransportSSE            Transport = "sse"
	TransportStreamableHTTP Transport = "streamablehttp"
)

// Config is the fully-resolved startup configuration, built from CLI
// flags (and the few environment variables §6 names) by Build. It is
// immutable once built; nothing in the running proxy mutates it.
type Config struct {
	// CommandOrURL is the positional argument: an http(s) URL selects
	// client mode, anything else is the default server's command.
	CommandOrURL string

	// DefaultArgs is the default server's argv (remaining positionals
	// plus everything after "--").
	DefaultArgs []string

	// Client-mode fields.
	Headers   map[string]string `validate:"-"`
	Transport Transport         `validate:"omitempty,oneof=sse streamablehttp"`

	// Default-server fields (server mode only).
	Env             map[string]string `validate:"-"`
	Cwd             string            `validate:"omitempty,dir"`
	PassEnvironment bool

	Debug bool

	NamedServerFlags     []registry.NamedServerFlag `validate:"-"`
	NamedServerConfig    string                     `validate:"omitempty,file"`
	HasNamedServerFlags  bool
	HasNamedServerConfig bool

	Host         string `validate:"required,hostname_rfc1123|ip"`
	Port         int    `validate:"gte=0,lte=65535"`
	Stateless    bool
	AllowOrigins []string

	// AccessToken is API_ACCESS_TOKEN, applied to client-mode requests
	// as "Authorization: Bearer <token>" unless an explicit
	// Authorization header was already supplied via -H.
	AccessToken string
}

// IsClientMode reports whether CommandOrURL names an http(s) endpoint,
// per spec.md §6's dispatch rule.
func (c *Config) IsClientMode() bool {
	return strings.HasPrefix(c.CommandOrURL, "http://") || strings.HasPrefix(c.CommandOrURL, "https://")
}

// Addr is the host:port the HTTP server / router binds, for server
// mode.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Validate runs struct-tag validation plus the cross-field rules §4.6
// and §6 impose that a single tag cannot express: mutual exclusion
// between the default server and named servers is allowed to overlap
// freely (a proxy may have both), but a bare proxy with neither a
// default command/URL nor any named server has nothing to serve.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.CommandOrURL == "" && !c.HasNamedServerFlags && !c.HasNamedServerConfig {
		return fmt.Errorf("config: no default command/URL and no named servers configured")
	}
	if c.IsClientMode() && (c.HasNamedServerFlags || c.HasNamedServerConfig) {
		return fmt.Errorf("config: named servers are a server-mode concept and cannot combine with a client-mode URL")
	}
	return nil
}
