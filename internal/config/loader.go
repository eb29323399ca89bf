package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/relaymcp/relaymcp/internal/registry"
)

// InitViper binds environment variables the way the teacher's own
// loader does (SENTINEL_GATE_* there, RELAYMCP_* here): RELAYMCP_HOST,
// RELAYMCP_PORT, RELAYMCP_TRANSPORT, RELAYMCP_DEBUG and
// RELAYMCP_STATELESS, plus API_ACCESS_TOKEN unprefixed since spec.md
// §6 names it verbatim rather than under this proxy's own prefix.
// Build reads only the access token from the result; the RELAYMCP_*
// bindings do not override any flag value.
func InitViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RELAYMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("access_token", "API_ACCESS_TOKEN")
	_ = v.BindEnv("host")
	_ = v.BindEnv("port")
	_ = v.BindEnv("transport")
	_ = v.BindEnv("debug")
	_ = v.BindEnv("stateless")
	return v
}

// Flags is the set of raw, still-stringly-typed flag values cobra
// parsed, before pair-flag extraction and validation. Build turns
// this into a validated Config.
type Flags struct {
	CommandOrURL string
	DefaultArgs  []string

	HeaderPairs [][2]string
	Transport   string

	EnvPairs        [][2]string
	Cwd             string
	PassEnvironment bool

	Debug bool

	NamedServerPairs  [][2]string
	NamedServerConfig string

	Host         string
	Port         int
	Stateless    bool
	AllowOrigins []string
}

// Build assembles and validates a Config from parsed flags plus the
// viper-bound environment (of which only API_ACCESS_TOKEN is used). v
// may be nil, in which case AccessToken stays empty -- used by tests
// that construct Flags directly.
func Build(f Flags, v *viper.Viper) (*Config, error) {
	cfg := &Config{
		CommandOrURL:         f.CommandOrURL,
		DefaultArgs:          f.DefaultArgs,
		Headers:              pairsToMap(f.HeaderPairs),
		Transport:            Transport(f.Transport),
		Env:                  pairsToMap(f.EnvPairs),
		Cwd:                  f.Cwd,
		PassEnvironment:      f.PassEnvironment,
		Debug:                f.Debug,
		HasNamedServerFlags:  len(f.NamedServerPairs) > 0,
		HasNamedServerConfig: f.NamedServerConfig != "",
		NamedServerConfig:    f.NamedServerConfig,
		Host:                 f.Host,
		Port:                 f.Port,
		Stateless:            f.Stateless,
		AllowOrigins:         f.AllowOrigins,
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportSSE
	}

	for _, p := range f.NamedServerPairs {
		cfg.NamedServerFlags = append(cfg.NamedServerFlags, registry.NamedServerFlag{
			Name:          p[0],
			CommandString: p[1],
		})
	}

	if v != nil {
		cfg.AccessToken = v.GetString("access_token")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
