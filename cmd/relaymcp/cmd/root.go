// Package cmd provides relaymcp's single-action CLI entrypoint: the
// flag surface of spec.md §6, dispatch to client or server mode, and
// process-wide shutdown.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/relaymcp/relaymcp/internal/config"
)

// These name every flag that consumes the two argv tokens
// following it, which must be pulled out of argv before pflag ever
// sees it (see config.ExtractPairFlags).
var (
	headerFlagNames  = []string{"-H", "--headers"}
	envFlagNames     = []string{"-e", "--env"}
	namedSrvFlagName = []string{"--named-server"}
)

var rootCmd = &cobra.Command{
	Use:   "relaymcp [flags] [command_or_url] [-- args...]",
	Short: "Bidirectional MCP transport bridge",
	Long: `relaymcp bridges the Model Context Protocol between its reference
transports.

Client mode: given an http(s) URL, relaymcp is an MCP client against
that remote endpoint and an MCP server over this process's own
stdin/stdout.

Server mode: given a stdio command (or one or more --named-server
backends), relaymcp listens on an HTTP port and exposes each backend
over SSE and Streamable HTTP, spawning a fresh child process per
session.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

var rawFlags config.Flags

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&rawFlags.Transport, "transport", "sse", "client-mode transport: sse or streamablehttp")
	flags.StringVar(&rawFlags.Cwd, "cwd", "", "working directory for the default server")
	flags.BoolVar(&rawFlags.PassEnvironment, "pass-environment", false, "inherit the parent process environment when spawning")
	flags.Bool("no-pass-environment", false, "do not inherit the parent process environment (default)")
	flags.BoolVar(&rawFlags.Debug, "debug", false, "verbose logging")
	flags.Bool("no-debug", false, "disable verbose logging (default)")
	flags.StringVar(&rawFlags.NamedServerConfig, "named-server-config", "", "JSON file defining named stdio servers (exclusive source if set)")
	flags.IntVar(&rawFlags.Port, "port", 0, "server port (0 = random free port)")
	flags.IntVar(&rawFlags.Port, "sse-port", 0, "alias of --port")
	flags.StringVar(&rawFlags.Host, "host", "127.0.0.1", "bind address")
	flags.StringVar(&rawFlags.Host, "sse-host", "127.0.0.1", "alias of --host")
	flags.BoolVar(&rawFlags.Stateless, "stateless", false, "Streamable HTTP stateless mode: no session, no persistent child binding")
	flags.Bool("no-stateless", false, "disable stateless mode (default)")
	flags.StringArrayVar(&rawFlags.AllowOrigins, "allow-origin", nil, "CORS allow-list entry (repeatable); '*' allows any origin")
}

// Execute parses argv (normally os.Args[1:]) and runs the proxy. It
// blocks until the process is told to shut down or a fatal error
// occurs.
func Execute(argv []string) error {
	remaining, headerPairs, err := config.ExtractPairFlags(argv, headerFlagNames...)
	if err != nil {
		return err
	}
	remaining, envPairs, err := config.ExtractPairFlags(remaining, envFlagNames...)
	if err != nil {
		return err
	}
	remaining, namedServerPairs, err := config.ExtractPairFlags(remaining, namedSrvFlagName...)
	if err != nil {
		return err
	}
	rawFlags.HeaderPairs = headerPairs
	rawFlags.EnvPairs = envPairs
	rawFlags.NamedServerPairs = namedServerPairs

	rootCmd.SetArgs(remaining)
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	dash := cmd.Flags().ArgsLenAtDash()
	if dash < 0 {
		dash = len(args)
	}
	if dash > 0 {
		rawFlags.CommandOrURL = args[0]
		rawFlags.DefaultArgs = args[1:]
	} else {
		rawFlags.DefaultArgs = args
	}

	if noPassEnv, _ := cmd.Flags().GetBool("no-pass-environment"); noPassEnv {
		rawFlags.PassEnvironment = false
	}
	if noDebug, _ := cmd.Flags().GetBool("no-debug"); noDebug {
		rawFlags.Debug = false
	}
	if noStateless, _ := cmd.Flags().GetBool("no-stateless"); noStateless {
		rawFlags.Stateless = false
	}

	v := config.InitViper()
	cfg, err := config.Build(rawFlags, v)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	if cfg.IsClientMode() {
		return runClientMode(ctx, cfg, logger)
	}
	return runServerMode(ctx, cfg, logger)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
