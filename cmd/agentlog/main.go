package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/agentlog/internal/app"
	"github.com/five82/agentlog/internal/demo"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "agentlog: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:   "agentlog",
		Short: "Live terminal feed of agent activity logs",
		Long: `agentlog shows an autonomous agent's activity log as it happens.

It loads the most recent entries from the log service, then follows new
ones over SSE or WebSocket. Use --demo to watch a scripted agent without a
service, or --file to follow a JSONL log on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/agentlog/config.toml)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	addClientFlags(root, &opts)
	root.Flags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/agentlog/prefs.toml)")

	root.AddCommand(newTailCmd(&opts), newServeCmd(&opts))
	return root
}

// addClientFlags registers the flags shared by the TUI and tail.
func addClientFlags(cmd *cobra.Command, opts *app.Options) {
	f := cmd.Flags()
	f.StringVar(&opts.ServerURL, "server", "", "log service host:port or URL")
	f.StringVar(&opts.Transport, "transport", "", "sse, websocket, demo or file")
	f.StringVar(&opts.File, "file", "", "follow a JSONL log file instead of the service")
	f.BoolVar(&opts.Demo, "demo", false, "replay the scripted demo agent")
	f.StringVar(&opts.Filter, "filter", "", "all, info, success, warning, error or system")
	f.IntVar(&opts.Limit, "limit", 0, "entries to load before following (default 50)")
}

func newTailCmd(root *app.Options) *cobra.Command {
	var opts app.Options

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the feed as plain lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = root.ConfigPath
			logger, err := newLogger(root.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			opts.Logger = logger
			return app.Tail(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	addClientFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.SavePath, "save", "", "append every received entry to this JSONL file")
	return cmd
}

func newServeCmd(root *app.Options) *cobra.Command {
	var opts app.ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log service",
		Long: `serve stores agent log entries in SQLite and serves them:

  GET  /api/logs           most recent entries
  GET  /api/logs/stream    server-sent events
  GET  /api/logs/ws        WebSocket
  POST /api/logs           ingest one entry or an array
  GET  /api/health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = root.ConfigPath
			logger, err := newLogger(root.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			opts.Logger = logger
			return app.Serve(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Listen, "listen", "", "listen address (default 127.0.0.1:7490)")
	f.StringVar(&opts.DBPath, "db", "", "SQLite archive path")
	f.BoolVar(&opts.Demo, "demo", false, "seed an empty archive and keep ingesting the demo script")
	f.DurationVar(&opts.DemoInterval, "demo-interval", demo.DefaultInterval, "pause between demo entries")
	return cmd
}

// newLogger builds the stderr logger used outside the TUI.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
