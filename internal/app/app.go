package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/five82/agentlog/internal/config"
	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/prefs"
	"github.com/five82/agentlog/internal/state"
	"github.com/five82/agentlog/internal/stream"
	"github.com/five82/agentlog/internal/ui"
)

// Options configure the agentlog client.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/agentlog/prefs.toml

	// Overrides for the config file. Zero values keep the file's settings.
	ServerURL string
	Transport string
	File      string // follow this JSONL file; implies the file transport
	Demo      bool   // implies the demo transport
	Limit     int    // entries fetched by the bulk load

	Filter  string // starting filter; empty keeps the saved one
	Verbose bool

	// SavePath appends every received entry to a JSONL file (tail only).
	SavePath string
	// DemoInterval overrides the pause between scripted demo entries.
	DemoInterval time.Duration

	// Logger replaces the logger built from the config.
	Logger *zap.Logger
}

// config loads the config file and applies the overrides.
func (o Options) config() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if o.ServerURL != "" {
		cfg.ServerURL = o.ServerURL
	}
	if o.Transport != "" {
		transport, err := config.NormalizeTransport(o.Transport)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Transport = transport
	}
	if o.File != "" {
		path, err := config.ExpandPath(o.File)
		if err != nil {
			return config.Config{}, err
		}
		cfg.InitialFile = path
		cfg.Transport = config.TransportFile
	}
	if o.Demo {
		cfg.Transport = config.TransportDemo
	}
	if o.Limit > 0 {
		cfg.InitialLimit = o.Limit
	}
	return cfg, nil
}

func (o Options) filter() (logfeed.Filter, error) {
	return logfeed.ParseFilter(o.Filter)
}

// Run boots the agentlog TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = newFileLogger(cfg.LogFile, opts.Verbose)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("using default prefs", zap.Error(err))
	}
	if opts.Filter != "" {
		filter, err := opts.filter()
		if err != nil {
			return err
		}
		userPrefs.Filter = string(filter)
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	f := newFeed(cfg, &state.Store{}, logger)
	f.demoInterval = opts.DemoInterval
	p, err := f.pipeline()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	program := ui.NewProgram(ui.Options{
		Context:     gctx,
		State:       f.state,
		Prefs:       userPrefs,
		PrefsPath:   prefsPath,
		BufferLimit: cfg.BufferLimit,
		Logger:      logger,
	})

	g.Go(func() error {
		// Quitting the UI stops the feed.
		defer cancel()
		_, err := program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := f.run(gctx, p, programSink{program}); err != nil {
			logger.Error("log feed stopped", zap.Error(err))
		}
		return nil
	})

	logger.Info("agentlog started",
		zap.String("transport", cfg.Transport),
		zap.String("target", p.target))
	return g.Wait()
}

// programSink forwards the feed into the Bubble Tea program. Send returns
// immediately once the program has exited.
type programSink struct {
	p *tea.Program
}

func (s programSink) Loaded(entries []logfeed.Entry) { s.p.Send(ui.InitialLoad(entries)) }
func (s programSink) Entry(e logfeed.Entry)          { s.p.Send(ui.EntryArrived(e)) }
func (s programSink) Status(evt stream.StatusEvent)  { s.p.Send(ui.StatusChanged(evt)) }

// newFileLogger writes JSON logs to path so they never reach the terminal.
func newFileLogger(path string, verbose bool) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
