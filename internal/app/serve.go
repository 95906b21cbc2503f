package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/agentlog/internal/archive"
	"github.com/five82/agentlog/internal/config"
	"github.com/five82/agentlog/internal/server"
)

const retentionInterval = time.Hour

// ServeOptions configure the companion log service.
type ServeOptions struct {
	ConfigPath string
	Listen     string // overrides [server].listen
	DBPath     string // overrides [server].db_path

	// Demo seeds an empty archive with the demo backlog and keeps
	// replaying the scripted entries.
	Demo         bool
	DemoInterval time.Duration

	// Listener is used instead of Listen when set.
	Listener net.Listener
	Logger   *zap.Logger
}

// Serve runs the log service until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sc := cfg.Server
	if opts.Listen != "" {
		sc.Listen = opts.Listen
	}
	if opts.DBPath != "" {
		if sc.DBPath, err = config.ExpandPath(opts.DBPath); err != nil {
			return err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if sc.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(sc.DBPath), 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	store, err := archive.Open(sc.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close archive failed", zap.Error(err))
		}
	}()

	srv := server.New(store, server.Options{
		Logger:      logger,
		IngestRate:  sc.IngestRate,
		IngestBurst: sc.IngestBurst,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if opts.Listener != nil {
			return srv.Serve(gctx, opts.Listener)
		}
		return srv.Run(gctx, sc.Listen)
	})
	g.Go(func() error {
		return srv.RunRetention(gctx, sc.Retention(), retentionInterval)
	})
	if opts.Demo {
		g.Go(func() error {
			seeded, err := srv.SeedDemo(gctx, time.Now())
			if err != nil {
				return err
			}
			logger.Info("demo backlog ready", zap.Int("seeded", seeded))
			return srv.RunDemo(gctx, opts.DemoInterval)
		})
	}

	logger.Info("log service starting",
		zap.String("db", sc.DBPath),
		zap.Duration("retention", sc.Retention()),
		zap.Bool("demo", opts.Demo))
	return g.Wait()
}
