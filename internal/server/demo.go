package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/demo"
	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

// SeedDemo stores the demo backlog when the archive is empty. It returns the
// number of entries written.
func (s *Server) SeedDemo(ctx context.Context, now time.Time) (int, error) {
	count, err := s.archive.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	stored, err := s.Ingest(ctx, demo.Seed(now))
	if err != nil {
		return 0, fmt.Errorf("seed demo backlog: %w", err)
	}
	return len(stored), nil
}

// RunDemo ingests the scripted live entries at interval, starting over each
// time the script ends, until ctx is cancelled.
func (s *Server) RunDemo(ctx context.Context, interval time.Duration) error {
	script := stream.SourceFunc(func(ctx context.Context, _ logfeed.Entry) (stream.Conn, error) {
		return demo.Source{Interval: interval}.Open(ctx, logfeed.Entry{})
	})
	sub := stream.Subscribe(ctx, script, func(e logfeed.Entry) {
		if _, err := s.Ingest(ctx, []logfeed.Entry{e}); err != nil && ctx.Err() == nil {
			s.logger.Warn("demo ingest failed", zap.Error(err))
		}
	}, stream.Options{
		Reconnect:   true,
		BaseBackoff: interval,
		Logger:      s.logger,
	})
	defer sub.Close()

	<-ctx.Done()
	return nil
}
