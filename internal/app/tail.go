package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/logtail"
	"github.com/five82/agentlog/internal/stream"
	"github.com/five82/agentlog/internal/ui"
)

// Tail runs the feed without the TUI, writing one formatted line per entry
// that passes the filter. It returns when ctx is cancelled or the source
// ends.
func Tail(ctx context.Context, opts Options, w io.Writer) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	f := newFeed(cfg, nil, opts.Logger)
	f.demoInterval = opts.DemoInterval
	p, err := f.pipeline()
	if err != nil {
		return err
	}

	out := &writerSink{w: w, filter: filter, savePath: opts.SavePath, logger: f.logger}
	return f.run(ctx, p, out)
}

// writerSink prints entries and optionally archives them to JSONL.
type writerSink struct {
	w        io.Writer
	filter   logfeed.Filter
	savePath string
	logger   *zap.Logger
}

func (s *writerSink) Loaded(entries []logfeed.Entry) {
	s.save(entries...)
	for _, e := range entries {
		s.print(e)
	}
}

func (s *writerSink) Entry(e logfeed.Entry) {
	s.save(e)
	s.print(e)
}

func (s *writerSink) Status(evt stream.StatusEvent) {
	fields := []zap.Field{zap.Stringer("status", evt.Status)}
	if evt.Err != nil {
		fields = append(fields, zap.Error(evt.Err), zap.Int("failures", evt.Failures), zap.Duration("retry", evt.Retry))
	}
	s.logger.Info("log stream status", fields...)
}

func (s *writerSink) print(e logfeed.Entry) {
	if !s.filter.Matches(e) {
		return
	}
	if _, err := fmt.Fprintln(s.w, ui.FormatEntry(e)); err != nil {
		s.logger.Warn("write entry failed", zap.Error(err))
	}
}

func (s *writerSink) save(entries ...logfeed.Entry) {
	if s.savePath == "" || len(entries) == 0 {
		return
	}
	if err := logtail.AppendEntries(s.savePath, entries...); err != nil {
		s.logger.Warn("save entries failed", zap.String("path", s.savePath), zap.Error(err))
	}
}
