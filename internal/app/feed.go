package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/api"
	"github.com/five82/agentlog/internal/config"
	"github.com/five82/agentlog/internal/demo"
	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/logtail"
	"github.com/five82/agentlog/internal/state"
	"github.com/five82/agentlog/internal/stream"
)

// errNoInitialFile is returned when the file transport has nothing to follow.
var errNoInitialFile = errors.New("file transport needs initial_file")

// sink receives everything the feed produces, in order.
type sink interface {
	Loaded(entries []logfeed.Entry)
	Entry(e logfeed.Entry)
	Status(evt stream.StatusEvent)
}

// feed couples a bulk load with the live subscription that follows it.
type feed struct {
	cfg    config.Config
	state  *state.Store
	logger *zap.Logger
	now    func() time.Time

	// demoInterval overrides the pause between scripted entries.
	demoInterval time.Duration
	// backoff overrides the first reconnect delay.
	backoff time.Duration
}

// pipeline is what a transport resolves to.
type pipeline struct {
	target string
	load   func(ctx context.Context) (entries []logfeed.Entry, skipped int, err error)
	// source is followed when the bulk load failed, resume when it
	// succeeded. resume treats an empty load as a cursor at the start, so
	// entries stored between the load and the stream opening still arrive.
	source    stream.Source
	resume    stream.Source
	reconnect bool
}

func newFeed(cfg config.Config, st *state.Store, logger *zap.Logger) *feed {
	if st == nil {
		st = &state.Store{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feed{cfg: cfg, state: st, logger: logger, now: time.Now}
}

func (f *feed) pipeline() (pipeline, error) {
	switch f.cfg.Transport {
	case config.TransportSSE, config.TransportWebSocket:
		client, err := api.NewClient(f.cfg.ServerURL)
		if err != nil {
			return pipeline{}, fmt.Errorf("init log client: %w", err)
		}
		src, err := client.Source(f.cfg.Transport)
		if err != nil {
			return pipeline{}, err
		}
		resume, err := client.ResumeSource(f.cfg.Transport)
		if err != nil {
			return pipeline{}, err
		}
		limit := f.cfg.InitialLimit
		return pipeline{
			target: client.BaseURL(),
			load: func(ctx context.Context) ([]logfeed.Entry, int, error) {
				entries, err := client.FetchLogs(ctx, limit)
				return entries, 0, err
			},
			source:    src,
			resume:    resume,
			reconnect: true,
		}, nil

	case config.TransportDemo:
		return pipeline{
			target: "scripted agent",
			load: func(context.Context) ([]logfeed.Entry, int, error) {
				return demo.Seed(f.now()), 0, nil
			},
			source: demo.Source{Interval: f.demoInterval, Now: f.now},
		}, nil

	case config.TransportFile:
		path := f.cfg.InitialFile
		if path == "" {
			return pipeline{}, errNoInitialFile
		}
		limit := f.cfg.InitialLimit
		return pipeline{
			target: path,
			load: func(context.Context) ([]logfeed.Entry, int, error) {
				return logtail.ReadEntries(path, limit)
			},
			source:    &logtail.Follow{Path: path},
			resume:    &logtail.Follow{Path: path, FromStart: true},
			reconnect: true,
		}, nil

	default:
		return pipeline{}, fmt.Errorf("unknown transport %q", f.cfg.Transport)
	}
}

// run performs p's bulk load, hands it to out, then subscribes from the
// last loaded entry so nothing between the two is shown twice. It blocks
// until ctx is cancelled or the subscription ends, and always closes the
// subscription before returning.
func (f *feed) run(ctx context.Context, p pipeline, out sink) error {
	f.state.SetTarget(f.cfg.Transport, p.target)

	src := p.source
	entries, skipped, err := p.load(ctx)
	f.state.RecordLoad(len(entries), skipped, err)
	if err != nil {
		f.logger.Warn("initial load failed",
			zap.String("transport", f.cfg.Transport),
			zap.String("target", p.target),
			zap.Error(err))
		entries = nil
	} else {
		f.logger.Info("initial load complete",
			zap.String("transport", f.cfg.Transport),
			zap.Int("entries", len(entries)),
			zap.Int("skipped", skipped))
		if p.resume != nil {
			src = p.resume
		}
	}
	out.Loaded(entries)

	var after logfeed.Entry
	if n := len(entries); n > 0 {
		after = entries[n-1]
	}

	sub := stream.Subscribe(ctx, src, func(e logfeed.Entry) {
		f.state.Touch(e.Timestamp)
		out.Entry(e)
	}, stream.Options{
		After:       after,
		Reconnect:   p.reconnect,
		BaseBackoff: f.backoff,
		OnStatus: func(evt stream.StatusEvent) {
			f.state.Record(evt)
			out.Status(evt)
		},
		Logger: f.logger,
	})
	defer sub.Close()

	select {
	case <-ctx.Done():
		return nil
	case <-sub.Done():
		return sub.Err()
	}
}
