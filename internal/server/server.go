// Package server implements the agentlog log service: a SQLite-backed
// archive exposed over HTTP with a bulk endpoint, an ingest endpoint and two
// push channels (server-sent events and WebSocket).
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/five82/agentlog/internal/archive"
	"github.com/five82/agentlog/internal/logfeed"
)

// ErrInvalidEntry is returned by Ingest for entries that cannot be stored.
var ErrInvalidEntry = errors.New("invalid log entry")

// errSlowClient ends a stream whose subscriber fell behind the hub.
var errSlowClient = errors.New("stream client too slow")

const (
	defaultPingInterval = 15 * time.Second
	defaultIngestRate   = 50
	defaultIngestBurst  = 100
	defaultRecentLimit  = 50
	shutdownTimeout     = 10 * time.Second
)

// Options configure a Server. Zero values use the defaults.
type Options struct {
	Logger           *zap.Logger
	IngestRate       float64 // POST requests per second
	IngestBurst      int
	PingInterval     time.Duration
	SubscriberBuffer int
}

// Server serves the log endpoints.
type Server struct {
	archive *archive.Archive
	hub     *Hub
	logger  *zap.Logger
	limiter *rate.Limiter
	ping    time.Duration

	// ingestMu keeps insert and publish in seq order.
	ingestMu sync.Mutex
}

// New builds a Server on top of an open archive.
func New(a *archive.Archive, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ratePerSec := opts.IngestRate
	if ratePerSec <= 0 {
		ratePerSec = defaultIngestRate
	}
	burst := opts.IngestBurst
	if burst <= 0 {
		burst = defaultIngestBurst
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return &Server{
		archive: a,
		hub:     NewHub(opts.SubscriberBuffer, logger),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ping:    ping,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/logs", s.handleRecent)
		r.Post("/logs", s.handleIngest)
		r.Get("/logs/stream", s.handleStream)
		r.Get("/logs/ws", s.handleWebSocket)
	})
	return r
}

// Ingest normalizes entries, stores them and publishes them to live
// subscribers. Missing IDs get a UUID and missing timestamps the current
// time; level aliases are canonicalized. Client-supplied seq values are
// ignored.
func (s *Server) Ingest(ctx context.Context, entries []logfeed.Entry) ([]logfeed.Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidEntry)
	}
	normalized := make([]logfeed.Entry, len(entries))
	now := time.Now().UTC()
	for i, e := range entries {
		n, err := normalize(e, now)
		if err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidEntry, i, err)
		}
		normalized[i] = n
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	stored, err := s.archive.InsertBatch(ctx, normalized)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(stored...)
	return stored, nil
}

func normalize(e logfeed.Entry, now time.Time) (logfeed.Entry, error) {
	e.Seq = 0
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	lvl, err := logfeed.ParseLevel(string(e.Level))
	if err != nil {
		return logfeed.Entry{}, err
	}
	e.Level = lvl
	if err := e.Validate(); err != nil {
		return logfeed.Entry{}, err
	}
	return e, nil
}

// Hub exposes the fan-out hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Open streams end when ctx does.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("log service listening", zap.String("addr", ln.Addr().String()))
		errc <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("log service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// RunRetention deletes entries older than retention now and then every
// interval until ctx is cancelled.
func (s *Server) RunRetention(ctx context.Context, retention, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.cleanup(ctx, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.cleanup(ctx, retention)
		}
	}
}

func (s *Server) cleanup(ctx context.Context, retention time.Duration) {
	deleted, err := s.archive.DeleteOlderThan(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("retention cleanup failed", zap.Error(err))
		}
		return
	}
	if deleted > 0 {
		s.logger.Info("retention cleanup", zap.Int64("deleted", deleted))
	}
}

// follow delivers every entry after cursor to emit, first from the archive
// and then live from the hub, until ctx ends or emit fails. Without resume
// the cursor is ignored and only new entries are sent. ping runs on every
// idle interval.
func (s *Server) follow(ctx context.Context, cursor uint64, resume bool, emit func(logfeed.Entry) error, ping func() error) error {
	last := cursor
	if !resume {
		// New clients only want what arrives from now on.
		seq, err := s.archive.LastSeq(ctx)
		if err != nil {
			return err
		}
		last = seq
	}

	// Subscribe before reading the backlog so nothing falls between the two;
	// the seq check below drops what both deliver.
	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	for {
		page, err := s.archive.Since(ctx, last, archive.MaxPage)
		if err != nil {
			return err
		}
		for _, e := range page {
			if err := emit(e); err != nil {
				return err
			}
			last = e.Seq
		}
		if len(page) < archive.MaxPage {
			break
		}
	}

	ticker := time.NewTicker(s.ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.gone:
			return errSlowClient
		case e := <-sub.ch:
			if e.Seq <= last {
				continue
			}
			if err := emit(e); err != nil {
				return err
			}
			last = e.Seq
		case <-ticker.C:
			if err := ping(); err != nil {
				return err
			}
		}
	}
}
