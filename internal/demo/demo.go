// Package demo provides the scripted agent activity used when no log service
// is available: a ten-entry backlog and a short live sequence.
package demo

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

// DefaultInterval is the pause between scripted live entries.
const DefaultInterval = 4 * time.Second

type scripted struct {
	message string
	level   logfeed.Level
}

var backlog = []scripted{
	{"Agent initialized and ready", logfeed.LevelSystem},
	{`Received search query: "Find boutique gyms in Nashville that offer small classes"`, logfeed.LevelInfo},
	{"Analyzing query... Lead type: Brick & Mortar, Location: Nashville, Keywords: boutique, gym, small classes", logfeed.LevelInfo},
	{"Using ScraperAPI to search Google Maps", logfeed.LevelInfo},
	{"Found 32 potential leads matching criteria", logfeed.LevelSuccess},
	{"Filtering leads by relevance score...", logfeed.LevelInfo},
	{`Website for "FitStudio Nashville" returned 403 error`, logfeed.LevelWarning},
	{`Applying auto-tags: "fitness", "boutique", "small-business"`, logfeed.LevelInfo},
	{"Qualified 18 leads after enrichment", logfeed.LevelSuccess},
	{"Ready to generate outreach messages", logfeed.LevelSystem},
}

var live = []scripted{
	{"Analyzing new search query...", logfeed.LevelInfo},
	{"Scanning website content for contact info", logfeed.LevelInfo},
	{"Found email address with 92% confidence", logfeed.LevelSuccess},
	{"Enriching lead with LinkedIn profile data", logfeed.LevelInfo},
	{"Generating personalized email template", logfeed.LevelInfo},
	{"Added 3 new leads to queue", logfeed.LevelSuccess},
}

// Seed returns the backlog, one entry per minute ending a minute before now.
func Seed(now time.Time) []logfeed.Entry {
	out := make([]logfeed.Entry, len(backlog))
	for i, s := range backlog {
		out[i] = logfeed.Entry{
			ID:        strconv.Itoa(i + 1),
			Timestamp: now.Add(-time.Duration(len(backlog)-i) * time.Minute),
			Message:   s.message,
			Level:     s.level,
			Seq:       uint64(i + 1),
		}
	}
	return out
}

// Source replays the live script at a fixed interval, then ends.
type Source struct {
	Interval time.Duration
	Now      func() time.Time
}

// Open implements stream.Source. Entries at or before after.Seq are skipped.
func (s Source) Open(ctx context.Context, after logfeed.Entry) (stream.Conn, error) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	next := 0
	if first := uint64(len(backlog)); after.Seq > first {
		next = int(after.Seq - first)
	}
	return &conn{interval: interval, now: now, next: next}, nil
}

type conn struct {
	interval time.Duration
	now      func() time.Time
	next     int
}

func (c *conn) Next(ctx context.Context) (logfeed.Entry, error) {
	if c.next >= len(live) {
		return logfeed.Entry{}, io.EOF
	}
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return logfeed.Entry{}, ctx.Err()
	case <-timer.C:
	}

	s := live[c.next]
	c.next++
	return logfeed.Entry{
		ID:        "stream-" + uuid.NewString(),
		Timestamp: c.now(),
		Message:   s.message,
		Level:     s.level,
		Seq:       uint64(len(backlog) + c.next),
	}, nil
}

func (c *conn) Close() error { return nil }
