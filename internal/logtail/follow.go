package logtail

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

// ErrRotated is returned by a follow connection when the file it was reading
// has been truncated, removed or renamed. Reopening resumes from the last
// delivered entry.
var ErrRotated = errors.New("log file rotated")

const defaultPollInterval = time.Second

// Follow tails a JSONL archive. It implements stream.Source and never ends
// on its own: it waits for appends until the context is cancelled.
//
// A Follow remembers the file its last connection read, so reopening after
// the file was replaced or truncated reads the new file from the start.
type Follow struct {
	Path string
	// PollInterval re-checks the file even without a change notification.
	// Zero uses one second.
	PollInterval time.Duration
	// FromStart reads the whole file when opened with the zero entry,
	// instead of only what is appended from then on.
	FromStart bool

	mu       sync.Mutex
	lastFile os.FileInfo
	lastRead int64
}

var _ stream.Source = (*Follow)(nil)

// Open positions the reader just past after. When after is not in the file,
// or is the zero entry without FromStart, only entries appended from now on
// are read.
func (f *Follow) Open(ctx context.Context, after logfeed.Entry) (stream.Conn, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	offset, err := f.startOffset(file, after)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek log: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.Path); err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, fmt.Errorf("watch %s: %w", f.Path, err)
	}

	poll := f.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &followConn{
		owner:   f,
		file:    file,
		reader:  bufio.NewReader(file),
		watcher: watcher,
		offset:  offset,
		poll:    poll,
	}, nil
}

// startOffset picks where a new connection starts reading.
func (f *Follow) startOffset(file *os.File, after logfeed.Entry) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat log: %w", err)
	}

	f.mu.Lock()
	last, lastRead := f.lastFile, f.lastRead
	f.mu.Unlock()
	if last != nil && (!os.SameFile(last, info) || info.Size() < lastRead) {
		// Replaced or truncated: nothing in it has been delivered yet.
		return 0, nil
	}
	if after.IsZero() && f.FromStart {
		return 0, nil
	}
	return resumeOffset(file, info.Size(), after)
}

// remember records the file and offset a closing connection reached.
func (f *Follow) remember(file *os.File, offset int64) {
	info, err := file.Stat()
	if err != nil {
		return
	}
	f.mu.Lock()
	f.lastFile, f.lastRead = info, offset
	f.mu.Unlock()
}

// resumeOffset returns the byte offset just past the last line holding
// after, or end when no line does. Entries may repeat in an archive, so the
// whole file is scanned.
func resumeOffset(file *os.File, end int64, after logfeed.Entry) (int64, error) {
	if after.IsZero() {
		return end, nil
	}

	reader := bufio.NewReader(file)
	var offset int64
	found := int64(-1)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			offset += int64(len(line))
			if entry, derr := DecodeLine(line); derr == nil && sameEntry(entry, after) {
				found = offset
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("read log: %w", err)
			}
			if found < 0 {
				return end, nil
			}
			return found, nil
		}
	}
}

func sameEntry(a, b logfeed.Entry) bool {
	if a.Seq != 0 && b.Seq != 0 {
		return a.Seq == b.Seq
	}
	return a.ID == b.ID
}

type followConn struct {
	owner   *Follow
	file    *os.File
	reader  *bufio.Reader
	watcher *fsnotify.Watcher
	offset  int64
	partial []byte
	poll    time.Duration
}

func (c *followConn) Next(ctx context.Context) (logfeed.Entry, error) {
	for {
		line, err := c.reader.ReadBytes('\n')
		if len(line) > 0 {
			c.partial = append(c.partial, line...)
			c.offset += int64(len(line))
		}
		if err == nil {
			record := c.partial
			c.partial = nil
			if len(bytes.TrimSpace(record)) == 0 {
				continue
			}
			return DecodeLine(record)
		}
		if !errors.Is(err, io.EOF) {
			return logfeed.Entry{}, fmt.Errorf("read log: %w", err)
		}
		if err := c.wait(ctx); err != nil {
			return logfeed.Entry{}, err
		}
	}
}

// wait blocks until the file may have grown.
func (c *followConn) wait(ctx context.Context) error {
	timer := time.NewTimer(c.poll)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-c.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return ErrRotated
			}
			if event.Has(fsnotify.Write) {
				return c.checkTruncated()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			return fmt.Errorf("watch log: %w", err)
		case <-timer.C:
			return c.checkTruncated()
		}
	}
}

func (c *followConn) checkTruncated() error {
	info, err := c.file.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < c.offset {
		return ErrRotated
	}
	return nil
}

func (c *followConn) Close() error {
	c.owner.remember(c.file, c.offset)
	werr := c.watcher.Close()
	ferr := c.file.Close()
	return errors.Join(werr, ferr)
}
