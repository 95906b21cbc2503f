package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

// Event names the server uses on the SSE channel.
const (
	EventLog  = "log"
	EventPing = "ping"
)

// maxEventBytes caps a single event line and an event's joined data.
const maxEventBytes = 1024 * 1024

type sseSource struct {
	client    *Client
	fromStart bool
}

func (s *sseSource) Open(ctx context.Context, after logfeed.Entry) (stream.Conn, error) {
	c := s.client
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: streamPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", c.userAgent)
	if after.Seq > 0 || s.fromStart {
		req.Header.Set("Last-Event-ID", strconv.FormatUint(after.Seq, 10))
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("api %s returned status %d", streamPath, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("api %s returned content type %q", streamPath, ct)
	}
	return &sseConn{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

type sseConn struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// sseEvent is one dispatched frame.
type sseEvent struct {
	name string
	id   string
	data []byte
}

func (c *sseConn) Next(ctx context.Context) (logfeed.Entry, error) {
	for {
		evt, err := c.readEvent()
		if err != nil {
			if errors.Is(err, stream.ErrMalformed) {
				return logfeed.Entry{}, err
			}
			if ctx.Err() != nil {
				return logfeed.Entry{}, ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				// A server-sent event stream never ends on purpose; the
				// subscription treats this as a dropped connection.
				return logfeed.Entry{}, fmt.Errorf("event stream closed: %w", io.ErrUnexpectedEOF)
			}
			return logfeed.Entry{}, fmt.Errorf("read event stream: %w", err)
		}

		switch evt.name {
		case "", EventLog, "message":
		default:
			continue
		}
		entry, err := decodeEntry(evt.data)
		if err != nil {
			return logfeed.Entry{}, err
		}
		if entry.Seq == 0 && evt.id != "" {
			if seq, perr := strconv.ParseUint(evt.id, 10, 64); perr == nil {
				entry.Seq = seq
			}
		}
		return entry, nil
	}
}

// readEvent reads lines until a blank line dispatches an event with data.
// Comment lines and events without data are dropped. An event whose data
// exceeds maxEventBytes is consumed and reported as malformed.
func (c *sseConn) readEvent() (sseEvent, error) {
	var (
		evt      sseEvent
		data     bytes.Buffer
		hasData  bool
		oversize bool
	)
	for {
		line, long, err := c.readLine()
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return sseEvent{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if long {
			oversize = true
		}

		if line == "" && !long {
			if oversize {
				return sseEvent{}, fmt.Errorf("%w: event larger than %d bytes", stream.ErrMalformed, maxEventBytes)
			}
			if hasData {
				evt.data = data.Bytes()
				return evt, nil
			}
			evt = sseEvent{}
			if err != nil {
				return sseEvent{}, err
			}
			continue
		}
		if oversize || strings.HasPrefix(line, ":") {
			if err != nil {
				return sseEvent{}, err
			}
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			evt.name = value
		case "id":
			evt.id = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			if data.Len()+len(value) > maxEventBytes {
				oversize = true
			} else {
				data.WriteString(value)
			}
			hasData = true
		}
		if err != nil {
			return sseEvent{}, err
		}
	}
}

// readLine reads one line of at most maxEventBytes. Longer lines are
// discarded through their newline and reported with long set.
func (c *sseConn) readLine() (line string, long bool, err error) {
	var buf []byte
	for {
		chunk, err := c.reader.ReadSlice('\n')
		if !long {
			if len(buf)+len(chunk) > maxEventBytes {
				long, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(buf), long, err
	}
}

func (c *sseConn) Close() error {
	return c.body.Close()
}
