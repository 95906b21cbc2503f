package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

func testEntry(id string, seq uint64, lvl logfeed.Level) logfeed.Entry {
	return logfeed.Entry{
		ID:        id,
		Timestamp: time.Date(2025, 3, 1, 12, 0, int(seq), 0, time.UTC),
		Message:   "message " + id,
		Level:     lvl,
		Seq:       seq,
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultServerURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultServerURL)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_FetchLogsEncodesLimitAndDecodes(t *testing.T) {
	t.Parallel()

	var gotLimit, gotUserAgent, gotPath string
	want := []logfeed.Entry{testEntry("a", 1, logfeed.LevelInfo), testEntry("b", 2, logfeed.LevelSuccess)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	got, err := c.FetchLogs(ctx, 0)
	if err != nil {
		t.Fatalf("FetchLogs returned error: %v", err)
	}
	if gotPath != "/api/logs" {
		t.Fatalf("path = %q, want /api/logs", gotPath)
	}
	if gotLimit != "50" {
		t.Fatalf("limit = %q, want default 50", gotLimit)
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Level != logfeed.LevelSuccess {
		t.Fatalf("FetchLogs payload = %+v", got)
	}
	if !got[0].Timestamp.Equal(want[0].Timestamp) {
		t.Fatalf("timestamp = %v, want %v", got[0].Timestamp, want[0].Timestamp)
	}

	if _, err := c.FetchLogs(ctx, 5); err != nil {
		t.Fatalf("FetchLogs(5) returned error: %v", err)
	}
	if gotLimit != "5" {
		t.Fatalf("limit = %q, want 5", gotLimit)
	}
}

func TestClient_FetchLogsReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.FetchLogs(context.Background(), 10); err == nil {
		t.Fatal("FetchLogs returned nil error for status 500")
	}
}

func TestClient_SourceSelectsTransport(t *testing.T) {
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if src, err := c.Source("sse"); err != nil || src == nil {
		t.Fatalf("Source(sse) = %v, %v", src, err)
	}
	if _, ok := mustSource(t, c, "WebSocket").(*wsSource); !ok {
		t.Fatal("Source(WebSocket) is not the websocket source")
	}
	if _, err := c.Source("carrier-pigeon"); err == nil {
		t.Fatal("Source accepted an unknown transport")
	}
}

func mustSource(t *testing.T, c *Client, name string) stream.Source {
	t.Helper()
	src, err := c.Source(name)
	if err != nil {
		t.Fatalf("Source(%q): %v", name, err)
	}
	return src
}

func TestSSE_ParsesFramesAndResumes(t *testing.T) {
	t.Parallel()

	first := testEntry("a", 7, logfeed.LevelInfo)
	second := testEntry("b", 0, logfeed.LevelWarning)
	firstJSON, secondJSON := mustJSON(t, first), mustJSON(t, second)

	lastEventID := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastEventID <- r.Header.Get("Last-Event-ID")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		fmt.Fprint(w, "event: ping\ndata: {}\n\n")
		fmt.Fprintf(w, "id: 7\nevent: log\ndata: %s\n\n", firstJSON)
		fmt.Fprint(w, "event: log\ndata: {not json\n\n")
		fmt.Fprintf(w, "id: 8\r\nevent: log\r\ndata: %s\r\n\r\n", secondJSON)
		w.(http.Flusher).Flush()
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	conn, err := c.SSE().Open(ctx, testEntry("prev", 6, logfeed.LevelInfo))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer conn.Close()

	if got := <-lastEventID; got != "6" {
		t.Fatalf("Last-Event-ID = %q, want 6", got)
	}

	e, err := conn.Next(ctx)
	if err != nil || e.ID != "a" || e.Seq != 7 {
		t.Fatalf("first Next = %+v, %v", e, err)
	}
	if _, err := conn.Next(ctx); !errors.Is(err, stream.ErrMalformed) {
		t.Fatalf("second Next error = %v, want ErrMalformed", err)
	}
	e, err = conn.Next(ctx)
	if err != nil || e.ID != "b" {
		t.Fatalf("third Next = %+v, %v", e, err)
	}
	if e.Seq != 8 {
		t.Fatalf("seq from event id = %d, want 8", e.Seq)
	}
	if _, err := conn.Next(ctx); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Next after server close = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestSSE_OversizedEventIsMalformed(t *testing.T) {
	t.Parallel()

	next := testEntry("after-big", 2, logfeed.LevelSuccess)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "id: 1\nevent: log\ndata: {\"message\":\"%s\"}\n\n", strings.Repeat("x", maxEventBytes+10))
		fmt.Fprintf(w, "id: 2\nevent: log\ndata: %s\n\n", mustJSON(t, next))
		w.(http.Flusher).Flush()
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	conn, err := c.SSE().Open(ctx, logfeed.Entry{})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Next(ctx); !errors.Is(err, stream.ErrMalformed) {
		t.Fatalf("Next on oversized event = %v, want ErrMalformed", err)
	}
	e, err := conn.Next(ctx)
	if err != nil || e.ID != "after-big" {
		t.Fatalf("Next after oversized event = %+v, %v", e, err)
	}
}

func TestResumeSource_SendsZeroCursor(t *testing.T) {
	t.Parallel()

	cursors := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor, ok := r.Header["Last-Event-Id"]
		if !ok {
			cursors <- "none"
		} else {
			cursors <- cursor[0]
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL)
	live, _ := c.Source("sse")
	resume, _ := c.ResumeSource("sse")
	for _, src := range []stream.Source{live, resume} {
		if _, err := src.Open(context.Background(), logfeed.Entry{}); err == nil {
			t.Fatal("Open succeeded against a failing server")
		}
	}
	if got := <-cursors; got != "none" {
		t.Fatalf("live source cursor = %q, want none", got)
	}
	if got := <-cursors; got != "0" {
		t.Fatalf("resume source cursor = %q, want 0", got)
	}
}

func TestSSE_RejectsNonStreamResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL)
	if _, err := c.SSE().Open(context.Background(), logfeed.Entry{}); err == nil {
		t.Fatal("Open accepted a non event-stream response")
	}
}

func TestWebSocket_ReadsEntriesAndHonoursCancel(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	payload := mustJSON(t, testEntry("x", 4, logfeed.LevelError))
	gotAfter := make(chan string, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs/ws" {
			http.NotFound(w, r)
			return
		}
		gotAfter <- r.URL.Query().Get("after")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(payload))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"id":"y","message":"m","level":"loud","timestamp":"2025-03-01T12:00:00Z"}`))
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := c.WebSocket().Open(ctx, testEntry("prev", 3, logfeed.LevelInfo))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer conn.Close()

	if after := <-gotAfter; after != "3" {
		t.Fatalf("after = %q, want 3", after)
	}
	e, err := conn.Next(ctx)
	if err != nil || e.ID != "x" || e.Level != logfeed.LevelError {
		t.Fatalf("Next = %+v, %v", e, err)
	}
	if _, err := conn.Next(ctx); !errors.Is(err, stream.ErrMalformed) {
		t.Fatalf("Next with unknown level = %v, want ErrMalformed", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := conn.Next(ctx)
		errc <- err
	}()
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Next after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
}
