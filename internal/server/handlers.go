package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/archive"
	"github.com/five82/agentlog/internal/logfeed"
)

// maxBodySize is the maximum allowed ingest body size (10MB).
const maxBodySize = 10 << 20

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // matches the CORS policy
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.archive.Count(r.Context())
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "archive unavailable")
		return
	}
	last, err := s.archive.LastSeq(r.Context())
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "archive unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"entries":  count,
		"last_seq": last,
		"clients":  s.hub.ClientCount(),
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, archive.MaxPage)
	}

	entries, err := s.archive.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("query recent entries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if entries == nil {
		entries = []logfeed.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "ingest rate exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body or body too large")
		return
	}

	// Accept both a single entry and a batch.
	var entries []logfeed.Entry
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &entries); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	} else {
		var single logfeed.Entry
		if err := json.Unmarshal(body, &single); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		entries = []logfeed.Entry{single}
	}

	stored, err := s.Ingest(r.Context(), entries)
	if err != nil {
		if errors.Is(err, ErrInvalidEntry) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingest failed", zap.Error(err), zap.Int("entries", len(entries)))
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// cursor reads the resume position from Last-Event-ID or ?after=. ok is
// false when the client sent neither; an explicit 0 replays the archive.
func cursor(r *http.Request) (after uint64, ok bool, err error) {
	raw := strings.TrimSpace(r.Header.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("after"))
	}
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cursor %q", raw)
	}
	return n, true, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	after, resume, err := cursor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream unsupported", zap.Error(err))
		return
	}

	send := func(event, id string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", event, err)
		}
		if id != "" {
			if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	s.logger.Debug("event stream started", zap.Uint64("after", after), zap.Bool("resume", resume))
	err = s.follow(r.Context(),
		after, resume,
		func(e logfeed.Entry) error {
			return send("log", strconv.FormatUint(e.Seq, 10), e)
		},
		func() error {
			return send("ping", "", map[string]int64{"time": time.Now().Unix()})
		},
	)
	if err != nil {
		s.logger.Debug("event stream ended", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	after, resume, err := cursor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: handles control frames and notices when the peer leaves.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = s.follow(ctx,
		after, resume,
		func(e logfeed.Entry) error {
			payload, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteMessage(websocket.TextMessage, payload)
		},
		func() error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteMessage(websocket.PingMessage, nil)
		},
	)
	if err != nil {
		s.logger.Debug("websocket stream ended", zap.Error(err))
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
