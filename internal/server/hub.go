package server

import (
	"sync"

	"go.uber.org/zap"

	"github.com/five82/agentlog/internal/logfeed"
)

const defaultSubscriberBuffer = 256

// Hub fans published entries out to live stream subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*subscriber]struct{}
	buffer  int
	logger  *zap.Logger
}

// subscriber receives entries on ch. gone is closed when the hub drops the
// subscriber because it fell behind; ch is never closed.
type subscriber struct {
	ch   chan logfeed.Entry
	gone chan struct{}
	once sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() { close(s.gone) })
}

// NewHub builds a hub whose subscribers buffer up to buffer entries.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		buffer:  buffer,
		logger:  logger,
	}
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{
		ch:   make(chan logfeed.Entry, h.buffer),
		gone: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("stream client connected", zap.Int("clients", n))
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.clients, sub)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("stream client disconnected", zap.Int("clients", n))
}

// Publish hands entries to every subscriber without blocking. A subscriber
// whose buffer is full is disconnected; it reconnects and resumes from its
// last seq, so it still sees every entry.
func (h *Hub) Publish(entries ...logfeed.Entry) {
	var slow []*subscriber

	h.mu.RLock()
	for sub := range h.clients {
	deliver:
		for _, e := range entries {
			select {
			case sub.ch <- e:
			default:
				slow = append(slow, sub)
				break deliver
			}
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, sub := range slow {
		delete(h.clients, sub)
		sub.drop()
	}
	h.mu.Unlock()
	h.logger.Warn("dropped slow stream clients", zap.Int("count", len(slow)))
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
