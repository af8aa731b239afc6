package notify

import (
	"context"
	"sync"

	"estore/internal/event"
	"estore/internal/logger"

	"go.uber.org/zap"
)

// 接続中の全クライアントへ配る。クライアントごとの絞り込みはしない
type Hub struct {
	mu      sync.RWMutex
	clients map[chan event.Event]struct{}
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		clients: make(map[chan event.Event]struct{}),
		buffer:  buffer,
	}
}

func (h *Hub) Name() string { return "hub" }

// 遅いクライアントの分は捨てる
func (h *Hub) Handle(_ context.Context, e event.Event) error {
	h.Broadcast(e)
	return nil
}

func (h *Hub) Broadcast(e event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			logger.Warn("sse client too slow, event dropped",
				zap.String("event_id", e.ID),
				zap.String("topic", e.Topic))
		}
	}
}

// 受信用チャネルと解除関数を返す
func (h *Hub) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event, h.buffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
