package ledger

import (
	"sync"
	"time"

	"github.com/qoishaidar/uang/internal/models"
)

// hub fans change events out to subscribers. Slow subscribers drop events
// rather than block mutations.
type hub struct {
	mu     sync.Mutex
	subs   map[int]chan models.ChangeEvent
	nextID int
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan models.ChangeEvent)}
}

func (h *hub) subscribe(buffer int) (<-chan models.ChangeEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.ChangeEvent, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (h *hub) broadcast(entity, action string) {
	event := models.ChangeEvent{Entity: entity, Action: action, At: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
