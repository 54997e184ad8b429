package daemon

import (
	"slices"
	"sync"
)

// hub retains the most recent events and fans new ones out to stream
// subscribers. A slow subscriber misses events rather than blocking
// the poller.
type hub struct {
	mu     sync.RWMutex
	limit  int
	lastID int64
	ring   []Event
	subs   map[chan Event]struct{}
}

func newHub(limit int) *hub {
	return &hub{limit: limit, subs: make(map[chan Event]struct{})}
}

// publish stamps ev with the next ID, retains it and delivers it.
func (h *hub) publish(ev Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev.ID = h.lastID
	h.ring = append(h.ring, ev)
	if over := len(h.ring) - h.limit; over > 0 {
		h.ring = slices.Delete(h.ring, 0, over)
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// since returns retained events with an ID above after, oldest first,
// capped to the newest n when n > 0.
func (h *hub) since(after int64, n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i, _ := slices.BinarySearchFunc(h.ring, after+1, func(ev Event, id int64) int {
		switch {
		case ev.ID < id:
			return -1
		case ev.ID > id:
			return 1
		}
		return 0
	})
	out := h.ring[i:]
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return slices.Clone(out)
}

func (h *hub) subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *hub) counts() (events, subscribers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ring), len(h.subs)
}
