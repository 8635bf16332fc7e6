package services

import (
	"sync"
)

const subscriberBuffer = 16

type subscriber struct {
	tournamentID string
	ch           chan ChangeEvent
}

// SeatHub fans committed changes out to live subscribers. Delivery is at
// most once: a subscriber whose buffer is full misses the event and is
// expected to refresh.
type SeatHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	closed bool
}

func NewSeatHub() *SeatHub {
	return &SeatHub{subs: make(map[int]*subscriber)}
}

// Subscribe registers a listener. An empty tournamentID receives every
// change. The returned cancel func is safe to call more than once.
func (h *SeatHub) Subscribe(tournamentID string) (<-chan ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ChangeEvent, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{tournamentID: tournamentID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Publish delivers ev to every matching subscriber without blocking.
func (h *SeatHub) Publish(ev ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tid := ev.TournamentID()
	for _, sub := range h.subs {
		if sub.tournamentID != "" && sub.tournamentID != tid {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *SeatHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *SeatHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
