package app

import (
	"sync"

	"timed-quiz-service/internal/domain"
)

// EventType names a signal emitted to the view layer.
type EventType string

const (
	EventAttemptStarted     EventType = "attemptStarted"
	EventOptionLocked       EventType = "optionLocked"
	EventTick               EventType = "tick"
	EventTimeWarning        EventType = "timeWarning"
	EventTimeExpired        EventType = "timeExpired"
	EventAttemptCompleted   EventType = "attemptCompleted"
	EventResultNotSaved     EventType = "resultNotSaved"
	EventLeaderboardUpdated EventType = "leaderboardUpdated"
)

// Event is one signal. Only the fields relevant to Type are set.
type Event struct {
	Type          EventType            `json:"type"`
	TimeRemaining int                  `json:"timeRemaining,omitempty"`
	Selection     *Selection           `json:"selection,omitempty"`
	Record        *domain.ResultRecord `json:"record,omitempty"`
	Leaderboard   *domain.Leaderboard  `json:"leaderboard,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Hub fans events out to subscribers without ever blocking the publisher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of future events.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber. A full subscriber loses its oldest event.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
