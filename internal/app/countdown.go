package app

import (
	"sync"
	"time"
)

// Scheduler delivers periodic ticks to a callback until stopped.
type Scheduler interface {
	Start(tick func())
	Stop()
}

// TickerScheduler is a Scheduler backed by time.Ticker.
// Each Start begins a fresh run; Stop is safe to call any number of times.
type TickerScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickerScheduler{interval: interval}
}

func (s *TickerScheduler) Start(tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// a stop racing with the ticker wins
				select {
				case <-stop:
					return
				default:
				}
				tick()
			}
		}
	}()
}

func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
