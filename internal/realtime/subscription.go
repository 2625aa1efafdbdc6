package realtime

import (
	"sync"
	"sync/atomic"
)

// Subscription is a cancellable handle on one change-feed channel. Close is
// synchronous: once it returns, the handler will not run again. A stale
// frame arriving after Close is dropped by the cancelled flag.
type Subscription struct {
	topic   string
	handler func(Event)

	cancelled atomic.Bool
	closeOnce sync.Once
	manager   *Manager
}

// Topic returns the channel key this subscription is bound to.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close unsubscribes the channel and stops handler delivery.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancelled.Store(true)
		if s.manager != nil {
			s.manager.remove(s)
		}
	})
	return nil
}

// deliver runs the handler unless the subscription has been closed.
func (s *Subscription) deliver(ev Event) {
	if s.cancelled.Load() {
		return
	}
	s.handler(ev)
}
