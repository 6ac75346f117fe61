// Package notify provides a payload-free change signal with fan-out to any
// number of subscribers.
//
// A notification tells subscribers that the collection may have changed and
// that they should re-read it. Notifications carry no data and back-to-back
// notifications coalesce: a subscriber that has not yet consumed a pending
// notification receives at most one more. Delivery is at-least-once for every
// Notify that happens after Subscribe returns.
package notify

import "sync"

// Signal is a coalescing broadcast. The zero value is ready to use.
type Signal struct {
	mu     sync.Mutex
	subs   map[uint64]chan struct{}
	nextID uint64
	closed bool
}

// Subscribe registers a new subscriber. The returned channel receives a
// value after each Notify (coalesced), and is closed by cancel or Close.
// cancel is idempotent.
func (s *Signal) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if s.subs == nil {
		s.subs = make(map[uint64]chan struct{})
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// OnNotify runs fn on its own goroutine once per (coalesced) notification,
// until cancel is called or the signal is closed. fn is never invoked
// concurrently with itself. cancel does not wait for a running fn.
func (s *Signal) OnNotify(fn func()) (cancel func()) {
	ch, cancel := s.Subscribe()
	go func() {
		for range ch {
			fn()
		}
	}()
	return cancel
}

// Notify wakes every subscriber. It never blocks and performs no I/O.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			// already pending
		}
	}
}

// Subscribers returns the number of active subscribers.
func (s *Signal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close closes every subscriber channel. Later subscriptions receive an
// already-closed channel and later notifications are dropped.
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
