package events

import (
	"context"
	"sync"
)

// MemoryBus delivers events inside the process.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string]map[*subscription]struct{}{}}
}

func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[ev.ClientID] {
		s.push(ev)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, clientID string, fn func(Event)) (func(), error) {
	s := newSubscription(fn)
	b.mu.Lock()
	if b.subs[clientID] == nil {
		b.subs[clientID] = map[*subscription]struct{}{}
	}
	b.subs[clientID][s] = struct{}{}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[clientID], s)
		if len(b.subs[clientID]) == 0 {
			delete(b.subs, clientID)
		}
		b.mu.Unlock()
		s.stop()
	}, nil
}

// Subscribers returns the number of live subscriptions for clientID.
func (b *MemoryBus) Subscribers(clientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[clientID])
}

// subscription is an unbounded FIFO drained by one goroutine, so a slow
// handler never blocks Publish.
type subscription struct {
	fn      func(Event)
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	quit    chan struct{}
	once    sync.Once
}

func newSubscription(fn func(Event)) *subscription {
	s := &subscription{fn: fn, wake: make(chan struct{}, 1), quit: make(chan struct{})}
	go s.run()
	return s
}

func (s *subscription) push(ev Event) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, ev := range batch {
				select {
				case <-s.quit:
					return
				default:
				}
				s.fn(ev)
			}
		}
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.quit) })
}
