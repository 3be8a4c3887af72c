package authstate

import (
	"context"
	"sync"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/auth"
	"github.com/multimart/multimart/backend/go-services/internal/identity"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
	"github.com/multimart/multimart/backend/go-services/pkg/metrics"
)

// GatewayFactory returns the gateway bound to a client id.
type GatewayFactory func(clientID string) identity.Gateway

type entry struct {
	store    *Store
	lastUsed time.Time
	// pins counts open Acquire handles; a pinned store is never evicted.
	pins int
}

// Manager owns one Store per browser client, created on first use.
type Manager struct {
	gateways GatewayFactory
	policy   auth.DomainPolicy

	mu      sync.Mutex
	stores  map[string]*entry
	now     func() time.Time
	onEvict func(clientID string)
	max     int
}

// NewManager returns an empty manager. Call Run to sweep idle stores.
func NewManager(gateways GatewayFactory, policy auth.DomainPolicy) *Manager {
	return &Manager{
		gateways: gateways,
		policy:   policy,
		stores:   map[string]*entry{},
		now:      time.Now,
	}
}

// OnEvict registers fn to be called with the client id of every store
// removed by Sweep or Close.
func (m *Manager) OnEvict(fn func(clientID string)) {
	m.mu.Lock()
	m.onEvict = fn
	m.mu.Unlock()
}

// SetMaxStores caps the number of live stores. When a new client arrives at
// the cap, the least recently used unpinned store is evicted. Zero means no cap.
func (m *Manager) SetMaxStores(n int) {
	m.mu.Lock()
	m.max = n
	m.mu.Unlock()
}

// Get returns the client's store, starting it in the background when it is
// new. A new store reports IsLoading until its resume completes.
func (m *Manager) Get(clientID string) *Store {
	st, _ := m.get(clientID, false)
	return st
}

// Acquire is Get for long-lived readers: the store is kept alive until the
// returned release func is called.
func (m *Manager) Acquire(clientID string) (*Store, func()) {
	st, e := m.get(clientID, true)
	var once sync.Once
	return st, func() {
		once.Do(func() {
			m.mu.Lock()
			e.pins--
			e.lastUsed = m.now()
			m.mu.Unlock()
		})
	}
}

func (m *Manager) get(clientID string, pin bool) (*Store, *entry) {
	m.mu.Lock()
	if e, ok := m.stores[clientID]; ok {
		e.lastUsed = m.now()
		if pin {
			e.pins++
		}
		m.mu.Unlock()
		return e.store, e
	}
	stale := m.makeRoomLocked()
	st := NewStore(m.gateways(clientID), m.policy)
	e := &entry{store: st, lastUsed: m.now()}
	if pin {
		e.pins++
	}
	m.stores[clientID] = e
	metrics.ActiveStores.Set(float64(len(m.stores)))
	hook := m.onEvict
	m.mu.Unlock()

	m.evict(stale, hook)
	go func() {
		if err := st.Start(context.Background()); err != nil {
			logger.Warnf("authstate: start store for client %s: %v", clientID, err)
		}
	}()
	return st, e
}

// makeRoomLocked removes the least recently used unpinned store when the
// manager is full. Caller holds m.mu.
func (m *Manager) makeRoomLocked() map[string]*Store {
	if m.max <= 0 || len(m.stores) < m.max {
		return nil
	}
	var (
		oldestID string
		oldest   *entry
	)
	for id, e := range m.stores {
		if e.pins > 0 {
			continue
		}
		if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(m.stores, oldestID)
	return map[string]*Store{oldestID: oldest.store}
}

// Len returns the number of live stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Sweep closes stores unused for longer than idle and returns how many
// were removed.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	stale := map[string]*Store{}
	m.mu.Lock()
	for id, e := range m.stores {
		if e.pins == 0 && e.lastUsed.Before(cutoff) {
			stale[id] = e.store
			delete(m.stores, id)
		}
	}
	metrics.ActiveStores.Set(float64(len(m.stores)))
	hook := m.onEvict
	m.mu.Unlock()

	m.evict(stale, hook)
	return len(stale)
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(idle); n > 0 {
				logger.Debugf("authstate: evicted %d idle stores", n)
			}
		}
	}
}

// Close closes every store.
func (m *Manager) Close() {
	stale := map[string]*Store{}
	m.mu.Lock()
	for id, e := range m.stores {
		stale[id] = e.store
	}
	m.stores = map[string]*entry{}
	metrics.ActiveStores.Set(0)
	hook := m.onEvict
	m.mu.Unlock()
	m.evict(stale, hook)
}

func (m *Manager) evict(stale map[string]*Store, hook func(string)) {
	for id, st := range stale {
		st.Close()
		if hook != nil {
			hook(id)
		}
	}
}
