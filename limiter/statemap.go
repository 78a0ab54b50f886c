package limiter

import "sync"

// entry pairs a per-client state value with the mutex that guards its
// read-modify-write sequence. Grounded on the double-checked-locking
// pattern in ahmadalasiri-InterviewPrep's TokenBucket.Allow: an outer
// RWMutex protects the map's existence check, a per-entry Mutex
// protects that one client's state across the whole decide() sequence
// so a concurrent observer never sees a half-updated bucket/queue/
// counter (spec.md §5's locking discipline requirement).
type entry[S any] struct {
	mu    sync.Mutex
	state S
}

// stateMap is a lazily-populated, concurrency-safe map from client ID to
// per-client algorithm state. A missing entry is created holding the
// zero value of S, and the caller's fn initializes it at access time —
// required because TokenBucket/LeakyBucket/FixedWindow initial state
// embeds clock.Now() (spec.md §9, "Lazy per-client state").
type stateMap[S any] struct {
	mu   sync.RWMutex
	data map[string]*entry[S]
}

func newStateMap[S any]() *stateMap[S] {
	return &stateMap[S]{data: make(map[string]*entry[S])}
}

// withState runs fn against clientID's entry, holding that entry's
// mutex for the duration. If clientID has never been seen, its state is
// default-constructed via zero and fn's first call observes it; fn is
// responsible for initializing zero-value state on first use.
func (m *stateMap[S]) withState(clientID string, fn func(*S)) {
	m.mu.RLock()
	e, ok := m.data[clientID]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		e, ok = m.data[clientID]
		if !ok {
			e = &entry[S]{}
			m.data[clientID] = e
		}
		m.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// reset discards clientID's entry entirely, so the next access
// default-constructs fresh state (spec.md §3: "Reset discards and
// re-initializes the record").
func (m *stateMap[S]) reset(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, clientID)
}
