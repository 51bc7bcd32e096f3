package metrics

import "sync"

// Event names counted by the relay.
const (
	EventConnectionsOpened = "connections_opened"
	EventConnectionsClosed = "connections_closed"
	EventRoomsCreated      = "rooms_created"
	EventSignalsRelayed    = "signals_relayed"
	EventSignalsDropped    = "signals_dropped_no_target"
	EventFramesMalformed   = "frames_malformed"
)

// Metrics is a minimal, concurrency-safe counter registry.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
