package signaling

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/weblink/signaling/internal/config"
	"github.com/weblink/signaling/internal/metrics"
)

// Registry resolves room names to their coordinator. Rooms are materialized
// lazily on first reference and a name always resolves to the same Room for
// the lifetime of the process.
type Registry struct {
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry(cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		cfg:     cfg,
		log:     log,
		metrics: m,
		rooms:   make(map[string]*Room),
	}
}

// Room returns the coordinator for name, creating and starting it if absent.
func (g *Registry) Room(name string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[name]; ok {
		return room
	}

	room := newRoom(name, g.cfg, g.log, g.metrics)
	g.rooms[name] = room
	go room.run()
	g.metrics.Inc(metrics.EventRoomsCreated)
	g.log.Debug().Str("room", name).Msg("room created")
	return room
}

// Peers returns the live peer ids of the named room. An unknown room is
// valid and reports an empty list.
func (g *Registry) Peers(name string) []string {
	return g.Room(name).Peers()
}

// Close stops every room and closes every registered socket.
func (g *Registry) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, room := range g.rooms {
		room.stop()
	}
}
