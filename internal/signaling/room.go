package signaling

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weblink/signaling/internal/config"
	"github.com/weblink/signaling/internal/metrics"
)

// Room owns the membership and message routing of one named room.
//
// All state lives on a single goroutine that drains the ops mailbox in FIFO
// order, so joins, inbound frames, and departures are serialized without
// locks. Membership is held only as the slice of live peers; there is no
// separate ledger to drift out of sync with the open sockets.
type Room struct {
	name    string
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	ops      chan roomOp
	quit     chan struct{}
	stopOnce sync.Once

	// members is touched only from the run goroutine. Insertion order is
	// preserved; duplicate peer ids coexist and signal routing picks the
	// first open match.
	members []*Peer
}

type opKind int

const (
	opJoin opKind = iota
	opFrame
	opLeave
	opPeers
)

type roomOp struct {
	kind  opKind
	peer  *Peer
	frame []byte
	reply chan []string
}

func newRoom(name string, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *Room {
	return &Room{
		name:    name,
		cfg:     cfg,
		log:     log.With().Str("room", name).Logger(),
		metrics: m,
		ops:     make(chan roomOp, 16),
		quit:    make(chan struct{}),
	}
}

func (r *Room) run() {
	for {
		select {
		case <-r.quit:
			for _, p := range r.members {
				close(p.send)
			}
			r.members = nil
			return
		case op := <-r.ops:
			switch op.kind {
			case opJoin:
				r.handleJoin(op.peer)
			case opFrame:
				r.handleFrame(op.peer, op.frame)
			case opLeave:
				r.handleLeave(op.peer)
			case opPeers:
				op.reply <- r.peerIDs()
			}
		}
	}
}

// Accept registers an upgraded connection under peerID and starts its pumps.
// Duplicate peer ids are not rejected; both connections coexist.
func (r *Room) Accept(peerID string, conn *websocket.Conn) {
	p := newPeer(peerID, conn, r)
	select {
	case r.ops <- roomOp{kind: opJoin, peer: p}:
	case <-r.quit:
		_ = conn.Close()
		return
	}
	go p.writePump()
	go p.readPump()
}

// Peers returns a snapshot of the registered peer ids. A room that has never
// seen a connection reports an empty list.
func (r *Room) Peers() []string {
	reply := make(chan []string, 1)
	select {
	case r.ops <- roomOp{kind: opPeers, reply: reply}:
	case <-r.quit:
		return []string{}
	}
	select {
	case peers := <-reply:
		return peers
	case <-r.quit:
		return []string{}
	}
}

func (r *Room) frame(sender *Peer, payload []byte) {
	select {
	case r.ops <- roomOp{kind: opFrame, peer: sender, frame: payload}:
	case <-r.quit:
	}
}

func (r *Room) leave(p *Peer) {
	select {
	case r.ops <- roomOp{kind: opLeave, peer: p}:
	case <-r.quit:
	}
}

func (r *Room) stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

func (r *Room) handleJoin(p *Peer) {
	// The welcome snapshot is taken before insertion so it never includes
	// the joining peer, and the join broadcast happens after insertion.
	// Both run inside this one mailbox event, so a concurrent join cannot
	// observe a half-applied membership change.
	p.enqueue(welcomeFrame(r.peerIDs()))
	r.members = append(r.members, p)
	r.broadcast(peerJoinedFrame(p.id), p)
	r.metrics.Inc(metrics.EventConnectionsOpened)
	p.log.Info().Int("members", len(r.members)).Msg("peer joined")
}

func (r *Room) handleFrame(sender *Peer, payload []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		// Tolerated: closing on malformed input would punish minor client
		// bugs with reconnect churn.
		r.metrics.Inc(metrics.EventFramesMalformed)
		sender.log.Debug().Msg("discarding malformed frame")
		return
	}
	if env.Type != typeSignal {
		// Client keepalives and unknown types get no acknowledgment.
		return
	}

	target := r.findPeer(env.To)
	if target == nil {
		// Routing miss. Races with a departing peer are expected; no NACK.
		r.metrics.Inc(metrics.EventSignalsDropped)
		return
	}

	// from is always the sender's registered id; client-supplied identity
	// fields never reach the target.
	target.enqueue(signalFrame(sender.id, env.Data))
	r.metrics.Inc(metrics.EventSignalsRelayed)
}

func (r *Room) handleLeave(p *Peer) {
	removed := false
	for i, member := range r.members {
		if member == p {
			r.members = append(r.members[:i], r.members[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return
	}

	close(p.send)
	r.broadcast(peerLeftFrame(p.id), nil)
	r.metrics.Inc(metrics.EventConnectionsClosed)
	p.log.Info().Int("members", len(r.members)).Msg("peer left")
}

func (r *Room) findPeer(id string) *Peer {
	for _, member := range r.members {
		if member.id == id && !member.closed.Load() {
			return member
		}
	}
	return nil
}

func (r *Room) broadcast(frame []byte, except *Peer) {
	for _, member := range r.members {
		if member == except {
			continue
		}
		member.enqueue(frame)
	}
}

func (r *Room) peerIDs() []string {
	ids := make([]string, 0, len(r.members))
	for _, member := range r.members {
		ids = append(ids, member.id)
	}
	return ids
}
