package signaling

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Time allowed to write one frame or control message to the socket.
const writeWait = 10 * time.Second

// Peer is one live socket registered in a room under a client-supplied id.
// Ids are not required to be unique within a room; the connection id
// disambiguates duplicates in logs.
type Peer struct {
	id     string
	connID string
	conn   *websocket.Conn
	room   *Room
	log    zerolog.Logger

	// send is written to and closed by the room goroutine only.
	send chan []byte

	closed atomic.Bool
}

func newPeer(id string, conn *websocket.Conn, room *Room) *Peer {
	connID := uuid.NewString()
	return &Peer{
		id:     id,
		connID: connID,
		conn:   conn,
		room:   room,
		log:    room.log.With().Str("peer", id).Str("conn_id", connID).Logger(),
		send:   make(chan []byte, room.cfg.WSSendQueue),
	}
}

// enqueue hands a frame to the write pump without blocking the room. A full
// queue drops the frame; sends are fire-and-forget.
func (p *Peer) enqueue(frame []byte) {
	select {
	case p.send <- frame:
	default:
		p.log.Warn().Msg("send queue full, dropping frame")
	}
}

// readPump pumps frames from the socket into the room's mailbox. It is the
// sole reader of the connection and the sole origin of the peer's leave
// event.
func (p *Peer) readPump() {
	defer func() {
		p.closed.Store(true)
		p.room.leave(p)
		p.conn.Close()
	}()

	idle := p.room.cfg.WSIdleTimeout
	if idle > 0 {
		_ = p.conn.SetReadDeadline(time.Now().Add(idle))
		p.conn.SetPongHandler(func(string) error {
			return p.conn.SetReadDeadline(time.Now().Add(idle))
		})
	}

	for {
		msgType, payload, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				p.log.Warn().Err(err).Msg("connection error")
			}
			return
		}
		if idle > 0 {
			_ = p.conn.SetReadDeadline(time.Now().Add(idle))
		}
		if msgType != websocket.TextMessage {
			// Binary frames are not part of the protocol.
			continue
		}
		p.room.frame(p, payload)
	}
}

// writePump is the sole writer of the connection. It drains the send queue
// and keeps the transport alive with periodic pings.
func (p *Peer) writePump() {
	ticker := time.NewTicker(p.room.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The room dropped this peer.
				_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
