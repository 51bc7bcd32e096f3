package signaling

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weblink/signaling/internal/auth"
	"github.com/weblink/signaling/internal/config"
	"github.com/weblink/signaling/internal/origin"
)

// Query parameter defaults for the upgrade endpoints.
const (
	DefaultRoomName = "default"
	DefaultPeerID   = "anonymous"
)

// Server handles the signaling WebSocket upgrade endpoints and delegates the
// resulting connections to the room registry. It holds no session state.
type Server struct {
	cfg      config.Config
	verifier auth.Verifier
	registry *Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, registry *Registry, log zerolog.Logger) (*Server, error) {
	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		verifier: verifier,
		registry: registry,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return origin.RequestAllowed(r.Header.Get("Origin"), cfg.AllowedOrigins)
			},
		},
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUpgradeRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "websocket upgrade required"})
		return
	}

	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		roomName = DefaultRoomName
	}
	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		peerID = DefaultPeerID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error (or the origin check refused).
		s.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	if s.verifier != nil {
		cred, err := auth.CredentialFromRequest(r)
		if err != nil {
			writeClose(conn, websocket.ClosePolicyViolation, "missing credentials")
			_ = conn.Close()
			return
		}
		if err := s.verifier.Verify(cred); err != nil {
			writeClose(conn, websocket.ClosePolicyViolation, "invalid credentials")
			_ = conn.Close()
			return
		}
	}

	s.registry.Room(roomName).Accept(peerID, conn)
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}
