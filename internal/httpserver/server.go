package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/weblink/signaling/internal/config"
	"github.com/weblink/signaling/internal/metrics"
	"github.com/weblink/signaling/internal/signaling"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "weblink-signaling"

type BuildInfo struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Server is the stateless HTTP entry point. It routes diagnostic traffic,
// the peers API, and the WebSocket upgrade endpoints; all session state
// stays with the room registry.
type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	build    BuildInfo
	registry *signaling.Registry

	router chi.Router
	srv    *http.Server
}

func New(cfg config.Config, logger zerolog.Logger, registry *signaling.Registry, ws *signaling.Server, m *metrics.Metrics, build BuildInfo) *Server {
	s := &Server{
		cfg:      cfg,
		log:      logger,
		build:    build,
		registry: registry,
		router:   chi.NewRouter(),
	}

	r := s.router
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	// Preflight and health are resolved before any other routing.
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, s.build)
	})
	r.Method(http.MethodGet, "/metrics", metrics.PrometheusHandler(m))

	r.Method(http.MethodGet, "/ws", ws)
	r.Method(http.MethodGet, "/webrtc/ws", ws)

	r.Get("/api/v1/webrtc/peers", s.handlePeers)
	r.Get("/api/v1/webrtc/ice", s.handleICE)

	// Wrong methods on known paths are integration errors too and surface
	// the same way as unknown paths.
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Serve(l net.Listener) error {
	s.log.Info().Str("addr", l.Addr().String()).Msg("http server serving")
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"status":  "ok",
		"ts":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = signaling.DefaultRoomName
	}
	peers := s.registry.Peers(room)
	WriteJSON(w, http.StatusOK, map[string]any{
		"room":  room,
		"peers": peers,
		"count": len(peers),
	})
}

func (s *Server) handleICE(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.ICEConfigError(); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"iceServers": s.cfg.ICEServers})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"error": "no route for " + r.Method + " " + r.URL.Path,
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http_request")
		})
	}
}

func recoverer(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().
						Interface("recover", rec).
						Str("stack", string(debug.Stack())).
						Msg("panic in http handler")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteJSON writes a JSON response body and sets the Content-Type header.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
