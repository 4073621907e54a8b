package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
)

// SessionVerifier resolves a session token to an identity
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.Identity, error)
}

// HandlerConfig controls who may open a real-time connection
type HandlerConfig struct {
	// RequireSession rejects upgrades without a valid session token
	RequireSession bool
	// AllowedOrigins restricts browser origins; empty allows any
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to websocket connections on the hub
type Handler struct {
	hub      *Hub
	sessions SessionVerifier
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// base outlives individual requests; cancelled on Shutdown
	base   context.Context
	cancel context.CancelFunc
}

// NewHandler creates the endpoint handler. sessions may be nil when
// RequireSession is false.
func NewHandler(hub *Hub, sessions SessionVerifier, cfg HandlerConfig, logger *slog.Logger) *Handler {
	base, cancel := context.WithCancel(context.Background())
	h := &Handler{
		hub:      hub,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "realtime")),
		base:     base,
		cancel:   cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	// desktop and mobile clients send no Origin
	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

func (h *Handler) authenticate(r *http.Request) (*auth.Identity, bool) {
	token := auth.TokenFromRequest(r, true)
	if token == "" || h.sessions == nil {
		return nil, !h.cfg.RequireSession
	}
	identity, err := h.sessions.VerifySession(r.Context(), token)
	if err != nil {
		h.logger.Debug("real-time session rejected", slog.String("error", err.Error()))
		return nil, !h.cfg.RequireSession
	}
	return identity, true
}

// ServeHTTP upgrades the request and blocks until the connection ends
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(r)
	if !ok {
		http.Error(w, auth.ErrInvalidSession.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := h.hub.NewClient(conn, identity, r.RemoteAddr)
	if err := h.hub.Connect(c); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		_ = conn.Close()
		return
	}
	c.run(h.base)
}

// Shutdown cancels in-flight inbound handling and closes the hub
func (h *Handler) Shutdown() {
	h.cancel()
	h.hub.Close()
}
