// Package realtime is the broadcast hub and the websocket endpoint that
// feeds it.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/clock"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/metrics"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/protocol"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
)

// ErrHubClosed is returned by Connect after Close
var ErrHubClosed = errors.New("hub is closed")

// MarkerHandler persists an inbound marker event. A non-nil error stops the
// event from being relayed.
type MarkerHandler func(ctx context.Context, ev protocol.MarkerEvent, identity *auth.Identity) error

// Config tunes per-connection limits
type Config struct {
	SendBuffer     int
	MaxMessageSize int64
	// MessagesPerSecond limits inbound frames per connection; 0 disables
	MessagesPerSecond float64
	Burst             int
	// HandlerTimeout bounds persistence of one inbound event
	HandlerTimeout time.Duration
}

// DefaultConfig returns the default connection limits
func DefaultConfig() Config {
	return Config{
		SendBuffer:        256,
		MaxMessageSize:    64 * 1024,
		MessagesPerSecond: 20,
		Burst:             40,
		HandlerTimeout:    5 * time.Second,
	}
}

// Hub tracks live connections and fans marker events out to them.
// Delivery is best effort: a connection whose queue is full misses the
// message and nothing is retried.
type Hub struct {
	cfg     Config
	conns   *connSet
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger

	nextID  atomic.Uint64
	running atomic.Bool
	closed  atomic.Bool

	handlerMu sync.RWMutex
	onMarker  MarkerHandler
}

// NewHub creates an empty hub
func NewHub(cfg Config, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Hub {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = def.HandlerTimeout
	}
	return &Hub{
		cfg:     cfg,
		conns:   newConnSet(),
		clock:   clk,
		metrics: m,
		logger:  logger.With(slog.String("component", "hub")),
	}
}

// SetMarkerHandler registers the persistence step for inbound marker events
func (h *Hub) SetMarkerHandler(fn MarkerHandler) {
	h.handlerMu.Lock()
	h.onMarker = fn
	h.handlerMu.Unlock()
}

func (h *Hub) markerHandler() MarkerHandler {
	h.handlerMu.RLock()
	defer h.handlerMu.RUnlock()
	return h.onMarker
}

// NewClient wraps a socket in an Open client. conn may be nil in tests.
func (h *Hub) NewClient(conn *websocket.Conn, identity *auth.Identity, remoteAddr string) *Client {
	c := &Client{
		id:          h.nextID.Add(1),
		hub:         h,
		conn:        conn,
		identity:    identity,
		remoteAddr:  remoteAddr,
		connectedAt: h.clock.Now(),
		send:        make(chan []byte, h.cfg.SendBuffer),
	}
	if h.cfg.MessagesPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), max(h.cfg.Burst, 1))
	}
	c.state.Store(int32(StateOpen))
	return c
}

// Connect adds c to the live set and queues the welcome frame carrying the
// live connection count
func (h *Hub) Connect(c *Client) error {
	if h.closed.Load() {
		return ErrHubClosed
	}

	total := h.conns.add(c)
	h.metrics.ConnectionOpened()

	// Close may have snapshotted the set before c was added
	if h.closed.Load() {
		h.Disconnect(c)
		return ErrHubClosed
	}

	attrs := []any{
		slog.Uint64("conn_id", c.id),
		slog.String("remote_addr", c.remoteAddr),
		slog.Int("total_clients", total),
	}
	if c.identity != nil {
		attrs = append(attrs, slog.String("username", c.identity.Username))
	}
	h.logger.Info("client connected", attrs...)

	welcome, err := protocol.EncodeWelcome(total)
	if err != nil {
		return err
	}
	if !c.enqueue(welcome) {
		h.logger.Warn("welcome dropped", slog.Uint64("conn_id", c.id))
	}
	return nil
}

// Disconnect handles an orderly close from either side
func (h *Hub) Disconnect(c *Client) {
	c.transition(StateOpen, StateClosing)
	h.cleanup(c, nil)
}

// Fail handles a transport error on the connection
func (h *Hub) Fail(c *Client, err error) {
	c.transition(StateOpen, StateErrored)
	h.cleanup(c, err)
}

// cleanup is the single exit path from the live set. Whichever of
// Disconnect or Fail reaches it first performs it; later calls are no-ops.
func (h *Hub) cleanup(c *Client, cause error) {
	from := c.State()
	if !c.finish() {
		return
	}

	_, total := h.conns.remove(c)
	c.closeSend()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	h.metrics.ConnectionClosed()

	attrs := []any{
		slog.Uint64("conn_id", c.id),
		slog.String("via", from.String()),
		slog.Duration("connection_duration", h.clock.Now().Sub(c.connectedAt)),
		slog.Int("total_clients", total),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
		h.logger.Warn("client dropped", attrs...)
		return
	}
	h.logger.Info("client disconnected", attrs...)
}

// HandleInbound processes one frame from c. Malformed frames are logged and
// dropped without closing the connection. Marker events are persisted
// through the marker handler and, only if that succeeds, relayed verbatim
// to every other connection.
func (h *Hub) HandleInbound(ctx context.Context, c *Client, raw []byte) {
	log := h.logger.With(slog.Uint64("conn_id", c.id))

	if c.limiter != nil && !c.limiter.Allow() {
		h.metrics.Inbound(metrics.InboundRateLimited)
		log.Warn("inbound message rate limited")
		return
	}

	env, err := protocol.Decode(raw)
	if err != nil {
		h.metrics.Inbound(metrics.InboundMalformed)
		log.Warn("malformed message dropped", slog.String("error", err.Error()))
		return
	}
	if !env.IsMarker() {
		h.metrics.Inbound(metrics.InboundIgnored)
		log.Debug("non-marker message ignored", slog.String("type", env.Type))
		return
	}

	ev, err := env.MarkerEvent()
	if err != nil {
		h.metrics.Inbound(metrics.InboundMalformed)
		log.Warn("malformed message dropped", slog.String("error", err.Error()))
		return
	}

	if handle := h.markerHandler(); handle != nil {
		hctx, cancel := context.WithTimeout(ctx, h.cfg.HandlerTimeout)
		err := handle(hctx, ev, c.identity)
		cancel()
		if err != nil {
			h.metrics.Inbound(metrics.InboundRejected)
			log.Warn("marker event not relayed",
				slog.String("action", string(ev.Action)),
				slog.String("marker_id", ev.ID),
				slog.String("error", err.Error()))
			return
		}
	}

	sent := h.BroadcastExcept(c, raw)
	h.metrics.Inbound(metrics.InboundRelayed)
	log.Debug("marker event relayed",
		slog.String("action", string(ev.Action)),
		slog.String("marker_id", ev.ID),
		slog.Int("recipients", sent))
}

// BroadcastExcept queues msg on every live connection other than origin
// (nil means everyone) and returns how many accepted it
func (h *Hub) BroadcastExcept(origin *Client, msg []byte) int {
	sent, dropped := 0, 0
	h.conns.forEachExcept(origin, func(c *Client) {
		if c.enqueue(msg) {
			sent++
			return
		}
		dropped++
		h.logger.Warn("message dropped - client buffer full", slog.Uint64("conn_id", c.id))
	})

	h.metrics.Deliveries(metrics.DeliverySent, sent)
	h.metrics.Deliveries(metrics.DeliveryDropped, dropped)
	if dropped > 0 {
		h.logger.Warn("broadcast partial failure", slog.Int("sent", sent), slog.Int("dropped", dropped))
	}
	return sent
}

// Publish announces a persisted mutation to every live connection
func (h *Hub) Publish(action protocol.Action, data any) error {
	msg, err := protocol.EncodeBroadcast(action, data, h.clock.Now())
	if err != nil {
		return err
	}
	h.BroadcastExcept(nil, msg)
	return nil
}

// ClientCount returns the number of live connections
func (h *Hub) ClientCount() int {
	return h.conns.len()
}

// SetRunning records whether the listening endpoint is accepting
func (h *Hub) SetRunning(running bool) {
	h.running.Store(running)
}

// IsRunning reports whether the listening endpoint is accepting
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Close refuses new connections and closes every live one
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	clients := h.conns.snapshot()
	for _, c := range clients {
		h.Disconnect(c)
	}
	h.logger.Info("hub closed", slog.Int("disconnected_clients", len(clients)))
}
