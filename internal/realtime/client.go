package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// State is the lifecycle position of a connection.
//
//	Open ──> Closing ──┐
//	  │                ├──> Closed
//	  └────> Errored ──┘
//
// Closed is entered exactly once, by the hub's cleanup.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Client is one live real-time connection
type Client struct {
	id          uint64
	hub         *Hub
	conn        *websocket.Conn // nil in unit tests
	identity    *auth.Identity  // nil when the channel is unauthenticated
	remoteAddr  string
	connectedAt time.Time
	limiter     *rate.Limiter

	state atomic.Int32

	sendMu     sync.Mutex
	send       chan []byte
	sendClosed bool
}

// ID returns the connection id used in logs
func (c *Client) ID() uint64 {
	return c.id
}

// State returns the current lifecycle state
func (c *Client) State() State {
	return State(c.state.Load())
}

// Identity returns the session identity attached at upgrade, if any
func (c *Client) Identity() *auth.Identity {
	return c.identity
}

func (c *Client) transition(from, to State) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// finish moves Closing or Errored to Closed. Only one caller ever wins.
func (c *Client) finish() bool {
	return c.transition(StateClosing, StateClosed) || c.transition(StateErrored, StateClosed)
}

// enqueue offers msg to the send queue without blocking. It reports false
// when the queue is full or already closed.
func (c *Client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// run pumps the socket until it closes. The read side runs on the calling
// goroutine.
func (c *Client) run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.hub.Disconnect(c)
			} else {
				c.hub.Fail(c, err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.hub.HandleInbound(ctx, c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.Fail(c, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.Fail(c, err)
				return
			}
		}
	}
}
