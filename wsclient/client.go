// Package wsclient is a meeting socket client with automatic reconnection.
// It is the counterpart of the server's /ws/meeting endpoint, intended for
// bots, tooling, and tests.
package wsclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/videomeet/modules/relay"
)

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means no connection exists and none is pending.
	StateDisconnected State = iota
	// StateConnecting means a dial or a scheduled retry is in flight.
	StateConnecting
	// StateConnected means the socket is up.
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second
	defaultHeartbeat     = time.Minute
)

var (
	// ErrClosed is returned after Disconnect has been called.
	ErrClosed = errors.New("client is closed")
	// ErrGaveUp marks a client whose retry budget is spent. Observe it by
	// watching OnStateChange for a final StateDisconnected.
	ErrGaveUp = errors.New("reconnect attempts exhausted")
)

// Handlers are the per-kind message callbacks. Registering a handler for a
// kind replaces any previous one.
type Handlers struct {
	onChat         func(relay.Envelope)
	onPresence     func(relay.Envelope)
	onSystem       func(relay.Envelope)
	onForceOffline func(relay.Envelope)
}

// Client maintains a meeting socket connection, redialing with capped
// exponential backoff when it drops. All methods are safe for concurrent use.
type Client struct {
	url       string
	dialer    *websocket.Dialer
	heartbeat time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	attempts int
	timer    *time.Timer
	closed   bool
	gen      int
	lastErr  error

	handlers      Handlers
	onStateChange func(State)
}

// New creates a client for the given server URL and access token. serverURL
// is the ws:// or wss:// endpoint without the token, for example
// "ws://localhost:3000/ws/meeting".
func New(serverURL, token string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return &Client{
		url:       u.String(),
		dialer:    websocket.DefaultDialer,
		heartbeat: defaultHeartbeat,
		logger:    slog.Default(),
		state:     StateDisconnected,
	}, nil
}

// OnChat registers the chat message handler.
func (c *Client) OnChat(fn func(relay.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers.onChat = fn
}

// OnPresence registers the presence event handler.
func (c *Client) OnPresence(fn func(relay.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers.onPresence = fn
}

// OnSystem registers the system notice handler.
func (c *Client) OnSystem(fn func(relay.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers.onSystem = fn
}

// OnForceOffline registers the forced-disconnect handler. After this fires
// the client will not reconnect.
func (c *Client) OnForceOffline(fn func(relay.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers.onForceOffline = fn
}

// OnStateChange registers a callback invoked on every state transition.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns ErrGaveUp once the retry budget is spent, otherwise nil.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Connect dials the server. On failure the retry schedule starts in the
// background and the dial error is returned.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	return c.dial()
}

// Disconnect closes the connection and stops any pending reconnect. The
// client cannot be reused afterwards; handlers are dropped.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.handlers = Handlers{}
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// dial performs one connection attempt.
func (c *Client) dial() error {
	conn, _, err := c.dialer.Dial(c.url, nil)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		c.mu.Unlock()
		c.scheduleReconnect()
		return fmt.Errorf("dial failed: %w", err)
	}

	c.conn = conn
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	go c.readLoop(conn, gen)
	go c.heartbeatLoop(conn, gen)
	return nil
}

// scheduleReconnect arms the next retry, or gives up once the budget is
// spent. The attempt counter only resets on a successful dial.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.attempts++
	if c.attempts > maxReconnectAttempts {
		c.logger.Warn("Giving up on reconnect", "attempts", maxReconnectAttempts)
		c.lastErr = ErrGaveUp
		c.setStateLocked(StateDisconnected)
		return
	}

	delay := reconnectDelay(c.attempts)
	c.logger.Info("Scheduling reconnect", "attempt", c.attempts, "delay", delay)
	c.setStateLocked(StateConnecting)
	c.timer = time.AfterFunc(delay, func() {
		if err := c.dial(); err != nil && !errors.Is(err, ErrClosed) {
			c.logger.Warn("Reconnect attempt failed", "error", err)
		}
	})
}

// readLoop consumes frames until the connection breaks, then kicks off the
// retry schedule. gen guards against a stale loop acting on a newer
// connection's state.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.closed || c.gen != gen
			c.conn = nil
			c.mu.Unlock()
			conn.Close()
			if !stale {
				c.scheduleReconnect()
			}
			return
		}
		c.dispatch(data)
	}
}

// heartbeatLoop keeps the server-side presence record fresh.
func (c *Client) heartbeatLoop(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		stale := c.closed || c.gen != gen || c.conn != conn
		c.mu.Unlock()
		if stale {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
			return
		}
	}
}

// dispatch decodes an envelope and routes it to the handler for its kind.
// Unknown kinds are dropped with a log line, never a crash.
func (c *Client) dispatch(data []byte) {
	var env relay.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("Dropping malformed frame", "error", err)
		return
	}
	if err := env.Validate(); err != nil {
		c.logger.Warn("Dropping frame with unknown kind", "kind", env.Type)
		return
	}

	c.mu.Lock()
	handlers := c.handlers
	c.mu.Unlock()

	switch env.Type {
	case relay.KindChat:
		if handlers.onChat != nil {
			handlers.onChat(env)
		}
	case relay.KindPresence:
		if handlers.onPresence != nil {
			handlers.onPresence(env)
		}
	case relay.KindSystem:
		if handlers.onSystem != nil {
			handlers.onSystem(env)
		}
	case relay.KindForceOffline:
		if handlers.onForceOffline != nil {
			handlers.onForceOffline(env)
		}
		// A forced disconnect is final; do not fight the server.
		c.Disconnect()
	}
}

// setStateLocked updates the state and fires the callback. Callers hold mu.
func (c *Client) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.state = next
	if c.onStateChange != nil {
		// Run outside the lock to let the callback query the client.
		fn := c.onStateChange
		go fn(next)
	}
}

// reconnectDelay returns the backoff for the given attempt: 1s doubling to
// a 30s cap, with 50% jitter either way so a thundering herd spreads out.
func reconnectDelay(attempt int) time.Duration {
	delay := baseReconnectDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxReconnectDelay {
			delay = maxReconnectDelay
			break
		}
	}
	jitter := 0.5 + rand.Float64()
	d := time.Duration(float64(delay) * jitter)
	if d > maxReconnectDelay {
		d = maxReconnectDelay
	}
	return d
}
