package relay

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the write surface of an upgraded connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Channel is one live duplex connection belonging to exactly one user. The
// write mutex serializes writes: fan-out for different rooms may hit the
// same channel from concurrent sends.
type Channel struct {
	userID uint
	conn   Conn

	mu     sync.Mutex
	closed bool
}

// NewChannel wraps an upgraded connection for a user.
func NewChannel(userID uint, conn Conn) *Channel {
	return &Channel{userID: userID, conn: conn}
}

// UserID returns the owning user.
func (c *Channel) UserID() uint {
	return c.userID
}

// Send writes a text frame. It fails once the channel has been closed.
func (c *Channel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Registry tracks which users currently have live channels. It is the
// process-wide connection table: rebuilt empty on restart, clients
// re-register on reconnect. A user may hold several channels at once
// (multiple tabs); the registry never enforces uniqueness.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Channel]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uint]map[*Channel]struct{}),
	}
}

// Register associates a channel with its user. Registering the same channel
// twice is a no-op, never an error.
func (r *Registry) Register(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byUser[ch.userID]
	if set == nil {
		set = make(map[*Channel]struct{})
		r.byUser[ch.userID] = set
	}
	set[ch] = struct{}{}
}

// Unregister removes a channel. Idempotent: unregistering an unknown or
// already-removed channel does nothing. When the last channel of a user
// goes, the user is offline for delivery purposes.
func (r *Registry) Unregister(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[ch.userID]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.byUser, ch.userID)
	}
}

// ChannelsFor returns the open channels of a user. An offline user yields an
// empty slice, not an error.
func (r *Registry) ChannelsFor(userID uint) []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	channels := make([]*Channel, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	return channels
}

// IsOnline reports whether a user has at least one open channel.
func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns the IDs of users with at least one open channel.
func (r *Registry) OnlineUsers() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount returns the total number of open channels.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.byUser {
		n += len(set)
	}
	return n
}

// CloseAll closes and removes every channel. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	channels := make([]*Channel, 0)
	for _, set := range r.byUser {
		for ch := range set {
			channels = append(channels, ch)
		}
	}
	r.byUser = make(map[uint]map[*Channel]struct{})
	r.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}
}
