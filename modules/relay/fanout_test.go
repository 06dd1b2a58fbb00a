package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/videomeet/events"
)

// fakeConn records written frames and can be told to fail every write.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	envs := make([]Envelope, 0, len(c.frames))
	for _, frame := range c.frames {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("frame is not a valid envelope: %v", err)
		}
		envs = append(envs, env)
	}
	return envs
}

type fakeMembership struct {
	members map[string][]uint
}

func (f *fakeMembership) IsMember(_ context.Context, roomID string, userID uint) (bool, error) {
	for _, id := range f.members[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembership) MemberIDs(_ context.Context, roomID string) ([]uint, error) {
	return f.members[roomID], nil
}

func newTestModule(members map[string][]uint) *Module {
	return &Module{
		registry:   NewRegistry(),
		membership: &fakeMembership{members: members},
	}
}

func TestFanOut_DeliversToEveryChannelOfEveryMember(t *testing.T) {
	m := newTestModule(nil)

	tab1 := &fakeConn{}
	tab2 := &fakeConn{}
	other := &fakeConn{}
	m.registry.Register(NewChannel(1, tab1))
	m.registry.Register(NewChannel(1, tab2))
	m.registry.Register(NewChannel(2, other))

	// Member 3 has no open channel and must be skipped silently.
	m.fanOut(context.Background(), "room1", []uint{1, 2, 3}, &Envelope{
		Type:     KindChat,
		RoomID:   "room1",
		UserID:   1,
		Username: "alice",
		Content:  "hello",
	})

	for name, conn := range map[string]*fakeConn{"tab1": tab1, "tab2": tab2, "other": other} {
		envs := conn.envelopes(t)
		if len(envs) != 1 {
			t.Fatalf("%s received %d envelopes, want 1", name, len(envs))
		}
		if envs[0].Type != KindChat || envs[0].Content != "hello" {
			t.Errorf("%s received %+v, want chat/hello", name, envs[0])
		}
	}
}

func TestFanOut_WriteFailureEvictsOnlyThatChannel(t *testing.T) {
	m := newTestModule(nil)

	good := &fakeConn{}
	bad := &fakeConn{failWrites: true}
	peer := &fakeConn{}
	goodCh := NewChannel(1, good)
	badCh := NewChannel(1, bad)
	m.registry.Register(goodCh)
	m.registry.Register(badCh)
	m.registry.Register(NewChannel(2, peer))

	m.fanOut(context.Background(), "room1", []uint{1, 2}, &Envelope{
		Type:    KindChat,
		RoomID:  "room1",
		Content: "still delivered",
	})

	if got := len(good.envelopes(t)); got != 1 {
		t.Errorf("surviving channel received %d envelopes, want 1", got)
	}
	if got := len(peer.envelopes(t)); got != 1 {
		t.Errorf("other member received %d envelopes, want 1", got)
	}
	if !bad.closed {
		t.Error("failed channel was not closed")
	}

	remaining := m.registry.ChannelsFor(1)
	if len(remaining) != 1 || remaining[0] != goodCh {
		t.Errorf("ChannelsFor(1) = %d channels, want only the surviving one", len(remaining))
	}
}

func TestFanOut_NilAudienceResolvesCurrentMembers(t *testing.T) {
	m := newTestModule(map[string][]uint{"room1": {1}})

	conn := &fakeConn{}
	m.registry.Register(NewChannel(1, conn))

	m.fanOut(context.Background(), "room1", nil, &Envelope{
		Type:    KindChat,
		RoomID:  "room1",
		Content: "resolved",
	})

	if got := len(conn.envelopes(t)); got != 1 {
		t.Errorf("received %d envelopes, want 1", got)
	}
}

func TestHandleMessageSent_UsesEmbeddedAudience(t *testing.T) {
	// Membership says the room is empty; the event's snapshot must win.
	m := newTestModule(map[string][]uint{})

	conn := &fakeConn{}
	m.registry.Register(NewChannel(7, conn))

	err := m.handleMessageSent(context.Background(), events.MessageSentEvent{
		MessageID: 12,
		RoomID:    "room1",
		UserID:    7,
		Username:  "alice",
		Content:   "hi",
		Kind:      "text",
		MemberIDs: []uint{7},
		Timestamp: time.Now(),
	}, nil)
	if err != nil {
		t.Fatalf("handleMessageSent() error = %v", err)
	}

	envs := conn.envelopes(t)
	if len(envs) != 1 {
		t.Fatalf("received %d envelopes, want 1", len(envs))
	}
	if envs[0].Type != KindChat || envs[0].MessageID != 12 {
		t.Errorf("envelope = %+v, want chat message 12", envs[0])
	}
}

func TestHandleRoomClosed_NotifiesMembersStampedOutByClose(t *testing.T) {
	// By the time the consumer runs, the close has committed and a live
	// membership lookup comes back empty. The notice must still reach the
	// audience carried in the event.
	m := newTestModule(map[string][]uint{})

	host := &fakeConn{}
	guest := &fakeConn{}
	m.registry.Register(NewChannel(1, host))
	m.registry.Register(NewChannel(2, guest))

	err := m.handleRoomClosed(context.Background(), events.RoomClosedEvent{
		RoomID:    "room1",
		RoomName:  "standup",
		Reason:    "closed by admin",
		MemberIDs: []uint{1, 2},
		Timestamp: time.Now(),
	}, nil)
	if err != nil {
		t.Fatalf("handleRoomClosed() error = %v", err)
	}

	for name, conn := range map[string]*fakeConn{"host": host, "guest": guest} {
		envs := conn.envelopes(t)
		if len(envs) != 1 {
			t.Fatalf("%s received %d envelopes, want 1", name, len(envs))
		}
		env := envs[0]
		if env.Type != KindSystem {
			t.Errorf("%s envelope type = %q, want %q", name, env.Type, KindSystem)
		}
		if env.Content != "meeting has ended" {
			t.Errorf("%s envelope content = %q, want the closing notice", name, env.Content)
		}
		if env.Reason != "closed by admin" {
			t.Errorf("%s envelope reason = %q, want %q", name, env.Reason, "closed by admin")
		}
	}
}
