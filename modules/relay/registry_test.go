package relay

import (
	"sort"
	"testing"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	ch1 := NewChannel(1, nil)
	ch2 := NewChannel(1, nil)
	ch3 := NewChannel(2, nil)

	registry.Register(ch1)
	registry.Register(ch2)
	registry.Register(ch3)

	// A user may hold several channels at once.
	if got := len(registry.ChannelsFor(1)); got != 2 {
		t.Errorf("ChannelsFor(1) returned %d channels, want 2", got)
	}
	if got := len(registry.ChannelsFor(2)); got != 1 {
		t.Errorf("ChannelsFor(2) returned %d channels, want 1", got)
	}
	if registry.ConnectionCount() != 3 {
		t.Errorf("ConnectionCount() = %d, want 3", registry.ConnectionCount())
	}

	ids := registry.OnlineUsers()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("OnlineUsers() = %v, want [1 2]", ids)
	}
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	ch := NewChannel(1, nil)

	registry.Register(ch)
	registry.Register(ch)

	if got := len(registry.ChannelsFor(1)); got != 1 {
		t.Errorf("ChannelsFor(1) returned %d channels after double register, want 1", got)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	ch1 := NewChannel(1, nil)
	ch2 := NewChannel(1, nil)

	registry.Register(ch1)
	registry.Register(ch2)

	registry.Unregister(ch1)
	if !registry.IsOnline(1) {
		t.Error("user should stay online while another channel remains")
	}

	registry.Unregister(ch2)
	if registry.IsOnline(1) {
		t.Error("user should be offline after last channel is removed")
	}
	if got := registry.ChannelsFor(1); len(got) != 0 {
		t.Errorf("ChannelsFor(1) = %v after full unregister, want empty", got)
	}

	// Unregistering again, or a never-registered channel, is a no-op.
	registry.Unregister(ch2)
	registry.Unregister(NewChannel(7, nil))
}

func TestRegistry_ChannelsForUnknownUser(t *testing.T) {
	registry := NewRegistry()

	if got := registry.ChannelsFor(42); len(got) != 0 {
		t.Errorf("ChannelsFor(unknown) = %v, want empty", got)
	}
	if registry.IsOnline(42) {
		t.Error("IsOnline(unknown) = true, want false")
	}
}
