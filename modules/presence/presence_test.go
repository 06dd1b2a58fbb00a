package presence

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

func setupTracker(t *testing.T) *Tracker {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	tracker := NewTracker(client)
	if err := tracker.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	t.Cleanup(func() {
		tracker.Clear(ctx)
		client.Close()
	})
	return tracker
}

func TestTracker_OnlineOffline(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	online, err := tracker.IsOnline(ctx, 1)
	if err != nil {
		t.Fatalf("IsOnline() error = %v", err)
	}
	if online {
		t.Error("user should start offline")
	}

	if err := tracker.SetOnline(ctx, 1); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	online, err = tracker.IsOnline(ctx, 1)
	if err != nil {
		t.Fatalf("IsOnline() error = %v", err)
	}
	if !online {
		t.Error("user should be online after SetOnline")
	}

	if err := tracker.SetOffline(ctx, 1); err != nil {
		t.Fatalf("SetOffline() error = %v", err)
	}
	online, err = tracker.IsOnline(ctx, 1)
	if err != nil {
		t.Fatalf("IsOnline() error = %v", err)
	}
	if online {
		t.Error("user should be offline after SetOffline")
	}
}

func TestTracker_OnlineUserIDs(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	for _, id := range []uint{1, 2, 3} {
		if err := tracker.SetOnline(ctx, id); err != nil {
			t.Fatalf("SetOnline(%d) error = %v", id, err)
		}
	}
	if err := tracker.SetOffline(ctx, 2); err != nil {
		t.Fatalf("SetOffline() error = %v", err)
	}

	ids, err := tracker.OnlineUserIDs(ctx)
	if err != nil {
		t.Fatalf("OnlineUserIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("OnlineUserIDs() = %v, want two ids", ids)
	}
	count, err := tracker.OnlineCount(ctx)
	if err != nil {
		t.Fatalf("OnlineCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("OnlineCount() = %d, want 2", count)
	}
}

func TestTracker_Refresh(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	// Refresh on a user with no entry re-establishes it.
	if err := tracker.Refresh(ctx, 7); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	online, err := tracker.IsOnline(ctx, 7)
	if err != nil {
		t.Fatalf("IsOnline() error = %v", err)
	}
	if !online {
		t.Error("Refresh() should re-establish a missing entry")
	}
}

func TestTracker_Clear(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	if err := tracker.SetOnline(ctx, 1); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	if err := tracker.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	count, err := tracker.OnlineCount(ctx)
	if err != nil {
		t.Fatalf("OnlineCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("OnlineCount() after Clear = %d, want 0", count)
	}
}
