// Package presence tracks which users are online, backed by Redis. A user
// is online while at least one relay channel is open for them; entries
// carry a TTL so a crashed process cannot leave users online forever.
package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix = "online:user:"
	onlineSetKey  = "online:users"
	onlineTTL     = 5 * time.Minute
)

// Tracker provides online-status operations.
type Tracker struct {
	client *redis.Client
}

// NewTracker creates a new Tracker.
func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func userKey(userID uint) string {
	return userKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// SetOnline marks a user online.
func (t *Tracker) SetOnline(ctx context.Context, userID uint) error {
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, userKey(userID), "1", onlineTTL)
	pipe.SAdd(ctx, onlineSetKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	return nil
}

// SetOffline marks a user offline.
func (t *Tracker) SetOffline(ctx context.Context, userID uint) error {
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, userKey(userID))
	pipe.SRem(ctx, onlineSetKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	return nil
}

// Refresh extends the online TTL; called on inbound websocket traffic so
// idle-but-connected users stay online.
func (t *Tracker) Refresh(ctx context.Context, userID uint) error {
	ok, err := t.client.Expire(ctx, userKey(userID), onlineTTL).Result()
	if err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	if !ok {
		// Key expired under us; re-establish
		return t.SetOnline(ctx, userID)
	}
	return nil
}

// IsOnline reports whether a user is currently online.
func (t *Tracker) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := t.client.Exists(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

// OnlineUserIDs returns the IDs of online users, pruning entries whose TTL
// key has expired.
func (t *Tracker) OnlineUserIDs(ctx context.Context) ([]uint, error) {
	members, err := t.client.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members: %w", err)
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		alive, err := t.client.Exists(ctx, userKey(uint(id))).Result()
		if err != nil {
			return nil, fmt.Errorf("presence lookup: %w", err)
		}
		if alive == 0 {
			t.client.SRem(ctx, onlineSetKey, m)
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// OnlineCount returns the number of online users.
func (t *Tracker) OnlineCount(ctx context.Context) (int64, error) {
	ids, err := t.OnlineUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Clear drops all online state. Run at startup: channels do not survive a
// restart, so neither should presence.
func (t *Tracker) Clear(ctx context.Context) error {
	members, err := t.client.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return fmt.Errorf("presence members: %w", err)
	}
	pipe := t.client.TxPipeline()
	for _, m := range members {
		if id, err := strconv.ParseUint(m, 10, 64); err == nil {
			pipe.Del(ctx, userKey(uint(id)))
		}
	}
	pipe.Del(ctx, onlineSetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence clear: %w", err)
	}
	return nil
}
