package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/example/videomeet/domain/chat"
)

// Redis key layout for the per-room recent message window.
const (
	historyKeyPrefix = "chat:room:"
	historyMaxSize   = 100
	historyTTL       = 24 * time.Hour
)

// HistoryCache keeps the recent message tail of each room in a Redis list.
// It is a best-effort read accelerator: the database stays the source of
// truth and every write goes there first.
type HistoryCache struct {
	client *redis.Client
}

// NewHistoryCache creates a new HistoryCache.
func NewHistoryCache(client *redis.Client) *HistoryCache {
	return &HistoryCache{client: client}
}

func historyKey(roomID string) string {
	return historyKeyPrefix + roomID
}

// Push appends a message to the room's recent tail, trims it to
// historyMaxSize and refreshes the TTL.
func (c *HistoryCache) Push(ctx context.Context, msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	key := historyKey(msg.RoomID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -historyMaxSize, -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache push error: %w", err)
	}
	return nil
}

// Recent returns up to limit messages from the cached tail, oldest first.
// A missing key yields (nil, nil): a cache miss, not an error.
func (c *HistoryCache) Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	start := int64(-limit)
	raw, err := c.client.LRange(ctx, historyKey(roomID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache range error: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// A corrupt entry invalidates the whole tail
			return nil, fmt.Errorf("cache unmarshal error: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Fill replaces the cached tail with the given chronological page.
func (c *HistoryCache) Fill(ctx context.Context, roomID string, msgs []domain.Message) error {
	key := historyKey(roomID)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	for i := range msgs {
		data, err := json.Marshal(&msgs[i])
		if err != nil {
			return fmt.Errorf("cache marshal error: %w", err)
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, -historyMaxSize, -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache fill error: %w", err)
	}
	return nil
}

// Clear drops the cached tail of a room.
func (c *HistoryCache) Clear(ctx context.Context, roomID string) error {
	if err := c.client.Del(ctx, historyKey(roomID)).Err(); err != nil {
		return fmt.Errorf("cache clear error: %w", err)
	}
	return nil
}
