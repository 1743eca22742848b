package triggers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ActivityWindow counts events per key inside a trailing window. The burst
// detector uses it; production wiring is redis so the window is shared
// across instances.
type ActivityWindow interface {
	RecordAndCount(ctx context.Context, key string, at time.Time, window time.Duration) (int, error)
}

// RedisWindow keeps the trailing window in a sorted set per key, scored by
// event time. Old entries are pruned on every record.
type RedisWindow struct {
	client redis.Cmdable
	prefix string
}

func NewRedisWindow(client redis.Cmdable, prefix string) *RedisWindow {
	return &RedisWindow{client: client, prefix: prefix}
}

func (w *RedisWindow) RecordAndCount(ctx context.Context, key string, at time.Time, window time.Duration) (int, error) {
	redisKey := w.prefix + ":" + key
	cutoff := at.Add(-window)

	pipe := w.client.TxPipeline()
	// The member carries a unique suffix so two events landing on the same
	// nanosecond still count as two.
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: strconv.FormatInt(at.UnixNano(), 10) + ":" + uuid.NewString(),
	})
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10))
	count := pipe.ZCount(ctx, redisKey, strconv.FormatInt(cutoff.UnixNano(), 10), "+inf")
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record activity window: %w", err)
	}
	return int(count.Val()), nil
}

// MemoryWindow is the in-process fallback when redis is not configured.
type MemoryWindow struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{events: make(map[string][]time.Time)}
}

func (w *MemoryWindow) RecordAndCount(_ context.Context, key string, at time.Time, window time.Duration) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := at.Add(-window)
	kept := w.events[key][:0]
	for _, t := range w.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, at)
	w.events[key] = kept
	return len(kept), nil
}
