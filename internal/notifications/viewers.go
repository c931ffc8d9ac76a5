package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"pressroom/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const defaultViewersKey = "thread:viewers"

// ViewerCounter tracks how many live thread connections each post has.
// With Redis the count is shared by every instance through a hash keyed by
// post id; without Redis it covers this process only.
type ViewerCounter struct {
	rdb *redis.Client
	key string

	mu    sync.Mutex
	local map[uint]int64
}

// NewViewerCounter creates a counter. rdb may be nil.
func NewViewerCounter(rdb *redis.Client) *ViewerCounter {
	return &ViewerCounter{
		rdb:   rdb,
		key:   defaultViewersKey,
		local: make(map[uint]int64),
	}
}

func (v *ViewerCounter) Join(ctx context.Context, postID uint) {
	v.add(ctx, postID, 1)
}

func (v *ViewerCounter) Leave(ctx context.Context, postID uint) {
	v.add(ctx, postID, -1)
}

func (v *ViewerCounter) add(ctx context.Context, postID uint, delta int64) {
	v.mu.Lock()
	v.local[postID] += delta
	if v.local[postID] <= 0 {
		delete(v.local, postID)
	}
	v.mu.Unlock()

	if v.rdb == nil {
		return
	}
	field := strconv.FormatUint(uint64(postID), 10)
	n, err := v.rdb.HIncrBy(ctx, v.key, field, delta).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "viewer count update failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return
	}
	if n <= 0 {
		_ = v.rdb.HDel(ctx, v.key, field).Err()
	}
}

// Count returns the number of viewers of postID. Redis failures fall back
// to the local count.
func (v *ViewerCounter) Count(ctx context.Context, postID uint) int64 {
	if v.rdb != nil {
		n, err := v.rdb.HGet(ctx, v.key, strconv.FormatUint(uint64(postID), 10)).Int64()
		if err == nil {
			return n
		}
		if errors.Is(err, redis.Nil) {
			return 0
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.local[postID]
}

// Reset forgets this instance's local counts and subtracts them from the
// shared hash. It runs on shutdown.
func (v *ViewerCounter) Reset(ctx context.Context) {
	v.mu.Lock()
	local := v.local
	v.local = make(map[uint]int64)
	v.mu.Unlock()

	if v.rdb == nil {
		return
	}
	for postID, n := range local {
		field := strconv.FormatUint(uint64(postID), 10)
		if left, err := v.rdb.HIncrBy(ctx, v.key, field, -n).Result(); err == nil && left <= 0 {
			_ = v.rdb.HDel(ctx, v.key, field).Err()
		}
	}
}
