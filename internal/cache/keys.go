package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	postSlugKeyPrefix = "post:slug:%s"
	publishedPostsKey = "posts:published"
	userProfilePrefix = "user:%s"
)

const (
	PostTTL          = 5 * time.Minute
	PublishedListTTL = time.Minute
	UserTTL          = 5 * time.Minute
)

func PostSlugKey(slug string) string {
	return fmt.Sprintf(postSlugKeyPrefix, slug)
}

func PublishedPostsKey() string {
	return publishedPostsKey
}

func UserKey(externalID string) string {
	return fmt.Sprintf(userProfilePrefix, externalID)
}

// Invalidate deletes keys. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidatePost drops every cached view of a post.
func InvalidatePost(ctx context.Context, slugs ...string) {
	keys := []string{PublishedPostsKey()}
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, PostSlugKey(s))
		}
	}
	Invalidate(ctx, keys...)
}

// InvalidateUser drops the cached profile for externalID.
func InvalidateUser(ctx context.Context, externalID string) {
	Invalidate(ctx, UserKey(externalID))
}
