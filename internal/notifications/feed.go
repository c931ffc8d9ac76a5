package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"pressroom/internal/middleware"
	"pressroom/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Feed is the thread change channel. With Redis, events travel through
// feed:post:<id> so that subscribers on every instance see them; without
// Redis they are delivered in-process.
type Feed struct {
	broker     *Broker
	notifier   *Notifier
	instanceID string
	// subscribed is set while the Redis subscriber feeds the broker.
	subscribed atomic.Bool
}

// NewFeed creates a Feed. rdb may be nil.
func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{
		broker:     NewBroker(defaultSubscriptionBuffer),
		notifier:   NewNotifier(rdb),
		instanceID: uuid.NewString(),
	}
}

// InstanceID identifies this process in published events.
func (f *Feed) InstanceID() string { return f.instanceID }

// Start wires the Redis subscriber to local subscribers until ctx ends. It
// is a no-op without Redis. Until Start succeeds, Publish delivers
// in-process only.
func (f *Feed) Start(ctx context.Context) error {
	if !f.notifier.Enabled() {
		return nil
	}
	err := f.notifier.StartFeedSubscriber(ctx, func(channel, payload string) {
		postID, ok := ParsePostChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid feed channel", slog.String("channel", channel))
			return
		}
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			observability.FeedDrops.WithLabelValues("decode").Inc()
			middleware.Logger.Warn("invalid feed payload",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			return
		}
		ev.PostID = postID
		f.broker.Deliver(ev)
	})
	if err != nil {
		return err
	}
	f.subscribed.Store(true)
	go func() {
		<-ctx.Done()
		f.subscribed.Store(false)
	}()
	return nil
}

// Publish announces ev. Without a running Redis subscriber, or when the
// Redis publish fails, ev is delivered locally.
func (f *Feed) Publish(ctx context.Context, ev Event) error {
	if ev.Origin == "" {
		ev.Origin = f.instanceID
	}
	observability.FeedEventsPublished.WithLabelValues(string(ev.Type)).Inc()

	if f.subscribed.Load() {
		err := f.notifier.PublishEvent(ctx, ev)
		if err == nil {
			return nil
		}
		middleware.Logger.WarnContext(ctx, "feed redis publish failed, delivering locally",
			slog.Uint64("post_id", uint64(ev.PostID)),
			slog.String("error", err.Error()),
		)
	}
	f.broker.Deliver(ev)
	return nil
}

// Subscribe follows the thread of postID.
func (f *Feed) Subscribe(postID uint) *Subscription {
	return f.broker.Subscribe(postID)
}

// Subscribers returns the number of local subscriptions for postID.
func (f *Feed) Subscribers(postID uint) int {
	return f.broker.Subscribers(postID)
}
