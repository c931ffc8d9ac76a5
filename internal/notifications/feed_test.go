package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestFeed_LocalDelivery(t *testing.T) {
	feed := NewFeed(nil)
	require.NoError(t, feed.Start(context.Background()))

	sub := feed.Subscribe(5)
	defer sub.Close()

	require.NoError(t, feed.Publish(context.Background(), Event{Type: CommentCreated, PostID: 5, TargetID: 1}))
	ev := receive(t, sub)
	assert.Equal(t, CommentCreated, ev.Type)
	assert.Equal(t, feed.InstanceID(), ev.Origin)
	assert.Equal(t, 1, feed.Subscribers(5))
}

func TestFeed_FansOutAcrossInstancesThroughRedis(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewFeed(rdb)
	b := NewFeed(rdb)
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())

	onA := a.Subscribe(9)
	defer onA.Close()
	onB := b.Subscribe(9)
	defer onB.Close()

	require.NoError(t, a.Publish(ctx, Event{Type: ReactionToggled, PostID: 9, TargetID: 4, ActorID: "u1"}))

	for _, sub := range []*Subscription{onA, onB} {
		ev := receive(t, sub)
		assert.Equal(t, ReactionToggled, ev.Type)
		assert.EqualValues(t, 9, ev.PostID)
		assert.Equal(t, "u1", ev.ActorID)
		assert.Equal(t, a.InstanceID(), ev.Origin)
	}
}

func TestFeed_RedisFailureFallsBackToLocal(t *testing.T) {
	rdb := newTestRedis(t)
	feed := NewFeed(rdb)
	sub := feed.Subscribe(2)
	defer sub.Close()

	require.NoError(t, rdb.Close())
	require.NoError(t, feed.Publish(context.Background(), Event{Type: PostUpdated, PostID: 2}))

	ev := receive(t, sub)
	assert.Equal(t, PostUpdated, ev.Type)
}

func TestFeed_DeliversLocallyWithoutSubscriber(t *testing.T) {
	rdb := newTestRedis(t)

	t.Run("never started", func(t *testing.T) {
		feed := NewFeed(rdb)
		sub := feed.Subscribe(5)
		defer sub.Close()

		require.NoError(t, feed.Publish(context.Background(), Event{Type: CommentCreated, PostID: 5}))
		assert.Equal(t, CommentCreated, receive(t, sub).Type)
	})

	t.Run("start failed", func(t *testing.T) {
		feed := NewFeed(rdb)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.Error(t, feed.Start(ctx))

		sub := feed.Subscribe(6)
		defer sub.Close()

		require.NoError(t, feed.Publish(context.Background(), Event{Type: ReplyCreated, PostID: 6}))
		assert.Equal(t, ReplyCreated, receive(t, sub).Type)
	})
}
