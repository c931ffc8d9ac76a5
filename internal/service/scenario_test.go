package service

import (
	"context"
	"testing"

	"pressroom/internal/identity"
	"pressroom/internal/models"
	"pressroom/internal/repository"
	"pressroom/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadLifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	store := repository.NewStore(db)
	ctx := context.Background()

	users := NewUserService(store)
	posts := NewPostService(store, nil, nil, nil)
	comments := NewCommentService(store, nil)
	reactions := NewReactionService(store, nil, nil)

	admin := identity.Admin("A")
	u1, u2, u3 := identity.Member("U1"), identity.Member("U2"), identity.Member("U3")
	for _, id := range []string{"A", "U1", "U2", "U3"} {
		_, err := users.GetOrCreate(ctx, SyncUserInput{ExternalID: id, Name: "user " + id})
		require.NoError(t, err)
	}

	post, err := posts.Create(ctx, admin, CreatePostInput{Title: "Hello", Slug: "hello", IsPublished: true})
	require.NoError(t, err)

	c1, err := comments.CreateComment(ctx, u1, post.ID, "first!")
	require.NoError(t, err)
	r1, err := comments.CreateReply(ctx, u2, c1.ID, "agreed")
	require.NoError(t, err)

	for _, caller := range []identity.Identity{u1, u3} {
		action, err := reactions.Toggle(ctx, caller, models.TargetReply, r1.ID, "👍")
		require.NoError(t, err)
		assert.Equal(t, models.ReactionAdded, action)
	}

	groups, err := reactions.GetByTarget(ctx, models.TargetReply, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ReactionGroup{{Emoji: "👍", Count: 2, UserIDs: []string{"U1", "U3"}}}, groups)

	threads, err := comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "user U2", threads[0].Replies[0].Author.Name)

	_, err = comments.DeleteComment(ctx, u2, c1.ID)
	assertUnauthorizedError(t, err)

	_, err = comments.DeleteComment(ctx, u1, c1.ID)
	require.NoError(t, err)

	threads, err = comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, threads)

	groups, err = reactions.GetByTarget(ctx, models.TargetReply, r1.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Zero(t, testutil.Count(t, db, &models.Reply{}))
	assert.Zero(t, testutil.Count(t, db, &models.Reaction{}))

	_, err = reactions.Toggle(ctx, u1, models.TargetReply, r1.ID, "👍")
	assertNotFoundError(t, err)
}

func TestFirstWriteCreatesAuthorProfile(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	store := repository.NewStore(db)
	ctx := context.Background()

	users := NewUserService(store)
	posts := NewPostService(store, nil, nil, nil)
	comments := NewCommentService(store, nil)
	reactions := NewReactionService(store, nil, nil)

	post, err := posts.Create(ctx, identity.Admin("A"), CreatePostInput{Title: "Hello", Slug: "hello", IsPublished: true})
	require.NoError(t, err)

	nine := identity.Member("U9")
	nine.Name = "Nine"
	nine.Avatar = "https://example.com/nine.png"

	c, err := comments.CreateComment(ctx, nine, post.ID, "hi")
	require.NoError(t, err)

	user, err := users.GetByExternalID(ctx, "U9")
	require.NoError(t, err)
	assert.Equal(t, "Nine", user.Name)
	assert.Equal(t, "https://example.com/nine.png", user.Avatar)

	threads, err := comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Nine", threads[0].Author.Name)
	assert.Equal(t, "https://example.com/nine.png", threads[0].Author.Avatar)

	// Later writes keep the existing profile and add no rows.
	renamed := nine
	renamed.Name = "Renamed"
	_, err = comments.CreateReply(ctx, renamed, c.ID, "again")
	require.NoError(t, err)
	_, err = reactions.Toggle(ctx, renamed, models.TargetComment, c.ID, "👍")
	require.NoError(t, err)
	assert.EqualValues(t, 1, testutil.Count(t, db, &models.User{}))

	threads, err = comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "Nine", threads[0].Replies[0].Author.Name)

	// Without a name claim the caller id stands in.
	_, err = reactions.Toggle(ctx, identity.Member("U10"), models.TargetComment, c.ID, "🎉")
	require.NoError(t, err)
	user, err = users.GetByExternalID(ctx, "U10")
	require.NoError(t, err)
	assert.Equal(t, "U10", user.Name)
}
